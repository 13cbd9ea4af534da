package swiss

import "math/bits"

// Control byte sentinels. A control byte is either one of these two
// sentinels or a 7-bit fingerprint in [0x00, 0x7F] ("full").
const (
	ctrlEmpty   uint8 = 0b1000_0000
	ctrlDeleted uint8 = 0b1111_1110
)

const (
	groupWidth = 8

	bitsetLSB = 0x0101010101010101
	bitsetMSB = 0x8080808080808080

	// bitsetPack is the magic multiplier that gathers the 8 per-lane MSBs of
	// a haszero-style result (bits 7, 15, 23, ..., 63) into 8 consecutive
	// bits at the top of the product; shifting right by 56 brings lane i's
	// bit down to bit i of the result.
	bitsetPack = 0x0002040810204081
)

// matchMask is a packed groupWidth-bit mask: bit i set means slot i in the
// group matched the query. Only SWAR's 8-lane group is represented this way;
// wider group widths would need a wider mask type.
type matchMask uint64

// first returns the index of the lowest set bit, or groupWidth if mask is 0.
func (m matchMask) first() int {
	if m == 0 {
		return groupWidth
	}
	return bits.TrailingZeros64(uint64(m))
}

// next clears the lowest set bit and returns the resulting mask, advancing
// to the next matching lane.
func (m matchMask) next() matchMask {
	return m & (m - 1)
}

func (m matchMask) any() bool {
	return m != 0
}

// loadGroupWord packs 8 contiguous control bytes starting at base into one
// little-endian uint64 so a whole group can be matched with one SWAR pass.
func loadGroupWord(ctrl []uint8, base int) uint64 {
	_ = ctrl[base+7] // bounds-check hoist
	var w uint64
	for i := 0; i < groupWidth; i++ {
		w |= uint64(ctrl[base+i]) << (8 * i)
	}
	return w
}

// matchByte returns a mask of the lanes in word equal to b.
//
// The naive haszero identity `(x - 0x0101...01) & ~x & 0x8080...80` is
// incorrect in the general SWAR setting: cross-byte borrow corrupts
// neighboring lanes when x has non-zero bytes. The right-shift form below
// avoids that borrow propagation, leaving a result with bit 8*i+7 set (not
// bit i) for every matching lane i. Multiplying by bitsetPack and shifting
// right 56 packs those spread bits down into consecutive bits 0-7 so the
// mask's bit i means exactly "lane i matched".
func matchByte(word uint64, b uint8) matchMask {
	x := word ^ (bitsetLSB * uint64(b))
	spread := ((x>>1 | bitsetMSB) - x) & bitsetMSB
	return matchMask((spread * bitsetPack) >> 56)
}

// matchFingerprint returns, for each lane, whether the control byte equals
// the 7-bit fingerprint h2.
func matchFingerprint(word uint64, h2 uint8) matchMask {
	return matchByte(word, h2)
}

// matchEmpty returns, for each lane, whether the control byte is EMPTY.
// EMPTY is 1000_0000, DELETED is 1111_1110: bit 7 set and bit 1 clear
// distinguishes EMPTY from DELETED (and from any live fingerprint, whose bit
// 7 is always clear). Packed into lane-indexed bits the same way matchByte
// is.
func matchEmpty(word uint64) matchMask {
	spread := (word &^ (word << 6)) & bitsetMSB
	return matchMask((spread * bitsetPack) >> 56)
}

// matchTombstone returns, for each lane, whether the control byte is
// DELETED.
func matchTombstone(word uint64) matchMask {
	return matchByte(word, ctrlDeleted)
}
