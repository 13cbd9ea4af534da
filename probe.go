package swiss

// probeSeq walks the groups of a table in triangular (quadratic) order from
// a starting group derived from h1. groupCount must be a power of two; the
// sequence then visits every group exactly once before repeating, since
// (i^2+i)/2 is a bijection on Z/2^m.
type probeSeq struct {
	mask  uint32 // groupCount - 1
	group uint32
	step  uint32
}

func makeProbeSeq(h1 uint32, groupMask uint32) probeSeq {
	return probeSeq{
		mask:  groupMask,
		group: h1 & groupMask,
		step:  0,
	}
}

// next advances to the next group in the triangular sequence.
func (p probeSeq) next() probeSeq {
	p.step++
	p.group = (p.group + p.step) & p.mask
	return p
}
