package swiss

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestH1H2Partitioning(t *testing.T) {
	// h1 and h2 must partition the 32-bit smeared hash without overlap: h2
	// is exactly the low 7 bits, h1 is everything from bit 7 up.
	for _, h := range []uint32{0, 1, 0x7F, 0x80, 0xFFFFFFFF, 0xDEADBEEF, 0x12345678} {
		got1 := h1(h)
		got2 := h2(h)
		require.EqualValues(t, h&0x7F, got2)
		require.LessOrEqual(t, uint32(got2), uint32(0x7F))
		reconstructed := (got1 << 7) | uint32(got2)
		require.Equal(t, h, reconstructed)
	}
}

func TestSplitHashIsDeterministic(t *testing.T) {
	fn := HashString()
	h1a, h2a := splitHash(fn, "repeatable")
	h1b, h2b := splitHash(fn, "repeatable")
	require.Equal(t, h1a, h1b)
	require.Equal(t, h2a, h2b)
}

func TestIsNilKeyPointer(t *testing.T) {
	var p *int
	require.True(t, isNilKey(p))
	x := 5
	p = &x
	require.False(t, isNilKey(p))
}

func TestIsNilKeyNonNilableTypesNeverNil(t *testing.T) {
	require.False(t, isNilKey(0))
	require.False(t, isNilKey(""))
	require.False(t, isNilKey(struct{ X int }{}))
}

func TestIsNilKeyInterface(t *testing.T) {
	var err error
	require.True(t, isNilKey[error](err))
}

func TestFoldCombinesBothHalves(t *testing.T) {
	require.EqualValues(t, 0, fold(0))
	require.EqualValues(t, 0xFFFFFFFF, fold(0x00000000FFFFFFFF))
	require.EqualValues(t, 0, fold(0xFFFFFFFFFFFFFFFF))
	require.EqualValues(t, 0x12345678, fold(0x1234567800000000))
}
