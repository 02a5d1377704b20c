package p2psig

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/require"
)

func TestCompressedSize_NonEmptyLowerBound(t *testing.T) {
	bs := bitset.New(16)
	bs.Set(5)
	require.GreaterOrEqual(t, compressedSize(bs, 4, 16), 1)
}

func TestCompressedSize_AllOnesIsOne(t *testing.T) {
	bs := bitset.New(16)
	for i := uint(0); i < 16; i++ {
		bs.Set(i)
	}
	require.Equal(t, 1, compressedSize(bs, 4, 16))
}

// TestCompressedSize_AlignedFullBlockMerges exercises a bitset composed
// of 2^k fully-set consecutive sigRange windows aligned on
// sigRange*2^k, which must collapse to one unit even though the
// population as a whole is larger.
func TestCompressedSize_AlignedFullBlockMerges(t *testing.T) {
	const sigRange = 4
	const signingNodeCount = 32
	bs := bitset.New(signingNodeCount)
	// First two sigRange windows (k=1, block size 8), fully set.
	for i := uint(0); i < 8; i++ {
		bs.Set(i)
	}
	require.Equal(t, 1, compressedSize(bs, sigRange, signingNodeCount))
}

// TestCompressedSize_ScenarioS6 is "1111_1110" with sigRange=4: the
// first window is fully set, the second has 3 of its 4 bits set. Each
// nonempty window costs one unit and only fully-set siblings merge, so
// the answer is 2.
func TestCompressedSize_ScenarioS6(t *testing.T) {
	bs := bitset.New(8)
	for _, i := range []uint{0, 1, 2, 3, 4, 5, 6} {
		bs.Set(i)
	}
	require.Equal(t, 2, compressedSize(bs, 4, 8))
}

func TestCompressedSize_EmptyBitsetIsZero(t *testing.T) {
	bs := bitset.New(8)
	require.Equal(t, 0, compressedSize(bs, 4, 8))
}
