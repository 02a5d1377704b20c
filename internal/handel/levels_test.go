package handel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/go-dess"
)

func TestCommunicationLevel_Symmetric(t *testing.T) {
	for v := dess.NodeID(0); v < 16; v++ {
		for peer := dess.NodeID(0); peer < 16; peer++ {
			if v == peer {
				continue
			}
			require.Equal(t, communicationLevel(v, peer), communicationLevel(peer, v))
		}
	}
}

// TestPeersAtLevel_PartitionsAllOtherNodes checks that every other node
// appears in exactly one level's peer group for v.
func TestPeersAtLevel_PartitionsAllOtherNodes(t *testing.T) {
	const n = 16
	v := dess.NodeID(3)
	top := maxLevel(n)

	seen := make(map[dess.NodeID]int)
	for l := 1; l <= top; l++ {
		for _, p := range peersAtLevel(v, l, n) {
			seen[p]++
		}
	}

	require.Len(t, seen, n-1)
	for id, count := range seen {
		require.Equalf(t, 1, count, "node %d appeared in %d levels", id, count)
	}
}

func TestLevelSize_DoublesPerLevel(t *testing.T) {
	require.Equal(t, 1, levelSize(1))
	require.Equal(t, 2, levelSize(2))
	require.Equal(t, 4, levelSize(3))
}

func TestMaxLevel_CoversPopulation(t *testing.T) {
	require.Equal(t, 4, maxLevel(16))
	require.Equal(t, 1, maxLevel(1))
	require.Equal(t, 1, maxLevel(2))
}
