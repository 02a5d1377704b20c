// Package handel implements the level-based Handel signature
// aggregation protocol: nodes are arranged by id into a binary
// structure of doubling "levels", each level's peer group twice the
// size of the one below, so that full aggregation completes in
// O(log N) communication rounds instead of O(N) gossip rounds.
package handel

import "github.com/jabolina/go-dess"

// maxLevel is the highest level index for a population of n nodes:
// ceil(log2(n)), with a floor of 1 so a 1-node network still has a
// (trivially empty) level structure.
func maxLevel(n int) int {
	l := 0
	for (1 << uint(l)) < n {
		l++
	}
	if l < 1 {
		l = 1
	}
	return l
}

// communicationLevel returns the smallest l >= 1 such that v and peer,
// right-shifted l times, become equal: the level at which the two ids
// first merge into the same binary-tree group.
func communicationLevel(v, peer dess.NodeID) int {
	if v == peer {
		panic("handel: communication level queried between a node and itself")
	}
	for l := 1; l < 64; l++ {
		if (int(v) >> uint(l)) == (int(peer) >> uint(l)) {
			return l
		}
	}
	return 64
}

// levelSize is the number of peers a complete level l holds: 2^(l-1).
func levelSize(l int) int {
	return 1 << uint(l-1)
}

// peersAtLevel lists every node, among n total, whose communication
// level with v is exactly l: the static peer group v contacts at that
// level for the lifetime of the run, sorted for a deterministic
// emission order.
func peersAtLevel(v dess.NodeID, l, n int) []dess.NodeID {
	var peers []dess.NodeID
	for c := 0; c < n; c++ {
		id := dess.NodeID(c)
		if id == v {
			continue
		}
		if communicationLevel(v, id) == l {
			peers = append(peers, id)
		}
	}
	return peers
}
