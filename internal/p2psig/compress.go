package p2psig

import "github.com/bits-and-blooms/bitset"

// compressedSize estimates the wire size, in units of "effective
// signatures", of sending bs. BLS-style aggregation lets any subset of
// signers collapse into one signature plus a bitmap of who signed, so
// every sigRange-sized window that has at least one bit set costs
// exactly one aggregate — whether that window is fully or only
// partially signed. What differs is mergeability: two sibling windows
// (or sibling merged ranges) that are each *fully* signed, and aligned
// on a sigRange·2^k boundary, collapse recursively into a single
// aggregate covering their combined range, since a fully-signed range
// needs no bitmap at all. Partially-signed ranges never merge upward.
//
// If the whole population has signed, the answer is always 1: one
// aggregate over everyone.
func compressedSize(bs *bitset.BitSet, sigRange, signingNodeCount int) int {
	if signingNodeCount <= 0 {
		return 0
	}
	if int(bs.Count()) == signingNodeCount {
		return 1
	}
	if sigRange <= 0 {
		sigRange = 1
	}

	numWindows := (signingNodeCount + sigRange - 1) / sigRange
	leaves := make([]mergeNode, nextPow2(numWindows))
	for i := range leaves {
		if i >= numWindows {
			// Padding beyond the real window count: empty and never
			// full, so it can never falsely merge with a real window.
			continue
		}
		lo := i * sigRange
		hi := lo + sigRange
		if hi > signingNodeCount {
			hi = signingNodeCount
		}
		leaves[i] = leafWindow(bs, lo, hi)
	}

	return mergeRanges(leaves).count
}

type mergeNode struct {
	full  bool
	count int
}

func leafWindow(bs *bitset.BitSet, lo, hi int) mergeNode {
	capacity := hi - lo
	if capacity <= 0 {
		return mergeNode{}
	}
	set := 0
	for i := lo; i < hi; i++ {
		if bs.Test(uint(i)) {
			set++
		}
	}
	if set == 0 {
		return mergeNode{}
	}
	return mergeNode{full: set == capacity, count: 1}
}

// mergeRanges repeatedly pairs adjacent nodes, collapsing two fully-set
// siblings into a single full unit, until one root node remains.
func mergeRanges(level []mergeNode) mergeNode {
	for len(level) > 1 {
		next := make([]mergeNode, len(level)/2)
		for i := range next {
			left, right := level[2*i], level[2*i+1]
			if left.full && right.full {
				next[i] = mergeNode{full: true, count: 1}
			} else {
				next[i] = mergeNode{full: false, count: left.count + right.count}
			}
		}
		level = next
	}
	if len(level) == 0 {
		return mergeNode{}
	}
	return level[0]
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
