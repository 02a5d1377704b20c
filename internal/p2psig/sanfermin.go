package p2psig

import "github.com/jabolina/go-dess"

// sanFerminRange returns the id's own signer-index range at round: a
// power-of-two-sized, power-of-two-aligned block that doubles each
// round, starting from the single index [id, id+1) at round 0.
func sanFerminRange(id dess.NodeID, round int) (lo, hi int) {
	size := 1 << uint(round)
	lo = (int(id) / size) * size
	return lo, lo + size
}

// sanFerminSiblingRange is the adjacent range of the same size as id's
// own range at round, the block San Fermin pushes a completed
// aggregate into once id's own range finishes.
func sanFerminSiblingRange(id dess.NodeID, round int) (lo, hi int) {
	size := 1 << uint(round)
	ownLo := (int(id) / size) * size
	sibLo := ownLo ^ size
	return sibLo, sibLo + size
}

// sanFerminPeers lists the candidate ids in id's sibling range at
// round, clipped to the population size n.
func sanFerminPeers(id dess.NodeID, round, n int) []dess.NodeID {
	lo, hi := sanFerminSiblingRange(id, round)
	if hi > n {
		hi = n
	}
	if lo >= hi {
		return nil
	}
	peers := make([]dess.NodeID, 0, hi-lo)
	for i := lo; i < hi; i++ {
		if dess.NodeID(i) != id {
			peers = append(peers, dess.NodeID(i))
		}
	}
	return peers
}

// maxSanFerminRound is the smallest round whose range covers the whole
// population, capped well below the bitset's fixed round-tracking
// capacity.
func maxSanFerminRound(n int) int {
	round := 0
	for (1 << uint(round)) < n {
		round++
	}
	if round > 30 {
		round = 30
	}
	return round
}

func rangeFullySet(verified bitsetTester, lo, hi int) bool {
	if hi <= lo {
		return false
	}
	for i := lo; i < hi; i++ {
		if !verified.Test(uint(i)) {
			return false
		}
	}
	return true
}

// bitsetTester is the single method checkSanFerminRounds needs from
// *bitset.BitSet, kept narrow so it's trivial to exercise in tests.
type bitsetTester interface {
	Test(uint) bool
}

// checkSanFerminRounds is called after every verified-set growth. It
// walks rounds bottom-up and, the first time id's range at round r
// becomes fully signed, pushes the aggregate for that range to a
// couple of random nodes in the sibling range at r+1 (the ring
// expansion acceleration) and marks the round done so the push only
// happens once.
func (p *Protocol) checkSanFerminRounds(id dess.NodeID) {
	st := p.states[id]
	n := p.params.totalNodes()
	top := maxSanFerminRound(n)

	for r := 0; r <= top; r++ {
		lo, hi := sanFerminRange(id, r)
		if hi > n {
			hi = n
		}
		if !rangeFullySet(st.verified, lo, hi) {
			break
		}
		if uint(r) < st.sanFerminRoundDone.Len() && st.sanFerminRoundDone.Test(uint(r)) {
			continue
		}
		st.sanFerminRoundDone.Set(uint(r))

		targets := sanFerminPeers(id, r+1, n)
		targets = pickRandom(p.net.Rand(), targets, 2)
		if len(targets) == 0 {
			continue
		}
		p.net.Send(&sendSigsMsg{proto: p, bits: st.verified.Clone(), strategy: StrategyCompressedAll}, p.net.Time(), id, targets)
	}
}

func pickRandom(rng randIntn, items []dess.NodeID, k int) []dess.NodeID {
	if len(items) <= k {
		return items
	}
	shuffled := make([]dess.NodeID, len(items))
	copy(shuffled, items)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:k]
}

type randIntn interface {
	Intn(int) int
}
