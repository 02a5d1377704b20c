package p2psig

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/jabolina/go-dess"
)

// pendingSig is one unverified signature set received from a peer,
// waiting on checkSigs to pick it for pairing-cost simulation.
type pendingSig struct {
	from dess.NodeID
	bits *bitset.BitSet
}

// nodeState is a node's local protocol state: the verified bitset, the
// pending-verification queue, this node's belief of what each peer
// already has, and whether it has reached threshold.
type nodeState struct {
	verified *bitset.BitSet
	toVerify []pendingSig
	peers    map[dess.NodeID]*bitset.BitSet

	isRelay bool
	done    bool

	// sanFerminRoundDone tracks which San Fermin rounds this node has
	// already completed and propagated, so onStateChange doesn't resend
	// a finished range's aggregate on every subsequent bit gain.
	sanFerminRoundDone *bitset.BitSet

	// peerCursor round-robins sendSigs target selection across peers.
	peerCursor int
}

func newNodeState(signingNodeCount int, isRelay bool) *nodeState {
	return &nodeState{
		verified:           bitset.New(uint(signingNodeCount)),
		peers:              make(map[dess.NodeID]*bitset.BitSet),
		isRelay:            isRelay,
		sanFerminRoundDone: bitset.New(32),
	}
}

func (s *nodeState) peerKnownBits(peer dess.NodeID, size uint) *bitset.BitSet {
	if b, ok := s.peers[peer]; ok {
		return b
	}
	return bitset.New(size)
}
