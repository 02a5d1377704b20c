package p2psig

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/jabolina/go-dess"
)

// sendSigsMsg is the periodic gossip payload: a signer bitset, whose
// declared wire Size depends on the sending strategy.
type sendSigsMsg struct {
	proto    *Protocol
	bits     *bitset.BitSet
	strategy SendSigsStrategy
}

func (m *sendSigsMsg) Size() int {
	switch m.strategy {
	case StrategyCompressedAll, StrategyCompressedDiff:
		return compressedSize(m.bits, m.proto.params.SigRange, m.proto.params.SigningNodeCount)
	default:
		return int(m.bits.Count())
	}
}

func (m *sendSigsMsg) Action(_ *dess.Network, from, to dess.NodeID) {
	m.proto.onReceiveSigs(to, from, m.bits)
}

// stateUpdateMsg is broadcast whenever a node's verified set grows, so
// peers can keep their belief of that node's state fresh (used by
// sendSigs' "peer whose state lacks bits we have" selection).
type stateUpdateMsg struct {
	proto *Protocol
	bits  *bitset.BitSet
}

func (m *stateUpdateMsg) Size() int {
	return int(m.bits.Count())
}

func (m *stateUpdateMsg) Action(_ *dess.Network, from, to dess.NodeID) {
	m.proto.onReceiveState(to, from, m.bits)
}
