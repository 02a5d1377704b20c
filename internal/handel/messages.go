package handel

import "github.com/jabolina/go-dess"

// sendAggregationMsg carries one level's current outgoing aggregate to
// a peer, sized by its signer cardinality (Handel has no bitset
// compression scheme of its own).
type sendAggregationMsg struct {
	proto         *Protocol
	height        int
	level         int
	levelFinished bool
	att           *Attestation
}

func (m *sendAggregationMsg) Size() int {
	return m.att.cardinality()
}

func (m *sendAggregationMsg) Action(_ *dess.Network, from, to dess.NodeID) {
	m.proto.onNewAgg(to, from, m.height, m.level, m.levelFinished, m.att)
}
