package p2psig

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/jabolina/go-dess"
)

// Protocol drives a network of signing and relaying nodes through
// gossip-based signature aggregation, optionally accelerated by San
// Fermin ring expansion. It implements dess.Protocol.
type Protocol struct {
	params Params

	net    *dess.Network
	states []*nodeState
}

// NewProtocol builds an unstarted Protocol from params. Call it through
// dess.NewSimulator, which invokes Init.
func NewProtocol(params Params) *Protocol {
	return &Protocol{params: params}
}

// Init builds the network, places nodes, wires the peer graph, and
// schedules the periodic gossip tasks every node runs.
func (p *Protocol) Init() error {
	builders := dess.NewBuilderRegistry()
	build, err := builders.Resolve(p.params.NodeBuilderName)
	if err != nil {
		return err
	}

	total := p.params.totalNodes()
	positions := make([]dess.Position, total)
	for i := 0; i < total; i++ {
		positions[i] = build(i, total)
	}

	latencies := dess.NewLatencyRegistry()
	latency, err := latencies.Resolve(p.params.NetworkLatencyName, func(id dess.NodeID) dess.Position {
		return positions[id]
	})
	if err != nil {
		return err
	}

	p.net = dess.NewNetwork(latency, p.params.Seed, nil)
	for i := 0; i < total; i++ {
		p.net.AddNode(positions[i], 1.0)
	}
	p.net.SetPeers(p.params.ConnectionCount)

	// Node ids [0, SigningNodeCount) are signers, each starting with its
	// own bit set; [SigningNodeCount, total) are pure relays, which
	// never contribute a signature of their own.
	p.states = make([]*nodeState, total)
	for i := 0; i < total; i++ {
		isRelay := i >= p.params.SigningNodeCount
		st := newNodeState(p.params.SigningNodeCount, isRelay)
		if !isRelay {
			st.verified.Set(uint(i))
		}
		p.states[i] = st
	}

	for i := 0; i < total; i++ {
		id := dess.NodeID(i)
		p.net.RegisterConditionalTask(func() { p.sendSigs(id) }, dess.Time(p.params.SigsSendPeriod), dess.Time(p.params.SigsSendPeriod), id, p.notDoneYet(id), p.notDoneYet(id))
	}

	if p.params.SanFermin {
		for i := 0; i < total; i++ {
			id := dess.NodeID(i)
			if !p.states[id].verified.None() {
				p.checkSanFerminRounds(id)
			}
		}
	}

	return nil
}

// Network returns the wired network, satisfying dess.Protocol.
func (p *Protocol) Network() *dess.Network {
	return p.net
}

func (p *Protocol) notDoneYet(id dess.NodeID) func() bool {
	return func() bool { return !p.states[id].done }
}

// sendSigs is the periodic gossip task: pick the next peer in this
// node's round-robin order and push whatever that peer is missing, in
// the configured strategy.
func (p *Protocol) sendSigs(id dess.NodeID) {
	st := p.states[id]
	peers := p.net.Peers(id)
	if len(peers) == 0 {
		return
	}
	target := peers[st.peerCursor%len(peers)]
	st.peerCursor++

	payload := p.sendSigsPayload(st, target)
	if payload == nil || payload.None() {
		return
	}
	p.net.Send(&sendSigsMsg{proto: p, bits: payload, strategy: p.params.SendSigsStrategy}, p.net.Time(), id, []dess.NodeID{target})
}

func (p *Protocol) sendSigsPayload(st *nodeState, target dess.NodeID) *bitset.BitSet {
	switch p.params.SendSigsStrategy {
	case StrategyAll, StrategyCompressedAll:
		return st.verified.Clone()
	case StrategyCompressedDiff:
		known := st.peerKnownBits(target, st.verified.Len())
		diff := st.verified.Difference(known)
		full := st.verified
		if compressedSize(diff, p.params.SigRange, p.params.SigningNodeCount) <= compressedSize(full, p.params.SigRange, p.params.SigningNodeCount) {
			return diff
		}
		return full.Clone()
	default: // StrategyDiff
		known := st.peerKnownBits(target, st.verified.Len())
		return st.verified.Difference(known)
	}
}

// onReceiveSigs queues an incoming bitset for pairing-cost simulation
// rather than verifying it immediately, modeling aggregate-signature
// verification as a scheduled delay instead of real computation.
func (p *Protocol) onReceiveSigs(id, from dess.NodeID, bits *bitset.BitSet) {
	st := p.states[id]
	if st.done {
		return
	}
	st.toVerify = append(st.toVerify, pendingSig{from: from, bits: bits})
	p.checkSigs(id)
}

// checkSigs schedules the "pairing" delay for newly queued signature
// sets, following the configured double-aggregate strategy: strategy 1
// pairs the single most valuable pending set, strategy 2 unions every
// pending set into one pairing.
func (p *Protocol) checkSigs(id dess.NodeID) {
	st := p.states[id]
	if len(st.toVerify) == 0 {
		return
	}

	switch p.params.DoubleAggregateStrategy {
	case 2:
		merged := st.verified.Clone()
		for _, ps := range st.toVerify {
			merged.InPlaceUnion(ps.bits)
		}
		st.toVerify = nil
		p.net.RegisterTask(func() { p.updateVerifiedSignatures(id, merged) }, p.net.Time()+dess.Time(p.params.PairingTime), id)
	default:
		best := st.toVerify[0]
		bestNew := newBitsCount(st.verified, best.bits)
		for _, ps := range st.toVerify[1:] {
			if n := newBitsCount(st.verified, ps.bits); n > bestNew {
				best, bestNew = ps, n
			}
		}
		st.toVerify = nil
		if bestNew == 0 {
			return
		}
		p.net.RegisterTask(func() { p.updateVerifiedSignatures(id, best.bits) }, p.net.Time()+2*dess.Time(p.params.PairingTime), id)
	}
}

func newBitsCount(have, incoming *bitset.BitSet) int {
	return int(incoming.Difference(have).Count())
}

// updateVerifiedSignatures merges newBits into id's verified set and, if
// that actually grew the set, propagates the change.
func (p *Protocol) updateVerifiedSignatures(id dess.NodeID, newBits *bitset.BitSet) {
	st := p.states[id]
	if st.done {
		return
	}
	before := st.verified.Count()
	st.verified.InPlaceUnion(newBits)
	if st.verified.Count() == before {
		return
	}
	p.onStateChange(id)
}

// onStateChange fires whenever id's verified set grows: it broadcasts
// the new state, checks for newly completed San Fermin rounds, and
// checks whether id has just crossed the signing threshold.
func (p *Protocol) onStateChange(id dess.NodeID) {
	st := p.states[id]
	p.net.Broadcast(&stateUpdateMsg{proto: p, bits: st.verified.Clone()}, p.net.Time(), id)

	if p.params.SanFermin {
		p.checkSanFerminRounds(id)
	}

	// Pure relays never contribute their own signature and never
	// declare done: they exist only to shuttle bits between signers.
	if !st.isRelay && !st.done && int(st.verified.Count()) >= p.params.Threshold {
		st.done = true
		p.net.Node(id).MarkDone(p.net.Time())
		p.drainFinalPush(id)
	}
}

// onReceiveState updates id's belief of what peer from already has, so
// future diff-strategy sends to that peer stay minimal.
func (p *Protocol) onReceiveState(id, from dess.NodeID, bits *bitset.BitSet) {
	st := p.states[id]
	st.peers[from] = bits
}

// drainFinalPush, once id reaches threshold, immediately pushes the
// completed set to every peer that doesn't have it yet, instead of
// waiting for the next round-robin turn.
func (p *Protocol) drainFinalPush(id dess.NodeID) {
	st := p.states[id]
	for _, peer := range p.net.Peers(id) {
		known := st.peerKnownBits(peer, st.verified.Len())
		if known.Count() == st.verified.Count() {
			continue
		}
		p.net.Send(&sendSigsMsg{proto: p, bits: st.verified.Clone(), strategy: StrategyCompressedAll}, p.net.Time(), id, []dess.NodeID{peer})
	}
}
