package handel

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/jabolina/go-dess"
)

// nodeHandelState is one node's local view: every AggregationProcess
// it currently runs, its adaptive verification window, its round-robin
// cursor over processes, and the senders it has blacklisted.
type nodeHandelState struct {
	processes           []*AggregationProcess
	curWindowsSize      int
	lastProcessVerified int
	blacklist           *bitset.BitSet
	done                bool
}

// Protocol drives a population of nodes through level-based Handel
// aggregation. It implements dess.Protocol.
type Protocol struct {
	params Params

	net    *dess.Network
	states []*nodeHandelState

	// Faulty, when set, lets tests inject a bad signature from a given
	// sender at a given (height, level): verification then blacklists
	// the sender and shrinks the window instead of accepting the bits.
	Faulty func(from dess.NodeID, height, level int) bool
}

// NewProtocol builds an unstarted Protocol from params.
func NewProtocol(params Params) *Protocol {
	return &Protocol{params: params}
}

func (p *Protocol) Init() error {
	builders := dess.NewBuilderRegistry()
	build, err := builders.Resolve(p.params.NodeBuilderName)
	if err != nil {
		return err
	}

	n := p.params.NodeCount
	positions := make([]dess.Position, n)
	for i := 0; i < n; i++ {
		positions[i] = build(i, n)
	}

	latencies := dess.NewLatencyRegistry()
	latency, err := latencies.Resolve(p.params.NetworkLatencyName, func(id dess.NodeID) dess.Position {
		return positions[id]
	})
	if err != nil {
		return err
	}

	p.net = dess.NewNetwork(latency, p.params.Seed, nil)
	for i := 0; i < n; i++ {
		p.net.AddNode(positions[i], 1.0)
	}
	p.net.SetPeers(p.params.ConnectionCount)

	p.states = make([]*nodeHandelState, n)
	for i := 0; i < n; i++ {
		p.states[i] = &nodeHandelState{curWindowsSize: 1, blacklist: bitset.New(uint(n))}
	}

	period := p.params.periodTime()
	for i := 0; i < n; i++ {
		id := dess.NodeID(i)
		p.net.RegisterConditionalTask(func() { p.startNewAggregation(id) }, dess.Time(period), dess.Time(period), id, alwaysTrue, alwaysTrue)

		tick := p.nodePairingTime(id)
		p.net.RegisterConditionalTask(func() { p.disseminate(id) }, dess.Time(tick), dess.Time(tick), id, alwaysTrue, alwaysTrue)
		p.net.RegisterConditionalTask(func() { p.verify(id) }, dess.Time(tick), dess.Time(tick), id, alwaysTrue, alwaysTrue)
	}

	return nil
}

func alwaysTrue() bool { return true }

func (p *Protocol) Network() *dess.Network {
	return p.net
}

func (p *Protocol) nodePairingTime(id dess.NodeID) int64 {
	speed := p.net.Node(id).SpeedRatio
	if speed <= 0 {
		speed = 1
	}
	return int64(float64(p.params.PairingTime) / speed)
}

// startNewAggregation bumps height and starts a fresh AggregationProcess
// running alongside any still in progress.
func (p *Protocol) startNewAggregation(id dess.NodeID) {
	st := p.states[id]
	n := len(p.states)
	height := len(st.processes) + 1
	deadline := dess.Time(n) * dess.Time(p.params.PairingTime)
	proc := newAggregationProcess(height, id, n, p.net.Time(), deadline)
	st.processes = append(st.processes, proc)
}

// disseminate recomputes every running process's outgoing aggregate and
// runs one emission cycle per open or newly-completed level.
func (p *Protocol) disseminate(id dess.NodeID) {
	st := p.states[id]
	n := len(p.states)
	now := p.net.Time()

	for _, proc := range st.processes {
		if proc.done {
			continue
		}
		proc.recomputeOutgoing(id, n)
		if now >= proc.endAt {
			for _, lv := range proc.levels[1:] {
				if lv.status == StatusOpen {
					lv.status = StatusIncomingComplete
				}
			}
		}
		for _, lv := range proc.levels[1:] {
			p.doCycle(id, proc, lv, st)
		}
		p.checkProcessDone(id, proc)
	}
}

func (p *Protocol) doCycle(id dess.NodeID, proc *AggregationProcess, lv *levelState, st *nodeHandelState) {
	if lv.status == StatusClosed {
		return
	}
	levelFinished := lv.status == StatusIncomingComplete
	targets := pickWindow(lv.peers, lv.finishedPeers, st.curWindowsSize, &lv.cursor)
	if len(targets) == 0 {
		if levelFinished {
			lv.status = StatusClosed
		}
		return
	}
	for _, t := range targets {
		p.net.Send(&sendAggregationMsg{
			proto:         p,
			height:        proc.height,
			level:         lv.index,
			levelFinished: levelFinished,
			att:           lv.outgoing.clone(),
		}, p.net.Time(), id, []dess.NodeID{t})
	}
	if levelFinished {
		lv.status = StatusClosed
	}
}

// pickWindow returns up to k peers not present in finishedPeers,
// starting from *cursor and wrapping, advancing *cursor past what it
// returned so repeated calls round-robin through the full peer list.
func pickWindow(peers []dess.NodeID, finishedPeers *bitset.BitSet, k int, cursor *int) []dess.NodeID {
	if len(peers) == 0 || k <= 0 {
		return nil
	}
	out := make([]dess.NodeID, 0, k)
	scanned := 0
	for ; scanned < len(peers) && len(out) < k; scanned++ {
		idx := (*cursor + scanned) % len(peers)
		peer := peers[idx]
		if !finishedPeers.Test(uint(peer)) {
			out = append(out, peer)
		}
	}
	*cursor = (*cursor + scanned) % len(peers)
	return out
}

// verify round-robins over id's running processes, picks the
// highest-scoring queued contribution via bestToVerify, and schedules
// the pairing-cost completion task.
func (p *Protocol) verify(id dess.NodeID) {
	st := p.states[id]
	if len(st.processes) == 0 {
		return
	}
	idx := st.lastProcessVerified % len(st.processes)
	st.lastProcessVerified = (idx + 1) % len(st.processes)

	proc := st.processes[idx]
	if proc.done {
		return
	}

	entry, level, ok := bestToVerify(proc, st.blacklist, st.curWindowsSize)
	if !ok {
		return
	}
	proc.lastLevelVerified = level % proc.topLevel()

	completionAt := p.net.Time() + dess.Time(p.nodePairingTime(id)) - 1
	if completionAt < p.net.Time() {
		completionAt = p.net.Time()
	}
	p.net.RegisterTask(func() { p.updateVerifiedSignatures(id, proc, level, entry) }, completionAt, id)
}

// bestToVerify scans levels starting at proc.lastLevelVerified,
// wrapping, and returns the highest-scoring (most new bits) queued
// contribution not from a blacklisted sender. Only the first
// windowSize queued entries of each level are ever considered, so
// shrinking the window on a fault also shrinks a flooding sender's
// exposure to verification, not just how many peers get disseminated.
func bestToVerify(proc *AggregationProcess, blacklist *bitset.BitSet, windowSize int) (aggToVerify, int, bool) {
	top := proc.topLevel()
	if top == 0 {
		return aggToVerify{}, 0, false
	}
	if windowSize <= 0 {
		windowSize = 1
	}
	for i := 0; i < top; i++ {
		l := ((proc.lastLevelVerified + i) % top) + 1
		lv := proc.levels[l]
		if lv.status == StatusClosed || len(lv.toVerifyAgg) == 0 {
			continue
		}

		considered := lv.toVerifyAgg
		if len(considered) > windowSize {
			considered = considered[:windowSize]
		}

		var best *aggToVerify
		bestScore := 0
		for idx := range considered {
			cand := considered[idx]
			if blacklist.Test(uint(cand.from)) {
				continue
			}
			score := int(cand.att.Who.Difference(proc.outgoing.Who).Count())
			if best == nil || score > bestScore {
				c := cand
				best = &c
				bestScore = score
			}
		}
		lv.toVerifyAgg = lv.toVerifyAgg[len(considered):]
		if best != nil && bestScore > 0 {
			return *best, l, true
		}
	}
	return aggToVerify{}, 0, false
}

// updateVerifiedSignatures applies (or rejects) a verified contribution
// after its simulated pairing delay, adapting the window size and
// blacklist accordingly.
func (p *Protocol) updateVerifiedSignatures(id dess.NodeID, proc *AggregationProcess, level int, entry aggToVerify) {
	st := p.states[id]
	lv := proc.levels[level]

	if p.Faulty != nil && p.Faulty(entry.from, proc.height, level) {
		st.blacklist.Set(uint(entry.from))
		st.curWindowsSize = max(1, st.curWindowsSize/4)
		return
	}

	lv.incoming[entry.att.Hash] = lv.incoming[entry.att.Hash].merge(entry.att)
	lv.incomingUnion.InPlaceUnion(entry.att.Who)
	lv.checkComplete()

	st.curWindowsSize = min(128, st.curWindowsSize*2)

	proc.recomputeOutgoing(id, len(p.states))
	p.checkProcessDone(id, proc)
}

func (p *Protocol) checkProcessDone(id dess.NodeID, proc *AggregationProcess) {
	n := len(p.states)
	if proc.outgoingCardinality < n {
		return
	}
	proc.done = true
	st := p.states[id]
	if !st.done {
		st.done = true
		p.net.Node(id).MarkDone(p.net.Time())
	}
}

// onNewAgg handles an incoming SendAggregation delivery: drops it if
// the target process is unknown, updates finishedPeers and the
// reception rank, and enqueues it for verification if the level is
// still open.
func (p *Protocol) onNewAgg(to, from dess.NodeID, height, level int, levelFinished bool, att *Attestation) {
	st := p.states[to]
	var proc *AggregationProcess
	for _, candidate := range st.processes {
		if candidate.height == height {
			proc = candidate
			break
		}
	}
	if proc == nil {
		return
	}
	if level < 1 || level > proc.topLevel() {
		return
	}
	lv := proc.levels[level]

	if levelFinished {
		lv.finishedPeers.Set(uint(from))
	}
	proc.bumpReceptionRank(from, len(p.states))
	if lv.status != StatusOpen {
		return
	}
	lv.addContribution(from, att)
}
