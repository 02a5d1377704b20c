package handel

import (
	"math"

	"github.com/bits-and-blooms/bitset"

	"github.com/jabolina/go-dess"
)

type levelStatus int

const (
	// StatusOpen accepts contributions and emits its outgoing aggregate.
	StatusOpen levelStatus = iota
	// StatusIncomingComplete no longer accepts contributions but keeps
	// emitting, now with levelFinished set, until it has sent at least once.
	StatusIncomingComplete
	// StatusClosed has sent levelFinished and stops emitting entirely.
	StatusClosed
)

// aggToVerify is one queued, unverified contribution awaiting the
// pairing-cost simulation.
type aggToVerify struct {
	from  dess.NodeID
	level int
	att   *Attestation
}

type levelState struct {
	index int
	peers []dess.NodeID

	status levelStatus

	incoming      map[string]*Attestation
	incomingUnion *bitset.BitSet
	theoreticalFull *bitset.BitSet

	receivedPeers *bitset.BitSet
	finishedPeers *bitset.BitSet

	toVerifyAgg []aggToVerify

	outgoing            *Attestation
	outgoingCardinality int

	cursor int
}

func newLevelState(index int, peers []dess.NodeID, n int) *levelState {
	full := bitset.New(uint(n))
	for _, p := range peers {
		full.Set(uint(p))
	}
	return &levelState{
		index:           index,
		peers:           peers,
		incoming:        make(map[string]*Attestation),
		incomingUnion:   bitset.New(uint(n)),
		theoreticalFull: full,
		receivedPeers:   bitset.New(uint(n)),
		finishedPeers:   bitset.New(uint(n)),
	}
}

func (lv *levelState) checkComplete() {
	if lv.status == StatusOpen && len(lv.peers) > 0 && lv.incomingUnion.Equal(lv.theoreticalFull) {
		lv.status = StatusIncomingComplete
	}
}

// addContribution queues att for verification at this level, deduping
// one pending contribution per sender; returns false if the sender
// already has a pending or merged contribution at this level.
func (lv *levelState) addContribution(from dess.NodeID, att *Attestation) bool {
	if lv.receivedPeers.Test(uint(from)) {
		return false
	}
	lv.receivedPeers.Set(uint(from))
	if lv.status != StatusClosed {
		lv.toVerifyAgg = append(lv.toVerifyAgg, aggToVerify{from: from, level: lv.index, att: att})
	}
	return true
}

// AggregationProcess is the per-height state machine coordinating
// level-by-level aggregation of one Attestation.
type AggregationProcess struct {
	height  int
	self    dess.NodeID
	startAt dess.Time
	endAt   dess.Time

	levels []*levelState // 1-indexed; levels[0] is unused

	receptionRanks map[dess.NodeID]int

	lastLevelVerified int

	outgoing            *Attestation
	outgoingCardinality int

	done bool
}

func newAggregationProcess(height int, self dess.NodeID, n int, now, duration dess.Time) *AggregationProcess {
	top := maxLevel(n)
	levels := make([]*levelState, top+1)
	for l := 1; l <= top; l++ {
		levels[l] = newLevelState(l, peersAtLevel(self, l, n), n)
	}
	own := ownAttestation(height, self, n)
	return &AggregationProcess{
		height:              height,
		self:                self,
		startAt:             now,
		endAt:               now + duration,
		levels:              levels,
		receptionRanks:      make(map[dess.NodeID]int),
		outgoing:            own,
		outgoingCardinality: 1,
	}
}

func (p *AggregationProcess) topLevel() int {
	return len(p.levels) - 1
}

// recomputeOutgoing walks levels bottom-up: each level's outgoing is
// the merge of every level strictly below it (plus the node's own
// contribution), then folds that level's own incoming in before moving
// to the next.
func (p *AggregationProcess) recomputeOutgoing(self dess.NodeID, n int) {
	merged := ownAttestation(p.height, self, n)
	for l := 1; l <= p.topLevel(); l++ {
		lv := p.levels[l]
		lv.outgoing = merged.clone()
		lv.outgoingCardinality = merged.cardinality()
		for _, att := range lv.incoming {
			merged = merged.merge(att)
		}
	}
	p.outgoing = merged
	p.outgoingCardinality = merged.cardinality()
}

// bumpReceptionRank saturates at math.MaxInt rather than wrapping.
func (p *AggregationProcess) bumpReceptionRank(from dess.NodeID, n int) {
	cur := p.receptionRanks[from]
	if cur > math.MaxInt-n {
		p.receptionRanks[from] = math.MaxInt
		return
	}
	p.receptionRanks[from] = cur + n
}
