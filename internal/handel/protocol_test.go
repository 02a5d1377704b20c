package handel

import (
	"math"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/require"

	"github.com/jabolina/go-dess"
)

// TestProtocol_FullAggregationReachesEveryone mirrors S4: with no
// faults, every node's top-level outgoing cardinality reaches the full
// population before the run's time budget runs out.
func TestProtocol_FullAggregationReachesEveryone(t *testing.T) {
	params := DefaultParams()
	params.NodeCount = 16
	params.PairingTime = 20
	params.ConnectionCount = 6

	proto := NewProtocol(params)
	require.NoError(t, proto.Init())
	proto.net.RunMs(30000)

	for i := 0; i < params.NodeCount; i++ {
		st := proto.states[i]
		require.NotEmpty(t, st.processes, "node %d started no aggregation process", i)
		require.Equal(t, params.NodeCount, st.processes[0].outgoingCardinality)
	}
}

// TestProtocol_FaultInjectionBlacklistsAndShrinksWindow mirrors S5: a
// verification failure blacklists the sender and quarters the window.
func TestProtocol_FaultInjectionBlacklistsAndShrinksWindow(t *testing.T) {
	params := DefaultParams()
	params.NodeCount = 4
	params.PairingTime = 10

	faultySender := dess.NodeID(2)
	proto := NewProtocol(params)
	proto.Faulty = func(from dess.NodeID, _, _ int) bool { return from == faultySender }
	require.NoError(t, proto.Init())

	st := proto.states[0]
	st.curWindowsSize = 16

	proc := newAggregationProcess(1, 0, params.NodeCount, proto.net.Time(), 1000)
	entry := aggToVerify{from: faultySender, level: 1, att: ownAttestation(1, faultySender, params.NodeCount)}
	proto.updateVerifiedSignatures(0, proc, 1, entry)

	require.True(t, st.blacklist.Test(uint(faultySender)))
	require.Equal(t, 4, st.curWindowsSize)
}

func TestAggregationProcess_ReceptionRankSaturatesWithoutOverflow(t *testing.T) {
	proc := newAggregationProcess(1, 0, 4, 0, 1000)
	proc.receptionRanks[dess.NodeID(1)] = math.MaxInt - 3
	proc.bumpReceptionRank(dess.NodeID(1), 10)
	require.Equal(t, math.MaxInt, proc.receptionRanks[dess.NodeID(1)])
	require.GreaterOrEqual(t, proc.receptionRanks[dess.NodeID(1)], 0)
}

func TestBestToVerify_SkipsBlacklistedSenders(t *testing.T) {
	const n = 4
	proc := newAggregationProcess(1, 0, n, 0, 1000)
	lv := proc.levels[1]

	blacklisted := dess.NodeID(1)
	blacklist := bitset.New(uint(n))
	blacklist.Set(uint(blacklisted))

	good := aggToVerify{from: 2, level: 1, att: ownAttestation(1, 2, n)}
	bad := aggToVerify{from: blacklisted, level: 1, att: ownAttestation(1, blacklisted, n)}
	lv.toVerifyAgg = []aggToVerify{bad, good}

	entry, level, ok := bestToVerify(proc, blacklist, 16)
	require.True(t, ok)
	require.Equal(t, 1, level)
	require.Equal(t, dess.NodeID(2), entry.from)
}

// TestBestToVerify_WindowLimitsCandidatePool checks that shrinking the
// window excludes later-queued entries from consideration entirely,
// not just from future emission.
func TestBestToVerify_WindowLimitsCandidatePool(t *testing.T) {
	const n = 4
	proc := newAggregationProcess(1, 0, n, 0, 1000)
	lv := proc.levels[1]
	blacklist := bitset.New(uint(n))

	outOfWindow := aggToVerify{from: 2, level: 1, att: ownAttestation(1, 2, n)}
	inWindow := aggToVerify{from: 1, level: 1, att: ownAttestation(1, 1, n)}
	lv.toVerifyAgg = []aggToVerify{inWindow, outOfWindow}

	entry, _, ok := bestToVerify(proc, blacklist, 1)
	require.True(t, ok)
	require.Equal(t, dess.NodeID(1), entry.from)
}
