package p2psig

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/require"

	"github.com/jabolina/go-dess"
)

// TestProtocol_AllSignersReachThreshold mirrors the S1 shape at a
// smaller scale for test speed: every signing node must reach done
// well before the run's time budget, and no relay ever does (there are
// none here).
func TestProtocol_AllSignersReachThreshold(t *testing.T) {
	params := DefaultParams()
	params.SigningNodeCount = 20
	params.RelayingNodeCount = 0
	params.Threshold = 20
	params.ConnectionCount = 6
	params.PairingTime = 20
	params.SigsSendPeriod = 10
	params.SendSigsStrategy = StrategyDiff
	params.Seed = 0

	proto := NewProtocol(params)
	require.NoError(t, proto.Init())
	proto.net.RunMs(20000)

	snapshot := proto.net.Snapshot()
	for _, s := range snapshot {
		require.NotNil(t, s.DoneAt, "node %d never reached threshold", s.NodeID)
	}
}

// TestProtocol_RelaysNeverContributeOwnSignature mirrors S2: no relay
// ever has its own bit set in its verified set, while every signing
// node eventually reaches the (sub-total) threshold with San Fermin
// acceleration enabled.
func TestProtocol_RelaysNeverContributeOwnSignature(t *testing.T) {
	params := DefaultParams()
	params.SigningNodeCount = 20
	params.RelayingNodeCount = 5
	params.Threshold = 19
	params.ConnectionCount = 6
	params.PairingTime = 20
	params.SigsSendPeriod = 10
	params.SanFermin = true
	params.Seed = 1

	proto := NewProtocol(params)
	require.NoError(t, proto.Init())
	proto.net.RunMs(30000)

	for id := dess.NodeID(0); int(id) < params.SigningNodeCount; id++ {
		require.GreaterOrEqual(t, int(proto.states[id].verified.Count()), params.Threshold)
	}
	for id := dess.NodeID(params.SigningNodeCount); int(id) < params.totalNodes(); id++ {
		require.False(t, proto.states[id].verified.Test(uint(id)))
	}
}

// TestSendSigsPayload_CompressedDiffPicksSmaller checks that
// StrategyCompressedDiff doesn't just alias StrategyDiff: here the full
// set compresses to one aggregate while the diff fragments into two,
// so the full set must be what's sent.
func TestSendSigsPayload_CompressedDiffPicksSmaller(t *testing.T) {
	params := DefaultParams()
	params.SendSigsStrategy = StrategyCompressedDiff
	params.SigRange = 4
	params.SigningNodeCount = 8
	proto := NewProtocol(params)

	st := newNodeState(8, false)
	for i := uint(0); i < 8; i++ {
		st.verified.Set(i)
	}
	target := dess.NodeID(1)
	known := bitset.New(8)
	known.Set(0)
	st.peers[target] = known

	payload := proto.sendSigsPayload(st, target)
	require.Equal(t, uint(8), payload.Count())
}

func TestProtocol_UnknownNodeBuilderFailsInit(t *testing.T) {
	params := DefaultParams()
	params.SigningNodeCount = 4
	params.NodeBuilderName = "does-not-exist"

	proto := NewProtocol(params)
	require.Error(t, proto.Init())
}
