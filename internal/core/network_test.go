package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/go-dess/internal/definition"
)

// recordingMessage stores the simulated time at which it was delivered,
// so a test can read back observed arrival order across destinations.
type recordingMessage struct {
	size     int
	arrivals *[]Time
}

func (m recordingMessage) Size() int { return m.size }
func (m recordingMessage) Action(net *Network, _, _ NodeID) {
	*m.arrivals = append(*m.arrivals, net.Time())
}

// byDestLatency gives each destination id a distinct, deterministic
// latency so a single send's destinations arrive at different times.
type byDestLatency struct{}

func (byDestLatency) GetLatency(_, to NodeID, _ int64) int64 {
	return int64(to)*10 + 1
}

func TestNetwork_SendDeliversInAscendingArrivalOrder(t *testing.T) {
	net := NewNetwork(byDestLatency{}, 1, definition.NewDefaultLogger("test"))
	for i := 0; i < 5; i++ {
		net.AddNode(Position{}, 1.0)
	}

	var arrivals []Time
	net.Send(recordingMessage{size: 1, arrivals: &arrivals}, 0, 0, []NodeID{4, 1, 3})
	net.RunMs(1000)

	require.Len(t, arrivals, 3)
	for i := 1; i < len(arrivals); i++ {
		require.GreaterOrEqual(t, arrivals[i], arrivals[i-1])
	}
}

func TestNetwork_CountersUpdateOnSendAndDeliver(t *testing.T) {
	net := NewNetwork(constLatency{ms: 5}, 1, definition.NewDefaultLogger("test"))
	for i := 0; i < 3; i++ {
		net.AddNode(Position{}, 1.0)
	}

	var arrivals []Time
	msg := recordingMessage{size: 7, arrivals: &arrivals}
	net.Send(msg, 0, 0, []NodeID{1, 2})
	net.RunMs(100)

	sender := net.Node(0)
	require.Equal(t, uint64(2), sender.MsgSent)
	require.Equal(t, uint64(14), sender.BytesSent)

	for _, id := range []NodeID{1, 2} {
		receiver := net.Node(id)
		require.Equal(t, uint64(1), receiver.MsgReceived)
		require.Equal(t, uint64(7), receiver.BytesReceived)
	}
}

func TestNetwork_BroadcastUsesPeerList(t *testing.T) {
	net := NewNetwork(constLatency{ms: 2}, 3, definition.NewDefaultLogger("test"))
	for i := 0; i < 4; i++ {
		net.AddNode(Position{}, 1.0)
	}
	net.SetPeers(2)

	var arrivals []Time
	msg := recordingMessage{size: 1, arrivals: &arrivals}
	net.Broadcast(msg, 0, 0)
	net.RunMs(100)

	require.Len(t, arrivals, len(net.Peers(0)))
}

func TestNetwork_SetPeersIsSymmetric(t *testing.T) {
	net := NewNetwork(constLatency{ms: 1}, 5, definition.NewDefaultLogger("test"))
	for i := 0; i < 8; i++ {
		net.AddNode(Position{}, 1.0)
	}
	net.SetPeers(3)

	for a := NodeID(0); a < 8; a++ {
		for _, b := range net.Peers(a) {
			require.Contains(t, net.Peers(b), a)
		}
	}
}

func TestNetworkLatencyByDistance_PanicsOnSelfQuery(t *testing.T) {
	model := NetworkLatencyByDistance{Positions: func(NodeID) Position { return Position{} }}
	require.Panics(t, func() { model.GetLatency(0, 0, 0) })
}

func TestNetworkLatencyByDistance_Deterministic(t *testing.T) {
	positions := []Position{{Lat: 0, Long: 0}, {Lat: 10, Long: 10}}
	model := NetworkLatencyByDistance{Positions: func(id NodeID) Position { return positions[id] }}

	first := model.GetLatency(0, 1, 99)
	second := model.GetLatency(0, 1, 99)
	require.Equal(t, first, second)
	require.GreaterOrEqual(t, first, int64(1))
}
