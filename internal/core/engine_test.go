package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/go-dess/internal/definition"
)

type constLatency struct {
	ms int64
}

func (c constLatency) GetLatency(_, _ NodeID, _ int64) int64 {
	return c.ms
}

func newTestNetwork(t *testing.T, n int, latency LatencyModel) *Network {
	t.Helper()
	net := NewNetwork(latency, 1, definition.NewDefaultLogger("test"))
	for i := 0; i < n; i++ {
		net.AddNode(Position{}, 1.0)
	}
	return net
}

func TestEngine_TimeMonotonic(t *testing.T) {
	net := newTestNetwork(t, 2, constLatency{ms: 5})

	var observed []Time
	for i := 0; i < 5; i++ {
		net.RunMs(100)
		observed = append(observed, net.Time())
	}

	for i := 1; i < len(observed); i++ {
		require.GreaterOrEqual(t, observed[i], observed[i-1])
	}
	require.Equal(t, Time(500), net.Time())
}

func TestEngine_TasksRunAtScheduledTime(t *testing.T) {
	net := newTestNetwork(t, 1, constLatency{ms: 1})

	var firedAt Time
	net.RegisterTask(func() { firedAt = net.Time() }, Time(42), 0)
	net.RunMs(100)

	require.Equal(t, Time(42), firedAt)
}

func TestEngine_ConditionalTaskHonorsStartAndContinue(t *testing.T) {
	net := newTestNetwork(t, 1, constLatency{ms: 1})

	start := false
	keepGoing := true
	fires := 0
	net.RegisterConditionalTask(func() { fires++ }, Time(10), Time(10), 0,
		func() bool { return start },
		func() bool { return keepGoing },
	)

	net.RunMs(25) // due at 10, 20 -- both skipped, start still false
	require.Equal(t, 0, fires)

	start = true
	net.RunMs(10) // due at 30
	require.Equal(t, 1, fires)

	keepGoing = false
	net.RunMs(50) // should never fire again
	require.Equal(t, 1, fires)
}

func TestEngine_DeadNodeTaskNeverFires(t *testing.T) {
	net := newTestNetwork(t, 1, constLatency{ms: 1})
	net.Node(0).Kill()

	fired := false
	net.RegisterTask(func() { fired = true }, Time(5), 0)
	net.RunMs(50)

	require.False(t, fired)
}
