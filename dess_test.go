package dess_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jabolina/go-dess"
	"github.com/jabolina/go-dess/internal/p2psig"
)

// echoProtocol is the smallest Protocol that satisfies the interface,
// used to exercise Simulator plumbing without a real domain protocol.
type echoProtocol struct {
	net *dess.Network
}

func (p *echoProtocol) Init() error {
	p.net = dess.NewNetwork(fixedLatency{}, 1, nil)
	p.net.AddNode(dess.Position{}, 1.0)
	p.net.AddNode(dess.Position{}, 1.0)
	return nil
}

func (p *echoProtocol) Network() *dess.Network {
	return p.net
}

type fixedLatency struct{}

func (fixedLatency) GetLatency(_, _ dess.NodeID, _ int64) int64 { return 5 }

func TestSimulator_BootstrapsAndAssignsRunID(t *testing.T) {
	sim, err := dess.NewSimulator(&echoProtocol{}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, sim.RunID)

	sim.RunMs(100)
	require.Equal(t, dess.Time(100), sim.Time())
	require.Len(t, sim.Snapshot(), 2)
}

// TestConcurrentSimulators_AreIsolated runs several independent
// Simulators in parallel goroutines and checks that each one's final
// simulated time is exactly what its own RunMs advanced it to, with
// goleak confirming no stray goroutine survives the test.
func TestConcurrentSimulators_AreIsolated(t *testing.T) {
	defer goleak.VerifyNone(t)

	const runs = 6
	results := make([]dess.Time, runs)

	var wg sync.WaitGroup
	wg.Add(runs)
	for i := 0; i < runs; i++ {
		i := i
		go func() {
			defer wg.Done()
			params := p2psig.DefaultParams()
			params.SigningNodeCount = 5
			params.Threshold = 5
			params.Seed = int64(i)

			proto := p2psig.NewProtocol(params)
			sim, err := dess.NewSimulator(proto, nil)
			require.NoError(t, err)
			sim.RunMs(5000)
			results[i] = sim.Time()
		}()
	}
	wg.Wait()

	for _, r := range results {
		require.Equal(t, dess.Time(5000), r)
	}
}
