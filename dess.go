// Package dess is the root of the discrete-event signature-aggregation
// simulator: it wires a Network and its Engine into a single Simulator
// object, the unit of isolation a Protocol plugs into.
package dess

import (
	"github.com/google/uuid"

	"github.com/jabolina/go-dess/internal/core"
	"github.com/jabolina/go-dess/internal/definition"
)

// Re-exported core types: a Protocol built on top of dess works entirely
// through this package, never reaching into internal/core directly.
type (
	NodeID       = core.NodeID
	Position     = core.Position
	Time         = core.Time
	Node         = core.Node
	Stats        = core.Stats
	Message      = core.Message
	Network      = core.Network
	LatencyModel = core.LatencyModel
	NodeBuilder  = core.NodeBuilder
)

var (
	NewNetwork          = core.NewNetwork
	NewLatencyRegistry  = core.NewLatencyRegistry
	NewBuilderRegistry  = core.NewBuilderRegistry
	ErrUnknownLatency   = core.ErrUnknownLatencyModel
	ErrUnknownBuilder   = core.ErrUnknownNodeBuilder
)

// Protocol is the plug-in surface external collaborators implement: Init
// populates the network and registers tasks, Network exposes the
// resulting network for running and stats collection.
type Protocol interface {
	Init() error
	Network() *Network
}

// Simulator owns exactly one Network (and transitively, one Engine). Its
// currentTime and bucket state never leak outside it, so a process can
// run many Simulators concurrently, each deterministic given its own
// seed — only the Go runtime's usual goroutine-safety rules apply across
// Simulators, never within one.
type Simulator struct {
	// RunID identifies this simulator instance in logs; useful when
	// several Simulators run concurrently in the same process.
	RunID string

	Log definition.Logger

	protocol Protocol
	network  *Network
}

// NewSimulator builds a Simulator around protocol, calling Init
// immediately. If log is nil, a default logger prefixed with a fresh
// run id is created.
func NewSimulator(protocol Protocol, log definition.Logger) (*Simulator, error) {
	runID := uuid.NewString()
	if log == nil {
		log = definition.NewDefaultLogger(runID)
	}

	if err := protocol.Init(); err != nil {
		return nil, err
	}

	return &Simulator{
		RunID:    runID,
		Log:      log,
		protocol: protocol,
		network:  protocol.Network(),
	}, nil
}

// RunMs advances simulated time by n milliseconds.
func (s *Simulator) RunMs(n int64) {
	s.network.RunMs(n)
}

// Time is the simulator's current simulated time.
func (s *Simulator) Time() Time {
	return s.network.Time()
}

// Snapshot returns per-node stats for external collection.
func (s *Simulator) Snapshot() []Stats {
	return s.network.Snapshot()
}

// Network exposes the underlying network, e.g. for a Protocol-specific
// accessor that needs node state beyond Stats.
func (s *Simulator) Network() *Network {
	return s.network
}
