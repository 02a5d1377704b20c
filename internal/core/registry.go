package core

import "fmt"

// NodeBuilder produces a Position for the nth node of a run. Registered
// under a string name so a Protocol's parameter record can select one by
// name.
type NodeBuilder func(index, total int) Position

var (
	ErrUnknownLatencyModel = fmt.Errorf("dess: unknown latency model")
	ErrUnknownNodeBuilder  = fmt.Errorf("dess: unknown node builder")
)

// LatencyRegistry resolves a LatencyModel by name. Network takes a
// Positions accessor as a closure, so an entry here only needs to
// remember how to build the model shape, not a fully wired instance.
type LatencyRegistry struct {
	models map[string]func(positions func(NodeID) Position) LatencyModel
}

func NewLatencyRegistry() *LatencyRegistry {
	r := &LatencyRegistry{models: make(map[string]func(func(NodeID) Position) LatencyModel)}
	r.Register("NetworkLatencyByDistance", func(positions func(NodeID) Position) LatencyModel {
		return NetworkLatencyByDistance{Positions: positions}
	})
	return r
}

func (r *LatencyRegistry) Register(name string, build func(positions func(NodeID) Position) LatencyModel) {
	r.models[name] = build
}

func (r *LatencyRegistry) Resolve(name string, positions func(NodeID) Position) (LatencyModel, error) {
	build, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLatencyModel, name)
	}
	return build(positions), nil
}

// BuilderRegistry resolves a NodeBuilder by name.
type BuilderRegistry struct {
	builders map[string]NodeBuilder
}

func NewBuilderRegistry() *BuilderRegistry {
	r := &BuilderRegistry{builders: make(map[string]NodeBuilder)}
	r.Register("UniformRandom", uniformRandomBuilder)
	r.Register("Grid", gridBuilder)
	return r
}

func (r *BuilderRegistry) Register(name string, builder NodeBuilder) {
	r.builders[name] = builder
}

func (r *BuilderRegistry) Resolve(name string) (NodeBuilder, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeBuilder, name)
	}
	return builder, nil
}

// uniformRandomBuilder spreads nodes pseudo-randomly across the globe,
// deterministically in index so two runs with the same total agree.
func uniformRandomBuilder(index, total int) Position {
	lat := float64(pseudoRandom(NodeID(index), uint64(total))%180) - 90
	long := float64(pseudoRandom(NodeID(index), uint64(total)^(1<<63))%360) - 180
	return Position{Lat: lat, Long: long}
}

// gridBuilder places nodes on an evenly spaced lat/long grid.
func gridBuilder(index, total int) Position {
	if total <= 0 {
		total = 1
	}
	cols := 1
	for cols*cols < total {
		cols++
	}
	row := index / cols
	col := index % cols
	latStep := 180.0 / float64(cols)
	longStep := 360.0 / float64(cols)
	return Position{
		Lat:  -90 + latStep*float64(row),
		Long: -180 + longStep*float64(col),
	}
}
