package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLatencyRegistry_UnknownNameErrors(t *testing.T) {
	reg := NewLatencyRegistry()
	_, err := reg.Resolve("does-not-exist", func(NodeID) Position { return Position{} })
	require.True(t, errors.Is(err, ErrUnknownLatencyModel))
}

func TestBuilderRegistry_UnknownNameErrors(t *testing.T) {
	reg := NewBuilderRegistry()
	_, err := reg.Resolve("does-not-exist")
	require.True(t, errors.Is(err, ErrUnknownNodeBuilder))
}

func TestBuilderRegistry_CustomRegistration(t *testing.T) {
	reg := NewBuilderRegistry()
	reg.Register("fixed", func(int, int) Position { return Position{Lat: 1, Long: 2} })

	builder, err := reg.Resolve("fixed")
	require.NoError(t, err)
	require.Equal(t, Position{Lat: 1, Long: 2}, builder(0, 1))
}

func TestUniformRandomBuilder_DeterministicAcrossCalls(t *testing.T) {
	a := uniformRandomBuilder(3, 10)
	b := uniformRandomBuilder(3, 10)
	require.Equal(t, a, b)
}

func TestGridBuilder_SpreadsNodesAcrossDistinctPositions(t *testing.T) {
	seen := make(map[Position]bool)
	for i := 0; i < 9; i++ {
		seen[gridBuilder(i, 9)] = true
	}
	require.Len(t, seen, 9)
}
