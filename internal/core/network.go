package core

import (
	"math/rand"
	"sort"

	"github.com/jabolina/go-dess/internal/definition"
)

// Network is the node table, peer topology, and send/broadcast surface a
// Protocol drives. It owns the Engine that actually dispatches envelopes
// and tasks; Network.RunMs is the only entry point external callers use
// to advance simulated time.
type Network struct {
	nodes []*Node
	peers map[NodeID][]NodeID

	engine  *Engine
	latency LatencyModel
	rng     *rand.Rand
	log     definition.Logger
}

// NewNetwork creates an empty network. latency is consulted by every
// multi-destination envelope on recompute and by Send for sorting, so it
// must be deterministic in (from, to, jitter). seed drives both the peer
// topology construction and the per-send random seed draws; the same
// seed reproduces the same run end to end.
func NewNetwork(latency LatencyModel, seed int64, log definition.Logger) *Network {
	if log == nil {
		log = definition.NewDefaultLogger("net")
	}
	return &Network{
		peers:   make(map[NodeID][]NodeID),
		engine:  newEngine(),
		latency: latency,
		rng:     rand.New(rand.NewSource(seed)),
		log:     log,
	}
}

// AddNode registers a new node, assigning it the next dense id.
func (net *Network) AddNode(pos Position, speedRatio float64) NodeID {
	id := NodeID(len(net.nodes))
	net.nodes = append(net.nodes, newNode(id, pos, speedRatio))
	return id
}

// Node looks up a registered node by id. Panics on an out-of-range id:
// every NodeID handed to Network originated from AddNode or a peer list
// built from it, so an invalid id is a programmer error.
func (net *Network) Node(id NodeID) *Node {
	if int(id) < 0 || int(id) >= len(net.nodes) {
		panic("dess: unknown node id")
	}
	return net.nodes[id]
}

// NumNodes is the number of registered nodes.
func (net *Network) NumNodes() int {
	return len(net.nodes)
}

// Rand exposes the network's own seeded generator, so a Protocol's
// random choices (such as which San Fermin targets to pick) are
// reproducible from the same top-level seed rather
// than threading a second, independent source through the run.
func (net *Network) Rand() *rand.Rand {
	return net.rng
}

// Logger exposes the network's logger so a Protocol can log through the
// same sink without being handed its own.
func (net *Network) Logger() definition.Logger {
	return net.log
}

// Time is the network's current simulated time.
func (net *Network) Time() Time {
	return net.engine.Now()
}

// Snapshot returns a Stats record per node, for external stats
// collection.
func (net *Network) Snapshot() []Stats {
	out := make([]Stats, len(net.nodes))
	for i, n := range net.nodes {
		out[i] = n.snapshot()
	}
	return out
}

// Peers returns node id's peer list. Empty until SetPeers has run.
func (net *Network) Peers(id NodeID) []NodeID {
	return net.peers[id]
}

// SetPeers materializes a symmetric, random k-regular-ish peer graph
// with connectionCount as the target out-degree per node, using the
// network's seeded RNG and forbidding self-edges.
func (net *Network) SetPeers(connectionCount int) {
	n := len(net.nodes)
	if connectionCount >= n {
		connectionCount = n - 1
	}
	if connectionCount < 0 {
		connectionCount = 0
	}

	have := func(a, b NodeID) bool {
		for _, p := range net.peers[a] {
			if p == b {
				return true
			}
		}
		return false
	}

	connect := func(a, b NodeID) {
		if a == b || have(a, b) {
			return
		}
		net.peers[a] = append(net.peers[a], b)
		net.peers[b] = append(net.peers[b], a)
	}

	for i := 0; i < n; i++ {
		id := NodeID(i)
		attempts := 0
		for len(net.peers[id]) < connectionCount && attempts < connectionCount*20+20 {
			attempts++
			other := NodeID(net.rng.Intn(n))
			connect(id, other)
		}
	}
}

// drawSeed returns a fresh random seed for one logical send, used to
// derive every destination's jitter for that send.
func (net *Network) drawSeed() uint64 {
	return net.rng.Uint64()
}

// Send enqueues one logical broadcast to one or many destinations. Every
// destination of a single send observes the message in ascending
// arrival-time order: destinations are sorted before
// the envelope is built.
func (net *Network) Send(message Message, sendTime Time, from NodeID, dests []NodeID) {
	if len(dests) == 0 {
		return
	}

	seed := net.drawSeed()
	type timedDest struct {
		id      NodeID
		arrival Time
	}
	timed := make([]timedDest, len(dests))
	for i, d := range dests {
		jitter := pseudoRandom(d, seed)
		lat := net.latency.GetLatency(from, d, jitter)
		timed[i] = timedDest{id: d, arrival: sendTime + Time(lat)}
	}
	// Stable sort: ties keep the caller's original destination order,
	// which is all a protocol is allowed to rely on.
	sort.SliceStable(timed, func(i, j int) bool { return timed[i].arrival < timed[j].arrival })

	sender := net.Node(from)
	size := message.Size()
	for range dests {
		sender.BytesSent += uint64(size)
		sender.MsgSent++
	}

	if len(timed) == 1 {
		env := newSingleEnvelope(message, from, timed[0].id, timed[0].arrival)
		net.engine.insertEnvelope(env, timed[0].arrival)
		return
	}

	sortedIds := make([]NodeID, len(timed))
	for i, td := range timed {
		sortedIds[i] = td.id
	}
	env := newMultiEnvelope(message, from, sendTime, seed, sortedIds)
	net.engine.insertEnvelope(env, timed[0].arrival)
}

// Broadcast is Send to every current peer of from.
func (net *Network) Broadcast(message Message, sendTime Time, from NodeID) {
	net.Send(message, sendTime, from, net.peers[from])
}

// deliver is the Engine's callback for a single destination delivery: it
// updates the receiver's counters and invokes the message's Action hook.
func (net *Network) deliver(env envelope, to NodeID) {
	receiver := net.Node(to)
	msg := env.message()
	receiver.BytesReceived += uint64(msg.Size())
	receiver.MsgReceived++
	msg.Action(net, env.fromId(), to)
}

// RegisterTask fires fn once at `at`, unless the node has been killed by
// the time it comes due.
func (net *Network) RegisterTask(fn func(), at Time, node NodeID) {
	n := net.Node(node)
	net.engine.registerTask(fn, at, func() bool { return !n.Dead() })
}

// RegisterConditionalTask fires fn every periodMs starting at firstAt,
// gated per-period on startCond and continueCond.
func (net *Network) RegisterConditionalTask(fn func(), firstAt, periodMs Time, node NodeID, startCond, continueCond func() bool) {
	n := net.Node(node)
	net.engine.registerConditionalTask(fn, firstAt, periodMs, func() bool { return !n.Dead() }, startCond, continueCond)
}

// RunMs advances simulated time by n milliseconds, draining every
// envelope and task due along the way.
func (net *Network) RunMs(n int64) {
	net.engine.runMs(n, net)
}
