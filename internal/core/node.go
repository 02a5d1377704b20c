package core

// NodeID is a dense non-negative identity assigned at registration; a
// Node's NodeID always equals its index into the owning Network's table.
type NodeID int

// Position is a node's geographic coordinate, used by distance-based
// latency models. Units are degrees.
type Position struct {
	Lat  float64
	Long float64
}

// Time is simulated time, in milliseconds, counted from zero at the start
// of a run.
type Time int64

// Node is a participant in the simulation. It is created once at protocol
// init and destroyed only when the whole Simulator is discarded; nothing
// outside Network mutates a Node's identity fields after registration.
type Node struct {
	NodeID   NodeID
	Position Position

	// SpeedRatio models CPU heterogeneity: protocols scale their own
	// per-node timing (e.g. pairing cost) by this value. 1.0 is baseline.
	SpeedRatio float64

	BytesSent     uint64
	BytesReceived uint64
	MsgSent       uint64
	MsgReceived   uint64

	// DoneAt is set by a protocol when this node reaches its terminal
	// condition (e.g. P2PSignature threshold, Handel top-level complete).
	// Nil means the node has not finished.
	DoneAt *Time

	// alive gates the task scheduler: a dead node's tasks are silently
	// skipped. Distinct from DoneAt, which is a protocol-level
	// "finished successfully" marker, not a liveness fault.
	alive bool
}

// Stats is the read-only snapshot of a Node exposed for external
// collection, per the "allNodes exposes nodes for external stats
// collection" run surface.
type Stats struct {
	NodeID        NodeID
	BytesSent     uint64
	BytesReceived uint64
	MsgSent       uint64
	MsgReceived   uint64
	DoneAt        *Time
}

func newNode(id NodeID, pos Position, speedRatio float64) *Node {
	if speedRatio <= 0 {
		speedRatio = 1.0
	}
	return &Node{
		NodeID:     id,
		Position:   pos,
		SpeedRatio: speedRatio,
		alive:      true,
	}
}

func (n *Node) snapshot() Stats {
	return Stats{
		NodeID:        n.NodeID,
		BytesSent:     n.BytesSent,
		BytesReceived: n.BytesReceived,
		MsgSent:       n.MsgSent,
		MsgReceived:   n.MsgReceived,
		DoneAt:        n.DoneAt,
	}
}

// MarkDone records the node's terminal timestamp if it has not already
// been recorded; later calls are no-ops so the first completion wins.
func (n *Node) MarkDone(at Time) {
	if n.DoneAt == nil {
		t := at
		n.DoneAt = &t
	}
}

// Kill marks the node as dead; the task scheduler silently stops firing
// tasks registered against it from this point on.
func (n *Node) Kill() {
	n.alive = false
}

// Dead reports whether the node has been killed. The task scheduler
// consults this to silently stop driving a node's periodic work.
func (n *Node) Dead() bool {
	return !n.alive
}
