package core

// envelope is the simulator's internal carrier of a Message plus routing
// metadata to one or many destinations. It is a two-case tagged union —
// singleEnvelope and multiEnvelope — dispatched on by the Engine through
// this shared interface rather than through an inheritance hierarchy.
type envelope interface {
	// nextDestId is the id of the recipient at the current cursor.
	nextDestId() NodeID

	// nextArrivalTime is the arrival time of the destination at the
	// current cursor. For a single-destination envelope this is the
	// value stored at construction; for a multi-destination envelope it
	// is recomputed from sendTime, the latency model, and the seeded
	// jitter of nextDestId(), never stored.
	nextArrivalTime(net *Network) Time

	// markRead advances the cursor. No-op for single-destination.
	markRead()

	// hasNextReader is true while the cursor still points at a live
	// destination.
	hasNextReader() bool

	// fromId is the sender of this logical broadcast.
	fromId() NodeID

	// message is the shared payload.
	message() Message

	// same-time chain, used by the Engine's bucket representation.
	nextSameTime() envelope
	setNextSameTime(e envelope)
}

// singleEnvelope carries a message to exactly one destination with a
// fully resolved arrival time.
type singleEnvelope struct {
	msg     Message
	from    NodeID
	to      NodeID
	arrival Time
	read    bool
	chain   envelope
}

func newSingleEnvelope(msg Message, from, to NodeID, arrival Time) *singleEnvelope {
	return &singleEnvelope{msg: msg, from: from, to: to, arrival: arrival}
}

func (e *singleEnvelope) nextDestId() NodeID                    { return e.to }
func (e *singleEnvelope) nextArrivalTime(_ *Network) Time       { return e.arrival }
func (e *singleEnvelope) markRead()                             { e.read = true }
func (e *singleEnvelope) hasNextReader() bool                   { return !e.read }
func (e *singleEnvelope) fromId() NodeID                        { return e.from }
func (e *singleEnvelope) message() Message                      { return e.msg }
func (e *singleEnvelope) nextSameTime() envelope                { return e.chain }
func (e *singleEnvelope) setNextSameTime(nx envelope)           { e.chain = nx }

// multiEnvelope carries a message to many destinations. Rather than
// storing an O(N) arrival-time array it stores (sendTime, randomSeed,
// destIds) and recomputes the next arrival time on demand — envelopes
// dominate working-set memory in large runs, so this trades CPU for
// memory. destIds must already be sorted in ascending arrival-time order
// by the caller (Network.Send); the times themselves are discarded.
type multiEnvelope struct {
	msg      Message
	from     NodeID
	sendTime Time
	seed     uint64
	destIds  []NodeID
	curPos   int
	chain    envelope
}

func newMultiEnvelope(msg Message, from NodeID, sendTime Time, seed uint64, sortedDestIds []NodeID) *multiEnvelope {
	return &multiEnvelope{
		msg:      msg,
		from:     from,
		sendTime: sendTime,
		seed:     seed,
		destIds:  sortedDestIds,
	}
}

func (e *multiEnvelope) nextDestId() NodeID {
	return e.destIds[e.curPos]
}

func (e *multiEnvelope) nextArrivalTime(net *Network) Time {
	dest := e.nextDestId()
	jitter := pseudoRandom(dest, e.seed)
	latency := net.latency.GetLatency(e.from, dest, jitter)
	return e.sendTime + Time(latency)
}

func (e *multiEnvelope) markRead() {
	e.curPos++
}

func (e *multiEnvelope) hasNextReader() bool {
	return e.curPos < len(e.destIds)
}

func (e *multiEnvelope) fromId() NodeID             { return e.from }
func (e *multiEnvelope) message() Message           { return e.msg }
func (e *multiEnvelope) nextSameTime() envelope     { return e.chain }
func (e *multiEnvelope) setNextSameTime(nx envelope) { e.chain = nx }
