package core

import "container/heap"

// Engine dispatches envelopes and tasks in strict simulated-time order.
// It is single-threaded cooperative: every call into it happens from the
// same goroutine that owns the Network, and user code (Message.Action,
// task closures) runs to completion without preemption.
//
// Representation: a map of arrival-time buckets, each a singly-linked
// same-time chain of envelopes via envelope.nextSameTime. A min-heap of
// the distinct pending timestamps lets the engine jump straight to the
// next non-empty bucket instead of stepping through every empty
// millisecond, which matters once an envelope population thins out
// towards the tail of a run.
//
// Tie-break policy: within one bucket, new envelopes are linked in at
// the head (LIFO) — O(1) insertion, as specified. Protocols must not
// depend on delivery order at identical timestamps; actions at the same
// timestamp are considered concurrent.
type Engine struct {
	currentTime Time

	envelopes map[Time]envelope
	tasks     map[Time][]*taskEntry

	pending   timeHeap
	scheduled map[Time]bool

	// net is the owning Network, set on each runMs call so envelope
	// delivery and latency recomputation can reach node state.
	net *Network
}

type taskEntry struct {
	fn     func()
	alive  func() bool
	at     Time
	ended  bool
	period Time
	// startCond/continueCond are nil for a one-shot task.
	startCond    func() bool
	continueCond func() bool
}

func newEngine() *Engine {
	return &Engine{
		envelopes: make(map[Time]envelope),
		tasks:     make(map[Time][]*taskEntry),
		scheduled: make(map[Time]bool),
	}
}

// Now is the engine's current simulated time.
func (e *Engine) Now() Time {
	return e.currentTime
}

func (e *Engine) markScheduled(t Time) {
	if t < e.currentTime {
		panic("dess: scheduled item arrival time is before current time")
	}
	if !e.scheduled[t] {
		e.scheduled[t] = true
		heap.Push(&e.pending, t)
	}
}

func (e *Engine) insertEnvelope(env envelope, at Time) {
	env.setNextSameTime(e.envelopes[at])
	e.envelopes[at] = env
	e.markScheduled(at)
}

func (e *Engine) insertTask(entry *taskEntry) {
	e.tasks[entry.at] = append(e.tasks[entry.at], entry)
	e.markScheduled(entry.at)
}

// registerTask fires fn once at `at`, unless alive() is false when the
// task comes due.
func (e *Engine) registerTask(fn func(), at Time, alive func() bool) {
	e.insertTask(&taskEntry{fn: fn, alive: alive, at: at})
}

// registerConditionalTask fires fn every period starting at firstAt.
// Before each firing: if startCond() is false the period is skipped but
// the task reschedules; if continueCond() is false the task is cancelled
// permanently.
func (e *Engine) registerConditionalTask(fn func(), firstAt, period Time, alive func() bool, startCond, continueCond func() bool) {
	e.insertTask(&taskEntry{
		fn:           fn,
		alive:        alive,
		at:           firstAt,
		period:       period,
		startCond:    startCond,
		continueCond: continueCond,
	})
}

// runTasksAt fires every task due at t, in registration order, then
// reschedules periodic ones.
func (e *Engine) runTasksAt(t Time) {
	due := e.tasks[t]
	delete(e.tasks, t)
	for _, entry := range due {
		if entry.ended {
			continue
		}
		if entry.alive != nil && !entry.alive() {
			// dead node: skip forever, no reschedule.
			continue
		}
		if entry.period == 0 {
			entry.fn()
			continue
		}
		if entry.continueCond != nil && !entry.continueCond() {
			entry.ended = true
			continue
		}
		if entry.startCond == nil || entry.startCond() {
			entry.fn()
		}
		entry.at = t + entry.period
		e.insertTask(entry)
	}
}

// drainBucket processes every envelope chained at t, delivering through
// deliver for each destination in cursor order, reinserting envelopes
// that still have readers once their next arrival time is computed.
func (e *Engine) drainBucket(t Time, deliver func(env envelope, to NodeID)) {
	head := e.envelopes[t]
	delete(e.envelopes, t)

	for head != nil {
		cur := head
		head = cur.nextSameTime()
		cur.setNextSameTime(nil)

		for cur.hasNextReader() {
			to := cur.nextDestId()
			deliver(cur, to)
			cur.markRead()

			if !cur.hasNextReader() {
				break
			}

			nextAt := cur.nextArrivalTime(e.net)
			if nextAt == t {
				continue
			}
			e.insertEnvelope(cur, nextAt)
			break
		}
	}
}

// runMs advances simulated time by n milliseconds, dispatching every
// envelope and task due along the way. Envelope deliveries at a given
// timestamp happen before that timestamp's tasks.
func (e *Engine) runMs(n int64, net *Network) {
	e.net = net
	target := e.currentTime + Time(n)
	for e.currentTime < target {
		nextTime, ok := e.peekNextPending()
		if !ok || nextTime > target {
			e.currentTime = target
			return
		}
		e.currentTime = nextTime
		e.popPending(nextTime)
		e.drainBucket(nextTime, net.deliver)
		e.runTasksAt(nextTime)
	}
}

func (e *Engine) peekNextPending() (Time, bool) {
	for e.pending.Len() > 0 {
		t := e.pending[0]
		if !e.scheduled[t] {
			heap.Pop(&e.pending)
			continue
		}
		return t, true
	}
	return 0, false
}

func (e *Engine) popPending(t Time) {
	delete(e.scheduled, t)
	heap.Pop(&e.pending)
}

// timeHeap is a min-heap of pending simulated timestamps.
type timeHeap []Time

func (h timeHeap) Len() int            { return len(h) }
func (h timeHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h timeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timeHeap) Push(x interface{}) { *h = append(*h, x.(Time)) }
func (h *timeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
