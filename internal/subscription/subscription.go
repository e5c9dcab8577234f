package subscription

import (
	"sync"

	"atelier/internal/store"
)

// Liveness describes the health of a subscription's channel to the remote store.
type Liveness string

const (
	LivenessConnecting Liveness = "connecting"
	LivenessLive       Liveness = "live"
	LivenessError      Liveness = "error"
)

// Snapshot is a full, authoritative replacement of a collection's visible
// contents, tagged with a per-subscription monotonically increasing sequence
// number. Consumers must discard any snapshot whose sequence is not strictly
// greater than the last one they applied.
type Snapshot struct {
	Seq  uint64
	Docs []store.Document
}

// Event is one delivery on a subscription: either a snapshot or a liveness
// change. Exactly one of Snapshot or Err is set when Liveness is live or
// error respectively.
type Event struct {
	Snapshot *Snapshot
	Liveness Liveness
	Err      error
}

// Subscription is one live channel to a remote collection. It is owned by a
// single consuming session; Events must be drained by one goroutine.
type Subscription struct {
	collection string

	mu       sync.Mutex
	seq      uint64
	liveness Liveness
	closed   bool
	events   chan Event
	stop     func()
}

// Collection returns the collection key this subscription watches.
func (s *Subscription) Collection() string {
	return s.collection
}

// Events returns the ordered event stream. The channel is closed by
// Unsubscribe. When the consumer lags, the oldest undelivered event is
// dropped: snapshots are full replacements, so only the newest matters.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Liveness returns the current channel health.
func (s *Subscription) Liveness() Liveness {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveness
}

// LastSeq returns the sequence number of the most recently emitted snapshot.
func (s *Subscription) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Unsubscribe tears the subscription down and closes the event channel. It is
// idempotent, and once it returns no further event can be observed: delivery
// and teardown serialize on the same lock, so an in-flight store callback
// either completed before the close or sees the closed flag and is dropped.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stop := s.stop
	close(s.events)
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// deliverSnapshot sequences and enqueues a snapshot, flipping liveness back
// to live after an error.
func (s *Subscription) deliverSnapshot(docs []store.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.seq++
	s.liveness = LivenessLive
	snap := &Snapshot{Seq: s.seq, Docs: docs}
	s.enqueue(Event{Snapshot: snap, Liveness: LivenessLive})
}

// deliverError flips liveness to error. The consumer keeps its last good
// snapshot; the view stays available but stale.
func (s *Subscription) deliverError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.liveness = LivenessError
	s.enqueue(Event{Liveness: LivenessError, Err: err})
}

// enqueue adds an event, dropping the oldest pending one when the buffer is
// full. Callers must hold the lock.
func (s *Subscription) enqueue(ev Event) {
	for {
		select {
		case s.events <- ev:
			return
		default:
			select {
			case <-s.events:
			default:
			}
		}
	}
}
