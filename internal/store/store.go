// Package store defines the contract of the remote document store the console
// relies on, plus an in-memory implementation used by tests and the demo
// environment. The store is the sole source of truth: every local view is a
// best-effort cache rebuilt from the snapshots it emits.
package store

import "context"

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Contract

// Collection keys used by the console.
const (
	CollectionRegistrations = "registrations"
	CollectionOrders        = "orders"
)

// Document is a schemaless record as stored remotely. Every document carries
// its id under the "id" key when read back.
type Document = map[string]any

// Condition is a field-equality constraint on a query.
type Condition struct {
	Field string
	Value any
}

// Query narrows and orders the documents of one collection.
// A zero Query matches everything in insertion order.
type Query struct {
	Conditions []Condition
	OrderBy    string
	Descending bool
}

// Where appends an equality condition.
func (q Query) Where(field string, value any) Query {
	q.Conditions = append(q.Conditions, Condition{Field: field, Value: value})
	return q
}

// OrderedBy sets the sort field and direction.
func (q Query) OrderedBy(field string, descending bool) Query {
	q.OrderBy = field
	q.Descending = descending
	return q
}

// Matches reports whether doc satisfies every condition of the query.
func (q Query) Matches(doc Document) bool {
	for _, c := range q.Conditions {
		if doc[c.Field] != c.Value {
			return false
		}
	}
	return true
}

// SnapshotFunc receives a full, authoritative replacement of the visible
// contents of a collection. Deliveries for one subscription never interleave.
type SnapshotFunc func(docs []Document)

// ErrorFunc receives connectivity failures. A call signals that the channel is
// unhealthy; a subsequent SnapshotFunc call signals recovery.
type ErrorFunc func(err error)

// Contract is the surface the remote document store exposes to the console.
//
// Subscribe registers a listener and returns an unsubscribe function. The
// store emits an initial snapshot after Subscribe and a fresh full snapshot
// after every mutation of the collection; delivery is at-least-once after a
// reconnect. There are no cross-collection transactions and no atomic
// find-or-create, which is why registration uniqueness is enforced at the
// workflow level only.
type Contract interface {
	GetOnce(ctx context.Context, collection string, q Query) ([]Document, error)
	Subscribe(collection string, q Query, onSnapshot SnapshotFunc, onError ErrorFunc) (unsubscribe func())
	Create(ctx context.Context, collection string, doc Document) (string, error)
	Update(ctx context.Context, collection string, id string, patch Document) error
	Delete(ctx context.Context, collection string, id string) error
}
