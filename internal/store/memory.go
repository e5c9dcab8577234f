package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"atelier/internal/sentinel"
)

// Memory is an in-memory document store for tests and the demo environment.
// It honors the Contract delivery semantics: a full snapshot to every matching
// listener after each mutation, an error callback while the simulated
// connection is down, and a fresh snapshot on reconnect.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	listeners   map[int]*listener
	nextID      int
	down        bool
}

type listener struct {
	collection string
	query      Query
	onSnapshot SnapshotFunc
	onError    ErrorFunc
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]Document),
		listeners:   make(map[int]*listener),
	}
}

// GetOnce returns the documents of a collection matching the query.
func (s *Memory) GetOnce(_ context.Context, collection string, q Query) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.down {
		return nil, fmt.Errorf("store unreachable: %w", sentinel.ErrUnavailable)
	}
	return s.collect(collection, q), nil
}

// Subscribe registers a listener and synchronously delivers the initial snapshot.
func (s *Memory) Subscribe(collection string, q Query, onSnapshot SnapshotFunc, onError ErrorFunc) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	l := &listener{collection: collection, query: q, onSnapshot: onSnapshot, onError: onError}
	s.listeners[id] = l
	initial := s.collect(collection, q)
	s.mu.Unlock()

	onSnapshot(initial)

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Create stores a new document and returns its generated id.
func (s *Memory) Create(_ context.Context, collection string, doc Document) (string, error) {
	s.mu.Lock()
	if s.down {
		s.mu.Unlock()
		return "", fmt.Errorf("store unreachable: %w", sentinel.ErrUnavailable)
	}
	id := uuid.New().String()
	stored := clone(doc)
	stored["id"] = id
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]Document)
	}
	s.collections[collection][id] = stored
	deliveries := s.pendingDeliveries(collection)
	s.mu.Unlock()

	dispatch(deliveries)
	return id, nil
}

// Update merges the patch into an existing document.
func (s *Memory) Update(_ context.Context, collection string, id string, patch Document) error {
	s.mu.Lock()
	if s.down {
		s.mu.Unlock()
		return fmt.Errorf("store unreachable: %w", sentinel.ErrUnavailable)
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("document %s/%s: %w", collection, id, sentinel.ErrNotFound)
	}
	for k, v := range patch {
		doc[k] = cloneValue(v)
	}
	deliveries := s.pendingDeliveries(collection)
	s.mu.Unlock()

	dispatch(deliveries)
	return nil
}

// Delete removes a document.
func (s *Memory) Delete(_ context.Context, collection string, id string) error {
	s.mu.Lock()
	if s.down {
		s.mu.Unlock()
		return fmt.Errorf("store unreachable: %w", sentinel.ErrUnavailable)
	}
	if _, ok := s.collections[collection][id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("document %s/%s: %w", collection, id, sentinel.ErrNotFound)
	}
	delete(s.collections[collection], id)
	deliveries := s.pendingDeliveries(collection)
	s.mu.Unlock()

	dispatch(deliveries)
	return nil
}

// Seed inserts documents without generating ids, for test and demo fixtures.
// Documents must carry an "id" field.
func (s *Memory) Seed(collection string, docs ...Document) {
	s.mu.Lock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]Document)
	}
	for _, doc := range docs {
		id, _ := doc["id"].(string)
		if id == "" {
			id = uuid.New().String()
		}
		stored := clone(doc)
		stored["id"] = id
		s.collections[collection][id] = stored
	}
	deliveries := s.pendingDeliveries(collection)
	s.mu.Unlock()

	dispatch(deliveries)
}

// SimulateOutage marks the store unreachable and notifies every listener.
// Mutations and reads fail until Reconnect is called.
func (s *Memory) SimulateOutage() {
	s.mu.Lock()
	s.down = true
	errFns := make([]ErrorFunc, 0, len(s.listeners))
	for _, l := range s.listeners {
		if l.onError != nil {
			errFns = append(errFns, l.onError)
		}
	}
	s.mu.Unlock()

	for _, fn := range errFns {
		fn(fmt.Errorf("connection lost: %w", sentinel.ErrUnavailable))
	}
}

// Reconnect restores connectivity and emits a fresh full snapshot to every
// listener, matching the at-least-once delivery the contract assumes.
func (s *Memory) Reconnect() {
	s.mu.Lock()
	s.down = false
	var deliveries []delivery
	for _, l := range s.listeners {
		deliveries = append(deliveries, delivery{fn: l.onSnapshot, docs: s.collect(l.collection, l.query)})
	}
	s.mu.Unlock()

	dispatch(deliveries)
}

type delivery struct {
	fn   SnapshotFunc
	docs []Document
}

// pendingDeliveries computes the post-mutation snapshot for every listener of
// the collection. Callers must hold the write lock and invoke the callbacks
// after releasing it.
func (s *Memory) pendingDeliveries(collection string) []delivery {
	var out []delivery
	for _, l := range s.listeners {
		if l.collection != collection {
			continue
		}
		out = append(out, delivery{fn: l.onSnapshot, docs: s.collect(collection, l.query)})
	}
	return out
}

func dispatch(deliveries []delivery) {
	for _, d := range deliveries {
		d.fn(d.docs)
	}
}

// collect filters, orders, and deep-copies the documents of a collection.
// Callers must hold at least a read lock.
func (s *Memory) collect(collection string, q Query) []Document {
	docs := make([]Document, 0, len(s.collections[collection]))
	for _, doc := range s.collections[collection] {
		if q.Matches(doc) {
			docs = append(docs, clone(doc))
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			if q.Descending {
				return lessValue(docs[j][q.OrderBy], docs[i][q.OrderBy])
			}
			return lessValue(docs[i][q.OrderBy], docs[j][q.OrderBy])
		})
	} else {
		// Stable iteration order for zero queries: sort by id.
		sort.SliceStable(docs, func(i, j int) bool {
			a, _ := docs[i]["id"].(string)
			b, _ := docs[j]["id"].(string)
			return a < b
		})
	}
	return docs
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case int:
		if bv, ok := b.(int); ok {
			return av < bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av < bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	}
	return false
}

func clone(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return clone(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Verify the contract is satisfied.
var _ Contract = (*Memory)(nil)
