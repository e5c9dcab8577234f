// Package subscription turns the remote store's callback-based listeners into
// ordered, restartable streams of sequenced snapshots, one per collection,
// consumed by a dedicated reconciliation path instead of nested callbacks.
package subscription

import (
	"log/slog"

	"atelier/internal/platform/metrics"
	"atelier/internal/store"
)

const defaultBuffer = 8

// Manager owns the live channels to the remote store.
type Manager struct {
	store   store.Contract
	logger  *slog.Logger
	metrics *metrics.Metrics
	buffer  int
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mx
	}
}

// WithBuffer sets the per-subscription event buffer size.
func WithBuffer(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.buffer = n
		}
	}
}

// NewManager creates a subscription manager over the given store.
func NewManager(st store.Contract, opts ...Option) *Manager {
	m := &Manager{store: st, buffer: defaultBuffer}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe opens a live channel to one collection. The returned subscription
// starts in the connecting state and emits its first snapshot as soon as the
// store delivers one. Streams of different collections are independent; no
// ordering holds across them.
func (m *Manager) Subscribe(collection string, q store.Query) *Subscription {
	sub := &Subscription{
		collection: collection,
		liveness:   LivenessConnecting,
		events:     make(chan Event, m.buffer),
	}

	stop := m.store.Subscribe(collection, q,
		func(docs []store.Document) {
			sub.deliverSnapshot(docs)
		},
		func(err error) {
			if m.logger != nil {
				m.logger.Warn("subscription connectivity lost",
					"collection", collection,
					"error", err,
				)
			}
			if m.metrics != nil {
				m.metrics.SubscriptionErrors.WithLabelValues(collection).Inc()
			}
			sub.deliverError(err)
		},
	)

	sub.mu.Lock()
	sub.stop = stop
	sub.mu.Unlock()

	return sub
}
