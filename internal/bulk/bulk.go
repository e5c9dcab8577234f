// Package bulk executes batched mutations over a selection, one store call
// per id, and reports partial failures in aggregate. The caller clears its
// selection unconditionally afterwards: the view converges to ground truth on
// the next snapshot rather than via manual list patching.
package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"atelier/internal/platform/metrics"
	"atelier/internal/platform/tracer"
	"atelier/internal/store"
	dErrors "atelier/pkg/domain-errors"
)

// Operation identifies a bulk mutation kind.
type Operation string

const OperationDelete Operation = "delete"

const defaultConcurrency = 8

// Failure records one id whose mutation failed, with its cause.
type Failure struct {
	ID  string
	Err error
}

// Report aggregates the outcome of one bulk execution. Every id was
// attempted; Failures lists the subset that did not succeed.
type Report struct {
	Operation Operation
	Attempted int
	Failures  []Failure
}

// Err returns nil when everything succeeded, or a partial-failure domain
// error describing how many mutations failed.
func (r Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return dErrors.New(dErrors.CodePartialFailure,
		fmt.Sprintf("bulk operation partially failed: %d of %d mutations failed", len(r.Failures), r.Attempted))
}

// Coordinator fans bulk mutations out to the store.
type Coordinator struct {
	store       store.Contract
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
	concurrency int
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = t
	}
}

// WithConcurrency caps how many mutations run at once.
func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a bulk coordinator over the given store.
func New(st store.Contract, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:       st,
		tracer:      tracer.NewNoop(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute issues one mutation per id concurrently and awaits every outcome.
// A failed id never aborts the others; the report lists each failure with its
// cause, in input order.
func (c *Coordinator) Execute(ctx context.Context, collection string, op Operation, ids []string) Report {
	ctx, span := c.tracer.Start(ctx, tracer.SpanBulkExecute,
		tracer.String(tracer.AttrCollection, collection),
		tracer.Int64(tracer.AttrSelection, int64(len(ids))),
	)

	report := Report{Operation: op, Attempted: len(ids)}
	if len(ids) == 0 {
		span.End(nil)
		return report
	}

	if c.metrics != nil {
		c.metrics.BulkOperations.Inc()
	}

	var mu sync.Mutex
	failed := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			start := time.Now()
			err := c.apply(ctx, collection, op, id)
			if c.metrics != nil {
				c.metrics.BulkItemDuration.Observe(time.Since(start).Seconds())
			}
			if err != nil {
				mu.Lock()
				failed[i] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range failed {
		if err == nil {
			continue
		}
		report.Failures = append(report.Failures, Failure{ID: ids[i], Err: err})
		if c.metrics != nil {
			c.metrics.BulkFailures.Inc()
		}
		if c.logger != nil {
			c.logger.Warn("bulk mutation failed",
				"collection", collection,
				"operation", string(op),
				"id", ids[i],
				"error", err,
			)
		}
	}

	span.End(report.Err())
	return report
}

func (c *Coordinator) apply(ctx context.Context, collection string, op Operation, id string) error {
	switch op {
	case OperationDelete:
		return c.store.Delete(ctx, collection, id)
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "unsupported bulk operation: "+string(op))
	}
}
