// Package service owns the live orders list: one subscription feeding an
// unpaginated view engine through a single reconciliation goroutine, the
// order lifecycle transitions, shipping address edits, aggregate stats, and
// bulk deletion over the current selection.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"atelier/internal/bulk"
	"atelier/internal/export"
	"atelier/internal/orders/models"
	"atelier/internal/platform/metrics"
	"atelier/internal/platform/tracer"
	"atelier/internal/sentinel"
	"atelier/internal/store"
	"atelier/internal/subscription"
	"atelier/internal/view"
	dErrors "atelier/pkg/domain-errors"
)

var csvHeader = []string{"Number", "Client", "Email", "Phone", "Address", "Total", "Status", "Date"}

// Stats is a full recomputation over the latest snapshot. Cancelled orders
// are counted but excluded from revenue.
type Stats struct {
	Total    int
	Revenue  float64
	ByStatus map[models.Status]int
}

// Service drives the orders console collection.
type Service struct {
	store       store.Contract
	subs        *subscription.Manager
	coordinator *bulk.Coordinator
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
	now         func() time.Time

	mu       sync.Mutex
	engine   *view.Engine[models.Order]
	liveness subscription.Liveness
	lastErr  error

	sub *subscription.Subscription
	wg  sync.WaitGroup
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New assembles the orders service over one store. The orders view is
// unpaginated: the console renders the full filtered list.
func New(st store.Contract, opts ...Option) *Service {
	s := &Service{
		store:  st,
		tracer: tracer.NewNoop(),
		now:    time.Now,
		engine: view.NewEngine(view.Binding[models.Order]{
			ID:        func(o models.Order) string { return o.ID },
			Timestamp: func(o models.Order) time.Time { return o.CreatedAt },
			Match: func(o models.Order, term string) bool {
				return view.MatchFields(term, o.Number, o.Email, o.FullName)
			},
		}, 0),
		liveness: subscription.LivenessConnecting,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.subs = subscription.NewManager(st,
		subscription.WithLogger(s.logger),
		subscription.WithMetrics(s.metrics),
	)
	s.coordinator = bulk.New(st,
		bulk.WithLogger(s.logger),
		bulk.WithMetrics(s.metrics),
		bulk.WithTracer(s.tracer),
	)
	return s
}

// Start opens the orders subscription and launches the reconciliation
// goroutine.
func (s *Service) Start() {
	s.sub = s.subs.Subscribe(store.CollectionOrders, store.Query{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for ev := range s.sub.Events() {
			s.reconcile(ev)
		}
	}()
}

// Stop tears the subscription down and waits for the reconciliation goroutine.
func (s *Service) Stop() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	s.wg.Wait()
}

func (s *Service) reconcile(ev subscription.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.liveness = ev.Liveness
	s.lastErr = ev.Err

	if ev.Snapshot == nil {
		return
	}
	applied := s.engine.Apply(ev.Snapshot.Seq, models.FromDocuments(ev.Snapshot.Docs))
	if s.metrics != nil {
		if applied {
			s.metrics.SnapshotsApplied.WithLabelValues(store.CollectionOrders).Inc()
		} else {
			s.metrics.SnapshotsDiscarded.WithLabelValues(store.CollectionOrders).Inc()
		}
	}
	if applied {
		s.publishStats(s.statsLocked())
	}
}

// Status reports the stream liveness and, in the error state, its cause.
func (s *Service) Status() (subscription.Liveness, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveness, s.lastErr
}

// View materializes the current full filtered list.
func (s *Service) View() view.View[models.Order] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Materialize()
}

// Search sets the number/email/name search term.
func (s *Service) Search(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetSearch(term)
}

// FilterDate restricts the view to one local calendar day, or clears the
// filter when day is nil.
func (s *Service) FilterDate(day *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetDateFilter(day)
}

// Select marks an order for bulk deletion.
func (s *Service) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Select(id)
}

// Deselect removes an order from the selection.
func (s *Service) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Deselect(id)
}

// Selected returns the selected ids in view order.
func (s *Service) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Selected()
}

// Stats recomputes the aggregates from the full snapshot, ignoring any active
// search or date filter. Every snapshot recomputes from scratch; nothing is
// incrementally patched.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Service) statsLocked() Stats {
	stats := Stats{ByStatus: make(map[models.Status]int)}
	for _, o := range s.engine.All() {
		stats.Total++
		stats.ByStatus[o.Status]++
		if o.Status != models.StatusCancelled {
			stats.Revenue += o.Total()
		}
	}
	return stats
}

func (s *Service) publishStats(stats Stats) {
	if s.metrics == nil {
		return
	}
	s.metrics.OrdersTotal.Set(float64(stats.Total))
	s.metrics.Revenue.Set(stats.Revenue)
	for _, status := range []models.Status{
		models.StatusPending, models.StatusProcessing, models.StatusShipped,
		models.StatusDelivered, models.StatusCancelled,
	} {
		s.metrics.OrdersByStatus.WithLabelValues(string(status)).Set(float64(stats.ByStatus[status]))
	}
}

// Transition moves an order to the target status. Validation happens locally
// against the latest snapshot before any store call: a rejected transition
// has zero side effects. The accepted transition patches only status and
// updatedAt; the view is never optimistically updated and converges on the
// next snapshot.
func (s *Service) Transition(ctx context.Context, id string, target models.Status) error {
	if _, err := models.ParseStatus(string(target)); err != nil {
		return err
	}

	s.mu.Lock()
	current, found := s.findLocked(id)
	s.mu.Unlock()
	if !found {
		return dErrors.New(dErrors.CodeNotFound, "order not found in the latest snapshot")
	}

	if !current.Status.CanTransitionTo(target) {
		if s.metrics != nil {
			s.metrics.RejectedTransitions.Inc()
		}
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move order from %s to %s", current.Status.Display(), target.Display()))
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanOrderTransition,
		tracer.String(tracer.AttrTarget, string(target)),
	)

	patch := store.Document{
		models.FieldStatus:    string(target),
		models.FieldUpdatedAt: s.now(),
	}
	if err := s.store.Update(ctx, store.CollectionOrders, id, patch); err != nil {
		translated := translate(err, "order transition failed")
		span.End(translated)
		return translated
	}
	span.End(nil)

	if s.metrics != nil {
		s.metrics.OrderTransitions.WithLabelValues(string(target)).Inc()
	}
	if s.logger != nil {
		s.logger.Info("order transitioned",
			"order_id", id,
			"from", string(current.Status),
			"to", string(target),
		)
	}
	return nil
}

// UpdateAddress replaces the shipping address on one order.
func (s *Service) UpdateAddress(ctx context.Context, id string, addr models.Address) error {
	if err := addr.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	_, found := s.findLocked(id)
	s.mu.Unlock()
	if !found {
		return dErrors.New(dErrors.CodeNotFound, "order not found in the latest snapshot")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanAddressUpdate)
	patch := store.Document{
		"address":             addressToMap(addr),
		models.FieldUpdatedAt: s.now(),
	}
	if err := s.store.Update(ctx, store.CollectionOrders, id, patch); err != nil {
		translated := translate(err, "address update failed")
		span.End(translated)
		return translated
	}
	span.End(nil)

	if s.logger != nil {
		s.logger.Info("shipping address updated", "order_id", id)
	}
	return nil
}

func addressToMap(a models.Address) map[string]any {
	return map[string]any{
		"street":     a.Street,
		"city":       a.City,
		"postalCode": a.PostalCode,
		"country":    a.Country,
	}
}

// Get returns one order from the latest snapshot.
func (s *Service) Get(id string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, found := s.findLocked(id)
	if !found {
		return models.Order{}, dErrors.New(dErrors.CodeNotFound, "order not found in the latest snapshot")
	}
	return o, nil
}

func (s *Service) findLocked(id string) (models.Order, bool) {
	for _, o := range s.engine.All() {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

// DeleteSelected deletes every selected order and clears the selection
// regardless of the outcome.
func (s *Service) DeleteSelected(ctx context.Context) bulk.Report {
	s.mu.Lock()
	ids := s.engine.Selected()
	s.mu.Unlock()

	report := s.coordinator.Execute(ctx, store.CollectionOrders, bulk.OperationDelete, ids)

	s.mu.Lock()
	s.engine.ClearSelection()
	s.mu.Unlock()
	return report
}

// ExportCSV renders the full filtered set as CSV. Totals and statuses are
// formatted for the console: two-decimal amounts and French status labels.
func (s *Service) ExportCSV() string {
	s.mu.Lock()
	rows := exportRows(s.engine.Filtered())
	s.mu.Unlock()
	return export.CSV(csvHeader, rows)
}

// ExportPrint renders the full filtered set as an HTML print table.
func (s *Service) ExportPrint() (string, error) {
	s.mu.Lock()
	rows := exportRows(s.engine.Filtered())
	s.mu.Unlock()
	return export.PrintTable(csvHeader, rows)
}

func exportRows(orders []models.Order) [][]string {
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []string{
			o.Number,
			o.FullName,
			o.Email,
			o.Phone,
			o.Address.Display(),
			fmt.Sprintf("%.2f", o.Total()),
			o.Status.Display(),
			o.CreatedAt.Format("02/01/2006 15:04"),
		})
	}
	return rows
}

// translate maps store failures to domain errors exactly once.
func translate(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeConnectivity, msg)
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
