// Package service owns the live registrations list: one subscription feeding
// a view engine through a single reconciliation goroutine, plus the dedup
// registration flow and bulk deletion over the current selection. All view
// and flow access is serialized on one mutex; handlers stay thin.
package service

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"atelier/internal/bulk"
	"atelier/internal/export"
	"atelier/internal/platform/metrics"
	"atelier/internal/platform/tracer"
	"atelier/internal/registration/models"
	"atelier/internal/registration/workflow"
	"atelier/internal/store"
	"atelier/internal/subscription"
	"atelier/internal/view"
)

const defaultPageSize = 10

var csvHeader = []string{"Name", "Email", "Phone", "Seats", "RegistrationDate", "Present"}

// Service drives the registrations console collection.
type Service struct {
	subs        *subscription.Manager
	coordinator *bulk.Coordinator
	flow        *workflow.Workflow
	logger      *slog.Logger
	metrics     *metrics.Metrics

	mu       sync.Mutex
	engine   *view.Engine[models.Registration]
	liveness subscription.Liveness
	lastErr  error

	sub *subscription.Subscription
	wg  sync.WaitGroup
}

// Option configures the Service.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	pageSize  int
	noticeTTL time.Duration
	clock     func() time.Time
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithPageSize overrides the registrations page size.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.pageSize = n
		}
	}
}

// WithNoticeTTL overrides how long transient flow notices stay visible.
func WithNoticeTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.noticeTTL = ttl
	}
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// New assembles the registrations service over one store.
func New(st store.Contract, opts ...Option) *Service {
	o := options{
		tracer:   tracer.NewNoop(),
		pageSize: defaultPageSize,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	binding := view.Binding[models.Registration]{
		ID:        func(r models.Registration) string { return r.ID },
		Timestamp: func(r models.Registration) time.Time { return r.RegistrationDate },
		Match: func(r models.Registration, term string) bool {
			return view.MatchFields(term, r.Name, r.Email)
		},
	}

	return &Service{
		subs: subscription.NewManager(st,
			subscription.WithLogger(o.logger),
			subscription.WithMetrics(o.metrics),
		),
		coordinator: bulk.New(st,
			bulk.WithLogger(o.logger),
			bulk.WithMetrics(o.metrics),
			bulk.WithTracer(o.tracer),
		),
		flow: workflow.New(st,
			workflow.WithLogger(o.logger),
			workflow.WithMetrics(o.metrics),
			workflow.WithTracer(o.tracer),
			workflow.WithNoticeTTL(o.noticeTTL),
			workflow.WithClock(o.clock),
		),
		logger:   o.logger,
		metrics:  o.metrics,
		engine:   view.NewEngine(binding, o.pageSize),
		liveness: subscription.LivenessConnecting,
	}
}

// Start opens the registrations subscription and launches the reconciliation
// goroutine. Snapshots never mutate view state outside this goroutine.
func (s *Service) Start() {
	s.sub = s.subs.Subscribe(store.CollectionRegistrations, store.Query{})
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
			s.metrics.SnapshotsApplied.WithLabelValues(store.CollectionRegistrations).Inc()
		} else {
			s.metrics.SnapshotsDiscarded.WithLabelValues(store.CollectionRegistrations).Inc()
		}
	}
	if !applied && s.logger != nil {
		s.logger.Debug("stale registrations snapshot discarded",
			"seq", ev.Snapshot.Seq,
			"last_seq", s.engine.LastSeq(),
		)
	}
}

// Status reports the stream liveness and, in the error state, its cause.
func (s *Service) Status() (subscription.Liveness, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveness, s.lastErr
}

// View materializes the current registrations page.
func (s *Service) View() view.View[models.Registration] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Materialize()
}

// Search sets the name/email search term.
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

// Page moves to the requested page.
func (s *Service) Page(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetPage(n)
}

// Select marks a registration for bulk deletion.
func (s *Service) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Select(id)
}

// Deselect removes a registration from the selection.
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

// DeleteSelected deletes every selected registration and clears the selection
// regardless of the outcome; the view converges on the next snapshot.
func (s *Service) DeleteSelected(ctx context.Context) bulk.Report {
	s.mu.Lock()
	ids := s.engine.Selected()
	s.mu.Unlock()

	report := s.coordinator.Execute(ctx, store.CollectionRegistrations, bulk.OperationDelete, ids)

	s.mu.Lock()
	s.engine.ClearSelection()
	s.mu.Unlock()
	return report
}

// ExportCSV renders the full filtered set as CSV, ignoring pagination.
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

func exportRows(regs []models.Registration) [][]string {
	rows := make([][]string, 0, len(regs))
	for _, r := range regs {
		rows = append(rows, []string{
			r.Name,
			r.Email,
			r.Phone,
			strconv.Itoa(r.Seats),
			r.RegistrationDate.Format("02/01/2006 15:04"),
			ouiNon(r.IsPresent()),
		})
	}
	return rows
}

// ouiNon renders a boolean the way the console displays it.
func ouiNon(b bool) string {
	if b {
		return "Oui"
	}
	return "Non"
}

// Flow operations delegate to the dedup registration workflow under the
// service mutex, since the workflow itself is single-threaded.

// BeginFlow starts a new registration flow.
func (s *Service) BeginFlow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.Begin()
}

// ChooseNewParticipant routes to the blank new-participant form.
func (s *Service) ChooseNewParticipant() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.ChooseNewParticipant()
}

// SearchExisting looks an email up and routes the flow accordingly.
func (s *Service) SearchExisting(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.SearchExisting(ctx, email)
}

// ConfirmPresence confirms the matched registration with a seat count.
func (s *Service) ConfirmPresence(ctx context.Context, seats int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.ConfirmPresence(ctx, seats)
}

// SubmitNew creates a new registration from the form.
func (s *Service) SubmitNew(ctx context.Context, form workflow.Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.SubmitNew(ctx, form)
}

// ResetFlow abandons the current flow.
func (s *Service) ResetFlow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flow.Reset()
}

// FlowState is a read snapshot of the registration flow for rendering.
type FlowState struct {
	State  workflow.State
	Form   workflow.Form
	Match  *models.Registration
	Notice *workflow.Notice
}

// Flow returns the current flow state.
func (s *Service) Flow() FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FlowState{
		State:  s.flow.State(),
		Form:   s.flow.Form(),
		Match:  s.flow.Match(),
		Notice: s.flow.Notice(),
	}
}
