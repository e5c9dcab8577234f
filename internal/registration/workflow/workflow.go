// Package workflow implements the deduplicating registration flow:
// search-by-email, then confirm the existing registration or create a new
// one. Uniqueness is best-effort: the store has no atomic find-or-create, so
// a concurrent submission can still race (surfaced as a conflict, never
// auto-merged).
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"atelier/internal/platform/metrics"
	"atelier/internal/platform/tracer"
	"atelier/internal/registration/models"
	"atelier/internal/sentinel"
	"atelier/internal/store"
	dErrors "atelier/pkg/domain-errors"
)

// State of the registration workflow.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingTypeChoice State = "awaiting_type_choice"
	StateSearchingExisting  State = "searching_existing"
	StateNewParticipantForm State = "new_participant_form"
	StateConfirmingPresence State = "confirming_presence"
	StateSubmitting         State = "submitting"
)

// Form holds the new-participant fields. Retained on submission failure so
// the operator does not retype everything.
type Form struct {
	Name         string
	Email        string
	Phone        string
	Experience   string
	Expectations string
	Seats        int
}

// Notice is a transient message that auto-dismisses after a fixed interval.
type Notice struct {
	Message   string
	ExpiresAt time.Time
}

const defaultNoticeTTL = 3 * time.Second

// Workflow is a single-operator dedup registration flow. It is owned by one
// session and is not safe for concurrent use.
type Workflow struct {
	store     store.Contract
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	noticeTTL time.Duration
	now       func() time.Time

	state  State
	form   Form
	match  *models.Registration
	notice *Notice
}

// Option configures the Workflow.
type Option func(*Workflow)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) {
		w.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(w *Workflow) {
		w.tracer = t
	}
}

// WithNoticeTTL sets how long success notices stay visible.
func WithNoticeTTL(ttl time.Duration) Option {
	return func(w *Workflow) {
		if ttl > 0 {
			w.noticeTTL = ttl
		}
	}
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		w.now = now
	}
}

// New creates an idle workflow over the given store.
func New(st store.Contract, opts ...Option) *Workflow {
	w := &Workflow{
		store:     st,
		tracer:    tracer.NewNoop(),
		noticeTTL: defaultNoticeTTL,
		now:       time.Now,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current workflow state.
func (w *Workflow) State() State {
	return w.state
}

// Form returns the retained new-participant form fields.
func (w *Workflow) Form() Form {
	return w.form
}

// Match returns the registration preloaded for presence confirmation, or nil.
func (w *Workflow) Match() *models.Registration {
	return w.match
}

// Notice returns the current transient notice, or nil once it has expired.
func (w *Workflow) Notice() *Notice {
	if w.notice == nil || !w.now().Before(w.notice.ExpiresAt) {
		return nil
	}
	return w.notice
}

// Begin starts a new flow from idle.
func (w *Workflow) Begin() error {
	if w.state != StateIdle {
		return dErrors.New(dErrors.CodeInvariantViolation, "a registration flow is already in progress")
	}
	w.state = StateAwaitingTypeChoice
	return nil
}

// ChooseNewParticipant routes directly to the blank new-participant form.
func (w *Workflow) ChooseNewParticipant() error {
	if w.state != StateAwaitingTypeChoice {
		return dErrors.New(dErrors.CodeInvariantViolation, "no pending participant type choice")
	}
	w.form = Form{Seats: models.MinSeats}
	w.state = StateNewParticipantForm
	return nil
}

// SearchExisting runs an exact-match query on the normalized email. Zero
// matches routes to the new-participant form with a non-fatal notice; one or
// more matches preloads presence confirmation with the first result. Using
// the first of several duplicates without reconciliation is an accepted
// limitation of the store's missing uniqueness guarantee.
func (w *Workflow) SearchExisting(ctx context.Context, email string) error {
	if w.state != StateAwaitingTypeChoice {
		return dErrors.New(dErrors.CodeInvariantViolation, "no pending participant type choice")
	}

	normalized := models.NormalizeEmail(email)
	if normalized == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}

	ctx, span := w.tracer.Start(ctx, tracer.SpanDedupSearch,
		tracer.String(tracer.AttrEmail, tracer.HashEmail(normalized)),
	)

	w.state = StateSearchingExisting
	docs, err := w.store.GetOnce(ctx, store.CollectionRegistrations,
		store.Query{}.Where(models.FieldEmail, normalized))
	if err != nil {
		w.state = StateAwaitingTypeChoice
		translated := translate(err, "registration search failed")
		span.End(translated)
		return translated
	}
	span.End(nil)

	if len(docs) == 0 {
		// Not an error halt: route to creation with a notice.
		w.setNotice("aucune inscription trouvée pour " + normalized)
		w.form = Form{Email: normalized, Seats: models.MinSeats}
		w.state = StateNewParticipantForm
		return nil
	}

	if len(docs) > 1 {
		if w.metrics != nil {
			w.metrics.DuplicateSearchHits.Inc()
		}
		if w.logger != nil {
			w.logger.Warn("duplicate registrations for email, using first result",
				"email_hash", tracer.HashEmail(normalized),
				"matches", len(docs),
			)
		}
	}

	match := models.FromDocument(docs[0])
	w.match = &match
	w.form = Form{Seats: models.MinSeats}
	w.state = StateConfirmingPresence
	return nil
}

// ConfirmPresence marks the matched registration present with the chosen
// seat count and stamps a fresh registration date. Name and email are never
// touched. On success the flow returns to idle with a transient notice.
func (w *Workflow) ConfirmPresence(ctx context.Context, seats int) error {
	if w.state != StateConfirmingPresence || w.match == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "no registration pending confirmation")
	}
	if err := models.ValidateSeats(seats); err != nil {
		return err
	}

	ctx, span := w.tracer.Start(ctx, tracer.SpanConfirmPresence,
		tracer.String(tracer.AttrEmail, tracer.HashEmail(w.match.Email)),
	)

	w.state = StateSubmitting
	patch := store.Document{
		"present":                    true,
		"seats":                      seats,
		models.FieldRegistrationDate: w.now(),
	}
	if err := w.store.Update(ctx, store.CollectionRegistrations, w.match.ID, patch); err != nil {
		w.state = StateConfirmingPresence
		translated := translate(err, "presence confirmation failed")
		span.End(translated)
		return translated
	}
	span.End(nil)

	if w.metrics != nil {
		w.metrics.PresenceConfirmations.Inc()
	}
	if w.logger != nil {
		w.logger.Info("presence confirmed",
			"registration_id", w.match.ID,
			"seats", seats,
		)
	}

	w.setNotice("présence confirmée")
	w.match = nil
	w.state = StateIdle
	return nil
}

// SubmitNew validates and creates a new registration. A last exact-match
// check narrows the duplicate window: finding a record now, after the search
// said none existed, means a concurrent submission won the race and the
// conflict is surfaced rather than merged. On any failure the form fields
// are retained.
func (w *Workflow) SubmitNew(ctx context.Context, form Form) error {
	if w.state != StateNewParticipantForm {
		return dErrors.New(dErrors.CodeInvariantViolation, "no participant form in progress")
	}

	w.form = form
	reg, err := models.New(form.Name, form.Email, form.Phone, form.Experience, form.Expectations, form.Seats, w.now())
	if err != nil {
		return err
	}

	ctx, span := w.tracer.Start(ctx, tracer.SpanCreate,
		tracer.String(tracer.AttrEmail, tracer.HashEmail(reg.Email)),
	)

	w.state = StateSubmitting
	existing, err := w.store.GetOnce(ctx, store.CollectionRegistrations,
		store.Query{}.Where(models.FieldEmail, reg.Email))
	if err != nil {
		w.state = StateNewParticipantForm
		translated := translate(err, "duplicate check failed")
		span.End(translated)
		return translated
	}
	if len(existing) > 0 {
		w.state = StateNewParticipantForm
		conflict := dErrors.New(dErrors.CodeConflict, "a registration already exists for "+reg.Email)
		span.End(conflict)
		return conflict
	}

	if _, err := w.store.Create(ctx, store.CollectionRegistrations, models.ToDocument(reg)); err != nil {
		w.state = StateNewParticipantForm
		translated := translate(err, "registration creation failed")
		span.End(translated)
		return translated
	}
	span.End(nil)

	if w.metrics != nil {
		w.metrics.RegistrationsCreated.Inc()
	}
	if w.logger != nil {
		w.logger.Info("registration created",
			"email_hash", tracer.HashEmail(reg.Email),
			"seats", reg.Seats,
		)
	}

	w.setNotice("inscription enregistrée")
	w.form = Form{Seats: models.MinSeats}
	w.state = StateNewParticipantForm
	return nil
}

// Reset abandons the flow and returns to idle, keeping any active notice.
func (w *Workflow) Reset() {
	w.state = StateIdle
	w.form = Form{}
	w.match = nil
}

func (w *Workflow) setNotice(message string) {
	w.notice = &Notice{Message: message, ExpiresAt: w.now().Add(w.noticeTTL)}
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
