package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"atelier/internal/bulk"
	"atelier/internal/registration/models"
	"atelier/internal/registration/service"
	"atelier/internal/registration/workflow"
	"atelier/internal/subscription"
	"atelier/internal/view"
	dErrors "atelier/pkg/domain-errors"
	"atelier/pkg/platform/httputil"
	request "atelier/pkg/platform/middleware/request"
)

// Service defines the registration console operations the handler needs.
// Returns domain objects, not HTTP response DTOs.
type Service interface {
	View() view.View[models.Registration]
	Status() (subscription.Liveness, error)
	Search(term string)
	FilterDate(day *time.Time)
	Page(n int)
	Select(id string) bool
	Deselect(id string)
	Selected() []string
	DeleteSelected(ctx context.Context) bulk.Report
	ExportCSV() string
	ExportPrint() (string, error)

	BeginFlow() error
	ChooseNewParticipant() error
	SearchExisting(ctx context.Context, email string) error
	ConfirmPresence(ctx context.Context, seats int) error
	SubmitNew(ctx context.Context, form workflow.Form) error
	ResetFlow()
	Flow() service.FlowState
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/registrations", h.HandleView)
	r.Put("/admin/registrations/search", h.HandleSearch)
	r.Put("/admin/registrations/date-filter", h.HandleDateFilter)
	r.Put("/admin/registrations/page", h.HandlePage)
	r.Put("/admin/registrations/selection/{id}", h.HandleSelect)
	r.Delete("/admin/registrations/selection/{id}", h.HandleDeselect)
	r.Post("/admin/registrations/bulk-delete", h.HandleBulkDelete)
	r.Get("/admin/registrations/export/csv", h.HandleExportCSV)
	r.Get("/admin/registrations/export/print", h.HandleExportPrint)

	r.Get("/admin/registrations/flow", h.HandleFlowState)
	r.Post("/admin/registrations/flow", h.HandleFlowBegin)
	r.Delete("/admin/registrations/flow", h.HandleFlowReset)
	r.Post("/admin/registrations/flow/search", h.HandleFlowSearch)
	r.Post("/admin/registrations/flow/new", h.HandleFlowChooseNew)
	r.Post("/admin/registrations/flow/submit", h.HandleFlowSubmit)
	r.Post("/admin/registrations/flow/confirm", h.HandleFlowConfirm)
}

// HandleView returns the current materialized page with stream liveness.
func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.viewResponse())
}

// HandleSearch sets the search term and returns the refreshed view.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SearchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	h.service.Search(req.Term)
	httputil.WriteJSON(w, http.StatusOK, h.viewResponse())
}

// HandleDateFilter sets or clears the calendar-day filter.
func (h *Handler) HandleDateFilter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DateFilterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	h.service.FilterDate(req.Parsed())
	httputil.WriteJSON(w, http.StatusOK, h.viewResponse())
}

// HandlePage moves to the requested page, clamped server-side.
func (h *Handler) HandlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PageRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	h.service.Page(req.Page)
	httputil.WriteJSON(w, http.StatusOK, h.viewResponse())
}

// HandleSelect marks a visible registration for bulk deletion.
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "registration id is required"))
		return
	}
	if !h.service.Select(id) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "registration is not in the current view"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &SelectionResponse{Selected: h.service.Selected()})
}

// HandleDeselect removes a registration from the selection.
func (h *Handler) HandleDeselect(w http.ResponseWriter, r *http.Request) {
	h.service.Deselect(chi.URLParam(r, "id"))
	httputil.WriteJSON(w, http.StatusOK, &SelectionResponse{Selected: h.service.Selected()})
}

// HandleBulkDelete deletes every selected registration. Partial failures come
// back as 207 with the per-id breakdown; the selection is cleared either way.
func (h *Handler) HandleBulkDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	report := h.service.DeleteSelected(ctx)
	if err := report.Err(); err != nil {
		h.logger.WarnContext(ctx, "bulk delete partially failed",
			"failed", len(report.Failures),
			"attempted", report.Attempted,
			"request_id", requestID,
		)
		httputil.WriteJSON(w, http.StatusMultiStatus, toBulkReportResponse(report))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBulkReportResponse(report))
}

// HandleExportCSV streams the full filtered set as CSV.
func (h *Handler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="inscriptions.csv"`)
	_, _ = w.Write([]byte(h.service.ExportCSV()))
}

// HandleExportPrint returns the print-ready HTML table fragment.
func (h *Handler) HandleExportPrint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	table, err := h.service.ExportPrint()
	if err != nil {
		h.logger.ErrorContext(ctx, "print export failed", "error", err,
			"request_id", request.GetRequestID(ctx))
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "print export failed"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(table))
}

// HandleFlowState returns the registration flow for rendering.
func (h *Handler) HandleFlowState(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, toFlowResponse(h.service.Flow()))
}

// HandleFlowBegin starts a new registration flow.
func (h *Handler) HandleFlowBegin(w http.ResponseWriter, r *http.Request) {
	if err := h.service.BeginFlow(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFlowResponse(h.service.Flow()))
}

// HandleFlowReset abandons the current flow.
func (h *Handler) HandleFlowReset(w http.ResponseWriter, r *http.Request) {
	h.service.ResetFlow()
	httputil.WriteJSON(w, http.StatusOK, toFlowResponse(h.service.Flow()))
}

// HandleFlowSearch runs the dedup search on an email.
func (h *Handler) HandleFlowSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[FlowSearchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.SearchExisting(ctx, req.Email); err != nil {
		h.logger.ErrorContext(ctx, "dedup search failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFlowResponse(h.service.Flow()))
}

// HandleFlowChooseNew routes directly to the new-participant form.
func (h *Handler) HandleFlowChooseNew(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ChooseNewParticipant(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFlowResponse(h.service.Flow()))
}

// HandleFlowSubmit creates a new registration from the form.
func (h *Handler) HandleFlowSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.SubmitNew(ctx, req.ToForm()); err != nil {
		h.logger.ErrorContext(ctx, "registration submit failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toFlowResponse(h.service.Flow()))
}

// HandleFlowConfirm confirms presence on the matched registration.
func (h *Handler) HandleFlowConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ConfirmRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.ConfirmPresence(ctx, req.Seats); err != nil {
		h.logger.ErrorContext(ctx, "presence confirmation failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFlowResponse(h.service.Flow()))
}

func (h *Handler) viewResponse() *ViewResponse {
	liveness, err := h.service.Status()
	return toViewResponse(h.service.View(), h.service.Selected(), liveness, err)
}
