package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"atelier/internal/bulk"
	"atelier/internal/orders/models"
	"atelier/internal/orders/service"
	"atelier/internal/subscription"
	"atelier/internal/view"
	dErrors "atelier/pkg/domain-errors"
	"atelier/pkg/platform/httputil"
	request "atelier/pkg/platform/middleware/request"
)

// Service defines the order console operations the handler needs.
type Service interface {
	View() view.View[models.Order]
	Status() (subscription.Liveness, error)
	Stats() service.Stats
	Search(term string)
	FilterDate(day *time.Time)
	Get(id string) (models.Order, error)
	Transition(ctx context.Context, id string, target models.Status) error
	UpdateAddress(ctx context.Context, id string, addr models.Address) error
	Select(id string) bool
	Deselect(id string)
	Selected() []string
	DeleteSelected(ctx context.Context) bulk.Report
	ExportCSV() string
	ExportPrint() (string, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/orders", h.HandleView)
	r.Get("/admin/orders/stats", h.HandleStats)
	r.Put("/admin/orders/search", h.HandleSearch)
	r.Put("/admin/orders/date-filter", h.HandleDateFilter)
	r.Get("/admin/orders/export/csv", h.HandleExportCSV)
	r.Get("/admin/orders/export/print", h.HandleExportPrint)
	r.Put("/admin/orders/selection/{id}", h.HandleSelect)
	r.Delete("/admin/orders/selection/{id}", h.HandleDeselect)
	r.Post("/admin/orders/bulk-delete", h.HandleBulkDelete)
	r.Get("/admin/orders/{id}", h.HandleGet)
	r.Put("/admin/orders/{id}/status", h.HandleTransition)
	r.Put("/admin/orders/{id}/address", h.HandleUpdateAddress)
}

// HandleView returns the full filtered order list with stream liveness.
func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.viewResponse())
}

// HandleStats returns the aggregates recomputed from the latest snapshot.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, toStatsResponse(h.service.Stats()))
}

// HandleSearch sets the number/email/name search term.
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

// HandleGet returns one order from the latest snapshot.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOrderResponse(o))
}

// HandleTransition moves an order to the requested status. Lifecycle
// violations come back as 409 with no side effects.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Transition(ctx, id, models.Status(req.Status)); err != nil {
		h.logger.WarnContext(ctx, "order transition rejected",
			"error", err, "order_id", id, "target", req.Status, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.viewResponse())
}

// HandleUpdateAddress replaces the shipping address on one order.
func (h *Handler) HandleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AddressRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.UpdateAddress(ctx, id, req.ToAddress()); err != nil {
		h.logger.ErrorContext(ctx, "address update failed",
			"error", err, "order_id", id, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.viewResponse())
}

// HandleSelect marks a visible order for bulk deletion.
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.service.Select(id) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "order is not in the current view"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &SelectionResponse{Selected: h.service.Selected()})
}

// HandleDeselect removes an order from the selection.
func (h *Handler) HandleDeselect(w http.ResponseWriter, r *http.Request) {
	h.service.Deselect(chi.URLParam(r, "id"))
	httputil.WriteJSON(w, http.StatusOK, &SelectionResponse{Selected: h.service.Selected()})
}

// HandleBulkDelete deletes every selected order; partial failures come back
// as 207 with the per-id breakdown.
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
	w.Header().Set("Content-Disposition", `attachment; filename="commandes.csv"`)
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

func (h *Handler) viewResponse() *ViewResponse {
	liveness, err := h.service.Status()
	return toViewResponse(h.service.View(), h.service.Selected(), liveness, err)
}
