package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"atelier/internal/orders/models"
	"atelier/internal/orders/service"
	"atelier/internal/store"
)

var base = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type HandlerSuite struct {
	suite.Suite
	router http.Handler
	mem    *store.Memory
	svc    *service.Service
}

func (s *HandlerSuite) SetupTest() {
	s.mem = store.NewMemory()
	s.seedOrder("o1", "CMD-0001", models.StatusPending, 40)
	s.seedOrder("o2", "CMD-0002", models.StatusShipped, 60)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.svc = service.New(s.mem, service.WithLogger(logger))
	s.svc.Start()

	h := New(s.svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r

	s.Require().Eventually(func() bool {
		return s.svc.View().TotalFiltered == 2
	}, time.Second, 5*time.Millisecond)
}

func (s *HandlerSuite) TearDownTest() {
	s.svc.Stop()
}

func (s *HandlerSuite) seedOrder(id, number string, status models.Status, total float64) {
	s.mem.Seed(store.CollectionOrders, store.Document{
		"id":       id,
		"number":   number,
		"fullName": "Jane Doe",
		"email":    "jane@mail.com",
		"phone":    "0601020304",
		"items": []any{
			map[string]any{"productName": "Bol", "quantity": 1, "unitPrice": total},
		},
		"address": map[string]any{
			"street": "12, rue des Lilas", "city": "Lyon", "postalCode": "69003", "country": "France",
		},
		models.FieldStatus:    string(status),
		models.FieldCreatedAt: base,
		models.FieldUpdatedAt: base,
	})
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestViewListsAllOrders() {
	rec := s.do(http.MethodGet, "/admin/orders", "")
	s.Equal(http.StatusOK, rec.Code)

	var resp ViewResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("live", resp.Liveness)
	s.Len(resp.Items, 2)
}

func (s *HandlerSuite) TestGetIncludesDerivedTotalAndDisplay() {
	rec := s.do(http.MethodGet, "/admin/orders/o2", "")
	s.Equal(http.StatusOK, rec.Code)

	var resp OrderResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("CMD-0002", resp.Number)
	s.InDelta(60.0, resp.Total, 0.001)
	s.Equal("Expédiée", resp.StatusDisplay)
}

func (s *HandlerSuite) TestTransitionAccepted() {
	rec := s.do(http.MethodPut, "/admin/orders/o1/status", `{"status":"processing"}`)
	s.Equal(http.StatusOK, rec.Code)

	s.Require().Eventually(func() bool {
		o, err := s.svc.Get("o1")
		return err == nil && o.Status == models.StatusProcessing
	}, time.Second, 5*time.Millisecond)
}

func (s *HandlerSuite) TestTransitionRejectedWithConflict() {
	rec := s.do(http.MethodPut, "/admin/orders/o1/status", `{"status":"delivered"}`)
	s.Equal(http.StatusConflict, rec.Code)

	o, err := s.svc.Get("o1")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, o.Status, "rejection has no side effects")
}

func (s *HandlerSuite) TestTransitionUnknownStatusRejected() {
	rec := s.do(http.MethodPut, "/admin/orders/o1/status", `{"status":"returned"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestStats() {
	rec := s.do(http.MethodGet, "/admin/orders/stats", "")
	s.Equal(http.StatusOK, rec.Code)

	var resp StatsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(2, resp.Total)
	s.InDelta(100.0, resp.Revenue, 0.001)
	s.Equal(1, resp.ByStatus["pending"])
}

func (s *HandlerSuite) TestAddressUpdateValidated() {
	rec := s.do(http.MethodPut, "/admin/orders/o1/address", `{"street":"","city":"Paris","postal_code":"75011"}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/admin/orders/o1/address",
		`{"street":"3 rue Neuve","city":"Paris","postal_code":"75011","country":"France"}`)
	s.Equal(http.StatusOK, rec.Code)

	s.Require().Eventually(func() bool {
		o, err := s.svc.Get("o1")
		return err == nil && o.Address.City == "Paris"
	}, time.Second, 5*time.Millisecond)
}

func (s *HandlerSuite) TestBulkDeleteClearsSelection() {
	s.Equal(http.StatusOK, s.do(http.MethodPut, "/admin/orders/selection/o1", "").Code)
	s.Equal(http.StatusOK, s.do(http.MethodPut, "/admin/orders/selection/o2", "").Code)

	rec := s.do(http.MethodPost, "/admin/orders/bulk-delete", "")
	s.Equal(http.StatusOK, rec.Code)

	var resp BulkReportResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(2, resp.Attempted)
	s.Equal(2, resp.Succeeded)
	s.Empty(s.svc.Selected())
}

func (s *HandlerSuite) TestExportCSV() {
	rec := s.do(http.MethodGet, "/admin/orders/export/csv", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Number,Client,Email,Phone,Address,Total,Status,Date")
	s.Contains(rec.Body.String(), "En attente")
}
