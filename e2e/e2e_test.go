// Package e2e exercises the console through its HTTP surface: login, live
// views, the dedup registration flow, the order lifecycle, and bulk deletion,
// against a seeded in-memory backend.
package e2e

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	orderhandler "atelier/internal/orders/handler"
	orderservice "atelier/internal/orders/service"
	reghandler "atelier/internal/registration/handler"
	regservice "atelier/internal/registration/service"
	"atelier/internal/seeder"
	"atelier/internal/session"
	"atelier/internal/store"
	httptransport "atelier/internal/transport/http"
)

const adminPassword = "atelier-admin"

type ConsoleSuite struct {
	suite.Suite
	server        *httptest.Server
	token         string
	registrations *regservice.Service
	orders        *orderservice.Service
}

func (s *ConsoleSuite) SetupSuite() {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	mem := store.NewMemory()
	seeder.New(mem, logger).SeedAll()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	s.Require().NoError(err)
	sessions := session.NewService("e2e-signing-key", string(hash), time.Hour,
		session.WithLogger(logger))

	s.registrations = regservice.New(mem, regservice.WithLogger(logger))
	s.registrations.Start()
	s.orders = orderservice.New(mem, orderservice.WithLogger(logger))
	s.orders.Start()

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        logger,
		Sessions:      sessions,
		Login:         session.NewHandler(sessions, logger),
		Registrations: reghandler.New(s.registrations, logger),
		Orders:        orderhandler.New(s.orders, logger),
	})
	s.server = httptest.NewServer(router)

	s.Require().Eventually(func() bool {
		return s.registrations.View().TotalFiltered == 5 && s.orders.View().TotalFiltered == 5
	}, time.Second, 5*time.Millisecond)
}

func (s *ConsoleSuite) TearDownSuite() {
	s.server.Close()
	s.registrations.Stop()
	s.orders.Stop()
}

func TestConsoleSuite(t *testing.T) {
	suite.Run(t, new(ConsoleSuite))
}

func (s *ConsoleSuite) do(method, path, body string) (*http.Response, map[string]any) {
	req, err := http.NewRequest(method, s.server.URL+path, strings.NewReader(body))
	s.Require().NoError(err)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)

	var decoded map[string]any
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	resp.Body.Close()
	return resp, decoded
}

func (s *ConsoleSuite) Test01_LoginRequired() {
	resp, body := s.do(http.MethodGet, "/admin/registrations", "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("unauthorized", body["error"])
}

func (s *ConsoleSuite) Test02_LoginIssuesSession() {
	resp, body := s.do(http.MethodPost, "/admin/login", `{"password":"`+adminPassword+`"}`)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	s.Require().NotEmpty(token)
	s.token = token
}

func (s *ConsoleSuite) Test03_RegistrationsViewIsLive() {
	resp, body := s.do(http.MethodGet, "/admin/registrations", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("live", body["liveness"])
	s.EqualValues(5, body["total_filtered"])
}

func (s *ConsoleSuite) Test04_DedupFlowConfirmsExisting() {
	resp, _ := s.do(http.MethodPost, "/admin/registrations/flow", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, body := s.do(http.MethodPost, "/admin/registrations/flow/search", `{"email":"JEANNE.MARTIN@mail.fr"}`)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("confirming_presence", body["state"])

	resp, _ = s.do(http.MethodPost, "/admin/registrations/flow/confirm", `{"seats":3}`)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	s.Require().Eventually(func() bool {
		for _, r := range s.registrations.View().Items {
			if r.Email == "jeanne.martin@mail.fr" && r.Seats == 3 {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func (s *ConsoleSuite) Test05_OrderLifecycle() {
	resp, body := s.do(http.MethodGet, "/admin/orders", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	items, _ := body["items"].([]any)
	s.Require().NotEmpty(items)

	var pendingID string
	for _, it := range items {
		m := it.(map[string]any)
		if m["status"] == "pending" {
			pendingID = m["id"].(string)
			break
		}
	}
	s.Require().NotEmpty(pendingID)

	// Skipping a step is rejected with no effect.
	resp, _ = s.do(http.MethodPut, "/admin/orders/"+pendingID+"/status", `{"status":"delivered"}`)
	s.Equal(http.StatusConflict, resp.StatusCode)

	resp, _ = s.do(http.MethodPut, "/admin/orders/"+pendingID+"/status", `{"status":"processing"}`)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
}

func (s *ConsoleSuite) Test06_StatsRecompute() {
	resp, body := s.do(http.MethodGet, "/admin/orders/stats", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.EqualValues(5, body["total"])
	revenue, _ := body["revenue"].(float64)
	s.Greater(revenue, 0.0)
}

func (s *ConsoleSuite) Test07_BulkDeleteClearsSelection() {
	var targetID string
	for _, r := range s.registrations.View().Items {
		if r.Email == "paul.lefevre@mail.fr" {
			targetID = r.ID
		}
	}
	s.Require().NotEmpty(targetID)

	resp, _ := s.do(http.MethodPut, "/admin/registrations/selection/"+targetID, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, body := s.do(http.MethodPost, "/admin/registrations/bulk-delete", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.EqualValues(1, body["attempted"])
	s.Empty(s.registrations.Selected())
}

func (s *ConsoleSuite) Test08_ExportsCoverFilteredSet() {
	req, err := http.NewRequest(http.MethodGet, s.server.URL+"/admin/registrations/export/csv", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	s.Contains(buf.String(), "Name,Email,Phone,Seats,RegistrationDate,Present")
	s.Contains(buf.String(), "Oui")
}
