// Package httptransport assembles the console's HTTP surface: public login,
// session-guarded admin routes, and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	orderhandler "atelier/internal/orders/handler"
	reghandler "atelier/internal/registration/handler"
	"atelier/internal/session"
	request "atelier/pkg/platform/middleware/request"
)

const maxBodyBytes = 1 << 20

// Deps carries the wired handlers; main builds them, the router mounts them.
type Deps struct {
	Logger        *slog.Logger
	Sessions      *session.Service
	Login         *session.Handler
	Registrations *reghandler.Handler
	Orders        *orderhandler.Handler
}

// NewRouter wires middleware and routes. Everything under /admin except login
// requires a valid session.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(request.BodyLimit(maxBodyBytes))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	d.Login.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(session.Guard(d.Sessions))
		d.Registrations.Register(r)
		d.Orders.Register(r)
	})

	return r
}
