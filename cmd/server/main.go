// Package main wires high-level dependencies, exposes the HTTP router, and
// keeps the server lifecycle small. Business logic lives in internal services
// packages.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/crypto/bcrypt"

	orderhandler "atelier/internal/orders/handler"
	orderservice "atelier/internal/orders/service"
	"atelier/internal/platform/config"
	"atelier/internal/platform/logger"
	"atelier/internal/platform/metrics"
	"atelier/internal/platform/tracer"
	reghandler "atelier/internal/registration/handler"
	regservice "atelier/internal/registration/service"
	"atelier/internal/seeder"
	"atelier/internal/session"
	"atelier/internal/store"
	httptransport "atelier/internal/transport/http"
)

// devPassword backs the login endpoint when no credential hash is configured.
// Demo only; set ATELIER_ADMIN_CREDENTIAL_HASH in production.
const devPassword = "atelier-admin"

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing atelier console",
		"addr", cfg.Addr,
		"registrations_page_size", cfg.RegistrationsPage,
	)

	m := metrics.New()
	var tr tracer.Tracer = tracer.NewNoop()
	if cfg.TracingEnabled {
		tr = tracer.NewOTel()
	}

	mem := store.NewMemory()
	seeder.New(mem, log).SeedAll()

	credentialHash := cfg.AdminCredentialHash
	if credentialHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(devPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Error("failed to hash dev credential", "error", err)
			os.Exit(1)
		}
		credentialHash = string(hash)
		log.Warn("no admin credential hash configured, using the dev password")
	}
	sessions := session.NewService(cfg.SessionSigningKey, credentialHash, cfg.SessionTTL,
		session.WithLogger(log))

	registrations := regservice.New(mem,
		regservice.WithLogger(log),
		regservice.WithMetrics(m),
		regservice.WithTracer(tr),
		regservice.WithPageSize(cfg.RegistrationsPage),
		regservice.WithNoticeTTL(cfg.NoticeTTL),
	)
	registrations.Start()
	defer registrations.Stop()

	orders := orderservice.New(mem,
		orderservice.WithLogger(log),
		orderservice.WithMetrics(m),
		orderservice.WithTracer(tr),
	)
	orders.Start()
	defer orders.Stop()

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Sessions:      sessions,
		Login:         session.NewHandler(sessions, log),
		Registrations: reghandler.New(registrations, log),
		Orders:        orderhandler.New(orders, log),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
