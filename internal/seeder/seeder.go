// Package seeder populates the in-memory store with demo data so the console
// has something to render out of the box.
package seeder

import (
	"fmt"
	"log/slog"
	"time"

	ordermodels "atelier/internal/orders/models"
	regmodels "atelier/internal/registration/models"
	"atelier/internal/store"
)

// Seeder populates the demo collections.
type Seeder struct {
	store  *store.Memory
	logger *slog.Logger
	now    func() time.Time
}

// New creates a seeder over the in-memory store.
func New(st *store.Memory, logger *slog.Logger) *Seeder {
	return &Seeder{store: st, logger: logger, now: time.Now}
}

// SeedAll populates both collections with demo data.
func (s *Seeder) SeedAll() {
	s.seedRegistrations()
	s.seedOrders()
	s.logger.Info("demo data seeded")
}

func (s *Seeder) seedRegistrations() {
	now := s.now()
	participants := []struct {
		name, email string
		seats       int
		present     bool
		age         time.Duration
	}{
		{"Jeanne Martin", "jeanne.martin@mail.fr", 2, true, 2 * time.Hour},
		{"Paul Lefevre", "paul.lefevre@mail.fr", 1, false, 26 * time.Hour},
		{"Claire Dubois", "claire.dubois@mail.fr", 4, true, 3 * 24 * time.Hour},
		{"Antoine Moreau", "antoine.moreau@mail.fr", 3, false, 5 * 24 * time.Hour},
		{"Lucie Bernard", "lucie.bernard@mail.fr", 1, true, 8 * 24 * time.Hour},
	}
	for _, p := range participants {
		s.store.Seed(store.CollectionRegistrations, store.Document{
			"name":                          p.name,
			regmodels.FieldEmail:            p.email,
			"phone":                         "0600000000",
			"experience":                    "débutant",
			"expectations":                  "découvrir le tournage",
			"seats":                         p.seats,
			"present":                       p.present,
			regmodels.FieldRegistrationDate: now.Add(-p.age),
		})
	}
}

func (s *Seeder) seedOrders() {
	now := s.now()
	orders := []struct {
		status ordermodels.Status
		items  []any
		age    time.Duration
	}{
		{ordermodels.StatusPending, lines("Bol en grès", 2, 18.5), time.Hour},
		{ordermodels.StatusProcessing, lines("Vase tourné", 1, 42), 20 * time.Hour},
		{ordermodels.StatusShipped, lines("Assiette émaillée", 6, 12), 2 * 24 * time.Hour},
		{ordermodels.StatusDelivered, lines("Tasse à café", 4, 9.5), 6 * 24 * time.Hour},
		{ordermodels.StatusCancelled, lines("Pichet", 1, 35), 9 * 24 * time.Hour},
	}
	for i, o := range orders {
		created := now.Add(-o.age)
		s.store.Seed(store.CollectionOrders, store.Document{
			"number":   fmt.Sprintf("CMD-%04d", i+1),
			"fullName": "Client Démo",
			"email":    fmt.Sprintf("client%d@mail.fr", i+1),
			"phone":    "0611111111",
			"items":    o.items,
			"address": map[string]any{
				"street":     "12, rue des Lilas",
				"city":       "Lyon",
				"postalCode": "69003",
				"country":    "France",
			},
			ordermodels.FieldStatus:    string(o.status),
			ordermodels.FieldCreatedAt: created,
			ordermodels.FieldUpdatedAt: created,
		})
	}
}

func lines(product string, quantity int, unitPrice float64) []any {
	return []any{
		map[string]any{"productName": product, "quantity": quantity, "unitPrice": unitPrice},
	}
}
