package models

import (
	"strings"
	"time"

	"atelier/internal/store"
	dErrors "atelier/pkg/domain-errors"
)

// Seat bounds for one registration.
const (
	MinSeats = 1
	MaxSeats = 5
)

// Document field names in the registrations collection.
const (
	FieldEmail            = "email"
	FieldRegistrationDate = "registrationDate"
)

// Registration is one workshop registration. Email is the intended-unique
// key, normalized to lower case; uniqueness is enforced by the dedup workflow
// only, since the store offers no atomic constraint.
type Registration struct {
	ID               string
	Name             string
	Email            string
	Phone            string
	Experience       string
	Expectations     string
	Seats            int
	Present          *bool
	RegistrationDate time.Time
}

// IsPresent resolves the tri-state presence flag; unset counts as absent.
func (r *Registration) IsPresent() bool {
	return r.Present != nil && *r.Present
}

// NormalizeEmail lower-cases and trims an email for use as the dedup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateSeats checks the seat count against the allowed range.
func ValidateSeats(seats int) error {
	if seats < MinSeats || seats > MaxSeats {
		return dErrors.New(dErrors.CodeValidation, "seats must be between 1 and 5")
	}
	return nil
}

// New builds a registration for the new-participant path: every field
// required, seats bounded, email normalized, present from the start.
func New(name, email, phone, experience, expectations string, seats int, now time.Time) (*Registration, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	phone = strings.TrimSpace(phone)
	experience = strings.TrimSpace(experience)
	expectations = strings.TrimSpace(expectations)

	if name == "" || email == "" || phone == "" || experience == "" || expectations == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "all fields are required")
	}
	if err := ValidateSeats(seats); err != nil {
		return nil, err
	}

	present := true
	return &Registration{
		Name:             name,
		Email:            email,
		Phone:            phone,
		Experience:       experience,
		Expectations:     expectations,
		Seats:            seats,
		Present:          &present,
		RegistrationDate: now,
	}, nil
}

// ToDocument maps a registration to its stored form. The id is assigned by
// the store on create and is not part of the document body.
func ToDocument(r *Registration) store.Document {
	doc := store.Document{
		"name":                r.Name,
		FieldEmail:            r.Email,
		"phone":               r.Phone,
		"experience":          r.Experience,
		"expectations":        r.Expectations,
		"seats":               r.Seats,
		FieldRegistrationDate: r.RegistrationDate,
	}
	if r.Present != nil {
		doc["present"] = *r.Present
	}
	return doc
}

// FromDocument maps a stored document back to a registration. Unknown or
// missing fields degrade to zero values; the snapshot stays usable even when
// older documents lack newer fields.
func FromDocument(doc store.Document) Registration {
	r := Registration{
		ID:           docString(doc, "id"),
		Name:         docString(doc, "name"),
		Email:        docString(doc, FieldEmail),
		Phone:        docString(doc, "phone"),
		Experience:   docString(doc, "experience"),
		Expectations: docString(doc, "expectations"),
		Seats:        docInt(doc, "seats"),
	}
	if v, ok := doc["present"].(bool); ok {
		r.Present = &v
	}
	if v, ok := doc[FieldRegistrationDate].(time.Time); ok {
		r.RegistrationDate = v
	}
	return r
}

// FromDocuments maps a full snapshot.
func FromDocuments(docs []store.Document) []Registration {
	out := make([]Registration, 0, len(docs))
	for _, doc := range docs {
		out = append(out, FromDocument(doc))
	}
	return out
}

func docString(doc store.Document, key string) string {
	v, _ := doc[key].(string)
	return v
}

func docInt(doc store.Document, key string) int {
	switch v := doc[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
