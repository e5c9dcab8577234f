package handler

import (
	"strings"
	"time"

	"atelier/internal/orders/models"
	dErrors "atelier/pkg/domain-errors"
)

// HTTP Request DTOs - contain JSON tags for API serialization.

type SearchRequest struct {
	Term string `json:"term"`
}

func (r *SearchRequest) Normalize() {
	if r == nil {
		return
	}
	r.Term = strings.TrimSpace(r.Term)
}

type DateFilterRequest struct {
	// Day is a local calendar day as "2006-01-02"; empty clears the filter.
	Day string `json:"day"`
}

func (r *DateFilterRequest) Normalize() {
	if r == nil {
		return
	}
	r.Day = strings.TrimSpace(r.Day)
}

func (r *DateFilterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Day == "" {
		return nil
	}
	if _, err := time.ParseInLocation("2006-01-02", r.Day, time.Local); err != nil {
		return dErrors.New(dErrors.CodeValidation, "day must be formatted as YYYY-MM-DD")
	}
	return nil
}

// Parsed returns the filter day in local time, or nil to clear.
func (r *DateFilterRequest) Parsed() *time.Time {
	if r.Day == "" {
		return nil
	}
	day, err := time.ParseInLocation("2006-01-02", r.Day, time.Local)
	if err != nil {
		return nil
	}
	return &day
}

type TransitionRequest struct {
	Status string `json:"status"`
}

func (r *TransitionRequest) Normalize() {
	if r == nil {
		return
	}
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
}

func (r *TransitionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if _, err := models.ParseStatus(r.Status); err != nil {
		return err
	}
	return nil
}

type AddressRequest struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (r *AddressRequest) Normalize() {
	if r == nil {
		return
	}
	r.Street = strings.TrimSpace(r.Street)
	r.City = strings.TrimSpace(r.City)
	r.PostalCode = strings.TrimSpace(r.PostalCode)
	r.Country = strings.TrimSpace(r.Country)
}

func (r *AddressRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return r.ToAddress().Validate()
}

func (r *AddressRequest) ToAddress() models.Address {
	return models.Address{
		Street:     r.Street,
		City:       r.City,
		PostalCode: r.PostalCode,
		Country:    r.Country,
	}
}
