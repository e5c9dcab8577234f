package handler

import (
	"strings"
	"time"

	"atelier/internal/registration/models"
	"atelier/internal/registration/workflow"
	dErrors "atelier/pkg/domain-errors"
)

// HTTP Request DTOs - contain JSON tags for API serialization.
// These are converted to workflow/view inputs before processing.

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

type PageRequest struct {
	Page int `json:"page"`
}

func (r *PageRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Page < 1 {
		return dErrors.New(dErrors.CodeValidation, "page must be at least 1")
	}
	return nil
}

type FlowSearchRequest struct {
	Email string `json:"email"`
}

func (r *FlowSearchRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = models.NormalizeEmail(r.Email)
}

func (r *FlowSearchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	return nil
}

type SubmitRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Experience   string `json:"experience"`
	Expectations string `json:"expectations"`
	Seats        int    `json:"seats"`
}

func (r *SubmitRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Email = models.NormalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Experience = strings.TrimSpace(r.Experience)
	r.Expectations = strings.TrimSpace(r.Expectations)
}

// Validate only rejects the empty envelope; field-level validation is the
// workflow's job so the form can be retained on failure.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return nil
}

func (r *SubmitRequest) ToForm() workflow.Form {
	return workflow.Form{
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		Experience:   r.Experience,
		Expectations: r.Expectations,
		Seats:        r.Seats,
	}
}

type ConfirmRequest struct {
	Seats int `json:"seats"`
}

func (r *ConfirmRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return models.ValidateSeats(r.Seats)
}
