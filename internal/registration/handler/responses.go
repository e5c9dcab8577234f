package handler

import (
	"time"

	"atelier/internal/bulk"
	"atelier/internal/registration/models"
	"atelier/internal/registration/service"
	"atelier/internal/subscription"
	"atelier/internal/view"
)

type RegistrationResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Experience       string    `json:"experience,omitempty"`
	Expectations     string    `json:"expectations,omitempty"`
	Seats            int       `json:"seats"`
	Present          bool      `json:"present"`
	RegistrationDate time.Time `json:"registration_date"`
}

type ViewResponse struct {
	Items         []RegistrationResponse `json:"items"`
	Page          int                    `json:"page"`
	PageCount     int                    `json:"page_count"`
	TotalFiltered int                    `json:"total_filtered"`
	Seq           uint64                 `json:"seq"`
	Liveness      string                 `json:"liveness"`
	LivenessError string                 `json:"liveness_error,omitempty"`
	Selected      []string               `json:"selected"`
}

type SelectionResponse struct {
	Selected []string `json:"selected"`
}

type BulkFailureResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type BulkReportResponse struct {
	Operation string                `json:"operation"`
	Attempted int                   `json:"attempted"`
	Succeeded int                   `json:"succeeded"`
	Failures  []BulkFailureResponse `json:"failures,omitempty"`
}

type NoticeResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

type FlowResponse struct {
	State  string                `json:"state"`
	Form   FormResponse          `json:"form"`
	Match  *RegistrationResponse `json:"match,omitempty"`
	Notice *NoticeResponse       `json:"notice,omitempty"`
}

type FormResponse struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Experience   string `json:"experience"`
	Expectations string `json:"expectations"`
	Seats        int    `json:"seats"`
}

// Response mapping functions - convert domain objects to HTTP DTOs

func toRegistrationResponse(r models.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:               r.ID,
		Name:             r.Name,
		Email:            r.Email,
		Phone:            r.Phone,
		Experience:       r.Experience,
		Expectations:     r.Expectations,
		Seats:            r.Seats,
		Present:          r.IsPresent(),
		RegistrationDate: r.RegistrationDate,
	}
}

func toViewResponse(v view.View[models.Registration], selected []string, liveness subscription.Liveness, livenessErr error) *ViewResponse {
	items := make([]RegistrationResponse, 0, len(v.Items))
	for _, r := range v.Items {
		items = append(items, toRegistrationResponse(r))
	}
	resp := &ViewResponse{
		Items:         items,
		Page:          v.Page,
		PageCount:     v.PageCount,
		TotalFiltered: v.TotalFiltered,
		Seq:           v.Seq,
		Liveness:      string(liveness),
		Selected:      selected,
	}
	if livenessErr != nil {
		resp.LivenessError = livenessErr.Error()
	}
	return resp
}

func toBulkReportResponse(r bulk.Report) *BulkReportResponse {
	resp := &BulkReportResponse{
		Operation: string(r.Operation),
		Attempted: r.Attempted,
		Succeeded: r.Attempted - len(r.Failures),
	}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, BulkFailureResponse{ID: f.ID, Error: f.Err.Error()})
	}
	return resp
}

func toFlowResponse(f service.FlowState) *FlowResponse {
	resp := &FlowResponse{
		State: string(f.State),
		Form: FormResponse{
			Name:         f.Form.Name,
			Email:        f.Form.Email,
			Phone:        f.Form.Phone,
			Experience:   f.Form.Experience,
			Expectations: f.Form.Expectations,
			Seats:        f.Form.Seats,
		},
	}
	if f.Match != nil {
		match := toRegistrationResponse(*f.Match)
		resp.Match = &match
	}
	if f.Notice != nil {
		resp.Notice = &NoticeResponse{Message: f.Notice.Message, ExpiresAt: f.Notice.ExpiresAt}
	}
	return resp
}
