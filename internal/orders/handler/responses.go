package handler

import (
	"time"

	"atelier/internal/bulk"
	"atelier/internal/orders/models"
	"atelier/internal/orders/service"
	"atelier/internal/subscription"
	"atelier/internal/view"
)

type ItemResponse struct {
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

type AddressResponse struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type OrderResponse struct {
	ID            string          `json:"id"`
	Number        string          `json:"number"`
	FullName      string          `json:"full_name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Items         []ItemResponse  `json:"items"`
	Address       AddressResponse `json:"address"`
	Total         float64         `json:"total"`
	Status        string          `json:"status"`
	StatusDisplay string          `json:"status_display"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type ViewResponse struct {
	Items         []OrderResponse `json:"items"`
	TotalFiltered int             `json:"total_filtered"`
	Seq           uint64          `json:"seq"`
	Liveness      string          `json:"liveness"`
	LivenessError string          `json:"liveness_error,omitempty"`
	Selected      []string        `json:"selected"`
}

type StatsResponse struct {
	Total    int            `json:"total"`
	Revenue  float64        `json:"revenue"`
	ByStatus map[string]int `json:"by_status"`
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

// Response mapping functions - convert domain objects to HTTP DTOs

func toOrderResponse(o models.Order) OrderResponse {
	items := make([]ItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, ItemResponse{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount(),
		})
	}
	return OrderResponse{
		ID:       o.ID,
		Number:   o.Number,
		FullName: o.FullName,
		Email:    o.Email,
		Phone:    o.Phone,
		Items:    items,
		Address: AddressResponse{
			Street:     o.Address.Street,
			City:       o.Address.City,
			PostalCode: o.Address.PostalCode,
			Country:    o.Address.Country,
		},
		Total:         o.Total(),
		Status:        string(o.Status),
		StatusDisplay: o.Status.Display(),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toViewResponse(v view.View[models.Order], selected []string, liveness subscription.Liveness, livenessErr error) *ViewResponse {
	items := make([]OrderResponse, 0, len(v.Items))
	for _, o := range v.Items {
		items = append(items, toOrderResponse(o))
	}
	resp := &ViewResponse{
		Items:         items,
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

func toStatsResponse(s service.Stats) *StatsResponse {
	byStatus := make(map[string]int, len(s.ByStatus))
	for status, n := range s.ByStatus {
		byStatus[string(status)] = n
	}
	return &StatsResponse{
		Total:    s.Total,
		Revenue:  s.Revenue,
		ByStatus: byStatus,
	}
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
