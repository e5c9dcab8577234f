package models

import (
	"time"

	"atelier/internal/store"
	dErrors "atelier/pkg/domain-errors"
)

// Document field names in the orders collection.
const (
	FieldStatus    = "status"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Status is an order's lifecycle state, stored as the English token.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// transitions is the full forward lifecycle; cancellation is reachable from
// every non-terminal state.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// displays maps each status to its console label. The mapping is a bijection;
// Display and ParseDisplay round-trip.
var displays = map[Status]string{
	StatusPending:    "En attente",
	StatusProcessing: "En cours",
	StatusShipped:    "Expédiée",
	StatusDelivered:  "Livrée",
	StatusCancelled:  "Annulée",
}

// ParseStatus validates a stored status token.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown order status: "+s)
	}
	return st, nil
}

// CanTransitionTo reports whether the lifecycle permits moving to target.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Display returns the console label for the status.
func (s Status) Display() string {
	if label, ok := displays[s]; ok {
		return label
	}
	return string(s)
}

// ParseDisplay resolves a console label back to its status.
func ParseDisplay(label string) (Status, error) {
	for st, l := range displays {
		if l == label {
			return st, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown status label: "+label)
}

// Item is one order line. The line amount is always derived, never stored.
type Item struct {
	ProductName string
	Quantity    int
	UnitPrice   float64
}

// Amount returns the line total.
func (i Item) Amount() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

// Validate checks the line against its bounds.
func (i Item) Validate() error {
	if i.ProductName == "" {
		return dErrors.New(dErrors.CodeValidation, "product name is required")
	}
	if i.Quantity < 1 {
		return dErrors.New(dErrors.CodeValidation, "quantity must be at least 1")
	}
	if i.UnitPrice < 0 {
		return dErrors.New(dErrors.CodeValidation, "unit price cannot be negative")
	}
	return nil
}

// Address is the order's shipping address.
type Address struct {
	Street     string
	City       string
	PostalCode string
	Country    string
}

// Validate checks the address fields needed for shipping.
func (a Address) Validate() error {
	if a.Street == "" || a.City == "" || a.PostalCode == "" {
		return dErrors.New(dErrors.CodeValidation, "street, city and postal code are required")
	}
	return nil
}

// Display renders the address on one line, the way exports show it.
func (a Address) Display() string {
	out := a.Street + " " + a.PostalCode + " " + a.City
	if a.Country != "" {
		out += " " + a.Country
	}
	return out
}

// Order is one boutique order as projected from a snapshot.
type Order struct {
	ID        string
	Number    string
	FullName  string
	Email     string
	Phone     string
	Items     []Item
	Address   Address
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total recomputes the order amount from its lines. Totals are never read
// from the document: a stale stored amount cannot drift from the lines.
func (o *Order) Total() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Amount()
	}
	return total
}

// ToDocument maps an order to its stored form. The id is assigned by the
// store on create and is not part of the document body.
func ToDocument(o *Order) store.Document {
	items := make([]any, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, map[string]any{
			"productName": item.ProductName,
			"quantity":    item.Quantity,
			"unitPrice":   item.UnitPrice,
		})
	}
	return store.Document{
		"number":       o.Number,
		"fullName":     o.FullName,
		"email":        o.Email,
		"phone":        o.Phone,
		"items":        items,
		"address":      addressToMap(o.Address),
		FieldStatus:    string(o.Status),
		FieldCreatedAt: o.CreatedAt,
		FieldUpdatedAt: o.UpdatedAt,
	}
}

func addressToMap(a Address) map[string]any {
	return map[string]any{
		"street":     a.Street,
		"city":       a.City,
		"postalCode": a.PostalCode,
		"country":    a.Country,
	}
}

// FromDocument maps a stored document back to an order. Unknown or missing
// fields degrade to zero values; an unrecognized status falls back to pending
// so the view never drops an order it cannot classify.
func FromDocument(doc store.Document) Order {
	o := Order{
		ID:       docString(doc, "id"),
		Number:   docString(doc, "number"),
		FullName: docString(doc, "fullName"),
		Email:    docString(doc, "email"),
		Phone:    docString(doc, "phone"),
	}
	status, err := ParseStatus(docString(doc, FieldStatus))
	if err != nil {
		status = StatusPending
	}
	o.Status = status

	if v, ok := doc[FieldCreatedAt].(time.Time); ok {
		o.CreatedAt = v
	}
	if v, ok := doc[FieldUpdatedAt].(time.Time); ok {
		o.UpdatedAt = v
	}
	if raw, ok := doc["items"].([]any); ok {
		for _, entry := range raw {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			o.Items = append(o.Items, Item{
				ProductName: mapString(m, "productName"),
				Quantity:    mapInt(m, "quantity"),
				UnitPrice:   mapFloat(m, "unitPrice"),
			})
		}
	}
	if m, ok := doc["address"].(map[string]any); ok {
		o.Address = Address{
			Street:     mapString(m, "street"),
			City:       mapString(m, "city"),
			PostalCode: mapString(m, "postalCode"),
			Country:    mapString(m, "country"),
		}
	}
	return o
}

// FromDocuments maps a full snapshot.
func FromDocuments(docs []store.Document) []Order {
	out := make([]Order, 0, len(docs))
	for _, doc := range docs {
		out = append(out, FromDocument(doc))
	}
	return out
}

func docString(doc store.Document, key string) string {
	v, _ := doc[key].(string)
	return v
}

func mapString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func mapInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func mapFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
