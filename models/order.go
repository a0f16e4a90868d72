package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

// Terminal reports whether no forward transition is valid out of s.
func (s OrderStatus) Terminal() bool {
	return s == OrderCancelled || s == OrderRefunded
}

// CanTransition enforces the monotonic order lifecycle:
// pending -> paid|cancelled, paid -> refunded.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	switch s {
	case OrderPending:
		return to == OrderPaid || to == OrderCancelled
	case OrderPaid:
		return to == OrderRefunded
	default:
		return false
	}
}

// LineItem is one requested ticket-type/quantity pair, snapshotted into
// the order metadata at creation time together with the unit price.
type LineItem struct {
	TicketTypeID string  `json:"ticket_type_id"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
}

// Purchaser is the contact snapshot stamped onto materialized tickets.
// It is independent of the account holder.
type Purchaser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (p Purchaser) Empty() bool {
	return p.Name == "" && p.Email == "" && p.Phone == ""
}

// Merge fills blank contact fields from the account profile fallback.
func (p Purchaser) Merge(fallback Purchaser) Purchaser {
	if p.Name == "" {
		p.Name = fallback.Name
	}
	if p.Email == "" {
		p.Email = fallback.Email
	}
	if p.Phone == "" {
		p.Phone = fallback.Phone
	}
	return p
}

type Order struct {
	ID          string      `json:"id"`
	CustomerID  string      `json:"customer_id"`
	EventID     string      `json:"event_id"`
	TotalAmount float64     `json:"total_amount"`
	Status      OrderStatus `json:"status"`
	Items       []LineItem  `json:"items"`
	Purchaser   Purchaser   `json:"purchaser"`
	CreatedAt   time.Time   `json:"created_at"`
	PaidAt      *time.Time  `json:"paid_at,omitempty"`
	CancelledAt *time.Time  `json:"cancelled_at,omitempty"`
}

// OrderTotal aggregates price*quantity across items without float drift.
func OrderTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		price := decimal.NewFromFloat(it.UnitPrice)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
