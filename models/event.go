package models

import (
	"time"
)

type EventStatus string

const (
	EventDraft       EventStatus = "draft"
	EventPublished   EventStatus = "published"
	EventUnpublished EventStatus = "unpublished"
	EventEnded       EventStatus = "ended"
	EventCancelled   EventStatus = "cancelled"
	EventRejected    EventStatus = "rejected"
)

type Event struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Description string      `db:"description" json:"description"`
	Venue       string      `db:"venue" json:"venue"`
	OrganizerID string      `db:"organizer_id" json:"organizer_id"`
	StartTime   time.Time   `json:"start_time"`
	EndTime     time.Time   `json:"end_time"`
	ReleaseDate time.Time   `json:"release_date"`
	Status      EventStatus `db:"status" json:"status"`
}

// OnSale reports whether orders may be created against the event.
func (s EventStatus) OnSale() bool {
	return s == EventPublished
}

// SweepEndable reports whether the event sweep may transition the event
// to ended once its end time has passed.
func (s EventStatus) SweepEndable() bool {
	return s == EventPublished || s == EventUnpublished
}

// TicketType is the sellable unit of capacity under one event.
// remaining = initial_quantity - sold_quantity is derived, never stored.
type TicketType struct {
	ID              string  `db:"id" json:"id"`
	EventID         string  `db:"event_id" json:"event_id"`
	Name            string  `db:"name" json:"name"`
	Price           float64 `db:"price" json:"price"`
	InitialQuantity int     `db:"initial_quantity" json:"initial_quantity"`
	SoldQuantity    int     `db:"sold_quantity" json:"sold_quantity"`
	MinPerOrder     int     `db:"min_per_order" json:"min_per_order"`
	MaxPerOrder     int     `db:"max_per_order" json:"max_per_order"`
}

func (t *TicketType) Remaining() int {
	return t.InitialQuantity - t.SoldQuantity
}

// QuantityAllowed checks the per-order purchase bounds. A zero max means
// no upper bound is configured.
func (t *TicketType) QuantityAllowed(qty int) bool {
	if qty <= 0 {
		return false
	}
	if t.MinPerOrder > 0 && qty < t.MinPerOrder {
		return false
	}
	if t.MaxPerOrder > 0 && qty > t.MaxPerOrder {
		return false
	}
	return true
}
