package models

import (
	"time"

	"ticketmarket/internal/status"
)

type TicketStatus string

const (
	TicketAvailable TicketStatus = "available"
	TicketReserved  TicketStatus = "reserved"
	TicketActive    TicketStatus = "active"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
	TicketExpired   TicketStatus = "expired"
	TicketRefunded  TicketStatus = "refunded"
	TicketBlocked   TicketStatus = "blocked"
)

// Ticket is one admission unit, created only when its order is paid.
// Event and ticket-type ids are denormalized so cascades never join
// through orders.
type Ticket struct {
	ID           string       `db:"id" json:"id"`
	OrderID      string       `db:"order_id" json:"order_id"`
	TicketTypeID string       `db:"ticket_type_id" json:"ticket_type_id"`
	EventID      string       `db:"event_id" json:"event_id"`
	UniqueCode   string       `db:"unique_code" json:"unique_code"`
	Status       TicketStatus `db:"status" json:"status"`
	SeatNumber   string       `db:"seat_number" json:"seat_number,omitempty"`
	HolderName   string       `db:"holder_name" json:"holder_name"`
	HolderEmail  string       `db:"holder_email" json:"holder_email"`
	HolderPhone  string       `db:"holder_phone" json:"holder_phone"`
	CheckedInAt  *time.Time   `json:"checked_in_at,omitempty"`
}

// CascadeSources lists the statuses a cancel or expire cascade moves out
// of. A restore cascade only ever moves tickets out of cancelled, so a
// ticket that independently reached used or expired stays put.
var CascadeSources = []TicketStatus{TicketActive, TicketAvailable, TicketReserved}

// CheckInDenial maps a ticket's current status to the rejection reported
// to gate staff. The precedence (used, expired, cancelled, anything else
// non-active) is fixed; callers evaluate event and holder conditions only
// after this returns nil.
func CheckInDenial(s TicketStatus) error {
	switch s {
	case TicketUsed:
		return status.ErrTicketAlreadyUsed
	case TicketExpired:
		return status.ErrTicketExpired
	case TicketCancelled:
		return status.ErrTicketCancelled
	case TicketActive:
		return nil
	default:
		return status.ErrTicketNotActive
	}
}
