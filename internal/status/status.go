package status

import "errors"

// Not-found family. Surfaced as 404-equivalents, never retried.
var (
	ErrOrderNotFound      = errors.New("order: order not found")
	ErrTicketNotFound     = errors.New("ticket: ticket not found")
	ErrTicketTypeNotFound = errors.New("ticket type: ticket type not found")
	ErrEventNotFound      = errors.New("event: event not found")
)

// Conflict / invalid-state family. The requested transition is not
// legal from the row's current status.
var (
	ErrAlreadyPaid      = errors.New("order: already paid")
	ErrAlreadyCancelled = errors.New("order: already cancelled")
	ErrAlreadyRefunded  = errors.New("order: already refunded")
	ErrNotPaid          = errors.New("order: order is not paid")

	ErrTicketAlreadyUsed = errors.New("ticket: already used")
	ErrTicketExpired     = errors.New("ticket: ticket expired")
	ErrTicketCancelled   = errors.New("ticket: ticket cancelled")
	ErrTicketNotActive   = errors.New("ticket: ticket not active")

	ErrEventNotOnSale     = errors.New("event: event not on sale")
	ErrEventNotPublished  = errors.New("event: event not published")
	ErrEventStateConflict = errors.New("event: transition not allowed from current status")
	ErrHolderNotActive    = errors.New("customer: account not active")
	ErrQuantityOutOfRange = errors.New("order: quantity out of allowed range")
)

// Resource exhaustion. Caller must re-query availability, no retry.
var ErrInsufficientInventory = errors.New("inventory: insufficient inventory")

// ErrReleaseUnderflow indicates a release that would push sold_quantity
// below zero. That is a logic fault, not a user error.
var ErrReleaseUnderflow = errors.New("inventory: release exceeds sold quantity")

// Integrity violations on gateway callbacks. These never confirm an order.
var (
	ErrInvalidSignature = errors.New("gateway: invalid signature")
	ErrInvalidAmount    = errors.New("gateway: amount mismatch")
	ErrMalformedRef     = errors.New("gateway: malformed transaction reference")
)

// ErrUnauthorized is returned when the acting principal does not own the
// resource the operation is scoped to.
var ErrUnauthorized = errors.New("auth: not allowed")
