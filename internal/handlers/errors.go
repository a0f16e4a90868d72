package handlers

import (
	"errors"
	"net/http"

	"ticketmarket/internal/status"

	"github.com/pocketbase/pocketbase/apis"
)

// mapDomainError translates service sentinels into API errors. Anything
// unmapped becomes an opaque 500 so internals never leak.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, status.ErrOrderNotFound),
		errors.Is(err, status.ErrTicketNotFound),
		errors.Is(err, status.ErrTicketTypeNotFound),
		errors.Is(err, status.ErrEventNotFound):
		return apis.NewNotFoundError(err.Error(), nil)

	case errors.Is(err, status.ErrUnauthorized):
		return apis.NewForbiddenError("Access denied", nil)

	case errors.Is(err, status.ErrQuantityOutOfRange):
		return apis.NewBadRequestError(err.Error(), nil)

	case errors.Is(err, status.ErrInsufficientInventory),
		errors.Is(err, status.ErrAlreadyPaid),
		errors.Is(err, status.ErrAlreadyCancelled),
		errors.Is(err, status.ErrAlreadyRefunded),
		errors.Is(err, status.ErrNotPaid),
		errors.Is(err, status.ErrEventNotOnSale),
		errors.Is(err, status.ErrEventNotPublished),
		errors.Is(err, status.ErrEventStateConflict),
		errors.Is(err, status.ErrTicketAlreadyUsed),
		errors.Is(err, status.ErrTicketExpired),
		errors.Is(err, status.ErrTicketCancelled),
		errors.Is(err, status.ErrTicketNotActive),
		errors.Is(err, status.ErrHolderNotActive):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)

	default:
		return apis.NewInternalServerError("Something went wrong", nil)
	}
}
