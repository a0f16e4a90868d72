package models

import (
	"testing"

	"ticketmarket/internal/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_CanTransition(t *testing.T) {
	// pending fans out, paid only refunds, terminals stay terminal
	assert.True(t, OrderPending.CanTransition(OrderPaid))
	assert.True(t, OrderPending.CanTransition(OrderCancelled))
	assert.False(t, OrderPending.CanTransition(OrderRefunded))

	assert.True(t, OrderPaid.CanTransition(OrderRefunded))
	assert.False(t, OrderPaid.CanTransition(OrderCancelled))
	assert.False(t, OrderPaid.CanTransition(OrderPending))

	for _, terminal := range []OrderStatus{OrderCancelled, OrderRefunded} {
		for _, to := range []OrderStatus{OrderPending, OrderPaid, OrderCancelled, OrderRefunded} {
			assert.False(t, terminal.CanTransition(to), "%s -> %s must be rejected", terminal, to)
		}
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.False(t, OrderPending.Terminal())
	assert.False(t, OrderPaid.Terminal())
	assert.True(t, OrderCancelled.Terminal())
	assert.True(t, OrderRefunded.Terminal())
}

func TestOrderTotal(t *testing.T) {
	items := []LineItem{
		{TicketTypeID: "tt1", Quantity: 2, UnitPrice: 10},
		{TicketTypeID: "tt2", Quantity: 3, UnitPrice: 19.99},
	}

	total := OrderTotal(items)
	assert.Equal(t, "79.97", total.StringFixed(2))
}

func TestOrderTotal_Empty(t *testing.T) {
	assert.True(t, OrderTotal(nil).IsZero())
}

func TestPurchaser_Merge(t *testing.T) {
	account := Purchaser{Name: "Alice Doe", Email: "alice@example.com", Phone: "555-0100"}

	// blank fields fall back to the account profile
	merged := Purchaser{Name: "Bob Holder"}.Merge(account)
	assert.Equal(t, "Bob Holder", merged.Name)
	assert.Equal(t, "alice@example.com", merged.Email)
	assert.Equal(t, "555-0100", merged.Phone)

	// fully supplied purchaser wins everywhere
	full := Purchaser{Name: "C", Email: "c@example.com", Phone: "1"}
	assert.Equal(t, full, full.Merge(account))

	assert.True(t, Purchaser{}.Empty())
	assert.False(t, merged.Empty())
}

func TestCheckInDenial_Precedence(t *testing.T) {
	cases := []struct {
		status TicketStatus
		want   error
	}{
		{TicketUsed, status.ErrTicketAlreadyUsed},
		{TicketExpired, status.ErrTicketExpired},
		{TicketCancelled, status.ErrTicketCancelled},
		{TicketAvailable, status.ErrTicketNotActive},
		{TicketReserved, status.ErrTicketNotActive},
		{TicketRefunded, status.ErrTicketNotActive},
		{TicketBlocked, status.ErrTicketNotActive},
		{TicketActive, nil},
	}

	for _, tc := range cases {
		err := CheckInDenial(tc.status)
		if tc.want == nil {
			assert.NoError(t, err, "status %s", tc.status)
		} else {
			require.ErrorIs(t, err, tc.want, "status %s", tc.status)
		}
	}
}

func TestTicketType_QuantityAllowed(t *testing.T) {
	tt := TicketType{MinPerOrder: 1, MaxPerOrder: 4}

	assert.False(t, tt.QuantityAllowed(0))
	assert.False(t, tt.QuantityAllowed(-2))
	assert.True(t, tt.QuantityAllowed(1))
	assert.True(t, tt.QuantityAllowed(4))
	assert.False(t, tt.QuantityAllowed(5))

	// zero max means unbounded above
	open := TicketType{MinPerOrder: 2}
	assert.False(t, open.QuantityAllowed(1))
	assert.True(t, open.QuantityAllowed(250))
}

func TestTicketType_Remaining(t *testing.T) {
	tt := TicketType{InitialQuantity: 100, SoldQuantity: 37}
	assert.Equal(t, 63, tt.Remaining())
}

func TestEventStatus_Guards(t *testing.T) {
	assert.True(t, EventPublished.OnSale())
	for _, s := range []EventStatus{EventDraft, EventUnpublished, EventEnded, EventCancelled, EventRejected} {
		assert.False(t, s.OnSale(), "status %s", s)
	}

	assert.True(t, EventPublished.SweepEndable())
	assert.True(t, EventUnpublished.SweepEndable())
	assert.False(t, EventCancelled.SweepEndable())
	assert.False(t, EventEnded.SweepEndable())
}
