package services

import (
	"context"
	"testing"

	"ticketmarket/models"
	"ticketmarket/monitoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCascadeCancelRestore_LeavesUsedUntouched(t *testing.T) {
	app := setupTestApp(t)
	svc := NewTicketService(app, nil, monitoring.NewMonitor())
	ctx := context.Background()

	active := seedTicket(t, app, "evt1", "ord1", "CODE-A", models.TicketActive)
	reserved := seedTicket(t, app, "evt1", "ord1", "CODE-B", models.TicketReserved)
	used := seedTicket(t, app, "evt1", "ord2", "CODE-C", models.TicketUsed)
	other := seedTicket(t, app, "evt2", "ord3", "CODE-D", models.TicketActive)

	affected, err := svc.CascadeCancel(ctx, app.DB(), "evt1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)
	assert.Equal(t, "cancelled", ticketStatus(t, app, active.Id))
	assert.Equal(t, "cancelled", ticketStatus(t, app, reserved.Id))
	assert.Equal(t, "used", ticketStatus(t, app, used.Id), "a redeemed ticket stays redeemed")
	assert.Equal(t, "active", ticketStatus(t, app, other.Id), "other events are untouched")

	affected, err = svc.CascadeRestore(ctx, app.DB(), "evt1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)
	assert.Equal(t, "active", ticketStatus(t, app, active.Id))
	assert.Equal(t, "active", ticketStatus(t, app, reserved.Id))
	assert.Equal(t, "used", ticketStatus(t, app, used.Id))

	// nothing left in cancelled, re-running is a no-op
	affected, err = svc.CascadeRestore(ctx, app.DB(), "evt1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)
}

func TestCascadeExpire(t *testing.T) {
	app := setupTestApp(t)
	svc := NewTicketService(app, nil, monitoring.NewMonitor())

	active := seedTicket(t, app, "evt1", "ord1", "CODE-A", models.TicketActive)
	used := seedTicket(t, app, "evt1", "ord1", "CODE-B", models.TicketUsed)

	affected, err := svc.CascadeExpire(context.Background(), app.DB(), "evt1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.Equal(t, "expired", ticketStatus(t, app, active.Id))
	assert.Equal(t, "used", ticketStatus(t, app, used.Id))
}

func TestRefundForOrder_SkipsUsedAndOtherOrders(t *testing.T) {
	app := setupTestApp(t)
	svc := NewTicketService(app, nil, monitoring.NewMonitor())

	refundable := seedTicket(t, app, "evt1", "ord1", "CODE-A", models.TicketActive)
	used := seedTicket(t, app, "evt1", "ord1", "CODE-B", models.TicketUsed)
	other := seedTicket(t, app, "evt1", "ord2", "CODE-C", models.TicketActive)

	affected, err := svc.RefundForOrder(context.Background(), app.DB(), "ord1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.Equal(t, "refunded", ticketStatus(t, app, refundable.Id))
	assert.Equal(t, "used", ticketStatus(t, app, used.Id))
	assert.Equal(t, "active", ticketStatus(t, app, other.Id))
}
