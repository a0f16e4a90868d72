package services

import (
	"context"
	"testing"
	"time"

	"ticketmarket/internal/status"
	"ticketmarket/models"
	"ticketmarket/monitoring"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderStack(app core.App) *OrderService {
	monitor := monitoring.NewMonitor()
	inventory := NewInventoryService(app, nil, time.Second)
	tickets := NewTicketService(app, nil, monitor)
	return NewOrderService(app, inventory, tickets, nil, monitor)
}

func orderDeadline() types.DateTime {
	return types.NowDateTime().Add(15 * time.Minute)
}

func createPendingOrder(t *testing.T, svc *OrderService, eventID, ticketTypeID string, qty int) *core.Record {
	order, err := svc.Create(context.Background(), CreateOrderInput{
		EventID:    eventID,
		CustomerID: "cust1",
		Items:      []ItemRequest{{TicketTypeID: ticketTypeID, Quantity: qty}},
		Purchaser:  models.Purchaser{Name: "Ana", Email: "ana@example.com"},
	}, orderDeadline())
	require.NoError(t, err)
	return order
}

func orderTickets(t *testing.T, app core.App, orderID string) []*core.Record {
	records, err := app.FindRecordsByFilter(
		"tickets",
		"order_id = {:orderId}",
		"",
		0,
		0,
		dbx.Params{"orderId": orderID},
	)
	require.NoError(t, err)
	return records
}

func TestCreate_CancelRestoresCapacity(t *testing.T) {
	app := setupTestApp(t)
	event := seedEvent(t, app, models.EventPublished)
	tt := seedTicketType(t, app, event.Id, 25, 2, 0)
	svc := newOrderStack(app)
	ctx := context.Background()

	order := createPendingOrder(t, svc, event.Id, tt.Id, 2)
	assert.Equal(t, "pending", order.GetString("status"))
	assert.Equal(t, 2, soldQuantity(t, app, tt.Id))

	// sold out, the whole attempt rolls back
	_, err := svc.Create(ctx, CreateOrderInput{
		EventID:    event.Id,
		CustomerID: "cust2",
		Items:      []ItemRequest{{TicketTypeID: tt.Id, Quantity: 1}},
	}, orderDeadline())
	assert.ErrorIs(t, err, status.ErrInsufficientInventory)
	assert.Equal(t, 2, soldQuantity(t, app, tt.Id))

	cancelled, err := svc.Cancel(ctx, order.Id, "cust1", TriggerAPI)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.GetString("status"))
	assert.Equal(t, 0, soldQuantity(t, app, tt.Id))

	// released capacity is sellable again
	createPendingOrder(t, svc, event.Id, tt.Id, 2)
	assert.Equal(t, 2, soldQuantity(t, app, tt.Id))
}

func TestCreate_EventNotOnSale(t *testing.T) {
	app := setupTestApp(t)
	event := seedEvent(t, app, models.EventDraft)
	tt := seedTicketType(t, app, event.Id, 25, 10, 0)
	svc := newOrderStack(app)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		EventID:    event.Id,
		CustomerID: "cust1",
		Items:      []ItemRequest{{TicketTypeID: tt.Id, Quantity: 1}},
	}, orderDeadline())
	assert.ErrorIs(t, err, status.ErrEventNotOnSale)
	assert.Equal(t, 0, soldQuantity(t, app, tt.Id))
}

func TestConfirm_IssuesTicketsOnce(t *testing.T) {
	app := setupTestApp(t)
	event := seedEvent(t, app, models.EventPublished)
	tt := seedTicketType(t, app, event.Id, 25, 10, 0)
	svc := newOrderStack(app)
	ctx := context.Background()

	order := createPendingOrder(t, svc, event.Id, tt.Id, 2)

	confirmed, err := svc.Confirm(ctx, order.Id, models.Purchaser{}, TriggerGateway)
	require.NoError(t, err)
	assert.Equal(t, "paid", confirmed.GetString("status"))
	assert.Len(t, orderTickets(t, app, order.Id), 2)

	// redelivered notification: same outcome, no extra tickets
	redelivered, err := svc.Confirm(ctx, order.Id, models.Purchaser{}, TriggerGateway)
	require.NoError(t, err)
	assert.Equal(t, "paid", redelivered.GetString("status"))
	assert.Len(t, orderTickets(t, app, order.Id), 2)
}

func TestConfirm_AfterCancelFailsHard(t *testing.T) {
	app := setupTestApp(t)
	event := seedEvent(t, app, models.EventPublished)
	tt := seedTicketType(t, app, event.Id, 25, 10, 0)
	svc := newOrderStack(app)
	ctx := context.Background()

	order := createPendingOrder(t, svc, event.Id, tt.Id, 1)
	_, err := svc.Cancel(ctx, order.Id, "cust1", TriggerAPI)
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, order.Id, models.Purchaser{}, TriggerGateway)
	assert.ErrorIs(t, err, status.ErrAlreadyCancelled)
	assert.Empty(t, orderTickets(t, app, order.Id))
}

func TestCancel_PaidOrderRefused(t *testing.T) {
	app := setupTestApp(t)
	event := seedEvent(t, app, models.EventPublished)
	tt := seedTicketType(t, app, event.Id, 25, 10, 0)
	svc := newOrderStack(app)
	ctx := context.Background()

	order := createPendingOrder(t, svc, event.Id, tt.Id, 1)
	_, err := svc.Confirm(ctx, order.Id, models.Purchaser{}, TriggerGateway)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, order.Id, "cust1", TriggerAPI)
	assert.ErrorIs(t, err, status.ErrAlreadyPaid)
	assert.Equal(t, 1, soldQuantity(t, app, tt.Id))
}

func TestCancel_WrongCustomer(t *testing.T) {
	app := setupTestApp(t)
	event := seedEvent(t, app, models.EventPublished)
	tt := seedTicketType(t, app, event.Id, 25, 10, 0)
	svc := newOrderStack(app)

	order := createPendingOrder(t, svc, event.Id, tt.Id, 1)

	_, err := svc.Cancel(context.Background(), order.Id, "someone-else", TriggerAPI)
	assert.ErrorIs(t, err, status.ErrUnauthorized)
	assert.Equal(t, 1, soldQuantity(t, app, tt.Id))
}

func TestRefund_VoidsTicketsWithoutRestock(t *testing.T) {
	app := setupTestApp(t)
	event := seedEvent(t, app, models.EventPublished)
	tt := seedTicketType(t, app, event.Id, 25, 10, 0)
	svc := newOrderStack(app)
	ctx := context.Background()

	order := createPendingOrder(t, svc, event.Id, tt.Id, 2)
	_, err := svc.Confirm(ctx, order.Id, models.Purchaser{}, TriggerGateway)
	require.NoError(t, err)

	refunded, err := svc.Refund(ctx, order.Id, TriggerAPI)
	require.NoError(t, err)
	assert.Equal(t, "refunded", refunded.GetString("status"))
	for _, ticket := range orderTickets(t, app, order.Id) {
		assert.Equal(t, "refunded", ticket.GetString("status"))
	}
	assert.Equal(t, 2, soldQuantity(t, app, tt.Id), "refunds do not restock")

	_, err = svc.Refund(ctx, order.Id, TriggerAPI)
	assert.ErrorIs(t, err, status.ErrAlreadyRefunded)
}

func TestRefund_PendingOrderRefused(t *testing.T) {
	app := setupTestApp(t)
	event := seedEvent(t, app, models.EventPublished)
	tt := seedTicketType(t, app, event.Id, 25, 10, 0)
	svc := newOrderStack(app)

	order := createPendingOrder(t, svc, event.Id, tt.Id, 1)

	_, err := svc.Refund(context.Background(), order.Id, TriggerAPI)
	assert.ErrorIs(t, err, status.ErrNotPaid)
}
