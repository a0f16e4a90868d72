package services

import (
	"context"
	"fmt"
	"log/slog"

	"ticketmarket/internal/status"
	"ticketmarket/models"
	"ticketmarket/monitoring"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// Transition triggers, recorded on metrics so paid-via-gateway and
// cancelled-via-sweep are distinguishable from user actions.
const (
	TriggerAPI     = "api"
	TriggerGateway = "gateway"
	TriggerSweep   = "sweep"
)

// ItemRequest is one ticket-type/quantity pair of an incoming order.
type ItemRequest struct {
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

// CreateOrderInput carries everything needed to open a pending order.
type CreateOrderInput struct {
	EventID    string
	CustomerID string
	Items      []ItemRequest
	Purchaser  models.Purchaser
}

// OrderService drives the order lifecycle. Every transition that touches
// inventory or tickets runs in a single transaction so the order row and
// its side effects commit or roll back as one unit.
type OrderService struct {
	app       core.App
	inventory *InventoryService
	tickets   *TicketService
	notifier  *NotifyService
	monitor   *monitoring.Monitor
}

func NewOrderService(app core.App, inventory *InventoryService, tickets *TicketService, notifier *NotifyService, monitor *monitoring.Monitor) *OrderService {
	return &OrderService{
		app:       app,
		inventory: inventory,
		tickets:   tickets,
		notifier:  notifier,
		monitor:   monitor,
	}
}

// Create opens a pending order: validates the event is on sale, checks
// per-order quantity bounds, reserves inventory for every line item, and
// writes the order with a payment deadline. Any failure rolls the whole
// reservation back.
func (s *OrderService) Create(ctx context.Context, input CreateOrderInput, expiresAt types.DateTime) (*core.Record, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("orders.Create: %w", status.ErrQuantityOutOfRange)
	}

	var order *core.Record
	err := s.app.RunInTransaction(func(txApp core.App) error {
		event, err := txApp.FindRecordById("events", input.EventID)
		if err != nil {
			return status.ErrEventNotFound
		}
		if !models.EventStatus(event.GetString("status")).OnSale() {
			return status.ErrEventNotOnSale
		}

		lineItems := make([]models.LineItem, 0, len(input.Items))
		for _, item := range input.Items {
			tt, err := s.lockTicketType(ctx, txApp, item.TicketTypeID)
			if err != nil {
				return err
			}
			if tt.EventID != input.EventID {
				return status.ErrTicketTypeNotFound
			}
			if !tt.QuantityAllowed(item.Quantity) {
				s.monitor.TrackReservationRejected("quantity_bounds")
				return status.ErrQuantityOutOfRange
			}

			if err := s.inventory.Reserve(ctx, txApp.DB(), item.TicketTypeID, item.Quantity); err != nil {
				if err == status.ErrInsufficientInventory {
					s.monitor.TrackReservationRejected("sold_out")
				}
				return err
			}

			lineItems = append(lineItems, models.LineItem{
				TicketTypeID: tt.ID,
				Name:         tt.Name,
				Quantity:     item.Quantity,
				UnitPrice:    tt.Price,
			})
		}

		collection, err := txApp.FindCollectionByNameOrId("orders")
		if err != nil {
			return fmt.Errorf("orders.Create: %w", err)
		}

		total := models.OrderTotal(lineItems)

		order = core.NewRecord(collection)
		order.Set("customer_id", input.CustomerID)
		order.Set("event_id", input.EventID)
		order.Set("status", string(models.OrderPending))
		order.Set("items", lineItems)
		order.Set("total", total.InexactFloat64())
		order.Set("purchaser_name", input.Purchaser.Name)
		order.Set("purchaser_email", input.Purchaser.Email)
		order.Set("purchaser_phone", input.Purchaser.Phone)
		order.Set("expires_at", expiresAt)

		return txApp.SaveWithContext(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.monitor.TrackOrderTransition(string(models.OrderPending), TriggerAPI)
	go s.refreshAvailability(input.EventID)
	return order, nil
}

func (s *OrderService) lockTicketType(ctx context.Context, txApp core.App, id string) (*models.TicketType, error) {
	tt := models.TicketType{}
	err := txApp.DB().
		Select("id", "event_id", "name", "price", "initial_quantity", "sold_quantity", "min_per_order", "max_per_order").
		From("ticket_types").
		Where(dbx.HashExp{"id": id}).
		WithContext(ctx).
		One(&tt)
	if err != nil {
		return nil, status.ErrTicketTypeNotFound
	}
	return &tt, nil
}

// Confirm settles a pending order: flips it to paid and materializes its
// tickets in the same transaction. Confirming an already paid order is a
// no-op returning the existing order, so the gateway may redeliver its
// notification safely. Confirming a cancelled or refunded order fails
// hard because money arrived for inventory that was already released.
func (s *OrderService) Confirm(ctx context.Context, orderID string, purchaser models.Purchaser, trigger string) (*core.Record, error) {
	var order *core.Record
	var issued int

	err := s.app.RunInTransaction(func(txApp core.App) error {
		var err error
		order, err = txApp.FindRecordById("orders", orderID)
		if err != nil {
			return status.ErrOrderNotFound
		}

		switch models.OrderStatus(order.GetString("status")) {
		case models.OrderPaid:
			return status.ErrAlreadyPaid
		case models.OrderCancelled:
			return status.ErrAlreadyCancelled
		case models.OrderRefunded:
			return status.ErrAlreadyRefunded
		}

		snapshot := models.Purchaser{
			Name:  order.GetString("purchaser_name"),
			Email: order.GetString("purchaser_email"),
			Phone: order.GetString("purchaser_phone"),
		}
		final := purchaser.Merge(snapshot)

		order.Set("status", string(models.OrderPaid))
		order.Set("paid_at", types.NowDateTime())
		order.Set("purchaser_name", final.Name)
		order.Set("purchaser_email", final.Email)
		order.Set("purchaser_phone", final.Phone)
		if err := txApp.SaveWithContext(ctx, order); err != nil {
			return fmt.Errorf("orders.Confirm: %w", err)
		}

		created, err := s.tickets.MaterializeForOrder(ctx, txApp, order, final)
		if err != nil {
			return err
		}
		issued = len(created)
		return nil
	})
	if err != nil {
		if err == status.ErrAlreadyPaid {
			// Idempotent redelivery: report success without reissuing.
			return order, nil
		}
		return nil, err
	}

	s.monitor.TrackOrderTransition(string(models.OrderPaid), trigger)
	s.notifier.OrderPaid(order.Id, order.GetString("customer_id"), issued)
	return order, nil
}

// Cancel closes a pending order and returns its reserved inventory.
// When actorID is non-empty the order must belong to that customer.
// Cancelling a paid order is refused; cancelling twice reports the
// conflict instead of silently succeeding.
func (s *OrderService) Cancel(ctx context.Context, orderID, actorID, trigger string) (*core.Record, error) {
	var order *core.Record

	err := s.app.RunInTransaction(func(txApp core.App) error {
		var err error
		order, err = txApp.FindRecordById("orders", orderID)
		if err != nil {
			return status.ErrOrderNotFound
		}
		if actorID != "" && order.GetString("customer_id") != actorID {
			return status.ErrUnauthorized
		}

		switch models.OrderStatus(order.GetString("status")) {
		case models.OrderPaid:
			return status.ErrAlreadyPaid
		case models.OrderCancelled:
			return status.ErrAlreadyCancelled
		case models.OrderRefunded:
			return status.ErrAlreadyRefunded
		}

		order.Set("status", string(models.OrderCancelled))
		order.Set("cancelled_at", types.NowDateTime())
		if err := txApp.SaveWithContext(ctx, order); err != nil {
			return fmt.Errorf("orders.Cancel: %w", err)
		}

		return s.releaseItems(ctx, txApp, order)
	})
	if err != nil {
		return nil, err
	}

	s.monitor.TrackOrderTransition(string(models.OrderCancelled), trigger)
	s.notifier.OrderCancelled(order.Id, order.GetString("customer_id"), trigger)
	go s.refreshAvailability(order.GetString("event_id"))
	return order, nil
}

func (s *OrderService) releaseItems(ctx context.Context, txApp core.App, order *core.Record) error {
	var items []models.LineItem
	if err := order.UnmarshalJSONField("items", &items); err != nil {
		return fmt.Errorf("orders: items of %s: %w", order.Id, err)
	}
	for _, item := range items {
		if err := s.inventory.Release(ctx, txApp.DB(), item.TicketTypeID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Refund records a refund on a paid order and voids its tickets. Sold
// inventory is not returned to the pool: refunds are an accounting
// correction, not a restock.
func (s *OrderService) Refund(ctx context.Context, orderID, trigger string) (*core.Record, error) {
	var order *core.Record

	err := s.app.RunInTransaction(func(txApp core.App) error {
		var err error
		order, err = txApp.FindRecordById("orders", orderID)
		if err != nil {
			return status.ErrOrderNotFound
		}

		switch models.OrderStatus(order.GetString("status")) {
		case models.OrderRefunded:
			return status.ErrAlreadyRefunded
		case models.OrderPending, models.OrderCancelled:
			return status.ErrNotPaid
		}

		order.Set("status", string(models.OrderRefunded))
		if err := txApp.SaveWithContext(ctx, order); err != nil {
			return fmt.Errorf("orders.Refund: %w", err)
		}

		_, err = s.tickets.RefundForOrder(ctx, txApp.DB(), order.Id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.monitor.TrackOrderTransition(string(models.OrderRefunded), trigger)
	s.notifier.OrderRefunded(order.Id, order.GetString("customer_id"))
	return order, nil
}

// Lookup fetches one order by id.
func (s *OrderService) Lookup(ctx context.Context, orderID string) (*core.Record, error) {
	order, err := s.app.FindRecordById("orders", orderID)
	if err != nil {
		return nil, status.ErrOrderNotFound
	}
	return order, nil
}

// OrdersForCustomer lists a customer's orders, newest first.
func (s *OrderService) OrdersForCustomer(ctx context.Context, customerID string, limit, offset int) ([]*core.Record, error) {
	return s.app.FindRecordsByFilter(
		"orders",
		"customer_id = {:customerId}",
		"-created",
		limit,
		offset,
		dbx.Params{"customerId": customerID},
	)
}

// FindExpiredPending returns pending orders whose payment deadline has
// passed, oldest first, capped at limit.
func (s *OrderService) FindExpiredPending(ctx context.Context, limit int) ([]*core.Record, error) {
	return s.app.FindRecordsByFilter(
		"orders",
		"status = {:pending} && expires_at != '' && expires_at <= {:now}",
		"expires_at",
		limit,
		0,
		dbx.Params{
			"pending": string(models.OrderPending),
			"now":     types.NowDateTime().String(),
		},
	)
}

func (s *OrderService) refreshAvailability(eventID string) {
	if _, err := s.inventory.RefreshAvailability(context.Background(), eventID); err != nil {
		slog.Warn("orders: availability refresh failed", "event_id", eventID, "error", err)
	}
}
