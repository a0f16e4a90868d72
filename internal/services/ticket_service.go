package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ticketmarket/internal/status"
	"ticketmarket/models"
	"ticketmarket/monitoring"
	"ticketmarket/utils"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// codeRetries bounds regeneration attempts on a redemption-code collision.
const codeRetries = 3

// TicketService owns individual ticket state and the event-level bulk
// cascades. Single-ticket transitions (check-in) go through status-guarded
// conditional updates so a cascade and a check-in racing on the same row
// produce exactly one outcome.
type TicketService struct {
	app      core.App
	notifier *NotifyService
	monitor  *monitoring.Monitor
}

func NewTicketService(app core.App, notifier *NotifyService, monitor *monitoring.Monitor) *TicketService {
	return &TicketService{
		app:      app,
		notifier: notifier,
		monitor:  monitor,
	}
}

// MaterializeForOrder creates one active ticket per unit quantity of the
// order's line items. Runs inside the order-confirmation transaction via
// txApp so the paid flip and the ticket rows commit together.
func (s *TicketService) MaterializeForOrder(ctx context.Context, txApp core.App, order *core.Record, purchaser models.Purchaser) ([]*core.Record, error) {
	var items []models.LineItem
	if err := order.UnmarshalJSONField("items", &items); err != nil {
		return nil, fmt.Errorf("tickets.MaterializeForOrder: items: %w", err)
	}

	collection, err := txApp.FindCollectionByNameOrId("tickets")
	if err != nil {
		return nil, fmt.Errorf("tickets.MaterializeForOrder: %w", err)
	}

	created := make([]*core.Record, 0)
	for _, item := range items {
		for i := 0; i < item.Quantity; i++ {
			ticket := core.NewRecord(collection)
			ticket.Set("order_id", order.Id)
			ticket.Set("ticket_type_id", item.TicketTypeID)
			ticket.Set("event_id", order.GetString("event_id"))
			ticket.Set("status", string(models.TicketActive))
			ticket.Set("holder_name", purchaser.Name)
			ticket.Set("holder_email", purchaser.Email)
			ticket.Set("holder_phone", purchaser.Phone)

			if err := s.saveWithFreshCode(ctx, txApp, ticket); err != nil {
				return nil, fmt.Errorf("tickets.MaterializeForOrder: %w", err)
			}
			created = append(created, ticket)
		}
	}

	return created, nil
}

// saveWithFreshCode inserts the ticket, regenerating the redemption code
// when the unique index rejects it.
func (s *TicketService) saveWithFreshCode(ctx context.Context, txApp core.App, ticket *core.Record) error {
	var lastErr error
	for attempt := 0; attempt < codeRetries; attempt++ {
		code, err := utils.GenerateTicketCode()
		if err != nil {
			return err
		}
		ticket.Set("unique_code", code)

		if lastErr = txApp.SaveWithContext(ctx, ticket); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("save ticket: %w", lastErr)
}

// CheckInResult is the gate summary returned on a successful scan.
type CheckInResult struct {
	TicketID    string    `json:"ticket_id"`
	UniqueCode  string    `json:"unique_code"`
	EventID     string    `json:"event_id"`
	EventName   string    `json:"event_name"`
	Venue       string    `json:"venue"`
	HolderName  string    `json:"holder_name"`
	HolderEmail string    `json:"holder_email"`
	SeatNumber  string    `json:"seat_number,omitempty"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// CheckIn redeems a ticket at the gate. The rejection precedence is
// fixed: unknown code, unauthorized staff, ticket status (used, expired,
// cancelled, else not-active), event not published, holder account not
// active. The final write is conditional on status still being active;
// losing that race reports the winner's status conflict instead of
// double-admitting.
func (s *TicketService) CheckIn(ctx context.Context, uniqueCode, staffID string, isAdmin bool) (*CheckInResult, error) {
	ticket, err := s.app.FindFirstRecordByFilter(
		"tickets",
		"unique_code = {:code}",
		dbx.Params{"code": uniqueCode},
	)
	if err != nil {
		s.monitor.TrackCheckin("not_found")
		return nil, status.ErrTicketNotFound
	}

	event, err := s.app.FindRecordById("events", ticket.GetString("event_id"))
	if err != nil {
		return nil, fmt.Errorf("tickets.CheckIn: load event: %w", err)
	}

	if !isAdmin && event.GetString("organizer_id") != staffID {
		s.monitor.TrackCheckin("unauthorized")
		return nil, status.ErrUnauthorized
	}

	if denial := models.CheckInDenial(models.TicketStatus(ticket.GetString("status"))); denial != nil {
		s.monitor.TrackCheckin("status_conflict")
		return nil, denial
	}

	if models.EventStatus(event.GetString("status")) != models.EventPublished {
		s.monitor.TrackCheckin("event_not_published")
		return nil, status.ErrEventNotPublished
	}

	holder, err := s.orderHolder(ctx, ticket.GetString("order_id"))
	if err != nil {
		return nil, err
	}
	if holder != nil && holder.GetString("account_status") != "active" {
		s.monitor.TrackCheckin("holder_inactive")
		return nil, status.ErrHolderNotActive
	}

	now := types.NowDateTime()
	res, err := s.app.DB().NewQuery(`
		UPDATE tickets
		SET status = {:used}, checked_in_at = {:now}
		WHERE id = {:id} AND status = {:active}
	`).Bind(dbx.Params{
		"used":   string(models.TicketUsed),
		"now":    now.String(),
		"id":     ticket.Id,
		"active": string(models.TicketActive),
	}).WithContext(ctx).Execute()
	if err != nil {
		return nil, fmt.Errorf("tickets.CheckIn: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("tickets.CheckIn: rows affected: %w", err)
	}
	if rows == 0 {
		// Lost the race against a concurrent check-in or cascade.
		current, err := s.app.FindRecordById("tickets", ticket.Id)
		if err != nil {
			return nil, status.ErrTicketNotFound
		}
		s.monitor.TrackCheckin("race_lost")
		if denial := models.CheckInDenial(models.TicketStatus(current.GetString("status"))); denial != nil {
			return nil, denial
		}
		return nil, status.ErrTicketNotActive
	}

	s.monitor.TrackCheckin("ok")
	s.notifier.TicketCheckedIn(ticket.Id, event.Id, ticket.GetString("holder_name"))

	return &CheckInResult{
		TicketID:    ticket.Id,
		UniqueCode:  uniqueCode,
		EventID:     event.Id,
		EventName:   event.GetString("name"),
		Venue:       event.GetString("venue"),
		HolderName:  ticket.GetString("holder_name"),
		HolderEmail: ticket.GetString("holder_email"),
		SeatNumber:  ticket.GetString("seat_number"),
		CheckedInAt: now.Time(),
	}, nil
}

func (s *TicketService) orderHolder(ctx context.Context, orderID string) (*core.Record, error) {
	order, err := s.app.FindRecordById("orders", orderID)
	if err != nil {
		return nil, fmt.Errorf("tickets: load order %s: %w", orderID, err)
	}
	customerID := order.GetString("customer_id")
	if customerID == "" {
		return nil, nil
	}
	holder, err := s.app.FindRecordById("users", customerID)
	if err != nil {
		// Orphaned customer relation: treat as no holder gate rather than
		// blocking the whole gate line.
		slog.Warn("tickets: holder lookup failed", "order_id", orderID, "customer_id", customerID, "error", err)
		return nil, nil
	}
	return holder, nil
}

// cascade runs one bulk status transition for every ticket of the event
// currently in one of the from statuses. Re-running with no eligible rows
// is a no-op, which makes every cascade idempotent.
func (s *TicketService) cascade(ctx context.Context, db dbx.Builder, eventID string, from []models.TicketStatus, to models.TicketStatus) (int64, error) {
	fromExprs := make([]any, len(from))
	for i, st := range from {
		fromExprs[i] = string(st)
	}

	res, err := db.Update(
		"tickets",
		dbx.Params{"status": string(to)},
		dbx.And(
			dbx.HashExp{"event_id": eventID},
			dbx.In("status", fromExprs...),
		),
	).WithContext(ctx).Execute()
	if err != nil {
		return 0, fmt.Errorf("tickets.cascade %s->%s: %w", from, to, err)
	}
	return res.RowsAffected()
}

// CascadeCancel voids every live ticket under the event. Triggered by
// event cancellation, rejection, or a pull-back to draft.
func (s *TicketService) CascadeCancel(ctx context.Context, db dbx.Builder, eventID string) (int64, error) {
	return s.cascade(ctx, db, eventID, models.CascadeSources, models.TicketCancelled)
}

// CascadeRestore reinstates previously cancelled tickets after an event
// re-approval. Tickets that independently became used or expired in the
// meantime are untouched because only cancelled rows are eligible.
func (s *TicketService) CascadeRestore(ctx context.Context, db dbx.Builder, eventID string) (int64, error) {
	return s.cascade(ctx, db, eventID, []models.TicketStatus{models.TicketCancelled}, models.TicketActive)
}

// CascadeExpire marks every live ticket expired once the event has ended.
func (s *TicketService) CascadeExpire(ctx context.Context, db dbx.Builder, eventID string) (int64, error) {
	return s.cascade(ctx, db, eventID, models.CascadeSources, models.TicketExpired)
}

// RefundForOrder moves the order's live tickets to refunded inside the
// refund transaction.
func (s *TicketService) RefundForOrder(ctx context.Context, db dbx.Builder, orderID string) (int64, error) {
	fromExprs := make([]any, len(models.CascadeSources))
	for i, st := range models.CascadeSources {
		fromExprs[i] = string(st)
	}

	res, err := db.Update(
		"tickets",
		dbx.Params{"status": string(models.TicketRefunded)},
		dbx.And(
			dbx.HashExp{"order_id": orderID},
			dbx.In("status", fromExprs...),
		),
	).WithContext(ctx).Execute()
	if err != nil {
		return 0, fmt.Errorf("tickets.RefundForOrder: %w", err)
	}
	return res.RowsAffected()
}

// TicketsForOrder lists the materialized tickets of one order.
func (s *TicketService) TicketsForOrder(ctx context.Context, orderID string) ([]*core.Record, error) {
	return s.app.FindRecordsByFilter(
		"tickets",
		"order_id = {:orderId}",
		"created",
		0,
		0,
		dbx.Params{"orderId": orderID},
	)
}
