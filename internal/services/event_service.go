package services

import (
	"context"
	"fmt"

	"ticketmarket/internal/status"
	"ticketmarket/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// EventService owns event lifecycle transitions and the ticket cascades
// that ride along with them. Each transition saves the event and runs its
// cascade in one transaction.
type EventService struct {
	app      core.App
	tickets  *TicketService
	notifier *NotifyService
}

func NewEventService(app core.App, tickets *TicketService, notifier *NotifyService) *EventService {
	return &EventService{
		app:      app,
		tickets:  tickets,
		notifier: notifier,
	}
}

type cascadeFn func(ctx context.Context, db dbx.Builder, eventID string) (int64, error)

func (s *EventService) transition(ctx context.Context, eventID string, to models.EventStatus, allowedFrom []models.EventStatus, cascade cascadeFn) (*core.Record, int64, error) {
	var event *core.Record
	var affected int64

	err := s.app.RunInTransaction(func(txApp core.App) error {
		var err error
		event, err = txApp.FindRecordById("events", eventID)
		if err != nil {
			return status.ErrEventNotFound
		}

		current := models.EventStatus(event.GetString("status"))
		allowed := false
		for _, from := range allowedFrom {
			if current == from {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("events: %s -> %s: %w", current, to, status.ErrEventStateConflict)
		}

		event.Set("status", string(to))
		if err := txApp.SaveWithContext(ctx, event); err != nil {
			return fmt.Errorf("events.transition: %w", err)
		}

		if cascade != nil {
			affected, err = cascade(ctx, txApp.DB(), eventID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.notifier.EventStatusChanged(eventID, string(to), affected)
	return event, affected, nil
}

// Approve publishes an event and reinstates any tickets cancelled by an
// earlier rejection or pull-back.
func (s *EventService) Approve(ctx context.Context, eventID string) (*core.Record, int64, error) {
	return s.transition(ctx, eventID,
		models.EventPublished,
		[]models.EventStatus{models.EventDraft, models.EventUnpublished, models.EventRejected},
		s.tickets.CascadeRestore,
	)
}

// Reject turns a submitted event down and voids whatever tickets exist.
func (s *EventService) Reject(ctx context.Context, eventID string) (*core.Record, int64, error) {
	return s.transition(ctx, eventID,
		models.EventRejected,
		[]models.EventStatus{models.EventDraft},
		s.tickets.CascadeCancel,
	)
}

// Demote pulls a published event back off sale. Its tickets are voided
// until a re-approval restores them.
func (s *EventService) Demote(ctx context.Context, eventID string) (*core.Record, int64, error) {
	return s.transition(ctx, eventID,
		models.EventUnpublished,
		[]models.EventStatus{models.EventPublished},
		s.tickets.CascadeCancel,
	)
}

// Cancel terminates the event from any live state and voids its tickets.
func (s *EventService) Cancel(ctx context.Context, eventID string) (*core.Record, int64, error) {
	return s.transition(ctx, eventID,
		models.EventCancelled,
		[]models.EventStatus{models.EventDraft, models.EventPublished, models.EventUnpublished},
		s.tickets.CascadeCancel,
	)
}

// End closes an event whose end time has passed and expires its live
// tickets. Called by the background sweep, one event per transaction so a
// poisoned row cannot block the rest of the batch.
func (s *EventService) End(ctx context.Context, eventID string) (*core.Record, int64, error) {
	return s.transition(ctx, eventID,
		models.EventEnded,
		[]models.EventStatus{models.EventPublished, models.EventUnpublished},
		s.tickets.CascadeExpire,
	)
}

// FindEndable returns published or unpublished events whose end time has
// passed, for the event sweep.
func (s *EventService) FindEndable(ctx context.Context, limit int) ([]*core.Record, error) {
	return s.app.FindRecordsByFilter(
		"events",
		"(status = {:published} || status = {:unpublished}) && end_time != '' && end_time <= {:now}",
		"end_time",
		limit,
		0,
		dbx.Params{
			"published":   string(models.EventPublished),
			"unpublished": string(models.EventUnpublished),
			"now":         types.NowDateTime().String(),
		},
	)
}

// FindReleasable returns unpublished events whose release date has
// passed, for the event sweep to put back on sale.
func (s *EventService) FindReleasable(ctx context.Context, limit int) ([]*core.Record, error) {
	return s.app.FindRecordsByFilter(
		"events",
		"status = {:unpublished} && release_date != '' && release_date <= {:now}",
		"release_date",
		limit,
		0,
		dbx.Params{
			"unpublished": string(models.EventUnpublished),
			"now":         types.NowDateTime().String(),
		},
	)
}

// Get fetches one event by id.
func (s *EventService) Get(ctx context.Context, eventID string) (*core.Record, error) {
	event, err := s.app.FindRecordById("events", eventID)
	if err != nil {
		return nil, status.ErrEventNotFound
	}
	return event, nil
}

// ListOnSale returns published events, soonest start first.
func (s *EventService) ListOnSale(ctx context.Context, limit, offset int) ([]*core.Record, error) {
	return s.app.FindRecordsByFilter(
		"events",
		"status = {:published}",
		"start_time",
		limit,
		offset,
		dbx.Params{"published": string(models.EventPublished)},
	)
}
