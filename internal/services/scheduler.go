package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ticketmarket/internal/status"
	"ticketmarket/monitoring"

	"github.com/pocketbase/pocketbase/core"
)

// sweepBatchSize caps rows handled per tick so a huge backlog drains
// over several ticks instead of one long stall.
const sweepBatchSize = 200

// Scheduler runs the two background sweeps: expiring pending orders past
// their payment deadline and ending events past their end time. Each row
// is processed in its own transaction so one bad row cannot poison the
// batch.
type Scheduler struct {
	orders  *OrderService
	events  *EventService
	monitor *monitoring.Monitor

	orderInterval time.Duration
	eventInterval time.Duration
}

func NewScheduler(orders *OrderService, events *EventService, monitor *monitoring.Monitor, orderInterval, eventInterval time.Duration) *Scheduler {
	return &Scheduler{
		orders:        orders,
		events:        events,
		monitor:       monitor,
		orderInterval: orderInterval,
		eventInterval: eventInterval,
	}
}

// Start launches both sweep loops. They stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx, "order_expiry", s.orderInterval, s.sweepExpiredOrders)
	go s.run(ctx, "event_lifecycle", s.eventInterval, s.sweepEvents)
}

func (s *Scheduler) run(ctx context.Context, name string, interval time.Duration, sweep func(context.Context) (int, int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("scheduler: sweep started", "sweep", name, "interval", interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler: sweep stopped", "sweep", name)
			return
		case <-ticker.C:
			start := time.Now()
			swept, failed := sweep(ctx)
			s.monitor.TrackSweep(name, time.Since(start))
			if swept > 0 || failed > 0 {
				slog.Info("scheduler: sweep tick", "sweep", name, "swept", swept, "failed", failed)
			}
		}
	}
}

// sweepExpiredOrders cancels pending orders whose deadline has passed,
// returning reserved inventory to the pool.
func (s *Scheduler) sweepExpiredOrders(ctx context.Context) (int, int) {
	expired, err := s.orders.FindExpiredPending(ctx, sweepBatchSize)
	if err != nil {
		slog.Error("scheduler: expired order query failed", "error", err)
		return 0, 0
	}

	ids := make([]string, len(expired))
	for i, order := range expired {
		ids[i] = order.Id
	}

	return sweepEach(ids, func(id string) error {
		_, err := s.orders.Cancel(ctx, id, "", TriggerSweep)
		// A user paying or cancelling between query and sweep is not a
		// failure; the row simply left the pending set first.
		if errors.Is(err, status.ErrAlreadyPaid) || errors.Is(err, status.ErrAlreadyCancelled) || errors.Is(err, status.ErrAlreadyRefunded) {
			return nil
		}
		return err
	}, func(id string, err error) {
		s.monitor.TrackSweepFailure("order_expiry")
		slog.Error("scheduler: order expiry failed", "order_id", id, "error", err)
	})
}

// sweepEvents runs the two event-side passes: past-end events move to
// ended with their live tickets expired, and unpublished events past
// their release date go back on sale.
func (s *Scheduler) sweepEvents(ctx context.Context) (int, int) {
	swept, failed := s.sweepEventBatch(ctx, "event_end",
		func() ([]string, error) { return s.eventIDs(s.events.FindEndable(ctx, sweepBatchSize)) },
		func(id string) error {
			_, _, err := s.events.End(ctx, id)
			return err
		},
	)

	released, releaseFailed := s.sweepEventBatch(ctx, "event_release",
		func() ([]string, error) { return s.eventIDs(s.events.FindReleasable(ctx, sweepBatchSize)) },
		func(id string) error {
			_, _, err := s.events.Approve(ctx, id)
			return err
		},
	)

	return swept + released, failed + releaseFailed
}

func (s *Scheduler) sweepEventBatch(ctx context.Context, name string, query func() ([]string, error), apply func(id string) error) (int, int) {
	ids, err := query()
	if err != nil {
		slog.Error("scheduler: event query failed", "sweep", name, "error", err)
		return 0, 0
	}

	return sweepEach(ids, func(id string) error {
		err := apply(id)
		if errors.Is(err, status.ErrEventStateConflict) {
			return nil
		}
		return err
	}, func(id string, err error) {
		s.monitor.TrackSweepFailure(name)
		slog.Error("scheduler: event sweep failed", "sweep", name, "event_id", id, "error", err)
	})
}

func (s *Scheduler) eventIDs(records []*core.Record, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(records))
	for i, record := range records {
		ids[i] = record.Id
	}
	return ids, nil
}

// sweepEach applies fn per id, reporting failures through onErr and
// continuing with the rest of the batch. Returns swept and failed counts.
func sweepEach(ids []string, fn func(id string) error, onErr func(id string, err error)) (int, int) {
	swept, failed := 0, 0
	for _, id := range ids {
		if err := fn(id); err != nil {
			failed++
			if onErr != nil {
				onErr(id, err)
			}
			continue
		}
		swept++
	}
	return swept, failed
}
