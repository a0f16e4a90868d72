package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ticketmarket/internal/status"
	"ticketmarket/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// InventoryService is the ledger of per-ticket-type capacity. The reserve
// decision itself is strongly consistent: both mutations are conditional
// UPDATEs executed inside the caller's transaction, so the guard and the
// increment are one atomic compare-and-set against the row and concurrent
// attempts serialize on the database writer lock instead of racing.
//
// Redis only ever caches remaining counts for display. Readers of that
// cache are eventually consistent by design; the ledger never consults it.
type InventoryService struct {
	app      core.App
	redis    *redis.Client
	cacheTTL time.Duration
}

func NewInventoryService(app core.App, redisClient *redis.Client, cacheTTL time.Duration) *InventoryService {
	return &InventoryService{
		app:      app,
		redis:    redisClient,
		cacheTTL: cacheTTL,
	}
}

// Reserve increments sold_quantity by qty, failing when the ticket type is
// unknown or the remaining capacity is smaller than qty. Must be called
// with the dbx.Builder of the enclosing order transaction: the increment
// commits or rolls back together with the order row.
func (s *InventoryService) Reserve(ctx context.Context, db dbx.Builder, ticketTypeID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("inventory.Reserve: non-positive quantity %d", qty)
	}

	res, err := db.NewQuery(`
		UPDATE ticket_types
		SET sold_quantity = sold_quantity + {:qty}
		WHERE id = {:id} AND sold_quantity + {:qty} <= initial_quantity
	`).Bind(dbx.Params{"qty": qty, "id": ticketTypeID}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("inventory.Reserve: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inventory.Reserve: rows affected: %w", err)
	}
	if rows == 0 {
		if exists, err := s.ticketTypeExists(ctx, db, ticketTypeID); err != nil {
			return fmt.Errorf("inventory.Reserve: %w", err)
		} else if !exists {
			return status.ErrTicketTypeNotFound
		}
		return status.ErrInsufficientInventory
	}

	return nil
}

// Release returns qty units of a reservation that never converted to paid.
// Decrementing past zero is a logic fault and surfaces as an internal
// error rather than a silent clamp.
func (s *InventoryService) Release(ctx context.Context, db dbx.Builder, ticketTypeID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("inventory.Release: non-positive quantity %d", qty)
	}

	res, err := db.NewQuery(`
		UPDATE ticket_types
		SET sold_quantity = sold_quantity - {:qty}
		WHERE id = {:id} AND sold_quantity >= {:qty}
	`).Bind(dbx.Params{"qty": qty, "id": ticketTypeID}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("inventory.Release: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inventory.Release: rows affected: %w", err)
	}
	if rows == 0 {
		if exists, err := s.ticketTypeExists(ctx, db, ticketTypeID); err != nil {
			return fmt.Errorf("inventory.Release: %w", err)
		} else if !exists {
			return status.ErrTicketTypeNotFound
		}
		return status.ErrReleaseUnderflow
	}

	return nil
}

func (s *InventoryService) ticketTypeExists(ctx context.Context, db dbx.Builder, ticketTypeID string) (bool, error) {
	var count int
	err := db.NewQuery(`SELECT COUNT(*) FROM ticket_types WHERE id = {:id}`).
		Bind(dbx.Params{"id": ticketTypeID}).WithContext(ctx).Row(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// TicketTypesForEvent reads the ledger rows of one event straight from
// the database.
func (s *InventoryService) TicketTypesForEvent(ctx context.Context, eventID string) ([]models.TicketType, error) {
	types := []models.TicketType{}
	err := s.app.DB().
		Select("id", "event_id", "name", "price", "initial_quantity", "sold_quantity", "min_per_order", "max_per_order").
		From("ticket_types").
		Where(dbx.HashExp{"event_id": eventID}).
		OrderBy("price ASC").
		WithContext(ctx).
		All(&types)
	if err != nil {
		return nil, fmt.Errorf("inventory.TicketTypesForEvent: %w", err)
	}
	return types, nil
}

func availabilityKey(eventID string) string {
	return fmt.Sprintf("availability:%s", eventID)
}

// Availability returns remaining units per ticket type for display,
// served from the Redis cache when warm and recomputed otherwise.
func (s *InventoryService) Availability(ctx context.Context, eventID string) (map[string]int, error) {
	if s.redis != nil {
		cached, err := s.redis.HGetAll(ctx, availabilityKey(eventID)).Result()
		if err == nil && len(cached) > 0 {
			out := make(map[string]int, len(cached))
			for id, v := range cached {
				var n int
				if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
					out[id] = n
				}
			}
			return out, nil
		}
	}

	return s.RefreshAvailability(ctx, eventID)
}

// RefreshAvailability recomputes remaining counts from the ledger and
// rewrites the cache. Called after reserve/release commits; a cache write
// failure is logged and ignored since the source of truth is unaffected.
func (s *InventoryService) RefreshAvailability(ctx context.Context, eventID string) (map[string]int, error) {
	types, err := s.TicketTypesForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int, len(types))
	fields := make(map[string]any, len(types))
	for _, tt := range types {
		out[tt.ID] = tt.Remaining()
		fields[tt.ID] = tt.Remaining()
	}

	if s.redis != nil && len(fields) > 0 {
		key := availabilityKey(eventID)
		if err := s.redis.HSet(ctx, key, fields).Err(); err != nil {
			slog.Error("inventory: availability cache write failed", "event_id", eventID, "error", err)
		} else {
			s.redis.Expire(ctx, key, s.cacheTTL)
		}
	}

	return out, nil
}
