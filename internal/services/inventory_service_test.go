package services

import (
	"context"
	"testing"
	"time"

	"ticketmarket/internal/status"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailability_ServedFromCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectHGetAll("availability:evt1").SetVal(map[string]string{
		"tt_vip":     "12",
		"tt_regular": "340",
	})

	svc := NewInventoryService(nil, db, 5*time.Second)

	got, err := svc.Availability(context.Background(), "evt1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"tt_vip": 12, "tt_regular": 340}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailability_IgnoresMalformedCacheValues(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectHGetAll("availability:evt1").SetVal(map[string]string{
		"tt_vip": "12",
		"tt_bad": "not-a-number",
	})

	svc := NewInventoryService(nil, db, 5*time.Second)

	got, err := svc.Availability(context.Background(), "evt1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"tt_vip": 12}, got)
}

func TestAvailabilityKey(t *testing.T) {
	assert.Equal(t, "availability:evt1", availabilityKey("evt1"))
}

func TestReserve_RefusesOversell(t *testing.T) {
	app := setupTestApp(t)
	tt := seedTicketType(t, app, "evt1", 25, 5, 3)
	svc := NewInventoryService(app, nil, time.Second)
	ctx := context.Background()

	// 2 remaining, asking for 3
	err := svc.Reserve(ctx, app.DB(), tt.Id, 3)
	assert.ErrorIs(t, err, status.ErrInsufficientInventory)
	assert.Equal(t, 3, soldQuantity(t, app, tt.Id), "rejected reserve must not move the counter")

	require.NoError(t, svc.Reserve(ctx, app.DB(), tt.Id, 2))
	assert.Equal(t, 5, soldQuantity(t, app, tt.Id))

	// sold out, even a single unit is refused
	assert.ErrorIs(t, svc.Reserve(ctx, app.DB(), tt.Id, 1), status.ErrInsufficientInventory)
	assert.Equal(t, 5, soldQuantity(t, app, tt.Id))
}

func TestReserve_UnknownTicketType(t *testing.T) {
	app := setupTestApp(t)
	svc := NewInventoryService(app, nil, time.Second)

	err := svc.Reserve(context.Background(), app.DB(), "missing", 1)
	assert.ErrorIs(t, err, status.ErrTicketTypeNotFound)
}

func TestRelease_RefusesUnderflow(t *testing.T) {
	app := setupTestApp(t)
	tt := seedTicketType(t, app, "evt1", 25, 5, 1)
	svc := NewInventoryService(app, nil, time.Second)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Release(ctx, app.DB(), tt.Id, 2), status.ErrReleaseUnderflow)
	assert.Equal(t, 1, soldQuantity(t, app, tt.Id), "refused release must not move the counter")

	require.NoError(t, svc.Release(ctx, app.DB(), tt.Id, 1))
	assert.Equal(t, 0, soldQuantity(t, app, tt.Id))

	assert.ErrorIs(t, svc.Release(ctx, app.DB(), tt.Id, 1), status.ErrReleaseUnderflow)
}

func TestReserveRelease_RoundTrip(t *testing.T) {
	app := setupTestApp(t)
	tt := seedTicketType(t, app, "evt1", 25, 2, 0)
	svc := NewInventoryService(app, nil, time.Second)
	ctx := context.Background()

	require.NoError(t, svc.Reserve(ctx, app.DB(), tt.Id, 2))
	assert.ErrorIs(t, svc.Reserve(ctx, app.DB(), tt.Id, 1), status.ErrInsufficientInventory)

	require.NoError(t, svc.Release(ctx, app.DB(), tt.Id, 2))
	require.NoError(t, svc.Reserve(ctx, app.DB(), tt.Id, 2), "released capacity must be reservable again")
	assert.Equal(t, 2, soldQuantity(t, app, tt.Id))
}
