package inventory

import (
	"context"
	"sync"
	"testing"

	"carrykind-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLedgerTest(t *testing.T) (*Service, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	// A second pooled connection would get its own empty :memory: database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Cause{}, &models.Reservation{}, &models.LedgerEvent{}))

	cause := &models.Cause{
		Name:           "Beach Cleanup",
		TotalTotes:     10,
		AvailableTotes: 10,
		IsOnline:       true,
	}
	require.NoError(t, db.Create(cause).Error)
	return NewService(db), cause.CauseID
}

func loadTestCause(t *testing.T, db *gorm.DB, causeID uuid.UUID) models.Cause {
	var c models.Cause
	require.NoError(t, db.Where("cause_id = ?", causeID).First(&c).Error)
	return c
}

func TestReserve_MovesAvailableToReserved(t *testing.T) {
	s, causeID := setupLedgerTest(t)

	res, err := s.Reserve(context.Background(), causeID, 1)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, models.ReservationHeld, res.Status)

	c := loadTestCause(t, s.DB, causeID)
	assert.Equal(t, 9, c.AvailableTotes)
	assert.Equal(t, 1, c.ReservedTotes)
	assert.Equal(t, 10, c.TotalTotes)
}

func TestReserve_OutOfStock(t *testing.T) {
	s, causeID := setupLedgerTest(t)

	_, err := s.Reserve(context.Background(), causeID, 11)
	assert.Equal(t, ErrOutOfStock, err)

	// Failed reserve leaves counters untouched
	c := loadTestCause(t, s.DB, causeID)
	assert.Equal(t, 10, c.AvailableTotes)
	assert.Equal(t, 0, c.ReservedTotes)
}

func TestReserve_UnknownCause(t *testing.T) {
	s, _ := setupLedgerTest(t)
	_, err := s.Reserve(context.Background(), uuid.New(), 1)
	assert.Equal(t, ErrCauseNotFound, err)
}

func TestReserve_NoOversellUnderContention(t *testing.T) {
	s, causeID := setupLedgerTest(t)

	const attempts = 30
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Reserve(context.Background(), causeID, 1)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.Equal(t, ErrOutOfStock, err)
		}
	}
	assert.Equal(t, 10, ok)

	c := loadTestCause(t, s.DB, causeID)
	assert.Equal(t, 0, c.AvailableTotes)
	assert.Equal(t, 10, c.ReservedTotes)
	assert.Equal(t, 10, c.TotalTotes)
}

func TestCommit_MovesReservedToClaimed(t *testing.T) {
	s, causeID := setupLedgerTest(t)
	res, err := s.Reserve(context.Background(), causeID, 2)
	require.NoError(t, err)

	require.NoError(t, s.Commit(context.Background(), res.ReservationID))

	c := loadTestCause(t, s.DB, causeID)
	assert.Equal(t, 2, c.ClaimedTotes)
	assert.Equal(t, 0, c.ReservedTotes)
	assert.Equal(t, 8, c.AvailableTotes)
}

func TestCommit_Idempotent(t *testing.T) {
	s, causeID := setupLedgerTest(t)
	res, err := s.Reserve(context.Background(), causeID, 1)
	require.NoError(t, err)

	require.NoError(t, s.Commit(context.Background(), res.ReservationID))
	require.NoError(t, s.Commit(context.Background(), res.ReservationID))

	c := loadTestCause(t, s.DB, causeID)
	assert.Equal(t, 1, c.ClaimedTotes)
	assert.Equal(t, 0, c.ReservedTotes)
}

func TestCommit_ReleasedReservation(t *testing.T) {
	s, causeID := setupLedgerTest(t)
	res, err := s.Reserve(context.Background(), causeID, 1)
	require.NoError(t, err)
	require.NoError(t, s.Release(context.Background(), res.ReservationID))

	err = s.Commit(context.Background(), res.ReservationID)
	assert.Equal(t, ErrReservationReleased, err)
}

func TestRelease_ReturnsUnits(t *testing.T) {
	s, causeID := setupLedgerTest(t)
	res, err := s.Reserve(context.Background(), causeID, 3)
	require.NoError(t, err)

	require.NoError(t, s.Release(context.Background(), res.ReservationID))

	c := loadTestCause(t, s.DB, causeID)
	assert.Equal(t, 10, c.AvailableTotes)
	assert.Equal(t, 0, c.ReservedTotes)
}

func TestRelease_Idempotent(t *testing.T) {
	s, causeID := setupLedgerTest(t)
	res, err := s.Reserve(context.Background(), causeID, 1)
	require.NoError(t, err)

	require.NoError(t, s.Release(context.Background(), res.ReservationID))
	require.NoError(t, s.Release(context.Background(), res.ReservationID))

	// Double release must not double-credit
	c := loadTestCause(t, s.DB, causeID)
	assert.Equal(t, 10, c.AvailableTotes)
}

func TestRelease_AfterCommitIsNoOp(t *testing.T) {
	s, causeID := setupLedgerTest(t)
	res, err := s.Reserve(context.Background(), causeID, 1)
	require.NoError(t, err)
	require.NoError(t, s.Commit(context.Background(), res.ReservationID))

	require.NoError(t, s.Release(context.Background(), res.ReservationID))

	c := loadTestCause(t, s.DB, causeID)
	assert.Equal(t, 1, c.ClaimedTotes)
	assert.Equal(t, 9, c.AvailableTotes)
}

func TestRelease_UnknownReservation(t *testing.T) {
	s, _ := setupLedgerTest(t)
	err := s.Release(context.Background(), uuid.New())
	assert.Equal(t, ErrReservationNotFound, err)
}

func TestGrow(t *testing.T) {
	s, causeID := setupLedgerTest(t)
	require.NoError(t, s.Grow(context.Background(), causeID, 5))

	c := loadTestCause(t, s.DB, causeID)
	assert.Equal(t, 15, c.TotalTotes)
	assert.Equal(t, 15, c.AvailableTotes)
}

func TestShrink_FullRemoval(t *testing.T) {
	s, causeID := setupLedgerTest(t)

	result, err := s.Shrink(context.Background(), causeID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Removed)
	assert.Equal(t, 0, result.Shortfall)

	c := loadTestCause(t, s.DB, causeID)
	assert.Equal(t, 6, c.TotalTotes)
	assert.Equal(t, 6, c.AvailableTotes)
}

func TestShrink_FloorsAtAvailable(t *testing.T) {
	s, causeID := setupLedgerTest(t)
	res, err := s.Reserve(context.Background(), causeID, 3)
	require.NoError(t, err)
	require.NoError(t, s.Commit(context.Background(), res.ReservationID))

	// 7 available; a shrink of 10 can only recover 7
	result, err := s.Shrink(context.Background(), causeID, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, result.Removed)
	assert.Equal(t, 3, result.Shortfall)

	c := loadTestCause(t, s.DB, causeID)
	assert.Equal(t, 3, c.TotalTotes)
	assert.Equal(t, 0, c.AvailableTotes)
	assert.Equal(t, 3, c.ClaimedTotes)
}

func TestLedgerEvents_AppendedPerOperation(t *testing.T) {
	s, causeID := setupLedgerTest(t)
	ctx := context.Background()

	res, err := s.Reserve(ctx, causeID, 1)
	require.NoError(t, err)
	require.NoError(t, s.Commit(ctx, res.ReservationID))
	require.NoError(t, s.Grow(ctx, causeID, 2))
	_, err = s.Shrink(ctx, causeID, 1)
	require.NoError(t, err)

	var events []models.LedgerEvent
	require.NoError(t, s.DB.Where("cause_id = ?", causeID).Order("created_at ASC").Find(&events).Error)
	require.Len(t, events, 4)
	assert.Equal(t, models.LedgerReserved, events[0].EventType)
	assert.Equal(t, models.LedgerCommitted, events[1].EventType)
	assert.Equal(t, models.LedgerGrown, events[2].EventType)
	assert.Equal(t, models.LedgerShrunk, events[3].EventType)
	require.NotNil(t, events[0].ReservationID)
	assert.Equal(t, res.ReservationID, *events[0].ReservationID)
}

func TestCheckCounters_RejectsDrift(t *testing.T) {
	assert.NoError(t, checkCounters(&models.Cause{TotalTotes: 5, ClaimedTotes: 2, AvailableTotes: 2, ReservedTotes: 1}))
	assert.Equal(t, ErrInvariantViolation, checkCounters(&models.Cause{TotalTotes: 5, ClaimedTotes: 2, AvailableTotes: 2, ReservedTotes: 2}))
	assert.Equal(t, ErrInvariantViolation, checkCounters(&models.Cause{TotalTotes: 1, AvailableTotes: -1, ReservedTotes: 2}))
}
