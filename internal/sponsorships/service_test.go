package sponsorships

import (
	"context"
	"testing"

	"carrykind-backend/internal/inventory"
	"carrykind-backend/internal/models"
	"carrykind-backend/internal/waitlist"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupSponsorshipTest(t *testing.T) (*Service, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	// A second pooled connection would get its own empty :memory: database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Cause{}, &models.Sponsorship{}, &models.Reservation{},
		&models.LedgerEvent{}, &models.WaitlistEntry{},
	))

	cause := &models.Cause{Name: "Tree Planting", IsOnline: true}
	require.NoError(t, db.Create(cause).Error)

	ledger := inventory.NewService(db)
	wl := waitlist.NewService(db, ledger, nil, "https://carrykind.org")
	return &Service{DB: db, Ledger: ledger, Waitlist: wl}, cause.CauseID
}

func submitPending(t *testing.T, s *Service, causeID uuid.UUID, qty int) *models.Sponsorship {
	sp, err := s.Submit(context.Background(), SubmitInput{
		CauseID:      causeID,
		SponsorName:  "Acme Outfitters",
		SponsorEmail: "Sponsor@Example.com",
		ToteQuantity: qty,
	})
	require.NoError(t, err)
	return sp
}

func TestSubmit_Pending(t *testing.T) {
	s, causeID := setupSponsorshipTest(t)

	sp := submitPending(t, s, causeID, 20)
	assert.Equal(t, models.SponsorshipPending, sp.Status)
	assert.Equal(t, models.LogoPending, sp.LogoStatus)
	assert.Equal(t, "sponsor@example.com", sp.SponsorEmail)

	// No inventory effect before approval
	var cause models.Cause
	require.NoError(t, s.DB.Where("cause_id = ?", causeID).First(&cause).Error)
	assert.Equal(t, 0, cause.TotalTotes)
}

func TestSubmit_InvalidQuantity(t *testing.T) {
	s, causeID := setupSponsorshipTest(t)
	_, err := s.Submit(context.Background(), SubmitInput{CauseID: causeID, SponsorName: "x", SponsorEmail: "a@b.com", ToteQuantity: 0})
	assert.Equal(t, ErrInvalidQuantity, err)
}

func TestSubmit_UnknownCause(t *testing.T) {
	s, _ := setupSponsorshipTest(t)
	_, err := s.Submit(context.Background(), SubmitInput{CauseID: uuid.New(), SponsorName: "x", SponsorEmail: "a@b.com", ToteQuantity: 5})
	assert.Equal(t, inventory.ErrCauseNotFound, err)
}

func TestApprove_GrowsPoolAndPromotes(t *testing.T) {
	s, causeID := setupSponsorshipTest(t)
	ctx := context.Background()

	_, err := s.Waitlist.Join(ctx, causeID, "waiting@example.com")
	require.NoError(t, err)

	sp := submitPending(t, s, causeID, 20)
	approved, err := s.Approve(ctx, sp.SponsorshipID)
	require.NoError(t, err)
	assert.Equal(t, models.SponsorshipApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)

	var cause models.Cause
	require.NoError(t, s.DB.Where("cause_id = ?", causeID).First(&cause).Error)
	assert.Equal(t, 20, cause.TotalTotes)
	// One tote immediately moved to the waiting claimant
	assert.Equal(t, 19, cause.AvailableTotes)
	assert.Equal(t, 1, cause.ReservedTotes)

	var entry models.WaitlistEntry
	require.NoError(t, s.DB.Where("email = ?", "waiting@example.com").First(&entry).Error)
	assert.Equal(t, models.WaitlistNotified, entry.Status)
}

func TestApprove_OnlyPending(t *testing.T) {
	s, causeID := setupSponsorshipTest(t)
	ctx := context.Background()

	sp := submitPending(t, s, causeID, 5)
	_, err := s.Approve(ctx, sp.SponsorshipID)
	require.NoError(t, err)
	_, err = s.Approve(ctx, sp.SponsorshipID)
	assert.Equal(t, ErrNotPending, err)
}

func TestReject(t *testing.T) {
	s, causeID := setupSponsorshipTest(t)
	ctx := context.Background()

	sp := submitPending(t, s, causeID, 5)
	rejected, err := s.Reject(ctx, sp.SponsorshipID, "Logo does not meet guidelines")
	require.NoError(t, err)
	assert.Equal(t, models.SponsorshipRejected, rejected.Status)
	assert.Equal(t, models.LogoRejected, rejected.LogoStatus)
	require.NotNil(t, rejected.RejectReason)
	assert.Equal(t, "Logo does not meet guidelines", *rejected.RejectReason)

	// A rejected sponsorship cannot be approved afterwards
	_, err = s.Approve(ctx, sp.SponsorshipID)
	assert.Equal(t, ErrNotPending, err)
}

func TestReject_ReasonRequired(t *testing.T) {
	s, causeID := setupSponsorshipTest(t)
	sp := submitPending(t, s, causeID, 5)
	_, err := s.Reject(context.Background(), sp.SponsorshipID, "  ")
	assert.Equal(t, ErrReasonRequired, err)
}

func TestEndCampaign_FullRecovery(t *testing.T) {
	s, causeID := setupSponsorshipTest(t)
	ctx := context.Background()

	sp := submitPending(t, s, causeID, 10)
	_, err := s.Approve(ctx, sp.SponsorshipID)
	require.NoError(t, err)

	ended, err := s.EndCampaign(ctx, sp.SponsorshipID)
	require.NoError(t, err)
	assert.Equal(t, models.SponsorshipEnded, ended.Status)
	assert.Equal(t, 0, ended.UnrecoveredTotes)
	assert.NotNil(t, ended.EndedAt)

	var cause models.Cause
	require.NoError(t, s.DB.Where("cause_id = ?", causeID).First(&cause).Error)
	assert.Equal(t, 0, cause.TotalTotes)
}

func TestEndCampaign_RecordsShortfall(t *testing.T) {
	s, causeID := setupSponsorshipTest(t)
	ctx := context.Background()

	sp := submitPending(t, s, causeID, 10)
	_, err := s.Approve(ctx, sp.SponsorshipID)
	require.NoError(t, err)

	// Three totes go out before the campaign ends
	res, err := s.Ledger.Reserve(ctx, causeID, 3)
	require.NoError(t, err)
	require.NoError(t, s.Ledger.Commit(ctx, res.ReservationID))

	ended, err := s.EndCampaign(ctx, sp.SponsorshipID)
	require.NoError(t, err)
	assert.Equal(t, 3, ended.UnrecoveredTotes)

	var cause models.Cause
	require.NoError(t, s.DB.Where("cause_id = ?", causeID).First(&cause).Error)
	assert.Equal(t, 3, cause.TotalTotes)
	assert.Equal(t, 3, cause.ClaimedTotes)
	assert.Equal(t, 0, cause.AvailableTotes)
}

func TestEndCampaign_OnlyApproved(t *testing.T) {
	s, causeID := setupSponsorshipTest(t)
	sp := submitPending(t, s, causeID, 5)
	_, err := s.EndCampaign(context.Background(), sp.SponsorshipID)
	assert.Equal(t, ErrNotApproved, err)
}

func TestList_Filters(t *testing.T) {
	s, causeID := setupSponsorshipTest(t)
	ctx := context.Background()

	first := submitPending(t, s, causeID, 5)
	submitPending(t, s, causeID, 8)
	_, err := s.Approve(ctx, first.SponsorshipID)
	require.NoError(t, err)

	all, err := s.List(ctx, ListInput{CauseID: &causeID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := s.List(ctx, ListInput{Status: models.SponsorshipPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestApprove_GrowFailureKeepsPending(t *testing.T) {
	s, causeID := setupSponsorshipTest(t)
	ctx := context.Background()
	sp := submitPending(t, s, causeID, 5)

	require.NoError(t, s.DB.Where("cause_id = ?", causeID).Delete(&models.Cause{}).Error)

	_, err := s.Approve(ctx, sp.SponsorshipID)
	assert.Equal(t, inventory.ErrCauseNotFound, err)

	// Approval is still retriable: the transition was never persisted.
	var got models.Sponsorship
	require.NoError(t, s.DB.Where("sponsorship_id = ?", sp.SponsorshipID).First(&got).Error)
	assert.Equal(t, models.SponsorshipPending, got.Status)
	assert.Nil(t, got.ApprovedAt)
}
