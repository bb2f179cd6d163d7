package earnings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/golacotv/golaco-backend/pkg/db"
	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
)

func setupEarningsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schemas := []string{`
CREATE TABLE IF NOT EXISTS earning_line_items (
  id TEXT PRIMARY KEY,
  beneficiary_type TEXT NOT NULL,
  beneficiary_id TEXT NOT NULL,
  source_type TEXT NOT NULL,
  source_id TEXT NOT NULL,
  gross_cents INTEGER NOT NULL,
  percent INTEGER NOT NULL,
  amount_cents INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  release_at DATETIME NOT NULL,
  paid_at DATETIME,
  payment_reference TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS withdrawal_requests (
  id TEXT PRIMARY KEY,
  beneficiary_type TEXT NOT NULL,
  beneficiary_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  pix_key TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'requested',
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, schema := range schemas {
		require.NoError(t, conn.Exec(schema).Error)
	}
	return conn
}

func newEarningsService(t *testing.T, conn *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Client: db.NewFromGorm(conn),
		Repo:   NewRepository(conn),
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	require.NoError(t, err)
	return svc
}

func seedLineItem(t *testing.T, conn *gorm.DB, beneficiaryID uuid.UUID, amountCents int64, releaseAt time.Time) *models.EarningLineItem {
	t.Helper()
	item := &models.EarningLineItem{
		ID:              uuid.New(),
		BeneficiaryType: enums.BeneficiaryTypeTeam,
		BeneficiaryID:   beneficiaryID,
		SourceType:      enums.SaleTypePlan,
		SourceID:        uuid.New(),
		GrossCents:      amountCents * 10,
		Percent:         10,
		AmountCents:     amountCents,
		Status:          enums.EarningStatusPending,
		ReleaseAt:       releaseAt,
	}
	require.NoError(t, conn.Create(item).Error)
	return item
}

func TestSummarizeSplitsBalances(t *testing.T) {
	conn := setupEarningsTestDB(t)
	svc := newEarningsService(t, conn)
	beneficiaryID := uuid.New()
	now := time.Now().UTC()

	seedLineItem(t, conn, beneficiaryID, 10000, now.Add(-time.Hour))
	seedLineItem(t, conn, beneficiaryID, 3000, now.Add(48*time.Hour))

	paid := seedLineItem(t, conn, beneficiaryID, 2000, now.Add(-24*time.Hour))
	ref := "PIX-123"
	paidAt := now.Add(-time.Hour)
	paid.Status = enums.EarningStatusPaid
	paid.PaidAt = &paidAt
	paid.PaymentReference = &ref
	require.NoError(t, conn.Save(paid).Error)

	summary, err := svc.Summarize(context.Background(), enums.BeneficiaryTypeTeam, beneficiaryID)
	require.NoError(t, err)
	require.EqualValues(t, 10000, summary.AvailableCents)
	require.EqualValues(t, 3000, summary.UnreleasedCents)
	require.EqualValues(t, 0, summary.ReservedCents)
	require.EqualValues(t, 2000, summary.PaidCents)
}

func TestRequestWithdrawalReservesBalance(t *testing.T) {
	conn := setupEarningsTestDB(t)
	svc := newEarningsService(t, conn)
	beneficiaryID := uuid.New()
	now := time.Now().UTC()
	ctx := context.Background()

	seedLineItem(t, conn, beneficiaryID, 10000, now.Add(-time.Hour))

	first, err := svc.RequestWithdrawal(ctx, WithdrawalParams{
		BeneficiaryType: enums.BeneficiaryTypeTeam,
		BeneficiaryID:   beneficiaryID,
		AmountCents:     8000,
		PixKey:          "clube@golaco.tv",
	})
	require.NoError(t, err)
	require.Equal(t, enums.WithdrawalStatusRequested, first.Status)

	// the reservation must survive into the next check
	_, err = svc.RequestWithdrawal(ctx, WithdrawalParams{
		BeneficiaryType: enums.BeneficiaryTypeTeam,
		BeneficiaryID:   beneficiaryID,
		AmountCents:     5000,
		PixKey:          "clube@golaco.tv",
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInsufficientBalance, pkgerrors.As(err).Code())

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 2000, details["available_cents"])

	summary, err := svc.Summarize(ctx, enums.BeneficiaryTypeTeam, beneficiaryID)
	require.NoError(t, err)
	require.EqualValues(t, 2000, summary.AvailableCents)
	require.EqualValues(t, 8000, summary.ReservedCents)
}

func TestUnreleasedEarningsDoNotBackWithdrawals(t *testing.T) {
	conn := setupEarningsTestDB(t)
	svc := newEarningsService(t, conn)
	beneficiaryID := uuid.New()

	seedLineItem(t, conn, beneficiaryID, 5000, time.Now().UTC().Add(72*time.Hour))

	_, err := svc.RequestWithdrawal(context.Background(), WithdrawalParams{
		BeneficiaryType: enums.BeneficiaryTypeTeam,
		BeneficiaryID:   beneficiaryID,
		AmountCents:     100,
		PixKey:          "clube@golaco.tv",
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInsufficientBalance, pkgerrors.As(err).Code())
}

func TestCanceledWithdrawalReleasesBalance(t *testing.T) {
	conn := setupEarningsTestDB(t)
	svc := newEarningsService(t, conn)
	beneficiaryID := uuid.New()
	ctx := context.Background()

	seedLineItem(t, conn, beneficiaryID, 4000, time.Now().UTC().Add(-time.Hour))

	request, err := svc.RequestWithdrawal(ctx, WithdrawalParams{
		BeneficiaryType: enums.BeneficiaryTypeTeam,
		BeneficiaryID:   beneficiaryID,
		AmountCents:     4000,
		PixKey:          "clube@golaco.tv",
	})
	require.NoError(t, err)

	canceled, err := svc.AdvanceWithdrawal(ctx, request.ID, enums.WithdrawalStatusCanceled)
	require.NoError(t, err)
	require.Equal(t, enums.WithdrawalStatusCanceled, canceled.Status)

	summary, err := svc.Summarize(ctx, enums.BeneficiaryTypeTeam, beneficiaryID)
	require.NoError(t, err)
	require.EqualValues(t, 4000, summary.AvailableCents)
	require.EqualValues(t, 0, summary.ReservedCents)
}

func TestAdvanceWithdrawalRejectsFinalized(t *testing.T) {
	conn := setupEarningsTestDB(t)
	svc := newEarningsService(t, conn)
	beneficiaryID := uuid.New()
	ctx := context.Background()

	seedLineItem(t, conn, beneficiaryID, 4000, time.Now().UTC().Add(-time.Hour))
	request, err := svc.RequestWithdrawal(ctx, WithdrawalParams{
		BeneficiaryType: enums.BeneficiaryTypeTeam,
		BeneficiaryID:   beneficiaryID,
		AmountCents:     1000,
		PixKey:          "clube@golaco.tv",
	})
	require.NoError(t, err)

	paid, err := svc.AdvanceWithdrawal(ctx, request.ID, enums.WithdrawalStatusPaid)
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)

	// same target twice is a no-op
	again, err := svc.AdvanceWithdrawal(ctx, request.ID, enums.WithdrawalStatusPaid)
	require.NoError(t, err)
	require.Equal(t, enums.WithdrawalStatusPaid, again.Status)

	_, err = svc.AdvanceWithdrawal(ctx, request.ID, enums.WithdrawalStatusCanceled)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	conn := setupEarningsTestDB(t)
	svc := newEarningsService(t, conn)
	beneficiaryID := uuid.New()
	ctx := context.Background()

	item := seedLineItem(t, conn, beneficiaryID, 1500, time.Now().UTC().Add(-time.Hour))

	paid, err := svc.MarkPaid(ctx, item.ID, "PIX-REF-1")
	require.NoError(t, err)
	require.Equal(t, enums.EarningStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	again, err := svc.MarkPaid(ctx, item.ID, "PIX-REF-2")
	require.NoError(t, err)
	require.Equal(t, "PIX-REF-1", *again.PaymentReference)
}

func TestMarkPaidUnknownItem(t *testing.T) {
	conn := setupEarningsTestDB(t)
	svc := newEarningsService(t, conn)

	_, err := svc.MarkPaid(context.Background(), uuid.New(), "PIX-REF")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListLineItemsPaginates(t *testing.T) {
	conn := setupEarningsTestDB(t)
	svc := newEarningsService(t, conn)
	teamID := uuid.New()
	releaseAt := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	seeded := []*models.EarningLineItem{
		seedLineItem(t, conn, teamID, 100, releaseAt),
		seedLineItem(t, conn, teamID, 200, releaseAt),
		seedLineItem(t, conn, teamID, 300, releaseAt),
	}
	for i, item := range seeded {
		createdAt := releaseAt.Add(time.Duration(i) * time.Minute)
		require.NoError(t, conn.Model(item).UpdateColumn("created_at", createdAt).Error)
	}

	first, err := svc.ListLineItems(context.Background(), ListLineItemsParams{
		BeneficiaryType: enums.BeneficiaryTypeTeam,
		BeneficiaryID:   teamID,
		Limit:           2,
	})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.Cursor)
	require.Equal(t, int64(300), first.Items[0].AmountCents)

	second, err := svc.ListLineItems(context.Background(), ListLineItemsParams{
		BeneficiaryType: enums.BeneficiaryTypeTeam,
		BeneficiaryID:   teamID,
		Limit:           2,
		Cursor:          first.Cursor,
	})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Empty(t, second.Cursor)
	require.Equal(t, int64(100), second.Items[0].AmountCents)
}
