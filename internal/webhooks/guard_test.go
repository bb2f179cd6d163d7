package webhooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/golacotv/golaco-backend/pkg/enums"
	"github.com/golacotv/golaco-backend/pkg/logger"
)

type fakeStore struct {
	values map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = "1"
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func setupGuardTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS webhook_events (
  id TEXT PRIMARY KEY,
  provider TEXT NOT NULL,
  provider_event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'processed',
  processing_error TEXT,
  payload BLOB,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (provider, provider_event_id)
);`
	require.NoError(t, conn.Exec(schema).Error)
	return conn
}

func newGuard(t *testing.T, conn *gorm.DB, store *fakeStore) *Guard {
	t.Helper()
	params := GuardParams{
		Repo:   NewRepository(conn),
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	}
	if store != nil {
		params.Store = store
	}
	guard, err := NewGuard(params)
	require.NoError(t, err)
	return guard
}

func TestGuardSuppressesDuplicateDelivery(t *testing.T) {
	conn := setupGuardTestDB(t)
	guard := newGuard(t, conn, nil)
	ctx := context.Background()

	proceed, err := guard.Begin(ctx, enums.PaymentGatewayPix, "evt-1", "OPENPIX:CHARGE_COMPLETED", []byte(`{}`))
	require.NoError(t, err)
	require.True(t, proceed)
	require.NoError(t, guard.Complete(ctx, enums.PaymentGatewayPix, "evt-1"))

	proceed, err = guard.Begin(ctx, enums.PaymentGatewayPix, "evt-1", "OPENPIX:CHARGE_COMPLETED", []byte(`{}`))
	require.NoError(t, err)
	require.False(t, proceed)
}

func TestGuardScopesDedupByProvider(t *testing.T) {
	conn := setupGuardTestDB(t)
	guard := newGuard(t, conn, nil)
	ctx := context.Background()

	proceed, err := guard.Begin(ctx, enums.PaymentGatewayPix, "evt-shared", "charge", nil)
	require.NoError(t, err)
	require.True(t, proceed)

	// the same id from the other rail is a different event
	proceed, err = guard.Begin(ctx, enums.PaymentGatewayStripe, "evt-shared", "invoice.paid", nil)
	require.NoError(t, err)
	require.True(t, proceed)
}

func TestGuardAllowsRetryAfterFailure(t *testing.T) {
	conn := setupGuardTestDB(t)
	guard := newGuard(t, conn, nil)
	ctx := context.Background()

	proceed, err := guard.Begin(ctx, enums.PaymentGatewayStripe, "evt-fail", "invoice.paid", nil)
	require.NoError(t, err)
	require.True(t, proceed)
	require.NoError(t, guard.Fail(ctx, enums.PaymentGatewayStripe, "evt-fail", errors.New("provider timeout")))

	// retry processes again and clears the annotation
	proceed, err = guard.Begin(ctx, enums.PaymentGatewayStripe, "evt-fail", "invoice.paid", nil)
	require.NoError(t, err)
	require.True(t, proceed)
	require.NoError(t, guard.Complete(ctx, enums.PaymentGatewayStripe, "evt-fail"))

	event, err := NewRepository(conn).FindByProviderEvent(ctx, enums.PaymentGatewayStripe, "evt-fail")
	require.NoError(t, err)
	require.Equal(t, enums.WebhookEventStatusProcessed, event.Status)
	require.Nil(t, event.ProcessingError)

	proceed, err = guard.Begin(ctx, enums.PaymentGatewayStripe, "evt-fail", "invoice.paid", nil)
	require.NoError(t, err)
	require.False(t, proceed)
}

func TestGuardFastPathShortCircuits(t *testing.T) {
	conn := setupGuardTestDB(t)
	store := newFakeStore()
	guard := newGuard(t, conn, store)
	ctx := context.Background()

	proceed, err := guard.Begin(ctx, enums.PaymentGatewayPix, "evt-fast", "charge", nil)
	require.NoError(t, err)
	require.True(t, proceed)
	require.NoError(t, guard.Complete(ctx, enums.PaymentGatewayPix, "evt-fast"))
	require.NotEmpty(t, store.values)

	proceed, err = guard.Begin(ctx, enums.PaymentGatewayPix, "evt-fast", "charge", nil)
	require.NoError(t, err)
	require.False(t, proceed)
}

func TestGuardRequiresEventID(t *testing.T) {
	conn := setupGuardTestDB(t)
	guard := newGuard(t, conn, nil)

	_, err := guard.Begin(context.Background(), enums.PaymentGatewayPix, "", "charge", nil)
	require.Error(t, err)
}
