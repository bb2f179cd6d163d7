package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golacotv/golaco-backend/pkg/logger"
)

func TestSubscriptionExpiryJobSweepsAtCurrentTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	repo := &fakeSubscriptionExpirer{deactivated: 3}
	job, err := NewSubscriptionExpiryJob(SubscriptionExpiryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Repo:   repo,
		Now:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewSubscriptionExpiryJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !repo.lastAsOf.Equal(now.UTC()) {
		t.Fatalf("expected sweep at %s, got %s", now.UTC(), repo.lastAsOf)
	}
	if repo.called != 1 {
		t.Fatalf("expected one sweep, got %d", repo.called)
	}
}

func TestSubscriptionExpiryJobPropagatesErrors(t *testing.T) {
	repo := &fakeSubscriptionExpirer{err: errors.New("db offline")}
	job, err := NewSubscriptionExpiryJob(SubscriptionExpiryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Repo:   repo,
	})
	if err != nil {
		t.Fatalf("NewSubscriptionExpiryJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeSubscriptionExpirer struct {
	lastAsOf    time.Time
	deactivated int64
	err         error
	called      int
}

func (f *fakeSubscriptionExpirer) DeactivateExpired(ctx context.Context, asOf time.Time) (int64, error) {
	f.called++
	f.lastAsOf = asOf
	if f.err != nil {
		return 0, f.err
	}
	return f.deactivated, nil
}
