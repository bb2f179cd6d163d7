package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/golacotv/golaco-backend/pkg/logger"
)

// SubscriptionExpiryJobParams configure the subscription expiry sweep.
type SubscriptionExpiryJobParams struct {
	Logger *logger.Logger
	Repo   subscriptionExpirer
	Now    func() time.Time
}

type subscriptionExpirer interface {
	DeactivateExpired(ctx context.Context, asOf time.Time) (int64, error)
}

// NewSubscriptionExpiryJob builds the job that deactivates subscriptions
// whose paid period has lapsed without a renewal event. Access checks
// already consult ExpiresAt, so the sweep only keeps the stored Active
// flag honest for reporting and listings.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &subscriptionExpiryJob{
		logg: params.Logger,
		repo: params.Repo,
		now:  now,
	}, nil
}

type subscriptionExpiryJob struct {
	logg *logger.Logger
	repo subscriptionExpirer
	now  func() time.Time
}

func (j *subscriptionExpiryJob) Name() string { return "subscription-expiry" }

func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	logCtx := j.logg.WithField(ctx, "job", j.Name())
	deactivated, err := j.repo.DeactivateExpired(logCtx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate expired subscriptions: %w", err)
	}
	reportCtx := j.logg.WithField(logCtx, "deactivated", deactivated)
	j.logg.Info(reportCtx, "subscription expiry sweep complete")
	return nil
}
