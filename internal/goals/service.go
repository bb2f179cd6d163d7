// Package goals tracks crowdfunding campaigns that buy teams into
// tournaments. The supporter count is always recomputed from the active
// support subscriptions inside the goal window, so duplicate or replayed
// payment events can never drift the aggregate.
package goals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/golacotv/golaco-backend/internal/commission"
	"github.com/golacotv/golaco-backend/internal/earnings"
	"github.com/golacotv/golaco-backend/internal/notifications"
	"github.com/golacotv/golaco-backend/pkg/db"
	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
	"github.com/golacotv/golaco-backend/pkg/metrics"
)

// PresalePrefix marks provider charge ids that belong to the presale
// support flow rather than a catalog purchase.
const PresalePrefix = "presale-"

// ServiceParams groups dependencies for the goal tracker service.
type ServiceParams struct {
	Client       *db.Client
	Repo         Repository
	EarningsRepo earnings.Repository
	Logger       *logger.Logger
	Notifier     notifications.Notifier
	Metrics      *metrics.WebhookMetrics
	ReleaseGrace time.Duration
}

// Service owns support subscription lifecycle and goal state transitions.
type Service struct {
	client       *db.Client
	repo         Repository
	earningsRepo earnings.Repository
	logger       *logger.Logger
	notifier     notifications.Notifier
	metrics      *metrics.WebhookMetrics
	releaseGrace time.Duration
}

// NewService builds a goal tracker service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Client == nil {
		return nil, errors.New("db client is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.EarningsRepo == nil {
		return nil, errors.New("earnings repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Notifier == nil {
		params.Notifier = notifications.NewLogNotifier(params.Logger)
	}
	if params.ReleaseGrace <= 0 {
		params.ReleaseGrace = 168 * time.Hour
	}
	return &Service{
		client:       params.Client,
		repo:         params.Repo,
		earningsRepo: params.EarningsRepo,
		logger:       params.Logger,
		notifier:     params.Notifier,
		metrics:      params.Metrics,
		releaseGrace: params.ReleaseGrace,
	}, nil
}

// SupportParams describe one support subscription opened at checkout.
type SupportParams struct {
	SupporterID            uuid.UUID
	TournamentID           uuid.UUID
	TeamID                 uuid.UUID
	Gateway                enums.PaymentGateway
	ExternalSubscriptionID string
	AmountCents            int64
}

// CreatePendingSupport records a support intent awaiting its payment
// confirmation. Pending supports never count toward the goal.
func (s *Service) CreatePendingSupport(ctx context.Context, params SupportParams) (*models.SupportSubscription, error) {
	if params.TournamentID == uuid.Nil || params.TeamID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tournament and team ids are required")
	}
	if params.ExternalSubscriptionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external subscription id is required")
	}

	tournament, err := s.repo.FindTournament(ctx, params.TournamentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading tournament")
	}
	if tournament == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tournament not found")
	}
	// a support sold outside the counting window could never help the
	// team confirm; refuse it before any charge is issued
	if !tournament.WindowContains(time.Now().UTC()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "tournament support window is not open")
	}

	support := &models.SupportSubscription{
		ID:                     uuid.New(),
		SupporterID:            params.SupporterID,
		TournamentID:           params.TournamentID,
		TeamID:                 params.TeamID,
		Gateway:                params.Gateway,
		ExternalSubscriptionID: params.ExternalSubscriptionID,
		Status:                 enums.SupportStatusPending,
		AmountCents:            params.AmountCents,
		StartedAt:              time.Now().UTC(),
	}
	if err := s.repo.CreateSupport(ctx, support); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating support subscription")
	}
	return support, nil
}

// ConfirmSupport flips a pending support to active once its payment
// confirms and recounts the goal. The payment time becomes the support's
// start so window checks see when the money actually arrived. The first
// payment also writes the team's goal payout into the earning ledger.
func (s *Service) ConfirmSupport(ctx context.Context, externalID string, paidAt time.Time) (*models.TournamentTeamGoal, error) {
	if externalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external subscription id is required")
	}
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}

	var goal *models.TournamentTeamGoal
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		support, err := repo.FindSupportByExternalID(ctx, externalID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading support subscription")
		}
		if support == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no support subscription for payment")
		}

		firstPayment := support.Status == enums.SupportStatusPending
		if support.Status != enums.SupportStatusActive {
			support.Status = enums.SupportStatusActive
			support.StartedAt = paidAt
			support.CanceledAt = nil
			if err := repo.UpdateSupport(ctx, support); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activating support subscription")
			}
		}

		tournament, err := repo.FindTournament(ctx, support.TournamentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading tournament")
		}
		if tournament == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "tournament not found")
		}

		if firstPayment {
			if err := s.writeSupportEarning(ctx, tx, tournament, support, paidAt); err != nil {
				return err
			}
		}

		goal, err = s.recountLocked(ctx, repo, tournament, support.TeamID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// writeSupportEarning records the team's cut of one first support payment.
// Replays never reach here: the support is already active the second time.
func (s *Service) writeSupportEarning(ctx context.Context, tx *gorm.DB, tournament *models.Tournament, support *models.SupportSubscription, paidAt time.Time) error {
	if tournament.GoalPayoutPercent <= 0 {
		return nil
	}
	gross := support.AmountCents
	if gross <= 0 {
		gross = tournament.SupportPriceCents
	}
	amount := commission.Share(gross, tournament.GoalPayoutPercent)
	if amount <= 0 {
		return nil
	}
	item := models.EarningLineItem{
		ID:              uuid.New(),
		BeneficiaryType: enums.BeneficiaryTypeTeam,
		BeneficiaryID:   support.TeamID,
		SourceType:      enums.SaleTypeGoalSupport,
		SourceID:        support.ID,
		GrossCents:      gross,
		Percent:         tournament.GoalPayoutPercent,
		AmountCents:     amount,
		Status:          enums.EarningStatusPending,
		ReleaseAt:       paidAt.Add(s.releaseGrace),
	}
	if err := s.earningsRepo.WithTx(tx).CreateLineItems(ctx, []models.EarningLineItem{item}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing support earning")
	}
	return nil
}

// CancelSupport deactivates a support subscription and recounts the goal.
// Unknown ids are acknowledged without side effects.
func (s *Service) CancelSupport(ctx context.Context, externalID string) (*models.TournamentTeamGoal, error) {
	if externalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external subscription id is required")
	}

	var goal *models.TournamentTeamGoal
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		support, err := repo.FindSupportByExternalID(ctx, externalID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading support subscription")
		}
		if support == nil {
			return nil
		}
		if support.Status == enums.SupportStatusActive {
			now := time.Now().UTC()
			support.Status = enums.SupportStatusCanceled
			support.CanceledAt = &now
			if err := repo.UpdateSupport(ctx, support); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "canceling support subscription")
			}
		}

		tournament, err := repo.FindTournament(ctx, support.TournamentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading tournament")
		}
		if tournament == nil {
			return nil
		}

		goal, err = s.recountLocked(ctx, repo, tournament, support.TeamID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// Recalculate recounts one goal from its source rows. Exposed for admin
// reconciliation; the settlement paths call it implicitly.
func (s *Service) Recalculate(ctx context.Context, tournamentID, teamID uuid.UUID) (*models.TournamentTeamGoal, error) {
	var goal *models.TournamentTeamGoal
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		tournament, err := repo.FindTournament(ctx, tournamentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading tournament")
		}
		if tournament == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "tournament not found")
		}

		goal, err = s.recountLocked(ctx, repo, tournament, teamID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// Progress lists all team goals of a tournament, highest count first.
func (s *Service) Progress(ctx context.Context, tournamentID uuid.UUID) ([]models.TournamentTeamGoal, error) {
	if tournamentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tournament id is required")
	}
	goals, err := s.repo.ListGoalsByTournament(ctx, tournamentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing goals")
	}
	return goals, nil
}

// recountLocked recomputes one goal row under a row lock and applies the
// state transitions. Confirmation latches when the tournament locks it.
func (s *Service) recountLocked(ctx context.Context, repo Repository, tournament *models.Tournament, teamID uuid.UUID) (*models.TournamentTeamGoal, error) {
	goal, err := repo.FindGoalLocked(ctx, tournament.ID, teamID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading goal")
	}
	if goal == nil {
		goal = &models.TournamentTeamGoal{
			ID:                 uuid.New(),
			TournamentID:       tournament.ID,
			TeamID:             teamID,
			RequiredSupporters: tournament.RequiredSupporters,
			TeamStatus:         enums.TeamStatusApplied,
			GoalStatus:         enums.GoalStatusPending,
		}
		if err := repo.CreateGoal(ctx, goal); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating goal")
		}
	}

	count, err := repo.CountActiveSupportsInWindow(ctx, tournament.ID, teamID, tournament.GoalStart, tournament.GoalEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recounting supporters")
	}

	wasAchieved := goal.Achieved()
	goal.CurrentSupporters = int(count)
	goal.RequiredSupporters = tournament.RequiredSupporters

	switch {
	case int(count) >= tournament.RequiredSupporters && tournament.RequiredSupporters > 0:
		goal.TeamStatus = enums.TeamStatusConfirmed
		goal.GoalStatus = enums.GoalStatusAchieved
		if goal.AchievedAt == nil {
			now := time.Now().UTC()
			goal.AchievedAt = &now
		}
		if tournament.LockConfirmation {
			goal.LockOnAchieve = true
		}

	case wasAchieved && goal.LockOnAchieve:
		// latched: the count drops but the confirmation stands
		goal.TeamStatus = enums.TeamStatusConfirmed
		goal.GoalStatus = enums.GoalStatusAchieved

	default:
		goal.GoalStatus = enums.GoalStatusPending
		goal.AchievedAt = nil
		if count > 0 {
			goal.TeamStatus = enums.TeamStatusInGoal
		} else {
			goal.TeamStatus = enums.TeamStatusApplied
		}
	}

	if err := repo.UpdateGoal(ctx, goal); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating goal")
	}

	if !wasAchieved && goal.Achieved() {
		s.metrics.IncGoalConfirmed()
		s.notifier.GoalAchieved(ctx, goal)
	}
	if wasAchieved && !goal.Achieved() {
		s.notifier.GoalReverted(ctx, goal)
	}
	return goal, nil
}
