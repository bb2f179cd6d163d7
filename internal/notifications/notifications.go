// Package notifications fans settlement events out to interested parties.
// The engine only depends on the Notifier interface; delivery transports
// live behind it.
package notifications

import (
	"context"

	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/logger"
)

// Notifier receives settlement lifecycle events. Implementations must be
// non-blocking and must never fail the settlement path.
type Notifier interface {
	PurchaseSettled(ctx context.Context, purchase *models.Purchase)
	GoalAchieved(ctx context.Context, goal *models.TournamentTeamGoal)
	GoalReverted(ctx context.Context, goal *models.TournamentTeamGoal)
	WithdrawalRequested(ctx context.Context, request *models.WithdrawalRequest)
}

// LogNotifier writes events to the structured log. It is the default
// transport and the fallback when no external channel is configured.
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier builds a log-backed notifier.
func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logg}
}

func (n *LogNotifier) PurchaseSettled(ctx context.Context, purchase *models.Purchase) {
	n.logger.Info(n.logger.WithFields(ctx, map[string]any{
		"purchase_id": purchase.ID,
		"buyer_id":    purchase.BuyerID,
		"gateway":     purchase.Gateway,
		"gross_cents": purchase.GrossCents,
	}), "purchase settled, access granted")
}

func (n *LogNotifier) GoalAchieved(ctx context.Context, goal *models.TournamentTeamGoal) {
	n.logger.Info(n.logger.WithFields(ctx, map[string]any{
		"tournament_id":      goal.TournamentID,
		"team_id":            goal.TeamID,
		"current_supporters": goal.CurrentSupporters,
	}), "goal achieved, team confirmed")
}

func (n *LogNotifier) GoalReverted(ctx context.Context, goal *models.TournamentTeamGoal) {
	n.logger.Warn(n.logger.WithFields(ctx, map[string]any{
		"tournament_id":      goal.TournamentID,
		"team_id":            goal.TeamID,
		"current_supporters": goal.CurrentSupporters,
	}), "goal no longer met, confirmation reverted")
}

func (n *LogNotifier) WithdrawalRequested(ctx context.Context, request *models.WithdrawalRequest) {
	n.logger.Info(n.logger.WithFields(ctx, map[string]any{
		"withdrawal_id":    request.ID,
		"beneficiary_type": request.BeneficiaryType,
		"beneficiary_id":   request.BeneficiaryID,
		"amount_cents":     request.AmountCents,
	}), "withdrawal requested, manual payout pending")
}
