package goals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
)

// Repository handles goal tracker persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	FindGoal(ctx context.Context, tournamentID, teamID uuid.UUID) (*models.TournamentTeamGoal, error)
	FindGoalLocked(ctx context.Context, tournamentID, teamID uuid.UUID) (*models.TournamentTeamGoal, error)
	CreateGoal(ctx context.Context, goal *models.TournamentTeamGoal) error
	UpdateGoal(ctx context.Context, goal *models.TournamentTeamGoal) error
	ListGoalsByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.TournamentTeamGoal, error)
	CreateSupport(ctx context.Context, support *models.SupportSubscription) error
	UpdateSupport(ctx context.Context, support *models.SupportSubscription) error
	FindSupportByExternalID(ctx context.Context, externalID string) (*models.SupportSubscription, error)
	CountActiveSupportsInWindow(ctx context.Context, tournamentID, teamID uuid.UUID, start, end *time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a goals repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	var tournament models.Tournament
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&tournament).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &tournament, nil
}

func (r *repository) FindGoal(ctx context.Context, tournamentID, teamID uuid.UUID) (*models.TournamentTeamGoal, error) {
	return r.findGoal(ctx, tournamentID, teamID, false)
}

func (r *repository) FindGoalLocked(ctx context.Context, tournamentID, teamID uuid.UUID) (*models.TournamentTeamGoal, error) {
	return r.findGoal(ctx, tournamentID, teamID, true)
}

func (r *repository) findGoal(ctx context.Context, tournamentID, teamID uuid.UUID, lock bool) (*models.TournamentTeamGoal, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var goal models.TournamentTeamGoal
	if err := query.
		Where("tournament_id = ? AND team_id = ?", tournamentID, teamID).
		First(&goal).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &goal, nil
}

func (r *repository) CreateGoal(ctx context.Context, goal *models.TournamentTeamGoal) error {
	return r.db.WithContext(ctx).Create(goal).Error
}

func (r *repository) UpdateGoal(ctx context.Context, goal *models.TournamentTeamGoal) error {
	return r.db.WithContext(ctx).Save(goal).Error
}

func (r *repository) ListGoalsByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.TournamentTeamGoal, error) {
	var goals []models.TournamentTeamGoal
	if err := r.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("current_supporters DESC, created_at ASC").
		Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *repository) CreateSupport(ctx context.Context, support *models.SupportSubscription) error {
	return r.db.WithContext(ctx).Create(support).Error
}

func (r *repository) UpdateSupport(ctx context.Context, support *models.SupportSubscription) error {
	return r.db.WithContext(ctx).Save(support).Error
}

func (r *repository) FindSupportByExternalID(ctx context.Context, externalID string) (*models.SupportSubscription, error) {
	if externalID == "" {
		return nil, nil
	}
	var support models.SupportSubscription
	if err := r.db.WithContext(ctx).
		Where("external_subscription_id = ?", externalID).
		First(&support).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &support, nil
}

// CountActiveSupportsInWindow recounts qualifying supporters from the
// source rows. Counting never trusts the cached aggregate.
func (r *repository) CountActiveSupportsInWindow(ctx context.Context, tournamentID, teamID uuid.UUID, start, end *time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SupportSubscription{}).
		Where("tournament_id = ? AND team_id = ?", tournamentID, teamID).
		Where("status = ?", enums.SupportStatusActive)
	if start != nil {
		query = query.Where("started_at >= ?", *start)
	}
	if end != nil {
		query = query.Where("started_at <= ?", *end)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
