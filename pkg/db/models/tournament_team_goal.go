package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/golacotv/golaco-backend/pkg/enums"
)

// TournamentTeamGoal is the per (tournament, team) crowdfunding aggregate.
// CurrentSupporters is always recomputed by rescanning active support
// subscriptions inside the goal window, never incremented in place.
type TournamentTeamGoal struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TournamentID       uuid.UUID        `gorm:"column:tournament_id;type:uuid;not null;uniqueIndex:ux_tournament_team_goals_pair,priority:1"`
	TeamID             uuid.UUID        `gorm:"column:team_id;type:uuid;not null;uniqueIndex:ux_tournament_team_goals_pair,priority:2"`
	RequiredSupporters int              `gorm:"column:required_supporters;not null"`
	CurrentSupporters  int              `gorm:"column:current_supporters;not null;default:0"`
	TeamStatus         enums.TeamStatus `gorm:"column:team_status;type:team_status;not null;default:'APPLIED'"`
	GoalStatus         enums.GoalStatus `gorm:"column:goal_status;type:goal_status;not null;default:'PENDING'"`
	AchievedAt         *time.Time       `gorm:"column:achieved_at"`
	LockOnAchieve      bool             `gorm:"column:lock_on_achieve;not null;default:false"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// Achieved reports whether the goal is currently in the confirmed state.
func (g *TournamentTeamGoal) Achieved() bool {
	return g.TeamStatus == enums.TeamStatusConfirmed && g.GoalStatus == enums.GoalStatusAchieved
}
