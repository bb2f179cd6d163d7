package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/golacotv/golaco-backend/api/responses"
	"github.com/golacotv/golaco-backend/pkg/db/models"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
)

type goalTracker interface {
	Progress(ctx context.Context, tournamentID uuid.UUID) ([]models.TournamentTeamGoal, error)
	Recalculate(ctx context.Context, tournamentID, teamID uuid.UUID) (*models.TournamentTeamGoal, error)
}

// TournamentGoals returns every team's goal progress for a tournament,
// most supported first.
func TournamentGoals(svc goalTracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "goal service unavailable"))
			return
		}
		tournamentID, err := pathUUID(r, "tournamentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		goals, err := svc.Progress(r.Context(), tournamentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, goals)
	}
}

// RecalculateGoal forces a recount of one team's goal from the active
// support rows.
func RecalculateGoal(svc goalTracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "goal service unavailable"))
			return
		}
		tournamentID, err := pathUUID(r, "tournamentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		teamID, err := pathUUID(r, "teamId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		goal, err := svc.Recalculate(r.Context(), tournamentID, teamID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, goal)
	}
}
