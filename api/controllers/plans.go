package controllers

import (
	"context"
	"net/http"

	"github.com/golacotv/golaco-backend/api/responses"
	"github.com/golacotv/golaco-backend/pkg/db/models"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
)

type planLister interface {
	ListPlans(ctx context.Context) ([]models.Plan, error)
}

// ListPlans returns the purchasable catalog.
func ListPlans(svc planLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}
		plans, err := svc.ListPlans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPlanListResponse(plans))
	}
}

type planResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	PriceCents   int64    `json:"price_cents"`
	CurrencyCode string   `json:"currency_code"`
	Recurring    bool     `json:"recurring"`
	Interval     string   `json:"interval"`
	Features     []string `json:"features"`
}

func newPlanListResponse(plans []models.Plan) []planResponse {
	out := make([]planResponse, 0, len(plans))
	for i := range plans {
		p := &plans[i]
		out = append(out, planResponse{
			ID:           p.ID.String(),
			Name:         p.Name,
			Kind:         string(p.Kind),
			PriceCents:   p.PriceCents(),
			CurrencyCode: p.CurrencyCode,
			Recurring:    p.Recurring,
			Interval:     string(p.Interval),
			Features:     []string(p.Features),
		})
	}
	return out
}
