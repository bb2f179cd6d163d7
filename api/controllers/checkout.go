package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/golacotv/golaco-backend/api/responses"
	"github.com/golacotv/golaco-backend/api/validators"
	checkoutsvc "github.com/golacotv/golaco-backend/internal/checkout"
	"github.com/golacotv/golaco-backend/pkg/enums"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
)

type checkoutService interface {
	StartPurchase(ctx context.Context, params checkoutsvc.StartPurchaseParams) (*checkoutsvc.PurchaseIntent, error)
	StartSupport(ctx context.Context, params checkoutsvc.StartSupportParams) (*checkoutsvc.SupportIntent, error)
}

type purchaseCheckoutRequest struct {
	BuyerID   uuid.UUID  `json:"buyer_id" validate:"required,uuid4"`
	PlanID    uuid.UUID  `json:"plan_id" validate:"required,uuid4"`
	ContentID *uuid.UUID `json:"content_id,omitempty" validate:"omitempty,uuid4"`
	TeamID    *uuid.UUID `json:"team_id,omitempty" validate:"omitempty,uuid4"`
	PartnerID *uuid.UUID `json:"partner_id,omitempty" validate:"omitempty,uuid4"`
	Gateway   string     `json:"gateway" validate:"required,oneof=pix stripe"`
}

// CheckoutPurchase opens a provider charge and a pending purchase.
func CheckoutPurchase(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload purchaseCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.StartPurchase(r.Context(), checkoutsvc.StartPurchaseParams{
			BuyerID:   payload.BuyerID,
			PlanID:    payload.PlanID,
			ContentID: payload.ContentID,
			TeamID:    payload.TeamID,
			PartnerID: payload.PartnerID,
			Gateway:   enums.PaymentGateway(payload.Gateway),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}

type supportCheckoutRequest struct {
	SupporterID  uuid.UUID `json:"supporter_id" validate:"required,uuid4"`
	TournamentID uuid.UUID `json:"tournament_id" validate:"required,uuid4"`
	TeamID       uuid.UUID `json:"team_id" validate:"required,uuid4"`
	AmountCents  int64     `json:"amount_cents" validate:"required,gt=0"`
	Gateway      string    `json:"gateway" validate:"required,oneof=pix stripe"`
}

// CheckoutSupport opens a recurring provider charge and the presale row
// behind a crowdfunding goal.
func CheckoutSupport(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload supportCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.StartSupport(r.Context(), checkoutsvc.StartSupportParams{
			SupporterID:  payload.SupporterID,
			TournamentID: payload.TournamentID,
			TeamID:       payload.TeamID,
			AmountCents:  payload.AmountCents,
			Gateway:      enums.PaymentGateway(payload.Gateway),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}
