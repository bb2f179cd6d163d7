package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/golacotv/golaco-backend/api/responses"
	"github.com/golacotv/golaco-backend/api/validators"
	"github.com/golacotv/golaco-backend/internal/earnings"
	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
	"github.com/golacotv/golaco-backend/pkg/pagination"
)

type earningsService interface {
	Summarize(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID) (*earnings.Summary, error)
	ListLineItems(ctx context.Context, params earnings.ListLineItemsParams) (*earnings.LineItemPage, error)
	MarkPaid(ctx context.Context, lineItemID uuid.UUID, paymentReference string) (*models.EarningLineItem, error)
	RequestWithdrawal(ctx context.Context, params earnings.WithdrawalParams) (*models.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID) ([]models.WithdrawalRequest, error)
	AdvanceWithdrawal(ctx context.Context, id uuid.UUID, status enums.WithdrawalStatus) (*models.WithdrawalRequest, error)
}

func beneficiaryFromPath(r *http.Request) (enums.BeneficiaryType, uuid.UUID, error) {
	kind := enums.BeneficiaryType(chi.URLParam(r, "beneficiaryType"))
	if !kind.IsValid() {
		return "", uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown beneficiary type")
	}
	id, err := pathUUID(r, "beneficiaryId")
	if err != nil {
		return "", uuid.Nil, err
	}
	return kind, id, nil
}

// EarningsSummary returns the beneficiary's balance split.
func EarningsSummary(svc earningsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}
		kind, id, err := beneficiaryFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Summarize(r.Context(), kind, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// EarningsLineItems lists the beneficiary's ledger rows, newest first.
func EarningsLineItems(svc earningsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}
		kind, id, err := beneficiaryFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListLineItems(r.Context(), earnings.ListLineItemsParams{
			BeneficiaryType: kind,
			BeneficiaryID:   id,
			Limit:           limit,
			Cursor:          r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

type withdrawalRequestBody struct {
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	PixKey      string `json:"pix_key" validate:"required,max=140"`
}

// RequestWithdrawal reserves part of the available balance for payout.
func RequestWithdrawal(svc earningsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}
		kind, id, err := beneficiaryFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload withdrawalRequestBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		withdrawal, err := svc.RequestWithdrawal(r.Context(), earnings.WithdrawalParams{
			BeneficiaryType: kind,
			BeneficiaryID:   id,
			AmountCents:     payload.AmountCents,
			PixKey:          validators.SanitizeString(payload.PixKey, 140),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, withdrawal)
	}
}

// ListWithdrawals lists the beneficiary's withdrawal requests.
func ListWithdrawals(svc earningsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}
		kind, id, err := beneficiaryFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListWithdrawals(r.Context(), kind, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type withdrawalAdvanceBody struct {
	Status string `json:"status" validate:"required,oneof=processing paid canceled"`
}

// AdvanceWithdrawal moves a withdrawal along its lifecycle.
func AdvanceWithdrawal(svc earningsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}
		id, err := pathUUID(r, "withdrawalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload withdrawalAdvanceBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		withdrawal, err := svc.AdvanceWithdrawal(r.Context(), id, enums.WithdrawalStatus(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, withdrawal)
	}
}

type markPaidBody struct {
	PaymentReference string `json:"payment_reference" validate:"required,max=140"`
}

// MarkLineItemPaid records an external payout against one ledger row.
func MarkLineItemPaid(svc earningsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}
		id, err := pathUUID(r, "lineItemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload markPaidBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.MarkPaid(r.Context(), id, validators.SanitizeString(payload.PaymentReference, 140))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
