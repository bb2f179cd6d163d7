package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/golacotv/golaco-backend/api/responses"
	"github.com/golacotv/golaco-backend/api/validators"
	"github.com/golacotv/golaco-backend/internal/purchases"
	"github.com/golacotv/golaco-backend/pkg/db/models"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
	"github.com/golacotv/golaco-backend/pkg/pagination"
)

type purchaseReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	ListByBuyer(ctx context.Context, params purchases.ListPurchasesParams) (*purchases.PurchasePage, error)
}

// PurchaseDetail returns one purchase by id.
func PurchaseDetail(svc purchaseReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}
		id, err := pathUUID(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		purchase, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, purchase)
	}
}

// BuyerPurchases returns a buyer's purchase history, newest first.
func BuyerPurchases(svc purchaseReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}
		buyerID, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListByBuyer(r.Context(), purchases.ListPurchasesParams{
			BuyerID: buyerID,
			Limit:   limit,
			Cursor:  r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a uuid").
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}
