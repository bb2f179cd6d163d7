// Package earnings keeps the commission ledger and runs the withdrawal
// flow. Balances are always derived from line items and withdrawal rows;
// no running balance column exists to drift.
package earnings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/golacotv/golaco-backend/internal/notifications"
	"github.com/golacotv/golaco-backend/pkg/db"
	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
	"github.com/golacotv/golaco-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the earnings service.
type ServiceParams struct {
	Client   *db.Client
	Repo     Repository
	Logger   *logger.Logger
	Notifier notifications.Notifier
}

// Service owns earning line item payouts and withdrawal requests.
type Service struct {
	client   *db.Client
	repo     Repository
	logger   *logger.Logger
	notifier notifications.Notifier
}

// NewService builds an earnings service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Client == nil {
		return nil, errors.New("db client is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Notifier == nil {
		params.Notifier = notifications.NewLogNotifier(params.Logger)
	}
	return &Service{
		client:   params.Client,
		repo:     params.Repo,
		logger:   params.Logger,
		notifier: params.Notifier,
	}, nil
}

// Summary is a beneficiary's balance breakdown in cents.
type Summary struct {
	AvailableCents  int64 `json:"available_cents"`
	UnreleasedCents int64 `json:"unreleased_cents"`
	ReservedCents   int64 `json:"reserved_cents"`
	PaidCents       int64 `json:"paid_cents"`
}

// Summarize computes the beneficiary's current balances. Available is
// what a withdrawal request may claim right now.
func (s *Service) Summarize(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID) (*Summary, error) {
	if !beneficiaryType.IsValid() || beneficiaryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "beneficiary type and id are required")
	}
	now := time.Now().UTC()

	released, err := s.repo.SumPendingReleased(ctx, beneficiaryType, beneficiaryID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing released earnings")
	}
	unreleased, err := s.repo.SumPendingUnreleased(ctx, beneficiaryType, beneficiaryID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing unreleased earnings")
	}
	paid, err := s.repo.SumPaid(ctx, beneficiaryType, beneficiaryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing paid earnings")
	}
	reserved, err := s.repo.SumActiveWithdrawals(ctx, beneficiaryType, beneficiaryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing withdrawals")
	}

	available := released - reserved
	if available < 0 {
		available = 0
	}
	return &Summary{
		AvailableCents:  available,
		UnreleasedCents: unreleased,
		ReservedCents:   reserved,
		PaidCents:       paid,
	}, nil
}

// ListLineItemsParams configure one page of a beneficiary's ledger.
type ListLineItemsParams struct {
	BeneficiaryType enums.BeneficiaryType
	BeneficiaryID   uuid.UUID
	Limit           int
	Cursor          string
}

// LineItemPage wraps a ledger page plus the cursor for the next one.
type LineItemPage struct {
	Items  []models.EarningLineItem `json:"items"`
	Cursor string                   `json:"cursor"`
}

// ListLineItems returns the beneficiary's ledger, newest first.
func (s *Service) ListLineItems(ctx context.Context, params ListLineItemsParams) (*LineItemPage, error) {
	if !params.BeneficiaryType.IsValid() || params.BeneficiaryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "beneficiary type and id are required")
	}
	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}
	items, next, err := s.repo.ListLineItems(ctx, params.BeneficiaryType, params.BeneficiaryID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing earnings")
	}
	page := &LineItemPage{Items: items}
	if next != nil {
		page.Cursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

// MarkPaid flips one pending line item to paid with an operator payment
// reference. Re-marking an already paid item is a no-op so operator
// retries stay safe.
func (s *Service) MarkPaid(ctx context.Context, lineItemID uuid.UUID, paymentReference string) (*models.EarningLineItem, error) {
	if lineItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id is required")
	}
	if paymentReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	var result *models.EarningLineItem
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindLineItemLocked(ctx, lineItemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading line item")
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "earning line item not found")
		}
		if item.Status == enums.EarningStatusPaid {
			result = item
			return nil
		}

		now := time.Now().UTC()
		item.Status = enums.EarningStatusPaid
		item.PaidAt = &now
		item.PaymentReference = &paymentReference
		if err := repo.UpdateLineItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking line item paid")
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// WithdrawalParams describe one payout claim.
type WithdrawalParams struct {
	BeneficiaryType enums.BeneficiaryType
	BeneficiaryID   uuid.UUID
	AmountCents     int64
	PixKey          string
}

// RequestWithdrawal checks the available balance and reserves the amount
// in one transaction. The beneficiary's ledger rows are locked first so
// two concurrent requests cannot both pass the check.
func (s *Service) RequestWithdrawal(ctx context.Context, params WithdrawalParams) (*models.WithdrawalRequest, error) {
	if !params.BeneficiaryType.IsValid() || params.BeneficiaryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "beneficiary type and id are required")
	}
	if params.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if params.PixKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pix key is required")
	}

	var request *models.WithdrawalRequest
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.LockBeneficiaryLineItems(ctx, params.BeneficiaryType, params.BeneficiaryID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking ledger")
		}

		now := time.Now().UTC()
		released, err := repo.SumPendingReleased(ctx, params.BeneficiaryType, params.BeneficiaryID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing released earnings")
		}
		reserved, err := repo.SumActiveWithdrawals(ctx, params.BeneficiaryType, params.BeneficiaryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing withdrawals")
		}

		available := released - reserved
		if params.AmountCents > available {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "withdrawal exceeds available balance").
				WithDetails(map[string]any{"available_cents": available})
		}

		request = &models.WithdrawalRequest{
			ID:              uuid.New(),
			BeneficiaryType: params.BeneficiaryType,
			BeneficiaryID:   params.BeneficiaryID,
			AmountCents:     params.AmountCents,
			PixKey:          params.PixKey,
			Status:          enums.WithdrawalStatusRequested,
		}
		if err := repo.CreateWithdrawal(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating withdrawal")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.WithdrawalRequested(ctx, request)
	return request, nil
}

// ListWithdrawals returns the beneficiary's withdrawal history.
func (s *Service) ListWithdrawals(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID) ([]models.WithdrawalRequest, error) {
	if !beneficiaryType.IsValid() || beneficiaryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "beneficiary type and id are required")
	}
	requests, err := s.repo.ListWithdrawals(ctx, beneficiaryType, beneficiaryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing withdrawals")
	}
	return requests, nil
}

// AdvanceWithdrawal moves a withdrawal along the operator flow. Canceling
// releases the reserved amount; paying stamps the payout time.
func (s *Service) AdvanceWithdrawal(ctx context.Context, id uuid.UUID, status enums.WithdrawalStatus) (*models.WithdrawalRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id is required")
	}
	if !status.IsValid() || status == enums.WithdrawalStatusRequested {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	var result *models.WithdrawalRequest
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := repo.FindWithdrawalLocked(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading withdrawal")
		}
		if request == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		if request.Status == status {
			result = request
			return nil
		}
		if request.Status == enums.WithdrawalStatusPaid || request.Status == enums.WithdrawalStatusCanceled {
			return pkgerrors.New(pkgerrors.CodeConflict, "withdrawal already finalized")
		}

		request.Status = status
		if status == enums.WithdrawalStatusPaid {
			now := time.Now().UTC()
			request.PaidAt = &now
		}
		if err := repo.UpdateWithdrawal(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating withdrawal")
		}
		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
