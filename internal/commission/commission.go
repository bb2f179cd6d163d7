// Package commission resolves partner commission percentages and amounts
// for settled sales. Resolution is pure: callers load the plan and partner
// rows and pass them in.
package commission

import (
	"github.com/shopspring/decimal"

	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
)

// Result is the resolved commission for a single sale.
type Result struct {
	Percent     int
	AmountCents int64
}

// Resolve computes the partner commission for a sale.
//
// The plan's configured percent wins when it is positive; otherwise the
// partner's profile default for the sale type applies. Percentages are
// clamped to [0, 100]. A missing or unapproved partner always resolves
// to zero.
func Resolve(plan *models.Plan, partner *models.Partner, saleType enums.SaleType, grossCents int64) Result {
	if partner == nil || partner.Status != enums.PartnerStatusApproved {
		return Result{}
	}

	percent := 0
	if plan != nil && plan.PartnerCommissionPercent > 0 {
		percent = plan.PartnerCommissionPercent
	} else {
		percent = partner.DefaultPercentFor(saleType)
	}
	percent = clampPercent(percent)
	if percent == 0 || grossCents <= 0 {
		return Result{Percent: percent}
	}

	return Result{
		Percent:     percent,
		AmountCents: Share(grossCents, percent),
	}
}

// Share computes percent of grossCents in integer cents, rounding half
// away from zero.
func Share(grossCents int64, percent int) int64 {
	p := clampPercent(percent)
	if grossCents <= 0 || p == 0 {
		return 0
	}
	return decimal.NewFromInt(grossCents).
		Mul(decimal.NewFromInt(int64(p))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

func clampPercent(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
