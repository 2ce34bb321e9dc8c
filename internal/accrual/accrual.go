package accrual

import (
	"fmt"
	"time"

	"investbot/internal/models"

	"github.com/shopspring/decimal"
)

// DaysPerMonth is the accrual convention: a month is always 30 days,
// whatever the calendar says. Kept for compatibility with the historical
// ledger even though it drifts slightly against true calendar months.
const DaysPerMonth = 30

var hundred = decimal.NewFromInt(100)

// ExpectedReturn is principal * effectiveRate * months / 100 with the
// monthly-rate convention.
func ExpectedReturn(principal, effectiveRate decimal.Decimal, months int) decimal.Decimal {
	return principal.Mul(effectiveRate).Mul(decimal.NewFromInt(int64(months))).Div(hundred)
}

// TotalExpected is the full-term profit basis for a position. After an
// upgrade the carried accumulated_interest replaces the plain formula,
// which is what lets upgrades compose without double-counting.
func TotalExpected(p *models.Position) decimal.Decimal {
	if p.LastUpgradeAt.Valid {
		return p.AccumulatedInterest
	}
	return ExpectedReturn(p.Principal, p.EffectiveRate, p.DurationMonths)
}

func DaysElapsed(p *models.Position, now time.Time) (int, error) {
	if !p.StartDate.Valid {
		return 0, fmt.Errorf("%w: position %d has no start date", models.ErrValidation, p.Id.Int64)
	}
	d := int(now.Sub(p.StartDate.Time).Hours() / 24)
	if d < 0 {
		d = 0
	}
	return d, nil
}

// CurrentReturn linearly interpolates the expected return by elapsed
// whole days over duration*30, capped at the expected return.
func CurrentReturn(p *models.Position, now time.Time) (decimal.Decimal, error) {
	days, err := DaysElapsed(p, now)
	if err != nil {
		return decimal.Zero, err
	}
	total := p.DurationMonths * DaysPerMonth
	if total <= 0 {
		return decimal.Zero, fmt.Errorf("%w: position %d has no duration", models.ErrValidation, p.Id.Int64)
	}
	expected := TotalExpected(p)
	if days >= total {
		return expected, nil
	}
	return expected.Mul(decimal.NewFromInt(int64(days))).Div(decimal.NewFromInt(int64(total))), nil
}

// AvailableProfit is the part of the current return not yet withdrawn,
// floored at zero.
func AvailableProfit(p *models.Position, now time.Time) (decimal.Decimal, error) {
	current, err := CurrentReturn(p, now)
	if err != nil {
		return decimal.Zero, err
	}
	available := current.Sub(p.WithdrawnProfit)
	if available.IsNegative() {
		return decimal.Zero, nil
	}
	return available, nil
}

// FullWithdrawalAmount is principal + available profit + the cash bonus
// if it was never paid out.
func FullWithdrawalAmount(p *models.Position, now time.Time) (decimal.Decimal, error) {
	available, err := AvailableProfit(p, now)
	if err != nil {
		return decimal.Zero, err
	}
	amount := p.Principal.Add(available)
	if !p.BonusWithdrawn {
		amount = amount.Add(p.CashBonus)
	}
	return amount, nil
}

// EarlyWithdrawalAmount is principal plus interest accrued to date.
func EarlyWithdrawalAmount(p *models.Position, now time.Time) (decimal.Decimal, error) {
	current, err := CurrentReturn(p, now)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Principal.Add(current), nil
}

// Round2 rounds for output boundaries only. Chained computations must
// stay in full precision.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
