package rates

import (
	"fmt"
	"investbot/internal/models"

	"github.com/shopspring/decimal"
)

// Supported plan durations in months.
var Durations = []int{3, 6, 12}

var (
	bonusThresholdSmall = decimal.NewFromInt(500)
	bonusThresholdLarge = decimal.NewFromInt(1000)
	bonusSmall          = decimal.NewFromInt(200)
	bonusLarge          = decimal.NewFromInt(500)

	level2Rate = decimal.NewFromInt(3)
)

func IsValidDuration(months int) bool {
	for _, d := range Durations {
		if d == months {
			return true
		}
	}
	return false
}

// DurationBonus is the extra monthly percent granted for longer holds.
func DurationBonus(months int) (decimal.Decimal, error) {
	switch months {
	case 3:
		return decimal.Zero, nil
	case 6:
		return decimal.NewFromFloat(1.5), nil
	case 12:
		return decimal.NewFromInt(3), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: duration %d months is not offered", models.ErrValidation, months)
	}
}

func EffectiveRate(baseRate decimal.Decimal, months int) (decimal.Decimal, error) {
	bonus, err := DurationBonus(months)
	if err != nil {
		return decimal.Zero, err
	}
	return baseRate.Add(bonus), nil
}

// CashBonus returns the flat signup bonus for a deposit. Thresholds are
// inclusive lower bounds; 3-month plans never carry a bonus.
func CashBonus(months int, amount decimal.Decimal) decimal.Decimal {
	if months != 6 && months != 12 {
		return decimal.Zero
	}
	if amount.GreaterThanOrEqual(bonusThresholdLarge) {
		return bonusLarge
	}
	if amount.GreaterThanOrEqual(bonusThresholdSmall) {
		return bonusSmall
	}
	return decimal.Zero
}

// CommissionPercent maps the 1-indexed join rank of a direct invitee to
// the commission percent applied to that invitee's deposits.
func CommissionPercent(rank int) decimal.Decimal {
	switch {
	case rank <= 1:
		return decimal.NewFromInt(3)
	case rank <= 3:
		return decimal.NewFromInt(4)
	case rank <= 5:
		return decimal.NewFromInt(5)
	case rank <= 9:
		return decimal.NewFromInt(6)
	default:
		return decimal.NewFromInt(7)
	}
}

// Level2CommissionPercent is flat regardless of rank.
func Level2CommissionPercent() decimal.Decimal {
	return level2Rate
}
