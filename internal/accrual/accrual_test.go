package accrual

import (
	"database/sql"
	"testing"
	"time"

	"investbot/internal/models"

	"github.com/shopspring/decimal"
)

func activePosition(principal string, rate string, months int, start time.Time) *models.Position {
	return &models.Position{
		Id:             sql.NullInt64{Int64: 1, Valid: true},
		Principal:      decimal.RequireFromString(principal),
		EffectiveRate:  decimal.RequireFromString(rate),
		DurationMonths: months,
		StartDate:      sql.NullTime{Time: start, Valid: true},
		EndDate:        sql.NullTime{Time: start.AddDate(0, 0, months*DaysPerMonth), Valid: true},
		State:          models.PositionActive,
	}
}

func TestExpectedReturnScenario(t *testing.T) {
	// $1000 at 17% base + 1.5% duration bonus over 6 months.
	got := ExpectedReturn(decimal.NewFromInt(1000), decimal.RequireFromString("18.5"), 6)
	if !got.Equal(decimal.NewFromInt(1110)) {
		t.Errorf("ExpectedReturn = %s, want 1110", got)
	}
}

func TestCurrentReturnInterpolation(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	p := activePosition("1000", "18.5", 6, start)

	// Half of 180 days elapsed.
	got, err := CurrentReturn(p, start.AddDate(0, 0, 90))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(decimal.NewFromInt(555)) {
		t.Errorf("CurrentReturn at day 90 = %s, want 555", got)
	}

	// Past the end it caps at the expected return.
	got, err = CurrentReturn(p, start.AddDate(0, 0, 400))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(decimal.NewFromInt(1110)) {
		t.Errorf("CurrentReturn past end = %s, want 1110", got)
	}

	// Before the start nothing accrued.
	got, err = CurrentReturn(p, start.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsZero() {
		t.Errorf("CurrentReturn before start = %s, want 0", got)
	}
}

func TestCurrentReturnWholeDays(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	p := activePosition("1000", "18.5", 6, start)

	// 89 days and 23 hours counts as 89 whole days.
	almost := start.AddDate(0, 0, 89).Add(23 * time.Hour)
	got, err := CurrentReturn(p, almost)
	if err != nil {
		t.Fatal(err)
	}
	want := decimal.NewFromInt(1110).Mul(decimal.NewFromInt(89)).Div(decimal.NewFromInt(180))
	if !got.Equal(want) {
		t.Errorf("CurrentReturn at 89d23h = %s, want %s", got, want)
	}
}

func TestAvailableProfitNeverNegative(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := activePosition("1000", "18.5", 6, start)
	p.WithdrawnProfit = decimal.NewFromInt(600)

	got, err := AvailableProfit(p, start.AddDate(0, 0, 90))
	if err != nil {
		t.Fatal(err)
	}
	if got.IsNegative() {
		t.Errorf("AvailableProfit = %s, must not be negative", got)
	}
	if !got.IsZero() {
		t.Errorf("AvailableProfit = %s, want 0 when withdrawn exceeds accrued", got)
	}
}

func TestAvailableProfitAfterPartials(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := activePosition("1000", "18.5", 6, start)
	now := start.AddDate(0, 0, 90)

	// Withdraw in two chunks; remainder must track exactly.
	p.WithdrawnProfit = decimal.RequireFromString("100.50")
	got, err := AvailableProfit(p, now)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(decimal.RequireFromString("454.50")) {
		t.Errorf("AvailableProfit = %s, want 454.50", got)
	}
}

func TestMissingStartDateRejected(t *testing.T) {
	p := &models.Position{
		Principal:      decimal.NewFromInt(1000),
		EffectiveRate:  decimal.RequireFromString("18.5"),
		DurationMonths: 6,
	}
	if _, err := CurrentReturn(p, time.Now()); err == nil {
		t.Fatal("expected error for missing start date")
	}
}

func TestUpgradedPositionUsesCarriedInterest(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := activePosition("2000", "19.5", 6, start)
	p.AccumulatedInterest = decimal.RequireFromString("1140")
	p.LastUpgradeAt = sql.NullTime{Time: start.AddDate(0, 0, 90), Valid: true}

	got, err := CurrentReturn(p, start.AddDate(0, 0, 180))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(decimal.RequireFromString("1140")) {
		t.Errorf("CurrentReturn = %s, want carried 1140", got)
	}
}

func TestFullWithdrawalAmount(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := activePosition("1000", "18.5", 6, start)
	p.CashBonus = decimal.NewFromInt(500)

	got, err := FullWithdrawalAmount(p, start.AddDate(0, 0, 90))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(decimal.NewFromInt(2055)) {
		t.Errorf("FullWithdrawalAmount = %s, want 2055", got)
	}

	p.BonusWithdrawn = true
	got, err = FullWithdrawalAmount(p, start.AddDate(0, 0, 90))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(decimal.NewFromInt(1555)) {
		t.Errorf("FullWithdrawalAmount after bonus paid = %s, want 1555", got)
	}
}
