package services

import (
	"errors"
	"testing"

	"investbot/internal/models"

	"github.com/shopspring/decimal"
)

func TestApplyAmountUpgrade(t *testing.T) {
	p := testPosition()
	plan := &models.Plan{Tier: "Premium", BaseRate: decimal.NewFromInt(19)}

	// Day 90, half the term left. Snapshot accrued so far is 555.
	now := testStart.AddDate(0, 0, 90)
	snapshot := decimal.NewFromInt(555)
	if err := applyAmountUpgrade(p, plan, decimal.NewFromInt(1000), snapshot, now); err != nil {
		t.Fatal(err)
	}

	if p.Tier != "Premium" || !p.Principal.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("got tier=%s principal=%s, want Premium 2000", p.Tier, p.Principal)
	}
	if !p.EffectiveRate.Equal(decimal.RequireFromString("20.5")) {
		t.Errorf("effective rate = %s, want 20.5", p.EffectiveRate)
	}
	// 555 + 2000 * 20.5% * 3 remaining months.
	if !p.AccumulatedInterest.Equal(decimal.NewFromInt(1785)) {
		t.Errorf("accumulated interest = %s, want 1785", p.AccumulatedInterest)
	}
	if !p.LastUpgradeAt.Valid {
		t.Error("last upgrade timestamp not set")
	}

	// The cash bonus and the term stay exactly as granted at activation.
	ref := testPosition()
	if !p.CashBonus.Equal(ref.CashBonus) || p.BonusWithdrawn != ref.BonusWithdrawn {
		t.Error("amount upgrade must not touch the cash bonus")
	}
	if !p.BonusUnlockAt.Time.Equal(ref.BonusUnlockAt.Time) {
		t.Error("amount upgrade must not move the bonus unlock")
	}
	if !p.StartDate.Time.Equal(ref.StartDate.Time) || !p.EndDate.Time.Equal(ref.EndDate.Time) {
		t.Error("amount upgrade must not move the term dates")
	}
}

func TestApplyDurationUpgrade(t *testing.T) {
	p := testPosition()

	now := testStart.AddDate(0, 0, 90)
	snapshot := decimal.NewFromInt(555)
	if err := applyDurationUpgrade(p, 12, snapshot, now); err != nil {
		t.Fatal(err)
	}

	if p.DurationMonths != 12 {
		t.Errorf("duration = %d, want 12", p.DurationMonths)
	}
	// 17 base + 3 bonus for the 12-month term.
	if !p.EffectiveRate.Equal(decimal.NewFromInt(20)) {
		t.Errorf("effective rate = %s, want 20", p.EffectiveRate)
	}
	wantEnd := testStart.AddDate(0, 0, 360)
	if !p.EndDate.Time.Equal(wantEnd) {
		t.Errorf("end date = %s, want %s", p.EndDate.Time, wantEnd)
	}
	// 555 + 1000 * 20% * 9 remaining months.
	if !p.AccumulatedInterest.Equal(decimal.NewFromInt(2355)) {
		t.Errorf("accumulated interest = %s, want 2355", p.AccumulatedInterest)
	}

	ref := testPosition()
	if !p.CashBonus.Equal(ref.CashBonus) || !p.BonusUnlockAt.Time.Equal(ref.BonusUnlockAt.Time) {
		t.Error("duration upgrade must not touch the cash bonus")
	}
}

func TestApplyDurationUpgradeRejectsShorterTerm(t *testing.T) {
	p := testPosition()

	err := applyDurationUpgrade(p, 3, decimal.Zero, testStart.AddDate(0, 0, 10))
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	err = applyDurationUpgrade(p, 6, decimal.Zero, testStart.AddDate(0, 0, 10))
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("err for equal term = %v, want ErrValidation", err)
	}
}

func TestRemainingWholeDaysFloorsAtZero(t *testing.T) {
	p := testPosition()

	got, err := remainingWholeDays(p, testStart.AddDate(0, 0, 400))
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("remaining days past the end = %d, want 0", got)
	}
}
