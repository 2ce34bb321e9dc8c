package services

import (
	"database/sql"
	"testing"

	"investbot/internal/models"

	"github.com/shopspring/decimal"
)

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

func TestEarningUnlocked(t *testing.T) {
	earning := &models.ReferralEarning{
		InviterId: 1,
		InviteeId: 10,
		Amount:    decimal.NewFromInt(30),
		DepositAt: testStart,
	}

	if EarningUnlocked(earning, testStart.AddDate(0, 0, 30)) {
		t.Error("earning unlocked at day 30, want locked")
	}
	if !EarningUnlocked(earning, testStart.AddDate(0, 0, 31)) {
		t.Error("earning locked at day 31, want unlocked")
	}

	earning.Withdrawn = true
	if EarningUnlocked(earning, testStart.AddDate(0, 0, 60)) {
		t.Error("withdrawn earning reported unlocked")
	}
}

func TestSumEarnings(t *testing.T) {
	earnings := []models.ReferralEarning{
		{Id: nullInt64(1), Amount: decimal.NewFromInt(30)},
		{Id: nullInt64(2), Amount: decimal.NewFromInt(40)},
		{Id: nullInt64(3), Amount: decimal.RequireFromString("12.5")},
	}

	total, ids := sumEarnings(earnings)
	if !total.Equal(decimal.RequireFromString("82.5")) {
		t.Errorf("total = %s, want 82.5", total)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Errorf("ids = %v, want [1 2 3]", ids)
	}
}
