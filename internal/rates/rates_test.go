package rates

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDurationBonus(t *testing.T) {
	cases := []struct {
		months int
		want   string
	}{
		{3, "0"},
		{6, "1.5"},
		{12, "3"},
	}
	for _, c := range cases {
		got, err := DurationBonus(c.months)
		if err != nil {
			t.Fatalf("DurationBonus(%d): %v", c.months, err)
		}
		if !got.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("DurationBonus(%d) = %s, want %s", c.months, got, c.want)
		}
	}

	if _, err := DurationBonus(9); err == nil {
		t.Error("expected error for 9 months")
	}
}

func TestCashBonusThresholds(t *testing.T) {
	cases := []struct {
		months int
		amount string
		want   string
	}{
		{3, "5000", "0"},
		{6, "499.99", "0"},
		{6, "500", "200"},
		{6, "999.99", "200"},
		{6, "1000", "500"},
		{12, "500", "200"},
		{12, "1000", "500"},
		{12, "250000", "500"},
	}
	for _, c := range cases {
		got := CashBonus(c.months, decimal.RequireFromString(c.amount))
		if !got.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("CashBonus(%d, %s) = %s, want %s", c.months, c.amount, got, c.want)
		}
	}
}

func TestCashBonusMonotonic(t *testing.T) {
	amounts := []string{"0", "100", "499.99", "500", "750", "999.99", "1000", "2000", "100000"}
	for _, months := range Durations {
		prev := decimal.Zero
		for _, a := range amounts {
			got := CashBonus(months, decimal.RequireFromString(a))
			if got.LessThan(prev) {
				t.Errorf("CashBonus(%d, %s) = %s decreased from %s", months, a, got, prev)
			}
			prev = got
		}
		if months == 3 && !CashBonus(3, decimal.NewFromInt(100000)).IsZero() {
			t.Error("3-month plan must never carry a cash bonus")
		}
	}
}

func TestCommissionPercent(t *testing.T) {
	cases := []struct {
		rank int
		want int64
	}{
		{1, 3},
		{2, 4}, {3, 4},
		{4, 5}, {5, 5},
		{6, 6}, {7, 6}, {8, 6}, {9, 6},
		{10, 7}, {25, 7},
	}
	for _, c := range cases {
		if got := CommissionPercent(c.rank); !got.Equal(decimal.NewFromInt(c.want)) {
			t.Errorf("CommissionPercent(%d) = %s, want %d", c.rank, got, c.want)
		}
	}
}

func TestEffectiveRate(t *testing.T) {
	got, err := EffectiveRate(decimal.NewFromInt(17), 6)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(decimal.RequireFromString("18.5")) {
		t.Errorf("EffectiveRate(17, 6) = %s, want 18.5", got)
	}
}
