package services

import (
	"testing"
	"time"

	"investbot/internal/models"
	"investbot/internal/rates"

	"github.com/shopspring/decimal"
)

func level1Edges(inviterId uint64, invitees ...uint64) []models.ReferralEdge {
	edges := make([]models.ReferralEdge, 0, len(invitees))
	for i, id := range invitees {
		edges = append(edges, models.ReferralEdge{
			InviterId: inviterId,
			InviteeId: id,
			Level:     1,
			CreatedAt: testStart.Add(time.Duration(i) * time.Hour),
		})
	}
	return edges
}

func TestRankOf(t *testing.T) {
	edges := level1Edges(1, 10, 11, 12)

	for i, inviteeId := range []uint64{10, 11, 12} {
		if got := RankOf(edges, inviteeId); got != i+1 {
			t.Errorf("RankOf(%d) = %d, want %d", inviteeId, got, i+1)
		}
	}
	if got := RankOf(edges, 99); got != 0 {
		t.Errorf("RankOf(unknown) = %d, want 0", got)
	}
}

func TestRankStableUnderLaterJoins(t *testing.T) {
	edges := level1Edges(1, 10, 11)
	before := RankOf(edges, 10)

	edges = append(edges, models.ReferralEdge{InviterId: 1, InviteeId: 12, Level: 1, CreatedAt: testStart.Add(48 * time.Hour)})
	if got := RankOf(edges, 10); got != before {
		t.Errorf("rank of first invitee changed from %d to %d after a later join", before, got)
	}
}

// Six invitees each depositing $1000 earn the inviter 30/40/40/50/50/60.
func TestBuildSummaryRankScenario(t *testing.T) {
	invitees := []uint64{10, 11, 12, 13, 14, 15}
	edges := level1Edges(1, invitees...)

	deposit := decimal.NewFromInt(1000)
	earnings := make([]models.ReferralEarning, 0, len(invitees))
	for rank, inviteeId := range invitees {
		rate := rates.CommissionPercent(rank + 1)
		earnings = append(earnings, models.ReferralEarning{
			InviterId:     1,
			InviteeId:     inviteeId,
			DepositAmount: deposit,
			Level:         1,
			Rate:          rate,
			Amount:        deposit.Mul(rate).Div(decimal.NewFromInt(100)),
			DepositAt:     testStart,
		})
	}

	summary := BuildSummary(1, edges, nil, earnings)

	want := []int64{30, 40, 40, 50, 50, 60}
	if len(summary.Level1) != len(want) {
		t.Fatalf("level1 entries = %d, want %d", len(summary.Level1), len(want))
	}
	for i, entry := range summary.Level1 {
		if !entry.Earned.Equal(decimal.NewFromInt(want[i])) {
			t.Errorf("rank %d earned %s, want %d", i+1, entry.Earned, want[i])
		}
		if entry.Rank != i+1 {
			t.Errorf("entry %d has rank %d, want %d", i, entry.Rank, i+1)
		}
	}
	if !summary.TotalEarnings.Equal(decimal.NewFromInt(270)) {
		t.Errorf("total = %s, want 270", summary.TotalEarnings)
	}
}

func TestBuildSummaryLevel2(t *testing.T) {
	level2 := []models.ReferralEdge{
		{InviterId: 1, InviteeId: 20, Level: 2, CreatedAt: testStart},
	}
	earnings := []models.ReferralEarning{
		{
			InviterId:     1,
			InviteeId:     20,
			DepositAmount: decimal.NewFromInt(1000),
			Level:         2,
			Rate:          rates.Level2CommissionPercent(),
			Amount:        decimal.NewFromInt(30),
			DepositAt:     testStart,
		},
	}

	summary := BuildSummary(1, nil, level2, earnings)

	if len(summary.Level2) != 1 {
		t.Fatalf("level2 entries = %d, want 1", len(summary.Level2))
	}
	if !summary.Level2[0].Rate.Equal(decimal.NewFromInt(3)) {
		t.Errorf("level2 rate = %s, want 3", summary.Level2[0].Rate)
	}
	if !summary.TotalEarnings.Equal(decimal.NewFromInt(30)) {
		t.Errorf("total = %s, want 30", summary.TotalEarnings)
	}
}
