package services

import (
	"fmt"
	"time"

	"investbot/internal/models"
	"investbot/internal/rates"
	"investbot/internal/repositories"

	"github.com/shopspring/decimal"
)

type ReferralService struct {
	referralRepo     *repositories.ReferralRepository
	operationService *OperationService
	notifier         Notifier
}

func NewReferralService(
	referralRepo *repositories.ReferralRepository,
	operationService *OperationService,
	notifier Notifier) *ReferralService {
	return &ReferralService{
		referralRepo:     referralRepo,
		operationService: operationService,
		notifier:         notifier,
	}
}

// RankOf returns the 1-based rank of an invitee within the inviter's
// level-1 list. The list must already be ordered by join time; the rank
// of an existing invitee never changes when later ones join.
func RankOf(edges []models.ReferralEdge, inviteeId uint64) int {
	for i, e := range edges {
		if e.InviteeId == inviteeId {
			return i + 1
		}
	}
	return 0
}

// BuildSummary folds the inviter's edges and earnings into the per-level
// breakdown. Level-1 rates come from the invitee's rank; level-2 is flat.
func BuildSummary(inviterId uint64, level1, level2 []models.ReferralEdge, earnings []models.ReferralEarning) *models.ReferralSummary {
	earnedBy := make(map[uint64]decimal.Decimal)
	total := decimal.Zero
	for _, e := range earnings {
		earnedBy[e.InviteeId] = earnedBy[e.InviteeId].Add(e.Amount)
		total = total.Add(e.Amount)
	}

	summary := &models.ReferralSummary{
		InviterId:     inviterId,
		Level1:        make([]models.ReferralEntry, 0, len(level1)),
		Level2:        make([]models.ReferralEntry, 0, len(level2)),
		TotalEarnings: total,
	}

	for i, edge := range level1 {
		summary.Level1 = append(summary.Level1, models.ReferralEntry{
			InviteeId: edge.InviteeId,
			Rank:      i + 1,
			Rate:      rates.CommissionPercent(i + 1),
			Earned:    earnedBy[edge.InviteeId],
			JoinedAt:  edge.CreatedAt,
		})
	}

	for _, edge := range level2 {
		summary.Level2 = append(summary.Level2, models.ReferralEntry{
			InviteeId: edge.InviteeId,
			Rate:      rates.Level2CommissionPercent(),
			Earned:    earnedBy[edge.InviteeId],
			JoinedAt:  edge.CreatedAt,
		})
	}

	return summary
}

// RecordDeposit credits commission to every inviter linked to the
// depositing user. Called once per confirmed deposit; the rate is fixed
// at that moment and stored on the earning row.
func (s *ReferralService) RecordDeposit(inviteeId uint64, amount decimal.Decimal, at time.Time) error {
	edges := s.referralRepo.FindEdgesToInvitee(inviteeId)
	if edges == nil || len(*edges) == 0 {
		return nil
	}

	for _, edge := range *edges {
		var rate decimal.Decimal
		switch edge.Level {
		case 1:
			level1 := s.referralRepo.FindLevel1Edges(edge.InviterId)
			if level1 == nil {
				continue
			}
			rank := RankOf(*level1, inviteeId)
			if rank == 0 {
				log.Errorf("Invitee %d not found in level-1 list of inviter %d", inviteeId, edge.InviterId)
				continue
			}
			rate = rates.CommissionPercent(rank)
		case 2:
			rate = rates.Level2CommissionPercent()
		default:
			log.Errorf("Referral edge %d has unsupported level %d", edge.Id.Int64, edge.Level)
			continue
		}

		earning := &models.ReferralEarning{
			InviterId:     edge.InviterId,
			InviteeId:     inviteeId,
			DepositAmount: amount,
			Level:         edge.Level,
			Rate:          rate,
			Amount:        amount.Mul(rate).Div(decimal.NewFromInt(100)),
			DepositAt:     at,
		}
		if err := s.referralRepo.SaveEarning(earning); err != nil {
			return err
		}

		if _, err := s.operationService.Create(
			edge.InviterId,
			models.OP_REFERRAL_EARNING,
			fmt.Sprintf("Commission %s (%s%% of %s, level %d)",
				earning.Amount.Round(2), rate, amount.Round(2), edge.Level),
		); err != nil {
			log.Error("Failed to record operation: ", err)
		}
	}

	return nil
}

// GetSummary recomputes ranks from the current edge list on every call.
func (s *ReferralService) GetSummary(inviterId uint64) *models.ReferralSummary {
	var level1, level2 []models.ReferralEdge
	if edges := s.referralRepo.FindLevel1Edges(inviterId); edges != nil {
		level1 = *edges
	}
	if edges := s.referralRepo.FindLevel2Edges(inviterId); edges != nil {
		level2 = *edges
	}

	var earnings []models.ReferralEarning
	if list := s.referralRepo.FindEarningsByInviter(inviterId); list != nil {
		earnings = *list
	}

	return BuildSummary(inviterId, level1, level2, earnings)
}
