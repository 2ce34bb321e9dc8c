package services

import (
	"database/sql"
	"fmt"
	"time"

	"investbot/internal/accrual"
	"investbot/internal/models"
	"investbot/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BonusUnlockDays is how long a commission earning stays locked after
// the deposit that produced it.
const BonusUnlockDays = 31

type BonusService struct {
	referralRepo     *repositories.ReferralRepository
	positionService  *PositionService
	operationService *OperationService
	notifier         Notifier
}

func NewBonusService(
	referralRepo *repositories.ReferralRepository,
	positionService *PositionService,
	operationService *OperationService,
	notifier Notifier) *BonusService {
	return &BonusService{
		referralRepo:     referralRepo,
		positionService:  positionService,
		operationService: operationService,
		notifier:         notifier,
	}
}

// EarningUnlocked reports whether one earning can be paid out.
func EarningUnlocked(e *models.ReferralEarning, now time.Time) bool {
	if e.Withdrawn {
		return false
	}
	return !now.Before(e.DepositAt.AddDate(0, 0, BonusUnlockDays))
}

func sumEarnings(earnings []models.ReferralEarning) (decimal.Decimal, []int64) {
	total := decimal.Zero
	ids := make([]int64, 0, len(earnings))
	for _, e := range earnings {
		total = total.Add(e.Amount)
		ids = append(ids, e.Id.Int64)
	}
	return total, ids
}

// WithdrawBulk pays out every unlocked earning of the inviter in a
// single payout. All included earnings flip to withdrawn atomically.
func (s *BonusService) WithdrawBulk(inviterId uint64, destination string) (*models.ReferralPayout, error) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -BonusUnlockDays)

	list := s.referralRepo.FindUnlockedEarnings(inviterId, cutoff)
	if list == nil || len(*list) == 0 {
		return nil, fmt.Errorf("%w: user %d has no unlocked commission earnings",
			models.ErrBonusNotEligible, inviterId)
	}

	total, ids := sumEarnings(*list)

	payout := &models.ReferralPayout{
		Reference:   uuid.NewString(),
		InviterId:   inviterId,
		Mode:        models.PayoutWithdraw,
		Amount:      total,
		Destination: sql.NullString{String: destination, Valid: destination != ""},
		CreatedAt:   now,
	}

	ok, err := s.referralRepo.MarkWithdrawnWithPayout(payout, ids)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: an earning in the batch was already withdrawn",
			models.ErrConflictingRequest)
	}

	s.recordPayout(payout, len(ids))

	return payout, nil
}

// WithdrawSingle pays out one earning.
func (s *BonusService) WithdrawSingle(inviterId uint64, earningId int64, destination string) (*models.ReferralPayout, error) {
	earning := s.referralRepo.FindEarningById(earningId)
	if earning == nil {
		return nil, fmt.Errorf("%w: referral earning %d", models.ErrNotFound, earningId)
	}
	if earning.InviterId != inviterId {
		return nil, fmt.Errorf("%w: earning %d does not belong to user %d",
			models.ErrValidation, earningId, inviterId)
	}

	now := time.Now()
	if !EarningUnlocked(earning, now) {
		return nil, fmt.Errorf("%w: earning %d is locked until %s or already withdrawn",
			models.ErrBonusNotEligible, earningId,
			earning.DepositAt.AddDate(0, 0, BonusUnlockDays).Format(time.DateOnly))
	}

	payout := &models.ReferralPayout{
		Reference:   uuid.NewString(),
		InviterId:   inviterId,
		Mode:        models.PayoutWithdraw,
		Amount:      earning.Amount,
		Destination: sql.NullString{String: destination, Valid: destination != ""},
		CreatedAt:   now,
	}

	ok, err := s.referralRepo.MarkWithdrawnWithPayout(payout, []int64{earningId})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: earning %d was already withdrawn",
			models.ErrConflictingRequest, earningId)
	}

	s.recordPayout(payout, 1)

	return payout, nil
}

// Reinvest routes the unlocked sum into one of the inviter's ACTIVE
// positions as additional principal. The position keeps its tier and
// rates; only the principal and the carried interest change.
func (s *BonusService) Reinvest(inviterId uint64, positionId int64) (*models.ReferralPayout, error) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -BonusUnlockDays)

	list := s.referralRepo.FindUnlockedEarnings(inviterId, cutoff)
	if list == nil || len(*list) == 0 {
		return nil, fmt.Errorf("%w: user %d has no unlocked commission earnings",
			models.ErrBonusNotEligible, inviterId)
	}

	position, err := s.positionService.GetById(positionId)
	if err != nil {
		return nil, err
	}
	if position.UserId != inviterId {
		return nil, fmt.Errorf("%w: position %d does not belong to user %d",
			models.ErrValidation, positionId, inviterId)
	}
	if position.State != models.PositionActive {
		return nil, fmt.Errorf("%w: position %d is %s, expected %s",
			models.ErrInvalidState, positionId, position.State, models.PositionActive)
	}

	total, ids := sumEarnings(*list)

	snapshot, err := accrual.CurrentReturn(position, now)
	if err != nil {
		return nil, err
	}
	remaining, err := remainingWholeDays(position, now)
	if err != nil {
		return nil, err
	}

	position.Principal = position.Principal.Add(total)
	position.AccumulatedInterest = snapshot.Add(forwardReturn(position.Principal, position.EffectiveRate, remaining))
	position.LastUpgradeAt = sql.NullTime{Time: now, Valid: true}

	payout := &models.ReferralPayout{
		Reference:  uuid.NewString(),
		InviterId:  inviterId,
		Mode:       models.PayoutReinvest,
		Amount:     total,
		PositionId: sql.NullInt64{Int64: positionId, Valid: true},
		CreatedAt:  now,
	}

	ok, err := s.referralRepo.ReinvestIntoPosition(payout, ids, position)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: position %d or an earning changed state during reinvest",
			models.ErrConflictingRequest, positionId)
	}

	if _, err := s.operationService.Create(
		inviterId,
		models.OP_REFERRAL_REINVEST,
		fmt.Sprintf("Reinvested %s of commission into position #%d (ref %s)",
			payout.Amount.Round(2), positionId, payout.Reference),
	); err != nil {
		log.Error("Failed to record operation: ", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyUser(inviterId,
			fmt.Sprintf("Commission of %s was reinvested into position #%d.",
				payout.Amount.Round(2), positionId))
	}

	return payout, nil
}

func (s *BonusService) recordPayout(payout *models.ReferralPayout, count int) {
	if _, err := s.operationService.Create(
		payout.InviterId,
		models.OP_REFERRAL_PAYOUT,
		fmt.Sprintf("Commission payout %s from %d earnings (ref %s)",
			payout.Amount.Round(2), count, payout.Reference),
	); err != nil {
		log.Error("Failed to record operation: ", err)
	}

	if s.notifier != nil {
		s.notifier.RequestApproval(payout.Reference,
			fmt.Sprintf("Commission payout %s for user %d", payout.Amount.Round(2), payout.InviterId))
	}
}
