package services

import (
	"fmt"
	"time"

	"investbot/internal/accrual"
	"investbot/internal/config"
	"investbot/internal/database"
	"investbot/internal/models"
	"investbot/internal/rates"
	"investbot/internal/repositories"

	"github.com/shopspring/decimal"
)

type PositionService struct {
	positionRepo     *repositories.PositionRepository
	planService      *PlanService
	userService      *UserService
	referralService  *ReferralService
	operationService *OperationService
}

func NewPositionService(
	positionRepo *repositories.PositionRepository,
	planService *PlanService,
	userService *UserService,
	referralService *ReferralService,
	operationService *OperationService) *PositionService {
	return &PositionService{
		positionRepo:     positionRepo,
		planService:      planService,
		userService:      userService,
		referralService:  referralService,
		operationService: operationService,
	}
}

// CreatePosition opens a position in PENDING_PAYMENT. The term does not
// start until the transfer is confirmed, so start/end stay unset here.
func (s *PositionService) CreatePosition(userId uint64, tier string, amount decimal.Decimal, durationMonths int, sourceAddress string) (*models.CreatedPosition, error) {
	if _, err := s.userService.GetById(userId); err != nil {
		return nil, err
	}

	plan, err := s.planService.GetByTier(tier)
	if err != nil {
		return nil, err
	}

	if err := s.planService.ValidateAmount(plan, amount); err != nil {
		return nil, err
	}

	if sourceAddress == "" {
		return nil, fmt.Errorf("%w: source address must be set", models.ErrValidation)
	}

	durationBonus, err := rates.DurationBonus(durationMonths)
	if err != nil {
		return nil, err
	}

	position := &models.Position{
		UserId:            userId,
		Tier:              plan.Tier,
		Principal:         amount,
		DurationMonths:    durationMonths,
		BaseRate:          plan.BaseRate,
		DurationBonusRate: durationBonus,
		EffectiveRate:     plan.BaseRate.Add(durationBonus),
		CashBonus:         rates.CashBonus(durationMonths, amount),
		SourceAddress:     sourceAddress,
		State:             models.PositionPendingPayment,
		CreatedAt:         time.Now(),
	}

	if err := s.positionRepo.Save(position); err != nil {
		return nil, err
	}

	ttl := time.Duration(config.PENDING_PAYMENT_TTL_HOURS) * time.Hour
	if err := database.TrackPendingPayment(position.Id.Int64, ttl); err != nil {
		log.Error("Failed to track pending payment: ", err)
	}

	if _, err := s.operationService.Create(
		userId,
		models.OP_CREATE_POSITION,
		fmt.Sprintf("Position #%d: %s %s for %d months", position.Id.Int64, amount, plan.Tier, durationMonths),
	); err != nil {
		log.Error("Failed to record operation: ", err)
	}

	return &models.CreatedPosition{
		PositionId:     position.Id.Int64,
		PaymentAddress: config.PAYMENT_WALLET_ADDRESS,
	}, nil
}

// ConfirmPayment moves PENDING_PAYMENT to ACTIVE on the external
// confirmed-transfer signal. The clock starts here: start/end and the
// bonus unlock (half the term) are stamped from the confirmation instant.
func (s *PositionService) ConfirmPayment(positionId int64) (*models.Position, error) {
	position := s.positionRepo.FindById(positionId)
	if position == nil {
		return nil, fmt.Errorf("%w: position %d", models.ErrNotFound, positionId)
	}

	now := time.Now()
	totalDays := position.DurationMonths * accrual.DaysPerMonth
	end := now.AddDate(0, 0, totalDays)
	bonusUnlock := now.AddDate(0, 0, totalDays/2)

	ok, err := s.positionRepo.Activate(positionId, now, end, bonusUnlock)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: position %d is %s, expected %s",
			models.ErrInvalidState, positionId, position.State, models.PositionPendingPayment)
	}

	if err := database.ClearPendingPayment(positionId); err != nil {
		log.Error("Failed to clear pending payment key: ", err)
	}

	if err := s.referralService.RecordDeposit(position.UserId, position.Principal, now); err != nil {
		log.Error("Failed to record referral earnings: ", err)
	}

	if _, err := s.operationService.Create(
		position.UserId,
		models.OP_CONFIRM_PAYMENT,
		fmt.Sprintf("Position #%d activated", positionId),
	); err != nil {
		log.Error("Failed to record operation: ", err)
	}

	return s.positionRepo.FindById(positionId), nil
}

// GetPositionView recomputes the money figures on demand; nothing here
// is cached or persisted.
func (s *PositionService) GetPositionView(positionId int64, now time.Time) (*models.PositionView, error) {
	position := s.positionRepo.FindById(positionId)
	if position == nil {
		return nil, fmt.Errorf("%w: position %d", models.ErrNotFound, positionId)
	}

	view := &models.PositionView{
		PositionId:     position.Id.Int64,
		Tier:           position.Tier,
		Principal:      position.Principal,
		DurationMonths: position.DurationMonths,
		EffectiveRate:  position.EffectiveRate,
		CashBonus:      position.CashBonus,
		BonusWithdrawn: position.BonusWithdrawn,
		State:          position.State,
	}

	if position.StartDate.Valid {
		start := position.StartDate.Time
		view.StartDate = &start
	}
	if position.EndDate.Valid {
		end := position.EndDate.Time
		view.EndDate = &end
	}
	view.BonusUnlocked = position.BonusUnlockAt.Valid && !now.Before(position.BonusUnlockAt.Time)

	view.ExpectedReturn = accrual.Round2(accrual.TotalExpected(position))
	if position.State == models.PositionActive {
		current, err := accrual.CurrentReturn(position, now)
		if err != nil {
			return nil, err
		}
		available, err := accrual.AvailableProfit(position, now)
		if err != nil {
			return nil, err
		}
		view.CurrentReturn = accrual.Round2(current)
		view.AvailableProfit = accrual.Round2(available)
	}

	return view, nil
}

func (s *PositionService) GetById(positionId int64) (*models.Position, error) {
	position := s.positionRepo.FindById(positionId)
	if position == nil {
		return nil, fmt.Errorf("%w: position %d", models.ErrNotFound, positionId)
	}
	return position, nil
}

func (s *PositionService) GetUserPositions(userId uint64) *[]models.Position {
	return s.positionRepo.FindByUserId(userId)
}

func (s *PositionService) GetUserPositionsLimit(userId uint64, offset, limit int) *[]models.Position {
	return s.positionRepo.FindByUserIdLimit(userId, offset, limit)
}

// ExpireUnpaid marks a stale PENDING_PAYMENT position EXPIRED. Used by
// the sweep scheduler once the redis tracking key is gone.
func (s *PositionService) ExpireUnpaid(positionId int64) (bool, error) {
	position := s.positionRepo.FindById(positionId)
	if position == nil {
		return false, fmt.Errorf("%w: position %d", models.ErrNotFound, positionId)
	}

	ok, err := s.positionRepo.MarkExpired(positionId)
	if err != nil || !ok {
		return false, err
	}

	if _, err := s.operationService.Create(
		position.UserId,
		models.OP_POSITION_EXPIRED,
		fmt.Sprintf("Position #%d expired without payment", positionId),
	); err != nil {
		log.Error("Failed to record operation: ", err)
	}

	return true, nil
}

func (s *PositionService) FindPendingPayment() *[]models.Position {
	return s.positionRepo.FindAllByState(models.PositionPendingPayment)
}

func (s *PositionService) FindActivePastEnd(now time.Time) *[]models.Position {
	return s.positionRepo.FindActivePastEnd(now)
}

func (s *PositionService) Update(position *models.Position) error {
	return s.positionRepo.Update(position)
}
