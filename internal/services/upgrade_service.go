package services

import (
	"database/sql"
	"fmt"
	"time"

	"investbot/internal/accrual"
	"investbot/internal/models"
	"investbot/internal/rates"
	"investbot/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UpgradeService struct {
	upgradeRepo      *repositories.UpgradeRepository
	positionService  *PositionService
	planService      *PlanService
	operationService *OperationService
	referralService  *ReferralService
	notifier         Notifier
}

func NewUpgradeService(
	upgradeRepo *repositories.UpgradeRepository,
	positionService *PositionService,
	planService *PlanService,
	operationService *OperationService,
	referralService *ReferralService,
	notifier Notifier) *UpgradeService {
	return &UpgradeService{
		upgradeRepo:      upgradeRepo,
		positionService:  positionService,
		planService:      planService,
		operationService: operationService,
		referralService:  referralService,
		notifier:         notifier,
	}
}

// remainingWholeDays is floored at zero; an upgrade approved after the
// end date adds principal but no forward return.
func remainingWholeDays(p *models.Position, now time.Time) (int, error) {
	if !p.EndDate.Valid {
		return 0, fmt.Errorf("%w: position %d has no end date", models.ErrValidation, p.Id.Int64)
	}
	d := int(p.EndDate.Time.Sub(now).Hours() / 24)
	if d < 0 {
		d = 0
	}
	return d, nil
}

func forwardReturn(principal, effectiveRate decimal.Decimal, remainingDays int) decimal.Decimal {
	months := decimal.NewFromInt(int64(remainingDays)).Div(decimal.NewFromInt(accrual.DaysPerMonth))
	return principal.Mul(effectiveRate).Mul(months).Div(decimal.NewFromInt(100))
}

// applyAmountUpgrade recomputes the position terms for an amount upgrade
// in place. The cash bonus fields and the term dates are deliberately
// left alone: entitlement was fixed at activation and an upgrade must
// never reset or duplicate it.
func applyAmountUpgrade(p *models.Position, plan *models.Plan, additional, interestSnapshot decimal.Decimal, now time.Time) error {
	if !p.StartDate.Valid || !p.EndDate.Valid {
		return fmt.Errorf("%w: position %d is missing term dates", models.ErrValidation, p.Id.Int64)
	}

	remaining, err := remainingWholeDays(p, now)
	if err != nil {
		return err
	}

	p.Tier = plan.Tier
	p.Principal = p.Principal.Add(additional)
	p.BaseRate = plan.BaseRate
	p.EffectiveRate = plan.BaseRate.Add(p.DurationBonusRate)
	p.AccumulatedInterest = interestSnapshot.Add(forwardReturn(p.Principal, p.EffectiveRate, remaining))
	p.LastUpgradeAt = sql.NullTime{Time: now, Valid: true}

	return nil
}

// applyDurationUpgrade extends the term. The duration bonus and the
// effective rate follow the new duration; the end date moves with it.
// Cash bonus and its unlock stay as granted at activation.
func applyDurationUpgrade(p *models.Position, newMonths int, interestSnapshot decimal.Decimal, now time.Time) error {
	if !p.StartDate.Valid || !p.EndDate.Valid {
		return fmt.Errorf("%w: position %d is missing term dates", models.ErrValidation, p.Id.Int64)
	}
	if newMonths <= p.DurationMonths {
		return fmt.Errorf("%w: new duration %d months must exceed current %d",
			models.ErrValidation, newMonths, p.DurationMonths)
	}

	bonus, err := rates.DurationBonus(newMonths)
	if err != nil {
		return err
	}

	p.DurationMonths = newMonths
	p.DurationBonusRate = bonus
	p.EffectiveRate = p.BaseRate.Add(bonus)
	p.EndDate = sql.NullTime{Time: p.StartDate.Time.AddDate(0, 0, newMonths*accrual.DaysPerMonth), Valid: true}

	remaining, err := remainingWholeDays(p, now)
	if err != nil {
		return err
	}
	p.AccumulatedInterest = interestSnapshot.Add(forwardReturn(p.Principal, p.EffectiveRate, remaining))
	p.LastUpgradeAt = sql.NullTime{Time: now, Valid: true}

	return nil
}

// RequestAmountUpgrade snapshots the interest accrued so far; the
// snapshot, not the live value, is carried forward on approval so that
// upgrades compose without double-counting.
func (s *UpgradeService) RequestAmountUpgrade(positionId int64, newTier string, additionalAmount decimal.Decimal, sourceAddress string) (*models.UpgradeRequest, error) {
	position, err := s.positionService.GetById(positionId)
	if err != nil {
		return nil, err
	}
	if position.State != models.PositionActive {
		return nil, fmt.Errorf("%w: position %d is %s, expected %s",
			models.ErrInvalidState, positionId, position.State, models.PositionActive)
	}

	if _, err := s.planService.GetByTier(newTier); err != nil {
		return nil, err
	}
	if additionalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: additional amount must be greater than zero", models.ErrValidation)
	}

	if s.upgradeRepo.CountPendingByPosition(uint64(positionId)) > 0 {
		return nil, fmt.Errorf("%w: position %d already has a pending upgrade request",
			models.ErrConflictingRequest, positionId)
	}

	now := time.Now()
	snapshot, err := accrual.CurrentReturn(position, now)
	if err != nil {
		return nil, err
	}

	req := &models.UpgradeRequest{
		Reference:        uuid.NewString(),
		PositionId:       uint64(positionId),
		Kind:             models.UpgradeKindAmount,
		NewTier:          sql.NullString{String: newTier, Valid: true},
		AdditionalAmount: additionalAmount,
		SourceAddress:    sql.NullString{String: sourceAddress, Valid: sourceAddress != ""},
		InterestSnapshot: snapshot,
		State:            models.RequestPending,
		CreatedAt:        now,
	}

	if err := s.upgradeRepo.Save(req); err != nil {
		return nil, err
	}

	s.recordRequest(position, req, fmt.Sprintf("amount upgrade to %s with +%s", newTier, additionalAmount))

	return req, nil
}

func (s *UpgradeService) RequestDurationUpgrade(positionId int64, newMonths int) (*models.UpgradeRequest, error) {
	position, err := s.positionService.GetById(positionId)
	if err != nil {
		return nil, err
	}
	if position.State != models.PositionActive {
		return nil, fmt.Errorf("%w: position %d is %s, expected %s",
			models.ErrInvalidState, positionId, position.State, models.PositionActive)
	}

	if !rates.IsValidDuration(newMonths) {
		return nil, fmt.Errorf("%w: duration %d months is not offered", models.ErrValidation, newMonths)
	}
	if newMonths <= position.DurationMonths {
		return nil, fmt.Errorf("%w: new duration %d months must exceed current %d",
			models.ErrValidation, newMonths, position.DurationMonths)
	}

	if s.upgradeRepo.CountPendingByPosition(uint64(positionId)) > 0 {
		return nil, fmt.Errorf("%w: position %d already has a pending upgrade request",
			models.ErrConflictingRequest, positionId)
	}

	now := time.Now()
	snapshot, err := accrual.CurrentReturn(position, now)
	if err != nil {
		return nil, err
	}

	req := &models.UpgradeRequest{
		Reference:        uuid.NewString(),
		PositionId:       uint64(positionId),
		Kind:             models.UpgradeKindDuration,
		NewDuration:      sql.NullInt64{Int64: int64(newMonths), Valid: true},
		InterestSnapshot: snapshot,
		State:            models.RequestPending,
		CreatedAt:        now,
	}

	if err := s.upgradeRepo.Save(req); err != nil {
		return nil, err
	}

	s.recordRequest(position, req, fmt.Sprintf("duration upgrade to %d months", newMonths))

	return req, nil
}

func (s *UpgradeService) recordRequest(position *models.Position, req *models.UpgradeRequest, summary string) {
	if _, err := s.operationService.Create(
		position.UserId,
		models.OP_REQUEST_UPGRADE,
		fmt.Sprintf("Position #%d: %s (ref %s)", position.Id.Int64, summary, req.Reference),
	); err != nil {
		log.Error("Failed to record operation: ", err)
	}

	if s.notifier != nil {
		s.notifier.RequestApproval(req.Reference,
			fmt.Sprintf("Position #%d: %s", position.Id.Int64, summary))
	}
}

// ApproveUpgrade recomputes the position terms and commits them with the
// request flip in one transaction. Idempotent by request id.
func (s *UpgradeService) ApproveUpgrade(upgradeId int64) (*models.UpgradeRequest, error) {
	req := s.upgradeRepo.FindById(upgradeId)
	if req == nil {
		return nil, fmt.Errorf("%w: upgrade request %d", models.ErrNotFound, upgradeId)
	}

	if req.State == models.RequestApproved {
		return req, nil
	}
	if req.State == models.RequestRejected {
		return nil, fmt.Errorf("%w: upgrade request %d was rejected", models.ErrInvalidState, upgradeId)
	}

	position, err := s.positionService.GetById(int64(req.PositionId))
	if err != nil {
		return nil, err
	}
	if position.State != models.PositionActive {
		return nil, fmt.Errorf("%w: position %d is %s, expected %s",
			models.ErrInvalidState, req.PositionId, position.State, models.PositionActive)
	}

	now := time.Now()
	switch req.Kind {
	case models.UpgradeKindAmount:
		plan, err := s.planService.GetByTier(req.NewTier.String)
		if err != nil {
			return nil, err
		}
		if err := applyAmountUpgrade(position, plan, req.AdditionalAmount, req.InterestSnapshot, now); err != nil {
			return nil, err
		}

	case models.UpgradeKindDuration:
		if err := applyDurationUpgrade(position, int(req.NewDuration.Int64), req.InterestSnapshot, now); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: unknown upgrade kind %q", models.ErrValidation, req.Kind)
	}

	ok, err := s.upgradeRepo.ApproveWithPosition(upgradeId, position)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: request %d or position %d changed state during approval",
			models.ErrInvalidState, upgradeId, req.PositionId)
	}

	// the top-up of an amount upgrade is a fresh invitee deposit, so the
	// inviter chain earns commission on it like on the initial one
	if req.Kind == models.UpgradeKindAmount {
		if err := s.referralService.RecordDeposit(position.UserId, req.AdditionalAmount, now); err != nil {
			log.Error("Failed to record referral earnings: ", err)
		}
	}

	if _, err := s.operationService.Create(
		position.UserId,
		models.OP_APPROVE_UPGRADE,
		fmt.Sprintf("Position #%d %s upgrade approved (ref %s)", position.Id.Int64, req.Kind, req.Reference),
	); err != nil {
		log.Error("Failed to record operation: ", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyUser(position.UserId,
			fmt.Sprintf("Your %s upgrade on position #%d was approved.", req.Kind, position.Id.Int64))
	}

	return s.upgradeRepo.FindById(upgradeId), nil
}

func (s *UpgradeService) RejectUpgrade(upgradeId int64) (*models.UpgradeRequest, error) {
	req := s.upgradeRepo.FindById(upgradeId)
	if req == nil {
		return nil, fmt.Errorf("%w: upgrade request %d", models.ErrNotFound, upgradeId)
	}

	if req.State == models.RequestRejected {
		return req, nil
	}
	if req.State == models.RequestApproved {
		return nil, fmt.Errorf("%w: upgrade request %d was already approved", models.ErrInvalidState, upgradeId)
	}

	ok, err := s.upgradeRepo.Reject(upgradeId)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: request %d changed state during rejection", models.ErrInvalidState, upgradeId)
	}

	position, err := s.positionService.GetById(int64(req.PositionId))
	if err == nil {
		if _, err := s.operationService.Create(
			position.UserId,
			models.OP_REJECT_UPGRADE,
			fmt.Sprintf("Position #%d %s upgrade rejected (ref %s)", position.Id.Int64, req.Kind, req.Reference),
		); err != nil {
			log.Error("Failed to record operation: ", err)
		}
	}

	return s.upgradeRepo.FindById(upgradeId), nil
}
