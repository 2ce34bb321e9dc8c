package services

import (
	"database/sql"
	"fmt"
	"time"

	"investbot/internal/accrual"
	"investbot/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Notifier is the boundary to the human approval channel. The channel
// never mutates the ledger directly; decisions come back through
// ApproveRequest/RejectRequest.
type Notifier interface {
	RequestApproval(reference, summary string)
	NotifyUser(userId uint64, msg string)
}

// legacy amount-matching tolerance for requests that arrive without a kind tag
var kindInferenceEpsilon = decimal.RequireFromString("0.01")

// withdrawalStore is the persistence surface of the workflow. The sqlx
// repository satisfies it; tests substitute an in-memory one.
type withdrawalStore interface {
	Save(req *models.WithdrawalRequest) error
	FindById(id int64) *models.WithdrawalRequest
	CountPendingByPosition(positionId uint64) int
	ApproveFull(requestId, positionId int64) (bool, error)
	ApproveEarly(requestId, positionId int64) (bool, error)
	ApproveProfit(requestId, positionId int64, amount decimal.Decimal) (bool, error)
	ApproveBonus(requestId, positionId int64) (bool, error)
	Reject(requestId int64, reason string) (bool, error)
}

type positionLookup interface {
	GetById(positionId int64) (*models.Position, error)
}

type WithdrawalService struct {
	withdrawalRepo   withdrawalStore
	positionService  positionLookup
	operationService *OperationService
	notifier         Notifier
}

func NewWithdrawalService(
	withdrawalRepo withdrawalStore,
	positionService positionLookup,
	operationService *OperationService,
	notifier Notifier) *WithdrawalService {
	return &WithdrawalService{
		withdrawalRepo:   withdrawalRepo,
		positionService:  positionService,
		operationService: operationService,
		notifier:         notifier,
	}
}

// resolveRequest validates a withdrawal against the position and settles
// the effective kind and amount. Pure: no repository access.
func resolveRequest(p *models.Position, flavor, kind string, amount decimal.Decimal, now time.Time) (sql.NullString, decimal.Decimal, error) {
	none := sql.NullString{}

	if p.State != models.PositionActive {
		return none, decimal.Zero, fmt.Errorf("%w: position %d is %s, expected %s",
			models.ErrInvalidState, p.Id.Int64, p.State, models.PositionActive)
	}

	switch flavor {
	case models.WithdrawalFull:
		full, err := accrual.FullWithdrawalAmount(p, now)
		if err != nil {
			return none, decimal.Zero, err
		}
		return none, full, nil

	case models.WithdrawalEarly:
		days, err := accrual.DaysElapsed(p, now)
		if err != nil {
			return none, decimal.Zero, err
		}
		if days > 30 {
			return none, decimal.Zero, fmt.Errorf("%w: early withdrawal allowed only within 30 days, position is at day %d",
				models.ErrValidation, days)
		}
		early, err := accrual.EarlyWithdrawalAmount(p, now)
		if err != nil {
			return none, decimal.Zero, err
		}
		return none, early, nil

	case models.WithdrawalPartial:
		if kind == "" {
			kind = inferPartialKind(p, amount)
		}
		switch kind {
		case models.PartialKindProfit:
			available, err := accrual.AvailableProfit(p, now)
			if err != nil {
				return none, decimal.Zero, err
			}
			if amount.LessThanOrEqual(decimal.Zero) {
				return none, decimal.Zero, fmt.Errorf("%w: amount must be greater than zero", models.ErrValidation)
			}
			if amount.GreaterThan(available) {
				return none, decimal.Zero, fmt.Errorf("%w: requested %s exceeds available profit %s",
					models.ErrValidation, amount, accrual.Round2(available))
			}
			return sql.NullString{String: models.PartialKindProfit, Valid: true}, amount, nil
		case models.PartialKindBonus:
			if err := bonusEligibility(p, now); err != nil {
				return none, decimal.Zero, err
			}
			// the amount is never caller-chosen for a bonus payout; it is
			// the entitlement granted at deposit time, untouched by upgrades
			return sql.NullString{String: models.PartialKindBonus, Valid: true}, p.CashBonus, nil
		default:
			return none, decimal.Zero, fmt.Errorf("%w: unknown partial withdrawal kind %q", models.ErrValidation, kind)
		}

	default:
		return none, decimal.Zero, fmt.Errorf("%w: unknown withdrawal flavor %q", models.ErrValidation, flavor)
	}
}

// inferPartialKind is the deprecated compatibility shim for callers that
// do not tag the kind: an amount matching the cash bonus within a cent
// is treated as a bonus payout.
func inferPartialKind(p *models.Position, amount decimal.Decimal) string {
	if !p.CashBonus.IsZero() && amount.Sub(p.CashBonus).Abs().LessThanOrEqual(kindInferenceEpsilon) {
		log.Warnf("position %d: withdrawal kind inferred as BONUS from amount %s; callers should tag the kind explicitly",
			p.Id.Int64, amount)
		return models.PartialKindBonus
	}
	log.Warnf("position %d: withdrawal kind inferred as PROFIT from amount %s; callers should tag the kind explicitly",
		p.Id.Int64, amount)
	return models.PartialKindProfit
}

func bonusEligibility(p *models.Position, now time.Time) error {
	if p.BonusWithdrawn {
		return fmt.Errorf("%w: cash bonus already withdrawn", models.ErrBonusNotEligible)
	}
	if p.CashBonus.IsZero() {
		return fmt.Errorf("%w: position carries no cash bonus", models.ErrBonusNotEligible)
	}
	if !p.BonusUnlockAt.Valid || now.Before(p.BonusUnlockAt.Time) {
		return fmt.Errorf("%w: cash bonus is still locked", models.ErrBonusNotEligible)
	}
	return nil
}

// RequestWithdrawal creates the PENDING request that doubles as the
// concurrency token for the position. A second request of any flavor
// while one is pending fails immediately.
func (s *WithdrawalService) RequestWithdrawal(positionId int64, flavor, kind string, amount decimal.Decimal, destination string) (*models.WithdrawalRequest, error) {
	position, err := s.positionService.GetById(positionId)
	if err != nil {
		return nil, err
	}

	if destination == "" {
		return nil, fmt.Errorf("%w: destination address must be set", models.ErrValidation)
	}

	if s.withdrawalRepo.CountPendingByPosition(uint64(positionId)) > 0 {
		return nil, fmt.Errorf("%w: position %d already has a pending withdrawal request",
			models.ErrConflictingRequest, positionId)
	}

	now := time.Now()
	resolvedKind, resolvedAmount, err := resolveRequest(position, flavor, kind, amount, now)
	if err != nil {
		return nil, err
	}

	req := &models.WithdrawalRequest{
		Reference:   uuid.NewString(),
		PositionId:  uint64(positionId),
		Flavor:      flavor,
		Kind:        resolvedKind,
		Amount:      accrual.Round2(resolvedAmount),
		Destination: destination,
		State:       models.RequestPending,
		CreatedAt:   now,
	}

	if err := s.withdrawalRepo.Save(req); err != nil {
		return nil, err
	}

	if _, err := s.operationService.Create(
		position.UserId,
		models.OP_REQUEST_WITHDRAWAL,
		fmt.Sprintf("%s withdrawal of %s from position #%d (ref %s)", flavor, req.Amount, positionId, req.Reference),
	); err != nil {
		log.Error("Failed to record operation: ", err)
	}

	if s.notifier != nil {
		s.notifier.RequestApproval(req.Reference,
			fmt.Sprintf("%s withdrawal of %s from position #%d to %s", flavor, req.Amount, positionId, destination))
	}

	return req, nil
}

// ApproveRequest applies an operator approval. Re-approving an already
// approved request returns the stored result without touching the ledger.
func (s *WithdrawalService) ApproveRequest(requestId int64) (*models.WithdrawalRequest, error) {
	req := s.withdrawalRepo.FindById(requestId)
	if req == nil {
		return nil, fmt.Errorf("%w: withdrawal request %d", models.ErrNotFound, requestId)
	}

	if req.State == models.RequestApproved {
		return req, nil
	}
	if req.State == models.RequestRejected {
		return nil, fmt.Errorf("%w: withdrawal request %d was rejected", models.ErrInvalidState, requestId)
	}

	position, err := s.positionService.GetById(int64(req.PositionId))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var ok bool
	switch req.Flavor {
	case models.WithdrawalFull:
		ok, err = s.withdrawalRepo.ApproveFull(requestId, position.Id.Int64)

	case models.WithdrawalEarly:
		var days int
		days, err = accrual.DaysElapsed(position, now)
		if err != nil {
			return nil, err
		}
		if days > 30 {
			return nil, fmt.Errorf("%w: early withdrawal window closed at day %d", models.ErrValidation, days)
		}
		ok, err = s.withdrawalRepo.ApproveEarly(requestId, position.Id.Int64)

	case models.WithdrawalPartial:
		switch req.Kind.String {
		case models.PartialKindProfit:
			var available decimal.Decimal
			available, err = accrual.AvailableProfit(position, now)
			if err != nil {
				return nil, err
			}
			if req.Amount.GreaterThan(available) {
				return nil, fmt.Errorf("%w: approved amount %s exceeds available profit %s",
					models.ErrValidation, req.Amount, accrual.Round2(available))
			}
			ok, err = s.withdrawalRepo.ApproveProfit(requestId, position.Id.Int64, req.Amount)
		case models.PartialKindBonus:
			if err = bonusEligibility(position, now); err != nil {
				return nil, err
			}
			ok, err = s.withdrawalRepo.ApproveBonus(requestId, position.Id.Int64)
		default:
			return nil, fmt.Errorf("%w: request %d has no withdrawal kind", models.ErrValidation, requestId)
		}

	default:
		return nil, fmt.Errorf("%w: unknown withdrawal flavor %q", models.ErrValidation, req.Flavor)
	}

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: request %d or position %d changed state during approval",
			models.ErrInvalidState, requestId, req.PositionId)
	}

	if _, err := s.operationService.Create(
		position.UserId,
		models.OP_APPROVE_WITHDRAWAL,
		fmt.Sprintf("%s withdrawal of %s approved (ref %s)", req.Flavor, req.Amount, req.Reference),
	); err != nil {
		log.Error("Failed to record operation: ", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyUser(position.UserId,
			fmt.Sprintf("Your %s withdrawal of %s was approved.", req.Flavor, req.Amount))
	}

	return s.withdrawalRepo.FindById(requestId), nil
}

// RejectRequest leaves the position untouched. Rejecting an already
// rejected request returns the stored result.
func (s *WithdrawalService) RejectRequest(requestId int64, reason string) (*models.WithdrawalRequest, error) {
	req := s.withdrawalRepo.FindById(requestId)
	if req == nil {
		return nil, fmt.Errorf("%w: withdrawal request %d", models.ErrNotFound, requestId)
	}

	if req.State == models.RequestRejected {
		return req, nil
	}
	if req.State == models.RequestApproved {
		return nil, fmt.Errorf("%w: withdrawal request %d was already approved", models.ErrInvalidState, requestId)
	}

	ok, err := s.withdrawalRepo.Reject(requestId, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: request %d changed state during rejection", models.ErrInvalidState, requestId)
	}

	position, err := s.positionService.GetById(int64(req.PositionId))
	if err == nil {
		if _, err := s.operationService.Create(
			position.UserId,
			models.OP_REJECT_WITHDRAWAL,
			fmt.Sprintf("%s withdrawal rejected: %s (ref %s)", req.Flavor, reason, req.Reference),
		); err != nil {
			log.Error("Failed to record operation: ", err)
		}
		if s.notifier != nil {
			s.notifier.NotifyUser(position.UserId,
				fmt.Sprintf("Your %s withdrawal was rejected: %s", req.Flavor, reason))
		}
	}

	return s.withdrawalRepo.FindById(requestId), nil
}
