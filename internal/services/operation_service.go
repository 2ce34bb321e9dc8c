package services

import (
	"time"

	"investbot/internal/models"
	"investbot/internal/repositories"
)

type OperationService struct {
	rep *repositories.OperationRepository
}

func NewOperationService(rep *repositories.OperationRepository) *OperationService {
	return &OperationService{rep}
}

func (s *OperationService) Create(userId uint64, numOperation int, description string) (*models.Operation, error) {
	opName := OperationName(numOperation)
	op := models.Operation{
		UserId:       userId,
		NumOperation: numOperation,
		Name:         opName,
		CreatedAt:    time.Now(),
		Description:  description,
	}

	if err := s.rep.Save(&op); err != nil {
		return nil, err
	}
	return &op, nil
}

func (s *OperationService) GetById(id uint64) (*models.Operation, error) {
	return s.rep.FindById(id)
}

func (s *OperationService) GetByUserId(userId uint64) ([]models.Operation, error) {
	return s.rep.FindByUserId(userId)
}

func (s *OperationService) GetByUserIdLimit(userId uint64, offset, limit int) ([]models.Operation, error) {
	return s.rep.FindByUserIdLimit(userId, offset, limit)
}

func (s *OperationService) CountByUserId(userId uint64) int {
	return s.rep.CountByUserId(userId)
}

func OperationName(numOperation int) string {
	switch numOperation {
	case models.OP_CREATE_POSITION:
		return "Position created"
	case models.OP_CONFIRM_PAYMENT:
		return "Payment confirmed"
	case models.OP_REQUEST_WITHDRAWAL:
		return "Withdrawal requested"
	case models.OP_APPROVE_WITHDRAWAL:
		return "Withdrawal approved"
	case models.OP_REJECT_WITHDRAWAL:
		return "Withdrawal rejected"
	case models.OP_REQUEST_UPGRADE:
		return "Upgrade requested"
	case models.OP_APPROVE_UPGRADE:
		return "Upgrade approved"
	case models.OP_REJECT_UPGRADE:
		return "Upgrade rejected"
	case models.OP_REFERRAL_EARNING:
		return "Referral commission earned"
	case models.OP_REFERRAL_PAYOUT:
		return "Referral bonus paid out"
	case models.OP_REFERRAL_REINVEST:
		return "Referral bonus reinvested"
	case models.OP_POSITION_EXPIRED:
		return "Position expired unpaid"
	default:
		return "Unknown operation"
	}
}
