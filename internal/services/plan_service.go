package services

import (
	"fmt"

	"investbot/internal/models"
	"investbot/internal/repositories"

	"github.com/shopspring/decimal"
)

type PlanService struct {
	planRepository *repositories.PlanRepository
}

func NewPlanService(planRepository *repositories.PlanRepository) *PlanService {
	return &PlanService{
		planRepository: planRepository,
	}
}

func (s *PlanService) CreatePlan(plan *models.Plan) (*models.Plan, error) {
	if plan.Tier == "" {
		return nil, fmt.Errorf("%w: tier name must be set", models.ErrValidation)
	}

	if plan.BaseRate.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: base rate must be greater than zero", models.ErrValidation)
	}

	if plan.MinAmount.LessThan(decimal.Zero) || plan.MaxAmount.LessThanOrEqual(plan.MinAmount) {
		return nil, fmt.Errorf("%w: amount bounds must satisfy 0 <= min < max", models.ErrValidation)
	}

	if err := s.planRepository.Save(plan); err != nil {
		return nil, err
	}

	return plan, nil
}

// GetByTier resolves a configured active tier. An unknown or disabled
// tier is an operator configuration fault, not a user error.
func (s *PlanService) GetByTier(tier string) (*models.Plan, error) {
	plan := s.planRepository.FindByTier(tier)
	if plan == nil || !plan.IsActive {
		log.Errorf("plan tier %q is not configured", tier)
		return nil, fmt.Errorf("%w: tier %q", models.ErrMissingTierData, tier)
	}
	return plan, nil
}

// ValidateAmount checks the deposit against the tier's bounds and reports
// them back so the caller can correct the input.
func (s *PlanService) ValidateAmount(plan *models.Plan, amount decimal.Decimal) error {
	if amount.LessThan(plan.MinAmount) || amount.GreaterThan(plan.MaxAmount) {
		return fmt.Errorf("%w: amount for %s must be between %s and %s",
			models.ErrValidation, plan.Tier, plan.MinAmount, plan.MaxAmount)
	}
	return nil
}

func (s *PlanService) AllActive() *[]models.Plan {
	return s.planRepository.FindAllActive()
}

func (s *PlanService) Update(plan *models.Plan) error {
	return s.planRepository.Update(plan)
}
