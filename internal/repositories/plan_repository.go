package repositories

import (
	"context"
	"time"

	"investbot/internal/models"

	"github.com/jmoiron/sqlx"
)

type PlanRepository struct {
	db *sqlx.DB
}

func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{
		db: db,
	}
}

func (r *PlanRepository) Save(plan *models.Plan) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx := r.db.MustBegin()

	query, args, err := tx.BindNamed(
		"insert into plan(tier, base_rate, min_amount, max_amount, is_active) values (:tier, :base_rate, :min_amount, :max_amount, :is_active) returning id",
		plan,
	)

	if err != nil {
		log.Error("Error while creating plan query: ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error while rolling back transaction: ", er)
			return er
		}
		return err
	}

	if err := tx.QueryRowContext(ctx, query, args...).Scan(&plan.Id); err != nil {
		log.Error("Error while saving plan: ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error while rolling back transaction: ", er)
			return er
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("Error while committing transaction: ", err)
		return err
	}

	return nil
}

func (r *PlanRepository) Update(plan *models.Plan) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx := r.db.MustBegin()
	if _, err := tx.NamedExecContext(
		ctx,
		"update plan set tier = :tier, base_rate = :base_rate, min_amount = :min_amount, max_amount = :max_amount, is_active = :is_active where id = :id",
		plan); err != nil {
		log.Error("Error while updating plan: ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error while rolling back transaction: ", er)
			return er
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		log.Error("Error while committing transaction: ", err)
		return err
	}
	return nil
}

func (r *PlanRepository) FindByTier(tier string) *models.Plan {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var plan models.Plan
	if err := r.db.GetContext(ctx, &plan, "select * from plan where tier=$1", tier); err != nil {
		return nil
	}

	return &plan
}

func (r *PlanRepository) FindAllActive() *[]models.Plan {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var plans []models.Plan
	if err := r.db.SelectContext(ctx, &plans, "select * from plan where is_active=true order by min_amount"); err != nil {
		log.Error("Error while getting plans: ", err)
		return nil
	}

	return &plans
}
