package repositories

import (
	"context"
	"time"

	"investbot/internal/models"

	"github.com/jmoiron/sqlx"
)

type PositionRepository struct {
	db *sqlx.DB
}

func NewPositionRepository(db *sqlx.DB) *PositionRepository {
	return &PositionRepository{
		db: db,
	}
}

func (r *PositionRepository) Save(p *models.Position) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx := r.db.MustBegin()

	query, args, err := tx.BindNamed(
		`insert into
position(user_id, tier, principal, duration_months, base_rate, duration_bonus_rate, effective_rate, cash_bonus, bonus_unlock_at, bonus_withdrawn, start_date, end_date, withdrawn_profit, accumulated_interest, source_address, state, last_upgrade_at, created_at)
values (:user_id, :tier, :principal, :duration_months, :base_rate, :duration_bonus_rate, :effective_rate, :cash_bonus, :bonus_unlock_at, :bonus_withdrawn, :start_date, :end_date, :withdrawn_profit, :accumulated_interest, :source_address, :state, :last_upgrade_at, :created_at)
returning id`,
		p,
	)

	if err != nil {
		log.Error("Error while creating position query: ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error while rolling back transaction: ", er)
			return er
		}
		return err
	}

	if err := tx.QueryRowContext(ctx, query, args...).Scan(&p.Id); err != nil {
		log.Error("Error while saving position: ", err)
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

func (r *PositionRepository) Update(p *models.Position) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx := r.db.MustBegin()
	if _, err := tx.NamedExecContext(
		ctx,
		`update position set tier = :tier, principal = :principal, duration_months = :duration_months,
base_rate = :base_rate, duration_bonus_rate = :duration_bonus_rate, effective_rate = :effective_rate,
cash_bonus = :cash_bonus, bonus_unlock_at = :bonus_unlock_at, bonus_withdrawn = :bonus_withdrawn,
start_date = :start_date, end_date = :end_date, withdrawn_profit = :withdrawn_profit,
accumulated_interest = :accumulated_interest, state = :state, last_upgrade_at = :last_upgrade_at
where id = :id`,
		p); err != nil {
		log.Error("Error while updating position: ", err)
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

// Activate flips PENDING_PAYMENT to ACTIVE and stamps the term dates in
// one statement. Returns false when the position was not awaiting payment.
func (r *PositionRepository) Activate(positionId int64, start, end, bonusUnlock time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx := r.db.MustBegin()
	res, err := tx.ExecContext(
		ctx,
		"update position set state=$1, start_date=$2, end_date=$3, bonus_unlock_at=$4 where id=$5 and state=$6",
		models.PositionActive,
		start,
		end,
		bonusUnlock,
		positionId,
		models.PositionPendingPayment,
	)
	if err != nil {
		log.Error("Error while activating position: ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error while rolling back transaction: ", er)
			return false, er
		}
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		log.Error("Error while reading rows affected: ", err)
		if er := tx.Rollback(); er != nil {
			return false, er
		}
		return false, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("Error while committing transaction: ", err)
		return false, err
	}

	return n == 1, nil
}

// MarkExpired is used by the pending-payment sweep; only positions still
// awaiting payment can expire.
func (r *PositionRepository) MarkExpired(positionId int64) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(
		ctx,
		"update position set state=$1 where id=$2 and state=$3",
		models.PositionExpired,
		positionId,
		models.PositionPendingPayment,
	)
	if err != nil {
		log.Error("Error while expiring position: ", err)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PositionRepository) FindById(id int64) *models.Position {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var p models.Position
	if err := r.db.GetContext(ctx, &p, "select * from position where id=$1", id); err != nil {
		return nil
	}

	return &p
}

func (r *PositionRepository) FindByUserId(userId uint64) *[]models.Position {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var positions []models.Position
	if err := r.db.SelectContext(
		ctx,
		&positions,
		"select p.* from position as p join usr as u on p.user_id = u.id where u.id=$1 order by p.id desc",
		userId); err != nil {
		log.Error("Error while getting positions: ", err)
		return nil
	}

	return &positions
}

func (r *PositionRepository) FindByUserIdLimit(userId uint64, offset, limit int) *[]models.Position {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var positions []models.Position
	if err := r.db.SelectContext(
		ctx,
		&positions,
		"select p.* from position as p join usr as u on p.user_id = u.id where u.id=$1 order by p.id desc offset $2 limit $3",
		userId,
		offset,
		limit); err != nil {
		log.Error("Error while getting positions: ", err)
		return nil
	}

	return &positions
}

func (r *PositionRepository) FindAllByState(state string) *[]models.Position {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var positions []models.Position
	if err := r.db.SelectContext(ctx, &positions, "select * from position where state=$1", state); err != nil {
		log.Error("Error while getting positions: ", err)
		return nil
	}

	return &positions
}

func (r *PositionRepository) FindActivePastEnd(now time.Time) *[]models.Position {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var positions []models.Position
	if err := r.db.SelectContext(
		ctx,
		&positions,
		"select * from position where state=$1 and end_date is not null and end_date <= $2",
		models.PositionActive,
		now); err != nil {
		log.Error("Error while getting positions: ", err)
		return nil
	}

	return &positions
}

func (r *PositionRepository) CountByUserId(userId uint64) int {
	var res int
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.db.QueryRowxContext(
		ctx,
		"select count(*) from position p join usr u on p.user_id = u.id where u.id=$1",
		userId,
	).Scan(&res); err != nil {
		log.Error("Error while counting positions: ", err)
		return 0
	}

	return res
}
