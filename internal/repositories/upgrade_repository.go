package repositories

import (
	"context"
	"time"

	"investbot/internal/models"

	"github.com/jmoiron/sqlx"
)

type UpgradeRepository struct {
	db *sqlx.DB
}

func NewUpgradeRepository(db *sqlx.DB) *UpgradeRepository {
	return &UpgradeRepository{
		db: db,
	}
}

func (r *UpgradeRepository) Save(req *models.UpgradeRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx := r.db.MustBegin()

	query, args, err := tx.BindNamed(
		`insert into
upgrade_request(reference, position_id, kind, new_tier, additional_amount, source_address, new_duration, interest_snapshot, state, created_at)
values (:reference, :position_id, :kind, :new_tier, :additional_amount, :source_address, :new_duration, :interest_snapshot, :state, :created_at)
returning id`,
		req,
	)

	if err != nil {
		log.Error("Error while creating upgrade query: ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error while rolling back transaction: ", er)
			return er
		}
		return err
	}

	if err := tx.QueryRowContext(ctx, query, args...).Scan(&req.Id); err != nil {
		log.Error("Error while saving upgrade request: ", err)
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

func (r *UpgradeRepository) FindById(id int64) *models.UpgradeRequest {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var req models.UpgradeRequest
	if err := r.db.GetContext(ctx, &req, "select * from upgrade_request where id=$1", id); err != nil {
		return nil
	}

	return &req
}

func (r *UpgradeRepository) CountPendingByPosition(positionId uint64) int {
	var res int
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.db.QueryRowxContext(
		ctx,
		"select count(*) from upgrade_request where position_id=$1 and state=$2",
		positionId,
		models.RequestPending,
	).Scan(&res); err != nil {
		log.Error("Error while counting pending upgrades: ", err)
		return 0
	}

	return res
}

// ApproveWithPosition writes the recomputed position terms and flips the
// request to APPROVED in a single transaction. The conditional updates
// keep a stale or double approval from touching the ledger.
func (r *UpgradeRepository) ApproveWithPosition(requestId int64, p *models.Position) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := r.db.Beginx()
	if err != nil {
		log.Error(err)
		return false, err
	}

	res, err := tx.ExecContext(
		ctx,
		"update upgrade_request set state=$1, processed_at=$2 where id=$3 and state=$4",
		models.RequestApproved,
		time.Now(),
		requestId,
		models.RequestPending,
	)
	if err != nil {
		log.Error("Error while approving upgrade request: ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error while rolling back transaction: ", er)
			return false, er
		}
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil || n != 1 {
		if er := tx.Rollback(); er != nil {
			log.Error("Error while rolling back transaction: ", er)
		}
		return false, err
	}

	query, args, err := tx.BindNamed(
		`update position set tier = :tier, principal = :principal, duration_months = :duration_months,
base_rate = :base_rate, duration_bonus_rate = :duration_bonus_rate, effective_rate = :effective_rate,
accumulated_interest = :accumulated_interest, last_upgrade_at = :last_upgrade_at, end_date = :end_date
where id = :id and state = 'ACTIVE'`,
		p,
	)
	if err != nil {
		log.Error("Error while creating position update query: ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error while rolling back transaction: ", er)
			return false, er
		}
		return false, err
	}

	res, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("Error while updating position on upgrade: ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error while rolling back transaction: ", er)
			return false, er
		}
		return false, err
	}
	n, err = res.RowsAffected()
	if err != nil || n != 1 {
		if er := tx.Rollback(); er != nil {
			log.Error("Error while rolling back transaction: ", er)
		}
		return false, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("Error while committing transaction: ", err)
		return false, err
	}

	return true, nil
}

func (r *UpgradeRepository) Reject(requestId int64) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(
		ctx,
		"update upgrade_request set state=$1, processed_at=$2 where id=$3 and state=$4",
		models.RequestRejected,
		time.Now(),
		requestId,
		models.RequestPending,
	)
	if err != nil {
		log.Error("Error while rejecting upgrade request: ", err)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
