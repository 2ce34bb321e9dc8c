package repositories

import (
	"context"
	"time"

	"investbot/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type WithdrawalRepository struct {
	db *sqlx.DB
}

func NewWithdrawalRepository(db *sqlx.DB) *WithdrawalRepository {
	return &WithdrawalRepository{
		db: db,
	}
}

func (r *WithdrawalRepository) Save(req *models.WithdrawalRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx := r.db.MustBegin()

	query, args, err := tx.BindNamed(
		`insert into
withdrawal_request(reference, position_id, flavor, kind, amount, destination, state, created_at)
values (:reference, :position_id, :flavor, :kind, :amount, :destination, :state, :created_at)
returning id`,
		req,
	)

	if err != nil {
		log.Error("Error while creating withdrawal query: ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Error while rolling back transaction: ", er)
			return er
		}
		return err
	}

	if err := tx.QueryRowContext(ctx, query, args...).Scan(&req.Id); err != nil {
		log.Error("Error while saving withdrawal request: ", err)
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

func (r *WithdrawalRepository) FindById(id int64) *models.WithdrawalRequest {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var req models.WithdrawalRequest
	if err := r.db.GetContext(ctx, &req, "select * from withdrawal_request where id=$1", id); err != nil {
		return nil
	}

	return &req
}

func (r *WithdrawalRepository) FindByReference(reference string) *models.WithdrawalRequest {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var req models.WithdrawalRequest
	if err := r.db.GetContext(ctx, &req, "select * from withdrawal_request where reference=$1", reference); err != nil {
		return nil
	}

	return &req
}

func (r *WithdrawalRepository) FindByPositionId(positionId uint64) *[]models.WithdrawalRequest {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var reqs []models.WithdrawalRequest
	if err := r.db.SelectContext(
		ctx,
		&reqs,
		"select * from withdrawal_request where position_id=$1 order by id desc",
		positionId); err != nil {
		log.Error("Error while getting withdrawal requests: ", err)
		return nil
	}

	return &reqs
}

// CountPendingByPosition covers every flavor: the pending row is the
// concurrency token, one per position at a time.
func (r *WithdrawalRepository) CountPendingByPosition(positionId uint64) int {
	var res int
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.db.QueryRowxContext(
		ctx,
		"select count(*) from withdrawal_request where position_id=$1 and state=$2",
		positionId,
		models.RequestPending,
	).Scan(&res); err != nil {
		log.Error("Error while counting pending withdrawals: ", err)
		return 0
	}

	return res
}

func (r *WithdrawalRepository) approveTx(requestId int64, positionUpdate string, positionArgs []interface{}) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := r.db.Beginx()
	if err != nil {
		log.Error(err)
		return false, err
	}

	res, err := tx.ExecContext(
		ctx,
		"update withdrawal_request set state=$1, processed_at=$2 where id=$3 and state=$4",
		models.RequestApproved,
		time.Now(),
		requestId,
		models.RequestPending,
	)
	if err != nil {
		log.Error("Error while approving withdrawal request: ", err)
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

	res, err = tx.ExecContext(ctx, positionUpdate, positionArgs...)
	if err != nil {
		log.Error("Error while updating position on approval: ", err)
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

// ApproveFull completes the position and the request together. The cash
// bonus rides along with a full payout, so the flag flips with it.
func (r *WithdrawalRepository) ApproveFull(requestId, positionId int64) (bool, error) {
	return r.approveTx(
		requestId,
		"update position set state=$1, bonus_withdrawn=true where id=$2 and state=$3",
		[]interface{}{models.PositionCompleted, positionId, models.PositionActive},
	)
}

// ApproveProfit books the approved amount into withdrawn_profit.
func (r *WithdrawalRepository) ApproveProfit(requestId, positionId int64, amount decimal.Decimal) (bool, error) {
	return r.approveTx(
		requestId,
		"update position set withdrawn_profit = withdrawn_profit + $1 where id=$2 and state=$3",
		[]interface{}{amount, positionId, models.PositionActive},
	)
}

// ApproveBonus marks the cash bonus paid; the conditional update makes a
// double payout impossible even under concurrent approvals.
func (r *WithdrawalRepository) ApproveBonus(requestId, positionId int64) (bool, error) {
	return r.approveTx(
		requestId,
		"update position set bonus_withdrawn = true where id=$1 and state=$2 and bonus_withdrawn=false",
		[]interface{}{positionId, models.PositionActive},
	)
}

// ApproveEarly closes the position as EARLY_WITHDRAWN.
func (r *WithdrawalRepository) ApproveEarly(requestId, positionId int64) (bool, error) {
	return r.approveTx(
		requestId,
		"update position set state=$1 where id=$2 and state=$3",
		[]interface{}{models.PositionEarlyWithdrawn, positionId, models.PositionActive},
	)
}

func (r *WithdrawalRepository) Reject(requestId int64, reason string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(
		ctx,
		"update withdrawal_request set state=$1, reject_reason=$2, processed_at=$3 where id=$4 and state=$5",
		models.RequestRejected,
		reason,
		time.Now(),
		requestId,
		models.RequestPending,
	)
	if err != nil {
		log.Error("Error while rejecting withdrawal request: ", err)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
