package repositories

import (
	"context"
	"time"

	"investbot/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type ReferralRepository struct {
	db *sqlx.DB
}

func NewReferralRepository(db *sqlx.DB) *ReferralRepository {
	return &ReferralRepository{
		db: db,
	}
}

func (r *ReferralRepository) SaveEdge(edge *models.ReferralEdge) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := r.db.Beginx()
	if err != nil {
		log.Error(err)
		return err
	}
	query, args, err := tx.BindNamed(
		"insert into referral_edge(inviter_id, invitee_id, level, created_at) values (:inviter_id, :invitee_id, :level, :created_at) returning id",
		edge,
	)

	if err != nil {
		log.Error("Error inserting referral edge:", err)
		return err
	}

	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&edge.Id); err != nil {
		log.Error("Error inserting referral edge:", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
			return er
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("Error committing referral edge:", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
			return er
		}
		return err
	}
	return nil
}

// FindLevel1Edges returns the inviter's direct invitees in join order.
// Rank is derived from this list, so the single ordered query is the
// consistent snapshot the rank computation needs.
func (r *ReferralRepository) FindLevel1Edges(inviterId uint64) *[]models.ReferralEdge {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	edges := make([]models.ReferralEdge, 0)
	if err := r.db.SelectContext(
		ctx,
		&edges,
		"select * from referral_edge where inviter_id=$1 and level=1 order by created_at, id",
		inviterId,
	); err != nil {
		log.Error("Error selecting referral edges:", err)
		return nil
	}

	return &edges
}

func (r *ReferralRepository) FindLevel2Edges(inviterId uint64) *[]models.ReferralEdge {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	edges := make([]models.ReferralEdge, 0)
	if err := r.db.SelectContext(
		ctx,
		&edges,
		"select * from referral_edge where inviter_id=$1 and level=2 order by created_at, id",
		inviterId,
	); err != nil {
		log.Error("Error selecting referral edges:", err)
		return nil
	}

	return &edges
}

// FindEdgesToInvitee returns the inviters (level 1 and 2) of one user.
func (r *ReferralRepository) FindEdgesToInvitee(inviteeId uint64) *[]models.ReferralEdge {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	edges := make([]models.ReferralEdge, 0)
	if err := r.db.SelectContext(
		ctx,
		&edges,
		"select * from referral_edge where invitee_id=$1 order by level",
		inviteeId,
	); err != nil {
		log.Error("Error selecting referral edges:", err)
		return nil
	}

	return &edges
}

func (r *ReferralRepository) SaveEarning(earning *models.ReferralEarning) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := r.db.Beginx()
	if err != nil {
		log.Error(err)
		return err
	}
	query, args, err := tx.BindNamed(
		`insert into
referral_earning(inviter_id, invitee_id, deposit_amount, level, rate, amount, deposit_at, withdrawn)
values (:inviter_id, :invitee_id, :deposit_amount, :level, :rate, :amount, :deposit_at, :withdrawn)
returning id`,
		earning,
	)

	if err != nil {
		log.Error("Error inserting referral earning:", err)
		return err
	}

	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&earning.Id); err != nil {
		log.Error("Error inserting referral earning:", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
			return er
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("Error committing referral earning:", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
			return er
		}
		return err
	}
	return nil
}

func (r *ReferralRepository) FindEarningsByInviter(inviterId uint64) *[]models.ReferralEarning {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	earnings := make([]models.ReferralEarning, 0)
	if err := r.db.SelectContext(
		ctx,
		&earnings,
		"select * from referral_earning where inviter_id=$1 order by deposit_at, id",
		inviterId,
	); err != nil {
		log.Error("Error selecting referral earnings:", err)
		return nil
	}

	return &earnings
}

func (r *ReferralRepository) FindEarningById(id int64) *models.ReferralEarning {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var earning models.ReferralEarning
	if err := r.db.GetContext(ctx, &earning, "select * from referral_earning where id=$1", id); err != nil {
		return nil
	}

	return &earning
}

// FindUnlockedEarnings returns earnings deposited at or before the cutoff
// and not yet withdrawn.
func (r *ReferralRepository) FindUnlockedEarnings(inviterId uint64, cutoff time.Time) *[]models.ReferralEarning {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	earnings := make([]models.ReferralEarning, 0)
	if err := r.db.SelectContext(
		ctx,
		&earnings,
		"select * from referral_earning where inviter_id=$1 and withdrawn=false and deposit_at <= $2 order by deposit_at, id",
		inviterId,
		cutoff,
	); err != nil {
		log.Error("Error selecting unlocked earnings:", err)
		return nil
	}

	return &earnings
}

// MarkWithdrawnWithPayout creates the payout record and marks every
// included earning withdrawn in one transaction. If any earning was
// already taken the whole batch rolls back.
func (r *ReferralRepository) MarkWithdrawnWithPayout(payout *models.ReferralPayout, earningIds []int64) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := r.db.Beginx()
	if err != nil {
		log.Error(err)
		return false, err
	}

	query, args, err := tx.BindNamed(
		`insert into
referral_payout(reference, inviter_id, mode, amount, destination, position_id, created_at)
values (:reference, :inviter_id, :mode, :amount, :destination, :position_id, :created_at)
returning id`,
		payout,
	)
	if err != nil {
		log.Error("Error inserting referral payout:", err)
		if er := tx.Rollback(); er != nil {
			return false, er
		}
		return false, err
	}

	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&payout.Id); err != nil {
		log.Error("Error inserting referral payout:", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
			return false, er
		}
		return false, err
	}

	res, err := tx.ExecContext(
		ctx,
		"update referral_earning set withdrawn=true, withdrawn_at=$1 where id = any($2) and withdrawn=false",
		time.Now(),
		pq.Array(earningIds),
	)
	if err != nil {
		log.Error("Error marking earnings withdrawn:", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
			return false, er
		}
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil || n != int64(len(earningIds)) {
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
		}
		return false, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("Error committing referral payout:", err)
		return false, err
	}

	return true, nil
}

// ReinvestIntoPosition is MarkWithdrawnWithPayout plus the position
// principal update, all in one transaction. The position row must still
// be ACTIVE or the whole batch rolls back.
func (r *ReferralRepository) ReinvestIntoPosition(payout *models.ReferralPayout, earningIds []int64, p *models.Position) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := r.db.Beginx()
	if err != nil {
		log.Error(err)
		return false, err
	}

	query, args, err := tx.BindNamed(
		`insert into
referral_payout(reference, inviter_id, mode, amount, destination, position_id, created_at)
values (:reference, :inviter_id, :mode, :amount, :destination, :position_id, :created_at)
returning id`,
		payout,
	)
	if err != nil {
		log.Error("Error inserting referral payout:", err)
		if er := tx.Rollback(); er != nil {
			return false, er
		}
		return false, err
	}

	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&payout.Id); err != nil {
		log.Error("Error inserting referral payout:", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
			return false, er
		}
		return false, err
	}

	res, err := tx.ExecContext(
		ctx,
		"update referral_earning set withdrawn=true, withdrawn_at=$1 where id = any($2) and withdrawn=false",
		time.Now(),
		pq.Array(earningIds),
	)
	if err != nil {
		log.Error("Error marking earnings withdrawn:", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
			return false, er
		}
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil || n != int64(len(earningIds)) {
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
		}
		return false, err
	}

	query, args, err = tx.BindNamed(
		`update position set principal = :principal, accumulated_interest = :accumulated_interest,
last_upgrade_at = :last_upgrade_at
where id = :id and state = 'ACTIVE'`,
		p,
	)
	if err != nil {
		log.Error("Error creating position update query: ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
			return false, er
		}
		return false, err
	}

	res, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("Error updating position on reinvest: ", err)
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
			return false, er
		}
		return false, err
	}

	n, err = res.RowsAffected()
	if err != nil || n != 1 {
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
		}
		return false, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("Error committing referral reinvest:", err)
		return false, err
	}

	return true, nil
}
