package repositories

import (
	"context"
	"time"

	"investbot/internal/models"

	"github.com/jmoiron/sqlx"
)

type TelegramRepository struct {
	db *sqlx.DB
}

func NewTelegramRepository(db *sqlx.DB) *TelegramRepository {
	return &TelegramRepository{
		db: db,
	}
}

func (r *TelegramRepository) Save(telegram *models.Telegram) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx := r.db.MustBegin()
	query, args, err := tx.BindNamed(
		"insert into telegram(username, telegram_id, user_id) values(:username, :telegram_id, :user_id) returning id",
		telegram,
	)

	if err != nil {
		log.Error("Failed to create new query: ", err)
		er := tx.Rollback()
		if er != nil {
			log.Error("Failed to rollback transaction: ", err)
			return er
		}
		return err
	}

	err = tx.QueryRowxContext(
		ctx,
		query,
		args...,
	).Scan(&telegram.Id)
	if err != nil {
		log.Error("Failed to get result: ", err)
		er := tx.Rollback()
		if er != nil {
			log.Error("Failed to rollback transaction: ", err)
			return er
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("Failed to commit transaction: ", err)
		return err
	}

	return nil
}

func (r *TelegramRepository) FindByTelegramId(telegramId uint64) *models.Telegram {
	var telegram models.Telegram

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.db.GetContext(ctx, &telegram, "select * from telegram where telegram_id=$1", telegramId); err != nil {
		return nil
	}

	return &telegram
}

func (r *TelegramRepository) FindByUserId(userId uint64) *models.Telegram {
	var telegram models.Telegram
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.db.GetContext(
		ctx,
		&telegram,
		"select t.* from telegram as t join usr as u on t.user_id = u.id where u.id = $1",
		userId); err != nil {
		log.Error("Failed find telegram", err)
		return nil
	}

	return &telegram
}
