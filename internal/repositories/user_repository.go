package repositories

import (
	"context"
	"time"

	"investbot/internal/config"
	"investbot/internal/models"

	"github.com/jmoiron/sqlx"
)

var log = config.InitLogger()

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (u *UserRepository) Save(user *models.User) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := u.db.Beginx()
	if err != nil {
		log.Error(err)
		return err
	}
	query, args, err := tx.BindNamed(
		"insert into usr (username, inviter_id, created_at) values (:username, :inviter_id, :created_at) returning id",
		user,
	)
	if err != nil {
		log.Error("Failed insert user ", err)
		return err
	}

	err = tx.QueryRowContext(ctx, query, args...).Scan(&user.Id)
	if err != nil {
		log.Error("Failed save user ", err)
		return err
	}

	err = tx.Commit()
	if err != nil {
		log.Error("Failed to commit transaction")
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", err)
			return er
		}
		return err
	}

	return nil
}

func (u *UserRepository) FindById(id uint64) *models.User {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var user models.User

	err := u.db.GetContext(
		ctx,
		&user,
		"select * from usr where id=$1",
		id,
	)

	if err != nil {
		return nil
	}

	return &user
}

func (u *UserRepository) FindByUsername(username string) *models.User {
	var user models.User

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := u.db.GetContext(
		ctx,
		&user,
		"select * from usr where username=$1",
		username,
	)
	if err != nil {
		return nil
	}

	return &user
}

func (u *UserRepository) FindByTelegramChatId(telegramId uint64) *models.User {
	var user models.User

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := u.db.GetContext(
		ctx,
		&user,
		"select u.* from usr as u join telegram as t on t.user_id=u.id where t.telegram_id=$1",
		telegramId,
	)

	if err != nil {
		log.Error("Failed find user by telegramId ", err)
		return nil
	}

	return &user
}

func (u *UserRepository) FindInvitees(inviterId uint64) *[]models.User {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := make([]models.User, 0)

	if err := u.db.SelectContext(
		ctx,
		&users,
		"select * from usr where inviter_id = $1 order by created_at, id",
		inviterId,
	); err != nil {
		log.Error("Failed find invitees ", err)
		return nil
	}

	return &users
}

func (u *UserRepository) CountAll() int {
	var res int
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := u.db.QueryRowxContext(ctx, "select count(*) from usr").Scan(&res); err != nil {
		log.Error("Failed count users ", err)
		return 0
	}

	return res
}
