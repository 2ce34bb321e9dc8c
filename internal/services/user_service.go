package services

import (
	"database/sql"
	"fmt"
	"time"

	"investbot/internal/config"
	"investbot/internal/models"
	"investbot/internal/repositories"
	"investbot/internal/util"
)

var log = config.InitLogger()

type UserService struct {
	userRepo     *repositories.UserRepository
	referralRepo *repositories.ReferralRepository
}

func NewUserService(
	userRepo *repositories.UserRepository,
	referralRepo *repositories.ReferralRepository) *UserService {
	return &UserService{
		userRepo:     userRepo,
		referralRepo: referralRepo,
	}
}

// CreateUser registers a user and, when invited, records the level-1
// edge and the level-2 edge to the inviter's own inviter. Join order of
// these edges is what fixes the commission rank later.
func (s *UserService) CreateUser(username string, inviterId sql.NullInt64) (*models.User, error) {
	user := s.userRepo.FindByUsername(username)
	if user != nil {
		return nil, fmt.Errorf("%w: user %q already exists", models.ErrValidation, username)
	}

	user = &models.User{
		Username:  username,
		CreatedAt: time.Now(),
		InviterId: inviterId,
	}

	if err := s.userRepo.Save(user); err != nil {
		return nil, err
	}

	if inviterId.Valid {
		if err := s.linkReferral(user, uint64(inviterId.Int64)); err != nil {
			log.Error("Failed to link referral edges: ", err)
			return nil, err
		}
	}

	return user, nil
}

func (s *UserService) linkReferral(user *models.User, inviterId uint64) error {
	inviter := s.userRepo.FindById(inviterId)
	if inviter == nil {
		return fmt.Errorf("%w: inviter %d", models.ErrNotFound, inviterId)
	}

	now := time.Now()
	edge := &models.ReferralEdge{
		InviterId: inviterId,
		InviteeId: uint64(user.Id.Int64),
		Level:     1,
		CreatedAt: now,
	}
	if err := s.referralRepo.SaveEdge(edge); err != nil {
		return err
	}

	// The tree is two levels deep, nothing propagates further up.
	if inviter.InviterId.Valid {
		edge2 := &models.ReferralEdge{
			InviterId: uint64(inviter.InviterId.Int64),
			InviteeId: uint64(user.Id.Int64),
			Level:     2,
			CreatedAt: now,
		}
		if err := s.referralRepo.SaveEdge(edge2); err != nil {
			return err
		}
	}

	return nil
}

// ReferralCode returns the code the user shares in invite links.
func (s *UserService) ReferralCode(userId uint64) (string, error) {
	if _, err := s.GetById(userId); err != nil {
		return "", err
	}
	return util.EncodeReferralCode(userId), nil
}

// CreateUserWithCode registers a user invited through a referral code.
func (s *UserService) CreateUserWithCode(username, code string) (*models.User, error) {
	inviterId, err := util.DecodeReferralCode(code)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid referral code", models.ErrValidation)
	}
	return s.CreateUser(username, sql.NullInt64{Int64: int64(inviterId), Valid: true})
}

func (s *UserService) GetById(id uint64) (*models.User, error) {
	user := s.userRepo.FindById(id)
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, id)
	}

	return user, nil
}

func (s *UserService) GetByUsername(username string) (*models.User, error) {
	user := s.userRepo.FindByUsername(username)
	if user == nil {
		return nil, fmt.Errorf("%w: user %q", models.ErrNotFound, username)
	}
	return user, nil
}

func (s *UserService) GetByTelegramChatId(telegramId uint64) (*models.User, error) {
	user := s.userRepo.FindByTelegramChatId(telegramId)
	if user == nil {
		return nil, fmt.Errorf("%w: telegram chat %d", models.ErrNotFound, telegramId)
	}
	return user, nil
}
