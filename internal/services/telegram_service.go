package services

import (
	"fmt"

	"investbot/internal/models"
	"investbot/internal/repositories"
)

type TelegramService struct {
	telegramRepo *repositories.TelegramRepository
	userService  *UserService
}

func NewTelegramService(tgRepo *repositories.TelegramRepository, userServ *UserService) *TelegramService {
	return &TelegramService{
		telegramRepo: tgRepo,
		userService:  userServ,
	}
}

func (s *TelegramService) CreateTelegram(userId uint64, tgUsername string, tgId uint64) (*models.Telegram, error) {
	user, err := s.userService.GetById(userId)
	if user == nil {
		return nil, err
	}

	tg := &models.Telegram{
		UserId:     userId,
		Username:   tgUsername,
		TelegramId: tgId,
	}

	if err := s.telegramRepo.Save(tg); err != nil {
		return nil, err
	}
	return tg, nil
}

func (s *TelegramService) GetByUserId(userId uint64) (*models.Telegram, error) {
	telegram := s.telegramRepo.FindByUserId(userId)
	if telegram == nil {
		return nil, fmt.Errorf("%w: telegram binding for user %d", models.ErrNotFound, userId)
	}
	return telegram, nil
}

func (s *TelegramService) GetByTelegramId(telegramId uint64) (*models.Telegram, error) {
	telegram := s.telegramRepo.FindByTelegramId(telegramId)
	if telegram == nil {
		return nil, fmt.Errorf("%w: telegram %d", models.ErrNotFound, telegramId)
	}
	return telegram, nil
}
