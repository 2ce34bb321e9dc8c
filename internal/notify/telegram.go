package notify

import (
	"fmt"

	"investbot/internal/config"
	"investbot/internal/services"
	"investbot/internal/util"

	"github.com/go-telegram/bot"
)

var log = config.InitLogger()

// TelegramNotifier posts approval requests to the operator chat and
// delivers user-facing notices to bound Telegram accounts. It takes no
// approval decision itself.
type TelegramNotifier struct {
	bot             *bot.Bot
	telegramService *services.TelegramService
}

func NewTelegramNotifier(b *bot.Bot, telegramService *services.TelegramService) *TelegramNotifier {
	return &TelegramNotifier{
		bot:             b,
		telegramService: telegramService,
	}
}

func (n *TelegramNotifier) RequestApproval(reference, summary string) {
	if config.OPERATOR_CHAT_ID == 0 {
		log.Warn("OPERATOR_CHAT_ID is not set, approval request not delivered: ", reference)
		return
	}
	text := fmt.Sprintf("Approval needed\n%s\nReference: <code>%s</code>", summary, reference)
	if _, err := util.SendTextMessage(n.bot, config.OPERATOR_CHAT_ID, text); err != nil {
		log.Errorf("Failed to deliver approval request %s: %v", reference, err)
	}
}

func (n *TelegramNotifier) NotifyUser(userId uint64, msg string) {
	telegram, err := n.telegramService.GetByUserId(userId)
	if err != nil {
		log.Warnf("User %d has no telegram binding, notification dropped", userId)
		return
	}
	if _, err := util.SendTextMessage(n.bot, int64(telegram.TelegramId), msg); err != nil {
		log.Errorf("Failed to notify user %d: %v", userId, err)
	}
}
