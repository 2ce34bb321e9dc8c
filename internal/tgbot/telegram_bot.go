package tgbot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"investbot/internal/config"
	appModels "investbot/internal/models"
	"investbot/internal/services"
	"investbot/internal/util"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
)

var log = config.InitLogger()

type TgBot struct {
	us  *services.UserService
	ts  *services.TelegramService
	pls *services.PlanService
	ps  *services.PositionService
	ws  *services.WithdrawalService
	ups *services.UpgradeService
	rs  *services.ReferralService
	bs  *services.BonusService
	opS *services.OperationService
}

func NewTgBot(us *services.UserService, ts *services.TelegramService,
	pls *services.PlanService, ps *services.PositionService,
	ws *services.WithdrawalService, ups *services.UpgradeService,
	rs *services.ReferralService, bs *services.BonusService,
	opS *services.OperationService) *TgBot {
	return &TgBot{
		us:  us,
		ts:  ts,
		pls: pls,
		ps:  ps,
		ws:  ws,
		ups: ups,
		rs:  rs,
		bs:  bs,
		opS: opS,
	}
}

func (t *TgBot) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}

	msg := update.Message
	if msg.Chat.Type != models.ChatTypePrivate {
		return
	}

	args := strings.Fields(msg.Text)
	if len(args) == 0 || !strings.HasPrefix(args[0], "/") {
		return
	}

	if msg.Chat.ID == config.OPERATOR_CHAT_ID && t.handleOperator(b, msg, args) {
		return
	}

	switch args[0] {
	case "/start":
		t.start(b, msg, args)
	case "/plans":
		t.plans(b, msg)
	case "/invest":
		t.invest(b, msg, args)
	case "/positions":
		t.positions(b, msg)
	case "/withdraw":
		t.withdraw(b, msg, args)
	case "/upgrade_amount":
		t.upgradeAmount(b, msg, args)
	case "/upgrade_duration":
		t.upgradeDuration(b, msg, args)
	case "/referral":
		t.referral(b, msg)
	case "/bonus_withdraw":
		t.bonusWithdraw(b, msg, args)
	case "/bonus_reinvest":
		t.bonusReinvest(b, msg, args)
	case "/history":
		t.history(b, msg)
	default:
		t.reply(b, msg, "Unknown command. Available: /plans /invest /positions /withdraw /upgrade_amount /upgrade_duration /referral /bonus_withdraw /bonus_reinvest /history")
	}
}

// handleOperator reports whether the message was consumed as an
// operator command.
func (t *TgBot) handleOperator(b *bot.Bot, msg *models.Message, args []string) bool {
	switch args[0] {
	case "/confirm":
		id, ok := t.parseId(b, msg, args, 1)
		if !ok {
			return true
		}
		position, err := t.ps.ConfirmPayment(id)
		if err != nil {
			t.replyErr(b, msg, err)
			return true
		}
		t.reply(b, msg, fmt.Sprintf("Position #%d is now %s.", position.Id.Int64, position.State))
		return true

	case "/approve_withdrawal":
		id, ok := t.parseId(b, msg, args, 1)
		if !ok {
			return true
		}
		req, err := t.ws.ApproveRequest(id)
		if err != nil {
			t.replyErr(b, msg, err)
			return true
		}
		t.reply(b, msg, fmt.Sprintf("Withdrawal %s approved, amount %s.", req.Reference, req.Amount.Round(2)))
		return true

	case "/reject_withdrawal":
		id, ok := t.parseId(b, msg, args, 1)
		if !ok {
			return true
		}
		reason := strings.Join(args[2:], " ")
		req, err := t.ws.RejectRequest(id, reason)
		if err != nil {
			t.replyErr(b, msg, err)
			return true
		}
		t.reply(b, msg, fmt.Sprintf("Withdrawal %s rejected.", req.Reference))
		return true

	case "/approve_upgrade":
		id, ok := t.parseId(b, msg, args, 1)
		if !ok {
			return true
		}
		req, err := t.ups.ApproveUpgrade(id)
		if err != nil {
			t.replyErr(b, msg, err)
			return true
		}
		t.reply(b, msg, fmt.Sprintf("Upgrade %s approved.", req.Reference))
		return true

	case "/reject_upgrade":
		id, ok := t.parseId(b, msg, args, 1)
		if !ok {
			return true
		}
		req, err := t.ups.RejectUpgrade(id)
		if err != nil {
			t.replyErr(b, msg, err)
			return true
		}
		t.reply(b, msg, fmt.Sprintf("Upgrade %s rejected.", req.Reference))
		return true

	case "/add_plan":
		if len(args) < 5 {
			t.reply(b, msg, "Usage: /add_plan <tier> <base rate> <min amount> <max amount>")
			return true
		}
		baseRate, err1 := decimal.NewFromString(args[2])
		minAmount, err2 := decimal.NewFromString(args[3])
		maxAmount, err3 := decimal.NewFromString(args[4])
		if err1 != nil || err2 != nil || err3 != nil {
			t.reply(b, msg, "Rate and amounts must be numbers.")
			return true
		}
		plan, err := t.pls.CreatePlan(&appModels.Plan{
			Tier:      args[1],
			BaseRate:  baseRate,
			MinAmount: minAmount,
			MaxAmount: maxAmount,
			IsActive:  true,
		})
		if err != nil {
			t.replyErr(b, msg, err)
			return true
		}
		t.reply(b, msg, fmt.Sprintf("Plan %s created at %s%% monthly.", plan.Tier, plan.BaseRate))
		return true
	}

	return false
}

func (t *TgBot) start(b *bot.Bot, msg *models.Message, args []string) {
	username := msg.From.Username
	if username == "" {
		username = strconv.FormatInt(msg.From.ID, 10)
	}

	user, err := t.us.GetByTelegramChatId(uint64(msg.From.ID))
	if err == nil {
		t.reply(b, msg, fmt.Sprintf("Welcome back, %s!", user.Username))
		return
	}

	if len(args) > 1 {
		user, err = t.us.CreateUserWithCode(username, args[1])
	} else {
		user, err = t.us.CreateUser(username, sql.NullInt64{})
	}
	if err != nil {
		t.replyErr(b, msg, err)
		return
	}

	if _, err := t.ts.CreateTelegram(uint64(user.Id.Int64), username, uint64(msg.From.ID)); err != nil {
		log.Error("Failed to bind telegram account: ", err)
	}

	t.reply(b, msg, "Welcome! Use /plans to see the available tiers and /invest to open a position.")
}

func (t *TgBot) plans(b *bot.Bot, msg *models.Message) {
	plans := t.pls.AllActive()
	if plans == nil || len(*plans) == 0 {
		t.reply(b, msg, "No plans are available right now.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Available plans:\n")
	for _, p := range *plans {
		sb.WriteString(fmt.Sprintf("%s — %s%% monthly, %s..%s\n",
			p.Tier, p.BaseRate, p.MinAmount, p.MaxAmount))
	}
	t.reply(b, msg, sb.String())
}

func (t *TgBot) invest(b *bot.Bot, msg *models.Message, args []string) {
	if len(args) < 5 {
		t.reply(b, msg, "Usage: /invest <tier> <amount> <months> <source address>")
		return
	}

	user, ok := t.currentUser(b, msg)
	if !ok {
		return
	}

	amount, err := decimal.NewFromString(args[2])
	if err != nil {
		t.reply(b, msg, "Amount must be a number.")
		return
	}
	months, err := strconv.Atoi(args[3])
	if err != nil {
		t.reply(b, msg, "Months must be a number.")
		return
	}

	created, err := t.ps.CreatePosition(uint64(user.Id.Int64), args[1], amount, months, args[4])
	if err != nil {
		t.replyErr(b, msg, err)
		return
	}

	t.reply(b, msg, fmt.Sprintf(
		"Position #%d created. Transfer %s to <code>%s</code> within %d hours to activate it.",
		created.PositionId, amount, created.PaymentAddress, config.PENDING_PAYMENT_TTL_HOURS))
}

func (t *TgBot) positions(b *bot.Bot, msg *models.Message) {
	user, ok := t.currentUser(b, msg)
	if !ok {
		return
	}

	positions := t.ps.GetUserPositions(uint64(user.Id.Int64))
	if positions == nil || len(*positions) == 0 {
		t.reply(b, msg, "You have no positions yet.")
		return
	}

	now := time.Now()
	var sb strings.Builder
	for _, p := range *positions {
		view, err := t.ps.GetPositionView(p.Id.Int64, now)
		if err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("#%d %s %s, %s at %s%%: earned %s of %s (%s available)\n",
			view.PositionId, view.State, view.Tier, view.Principal, view.EffectiveRate,
			view.CurrentReturn, view.ExpectedReturn, view.AvailableProfit))
	}
	t.reply(b, msg, sb.String())
}

func (t *TgBot) withdraw(b *bot.Bot, msg *models.Message, args []string) {
	if len(args) < 3 {
		t.reply(b, msg, "Usage: /withdraw <position id> <FULL|EARLY|PROFIT|BONUS> [amount] [destination]")
		return
	}

	if _, ok := t.currentUser(b, msg); !ok {
		return
	}
	positionId, ok := t.parseId(b, msg, args, 1)
	if !ok {
		return
	}

	flavor := strings.ToUpper(args[2])
	kind := ""
	switch flavor {
	case appModels.PartialKindProfit, appModels.PartialKindBonus:
		kind = flavor
		flavor = appModels.WithdrawalPartial
	}

	amount := decimal.Zero
	destination := ""
	if len(args) > 3 {
		if a, err := decimal.NewFromString(args[3]); err == nil {
			amount = a
			if len(args) > 4 {
				destination = args[4]
			}
		} else {
			destination = args[3]
		}
	}

	req, err := t.ws.RequestWithdrawal(positionId, flavor, kind, amount, destination)
	if err != nil {
		t.replyErr(b, msg, err)
		return
	}

	t.reply(b, msg, fmt.Sprintf("Withdrawal request %s for %s is awaiting approval.",
		req.Reference, req.Amount.Round(2)))
}

func (t *TgBot) upgradeAmount(b *bot.Bot, msg *models.Message, args []string) {
	if len(args) < 5 {
		t.reply(b, msg, "Usage: /upgrade_amount <position id> <new tier> <additional amount> <source address>")
		return
	}

	if _, ok := t.currentUser(b, msg); !ok {
		return
	}
	positionId, ok := t.parseId(b, msg, args, 1)
	if !ok {
		return
	}

	amount, err := decimal.NewFromString(args[3])
	if err != nil {
		t.reply(b, msg, "Amount must be a number.")
		return
	}

	req, err := t.ups.RequestAmountUpgrade(positionId, args[2], amount, args[4])
	if err != nil {
		t.replyErr(b, msg, err)
		return
	}

	t.reply(b, msg, fmt.Sprintf("Upgrade request %s is awaiting approval.", req.Reference))
}

func (t *TgBot) upgradeDuration(b *bot.Bot, msg *models.Message, args []string) {
	if len(args) < 3 {
		t.reply(b, msg, "Usage: /upgrade_duration <position id> <new months>")
		return
	}

	if _, ok := t.currentUser(b, msg); !ok {
		return
	}
	positionId, ok := t.parseId(b, msg, args, 1)
	if !ok {
		return
	}

	months, err := strconv.Atoi(args[2])
	if err != nil {
		t.reply(b, msg, "Months must be a number.")
		return
	}

	req, err := t.ups.RequestDurationUpgrade(positionId, months)
	if err != nil {
		t.replyErr(b, msg, err)
		return
	}

	t.reply(b, msg, fmt.Sprintf("Upgrade request %s is awaiting approval.", req.Reference))
}

func (t *TgBot) referral(b *bot.Bot, msg *models.Message) {
	user, ok := t.currentUser(b, msg)
	if !ok {
		return
	}

	code, err := t.us.ReferralCode(uint64(user.Id.Int64))
	if err != nil {
		t.replyErr(b, msg, err)
		return
	}

	summary := t.rs.GetSummary(uint64(user.Id.Int64))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Your referral code: <code>%s</code>\n", code))
	sb.WriteString(fmt.Sprintf("Total earned: %s\n", summary.TotalEarnings.Round(2)))
	for _, e := range summary.Level1 {
		sb.WriteString(fmt.Sprintf("Invitee %d (rank %d, %s%%): %s\n",
			e.InviteeId, e.Rank, e.Rate, e.Earned.Round(2)))
	}
	for _, e := range summary.Level2 {
		sb.WriteString(fmt.Sprintf("Level-2 invitee %d (%s%%): %s\n",
			e.InviteeId, e.Rate, e.Earned.Round(2)))
	}
	t.reply(b, msg, sb.String())
}

func (t *TgBot) bonusWithdraw(b *bot.Bot, msg *models.Message, args []string) {
	user, ok := t.currentUser(b, msg)
	if !ok {
		return
	}

	var payout *appModels.ReferralPayout
	var err error
	if len(args) > 1 {
		if earningId, convErr := strconv.ParseInt(args[1], 10, 64); convErr == nil {
			destination := ""
			if len(args) > 2 {
				destination = args[2]
			}
			payout, err = t.bs.WithdrawSingle(uint64(user.Id.Int64), earningId, destination)
		} else {
			payout, err = t.bs.WithdrawBulk(uint64(user.Id.Int64), args[1])
		}
	} else {
		payout, err = t.bs.WithdrawBulk(uint64(user.Id.Int64), "")
	}
	if err != nil {
		t.replyErr(b, msg, err)
		return
	}

	t.reply(b, msg, fmt.Sprintf("Commission payout %s for %s was submitted.",
		payout.Reference, payout.Amount.Round(2)))
}

func (t *TgBot) bonusReinvest(b *bot.Bot, msg *models.Message, args []string) {
	if len(args) < 2 {
		t.reply(b, msg, "Usage: /bonus_reinvest <position id>")
		return
	}

	user, ok := t.currentUser(b, msg)
	if !ok {
		return
	}
	positionId, ok := t.parseId(b, msg, args, 1)
	if !ok {
		return
	}

	payout, err := t.bs.Reinvest(uint64(user.Id.Int64), positionId)
	if err != nil {
		t.replyErr(b, msg, err)
		return
	}

	t.reply(b, msg, fmt.Sprintf("Commission of %s was reinvested into position #%d.",
		payout.Amount.Round(2), positionId))
}

func (t *TgBot) history(b *bot.Bot, msg *models.Message) {
	user, ok := t.currentUser(b, msg)
	if !ok {
		return
	}

	operations, err := t.opS.GetByUserIdLimit(uint64(user.Id.Int64), 0, 10)
	if err != nil || len(operations) == 0 {
		t.reply(b, msg, "No operations yet.")
		return
	}

	var sb strings.Builder
	for _, op := range operations {
		sb.WriteString(fmt.Sprintf("%s %s: %s\n",
			op.CreatedAt.Format("02.01.2006 15:04"), op.Name, op.Description))
	}
	t.reply(b, msg, sb.String())
}

func (t *TgBot) currentUser(b *bot.Bot, msg *models.Message) (*appModels.User, bool) {
	user, err := t.us.GetByTelegramChatId(uint64(msg.From.ID))
	if err != nil {
		t.reply(b, msg, "You are not registered yet, send /start first.")
		return nil, false
	}
	return user, true
}

func (t *TgBot) parseId(b *bot.Bot, msg *models.Message, args []string, pos int) (int64, bool) {
	if len(args) <= pos {
		t.reply(b, msg, "An id argument is required.")
		return 0, false
	}
	id, err := strconv.ParseInt(args[pos], 10, 64)
	if err != nil {
		t.reply(b, msg, "The id must be a number.")
		return 0, false
	}
	return id, true
}

func (t *TgBot) reply(b *bot.Bot, msg *models.Message, text string) {
	if _, err := util.SendTextMessage(b, msg.Chat.ID, text); err != nil {
		log.Error("Failed to reply: ", err)
	}
}

func (t *TgBot) replyErr(b *bot.Bot, msg *models.Message, err error) {
	switch {
	case errors.Is(err, appModels.ErrNotFound):
		t.reply(b, msg, "Not found: "+err.Error())
	case errors.Is(err, appModels.ErrValidation),
		errors.Is(err, appModels.ErrInvalidState),
		errors.Is(err, appModels.ErrConflictingRequest),
		errors.Is(err, appModels.ErrBonusNotEligible),
		errors.Is(err, appModels.ErrMissingTierData):
		t.reply(b, msg, err.Error())
	default:
		log.Error(err)
		t.reply(b, msg, "Something went wrong, try again later.")
	}
}
