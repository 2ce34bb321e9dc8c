package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"investbot/internal/config"
	"investbot/internal/database"
	"investbot/internal/models"
	"investbot/internal/notify"
	"investbot/internal/repositories"
	"investbot/internal/schedulers"
	"investbot/internal/services"
	"investbot/internal/tgbot"
	"investbot/internal/util"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/robfig/cron/v3"
)

var log = config.InitLogger()

func main() {
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to init config: %v", err)
	}
	log.Infoln("Config initialized")

	psql := connectPostgres()
	defer func() {
		if err := psql.Close(); err != nil {
			log.Error("Failed to close database: ", err)
		}
	}()

	if err := database.RunMigrations(psql); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	if _, err := database.InitRedisCli(); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	log.Infoln("Redis initialized")

	// The handler is bound after the services exist; the bot only
	// dispatches updates once Start runs.
	var tg *tgbot.TgBot
	b, err := bot.New(os.Getenv("TELEGRAM_BOT_TOKEN"),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
			tg.Handle(ctx, b, update)
		}))
	if err != nil {
		log.Fatalf("Failed to create telegram bot: %v", err)
	}

	userRepo := repositories.NewUserRepository(psql.Db)
	planRepo := repositories.NewPlanRepository(psql.Db)
	positionRepo := repositories.NewPositionRepository(psql.Db)
	withdrawalRepo := repositories.NewWithdrawalRepository(psql.Db)
	upgradeRepo := repositories.NewUpgradeRepository(psql.Db)
	referralRepo := repositories.NewReferralRepository(psql.Db)
	operationRepo := repositories.NewOperationRepository(psql.Db)
	telegramRepo := repositories.NewTelegramRepository(psql.Db)

	userService := services.NewUserService(userRepo, referralRepo)
	planService := services.NewPlanService(planRepo)
	operationService := services.NewOperationService(operationRepo)
	telegramService := services.NewTelegramService(telegramRepo, userService)

	notifier := notify.NewTelegramNotifier(b, telegramService)

	referralService := services.NewReferralService(referralRepo, operationService, notifier)
	positionService := services.NewPositionService(positionRepo, planService, userService, referralService, operationService)
	withdrawalService := services.NewWithdrawalService(withdrawalRepo, positionService, operationService, notifier)
	upgradeService := services.NewUpgradeService(upgradeRepo, positionService, planService, operationService, referralService, notifier)
	bonusService := services.NewBonusService(referralRepo, positionService, operationService, notifier)

	tg = tgbot.NewTgBot(userService, telegramService, planService, positionService,
		withdrawalService, upgradeService, referralService, bonusService, operationService)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	notifications := make(chan *models.NotificationPosition, 16)
	go deliverNotifications(ctx, b, telegramService, notifications)

	c := cron.New()
	if _, err := c.AddFunc("@every 5m", schedulers.ExpireUnpaidPositions(positionService, notifications)); err != nil {
		log.Fatalf("Failed to schedule pending payment sweep: %v", err)
	}
	if _, err := c.AddFunc("@every 1h", schedulers.NotifyMaturedPositions(positionService, notifications)); err != nil {
		log.Fatalf("Failed to schedule maturity sweep: %v", err)
	}
	c.Start()
	defer c.Stop()

	log.Infoln("Telegram bot starting")
	b.Start(ctx)
}

func connectPostgres() *database.Postgres {
	psqlConfig := config.LoadPostgresConfig()
	psql, err := database.NewPostgres(psqlConfig)
	if err != nil {
		log.Fatal("Failed to connect to database")
	}

	if err := psql.Ping(); err != nil {
		log.Fatal("Failed to ping database")
	}

	log.Infoln("Database initialized")
	return psql
}

func deliverNotifications(ctx context.Context, b *bot.Bot, telegramService *services.TelegramService, ch chan *models.NotificationPosition) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-ch:
			telegram, err := telegramService.GetByUserId(n.Position.UserId)
			if err != nil {
				log.Warnf("User %d has no telegram binding, notification dropped", n.Position.UserId)
				continue
			}
			if _, err := util.SendTextMessage(b, int64(telegram.TelegramId), n.Msg); err != nil {
				log.Error("Failed to deliver notification: ", err)
			}
		}
	}
}
