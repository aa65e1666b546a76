package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"telegram-club-bot/internal/application"
	"telegram-club-bot/internal/config"
	pg "telegram-club-bot/internal/infra/db/postgres"
	httpapi "telegram-club-bot/internal/infra/http"
	"telegram-club-bot/internal/infra/logging"
	red "telegram-club-bot/internal/infra/redis"
	"telegram-club-bot/internal/infra/sched"
	tele "telegram-club-bot/internal/infra/telegram"
	"telegram-club-bot/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, debug level)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	stateRepo := red.NewStateRepo(redisClient, cfg.Redis.StateTTL)
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	refRepo := pg.NewReferralRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- Telegram (facade attached below) ----
	bot, err := tele.NewBot(&cfg.Bot, rateLimiter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram")
	}

	// ---- Use cases ----
	pricingUC := usecase.NewPricingUseCase(cfg.Catalog())
	subUC := usecase.NewSubscriptionUseCase(subRepo, txm, logger)
	payUC := usecase.NewPaymentUseCase(payRepo, stateRepo, pricingUC, subUC, cfg.Payment, logger)
	confirmUC := usecase.NewConfirmationUseCase(stateRepo, payRepo, userRepo, bot, locker, cfg.Bot.OperatorIDs, logger)
	enforcerUC := usecase.NewEnforcerUseCase(subUC, userRepo, bot, logger)
	userUC := usecase.NewUserUseCase(userRepo, logger)
	referralUC := usecase.NewReferralUseCase(refRepo, userRepo, cfg.Bot.Username, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, subUC, refRepo, payUC, logger)

	// ---- Facade ----
	facade := application.NewBotFacade(
		userUC, pricingUC, payUC, confirmUC, subUC, enforcerUC, referralUC, statsUC,
		bot, cfg.Bot.OperatorIDs, payableAssets(cfg.Payment.Crypto), logger,
	)
	bot.AttachFacade(facade)

	// ---- Scheduled jobs ----
	jobs := sched.NewJobs(subUC, userRepo, enforcerUC, referralUC, statsUC, bot, cfg.Bot.OperatorIDs, cfg.Referral, logger)
	// Catch subscriptions that lapsed while the process was down.
	if err := jobs.EnforceExpiry(ctx); err != nil {
		logger.Error().Err(err).Msg("startup expiry sweep")
	}
	scheduler := sched.New(logger)
	jobs.Register(scheduler, cfg.Scheduler)
	go scheduler.Start(ctx)

	// ---- HTTP (health + metrics) ----
	srv := httpapi.NewServer(&cfg.HTTP, pool, redisClient, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Telegram polling ----
	go func() {
		if err := bot.StartPolling(ctx); err != nil {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

// payableAssets returns the assets that have both a wallet and a rate,
// sorted for stable keyboard order.
func payableAssets(c config.CryptoConfig) []string {
	assets := make([]string, 0, len(c.Wallets))
	for asset := range c.Wallets {
		if _, ok := c.Rates[asset]; ok {
			assets = append(assets, asset)
		}
	}
	sort.Strings(assets)
	return assets
}
