package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gym-membership-billing/internal/config"
	"gym-membership-billing/internal/domain/ports/repository"
	"gym-membership-billing/internal/infra/api"
	pg "gym-membership-billing/internal/infra/db/postgres"
	"gym-membership-billing/internal/infra/logging"
	"gym-membership-billing/internal/infra/metrics"
	"gym-membership-billing/internal/infra/payment/click"
	red "gym-membership-billing/internal/infra/redis"
	"gym-membership-billing/internal/infra/sched"
	"gym-membership-billing/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted fields)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, cfg.Scheduler.PoolStatsInterval, logger)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	eventRepo := pg.NewPaymentEventRepo(pool)
	membershipRepo := pg.NewMembershipRepo(pool)
	// Tariffs are read uncached: the amount check needs the current price.
	tariffRepo := pg.NewTariffRepo(pool)
	var userRepo repository.UserRepository = pg.NewUserRepo(pool)

	// ---- Redis (optional user lookup cache) ----
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		userRepo = pg.NewUserRepoCacheDecorator(userRepo, redisClient, cfg.Redis.TTL, logger)
		logger.Info().Str("addr", cfg.Redis.URL).Msg("redis user cache enabled")
	}

	// ---- Use cases ----
	ledger := usecase.NewPaymentLedger(paymentRepo, eventRepo, txManager, logger)
	activation := usecase.NewMembershipActivation(membershipRepo, logger, time.Now)
	verifier := click.NewVerifier(cfg.Click.SecretKey)
	clickUC := usecase.NewClickUseCase(
		ledger,
		activation,
		userRepo,
		tariffRepo,
		verifier,
		txManager,
		usecase.NewPrepareIDSource(time.Now),
		logger,
	)

	// ---- Expiry worker ----
	worker := sched.NewMembershipExpiryWorker(cfg.Scheduler.MembershipExpiryInterval, activation, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- HTTP callback server ----
	srv := api.NewServer(clickUC, cfg.HTTP, cfg.Click.ServiceID, logger)
	handler := srv.Routes(
		api.TraceID(),
		api.RequestLog(logger),
		api.Recover(logger),
		api.RateLimit(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, logger),
		api.Timeout(cfg.HTTP.RequestTimeout),
	)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("prepare", cfg.HTTP.PreparePath).
			Str("complete", cfg.HTTP.CompletePath).
			Int64("service_id", cfg.Click.ServiceID).
			Int64("merchant_id", cfg.Click.MerchantID).
			Msg("click callback server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
		os.Exit(1)
	}
}
