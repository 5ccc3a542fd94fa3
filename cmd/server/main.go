package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ismail-169/sentinel-finance-sub000/internal/config"
	"github.com/ismail-169/sentinel-finance-sub000/internal/database"
	"github.com/ismail-169/sentinel-finance-sub000/internal/handler"
	"github.com/ismail-169/sentinel-finance-sub000/internal/identity"
	"github.com/ismail-169/sentinel-finance-sub000/internal/jobs"
	"github.com/ismail-169/sentinel-finance-sub000/internal/ledger"
	"github.com/ismail-169/sentinel-finance-sub000/internal/middleware"
	"github.com/ismail-169/sentinel-finance-sub000/internal/redis"
	"github.com/ismail-169/sentinel-finance-sub000/internal/repository"
	"github.com/ismail-169/sentinel-finance-sub000/internal/service"
	"github.com/ismail-169/sentinel-finance-sub000/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := db.Init(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to initialize schema")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	vaultRepo := repository.NewVaultRepository(db.DB)
	paymentRepo := repository.NewPaymentRepository(db.DB)
	vendorRepo := repository.NewVendorRepository(db.DB)
	agentRepo := repository.NewAgentWalletRepository(db.DB)
	savingsRepo := repository.NewSavingsRepository(db.DB)
	scheduleRepo := repository.NewScheduleRepository(db.DB)
	executionRepo := repository.NewExecutionLogRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	keystore := identity.NewKeystore()

	var backend ledger.Ledger
	switch cfg.LedgerBackend {
	case "erc20":
		backend, err = ledger.NewERC20Ledger(cfg.RPCURL, cfg.TokenAddress, keystore)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to rpc")
		}
		log.Info().Str("token", cfg.TokenAddress).Msg("erc20 ledger connected")
	default:
		backend = ledger.NewMemoryLedger()
		log.Info().Msg("using in-memory ledger")
	}
	tokenLedger := ledger.NewCachedLedger(backend, redisClient, cfg.BalanceTTL())

	notificationService := service.NewNotificationService(notificationRepo, broker)

	// One locker for every service that mutates vault state, so writes
	// against the same vault serialize no matter which surface they enter
	// through.
	vaultLocker := service.NewAddressLocker()

	vaultService := service.NewVaultService(db, vaultRepo, paymentRepo, vendorRepo, tokenLedger, notificationService, vaultLocker)
	savingsService := service.NewSavingsService(db, savingsRepo, vaultRepo, tokenLedger, notificationService, cfg.SavingsAddress, vaultLocker)
	agentService := service.NewAgentService(
		agentRepo, vaultRepo, vendorRepo, executionRepo,
		savingsService, tokenLedger, keystore, notificationService, vaultLocker,
	)
	scheduleService := service.NewScheduleService(scheduleRepo, savingsRepo)
	intentService := service.NewIntentService(vaultService, agentService, savingsService, scheduleService)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	authHandler := handler.NewAuthHandler(cfg)
	vaultHandler := handler.NewVaultHandler(vaultService)
	paymentHandler := handler.NewPaymentHandler(vaultService)
	vendorHandler := handler.NewVendorHandler(vaultService)
	agentHandler := handler.NewAgentHandler(agentService)
	savingsHandler := handler.NewSavingsHandler(savingsService, agentService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)
	intentHandler := handler.NewIntentHandler(intentService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	eventsHandler := handler.NewEventsHandler(broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1/auth", func(r chi.Router) {
		r.Mount("/", authHandler.Routes())
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)

		r.Mount("/vault", vaultHandler.Routes())
		r.Mount("/payments", paymentHandler.Routes())
		r.Mount("/vendors", vendorHandler.Routes())
		r.Mount("/agent", agentHandler.Routes())
		r.Mount("/savings", savingsHandler.Routes())
		r.Mount("/schedules", scheduleHandler.Routes())
		r.Mount("/intents", intentHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
		r.Get("/events", eventsHandler.ServeHTTP)
	})

	schedulerJob := jobs.NewSchedulerJob(scheduleRepo, agentService, notificationService, config.SchedulerInterval)
	schedulerJob.Start()
	defer schedulerJob.Stop()

	monitorJob := jobs.NewMonitorJob(vaultRepo, savingsService, notificationService, redisClient, config.MonitorInterval)
	monitorJob.Start()
	defer monitorJob.Stop()

	retentionJob := jobs.NewRetentionJob(executionRepo, notificationRepo, config.RetentionJobInterval)
	retentionJob.Start()
	defer retentionJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0, // SSE connections stay open indefinitely
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
