package main

import (
	"context"
	"errors"
	"mend/internal/cache"
	"mend/internal/client"
	"mend/internal/config"
	"mend/internal/logger"
	"mend/internal/repository"
	"mend/internal/server"
	"mend/internal/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Log, os.Stdout)

	db, err := client.InitDB(cfg.Database)
	if err != nil {
		log.Error("db connect failed", "driver", cfg.Database.Driver, "err", err)
		os.Exit(1)
	}

	processed := cache.NewNoopProcessedEvents()
	if cfg.Redis.URL != "" {
		rdb, err := client.InitRedisClient(context.Background(), cfg.Redis.URL)
		if err != nil {
			log.Error("redis connect failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		processed = cache.NewRedisProcessedEvents(rdb, cfg.Redis.ProcessedTTL)
	}

	stripeClient := client.NewStripeClient(&cfg.Stripe)
	mailer := client.NewMailer(cfg, log)

	var generator client.TextGenerator
	if cfg.Groq.APIKey != "" {
		generator = client.NewGroqClient(&cfg.Groq)
	} else {
		log.Warn("GROQ_API_KEY not set, recovery emails use the template message")
	}

	recoveryRepo := repository.NewRecoveryRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	accountLinkRepo := repository.NewAccountLinkRepository(db)

	accountService := service.NewAccountService(
		db,
		accountLinkRepo,
		recoveryRepo,
		commissionRepo,
		webhookEventRepo,
		log,
	)
	commissionService := service.NewCommissionService(commissionRepo)
	webhookService := service.NewWebhookService(
		service.NewStripeVerifier(&cfg.Stripe),
		service.NewEventLogger(webhookEventRepo, log),
		service.NewCustomerResolver(stripeClient, cfg.Stripe.LookupTimeout, log),
		service.NewMessageComposer(generator, cfg.Groq.Timeout, log),
		service.NewRecoveryNotifier(mailer, cfg.Email.Subject, cfg.Email.Timeout, log),
		accountService,
		recoveryRepo,
		commissionRepo,
		processed,
		log,
	)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(cfg, log, webhookService, commissionService, accountService)

	log.Info("starting HTTP server", "addr", serverAddr, "environment", cfg.Environment.Name)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "err", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "err", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
