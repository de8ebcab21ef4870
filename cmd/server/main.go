package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpadapter "github.com/certigo/certigo/internal/adapter/http"
	"github.com/certigo/certigo/internal/adapter/notification"
	"github.com/certigo/certigo/internal/adapter/payment"
	"github.com/certigo/certigo/internal/adapter/persistence"
	"github.com/certigo/certigo/internal/adapter/redisstore"
	"github.com/certigo/certigo/internal/adapter/storage"
	"github.com/certigo/certigo/internal/config"
	"github.com/certigo/certigo/internal/logger"
	"github.com/certigo/certigo/internal/metrics"
	"github.com/certigo/certigo/internal/service/jwtauth"
	"github.com/certigo/certigo/internal/service/password"
	"github.com/certigo/certigo/internal/usecase"
)

const version = "1.0.0"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("certigo " + version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.WithField("env", cfg.Environment).Info("application starting")

	// Database
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.WithError(err).Fatal("failed to ping database")
	}
	log.Info("database connection established")

	// Redis-backed token store
	tokens, err := redisstore.NewTokenStore(cfg.RedisURL, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize token store")
	}

	// Object storage
	files, err := storage.New(storage.Options{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize object storage")
	}

	// Repositories
	requests := persistence.NewRequestRepository(db)
	history := persistence.NewHistoryRepository(db)
	jurisdictions := persistence.NewJurisdictionRepository(db)
	operators := persistence.NewOperatorRepository(db)
	sequence := persistence.NewTramiteSequence(db)

	// Services
	gateway := payment.New(payment.Options{
		Mode:         cfg.PaymentMode,
		HMACSecret:   cfg.PaymentHMACSecret,
		MerchantGUID: cfg.PaymentMerchantGUID,
		APIURL:       cfg.PaymentAPIURL,
	}, log)
	mailer := notification.New(notification.Options{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	}, log)
	jwtService := jwtauth.New(cfg.JWTSecret, cfg.JWTTTL)
	passwords := password.NewBcryptService(cfg.BcryptCost)
	m := metrics.New()

	// Usecases
	lifecycle := usecase.NewLifecycle(requests, history, jurisdictions, sequence, tokens, files, gateway, mailer, m, log, usecase.LifecycleConfig{
		TramitePrefix:         cfg.TramitePrefix,
		FeeAmount:             cfg.FeeAmount,
		BaseURL:               cfg.BaseURL,
		PublishedValidityDays: cfg.PublishedValidityDays,
	})
	auth := usecase.NewAuth(operators, jurisdictions, passwords, jwtService, log)
	sweeper := usecase.NewSweeper(lifecycle, requests, files, m, log, cfg.PendingTimeoutDays, cfg.PublishedValidityDays)

	// HTTP server
	server := httpadapter.NewServer(
		httpadapter.ServerConfig{
			Host:           cfg.ServerHost,
			Port:           cfg.ServerPort,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxUploadBytes: cfg.MaxUploadBytes,
		},
		lifecycle,
		auth,
		jurisdictions,
		gateway,
		httpadapter.NewAuthMiddleware(jwtService),
		httpadapter.NewCitizenMiddleware(tokens),
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweeper.Start(ctx, cfg.SweepInterval)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("application stopped")
}
