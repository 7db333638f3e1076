package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pishield/pishield/internal/application"
	appanalysis "github.com/pishield/pishield/internal/application/analysis"
	apptips "github.com/pishield/pishield/internal/application/tips"
	"github.com/pishield/pishield/internal/config"
	domai "github.com/pishield/pishield/internal/domain/ai"
	"github.com/pishield/pishield/internal/domain/faults"
	"github.com/pishield/pishield/internal/domain/media"
	"github.com/pishield/pishield/internal/domain/reports"
	domtips "github.com/pishield/pishield/internal/domain/tips"
	"github.com/pishield/pishield/internal/infra/ai/gemini"
	aiopenai "github.com/pishield/pishield/internal/infra/ai/openai"
	"github.com/pishield/pishield/internal/infra/ai/vision"
	fbauth "github.com/pishield/pishield/internal/infra/auth"
	"github.com/pishield/pishield/internal/infra/db/mysql"
	"github.com/pishield/pishield/internal/infra/db/postgres"
	"github.com/pishield/pishield/internal/infra/httpserver"
	minioStore "github.com/pishield/pishield/internal/infra/storage"
	"github.com/pishield/pishield/internal/middleware"
)

func main() {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// connect row store
	var (
		db         *sql.DB
		reportRepo reports.Repository
		tipsRepo   domtips.Repository
		faultRepo  faults.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			logger.Fatal("postgres connect error", zap.Error(err))
		}
		reportRepo = postgres.NewReportRepository(db)
		tipsRepo = postgres.NewTipsRepository(db)
		faultRepo = postgres.NewFaultRepository(db)
	default:
		db, err = mysql.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			logger.Fatal("mysql connect error", zap.Error(err))
		}
		reportRepo = mysql.NewReportRepository(db)
		tipsRepo = mysql.NewTipsRepository(db)
		faultRepo = mysql.NewFaultRepository(db)
	}
	defer db.Close()

	// AI backends
	openaiClient := aiopenai.NewClient(cfg.AI.OpenAIAPIKey, cfg.AI.OpenAIModel)
	geminiClient, err := gemini.NewClient(ctx, cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel)
	if err != nil {
		logger.Fatal("gemini init error", zap.Error(err))
	}
	defer geminiClient.Close()

	var ocrClient domai.OCR
	if cfg.AI.VisionAPIKey != "" {
		ocrClient = vision.NewClient(cfg.AI.VisionAPIKey)
	}

	// token verification: real Firebase verification, or disabled when no
	// service-account file is configured
	var verifier middleware.TokenVerifier
	if cfg.Auth.FirebaseCredentials != "" {
		v, err := fbauth.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseCredentials)
		if err != nil {
			logger.Fatal("firebase init error", zap.Error(err))
		}
		verifier = v
	} else {
		logger.Warn("firebase credentials not configured, auth disabled")
	}

	// optional media archive
	var archive appanalysis.MediaStore
	if cfg.Archive.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Archive.Endpoint,
			cfg.Archive.Region,
			cfg.Archive.BucketName,
			cfg.Archive.AccessKey,
			cfg.Archive.SecretKey,
			cfg.Archive.UseSSL,
		)
		if err != nil {
			logger.Fatal("minio init error", zap.Error(err))
		}
		archive = store
	}

	analysisSvc := &appanalysis.Service{
		Reports: reportRepo,
		Faults:  faultRepo,
		Text:    openaiClient,
		Vision:  geminiClient,
		OCR:     ocrClient,
		Meta:    media.HeuristicExtractor{},
		Archive: archive,
		Clock:   application.SystemClock{},
		Log:     logger,
	}
	tipsSvc := &apptips.Service{Repo: tipsRepo}

	limiter := middleware.NewFixedWindowLimiter()
	limits := httpserver.RateLimits{
		Text:  cfg.RateLimit.Text,
		Media: cfg.RateLimit.Media,
		Video: cfg.RateLimit.Video,
	}
	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}

	handler := httpserver.NewRouter(analysisSvc, tipsSvc, verifier, limiter, limits, checkers, logger)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
