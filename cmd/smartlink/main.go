package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"smartlink/internal/analyzer"
	"smartlink/internal/api"
	"smartlink/internal/auth"
	"smartlink/internal/bot"
	"smartlink/internal/config"
	"smartlink/internal/enrichment"
	"smartlink/internal/scraper"
	"smartlink/internal/service"
	"smartlink/internal/storage"
)

const gcInterval = 5 * time.Minute

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if level != logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	log.WithFields(logrus.Fields{
		"badgerdb_path": cfg.BadgerDBPath,
		"fetch_mode":    cfg.FetchMode,
		"http_addr":     cfg.HTTPAddr,
		"model":         cfg.OpenAIModel,
	}).Info("Configuration loaded successfully")
	if _, err := cfg.RequireAPIKey(); err != nil {
		log.Warn("OPENAI_API_KEY is not set, link analysis will fail until it is configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	repo, err := storage.NewBadgerRepository(cfg.BadgerDBPath, log)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		log.Info("Closing database")
		if err := repo.Close(); err != nil {
			log.WithError(err).Error("Error closing database")
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		repo.RunGC(ctx, gcInterval)
	}()

	// --- Enrichment pipeline ---
	var html scraper.HTMLSource
	switch cfg.FetchMode {
	case config.FetchModeBrowser:
		html = scraper.NewRodSource(log)
	default:
		html = scraper.NewProxySource(cfg.ProxyURL, nil, log)
	}
	fetcher := scraper.NewFetcher(html, scraper.NewOEmbedClient(cfg.OEmbedURL, nil, log), log)
	completer := analyzer.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, nil)
	orchestrator := enrichment.NewOrchestrator(fetcher, analyzer.New(completer, cfg.OpenAIModel, log), log)

	// --- Services ---
	categories := service.NewCategoryService(repo, log)
	links := service.NewLinkService(repo, orchestrator, categories, log)
	tags := service.NewTagService(repo, log)
	authService := auth.NewService(repo, categories, cfg.SessionTTL, log, auth.WithAdminEmails(cfg.AdminEmails...))

	// --- HTTP API ---
	router := api.NewRouter(api.Deps{
		Auth:       authService,
		Links:      links,
		Categories: categories,
		Tags:       tags,
		Analyzer:   orchestrator,
	}, log)
	server := api.NewServer(cfg.HTTPAddr, router, log)

	// --- Telegram bot ---
	if cfg.TelegramBotToken != "" {
		botHandler, err := bot.NewHandler(cfg.TelegramBotToken, authService, links, log)
		if err != nil {
			log.Fatalf("Failed to initialize Telegram bot handler: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			botHandler.Start(ctx)
		}()
	} else {
		log.Info("TELEGRAM_BOT_TOKEN is not set, bot disabled")
	}

	log.Info("SmartLink is running. Press Ctrl+C to exit.")
	if err := server.Run(ctx); err != nil {
		log.WithError(err).Error("HTTP server failed")
		stop()
	}

	// --- Graceful Shutdown ---
	log.Info("Shutting down SmartLink")
	wg.Wait()
	log.Info("SmartLink shut down gracefully")
}
