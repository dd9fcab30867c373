package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/listmill/listmill/internal/api"
	"github.com/listmill/listmill/internal/bounce"
	"github.com/listmill/listmill/internal/config"
	"github.com/listmill/listmill/internal/database"
	"github.com/listmill/listmill/internal/ingest"
	"github.com/listmill/listmill/internal/logger"
	"github.com/listmill/listmill/internal/repository"
	smtpserver "github.com/listmill/listmill/internal/smtp"
	"github.com/listmill/listmill/internal/storage"
	"github.com/listmill/listmill/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(log)
	cfg.LogConfig(log)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}

	listRepo := repository.NewListRepository(db)
	postRepo := repository.NewPostRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	bounceRepo := repository.NewBounceRepository(db)

	fileStore, err := storage.NewLocalStorage(cfg.AttachmentStoragePath)
	if err != nil {
		return fmt.Errorf("initializing attachment storage: %w", err)
	}

	hub := websocket.NewHub(log)
	go hub.Run()

	audit := logger.NewSecurityLogger()

	processor := ingest.NewProcessor(listRepo, postRepo, memberRepo, fileStore, hub, audit)

	tracker := bounce.NewTracker(bounceRepo, memberRepo, listRepo,
		bounce.WithLookbackDays(cfg.BounceWindowDays))
	bounceService := ingest.NewBounceService(tracker, memberRepo, nil, audit)

	router := api.NewRouter(&api.RouterConfig{
		DB:             db,
		Bounces:        bounceService,
		Hub:            hub,
		Logger:         log,
		APIKey:         cfg.APIKey,
		AllowedOrigins: splitOrigins(cfg.AllowedOrigins),
		EnableAuth:     cfg.APIKey != "",
	})

	backend := smtpserver.NewBackend(&smtpserver.BackendConfig{
		Lists:     listRepo,
		Processor: processor,
		Bounces:   bounceService,
		Logger:    log,
	})

	smtpCfg := smtpserver.LoadServerConfigFromEnv()
	smtpCfg.Addr = fmt.Sprintf(":%d", cfg.SMTPPort)
	smtpSrv := smtpserver.NewSecureServer(backend, smtpCfg)

	errCh := make(chan error, 2)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		log.Info("starting API server", slog.String("addr", addr))
		if err := router.Start(addr); err != nil {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	go func() {
		log.Info("starting SMTP server", slog.String("addr", smtpCfg.Addr))
		if err := smtpSrv.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("smtp server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := smtpSrv.Shutdown(ctx); err != nil {
		log.Error("smtp shutdown failed", slog.String("error", err.Error()))
	}
	if err := router.Shutdown(ctx); err != nil {
		log.Error("api shutdown failed", slog.String("error", err.Error()))
	}

	log.Info("server stopped")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitOrigins(origins string) []string {
	if origins == "" {
		return nil
	}
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
