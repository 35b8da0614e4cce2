package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/planner/internal/config"
	"github.com/JonMunkholm/planner/internal/core"
	"github.com/JonMunkholm/planner/internal/logging"
	"github.com/JonMunkholm/planner/internal/notify"
	"github.com/JonMunkholm/planner/internal/storage"
	"github.com/JonMunkholm/planner/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"mail_provider", cfg.Mail.Provider,
	)
	slog.Debug("configuration", "config", cfg.String())

	ctx := context.Background()
	repo, closeRepo, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	mailer, err := newMailer(ctx, cfg.Mail)
	if err != nil {
		slog.Error("failed to set up mail", "error", err)
		os.Exit(1)
	}

	service := core.NewService(repo, core.Options{
		MaxFileSize:      cfg.Import.MaxFileSize,
		ImportTimeout:    cfg.Import.Timeout,
		HeaderSearchRows: cfg.Import.HeaderSearchRows,
		ExtendedAliases:  cfg.Import.ExtendedAliases,
		BaseURL:          cfg.Mail.BaseURL,
		Limiter:          core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		Mailer:           mailer,
	})

	server := web.NewServer(service, cfg, repo)

	// Background jobs stop with this context.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartRetentionScheduler(jobCtx, core.RetentionConfig{
		Retention:     cfg.Activity.Retention(),
		CheckInterval: cfg.Activity.CheckInterval,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let running imports finish before the listener goes away.
		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		closeRepo()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// newMailer returns the configured notification sender.
func newMailer(ctx context.Context, cfg config.MailConfig) (notify.Mailer, error) {
	if strings.ToLower(cfg.Provider) != config.MailProviderGmail {
		return notify.LogMailer{}, nil
	}
	m, err := notify.NewGmailMailer(ctx, notify.GmailConfig{
		CredentialsFile: cfg.CredentialsFile,
		TokenFile:       cfg.TokenFile,
		From:            cfg.From,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("sending mail through gmail", "from", cfg.From)
	return m, nil
}
