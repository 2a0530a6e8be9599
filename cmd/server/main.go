package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "credit-sales/internal/adapters/web"
	"credit-sales/internal/ai"
	"credit-sales/internal/app"
	"credit-sales/internal/config"
	"credit-sales/internal/core"
	"credit-sales/internal/db"
	"credit-sales/internal/jobs"
	"credit-sales/internal/notify"
	"credit-sales/internal/observability"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsDir, true); err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	clock := core.SystemClock{}

	deps := app.PostgresDeps(pool, clock)
	deps.Metrics = metrics
	deps.Logger = logger
	deps.CompanyCode = cfg.CompanyCode
	if cfg.OpenAIAPIKey != "" {
		deps.Interpreter = ai.NewAgent(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	} else {
		logger.Warn("OPENAI_API_KEY is not set; payment assistant disabled")
	}
	svc := app.NewAppService(deps)

	company, err := svc.LoadDefaultCompany(ctx)
	if err != nil {
		return err
	}

	scheduler := jobs.NewScheduler(logger, metrics, clock)
	if err := scheduler.AddViewRefresh(cfg.ViewRefreshSchedule, deps.Reports); err != nil {
		return err
	}
	if cfg.MailEnabled() {
		mailer := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.DigestFrom,
		})
		digest := notify.NewDigestSender(mailer, cfg.DigestFrom, cfg.DigestRecipients(), logger)
		if err := scheduler.AddOverdueDigest(cfg.DigestSchedule, company.CompanyCode, deps.Reports, digest); err != nil {
			return err
		}
	}
	scheduler.Start()

	handler := webAdapter.NewHandler(svc, webAdapter.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		Logger:         logger,
		Metrics:        metrics,
	})
	handler.StartPurge(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("company", company.CompanyCode))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}
