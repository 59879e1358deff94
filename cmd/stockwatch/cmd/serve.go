package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"stockwatch/internal/api/handlers"
	mw "stockwatch/internal/api/middleware"
	"stockwatch/internal/config"
	"stockwatch/internal/engine"
	"stockwatch/internal/extract"
	"stockwatch/internal/notify"
	"stockwatch/internal/store"
	"stockwatch/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the poll scheduler and API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewPostgresStore(ctx, cfg.Database.DSN(),
		store.WithPoolSize(cfg.Database.PoolSize))
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	extractor, err := newExtractor(cfg, log)
	if err != nil {
		return fmt.Errorf("building extractor: %w", err)
	}

	notifier, err := newNotifier(ctx, cfg, log)
	if err != nil {
		return err
	}

	eng := engine.NewEngine(st, extractor, notifier, engine.WithLogger(log))

	sched, err := engine.NewScheduler(eng, notifier, engine.ScheduleConfig{
		PollInterval:     cfg.Schedule.PollInterval,
		Jitter:           cfg.Schedule.Jitter,
		MinWait:          cfg.Schedule.MinWait,
		FailureThreshold: cfg.Schedule.FailureThreshold,
		FailureCooldown:  cfg.Schedule.FailureCooldown,
		SummaryInterval:  cfg.Schedule.SummaryInterval,
	}, log)
	if err != nil {
		return fmt.Errorf("building scheduler: %w", err)
	}

	e := newServer(cfg, log, st, eng)

	if err := notifier.SendStartup(ctx); err != nil {
		log.Warn("startup notification failed", "error", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server", "addr", addr)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	<-ctx.Done()
	log.Info("shutting down")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if stats, err := st.Stats(shutdownCtx); err == nil {
		if err := notifier.SendShutdown(shutdownCtx, *stats); err != nil {
			log.Warn("shutdown notification failed", "error", err)
		}
	}

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	log.Info("stopped")
	return nil
}

func newExtractor(cfg *config.Config, log *slog.Logger) (*extract.ListingExtractor, error) {
	opts := []extract.Option{
		extract.WithLogger(log),
		extract.WithCategory(cfg.Source.Category),
		extract.WithMaxProducts(cfg.Source.MaxProducts),
		extract.WithTimeout(cfg.Source.Timeout),
		extract.WithRetryCount(cfg.Source.RetryCount),
	}
	if cfg.Source.FetchDetails {
		opts = append(opts, extract.WithDetailFetch(cfg.Source.DetailLimit))
	}
	return extract.NewListingExtractor(cfg.Source.ListingURL, opts...)
}

// newNotifier wires Telegram when enabled, verifying the token up front so
// a bad deployment fails at startup instead of silently dropping alerts.
func newNotifier(ctx context.Context, cfg *config.Config, log *slog.Logger) (notify.Notifier, error) {
	if !cfg.Telegram.Enabled {
		log.Info("telegram disabled, alerts will be logged and discarded")
		return notify.NewNoOpNotifier(log), nil
	}

	tn := notify.NewTelegramNotifier(
		cfg.Telegram.BotToken,
		cfg.Telegram.ChatID,
		notify.WithAPIURL(cfg.Telegram.APIURL),
		notify.WithSendsPerSecond(cfg.Telegram.SendsPerSecond),
	)

	pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := tn.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("verifying telegram bot: %w", err)
	}

	log.Info("telegram notifier ready", "chat_id", cfg.Telegram.ChatID)
	return tn, nil
}

func newServer(cfg *config.Config, log *slog.Logger, st store.Store, eng *engine.Engine) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	e.Use(mw.RequestLog(log))
	e.Use(mw.Recovery(log))
	e.Use(mw.Metrics())

	health := handlers.NewHealthHandler(st)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("Stockwatch API", "1.0.0"))
	handlers.RegisterStatsRoutes(api, handlers.NewStatsHandler(st))
	handlers.RegisterProductRoutes(api, handlers.NewProductsHandler(st))
	handlers.RegisterTriggerRoutes(api, handlers.NewTriggerHandler(eng))

	return e
}
