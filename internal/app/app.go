// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/garyellow/buscacursos-bot-go/internal/bot"
	"github.com/garyellow/buscacursos-bot-go/internal/catalog"
	"github.com/garyellow/buscacursos-bot-go/internal/config"
	"github.com/garyellow/buscacursos-bot-go/internal/course"
	"github.com/garyellow/buscacursos-bot-go/internal/logger"
	"github.com/garyellow/buscacursos-bot-go/internal/metrics"
	"github.com/garyellow/buscacursos-bot-go/internal/ratelimit"
	"github.com/garyellow/buscacursos-bot-go/internal/render"
	"github.com/garyellow/buscacursos-bot-go/internal/scraper"
	"github.com/garyellow/buscacursos-bot-go/internal/scraper/buscacursos"
	"github.com/garyellow/buscacursos-bot-go/internal/sentry"
	"github.com/garyellow/buscacursos-bot-go/internal/session"
	"github.com/garyellow/buscacursos-bot-go/internal/storage"
	"github.com/garyellow/buscacursos-bot-go/internal/telegram"
	"github.com/garyellow/buscacursos-bot-go/internal/webhook"
)

// sentryFlushTimeout bounds the final delivery of buffered error reports.
const sentryFlushTimeout = 2 * time.Second

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg      *config.Config
	logger   *logger.Logger
	store    storage.Store
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	telegram *telegram.Transport // nil when not configured
	line     *webhook.Handler    // nil when not configured
	router   *gin.Engine
	server   *http.Server
	wg       sync.WaitGroup // Background jobs
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(logger.Options{
		Level:               cfg.LogLevel,
		BetterstackToken:    cfg.BetterstackToken,
		BetterstackEndpoint: cfg.BetterstackEndpoint,
	})
	log = log.WithField("service", "buscacursos-bot")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog calls pick up the context values too.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...", "config", cfg)

	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.About.Version,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed; error reporting disabled")
	} else if sentry.IsEnabled() {
		log.WithField("host", cfg.SentryHost).Info("Error reporting enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	store, err := storage.Open(ctx, cfg.StorageConfig(), m)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	log.WithField("backend", cfg.SessionBackend).Info("Session store opened")

	app := &Application{
		cfg:      cfg,
		logger:   log,
		store:    store,
		metrics:  m,
		registry: registry,
	}

	scraperClient := scraper.NewClient(cfg.CatalogTimeout)
	searcher := catalog.NewService(buscacursos.New(scraperClient, cfg.CatalogBaseURL), m, log).WithTimeout(cfg.CatalogTimeout)
	matcher := course.NewMatcher(cfg.Period)
	// Both transports share one store, so they share its locks too.
	locker := session.NewLocker(m)

	newProcessor := func(format render.Format) (*bot.Processor, error) {
		renderer, err := render.New(format)
		if err != nil {
			return nil, fmt.Errorf("renderer: %w", err)
		}
		return bot.NewProcessor(bot.ProcessorConfig{
			Matcher:  matcher,
			Searcher: searcher,
			Store:    store,
			Locker:   locker,
			Renderer: renderer,
			Info:     cfg.About,
			PageSize: cfg.PageSize,
			Logger:   log,
			Metrics:  m,
		}), nil
	}

	if cfg.HasTelegram() {
		processor, err := newProcessor(render.Markdown)
		if err != nil {
			return nil, app.abort(err)
		}
		api, err := telegram.NewBotAPI(cfg.TelegramToken, "", cfg.TelegramDebug)
		if err != nil {
			return nil, app.abort(err)
		}
		app.telegram = telegram.New(telegram.Config{
			API:       api,
			Processor: processor,
			Limiter:   ratelimit.NewOutbound(telegram.Channel, cfg.OutboundRateRPS, m),
			Logger:    log,
			Metrics:   m,
			Timeout:   cfg.WebhookTimeout,
		})
		log.WithField("bot", api.Self.UserName).
			WithField("token", cfg.MaskedTelegramToken()).
			Info("Telegram transport enabled")
	}

	if cfg.HasLINE() {
		processor, err := newProcessor(render.Plain)
		if err != nil {
			return nil, app.abort(err)
		}
		app.line, err = webhook.NewHandler(webhook.HandlerConfig{
			ChannelSecret: cfg.LineChannelSecret,
			ChannelToken:  cfg.LineChannelToken,
			Processor:     processor,
			Limiter:       ratelimit.NewOutbound(webhook.Channel, cfg.OutboundRateRPS, m),
			Logger:        log,
			Metrics:       m,
			Timeout:       cfg.WebhookTimeout,
		})
		if err != nil {
			return nil, app.abort(fmt.Errorf("webhook: %w", err))
		}
		log.Info("LINE transport enabled")
	}

	gin.SetMode(gin.ReleaseMode)
	app.router = app.newRouter()
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// abort releases what Initialize opened before failing with err.
func (a *Application) abort(err error) error {
	if closeErr := a.store.Close(); closeErr != nil {
		a.logger.WithError(closeErr).Warn("Failed to close session store")
	}
	return err
}

// Run starts the HTTP server and the update receivers, then blocks until
// SIGINT or SIGTERM.
//
// Shutdown order:
//  1. Cancel the context so polling stops
//  2. Stop the HTTP server so no webhook arrives
//  3. Drain in-flight updates of both transports
//  4. Flush error reports, close the store, flush logs
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.startReceivers(ctx); err != nil {
		return a.abort(err)
	}
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startReceivers registers the Telegram webhook or starts long polling, and
// starts the LINE limiter cleanup.
func (a *Application) startReceivers(ctx context.Context) error {
	if a.telegram != nil {
		if a.cfg.WebhookURL != "" {
			if err := a.telegram.SetWebhook(a.cfg.WebhookURL); err != nil {
				return err
			}
			a.logger.WithField("path", a.telegram.WebhookPath()).Info("Telegram webhook registered")
		} else {
			a.wg.Go(func() {
				if err := a.telegram.Poll(ctx); err != nil {
					a.logger.WithError(err).Error("Telegram polling stopped")
				}
			})
		}
	}

	if a.line != nil {
		a.wg.Go(func() {
			a.line.Run(ctx)
		})
	}
	return nil
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops the server and releases resources. Background jobs must
// already be stopped.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Waiting for in-flight updates to complete...")
	if a.telegram != nil {
		if err := a.telegram.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).WithField("component", "telegram").Warn("Transport shutdown timeout")
		}
	}
	if a.line != nil {
		if err := a.line.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).WithField("component", "line").Warn("Transport shutdown timeout")
		}
	}

	a.logger.Info("Closing resources...")
	if sentry.IsEnabled() && !sentry.Flush(sentryFlushTimeout) {
		a.logger.Warn("Some error reports were not delivered")
	}
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "session_store").Error("Component close error")
	}

	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}
	return nil
}
