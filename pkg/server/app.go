package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	drepo "OptionLens/internal/domain/repository"
	"OptionLens/internal/handler/api"
	"OptionLens/internal/handler/ws"
	"OptionLens/internal/usecase"
	pkgch "OptionLens/pkg/clickhouse"
	"OptionLens/pkg/config"
	xhttp "OptionLens/pkg/http"
	pkgkafka "OptionLens/pkg/kafka"
	applogger "OptionLens/pkg/logger"
)

// App encapsulates the entire application lifecycle: HTTP API with the
// websocket feed, the Kafka snapshot consumer, and graceful shutdown of
// the infrastructure clients.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	handler    *api.AnalysisEchoHandler
	hub        *ws.Hub
	consumer   *pkgkafka.Consumer
	archiver   *usecase.SnapshotArchiver
	chClient   *pkgch.Client
	pub        drepo.Publisher
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler *api.AnalysisEchoHandler,
	hub *ws.Hub,
	consumer *pkgkafka.Consumer,
	archiver *usecase.SnapshotArchiver,
	chClient *pkgch.Client,
	pub drepo.Publisher,
) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		handler:  handler,
		hub:      hub,
		consumer: consumer,
		archiver: archiver,
		chClient: chClient,
		pub:      pub,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(a.logger, time.Second),
	)
	if a.hub != nil {
		a.httpServer.Echo().GET("/ws", a.hub.Handler)
	}

	if a.consumer != nil && a.archiver != nil {
		a.consumer.RegisterHandler(a.archiver)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.logger.Info("kafka consumer started", applogger.String("topic", a.archiver.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Strings("tickers", a.cfg.MarketData.Tickers))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.hub != nil {
		a.hub.Close()
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
