package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"

	"wisetrade/internal/repository"
	"wisetrade/internal/scheduler"
	pkgch "wisetrade/pkg/clickhouse"
	"wisetrade/pkg/config"
	xhttp "wisetrade/pkg/http"
	pkgkafka "wisetrade/pkg/kafka"
	applogger "wisetrade/pkg/logger"
)

// App encapsulates the application lifecycle: HTTP surface, scheduled
// sweeps, and the storage and messaging clients that need closing.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handlers   []xhttp.Handler
	sched      *scheduler.Scheduler
	chClient   *pkgch.Client
	store      *repository.GormStore
	producer   *pkgkafka.Producer
	httpServer *xhttp.Server
}

// New creates the application. Scheduler, ClickHouse client and producer
// may be nil when the corresponding feature is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handlers []xhttp.Handler,
	sched *scheduler.Scheduler,
	chClient *pkgch.Client,
	store *repository.GormStore,
	producer *pkgkafka.Producer,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		handlers: handlers,
		sched:    sched,
		chClient: chClient,
		store:    store,
		producer: producer,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	a.httpServer = xhttp.NewServer(multiHandler(a.handlers),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.sched != nil {
		if err := a.sched.Start(); err != nil {
			a.log.Error("scheduler start error", applogger.Error(err))
			return err
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	if a.sched != nil {
		a.sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("database close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}

// multiHandler registers several handlers on one Echo instance.
type multiHandler []xhttp.Handler

func (m multiHandler) RegisterRoutes(e *echo.Echo) {
	for _, h := range m {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}
