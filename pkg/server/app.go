package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "WorthWatch/internal/domain/repository"
	"WorthWatch/internal/handler/ws"
	mid "WorthWatch/internal/middleware"
	"WorthWatch/internal/usecase"
	pkgch "WorthWatch/pkg/clickhouse"
	"WorthWatch/pkg/config"
	xhttp "WorthWatch/pkg/http"
	pkgkafka "WorthWatch/pkg/kafka"
	applogger "WorthWatch/pkg/logger"
	pkgqueue "WorthWatch/pkg/queue"

	"github.com/labstack/echo/v4"
)

// Components are everything the app lifecycle manages. Optional pieces
// (consumer, queue, history, producer) are nil when their backend is
// disabled in config; the app runs with whatever is wired.
type Components struct {
	Handler      xhttp.Handler
	Hub          *ws.Hub
	Dashboard    *usecase.DashboardUseCase
	Guard        *mid.IngestGuard
	Consumer     *pkgkafka.Consumer
	KafkaHandler *usecase.KafkaMonthsHandler
	Queue        *pkgqueue.RedisQueue
	Events       domrepo.EventPublisher
	History      domrepo.HistoryStore
	CHClient     *pkgch.Client
	Producer     *pkgkafka.Producer
}

// App encapsulates the application lifecycle: HTTP serving, the Kafka month
// consumer, the rebuild queue worker, and graceful teardown of all of them.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	comp       Components
	httpServer *xhttp.Server
}

func New(cfg *config.Config, log *applogger.Logger, comp Components) *App {
	return &App{cfg: cfg, log: log, comp: comp}
}

// routes registers the API handler and the websocket hub on one Echo.
type routes struct {
	handler xhttp.Handler
	hub     *ws.Hub
}

func (r routes) RegisterRoutes(e *echo.Echo) {
	if r.handler != nil {
		r.handler.RegisterRoutes(e)
	}
	if r.hub != nil {
		r.hub.RegisterRoutes(e)
	}
}

// producerPublisher adapts the Kafka producer to the log collector's
// publisher interface.
type producerPublisher struct {
	p *pkgkafka.Producer
}

func (pp producerPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return pp.p.Publish(ctx, topic, nil, payload)
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Aggregated error logs ship to Kafka when a producer and topic exist.
	if a.comp.Producer != nil && a.cfg.Kafka.LogsTopic != "" {
		a.log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          a.cfg.Kafka.LogsTopic,
			Publisher:      producerPublisher{p: a.comp.Producer},
		})
	}

	a.httpServer = xhttp.NewServer(routes{handler: a.comp.Handler, hub: a.comp.Hub},
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.comp.Guard != nil {
		a.comp.Guard.Start(ctx)
	}

	if a.comp.Queue != nil {
		if err := a.comp.Queue.Start(); err != nil {
			a.log.Error("rebuild queue start failed", applogger.Error(err))
			return err
		}
	}

	if a.comp.Consumer != nil && a.comp.KafkaHandler != nil {
		a.comp.Consumer.RegisterHandler(a.comp.KafkaHandler)
		go func() {
			if err := a.comp.Consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.comp.KafkaHandler.Topic()))
	}

	if a.cfg.Dashboard.RebuildOnStart {
		go func() {
			if _, err := a.comp.Dashboard.Rebuild(ctx, "startup"); err != nil {
				a.log.Error("startup rebuild failed", applogger.Error(err))
			}
		}()
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("worthwatch started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops intake first (HTTP, consumer, guard), then drains the
// queue workers, then closes the clients everything above was writing to.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.comp.Consumer != nil {
		if err := a.comp.Consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.comp.Guard != nil {
		a.comp.Guard.Stop()
	}

	if a.comp.Queue != nil {
		if err := a.comp.Queue.Stop(shutdownCtx); err != nil {
			a.log.Warn("rebuild queue stop error", applogger.Error(err))
		}
	}

	if a.comp.Hub != nil {
		if err := a.comp.Hub.Close(); err != nil {
			a.log.Warn("ws hub close error", applogger.Error(err))
		}
	}

	if a.comp.Producer != nil {
		if err := a.comp.Producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.comp.History != nil {
		if err := a.comp.History.Close(); err != nil {
			a.log.Warn("history store close error", applogger.Error(err))
		}
	}

	if a.comp.CHClient != nil {
		if err := a.comp.CHClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.RemoveCollector()
	a.log.Info("shutdown complete")
	return nil
}
