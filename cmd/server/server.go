package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/mdp211/flowmeter-monitor/internal/config"
	"github.com/mdp211/flowmeter-monitor/internal/events"
	"github.com/mdp211/flowmeter-monitor/internal/httpapi"
	"github.com/mdp211/flowmeter-monitor/internal/monitor"
	"github.com/mdp211/flowmeter-monitor/internal/notify"
	"github.com/mdp211/flowmeter-monitor/internal/store"
	"github.com/mdp211/flowmeter-monitor/internal/threshold"
	"github.com/mdp211/flowmeter-monitor/internal/validator"
	"github.com/mdp211/flowmeter-monitor/internal/warning"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startServer(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger, router *chi.Mux) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServicePort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting http server", zap.Int("port", cfg.ServicePort))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down http server")
			return srv.Shutdown(ctx)
		},
	})
}

// ProvideStore selects the persistence backend from configuration.
func ProvideStore(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "postgres":
		pool, err := store.NewPool(lc, logger, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store.NewPostgres(pool), nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("cannot reach redis store: %w", err)
				}
				logger.Info("redis store connection established")
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
		return store.NewRedis(client), nil

	case "memory":
		logger.Warn("using in-memory store, data will not survive restarts")
		return store.NewMemory(), nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// ProvideEvaluator creates the threshold evaluator.
func ProvideEvaluator() *threshold.Evaluator {
	return threshold.NewEvaluator()
}

// ProvideValidator creates the reading validator.
func ProvideValidator(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(cfg.Validation.TimestampToleranceMinutes)
}

// ProvideRecorder creates the warning recorder.
func ProvideRecorder(st store.Store, logger *zap.Logger) *warning.Recorder {
	return warning.NewRecorder(st, logger)
}

// ProvidePusher selects the push client; without an endpoint configured
// delivery is disabled.
func ProvidePusher(cfg *config.Config, logger *zap.Logger) notify.Pusher {
	if !cfg.Push.Enabled() {
		logger.Warn("push delivery disabled, no endpoint configured")
		return notify.NewNoopPusher(logger)
	}
	return notify.NewFCMClient(notify.PushConfig{
		Endpoint:     cfg.Push.Endpoint,
		TokenURL:     cfg.Push.TokenURL,
		ClientID:     cfg.Push.ClientID,
		ClientSecret: cfg.Push.ClientSecret,
		Scopes:       []string{cfg.Push.Scope},
		Timeout:      time.Duration(cfg.Push.TimeoutSeconds) * time.Second,
	}, logger)
}

// ProvideDispatcher creates the notification dispatcher.
func ProvideDispatcher(st store.Store, pusher notify.Pusher, logger *zap.Logger) *notify.Dispatcher {
	return notify.NewDispatcher(st, pusher, logger)
}

// ProvidePublisher creates the event publisher; without a RabbitMQ URL
// events are discarded.
func ProvidePublisher(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (events.Publisher, error) {
	if cfg.RabbitMQ.URL == "" {
		logger.Info("event publishing disabled, no RabbitMQ URL configured")
		return events.NoopPublisher{}, nil
	}

	conn, err := events.NewConnection(lc, logger, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	publisher, err := events.NewAMQPPublisher(
		conn,
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.ReadingRoutingKey,
		cfg.RabbitMQ.WarningRoutingKey,
		logger,
	)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})

	return publisher, nil
}

// ProvideMonitorService wires the core pipeline.
func ProvideMonitorService(
	st store.Store,
	evaluator *threshold.Evaluator,
	recorder *warning.Recorder,
	dispatcher *notify.Dispatcher,
	publisher events.Publisher,
	logger *zap.Logger,
) *monitor.Service {
	return monitor.NewService(st, evaluator, recorder, dispatcher, publisher, logger)
}

// ProvideHandler creates the HTTP handler set.
func ProvideHandler(svc *monitor.Service, v *validator.Validator, logger *zap.Logger) *httpapi.Handler {
	return httpapi.NewHandler(svc, v, logger)
}

// ProvideRouter builds the routing table.
func ProvideRouter(h *httpapi.Handler, logger *zap.Logger) *chi.Mux {
	return httpapi.NewRouter(h, logger)
}
