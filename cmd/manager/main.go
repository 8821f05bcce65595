// Command manager runs the coordination plane: the HTTP submission/status
// API, the result.queue consumer, and the retry sweeper.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/antonlukisha/md5-cracker/internal/broker"
	"github.com/antonlukisha/md5-cracker/internal/config"
	"github.com/antonlukisha/md5-cracker/internal/manager"
	"github.com/antonlukisha/md5-cracker/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("manager: failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("manager exited with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	mongoStore, err := store.NewMongo(ctx, store.MongoConfig{
		URI:           cfg.MongoURI,
		RetryAttempts: cfg.RetryMaxAttempts,
		RetryBase:     cfg.RetryBaseDelay,
		RetryBackoff:  cfg.RetryBackoffMult,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}
	defer mongoStore.Close(context.Background())

	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure mongodb indexes: %w", err)
	}

	amqpBroker, err := broker.NewAMQP(ctx, broker.AMQPConfig{
		Host:          cfg.RabbitMQHost,
		Port:          cfg.RabbitMQPort,
		User:          cfg.RabbitMQUser,
		Pass:          cfg.RabbitMQPass,
		RetryAttempts: cfg.RetryMaxAttempts,
		RetryBase:     cfg.RetryBaseDelay,
		RetryBackoff:  cfg.RetryBackoffMult,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	defer amqpBroker.Close()

	svc := manager.New(mongoStore, amqpBroker, cfg, logger)

	svc.Start(ctx)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.Shutdown(shutdownCtx); err != nil {
			logger.Error("manager shutdown did not complete cleanly", zap.Error(err))
		}
	}()

	router := manager.NewRouter(svc, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("manager HTTP API listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
