// Command worker consumes task.queue, brute-forces each task's candidate
// range against its target hash, and publishes the outcome to
// result.queue.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/antonlukisha/md5-cracker/internal/broker"
	"github.com/antonlukisha/md5-cracker/internal/config"
	"github.com/antonlukisha/md5-cracker/internal/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("worker: failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("worker exited with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	logger = logger.With(zap.String("workerId", cfg.WorkerID))

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

	consumer := worker.NewConsumer(amqpBroker, worker.NewProcessor(), logger)

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("worker consuming task.queue")
		return consumer.Run(groupCtx)
	})

	group.Go(func() error {
		logger.Info("worker metrics listening", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		return metricsServer.Shutdown(context.Background())
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
