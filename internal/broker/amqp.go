package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/antonlukisha/md5-cracker/internal/model"
	"github.com/antonlukisha/md5-cracker/internal/retry"
	"github.com/sony/gobreaker"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// AMQPConfig configures the connection to the broker.
type AMQPConfig struct {
	Host, User, Pass string
	Port             int

	RetryAttempts int
	RetryBase     time.Duration
	RetryBackoff  float64
}

func (c AMQPConfig) url() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.User, c.Pass, c.Host, c.Port)
}

// AMQP is the RabbitMQ-backed Broker implementation. Publishing and
// consuming each hold their own channel: the underlying library's
// channels are not safe for concurrent use by multiple goroutines, so a
// shared channel between the publish path and the consume path would
// need its own lock instead (spec.md §5).
type AMQP struct {
	cfg    AMQPConfig
	logger *zap.Logger

	conn *amqp.Connection

	publishMu sync.Mutex
	publishCh *amqp.Channel

	breaker *gobreaker.CircuitBreaker
}

// NewAMQP dials the broker, retrying with the configured backoff, wraps
// the dial in a circuit breaker that trips after RetryAttempts
// consecutive failures (spec.md §5's reconnect attempt cap), and declares
// both durable queues.
func NewAMQP(ctx context.Context, cfg AMQPConfig, logger *zap.Logger) (*AMQP, error) {
	b := &AMQP{
		cfg:    cfg,
		logger: logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "amqp-connect",
			MaxRequests: 1,
			Interval:    0,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(cfg.RetryAttempts)
			},
		}),
	}

	if err := b.connect(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *AMQP) connect(ctx context.Context) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, retry.Do(ctx, b.cfg.RetryAttempts, b.cfg.RetryBase, b.cfg.RetryBackoff, func() error {
			conn, err := amqp.Dial(b.cfg.url())
			if err != nil {
				return fmt.Errorf("amqp dial: %w", err)
			}

			ch, err := conn.Channel()
			if err != nil {
				conn.Close()
				return fmt.Errorf("amqp channel: %w", err)
			}

			if err := declareQueues(ch); err != nil {
				ch.Close()
				conn.Close()
				return err
			}

			b.conn = conn
			b.publishCh = ch
			return nil
		})
	})
	if err != nil {
		return err
	}
	b.logger.Info("connected to broker", zap.String("host", b.cfg.Host))
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	for _, name := range []string{TaskQueueName, ResultQueueName} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("amqp declare queue %s: %w", name, err)
		}
	}
	return nil
}

func (b *AMQP) ensurePublishChannel(ctx context.Context) error {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	if b.conn != nil && !b.conn.IsClosed() && b.publishCh != nil {
		return nil
	}
	return b.connect(ctx)
}

func (b *AMQP) publish(ctx context.Context, queue string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("amqp marshal: %w", err)
	}

	if err := b.ensurePublishChannel(ctx); err != nil {
		return err
	}

	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	return b.publishCh.Publish("", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// PublishTask publishes msg to task.queue.
func (b *AMQP) PublishTask(ctx context.Context, msg model.TaskMessage) error {
	return b.publish(ctx, TaskQueueName, msg)
}

// PublishResult publishes msg to result.queue.
func (b *AMQP) PublishResult(ctx context.Context, msg model.ResultMessage) error {
	return b.publish(ctx, ResultQueueName, msg)
}

// ConsumeTasks consumes task.queue with prefetch 1, per spec.md §4.5.
func (b *AMQP) ConsumeTasks(ctx context.Context) (<-chan Delivery, error) {
	return b.consume(ctx, TaskQueueName, 1)
}

// ConsumeResults consumes result.queue with prefetch 10, per spec.md
// §4.3.
func (b *AMQP) ConsumeResults(ctx context.Context) (<-chan Delivery, error) {
	return b.consume(ctx, ResultQueueName, 10)
}

func (b *AMQP) consume(ctx context.Context, queue string, prefetch int) (<-chan Delivery, error) {
	conn, err := amqp.Dial(b.cfg.url())
	if err != nil {
		return nil, fmt.Errorf("amqp dial (consume): %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel (consume): %w", err)
	}

	if err := declareQueues(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp qos: %w", err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp consume: %w", err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		defer ch.Close()
		defer conn.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				delivery := d
				out <- Delivery{
					Body: delivery.Body,
					Ack: func() error { return delivery.Ack(false) },
					Nack: func(requeue bool) error { return delivery.Nack(false, requeue) },
				}
			}
		}
	}()

	return out, nil
}

// Ping reports whether the underlying connection is open.
func (b *AMQP) Ping(ctx context.Context) error {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	if b.conn == nil || b.conn.IsClosed() {
		return fmt.Errorf("amqp: connection closed")
	}
	return nil
}

// Close closes the publish channel and connection.
func (b *AMQP) Close() error {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	if b.publishCh != nil {
		b.publishCh.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
