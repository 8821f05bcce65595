package worker

import (
	"context"
	"encoding/json"

	"github.com/antonlukisha/md5-cracker/internal/broker"
	"github.com/antonlukisha/md5-cracker/internal/metrics"
	"github.com/antonlukisha/md5-cracker/internal/model"
	"go.uber.org/zap"
)

// Consumer drains task.queue at prefetch 1 and runs each task through a
// Processor, publishing the outcome to result.queue before acking, per
// spec.md §4.5.
type Consumer struct {
	broker    broker.Broker
	processor *Processor
	logger    *zap.Logger
}

// NewConsumer builds a Consumer.
func NewConsumer(b broker.Broker, p *Processor, logger *zap.Logger) *Consumer {
	return &Consumer{broker: b, processor: p, logger: logger}
}

// Run consumes task.queue until ctx is canceled. A delivery already
// in-flight when ctx is canceled is nacked with requeue so another worker
// picks it up, rather than left to time out.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.broker.ConsumeTasks(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d broker.Delivery) {
	select {
	case <-ctx.Done():
		_ = d.Nack(true)
		return
	default:
	}

	var msg model.TaskMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Error("discarding unparseable task message", zap.Error(err))
		_ = d.Nack(false) // poison message, do not requeue
		return
	}

	metrics.TasksInProgress.Set(1)
	result, combinationsPerSecond := c.processor.Process(msg)
	metrics.TasksInProgress.Set(0)
	metrics.CombinationsPerSecond.Set(combinationsPerSecond)

	if err := c.broker.PublishResult(ctx, result); err != nil {
		c.logger.Warn("failed to publish result, requeueing task",
			zap.String("taskId", msg.TaskID), zap.Error(err))
		metrics.TasksProcessedTotal.WithLabelValues("republish_failed").Inc()
		_ = d.Nack(true)
		return
	}

	if err := d.Ack(); err != nil {
		c.logger.Error("failed to ack task delivery", zap.String("taskId", msg.TaskID), zap.Error(err))
		return
	}

	metrics.TasksProcessedTotal.WithLabelValues(string(result.Status)).Inc()
}
