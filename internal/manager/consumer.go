package manager

import (
	"context"
	"encoding/json"

	"github.com/antonlukisha/md5-cracker/internal/broker"
	"github.com/antonlukisha/md5-cracker/internal/metrics"
	"github.com/antonlukisha/md5-cracker/internal/model"
	"go.uber.org/zap"
)

// ResultConsumer drains result.queue and ingests each ResultMessage into
// the store, following the four-step protocol in spec.md §4.3: record the
// task's terminal status, merge its results into the request, check
// whether all of the request's tasks are terminal, and if so flip the
// request to READY. Every step is either idempotent or guarded by a
// conditional write, so redelivery of the same message is harmless.
type ResultConsumer struct {
	svc    *Service
	broker broker.Broker
	logger *zap.Logger
}

// NewResultConsumer builds a ResultConsumer over svc.
func NewResultConsumer(svc *Service, b broker.Broker, logger *zap.Logger) *ResultConsumer {
	return &ResultConsumer{svc: svc, broker: b, logger: logger}
}

// Run consumes deliveries until ctx is canceled. It is meant to be run in
// its own goroutine, typically under an errgroup.
func (c *ResultConsumer) Run(ctx context.Context) error {
	deliveries, err := c.broker.ConsumeResults(ctx)
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

func (c *ResultConsumer) handle(ctx context.Context, d broker.Delivery) {
	var msg model.ResultMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Error("discarding unparseable result message", zap.Error(err))
		_ = d.Nack(false) // poison message, do not requeue
		return
	}

	if err := c.ingest(ctx, msg); err != nil {
		c.logger.Warn("failed to ingest result, requeueing",
			zap.String("taskId", msg.TaskID), zap.Error(err))
		_ = d.Nack(true)
		return
	}

	if err := d.Ack(); err != nil {
		c.logger.Error("failed to ack result delivery", zap.String("taskId", msg.TaskID), zap.Error(err))
	}
}

func (c *ResultConsumer) ingest(ctx context.Context, msg model.ResultMessage) error {
	store := c.svc.store

	// Step 1: record the task's terminal status and its own results.
	if err := store.UpdateTaskResult(ctx, msg.TaskID, msg.Status, msg.Results); err != nil {
		return err
	}
	metrics.ResultsIngestedTotal.WithLabelValues(string(msg.Status)).Inc()

	// Step 2: merge any matches into the request's accumulated results.
	// $addToSet on the request side means a redelivered message that
	// reaches this step twice never duplicates an entry.
	if len(msg.Results) > 0 {
		if err := store.AppendRequestResults(ctx, msg.RequestID, msg.Results); err != nil {
			return err
		}
	}

	// Step 3: has every task for this request reached a terminal state?
	total, err := store.CountTasksByRequest(ctx, msg.RequestID)
	if err != nil {
		return err
	}
	doneCount, err := store.CountTasksByRequest(ctx, msg.RequestID, model.TaskDone, model.TaskError)
	if err != nil {
		return err
	}
	if doneCount < total {
		return nil
	}

	// Step 4: flip IN_PROGRESS -> READY. The conditional filter inside
	// TryCompleteRequest makes this a no-op if another delivery already
	// completed the request, so concurrent completions from the prefetch
	// 10 pool never race each other into a double completion.
	completed, err := store.TryCompleteRequest(ctx, msg.RequestID)
	if err != nil {
		return err
	}
	if completed {
		c.logger.Info("request completed", zap.String("requestId", msg.RequestID))
	}
	return nil
}
