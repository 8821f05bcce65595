// Package broker defines the durable-queue abstraction the manager and
// worker use to exchange TaskMessage and ResultMessage payloads, and an
// AMQP 0-9-1 implementation of it.
package broker

import (
	"context"

	"github.com/antonlukisha/md5-cracker/internal/model"
)

const (
	TaskQueueName   = "task.queue"
	ResultQueueName = "result.queue"
)

// Delivery is one inbound message plus the ack/nack operations the
// consumer uses to resolve it.
type Delivery struct {
	Body  []byte
	Ack   func() error
	Nack  func(requeue bool) error
}

// Broker is the publish/consume boundary the manager and worker depend
// on. It is an interface so tests can substitute an in-memory fake broker
// instead of a live RabbitMQ node.
type Broker interface {
	PublishTask(ctx context.Context, msg model.TaskMessage) error
	PublishResult(ctx context.Context, msg model.ResultMessage) error

	// ConsumeTasks and ConsumeResults deliver on the returned channel
	// until ctx is canceled or the broker connection is closed.
	ConsumeTasks(ctx context.Context) (<-chan Delivery, error)
	ConsumeResults(ctx context.Context) (<-chan Delivery, error)

	Ping(ctx context.Context) error
	Close() error
}
