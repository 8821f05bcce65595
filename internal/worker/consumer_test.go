package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/antonlukisha/md5-cracker/internal/broker"
	"github.com/antonlukisha/md5-cracker/internal/model"
	"github.com/antonlukisha/md5-cracker/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBroker struct {
	mu      sync.Mutex
	results []model.ResultMessage

	failPublish bool
}

func (b *fakeBroker) PublishTask(ctx context.Context, msg model.TaskMessage) error { return nil }

func (b *fakeBroker) PublishResult(ctx context.Context, msg model.ResultMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPublish {
		return assertErr
	}
	b.results = append(b.results, msg)
	return nil
}

func (b *fakeBroker) ConsumeTasks(ctx context.Context) (<-chan broker.Delivery, error) {
	return nil, nil
}
func (b *fakeBroker) ConsumeResults(ctx context.Context) (<-chan broker.Delivery, error) {
	return nil, nil
}
func (b *fakeBroker) Ping(ctx context.Context) error { return nil }
func (b *fakeBroker) Close() error                   { return nil }

type testErr string

func (e testErr) Error() string { return string(e) }

const assertErr = testErr("publish failed")

func TestConsumerHandleAcksOnSuccessfulProcessAndPublish(t *testing.T) {
	fb := &fakeBroker{}
	c := NewConsumer(fb, NewProcessor(), zap.NewNop())

	msg := model.TaskMessage{TaskID: "t1", RequestID: "r1", StartIndex: 0, Count: 36, TargetHash: search.HashHex("ab"), MaxLength: 2}
	body, err := json.Marshal(msg)
	require.NoError(t, err)

	var acked bool
	d := broker.Delivery{
		Body: body,
		Ack:  func() error { acked = true; return nil },
		Nack: func(requeue bool) error { t.Fatalf("unexpected nack(%v)", requeue); return nil },
	}

	c.handle(context.Background(), d)
	assert.True(t, acked)
	require.Len(t, fb.results, 1)
	assert.Equal(t, model.TaskDone, fb.results[0].Status)
}

func TestConsumerHandleNacksWithoutRequeueOnUnparseableBody(t *testing.T) {
	fb := &fakeBroker{}
	c := NewConsumer(fb, NewProcessor(), zap.NewNop())

	var nackRequeue *bool
	d := broker.Delivery{
		Body: []byte("not json"),
		Ack:  func() error { t.Fatalf("unexpected ack"); return nil },
		Nack: func(requeue bool) error { nackRequeue = &requeue; return nil },
	}

	c.handle(context.Background(), d)
	require.NotNil(t, nackRequeue)
	assert.False(t, *nackRequeue)
}

func TestConsumerHandleRequeuesWhenResultPublishFails(t *testing.T) {
	fb := &fakeBroker{failPublish: true}
	c := NewConsumer(fb, NewProcessor(), zap.NewNop())

	msg := model.TaskMessage{TaskID: "t1", RequestID: "r1", StartIndex: 0, Count: 36, TargetHash: search.HashHex("ab"), MaxLength: 2}
	body, err := json.Marshal(msg)
	require.NoError(t, err)

	var nackRequeue *bool
	d := broker.Delivery{
		Body: body,
		Ack:  func() error { t.Fatalf("unexpected ack"); return nil },
		Nack: func(requeue bool) error { nackRequeue = &requeue; return nil },
	}

	c.handle(context.Background(), d)
	require.NotNil(t, nackRequeue)
	assert.True(t, *nackRequeue)
}

func TestConsumerHandleRequeuesWhenContextAlreadyCanceled(t *testing.T) {
	fb := &fakeBroker{}
	c := NewConsumer(fb, NewProcessor(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var nackRequeue *bool
	d := broker.Delivery{
		Body: []byte("{}"),
		Ack:  func() error { t.Fatalf("unexpected ack"); return nil },
		Nack: func(requeue bool) error { nackRequeue = &requeue; return nil },
	}

	c.handle(ctx, d)
	require.NotNil(t, nackRequeue)
	assert.True(t, *nackRequeue)
}
