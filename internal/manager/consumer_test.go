package manager

import (
	"context"
	"testing"

	"github.com/antonlukisha/md5-cracker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func submitFixture(t *testing.T, svc *Service, taskSize uint64) (string, []string) {
	t.Helper()
	svc.cfg.TaskSize = taskSize
	requestID, err := svc.Submit(context.Background(), "900150983cd24fb0d6963f7d28e17f72", 2)
	require.NoError(t, err)

	taskIDs := make([]string, 0)
	for id, task := range svc.store.(*fakeStore).tasks {
		if task.RequestID == requestID {
			taskIDs = append(taskIDs, id)
		}
	}
	return requestID, taskIDs
}

func TestConsumerIngestResultCompletesRequestWhenAllTasksTerminal(t *testing.T) {
	svc, st, br := newTestService()
	requestID, taskIDs := submitFixture(t, svc, 2000) // single task covering the whole space (36+36^2 = 1332)
	require.Len(t, taskIDs, 1)

	c := NewResultConsumer(svc, br, zap.NewNop())

	err := c.ingest(context.Background(), model.ResultMessage{
		TaskID:    taskIDs[0],
		RequestID: requestID,
		Status:    model.TaskDone,
		Results:   []string{"abc"},
	})
	require.NoError(t, err)

	req, err := st.GetRequest(context.Background(), requestID, false)
	require.NoError(t, err)
	assert.Equal(t, model.RequestReady, req.Status)
	assert.Equal(t, []string{"abc"}, req.Results)
}

func TestConsumerIngestResultIsIdempotentUnderRedelivery(t *testing.T) {
	svc, st, br := newTestService()
	requestID, taskIDs := submitFixture(t, svc, 2000)
	require.Len(t, taskIDs, 1)

	c := NewResultConsumer(svc, br, zap.NewNop())
	msg := model.ResultMessage{
		TaskID:    taskIDs[0],
		RequestID: requestID,
		Status:    model.TaskDone,
		Results:   []string{"abc"},
	}

	require.NoError(t, c.ingest(context.Background(), msg))
	// Simulate redelivery of the same message after ack was lost in
	// transit: ingestion must not duplicate the result or re-flip an
	// already-completed request.
	require.NoError(t, c.ingest(context.Background(), msg))

	req, err := st.GetRequest(context.Background(), requestID, false)
	require.NoError(t, err)
	assert.Equal(t, model.RequestReady, req.Status)
	assert.Equal(t, []string{"abc"}, req.Results)
}

func TestConsumerIngestResultLeavesRequestInProgressUntilAllTasksDone(t *testing.T) {
	svc, st, br := newTestService()
	requestID, taskIDs := submitFixture(t, svc, 10) // small task size -> multiple tasks
	require.Greater(t, len(taskIDs), 1)

	c := NewResultConsumer(svc, br, zap.NewNop())
	require.NoError(t, c.ingest(context.Background(), model.ResultMessage{
		TaskID:    taskIDs[0],
		RequestID: requestID,
		Status:    model.TaskDone,
	}))

	req, err := st.GetRequest(context.Background(), requestID, false)
	require.NoError(t, err)
	assert.Equal(t, model.RequestInProgress, req.Status)
}
