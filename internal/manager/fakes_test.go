package manager

import (
	"context"
	"sync"

	"github.com/antonlukisha/md5-cracker/internal/broker"
	"github.com/antonlukisha/md5-cracker/internal/model"
	"github.com/antonlukisha/md5-cracker/internal/store"
)

// fakeStore is an in-memory Store used so manager tests exercise real
// idempotency semantics (conditional completion, set-union results)
// without a live MongoDB replica set.
type fakeStore struct {
	mu       sync.Mutex
	requests map[string]model.Request
	tasks    map[string]model.Task
}

func newFakeStore() *fakeStore {
	return &fakeStore{requests: map[string]model.Request{}, tasks: map[string]model.Task{}}
}

func (f *fakeStore) EnsureIndexes(ctx context.Context) error { return nil }
func (f *fakeStore) Ping(ctx context.Context) error          { return nil }

func (f *fakeStore) InsertRequest(ctx context.Context, req model.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[req.RequestID] = req
	return nil
}

func (f *fakeStore) InsertTasks(ctx context.Context, tasks []model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tasks {
		f.tasks[t.TaskID] = t
	}
	return nil
}

func (f *fakeStore) GetRequest(ctx context.Context, requestID string, preferSecondary bool) (*model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := req
	return &cp, nil
}

func (f *fakeStore) UpdateTaskResult(ctx context.Context, taskID string, status model.TaskStatus, results []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return store.ErrNotFound
	}
	t.Status = status
	if len(results) > 0 {
		t.Results = results
	}
	f.tasks[taskID] = t
	return nil
}

func (f *fakeStore) UpdateTaskStatus(ctx context.Context, taskID string, status model.TaskStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return store.ErrNotFound
	}
	t.Status = status
	if status == model.TaskQueued {
		t.NeedsRetry = true
	}
	f.tasks[taskID] = t
	return nil
}

func (f *fakeStore) AppendRequestResults(ctx context.Context, requestID string, results []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok {
		return store.ErrNotFound
	}
	existing := map[string]bool{}
	for _, r := range req.Results {
		existing[r] = true
	}
	for _, r := range results {
		if !existing[r] {
			req.Results = append(req.Results, r)
			existing[r] = true
		}
	}
	f.requests[requestID] = req
	return nil
}

func (f *fakeStore) CountTasksByRequest(ctx context.Context, requestID string, statuses ...model.TaskStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var want map[model.TaskStatus]bool
	if len(statuses) > 0 {
		want = map[model.TaskStatus]bool{}
		for _, s := range statuses {
			want[s] = true
		}
	}
	var n int64
	for _, t := range f.tasks {
		if t.RequestID != requestID {
			continue
		}
		if want != nil && !want[t.Status] {
			continue
		}
		n++
	}
	return n, nil
}

func (f *fakeStore) TryCompleteRequest(ctx context.Context, requestID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok {
		return false, store.ErrNotFound
	}
	if req.Status != model.RequestInProgress {
		return false, nil
	}
	req.Status = model.RequestReady
	f.requests[requestID] = req
	return true, nil
}

func (f *fakeStore) FailedTasks(ctx context.Context) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, t := range f.tasks {
		if t.NeedsRetry && t.Status == model.TaskQueued {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ClearRetryFlag(ctx context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return store.ErrNotFound
	}
	t.NeedsRetry = false
	f.tasks[taskID] = t
	return nil
}

func (f *fakeStore) CountRequestsByStatus(ctx context.Context) (map[model.RequestStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[model.RequestStatus]int64{}
	for _, r := range f.requests {
		counts[r.Status]++
	}
	return counts, nil
}

func (f *fakeStore) CountTasksByStatus(ctx context.Context) (map[model.TaskStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[model.TaskStatus]int64{}
	for _, t := range f.tasks {
		counts[t.Status]++
	}
	return counts, nil
}

func (f *fakeStore) Close(ctx context.Context) error { return nil }

// fakeBroker is an in-memory Broker. failNextPublish lets tests force a
// single publish failure to exercise the sweeper path.
type fakeBroker struct {
	mu              sync.Mutex
	tasks           []model.TaskMessage
	results         []model.ResultMessage
	failNextPublish bool
}

func newFakeBroker() *fakeBroker { return &fakeBroker{} }

func (b *fakeBroker) PublishTask(ctx context.Context, msg model.TaskMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNextPublish {
		b.failNextPublish = false
		return errPublishFailed
	}
	b.tasks = append(b.tasks, msg)
	return nil
}

func (b *fakeBroker) PublishResult(ctx context.Context, msg model.ResultMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, msg)
	return nil
}

func (b *fakeBroker) ConsumeTasks(ctx context.Context) (<-chan broker.Delivery, error) {
	ch := make(chan broker.Delivery)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (b *fakeBroker) ConsumeResults(ctx context.Context) (<-chan broker.Delivery, error) {
	ch := make(chan broker.Delivery)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (b *fakeBroker) Ping(ctx context.Context) error { return nil }
func (b *fakeBroker) Close() error                   { return nil }

type errString string

func (e errString) Error() string { return string(e) }

const errPublishFailed = errString("publish failed")
