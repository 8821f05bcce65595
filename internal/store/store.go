// Package store defines the replicated document-store abstraction the
// manager uses for requests and tasks, and a MongoDB-backed
// implementation of it.
package store

import (
	"context"

	"github.com/antonlukisha/md5-cracker/internal/model"
)

// Store is the persistence boundary the manager depends on. It is an
// interface so the manager's tests can substitute an in-memory fake
// instead of a live MongoDB replica set.
type Store interface {
	EnsureIndexes(ctx context.Context) error
	Ping(ctx context.Context) error

	InsertRequest(ctx context.Context, req model.Request) error
	InsertTasks(ctx context.Context, tasks []model.Task) error

	GetRequest(ctx context.Context, requestID string, preferSecondary bool) (*model.Request, error)

	UpdateTaskResult(ctx context.Context, taskID string, status model.TaskStatus, results []string) error
	UpdateTaskStatus(ctx context.Context, taskID string, status model.TaskStatus) error

	AppendRequestResults(ctx context.Context, requestID string, results []string) error
	CountTasksByRequest(ctx context.Context, requestID string, statuses ...model.TaskStatus) (int64, error)
	TryCompleteRequest(ctx context.Context, requestID string) (bool, error)

	FailedTasks(ctx context.Context) ([]model.Task, error)
	ClearRetryFlag(ctx context.Context, taskID string) error

	CountRequestsByStatus(ctx context.Context) (map[model.RequestStatus]int64, error)
	CountTasksByStatus(ctx context.Context) (map[model.TaskStatus]int64, error)

	Close(ctx context.Context) error
}

// ErrNotFound is returned by GetRequest when no document matches.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "store: not found" }
