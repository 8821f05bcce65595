package model

import "time"

// TaskStatus is the lifecycle state of one partition of a request's
// search space.
type TaskStatus string

const (
	TaskPending TaskStatus = "PENDING"
	TaskQueued  TaskStatus = "QUEUED"
	TaskDone    TaskStatus = "DONE"
	TaskError   TaskStatus = "ERROR"
)

// IsTerminal reports whether status is one the completion check counts
// against a request's task total.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskDone || s == TaskError
}

// Task is a contiguous half-open range [StartIndex, StartIndex+Count) of
// global indices within one request's search space.
type Task struct {
	TaskID      string     `json:"taskId" bson:"taskId"`
	RequestID   string     `json:"requestId" bson:"requestId"`
	StartIndex  uint64     `json:"startIndex" bson:"startIndex"`
	Count       uint64     `json:"count" bson:"count"`
	TargetHash  string     `json:"targetHash" bson:"targetHash"`
	MaxLength   int        `json:"maxLength" bson:"maxLength"`
	Status      TaskStatus `json:"status" bson:"status"`
	Results     []string   `json:"results" bson:"results"`
	NeedsRetry  bool       `json:"needs_retry" bson:"needs_retry"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// NewTask builds a fresh, pending task for one partition of a request.
func NewTask(id, requestID string, startIndex, count uint64, targetHash string, maxLength int, now time.Time) Task {
	return Task{
		TaskID:     id,
		RequestID:  requestID,
		StartIndex: startIndex,
		Count:      count,
		TargetHash: targetHash,
		MaxLength:  maxLength,
		Status:     TaskPending,
		Results:    []string{},
		CreatedAt:  now,
	}
}

// ToMessage produces the denormalized payload a worker needs to process
// this task without a state-store lookup.
func (t Task) ToMessage() TaskMessage {
	return TaskMessage{
		TaskID:     t.TaskID,
		RequestID:  t.RequestID,
		StartIndex: t.StartIndex,
		Count:      t.Count,
		TargetHash: t.TargetHash,
		MaxLength:  t.MaxLength,
	}
}

// TaskMessage is the task.queue payload.
type TaskMessage struct {
	TaskID     string `json:"taskId"`
	RequestID  string `json:"requestId"`
	StartIndex uint64 `json:"startIndex"`
	Count      uint64 `json:"count"`
	TargetHash string `json:"targetHash"`
	MaxLength  int    `json:"maxLength"`
}

// ResultMessage is the result.queue payload.
type ResultMessage struct {
	TaskID    string     `json:"taskId"`
	RequestID string     `json:"requestId"`
	Status    TaskStatus `json:"status"`
	Results   []string   `json:"results"`
}
