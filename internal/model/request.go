// Package model defines the persisted entities and wire message shapes
// shared by the manager and worker.
package model

import "time"

// RequestStatus is the terminal/non-terminal state of a Request.
type RequestStatus string

const (
	RequestInProgress RequestStatus = "IN_PROGRESS"
	RequestReady      RequestStatus = "READY"
	RequestError      RequestStatus = "ERROR"
)

// Request is one client submission: a target hash and an upper length
// bound, plus the preimages discovered so far.
type Request struct {
	RequestID   string        `json:"requestId" bson:"requestId"`
	Hash        string        `json:"hash" bson:"hash"`
	MaxLength   int           `json:"maxLength" bson:"maxLength"`
	Status      RequestStatus `json:"status" bson:"status"`
	Results     []string      `json:"results" bson:"results"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" bson:"updated_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// NewRequest builds a fresh, in-progress request. hash is expected to
// already be validated and lowercased by the caller.
func NewRequest(id, hash string, maxLength int, now time.Time) Request {
	return Request{
		RequestID: id,
		Hash:      hash,
		MaxLength: maxLength,
		Status:    RequestInProgress,
		Results:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
