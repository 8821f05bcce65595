// Package worker implements the task-processing side: matching candidates
// in a task's range against the target hash, and the task.queue consume
// loop that drives it.
package worker

import (
	"time"

	"github.com/antonlukisha/md5-cracker/internal/model"
	"github.com/antonlukisha/md5-cracker/internal/search"
)

// Processor turns a TaskMessage into a ResultMessage by brute-forcing
// every candidate in the task's range.
type Processor struct {
	now func() time.Time
}

// NewProcessor builds a Processor.
func NewProcessor() *Processor {
	return &Processor{now: time.Now}
}

// Process iterates every candidate in msg's range, in length-major,
// lexicographic order, returning every match plus the combinations/sec
// throughput observed for this task. Throughput is derived from elapsed
// wall-clock time around the loop, not recomputed per candidate: spec.md's
// Open Question about throughput accounting resolves to this elapsed-time
// measure rather than timestamping every single candidate.
func (p *Processor) Process(msg model.TaskMessage) (model.ResultMessage, float64) {
	start := p.now()

	r := search.Range{Start: msg.StartIndex, Count: msg.Count}
	var matches []string

	err := r.Each(msg.MaxLength, func(_ uint64, candidate string) error {
		if search.Matches(candidate, msg.TargetHash) {
			matches = append(matches, candidate)
		}
		return nil
	})

	elapsed := p.now().Sub(start).Seconds()
	var combinationsPerSecond float64
	if elapsed > 0 {
		combinationsPerSecond = float64(msg.Count) / elapsed
	}

	status := model.TaskDone
	if err != nil {
		status = model.TaskError
	}

	return model.ResultMessage{
		TaskID:    msg.TaskID,
		RequestID: msg.RequestID,
		Status:    status,
		Results:   matches,
	}, combinationsPerSecond
}
