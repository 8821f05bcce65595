// Package manager implements the coordination plane: submission,
// partitioning, result ingestion, request completion, the retry sweeper,
// and the HTTP surface that exposes them.
package manager

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/antonlukisha/md5-cracker/internal/apperr"
	"github.com/antonlukisha/md5-cracker/internal/broker"
	"github.com/antonlukisha/md5-cracker/internal/config"
	"github.com/antonlukisha/md5-cracker/internal/metrics"
	"github.com/antonlukisha/md5-cracker/internal/model"
	"github.com/antonlukisha/md5-cracker/internal/search"
	"github.com/antonlukisha/md5-cracker/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// Service is the manager's business logic, independent of HTTP framing.
// Every collaborator is passed in explicitly rather than reached through
// a package-level global, per spec.md §9.
type Service struct {
	store  store.Store
	broker broker.Broker
	cfg    config.Config
	logger *zap.Logger

	now func() time.Time

	sweeper        *Sweeper
	consumer       *ResultConsumer
	consumerCancel context.CancelFunc
	consumerDone   chan struct{}
}

// New builds a Service over the given store and broker.
func New(s store.Store, b broker.Broker, cfg config.Config, logger *zap.Logger) *Service {
	return &Service{store: s, broker: b, cfg: cfg, logger: logger, now: time.Now}
}

// Start launches the service's background collaborators: the retry
// sweeper and the result.queue consumer. It returns immediately; call
// Shutdown to stop them.
func (s *Service) Start(ctx context.Context) {
	s.sweeper = NewSweeper(s, s.cfg.SweeperInterval, s.logger)
	s.sweeper.Start(ctx)

	consumerCtx, cancel := context.WithCancel(ctx)
	s.consumerCancel = cancel
	s.consumerDone = make(chan struct{})
	s.consumer = NewResultConsumer(s, s.broker, s.logger)

	go func() {
		defer close(s.consumerDone)
		if err := s.consumer.Run(consumerCtx); err != nil && err != context.Canceled {
			s.logger.Error("result consumer exited with error", zap.Error(err))
		}
	}()
}

// Shutdown stops the sweeper, cancels the result consumer, and waits for
// its in-flight delivery (if any) to finish handling before returning, per
// spec.md §5's shutdown operation. It is safe to call even if Start was
// never called.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	if s.consumerCancel == nil {
		return nil
	}
	s.consumerCancel()

	select {
	case <-s.consumerDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StatusResult is the payload GetStatus returns; Progress and Results are
// populated only for the status they're relevant to.
type StatusResult struct {
	Status   model.RequestStatus
	Progress int
	Results  []string
}

// Submit validates the request, partitions the search space, persists the
// request and its tasks, and attempts to publish each task. Publish
// failures are parked as QUEUED/needs_retry for the sweeper to recover;
// submission is still reported successful in that case, per spec.md §4.2.
func (s *Service) Submit(ctx context.Context, hash string, maxLength int) (string, error) {
	normalizedHash, err := s.validateHash(hash)
	if err != nil {
		return "", err
	}
	if err := s.validateMaxLength(maxLength); err != nil {
		return "", err
	}

	requestID := uuid.NewString()
	now := s.now().UTC()
	req := model.NewRequest(requestID, normalizedHash, maxLength, now)

	if err := s.store.InsertRequest(ctx, req); err != nil {
		return "", apperr.Internal("failed to persist request", err)
	}

	ranges, err := search.Partition(maxLength, s.cfg.TaskSize)
	if err != nil {
		return "", apperr.Internal("failed to partition search space", err)
	}

	tasks := make([]model.Task, 0, len(ranges))
	for _, r := range ranges {
		tasks = append(tasks, model.NewTask(uuid.NewString(), requestID, r.Start, r.Count, normalizedHash, maxLength, now))
	}

	if len(tasks) > 0 {
		if err := s.store.InsertTasks(ctx, tasks); err != nil {
			return "", apperr.Internal("failed to persist tasks", err)
		}
	}

	for i := range tasks {
		if err := s.broker.PublishTask(ctx, tasks[i].ToMessage()); err != nil {
			s.logger.Warn("failed to publish task at submission, parking for sweeper",
				zap.String("taskId", tasks[i].TaskID), zap.Error(err))
			metrics.TaskPublishFailuresTotal.Inc()
			if uerr := s.store.UpdateTaskStatus(ctx, tasks[i].TaskID, model.TaskQueued); uerr != nil {
				s.logger.Error("failed to mark task for retry", zap.String("taskId", tasks[i].TaskID), zap.Error(uerr))
			}
		}
	}

	metrics.CrackRequestsTotal.Inc()
	return requestID, nil
}

// GetStatus reports a request's current status, computing progress for
// in-progress requests and returning accumulated results for ready ones.
func (s *Service) GetStatus(ctx context.Context, requestID string) (*StatusResult, error) {
	metrics.StatusRequestsTotal.Inc()

	req, err := s.store.GetRequest(ctx, requestID, true)
	if err == store.ErrNotFound {
		return nil, apperr.NotFound("request not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load request", err)
	}

	switch req.Status {
	case model.RequestInProgress:
		total, err := s.store.CountTasksByRequest(ctx, requestID)
		if err != nil {
			return nil, apperr.Internal("failed to count tasks", err)
		}
		if total == 0 {
			return &StatusResult{Status: model.RequestInProgress}, nil
		}
		done, err := s.store.CountTasksByRequest(ctx, requestID, model.TaskDone)
		if err != nil {
			return nil, apperr.Internal("failed to count done tasks", err)
		}
		progress := int(100 * done / total)
		return &StatusResult{Status: model.RequestInProgress, Progress: progress}, nil

	case model.RequestReady:
		results := req.Results
		if results == nil {
			results = []string{}
		}
		return &StatusResult{Status: model.RequestReady, Results: results}, nil

	default: // model.RequestError
		return &StatusResult{Status: model.RequestError}, nil
	}
}

// ComponentHealth reports whether the store and broker collaborators are
// reachable.
type ComponentHealth struct {
	Healthy    bool
	Components map[string]string
}

// Health probes both collaborators and reports component-wise health.
func (s *Service) Health(ctx context.Context) ComponentHealth {
	h := ComponentHealth{Healthy: true, Components: map[string]string{}}

	if err := s.store.Ping(ctx); err != nil {
		h.Healthy = false
		h.Components["mongodb"] = fmt.Sprintf("unhealthy: %v", err)
	} else {
		h.Components["mongodb"] = "healthy"
	}

	if err := s.broker.Ping(ctx); err != nil {
		h.Healthy = false
		h.Components["rabbitmq"] = fmt.Sprintf("unhealthy: %v", err)
	} else {
		h.Components["rabbitmq"] = "healthy"
	}

	return h
}

// ManagerMetrics is the /metrics/manager payload: counts of requests and
// tasks by status.
type ManagerMetrics struct {
	Requests map[model.RequestStatus]int64
	Tasks    map[model.TaskStatus]int64
}

// Metrics returns request/task counts by status.
func (s *Service) Metrics(ctx context.Context) (*ManagerMetrics, error) {
	reqCounts, err := s.store.CountRequestsByStatus(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to count requests", err)
	}
	taskCounts, err := s.store.CountTasksByStatus(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to count tasks", err)
	}
	return &ManagerMetrics{Requests: reqCounts, Tasks: taskCounts}, nil
}

func (s *Service) validateHash(hash string) (string, error) {
	if len(hash) != s.cfg.MaxHashLength {
		return "", apperr.Validation(fmt.Sprintf("hash must be %d hex characters", s.cfg.MaxHashLength))
	}
	if !hexPattern.MatchString(hash) {
		return "", apperr.Validation("hash must be hexadecimal")
	}
	return strings.ToLower(hash), nil
}

func (s *Service) validateMaxLength(maxLength int) error {
	if maxLength < s.cfg.MinAllowedLength || maxLength > s.cfg.MaxAllowedLength {
		return apperr.Validation(fmt.Sprintf("maxLength must be between %d and %d", s.cfg.MinAllowedLength, s.cfg.MaxAllowedLength))
	}
	return nil
}
