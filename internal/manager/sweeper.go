package manager

import (
	"context"
	"sync"
	"time"

	"github.com/antonlukisha/md5-cracker/internal/metrics"
	"go.uber.org/zap"
)

// Sweeper periodically re-publishes tasks that were persisted as
// QUEUED/needs_retry because their original publish attempt failed, per
// spec.md §4.4.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	logger   *zap.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewSweeper builds a Sweeper running every interval.
func NewSweeper(svc *Service, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{svc: svc, interval: interval, logger: logger, stop: make(chan struct{})}
}

// Start launches the sweeper's ticking loop in a background goroutine. It
// returns immediately; call Stop to end the loop.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop ends the sweeper loop and waits for the in-flight sweep, if any, to
// finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Sweeper) sweep(ctx context.Context) {
	tasks, err := s.svc.store.FailedTasks(ctx)
	if err != nil {
		s.logger.Error("sweeper: failed to list retry candidates", zap.Error(err))
		return
	}
	if len(tasks) == 0 {
		return
	}

	s.logger.Info("sweeper: republishing tasks", zap.Int("count", len(tasks)))
	for _, t := range tasks {
		if err := s.svc.broker.PublishTask(ctx, t.ToMessage()); err != nil {
			s.logger.Warn("sweeper: republish failed, will retry next sweep",
				zap.String("taskId", t.TaskID), zap.Error(err))
			continue
		}
		if err := s.svc.store.ClearRetryFlag(ctx, t.TaskID); err != nil {
			s.logger.Error("sweeper: failed to clear retry flag", zap.String("taskId", t.TaskID), zap.Error(err))
			continue
		}
		metrics.SweeperRepublishedTotal.Inc()
	}
}
