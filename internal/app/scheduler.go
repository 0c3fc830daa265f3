package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultSweepInterval = 5 * time.Minute

// Sweeper drops expired entries; cache.Memory implements it.
type Sweeper interface {
	Sweep() int
}

// Scheduler runs background maintenance tasks.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	done     sync.WaitGroup
}

func NewScheduler(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	if s.sweeper == nil {
		s.logger.Info("No memory cache in use, scheduler idle")
		return
	}
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	s.done.Add(1)
	go s.runSweepTask(ctx)
}

// Stop signals the tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.done.Wait()
}

func (s *Scheduler) runSweepTask(ctx context.Context) {
	defer s.done.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.sweeper.Sweep(); n > 0 {
				s.logger.Debug("Expired cache entries removed", zap.Int("count", n))
			}
		case <-s.stopChan:
			s.logger.Info("Cache sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Cache sweep task cancelled")
			return
		}
	}
}
