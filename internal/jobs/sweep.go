package jobs

import (
	"brandwatch/internal/logging"
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically queues a scan-unverified job
type Sweeper struct {
	cron   *cron.Cron
	orch   *Orchestrator
	spec   string
	logger logging.Logger
}

// NewSweeper creates a sweeper; spec accepts cron expressions and descriptors like "@every 5m"
func NewSweeper(orch *Orchestrator, spec string, logger logging.Logger) *Sweeper {
	return &Sweeper{
		cron:   cron.New(),
		orch:   orch,
		spec:   spec,
		logger: logger,
	}
}

// Start registers the schedule and starts the cron runner
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.tick)
	if err != nil {
		return fmt.Errorf("add sweep schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.spec).Info("Unverified threat sweep scheduled")
	return nil
}

func (s *Sweeper) tick() {
	queued, err := s.orch.EnqueueScan(context.Background())
	if err != nil {
		s.logger.WithError(err).Warn("Failed to queue unverified threat scan")
		return
	}
	if !queued {
		s.logger.Debug("Unverified threat scan already pending")
	}
}

// Stop waits for a running tick to finish or ctx to expire
func (s *Sweeper) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
