package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"communifund/platform-backend/internal/projects"
)

// PendingLister finds pending projects the verifier has not scored yet.
type PendingLister interface {
	FindUnscoredPending(ctx context.Context, limit int) ([]projects.Project, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*projects.Project, error)
}

// Scheduler periodically re-attempts verification of projects the
// synchronous creation-time call missed (verifier down, timeout).
type Scheduler struct {
	workflow  *Workflow
	repo      PendingLister
	logger    *zap.Logger
	interval  time.Duration
	batchSize int
	cron      *cron.Cron
}

func NewScheduler(workflow *Workflow, repo PendingLister, logger *zap.Logger, interval time.Duration, batchSize int) *Scheduler {
	return &Scheduler{
		workflow:  workflow,
		repo:      repo,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		cron:      cron.New(),
	}
}

// Start registers the sweep and begins the cron loop.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return fmt.Errorf("schedule verification sweep: %w", err)
	}
	s.cron.Start()
	s.logger.Info("verification sweep scheduled", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	batch, err := s.repo.FindUnscoredPending(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("verification sweep failed to list pending projects", zap.Error(err))
		return
	}
	if len(batch) == 0 {
		return
	}

	s.logger.Info("verification sweep starting", zap.Int("projects", len(batch)))
	for i := range batch {
		s.workflow.Run(ctx, &batch[i])
	}
}
