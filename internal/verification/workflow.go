package verification

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"communifund/platform-backend/internal/metrics"
	"communifund/platform-backend/internal/notifications"
	"communifund/platform-backend/internal/projects"
)

// ProjectStore is the slice of the project repository the workflow writes
// through. Both methods are conditional on pending status, so a project
// decided elsewhere in the meantime is left untouched.
type ProjectStore interface {
	ApplyAutoApproval(ctx context.Context, id primitive.ObjectID, confidence float64, notes string, at time.Time) (*projects.Project, error)
	StoreVerificationScore(ctx context.Context, id primitive.ObjectID, confidence float64, notes string) (*projects.Project, error)
}

// Workflow decides whether a freshly created project can be auto-approved.
type Workflow struct {
	client    Client
	store     ProjectStore
	hub       *notifications.Hub
	metrics   *metrics.Metrics
	logger    *zap.Logger
	threshold float64
	timeout   time.Duration
}

func NewWorkflow(
	client Client,
	store ProjectStore,
	hub *notifications.Hub,
	m *metrics.Metrics,
	logger *zap.Logger,
	threshold float64,
	timeout time.Duration,
) *Workflow {
	return &Workflow{
		client:    client,
		store:     store,
		hub:       hub,
		metrics:   m,
		logger:    logger,
		threshold: threshold,
		timeout:   timeout,
	}
}

// Run scores the project and applies the approval policy. It never returns
// an error: any verifier failure degrades to "no verification performed"
// and the project is returned unchanged for manual review later. Exactly
// one store write happens on a successful scoring.
func (w *Workflow) Run(ctx context.Context, project *projects.Project) *projects.Project {
	if project.Status != projects.StatusPending {
		w.logger.Warn("skipping verification of non-pending project",
			zap.String("project", project.ID.Hex()),
			zap.String("status", project.Status))
		return project
	}

	callCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	result, err := w.client.VerifyProject(callCtx, project.ID.Hex())
	if err != nil {
		w.metrics.VerifierFailures.Inc()
		w.logger.Warn("AI verification skipped",
			zap.String("project", project.ID.Hex()),
			zap.Error(err))
		return project
	}

	if result.Prediction == PredictionApprove && result.Confidence >= w.threshold {
		updated, err := w.store.ApplyAutoApproval(ctx, project.ID, result.Confidence, result.Notes, time.Now())
		if err != nil {
			if errors.Is(err, projects.ErrNoMatch) {
				// Decided by a human in the window between creation and now.
				w.logger.Info("project already processed, auto-approval dropped",
					zap.String("project", project.ID.Hex()))
				return project
			}
			w.logger.Error("failed to apply auto-approval",
				zap.String("project", project.ID.Hex()),
				zap.Error(err))
			return project
		}

		w.metrics.VerificationOutcomes.WithLabelValues("approved").Inc()
		w.hub.Publish(notifications.NewEvent(notifications.EventProjectApproved, map[string]interface{}{
			"projectId":  updated.ID.Hex(),
			"title":      updated.Title,
			"confidence": result.Confidence,
		}))
		w.logger.Info("project auto-approved",
			zap.String("project", updated.ID.Hex()),
			zap.Float64("confidence", result.Confidence))
		return updated
	}

	// A low-confidence approval or any rejection prediction keeps the
	// project pending; the score is stored for the human reviewer.
	updated, err := w.store.StoreVerificationScore(ctx, project.ID, result.Confidence, result.Notes)
	if err != nil {
		if !errors.Is(err, projects.ErrNoMatch) {
			w.logger.Error("failed to store verification score",
				zap.String("project", project.ID.Hex()),
				zap.Error(err))
		}
		return project
	}

	w.metrics.VerificationOutcomes.WithLabelValues("pending").Inc()
	w.logger.Info("project kept pending after scoring",
		zap.String("project", updated.ID.Hex()),
		zap.Int("prediction", result.Prediction),
		zap.Float64("confidence", result.Confidence))
	return updated
}
