package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"communifund/platform-backend/internal/apierr"
	"communifund/platform-backend/internal/metrics"
	"communifund/platform-backend/internal/notifications"
	"communifund/platform-backend/internal/projects"
)

// MockClient is a mock implementation of the Client interface
type MockClient struct {
	mock.Mock
}

func (m *MockClient) VerifyProject(ctx context.Context, projectID string) (*Result, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func (m *MockClient) TriggerBulkScoring(ctx context.Context, confidenceThreshold float64) (*BulkResult, error) {
	args := m.Called(ctx, confidenceThreshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BulkResult), args.Error(1)
}

// MockProjectStore is a mock implementation of the ProjectStore interface
type MockProjectStore struct {
	mock.Mock
}

func (m *MockProjectStore) ApplyAutoApproval(ctx context.Context, id primitive.ObjectID, confidence float64, notes string, at time.Time) (*projects.Project, error) {
	args := m.Called(ctx, id, confidence, notes, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*projects.Project), args.Error(1)
}

func (m *MockProjectStore) StoreVerificationScore(ctx context.Context, id primitive.ObjectID, confidence float64, notes string) (*projects.Project, error) {
	args := m.Called(ctx, id, confidence, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*projects.Project), args.Error(1)
}

func newTestWorkflow(client Client, store ProjectStore) *Workflow {
	logger := zap.NewNop()
	return NewWorkflow(client, store, notifications.NewHub(logger), metrics.New(), logger, 0.5, time.Second)
}

func pendingProject() *projects.Project {
	return &projects.Project{
		ID:     primitive.NewObjectID(),
		Title:  "Clean water wells",
		Status: projects.StatusPending,
	}
}

func TestRunAutoApprovesConfidentApproval(t *testing.T) {
	mockClient := new(MockClient)
	mockStore := new(MockProjectStore)
	workflow := newTestWorkflow(mockClient, mockStore)

	project := pendingProject()
	approved := *project
	approved.Status = projects.StatusApproved
	approved.AutoVerified = true

	mockClient.On("VerifyProject", mock.Anything, project.ID.Hex()).
		Return(&Result{Prediction: PredictionApprove, Confidence: 0.75, Notes: "looks legitimate"}, nil)
	mockStore.On("ApplyAutoApproval", mock.Anything, project.ID, 0.75, "looks legitimate", mock.AnythingOfType("time.Time")).
		Return(&approved, nil)

	result := workflow.Run(context.Background(), project)

	assert.Equal(t, projects.StatusApproved, result.Status)
	assert.True(t, result.AutoVerified)
	mockClient.AssertExpectations(t)
	mockStore.AssertExpectations(t)
}

func TestRunKeepsLowConfidenceApprovalPending(t *testing.T) {
	mockClient := new(MockClient)
	mockStore := new(MockProjectStore)
	workflow := newTestWorkflow(mockClient, mockStore)

	project := pendingProject()
	scored := *project
	confidence := 0.49
	scored.VerificationConfidence = &confidence

	mockClient.On("VerifyProject", mock.Anything, project.ID.Hex()).
		Return(&Result{Prediction: PredictionApprove, Confidence: 0.49}, nil)
	mockStore.On("StoreVerificationScore", mock.Anything, project.ID, 0.49, "").
		Return(&scored, nil)

	result := workflow.Run(context.Background(), project)

	assert.Equal(t, projects.StatusPending, result.Status)
	assert.False(t, result.AutoVerified)
	mockStore.AssertNotCalled(t, "ApplyAutoApproval", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockClient.AssertExpectations(t)
	mockStore.AssertExpectations(t)
}

func TestRunKeepsRejectionPredictionPending(t *testing.T) {
	mockClient := new(MockClient)
	mockStore := new(MockProjectStore)
	workflow := newTestWorkflow(mockClient, mockStore)

	project := pendingProject()
	scored := *project

	// Even a very confident rejection prediction never rejects; it only
	// records the score for a human reviewer.
	mockClient.On("VerifyProject", mock.Anything, project.ID.Hex()).
		Return(&Result{Prediction: PredictionReject, Confidence: 0.99}, nil)
	mockStore.On("StoreVerificationScore", mock.Anything, project.ID, 0.99, "").
		Return(&scored, nil)

	result := workflow.Run(context.Background(), project)

	assert.Equal(t, projects.StatusPending, result.Status)
	mockStore.AssertNotCalled(t, "ApplyAutoApproval", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockClient.AssertExpectations(t)
	mockStore.AssertExpectations(t)
}

func TestRunReturnsUnchangedProjectOnVerifierFailure(t *testing.T) {
	mockClient := new(MockClient)
	mockStore := new(MockProjectStore)
	workflow := newTestWorkflow(mockClient, mockStore)

	project := pendingProject()

	mockClient.On("VerifyProject", mock.Anything, project.ID.Hex()).
		Return(nil, apierr.External("AI verifier unreachable", errors.New("connection refused")))

	result := workflow.Run(context.Background(), project)

	assert.Equal(t, project, result)
	assert.Equal(t, projects.StatusPending, result.Status)
	assert.Nil(t, result.VerificationConfidence)
	mockStore.AssertNotCalled(t, "ApplyAutoApproval", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockStore.AssertNotCalled(t, "StoreVerificationScore", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockClient.AssertExpectations(t)
}

func TestRunDropsApprovalWhenProjectAlreadyDecided(t *testing.T) {
	mockClient := new(MockClient)
	mockStore := new(MockProjectStore)
	workflow := newTestWorkflow(mockClient, mockStore)

	project := pendingProject()

	mockClient.On("VerifyProject", mock.Anything, project.ID.Hex()).
		Return(&Result{Prediction: PredictionApprove, Confidence: 0.9}, nil)
	mockStore.On("ApplyAutoApproval", mock.Anything, project.ID, 0.9, "", mock.AnythingOfType("time.Time")).
		Return(nil, projects.ErrNoMatch)

	result := workflow.Run(context.Background(), project)

	assert.Equal(t, project, result)
	mockClient.AssertExpectations(t)
	mockStore.AssertExpectations(t)
}

func TestRunSkipsNonPendingProject(t *testing.T) {
	mockClient := new(MockClient)
	mockStore := new(MockProjectStore)
	workflow := newTestWorkflow(mockClient, mockStore)

	project := pendingProject()
	project.Status = projects.StatusApproved

	result := workflow.Run(context.Background(), project)

	assert.Equal(t, project, result)
	mockClient.AssertNotCalled(t, "VerifyProject", mock.Anything, mock.Anything)
}
