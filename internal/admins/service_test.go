package admins

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"communifund/platform-backend/internal/apierr"
	"communifund/platform-backend/internal/auth"
	"communifund/platform-backend/internal/config"
	"communifund/platform-backend/internal/donations"
	"communifund/platform-backend/internal/metrics"
	"communifund/platform-backend/internal/notifications"
	"communifund/platform-backend/internal/projects"
	"communifund/platform-backend/internal/users"
	"communifund/platform-backend/internal/verification"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, admin *Admin) error {
	args := m.Called(ctx, admin)
	if admin.ID.IsZero() {
		admin.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*Admin, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Admin), args.Error(1)
}

func (m *MockRepository) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Admin), args.Error(1)
}

func (m *MockRepository) SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

// MockProjectStore is a mock implementation of the ProjectStore interface
type MockProjectStore struct {
	mock.Mock
}

func (m *MockProjectStore) GetByID(ctx context.Context, id primitive.ObjectID) (*projects.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*projects.Project), args.Error(1)
}

func (m *MockProjectStore) List(ctx context.Context, filter projects.Filter) ([]projects.Project, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]projects.Project), args.Get(1).(int64), args.Error(2)
}

func (m *MockProjectStore) Validate(ctx context.Context, id primitive.ObjectID, status string, adminID primitive.ObjectID, reason string) (*projects.Project, error) {
	args := m.Called(ctx, id, status, adminID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*projects.Project), args.Error(1)
}

func (m *MockProjectStore) StatsByStatus(ctx context.Context) ([]projects.StatusCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]projects.StatusCount), args.Error(1)
}

func (m *MockProjectStore) StatsByCategory(ctx context.Context) ([]projects.CategoryCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]projects.CategoryCount), args.Error(1)
}

func (m *MockProjectStore) CreatedDaily(ctx context.Context, since time.Time) ([]projects.DailyCount, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]projects.DailyCount), args.Error(1)
}

// MockDonationStore is a mock implementation of the DonationStore interface
type MockDonationStore struct {
	mock.Mock
}

func (m *MockDonationStore) List(ctx context.Context, filter donations.Filter) ([]donations.Donation, int64, float64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]donations.Donation), args.Get(1).(int64), args.Get(2).(float64), args.Error(3)
}

func (m *MockDonationStore) TotalStats(ctx context.Context) (*donations.Totals, error) {
	args := m.Called(ctx)
	return args.Get(0).(*donations.Totals), args.Error(1)
}

func (m *MockDonationStore) StatsByStatus(ctx context.Context) ([]donations.StatusStats, error) {
	args := m.Called(ctx)
	return args.Get(0).([]donations.StatusStats), args.Error(1)
}

func (m *MockDonationStore) TopProjects(ctx context.Context, limit int) ([]donations.ProjectStats, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]donations.ProjectStats), args.Error(1)
}

// MockUserStore is a mock implementation of the UserStore interface
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, id primitive.ObjectID) (*users.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.User), args.Error(1)
}

// MockVerifierClient is a mock implementation of the verification.Client interface
type MockVerifierClient struct {
	mock.Mock
}

func (m *MockVerifierClient) VerifyProject(ctx context.Context, projectID string) (*verification.Result, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.Result), args.Error(1)
}

func (m *MockVerifierClient) TriggerBulkScoring(ctx context.Context, confidenceThreshold float64) (*verification.BulkResult, error) {
	args := m.Called(ctx, confidenceThreshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.BulkResult), args.Error(1)
}

type serviceMocks struct {
	repo      *MockRepository
	projects  *MockProjectStore
	donations *MockDonationStore
	users     *MockUserStore
	verifier  *MockVerifierClient
}

func newTestService() (Service, *serviceMocks) {
	logger := zap.NewNop()
	mocks := &serviceMocks{
		repo:      new(MockRepository),
		projects:  new(MockProjectStore),
		donations: new(MockDonationStore),
		users:     new(MockUserStore),
		verifier:  new(MockVerifierClient),
	}
	tokens := auth.NewTokenManager(config.AuthConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	service := NewService(mocks.repo, mocks.projects, mocks.donations, mocks.users,
		mocks.verifier, tokens, notifications.NewHub(logger), metrics.New(), logger, 0.5)
	return service, mocks
}

func TestValidateProjectApproves(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()
	adminID := primitive.NewObjectID()
	creatorID := primitive.NewObjectID()
	projectID := primitive.NewObjectID()

	approved := &projects.Project{
		ID:          projectID,
		Creator:     creatorID,
		Status:      projects.StatusApproved,
		ValidatedBy: &adminID,
	}

	mocks.projects.On("Validate", ctx, projectID, projects.StatusApproved, adminID, "").
		Return(approved, nil)
	mocks.users.On("GetByID", ctx, creatorID).
		Return(&users.User{ID: creatorID, Name: "Asha"}, nil)
	mocks.repo.On("GetByID", ctx, adminID).
		Return(&Admin{ID: adminID, Name: "Reviewer"}, nil)

	project, err := service.ValidateProject(ctx, adminID.Hex(), projectID.Hex(),
		ValidateRequest{Status: projects.StatusApproved})

	assert.NoError(t, err)
	assert.Equal(t, projects.StatusApproved, project.Status)
	assert.Equal(t, "Asha", project.CreatorInfo.Name)
	assert.Equal(t, "Reviewer", project.ValidatedByInfo.Name)
	mocks.projects.AssertExpectations(t)
}

func TestValidateProjectRequiresRejectionReason(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()

	project, err := service.ValidateProject(ctx, primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(),
		ValidateRequest{Status: projects.StatusRejected, RejectionReason: "   "})

	assert.Nil(t, project)
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))
	mocks.projects.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestValidateProjectRejectsUnknownStatus(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()

	project, err := service.ValidateProject(ctx, primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(),
		ValidateRequest{Status: "archived"})

	assert.Nil(t, project)
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))
	mocks.projects.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestValidateProjectAlreadyProcessedIsConflict(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()
	adminID := primitive.NewObjectID()
	projectID := primitive.NewObjectID()

	mocks.projects.On("Validate", ctx, projectID, projects.StatusApproved, adminID, "").
		Return(nil, projects.ErrNoMatch)
	mocks.projects.On("GetByID", ctx, projectID).
		Return(&projects.Project{ID: projectID, Status: projects.StatusRejected}, nil)

	project, err := service.ValidateProject(ctx, adminID.Hex(), projectID.Hex(),
		ValidateRequest{Status: projects.StatusApproved})

	assert.Nil(t, project)
	assert.True(t, apierr.IsKind(err, apierr.KindConflict))
	var e *apierr.Error
	assert.ErrorAs(t, err, &e)
	assert.Contains(t, e.Message, "already been rejected")
}

func TestValidateProjectMissingIsNotFound(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()
	adminID := primitive.NewObjectID()
	projectID := primitive.NewObjectID()

	mocks.projects.On("Validate", ctx, projectID, projects.StatusApproved, adminID, "").
		Return(nil, projects.ErrNoMatch)
	mocks.projects.On("GetByID", ctx, projectID).Return(nil, nil)

	project, err := service.ValidateProject(ctx, adminID.Hex(), projectID.Hex(),
		ValidateRequest{Status: projects.StatusApproved})

	assert.Nil(t, project)
	assert.True(t, apierr.IsKind(err, apierr.KindNotFound))
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()

	mocks.repo.On("GetByEmail", ctx, "admin@example.com").
		Return(&Admin{Email: "admin@example.com"}, nil)

	result, err := service.Register(ctx, RegisterRequest{
		Name:     "Reviewer",
		Email:    "admin@example.com",
		Password: "longenough",
	})

	assert.Nil(t, result)
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))
	mocks.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRunBulkVerificationPassesThreshold(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()

	mocks.verifier.On("TriggerBulkScoring", ctx, 0.5).
		Return(&verification.BulkResult{Processed: 7, Approved: 3}, nil)

	result, err := service.RunBulkVerification(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 7, result.Processed)
	assert.Equal(t, 3, result.Approved)
	mocks.verifier.AssertExpectations(t)
}

func TestExportDonationsCSV(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()

	rows := []donations.Donation{
		{
			Donor:     primitive.NewObjectID(),
			Project:   primitive.NewObjectID(),
			Amount:    250,
			Currency:  "INR",
			OrderID:   "order_abc",
			Status:    donations.StatusSuccess,
			PaymentID: "pay_123",
			CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		},
	}
	mocks.donations.On("List", ctx, mock.AnythingOfType("donations.Filter")).
		Return(rows, int64(1), 250.0, nil)

	data, contentType, err := service.ExportDonations(ctx, donations.Filter{}, "csv")

	assert.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "Order ID,Donor,Project,Amount,Currency,Status,Payment ID,Created At"))
	assert.Contains(t, text, "order_abc")
	assert.Contains(t, text, "250.00")
}

func TestExportDonationsRejectsUnknownFormat(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()

	mocks.donations.On("List", ctx, mock.AnythingOfType("donations.Filter")).
		Return([]donations.Donation{}, int64(0), 0.0, nil)

	data, contentType, err := service.ExportDonations(ctx, donations.Filter{}, "pdf")

	assert.Nil(t, data)
	assert.Empty(t, contentType)
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))
}
