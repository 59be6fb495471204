package projects

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"communifund/platform-backend/internal/apierr"
	"communifund/platform-backend/internal/metrics"
	"communifund/platform-backend/internal/notifications"
	"communifund/platform-backend/internal/users"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, project *Project) error {
	args := m.Called(ctx, project)
	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Project), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter Filter) ([]Project, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]Project), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) (*Project, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Project), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) AddImage(ctx context.Context, id primitive.ObjectID, ref string) error {
	args := m.Called(ctx, id, ref)
	return args.Error(0)
}

func (m *MockRepository) ApplyAutoApproval(ctx context.Context, id primitive.ObjectID, confidence float64, notes string, at time.Time) (*Project, error) {
	args := m.Called(ctx, id, confidence, notes, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Project), args.Error(1)
}

func (m *MockRepository) StoreVerificationScore(ctx context.Context, id primitive.ObjectID, confidence float64, notes string) (*Project, error) {
	args := m.Called(ctx, id, confidence, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Project), args.Error(1)
}

func (m *MockRepository) Validate(ctx context.Context, id primitive.ObjectID, status string, adminID primitive.ObjectID, reason string) (*Project, error) {
	args := m.Called(ctx, id, status, adminID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Project), args.Error(1)
}

func (m *MockRepository) IncrementRaised(ctx context.Context, id primitive.ObjectID, amount float64) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockRepository) FindUnscoredPending(ctx context.Context, limit int) ([]Project, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]Project), args.Error(1)
}

func (m *MockRepository) StatsByStatus(ctx context.Context) ([]StatusCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]StatusCount), args.Error(1)
}

func (m *MockRepository) StatsByCategory(ctx context.Context) ([]CategoryCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]CategoryCount), args.Error(1)
}

func (m *MockRepository) CreatedDaily(ctx context.Context, since time.Time) ([]DailyCount, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]DailyCount), args.Error(1)
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

// MockVerifier is a mock implementation of the Verifier interface
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Run(ctx context.Context, project *Project) *Project {
	args := m.Called(ctx, project)
	if fn, ok := args.Get(0).(func(context.Context, *Project) *Project); ok {
		return fn(ctx, project)
	}
	return args.Get(0).(*Project)
}

// MockIndexer is a mock implementation of the Indexer interface
type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexProject(ctx context.Context, project *Project) {
	m.Called(ctx, project)
}

func (m *MockIndexer) DeleteProject(ctx context.Context, id string) {
	m.Called(ctx, id)
}

func (m *MockIndexer) SearchProjects(ctx context.Context, query string, limit int) ([]string, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockMediaStore is a mock implementation of the storage.MediaStore interface
type MockMediaStore struct {
	mock.Mock
}

func (m *MockMediaStore) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	args := m.Called(ctx, key, contentType, body)
	return args.String(0), args.Error(1)
}

func (m *MockMediaStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockMediaStore) PresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	args := m.Called(ctx, key, expiration)
	return args.String(0), args.Error(1)
}

type serviceMocks struct {
	repo     *MockRepository
	users    *MockUserStore
	verifier *MockVerifier
	indexer  *MockIndexer
	media    *MockMediaStore
}

func newTestService() (Service, *serviceMocks) {
	logger := zap.NewNop()
	mocks := &serviceMocks{
		repo:     new(MockRepository),
		users:    new(MockUserStore),
		verifier: new(MockVerifier),
		indexer:  new(MockIndexer),
		media:    new(MockMediaStore),
	}
	service := NewService(mocks.repo, mocks.users, mocks.verifier, mocks.media, mocks.indexer,
		notifications.NewHub(logger), metrics.New(), logger)
	return service, mocks
}

func activeUser() *users.User {
	return &users.User{
		ID:     primitive.NewObjectID(),
		Name:   "Asha",
		Email:  "asha@example.com",
		Status: users.StatusActive,
	}
}

func TestCreateDefaultsToPendingWithZeroRaised(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()
	creator := activeUser()

	mocks.users.On("GetByID", ctx, creator.ID).Return(creator, nil)
	mocks.repo.On("Create", ctx, mock.AnythingOfType("*projects.Project")).Return(nil)
	mocks.verifier.On("Run", ctx, mock.AnythingOfType("*projects.Project")).
		Return(func(ctx context.Context, p *Project) *Project { return p })
	mocks.indexer.On("IndexProject", ctx, mock.AnythingOfType("*projects.Project")).Return()

	project, err := service.Create(ctx, creator.ID.Hex(), CreateProjectRequest{
		Title:       "Community library",
		Description: "Books for the neighborhood",
		Category:    "Education",
		GoalAmount:  5000,
	})

	assert.NoError(t, err)
	assert.Equal(t, StatusPending, project.Status)
	assert.Equal(t, 0.0, project.RaisedAmount)
	assert.Equal(t, creator.ID, project.Creator)
	assert.NotNil(t, project.CreatorInfo)
	assert.Equal(t, creator.Name, project.CreatorInfo.Name)
	mocks.repo.AssertExpectations(t)
	mocks.verifier.AssertExpectations(t)
}

func TestCreateRefusesBannedUser(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()
	creator := activeUser()
	creator.Status = users.StatusBanned

	mocks.users.On("GetByID", ctx, creator.ID).Return(creator, nil)

	project, err := service.Create(ctx, creator.ID.Hex(), CreateProjectRequest{
		Title:       "Community library",
		Description: "Books for the neighborhood",
		Category:    "Education",
		GoalAmount:  5000,
	})

	assert.Nil(t, project)
	assert.True(t, apierr.IsKind(err, apierr.KindForbidden))
	mocks.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mocks.verifier.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()

	project, err := service.Create(ctx, primitive.NewObjectID().Hex(), CreateProjectRequest{
		Title:      "   ",
		Category:   "Sports",
		GoalAmount: -10,
	})

	assert.Nil(t, project)
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))
	var e *apierr.Error
	assert.ErrorAs(t, err, &e)
	assert.Contains(t, e.Fields, "title")
	assert.Contains(t, e.Fields, "description")
	assert.Contains(t, e.Fields, "category")
	assert.Contains(t, e.Fields, "goalAmount")
	mocks.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCreateSucceedsWhenVerifierDegrades(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()
	creator := activeUser()

	mocks.users.On("GetByID", ctx, creator.ID).Return(creator, nil)
	mocks.repo.On("Create", ctx, mock.AnythingOfType("*projects.Project")).Return(nil)
	// Verifier outage: Run hands the project back unchanged.
	mocks.verifier.On("Run", ctx, mock.AnythingOfType("*projects.Project")).
		Return(func(ctx context.Context, p *Project) *Project { return p })
	mocks.indexer.On("IndexProject", ctx, mock.AnythingOfType("*projects.Project")).Return()

	project, err := service.Create(ctx, creator.ID.Hex(), CreateProjectRequest{
		Title:       "Flood relief",
		Description: "Emergency supplies",
		Category:    "Community",
		GoalAmount:  12000,
	})

	assert.NoError(t, err)
	assert.Equal(t, StatusPending, project.Status)
	assert.Nil(t, project.VerificationConfidence)
}

func TestUpdateRejectsNonOwner(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()

	owner := primitive.NewObjectID()
	project := &Project{ID: primitive.NewObjectID(), Creator: owner, Status: StatusPending}
	mocks.repo.On("GetByID", ctx, project.ID).Return(project, nil)

	title := "New title"
	updated, err := service.Update(ctx, project.ID.Hex(), primitive.NewObjectID().Hex(), UpdateProjectRequest{Title: &title})

	assert.Nil(t, updated)
	assert.True(t, apierr.IsKind(err, apierr.KindForbidden))
	mocks.repo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchReturnsProjectsInIndexOrder(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()
	creator := activeUser()

	first := &Project{ID: primitive.NewObjectID(), Creator: creator.ID, Title: "Water wells"}
	second := &Project{ID: primitive.NewObjectID(), Creator: creator.ID, Title: "Well-being center"}

	mocks.indexer.On("SearchProjects", ctx, "well", 10).
		Return([]string{first.ID.Hex(), second.ID.Hex()}, nil)
	mocks.repo.On("GetByID", ctx, first.ID).Return(first, nil)
	mocks.repo.On("GetByID", ctx, second.ID).Return(second, nil)
	mocks.users.On("GetByID", ctx, creator.ID).Return(creator, nil)

	results, err := service.Search(ctx, "well", 10)

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "Water wells", results[0].Title)
	assert.Equal(t, "Well-being center", results[1].Title)
}

func TestUploadImageStoresAndRecordsReference(t *testing.T) {
	service, mocks := newTestService()
	ctx := context.Background()
	creator := activeUser()

	project := &Project{ID: primitive.NewObjectID(), Creator: creator.ID, Status: StatusApproved}
	mocks.repo.On("GetByID", ctx, project.ID).Return(project, nil)
	mocks.media.On("Upload", ctx, mock.AnythingOfType("string"), "image/png", mock.Anything).
		Return("https://cdn.example.com/projects/img.png", nil)
	mocks.repo.On("AddImage", ctx, project.ID, "https://cdn.example.com/projects/img.png").Return(nil)
	mocks.users.On("GetByID", ctx, creator.ID).Return(creator, nil)

	updated, err := service.UploadImage(ctx, project.ID.Hex(), creator.ID.Hex(),
		"photo.png", "image/png", strings.NewReader("fake image"))

	assert.NoError(t, err)
	assert.Contains(t, updated.Images, "https://cdn.example.com/projects/img.png")
	mocks.media.AssertExpectations(t)
	mocks.repo.AssertExpectations(t)
}
