package admins

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"communifund/platform-backend/internal/apierr"
	"communifund/platform-backend/internal/auth"
	"communifund/platform-backend/internal/donations"
	"communifund/platform-backend/internal/metrics"
	"communifund/platform-backend/internal/notifications"
	"communifund/platform-backend/internal/projects"
	"communifund/platform-backend/internal/users"
	"communifund/platform-backend/internal/verification"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateRequest is a manual review decision for a pending project.
type ValidateRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejectionReason"`
}

// AuthResult is returned by register/login.
type AuthResult struct {
	Admin  *Admin
	Tokens *auth.TokenPair
}

// ProjectStore is the slice of the project repository the admin surface needs.
type ProjectStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*projects.Project, error)
	List(ctx context.Context, filter projects.Filter) ([]projects.Project, int64, error)
	Validate(ctx context.Context, id primitive.ObjectID, status string, adminID primitive.ObjectID, reason string) (*projects.Project, error)
	StatsByStatus(ctx context.Context) ([]projects.StatusCount, error)
	StatsByCategory(ctx context.Context) ([]projects.CategoryCount, error)
	CreatedDaily(ctx context.Context, since time.Time) ([]projects.DailyCount, error)
}

// DonationStore is the slice of the donation repository the admin surface needs.
type DonationStore interface {
	List(ctx context.Context, filter donations.Filter) ([]donations.Donation, int64, float64, error)
	TotalStats(ctx context.Context) (*donations.Totals, error)
	StatsByStatus(ctx context.Context) ([]donations.StatusStats, error)
	TopProjects(ctx context.Context, limit int) ([]donations.ProjectStats, error)
}

// UserStore looks up creators for populated listings.
type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*users.User, error)
}

// Service implements the admin review and reporting surface.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, adminID string) error
	GetByID(ctx context.Context, adminID string) (*Admin, error)

	ValidateProject(ctx context.Context, adminID, projectID string, req ValidateRequest) (*projects.Project, error)
	ListProjects(ctx context.Context, filter projects.Filter) ([]projects.Project, projects.Pagination, error)
	ListDonations(ctx context.Context, filter donations.Filter) ([]donations.Donation, projects.Pagination, float64, error)

	ProjectStats(ctx context.Context) (*ProjectStats, error)
	DonationStats(ctx context.Context) (*DonationStats, error)
	ExportDonations(ctx context.Context, filter donations.Filter, format string) ([]byte, string, error)

	RunBulkVerification(ctx context.Context) (*verification.BulkResult, error)
}

type service struct {
	repo         Repository
	projectRepo  ProjectStore
	donationRepo DonationStore
	userRepo     UserStore
	verifier     verification.Client
	tokens       *auth.TokenManager
	hub          *notifications.Hub
	metrics      *metrics.Metrics
	logger       *zap.Logger
	threshold    float64
}

func NewService(
	repo Repository,
	projectRepo ProjectStore,
	donationRepo DonationStore,
	userRepo UserStore,
	verifier verification.Client,
	tokens *auth.TokenManager,
	hub *notifications.Hub,
	m *metrics.Metrics,
	logger *zap.Logger,
	threshold float64,
) Service {
	return &service{
		repo:         repo,
		projectRepo:  projectRepo,
		donationRepo: donationRepo,
		userRepo:     userRepo,
		verifier:     verifier,
		tokens:       tokens,
		hub:          hub,
		metrics:      m,
		logger:       logger,
		threshold:    threshold,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, apierr.Validation("Name, email and password are required", nil)
	}
	if len(req.Password) < 8 {
		return nil, apierr.Validation("Password must be at least 8 characters", nil)
	}

	existing, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if existing != nil {
		return nil, apierr.Validation("Admin already exists with this email", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	admin := &Admin{Name: req.Name, Email: req.Email, Password: string(hashed)}
	if err := s.repo.Create(ctx, admin); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apierr.Validation("Admin already exists with this email", nil)
		}
		return nil, apierr.Internal(err)
	}

	return s.issueTokens(ctx, admin)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return nil, apierr.Validation("Email and password are required", nil)
	}

	admin, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if admin == nil {
		return nil, apierr.Validation("Email or password is incorrect", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		return nil, apierr.Validation("Email or password is incorrect", nil)
	}

	return s.issueTokens(ctx, admin)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, apierr.Unauthorized("Unauthorized request: Token missing")
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Role != auth.RoleAdmin {
		return nil, apierr.Unauthorized("Not authorized as admin")
	}

	admin, err := s.GetByID(ctx, claims.SubjectID)
	if err != nil {
		return nil, err
	}
	if admin.RefreshToken != refreshToken {
		return nil, apierr.Unauthorized("Unauthorized request: Invalid refresh token")
	}

	return s.issueTokens(ctx, admin)
}

func (s *service) Logout(ctx context.Context, adminID string) error {
	id, err := primitive.ObjectIDFromHex(adminID)
	if err != nil {
		return apierr.Validation("Invalid admin ID", nil)
	}
	if err := s.repo.SetRefreshToken(ctx, id, ""); err != nil {
		return apierr.Internal(err)
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, adminID string) (*Admin, error) {
	id, err := primitive.ObjectIDFromHex(adminID)
	if err != nil {
		return nil, apierr.Validation("Invalid admin ID", nil)
	}
	admin, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if admin == nil {
		return nil, apierr.NotFound("Admin not found")
	}
	return admin, nil
}

func (s *service) issueTokens(ctx context.Context, admin *Admin) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(admin.ID.Hex(), auth.RoleAdmin)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if err := s.repo.SetRefreshToken(ctx, admin.ID, pair.RefreshToken); err != nil {
		return nil, apierr.Internal(err)
	}
	admin.RefreshToken = pair.RefreshToken
	return &AuthResult{Admin: admin, Tokens: pair}, nil
}

// ValidateProject applies a manual decision to a pending project. The update
// is conditional on the project still being pending, so a concurrent
// auto-approval or second reviewer turns into a conflict instead of a
// silent overwrite.
func (s *service) ValidateProject(ctx context.Context, adminID, projectID string, req ValidateRequest) (*projects.Project, error) {
	if req.Status != projects.StatusApproved && req.Status != projects.StatusRejected {
		return nil, apierr.Validation("Status must be either approved or rejected", nil)
	}
	if req.Status == projects.StatusRejected && strings.TrimSpace(req.RejectionReason) == "" {
		return nil, apierr.Validation("Rejection reason is required when rejecting a project", nil)
	}

	aid, err := primitive.ObjectIDFromHex(adminID)
	if err != nil {
		return nil, apierr.Validation("Invalid admin ID", nil)
	}
	pid, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, apierr.Validation("Invalid project ID", nil)
	}

	updated, err := s.projectRepo.Validate(ctx, pid, req.Status, aid, strings.TrimSpace(req.RejectionReason))
	if err != nil {
		if err == projects.ErrNoMatch {
			current, getErr := s.projectRepo.GetByID(ctx, pid)
			if getErr != nil {
				return nil, apierr.Internal(getErr)
			}
			if current == nil {
				return nil, apierr.NotFound("Project not found")
			}
			return nil, apierr.Conflict(fmt.Sprintf("Project has already been %s", current.Status))
		}
		return nil, apierr.Internal(err)
	}

	s.metrics.VerificationOutcomes.WithLabelValues(req.Status).Inc()
	s.hub.Publish(notifications.NewEvent(notifications.EventProjectReviewed, map[string]interface{}{
		"projectId": updated.ID.Hex(),
		"status":    updated.Status,
	}))
	s.logger.Info("project manually reviewed",
		zap.String("project", updated.ID.Hex()),
		zap.String("status", updated.Status),
		zap.String("admin", adminID))

	s.populate(ctx, updated)
	return updated, nil
}

func (s *service) ListProjects(ctx context.Context, filter projects.Filter) ([]projects.Project, projects.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}

	results, total, err := s.projectRepo.List(ctx, filter)
	if err != nil {
		return nil, projects.Pagination{}, apierr.Internal(err)
	}
	for i := range results {
		s.populate(ctx, &results[i])
	}
	return results, projects.NewPagination(filter.Page, filter.Limit, total), nil
}

func (s *service) ListDonations(ctx context.Context, filter donations.Filter) ([]donations.Donation, projects.Pagination, float64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	results, total, totalAmount, err := s.donationRepo.List(ctx, filter)
	if err != nil {
		return nil, projects.Pagination{}, 0, apierr.Internal(err)
	}
	return results, projects.NewPagination(filter.Page, filter.Limit, total), totalAmount, nil
}

func (s *service) ProjectStats(ctx context.Context) (*ProjectStats, error) {
	byStatus, err := s.projectRepo.StatsByStatus(ctx)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	byCategory, err := s.projectRepo.StatsByCategory(ctx)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	daily, err := s.projectRepo.CreatedDaily(ctx, time.Now().AddDate(0, 0, -7))
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return &ProjectStats{ByStatus: byStatus, ByCategory: byCategory, Daily: daily}, nil
}

func (s *service) DonationStats(ctx context.Context) (*DonationStats, error) {
	totals, err := s.donationRepo.TotalStats(ctx)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	byStatus, err := s.donationRepo.StatsByStatus(ctx)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	top, err := s.donationRepo.TopProjects(ctx, 5)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	for i := range top {
		if project, err := s.projectRepo.GetByID(ctx, top[i].ProjectID); err == nil && project != nil {
			top[i].Title = project.Title
		}
	}
	return &DonationStats{Totals: totals, ByStatus: byStatus, TopProjects: top}, nil
}

// RunBulkVerification triggers a dry-run scoring pass on the AI service for
// every unprocessed pending project.
func (s *service) RunBulkVerification(ctx context.Context) (*verification.BulkResult, error) {
	result, err := s.verifier.TriggerBulkScoring(ctx, s.threshold)
	if err != nil {
		return nil, err
	}
	s.logger.Info("bulk verification completed",
		zap.Int("processed", result.Processed),
		zap.Int("approved", result.Approved))
	return result, nil
}

// populate fills the embedded creator and reviewer views.
func (s *service) populate(ctx context.Context, project *projects.Project) {
	if creator, err := s.userRepo.GetByID(ctx, project.Creator); err == nil && creator != nil {
		summary := creator.Summary()
		project.CreatorInfo = &summary
	}
	if project.ValidatedBy != nil {
		if admin, err := s.repo.GetByID(ctx, *project.ValidatedBy); err == nil && admin != nil {
			project.ValidatedByInfo = &users.Summary{ID: admin.ID, Name: admin.Name, Email: admin.Email}
		}
	}
}
