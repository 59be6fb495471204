package projects

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"communifund/platform-backend/internal/apierr"
	"communifund/platform-backend/internal/metrics"
	"communifund/platform-backend/internal/notifications"
	"communifund/platform-backend/internal/users"
	"communifund/platform-backend/pkg/storage"
)

// CreateProjectRequest is the creation payload.
type CreateProjectRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	GoalAmount  float64  `json:"goalAmount"`
	Images      []string `json:"images"`
}

// UpdateProjectRequest carries creator-editable fields only. Status,
// ownership, funding totals and verification metadata are not updatable
// through this path.
type UpdateProjectRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	GoalAmount  *float64 `json:"goalAmount"`
	Images      []string `json:"images"`
}

// UserStore is the slice of the user repository this service needs.
type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*users.User, error)
}

// Verifier runs the automated verification workflow against a freshly
// persisted project and returns the refreshed document. Implementations
// never fail the creation path.
type Verifier interface {
	Run(ctx context.Context, project *Project) *Project
}

// Indexer mirrors projects into the search index, best-effort.
type Indexer interface {
	IndexProject(ctx context.Context, project *Project)
	DeleteProject(ctx context.Context, id string)
	SearchProjects(ctx context.Context, query string, limit int) ([]string, error)
}

// Service implements project lifecycle operations.
type Service interface {
	Create(ctx context.Context, creatorID string, req CreateProjectRequest) (*Project, error)
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, filter Filter) ([]Project, Pagination, error)
	Search(ctx context.Context, query string, limit int) ([]Project, error)
	Update(ctx context.Context, id, userID string, req UpdateProjectRequest) (*Project, error)
	Delete(ctx context.Context, id, userID string) error
	UploadImage(ctx context.Context, id, userID, filename, contentType string, body io.Reader) (*Project, error)
}

type service struct {
	repo     Repository
	userRepo UserStore
	verifier Verifier
	media    storage.MediaStore
	indexer  Indexer
	hub      *notifications.Hub
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewService(
	repo Repository,
	userRepo UserStore,
	verifier Verifier,
	media storage.MediaStore,
	indexer Indexer,
	hub *notifications.Hub,
	m *metrics.Metrics,
	logger *zap.Logger,
) Service {
	return &service{
		repo:     repo,
		userRepo: userRepo,
		verifier: verifier,
		media:    media,
		indexer:  indexer,
		hub:      hub,
		metrics:  m,
		logger:   logger,
	}
}

func validateCreate(req *CreateProjectRequest) error {
	fields := map[string]string{}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	if req.Title == "" {
		fields["title"] = "title is required"
	}
	if req.Description == "" {
		fields["description"] = "description is required"
	}
	if req.Category == "" {
		fields["category"] = "category is required"
	} else if !ValidCategory(req.Category) {
		fields["category"] = fmt.Sprintf("invalid category, must be one of: %s", strings.Join(Categories, ", "))
	}
	if req.GoalAmount <= 0 {
		fields["goalAmount"] = "goal amount must be a positive number"
	}

	if len(fields) > 0 {
		return apierr.Validation("Title, description, category, and goal amount are required", fields)
	}
	return nil
}

func (s *service) Create(ctx context.Context, creatorID string, req CreateProjectRequest) (*Project, error) {
	if err := validateCreate(&req); err != nil {
		return nil, err
	}

	cid, err := primitive.ObjectIDFromHex(creatorID)
	if err != nil {
		return nil, apierr.Validation("Invalid user ID", nil)
	}

	creator, err := s.userRepo.GetByID(ctx, cid)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if creator == nil {
		return nil, apierr.NotFound("User not found")
	}
	if creator.Status != users.StatusActive {
		return nil, apierr.Forbidden("Your account is banned. Cannot create project")
	}

	project := &Project{
		Creator:      cid,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		GoalAmount:   req.GoalAmount,
		RaisedAmount: 0,
		Status:       StatusPending,
		Images:       req.Images,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, apierr.Internal(err)
	}

	s.metrics.ProjectsCreated.Inc()
	s.hub.Publish(notifications.NewEvent(notifications.EventProjectCreated, map[string]interface{}{
		"projectId": project.ID.Hex(),
		"title":     project.Title,
		"category":  project.Category,
	}))

	// Automated verification is best-effort: a down verifier degrades to
	// "needs manual review", never to a failed creation.
	project = s.verifier.Run(ctx, project)

	s.indexer.IndexProject(ctx, project)

	summary := creator.Summary()
	project.CreatorInfo = &summary
	return project, nil
}

func (s *service) Get(ctx context.Context, id string) (*Project, error) {
	project, err := s.getByHexID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.populateCreator(ctx, project)
	return project, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]Project, Pagination, error) {
	if filter.Status != "" &&
		filter.Status != StatusPending && filter.Status != StatusApproved && filter.Status != StatusRejected {
		return nil, Pagination{}, apierr.Validation("Invalid status filter", nil)
	}

	results, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, Pagination{}, apierr.Internal(err)
	}

	for i := range results {
		s.populateCreator(ctx, &results[i])
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}
	return results, NewPagination(page, limit, total), nil
}

func (s *service) Search(ctx context.Context, query string, limit int) ([]Project, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apierr.Validation("Search query is required", nil)
	}
	if limit < 1 {
		limit = 10
	}

	ids, err := s.indexer.SearchProjects(ctx, query, limit)
	if err != nil {
		return nil, apierr.Unavailable("Search is temporarily unavailable")
	}

	results := make([]Project, 0, len(ids))
	for _, hexID := range ids {
		id, err := primitive.ObjectIDFromHex(hexID)
		if err != nil {
			continue
		}
		project, err := s.repo.GetByID(ctx, id)
		if err != nil || project == nil {
			continue
		}
		s.populateCreator(ctx, project)
		results = append(results, *project)
	}
	return results, nil
}

func (s *service) Update(ctx context.Context, id, userID string, req UpdateProjectRequest) (*Project, error) {
	project, err := s.ownedProject(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	fields := bson.M{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apierr.Validation("Title cannot be empty", nil)
		}
		fields["title"] = title
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		if desc == "" {
			return nil, apierr.Validation("Description cannot be empty", nil)
		}
		fields["description"] = desc
	}
	if req.Category != nil {
		if !ValidCategory(*req.Category) {
			return nil, apierr.Validation("Invalid category", nil)
		}
		fields["category"] = *req.Category
	}
	if req.GoalAmount != nil {
		if *req.GoalAmount <= 0 {
			return nil, apierr.Validation("Goal amount must be a positive number", nil)
		}
		fields["goalAmount"] = *req.GoalAmount
	}
	if req.Images != nil {
		fields["images"] = req.Images
	}

	if len(fields) == 0 {
		s.populateCreator(ctx, project)
		return project, nil
	}

	updated, err := s.repo.UpdateFields(ctx, project.ID, fields)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	s.indexer.IndexProject(ctx, updated)
	s.populateCreator(ctx, updated)
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id, userID string) error {
	project, err := s.ownedProject(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, project.ID); err != nil {
		return apierr.Internal(err)
	}

	s.indexer.DeleteProject(ctx, project.ID.Hex())
	return nil
}

func (s *service) UploadImage(ctx context.Context, id, userID, filename, contentType string, body io.Reader) (*Project, error) {
	project, err := s.ownedProject(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("projects/%s/%s%s", project.ID.Hex(), uuid.NewString(), path.Ext(filename))
	ref, err := s.media.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, apierr.External("Failed to store image", err)
	}

	if err := s.repo.AddImage(ctx, project.ID, ref); err != nil {
		return nil, apierr.Internal(err)
	}

	project.Images = append(project.Images, ref)
	s.populateCreator(ctx, project)
	return project, nil
}

func (s *service) getByHexID(ctx context.Context, id string) (*Project, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apierr.Validation("Invalid project ID", nil)
	}
	project, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if project == nil {
		return nil, apierr.NotFound("Project not found")
	}
	return project, nil
}

func (s *service) ownedProject(ctx context.Context, id, userID string) (*Project, error) {
	project, err := s.getByHexID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Creator.Hex() != userID {
		return nil, apierr.Forbidden("You can only modify your own projects")
	}
	return project, nil
}

func (s *service) populateCreator(ctx context.Context, project *Project) {
	creator, err := s.userRepo.GetByID(ctx, project.Creator)
	if err != nil || creator == nil {
		s.logger.Debug("could not populate creator", zap.String("project", project.ID.Hex()))
		return
	}
	summary := creator.Summary()
	project.CreatorInfo = &summary
}
