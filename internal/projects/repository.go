package projects

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoMatch is returned by conditional updates when no document matched
// the filter. Callers distinguish "missing" from "already processed" by a
// follow-up lookup.
var ErrNoMatch = errors.New("no matching project")

// Repository persists projects. Status transitions are conditional updates
// keyed on the current status so concurrent automatic and manual review
// cannot double-process a project.
type Repository interface {
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Project, error)
	List(ctx context.Context, filter Filter) ([]Project, int64, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) (*Project, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddImage(ctx context.Context, id primitive.ObjectID, ref string) error

	ApplyAutoApproval(ctx context.Context, id primitive.ObjectID, confidence float64, notes string, at time.Time) (*Project, error)
	StoreVerificationScore(ctx context.Context, id primitive.ObjectID, confidence float64, notes string) (*Project, error)
	Validate(ctx context.Context, id primitive.ObjectID, status string, adminID primitive.ObjectID, reason string) (*Project, error)

	IncrementRaised(ctx context.Context, id primitive.ObjectID, amount float64) error
	FindUnscoredPending(ctx context.Context, limit int) ([]Project, error)

	StatsByStatus(ctx context.Context) ([]StatusCount, error)
	StatsByCategory(ctx context.Context) ([]CategoryCount, error)
	CreatedDaily(ctx context.Context, since time.Time) ([]DailyCount, error)
}

type mongoRepository struct {
	projects *mongo.Collection
}

// NewRepository builds the Mongo-backed repository and ensures indexes.
func NewRepository(ctx context.Context, db *mongo.Database) (Repository, error) {
	r := &mongoRepository{projects: db.Collection("projects")}

	_, err := r.projects.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "creator", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *mongoRepository) Create(ctx context.Context, project *Project) error {
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now
	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	if project.Images == nil {
		project.Images = []string{}
	}
	_, err := r.projects.InsertOne(ctx, project)
	return err
}

func (r *mongoRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*Project, error) {
	var project Project
	err := r.projects.FindOne(ctx, bson.M{"_id": id}).Decode(&project)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *mongoRepository) List(ctx context.Context, filter Filter) ([]Project, int64, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	total, err := r.projects.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.projects.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var results []Project
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *mongoRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) (*Project, error) {
	fields["updatedAt"] = time.Now()

	var updated Project
	err := r.projects.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoMatch
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *mongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.projects.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *mongoRepository) AddImage(ctx context.Context, id primitive.ObjectID, ref string) error {
	_, err := r.projects.UpdateByID(ctx, id, bson.M{
		"$push": bson.M{"images": ref},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	return err
}

// ApplyAutoApproval transitions pending -> approved and stamps the AI
// metadata in one conditional write. A non-pending project is left alone.
func (r *mongoRepository) ApplyAutoApproval(ctx context.Context, id primitive.ObjectID, confidence float64, notes string, at time.Time) (*Project, error) {
	return r.casUpdate(ctx, id, bson.M{
		"status":                 StatusApproved,
		"autoVerified":           true,
		"verificationConfidence": confidence,
		"verificationNotes":      notes,
		"verifiedAt":             at,
	})
}

// StoreVerificationScore keeps a pending project pending but records the
// AI's opinion for later human review.
func (r *mongoRepository) StoreVerificationScore(ctx context.Context, id primitive.ObjectID, confidence float64, notes string) (*Project, error) {
	return r.casUpdate(ctx, id, bson.M{
		"autoVerified":           false,
		"verificationConfidence": confidence,
		"verificationNotes":      notes,
	})
}

// Validate applies a manual admin decision, gated on pending status.
func (r *mongoRepository) Validate(ctx context.Context, id primitive.ObjectID, status string, adminID primitive.ObjectID, reason string) (*Project, error) {
	fields := bson.M{
		"status":      status,
		"validatedBy": adminID,
	}
	if status == StatusRejected {
		fields["rejectionReason"] = reason
	}
	return r.casUpdate(ctx, id, fields)
}

func (r *mongoRepository) casUpdate(ctx context.Context, id primitive.ObjectID, fields bson.M) (*Project, error) {
	fields["updatedAt"] = time.Now()

	var updated Project
	err := r.projects.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": StatusPending},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoMatch
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *mongoRepository) IncrementRaised(ctx context.Context, id primitive.ObjectID, amount float64) error {
	_, err := r.projects.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"raisedAmount": amount},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	return err
}

func (r *mongoRepository) StatsByStatus(ctx context.Context) ([]StatusCount, error) {
	cursor, err := r.projects.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":         "$status",
			"count":       bson.M{"$sum": 1},
			"totalGoal":   bson.M{"$sum": "$goalAmount"},
			"totalRaised": bson.M{"$sum": "$raisedAmount"},
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []StatusCount
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *mongoRepository) StatsByCategory(ctx context.Context) ([]CategoryCount, error) {
	cursor, err := r.projects.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":         "$category",
			"count":       bson.M{"$sum": 1},
			"totalGoal":   bson.M{"$sum": "$goalAmount"},
			"totalRaised": bson.M{"$sum": "$raisedAmount"},
		}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []CategoryCount
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// CreatedDaily buckets project creations per calendar day since the cutoff.
func (r *mongoRepository) CreatedDaily(ctx context.Context, since time.Time) ([]DailyCount, error) {
	cursor, err := r.projects.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []DailyCount
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// FindUnscoredPending returns the oldest pending projects the verifier has
// not scored yet, for the periodic sweep.
func (r *mongoRepository) FindUnscoredPending(ctx context.Context, limit int) ([]Project, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.projects.Find(ctx, bson.M{
		"status":                 StatusPending,
		"verificationConfidence": bson.M{"$exists": false},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []Project
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}
