package donations

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoMatch is returned by conditional status transitions when the
// donation was not in a transitionable state.
var ErrNoMatch = errors.New("no matching donation")

// Repository persists donations.
type Repository interface {
	Create(ctx context.Context, donation *Donation) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Donation, error)
	GetByOrderID(ctx context.Context, orderID string) (*Donation, error)

	// MarkSuccess transitions created/pending -> success exactly once.
	MarkSuccess(ctx context.Context, id primitive.ObjectID, paymentID, signature, receiptHash string) (*Donation, error)
	// MarkFailed transitions created/pending -> failed.
	MarkFailed(ctx context.Context, id primitive.ObjectID) error

	List(ctx context.Context, filter Filter) ([]Donation, int64, float64, error)
	TotalStats(ctx context.Context) (*Totals, error)
	StatsByStatus(ctx context.Context) ([]StatusStats, error)
	TopProjects(ctx context.Context, limit int) ([]ProjectStats, error)
}

type mongoRepository struct {
	donations *mongo.Collection
}

// NewRepository builds the Mongo-backed repository and ensures indexes.
func NewRepository(ctx context.Context, db *mongo.Database) (Repository, error) {
	r := &mongoRepository{donations: db.Collection("donations")}

	_, err := r.donations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "project", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "donor", Value: 1}}},
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *mongoRepository) Create(ctx context.Context, donation *Donation) error {
	now := time.Now()
	donation.CreatedAt = now
	donation.UpdatedAt = now
	if donation.ID.IsZero() {
		donation.ID = primitive.NewObjectID()
	}
	_, err := r.donations.InsertOne(ctx, donation)
	return err
}

func (r *mongoRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*Donation, error) {
	var donation Donation
	err := r.donations.FindOne(ctx, bson.M{"_id": id}).Decode(&donation)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *mongoRepository) GetByOrderID(ctx context.Context, orderID string) (*Donation, error) {
	var donation Donation
	err := r.donations.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&donation)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *mongoRepository) MarkSuccess(ctx context.Context, id primitive.ObjectID, paymentID, signature, receiptHash string) (*Donation, error) {
	var updated Donation
	err := r.donations.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": []string{StatusCreated, StatusPending}}},
		bson.M{"$set": bson.M{
			"status":      StatusSuccess,
			"paymentId":   paymentID,
			"signature":   signature,
			"receiptHash": receiptHash,
			"updatedAt":   time.Now(),
		}},
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

func (r *mongoRepository) MarkFailed(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.donations.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": []string{StatusCreated, StatusPending}}},
		bson.M{"$set": bson.M{"status": StatusFailed, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNoMatch
	}
	return nil
}

func (r *mongoRepository) List(ctx context.Context, filter Filter) ([]Donation, int64, float64, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.ProjectID != "" {
		id, err := primitive.ObjectIDFromHex(filter.ProjectID)
		if err != nil {
			return nil, 0, 0, err
		}
		query["project"] = id
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}

	total, err := r.donations.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.donations.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, 0, err
	}
	defer cursor.Close(ctx)

	var results []Donation
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, 0, err
	}

	// Amount summary over the same filter.
	sumCursor, err := r.donations.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: query}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}}},
	})
	if err != nil {
		return nil, 0, 0, err
	}
	defer sumCursor.Close(ctx)

	var sums []struct {
		Total float64 `bson:"total"`
	}
	if err := sumCursor.All(ctx, &sums); err != nil {
		return nil, 0, 0, err
	}
	totalAmount := 0.0
	if len(sums) > 0 {
		totalAmount = sums[0].Total
	}

	return results, total, totalAmount, nil
}

func (r *mongoRepository) TotalStats(ctx context.Context) (*Totals, error) {
	cursor, err := r.donations.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"totalAmount": bson.M{"$sum": "$amount"},
			"count":       bson.M{"$sum": 1},
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []Totals
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &Totals{}, nil
	}
	return &results[0], nil
}

func (r *mongoRepository) StatsByStatus(ctx context.Context) ([]StatusStats, error) {
	cursor, err := r.donations.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":         "$status",
			"totalAmount": bson.M{"$sum": "$amount"},
			"count":       bson.M{"$sum": 1},
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []StatusStats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *mongoRepository) TopProjects(ctx context.Context, limit int) ([]ProjectStats, error) {
	cursor, err := r.donations.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":         "$project",
			"totalAmount": bson.M{"$sum": "$amount"},
			"count":       bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"totalAmount": -1}}},
		{{Key: "$limit", Value: limit}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []ProjectStats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}
