package admins

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository persists admin accounts.
type Repository interface {
	Create(ctx context.Context, admin *Admin) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
}

type mongoRepository struct {
	admins *mongo.Collection
}

func NewRepository(ctx context.Context, db *mongo.Database) (Repository, error) {
	r := &mongoRepository{admins: db.Collection("admins")}

	_, err := r.admins.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *mongoRepository) Create(ctx context.Context, admin *Admin) error {
	now := time.Now()
	admin.CreatedAt = now
	admin.UpdatedAt = now
	if admin.ID.IsZero() {
		admin.ID = primitive.NewObjectID()
	}
	_, err := r.admins.InsertOne(ctx, admin)
	return err
}

func (r *mongoRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*Admin, error) {
	var admin Admin
	err := r.admins.FindOne(ctx, bson.M{"_id": id}).Decode(&admin)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *mongoRepository) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	var admin Admin
	err := r.admins.FindOne(ctx, bson.M{"email": email}).Decode(&admin)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *mongoRepository) SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	_, err := r.admins.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"refreshToken": token, "updatedAt": time.Now()},
	})
	return err
}
