package users

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository persists users and short-lived email OTPs.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetByEmail(ctx context.Context, email, provider string) (*User, error)
	SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
	RecordDonation(ctx context.Context, id primitive.ObjectID, record DonationRecord) error

	PutOTP(ctx context.Context, otp *EmailOTP) error
	ConsumeOTP(ctx context.Context, email, code string) error
}

type mongoRepository struct {
	users *mongo.Collection
	otps  *mongo.Collection
}

// NewRepository builds the Mongo-backed repository and ensures indexes.
func NewRepository(ctx context.Context, db *mongo.Database) (Repository, error) {
	r := &mongoRepository{
		users: db.Collection("users"),
		otps:  db.Collection("email_otps"),
	}

	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}, {Key: "provider", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}

	// TTL index: Mongo reaps expired OTPs on its own.
	_, err = r.otps.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (r *mongoRepository) Create(ctx context.Context, user *User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := r.users.InsertOne(ctx, user)
	return err
}

func (r *mongoRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	var user User
	err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *mongoRepository) GetByEmail(ctx context.Context, email, provider string) (*User, error) {
	var user User
	err := r.users.FindOne(ctx, bson.M{"email": email, "provider": provider}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *mongoRepository) SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	update := bson.M{"$set": bson.M{"updatedAt": time.Now()}}
	if token == "" {
		update["$unset"] = bson.M{"refreshToken": ""}
	} else {
		update["$set"].(bson.M)["refreshToken"] = token
	}
	_, err := r.users.UpdateByID(ctx, id, update)
	return err
}

func (r *mongoRepository) RecordDonation(ctx context.Context, id primitive.ObjectID, record DonationRecord) error {
	_, err := r.users.UpdateByID(ctx, id, bson.M{
		"$inc":  bson.M{"totalDonated": record.Amount},
		"$push": bson.M{"donationHistory": record},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	return err
}

func (r *mongoRepository) PutOTP(ctx context.Context, otp *EmailOTP) error {
	// Upsert by email: a resend replaces the previous code.
	_, err := r.otps.UpdateOne(ctx,
		bson.M{"email": otp.Email},
		bson.M{"$set": otp},
		options.Update().SetUpsert(true),
	)
	return err
}

// ConsumeOTP atomically validates and deletes the code so it can be used
// at most once.
func (r *mongoRepository) ConsumeOTP(ctx context.Context, email, code string) error {
	err := r.otps.FindOneAndDelete(ctx, bson.M{
		"email":     email,
		"otp":       code,
		"expiresAt": bson.M{"$gt": time.Now()},
	}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrOTPInvalid
	}
	return err
}

// ErrOTPInvalid means the OTP did not match or has expired.
var ErrOTPInvalid = errors.New("invalid or expired OTP")
