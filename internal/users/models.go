package users

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status values for a user account.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusBanned   = "banned"
)

// Provider values for how an account was created.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User is a donor or project creator.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	Password     string             `bson:"password" json:"-"`
	Provider     string             `bson:"provider" json:"provider"`
	ProviderID   string             `bson:"providerId,omitempty" json:"-"`
	RefreshToken string             `bson:"refreshToken,omitempty" json:"-"`
	IsVerified   bool               `bson:"isVerified" json:"isVerified"`
	Avatar       string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Status       string             `bson:"status" json:"status"`

	TotalDonated     float64              `bson:"totalDonated" json:"totalDonated"`
	DonationHistory  []DonationRecord     `bson:"donationHistory,omitempty" json:"donationHistory,omitempty"`
	FollowedProjects []primitive.ObjectID `bson:"followedProjects,omitempty" json:"followedProjects,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DonationRecord is the per-user ledger entry kept alongside the
// donations collection for fast profile rendering.
type DonationRecord struct {
	ProjectID primitive.ObjectID `bson:"projectId" json:"projectId"`
	Amount    float64            `bson:"amount" json:"amount"`
	Date      time.Time          `bson:"date" json:"date"`
	PaymentID string             `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
}

// Summary is the subset of a user embedded in project and donation
// responses.
type Summary struct {
	ID     primitive.ObjectID `bson:"_id" json:"id"`
	Name   string             `bson:"name" json:"name"`
	Email  string             `bson:"email" json:"email"`
	Avatar string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
}

// Summary projects the embedded view of the user.
func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

// EmailOTP is a short-lived verification code for an unregistered email.
// The collection carries a TTL index on expiresAt.
type EmailOTP struct {
	Email     string    `bson:"email"`
	OTP       string    `bson:"otp"`
	ExpiresAt time.Time `bson:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt"`
}
