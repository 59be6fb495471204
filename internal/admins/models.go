package admins

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"communifund/platform-backend/internal/donations"
	"communifund/platform-backend/internal/projects"
)

// Admin is a reviewer account, separate from donor/creator users.
type Admin struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	Password     string             `bson:"password" json:"-"`
	RefreshToken string             `bson:"refreshToken,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ProjectStats is the project side of the admin dashboard.
type ProjectStats struct {
	ByStatus   []projects.StatusCount   `json:"byStatus"`
	ByCategory []projects.CategoryCount `json:"byCategory"`
	Daily      []projects.DailyCount    `json:"last7Days"`
}

// DonationStats is the donation side of the admin dashboard.
type DonationStats struct {
	Totals      *donations.Totals        `json:"totals"`
	ByStatus    []donations.StatusStats  `json:"byStatus"`
	TopProjects []donations.ProjectStats `json:"topProjects"`
}
