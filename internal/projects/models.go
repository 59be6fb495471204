package projects

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"communifund/platform-backend/internal/users"
)

// Status values for a project.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Categories a project can belong to.
var Categories = []string{"Education", "Health", "Environment", "Community", "Other"}

// ValidCategory reports whether category is one of the allowed values.
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Project is a crowdfunding project document.
type Project struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Creator      primitive.ObjectID `bson:"creator" json:"-"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description" json:"description"`
	Category     string             `bson:"category" json:"category"`
	GoalAmount   float64            `bson:"goalAmount" json:"goalAmount"`
	RaisedAmount float64            `bson:"raisedAmount" json:"raisedAmount"`

	Status          string              `bson:"status" json:"status"`
	ValidatedBy     *primitive.ObjectID `bson:"validatedBy,omitempty" json:"-"`
	RejectionReason string              `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`

	// Automated verification metadata. Confidence and notes are kept on
	// every scored project so reviewers can see the AI's opinion even when
	// no transition happened.
	AutoVerified           bool       `bson:"autoVerified" json:"autoVerified"`
	VerificationConfidence *float64   `bson:"verificationConfidence,omitempty" json:"verificationConfidence,omitempty"`
	VerificationNotes      string     `bson:"verificationNotes,omitempty" json:"verificationNotes,omitempty"`
	VerifiedAt             *time.Time `bson:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`

	Images []string `bson:"images" json:"images"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	// Populated views, never persisted.
	CreatorInfo     *users.Summary `bson:"-" json:"creator,omitempty"`
	ValidatedByInfo *users.Summary `bson:"-" json:"validatedBy,omitempty"`
}

// Filter narrows project listings.
type Filter struct {
	Status   string
	Category string
	Page     int64
	Limit    int64
}

// StatusCount aggregates projects grouped by status.
type StatusCount struct {
	Status      string  `bson:"_id" json:"status"`
	Count       int64   `bson:"count" json:"count"`
	TotalGoal   float64 `bson:"totalGoal" json:"totalGoal"`
	TotalRaised float64 `bson:"totalRaised" json:"totalRaised"`
}

// CategoryCount aggregates projects grouped by category.
type CategoryCount struct {
	Category    string  `bson:"_id" json:"category"`
	Count       int64   `bson:"count" json:"count"`
	TotalGoal   float64 `bson:"totalGoal" json:"totalGoal"`
	TotalRaised float64 `bson:"totalRaised" json:"totalRaised"`
}

// DailyCount buckets project creations by calendar day.
type DailyCount struct {
	Day   string `bson:"_id" json:"day"`
	Count int64  `bson:"count" json:"count"`
}

// Pagination is the listing envelope shared with the admin surface.
type Pagination struct {
	Current int64 `json:"current"`
	Pages   int64 `json:"pages"`
	Total   int64 `json:"total"`
}

// NewPagination derives page counts from a total.
func NewPagination(page, limit, total int64) Pagination {
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return Pagination{Current: page, Pages: pages, Total: total}
}
