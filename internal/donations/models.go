package donations

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status values for a donation. A donation starts as created, transitions
// to success exactly once on a verified payment, or to failed.
const (
	StatusCreated = "created"
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Donation is a funding transaction against a project.
type Donation struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Donor   primitive.ObjectID `bson:"donor" json:"donor"`
	Project primitive.ObjectID `bson:"project" json:"project"`

	Amount   float64 `bson:"amount" json:"amount"`
	Currency string  `bson:"currency" json:"currency"`

	// Gateway identifiers. OrderID is ours; PaymentID and Signature come
	// back from the gateway on completion.
	OrderID   string `bson:"orderId" json:"orderId"`
	PaymentID string `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	Signature string `bson:"signature,omitempty" json:"-"`

	Status string `bson:"status" json:"status"`

	// ReceiptHash is a sha256 over the donation details for audit/proof.
	ReceiptHash string `bson:"receiptHash,omitempty" json:"receiptHash,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Filter narrows admin donation listings.
type Filter struct {
	ProjectID string
	Status    string
	Page      int64
	Limit     int64
}

// StatusStats aggregates donations grouped by status.
type StatusStats struct {
	Status      string  `bson:"_id" json:"status"`
	TotalAmount float64 `bson:"totalAmount" json:"totalAmount"`
	Count       int64   `bson:"count" json:"count"`
}

// ProjectStats aggregates donations grouped by project.
type ProjectStats struct {
	ProjectID   primitive.ObjectID `bson:"_id" json:"projectId"`
	TotalAmount float64            `bson:"totalAmount" json:"totalAmount"`
	Count       int64              `bson:"count" json:"count"`
	Title       string             `bson:"-" json:"title,omitempty"`
}

// Totals aggregates all donations.
type Totals struct {
	TotalAmount float64 `bson:"totalAmount" json:"totalAmount"`
	Count       int64   `bson:"count" json:"count"`
}
