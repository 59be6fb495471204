package donations

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"communifund/platform-backend/internal/apierr"
	"communifund/platform-backend/internal/metrics"
	"communifund/platform-backend/internal/notifications"
	"communifund/platform-backend/internal/projects"
	"communifund/platform-backend/internal/users"
)

// OrderRequest opens a donation against an approved project.
type OrderRequest struct {
	ProjectID string  `json:"projectId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

// ConfirmRequest completes a donation with the gateway's payment proof.
type ConfirmRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

// ProjectStore is the slice of the project repository this service needs.
type ProjectStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*projects.Project, error)
	IncrementRaised(ctx context.Context, id primitive.ObjectID, amount float64) error
}

// UserStore records the donor-side ledger.
type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*users.User, error)
	RecordDonation(ctx context.Context, id primitive.ObjectID, record users.DonationRecord) error
}

// Service implements donation recording.
type Service interface {
	CreateOrder(ctx context.Context, donorID string, req OrderRequest) (*Donation, error)
	Confirm(ctx context.Context, donorID string, req ConfirmRequest) (*Donation, error)
	Receipt(ctx context.Context, donorID, donationID string) ([]byte, error)
}

type service struct {
	repo          Repository
	projectRepo   ProjectStore
	userRepo      UserStore
	hub           *notifications.Hub
	metrics       *metrics.Metrics
	logger        *zap.Logger
	gatewaySecret string
	currency      string
}

func NewService(
	repo Repository,
	projectRepo ProjectStore,
	userRepo UserStore,
	hub *notifications.Hub,
	m *metrics.Metrics,
	logger *zap.Logger,
	gatewaySecret string,
	currency string,
) Service {
	return &service{
		repo:          repo,
		projectRepo:   projectRepo,
		userRepo:      userRepo,
		hub:           hub,
		metrics:       m,
		logger:        logger,
		gatewaySecret: gatewaySecret,
		currency:      currency,
	}
}

func (s *service) CreateOrder(ctx context.Context, donorID string, req OrderRequest) (*Donation, error) {
	if req.Amount <= 0 {
		return nil, apierr.Validation("Amount must be a positive number", map[string]string{"amount": "amount must be positive"})
	}

	did, err := primitive.ObjectIDFromHex(donorID)
	if err != nil {
		return nil, apierr.Validation("Invalid user ID", nil)
	}
	pid, err := primitive.ObjectIDFromHex(req.ProjectID)
	if err != nil {
		return nil, apierr.Validation("Invalid project ID", nil)
	}

	project, err := s.projectRepo.GetByID(ctx, pid)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if project == nil {
		return nil, apierr.NotFound("Project not found")
	}
	if project.Status != projects.StatusApproved {
		return nil, apierr.Validation("Donations are only accepted for approved projects", nil)
	}

	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}

	donation := &Donation{
		Donor:    did,
		Project:  pid,
		Amount:   req.Amount,
		Currency: currency,
		OrderID:  "order_" + uuid.NewString(),
		Status:   StatusCreated,
	}
	if err := s.repo.Create(ctx, donation); err != nil {
		return nil, apierr.Internal(err)
	}
	return donation, nil
}

// expectedSignature is the gateway's HMAC over "orderID|paymentID".
func (s *service) expectedSignature(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(s.gatewaySecret))
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	return hex.EncodeToString(mac.Sum(nil))
}

func receiptHash(d *Donation, paymentID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%.2f|%s",
		d.OrderID, paymentID, d.Project.Hex(), d.Amount, d.Donor.Hex())))
	return hex.EncodeToString(sum[:])
}

func (s *service) Confirm(ctx context.Context, donorID string, req ConfirmRequest) (*Donation, error) {
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, apierr.Validation("orderId, paymentId and signature are required", nil)
	}

	donation, err := s.repo.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if donation == nil {
		return nil, apierr.NotFound("Donation order not found")
	}
	if donation.Donor.Hex() != donorID {
		return nil, apierr.Forbidden("You can only confirm your own donations")
	}

	expected := s.expectedSignature(donation.OrderID, req.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		if err := s.repo.MarkFailed(ctx, donation.ID); err != nil && err != ErrNoMatch {
			s.logger.Error("failed to mark donation failed", zap.String("order", donation.OrderID), zap.Error(err))
		}
		return nil, apierr.Validation("Invalid payment signature", nil)
	}

	hash := receiptHash(donation, req.PaymentID)

	// Single success transition. A replayed confirmation loses the CAS and
	// must not touch raisedAmount again.
	updated, err := s.repo.MarkSuccess(ctx, donation.ID, req.PaymentID, req.Signature, hash)
	if err != nil {
		if err == ErrNoMatch {
			return nil, apierr.Conflict(fmt.Sprintf("Donation has already been %s", donation.Status))
		}
		return nil, apierr.Internal(err)
	}

	if err := s.projectRepo.IncrementRaised(ctx, updated.Project, updated.Amount); err != nil {
		// The donation is recorded; the total catches up on reconciliation.
		s.logger.Error("failed to increment raisedAmount",
			zap.String("project", updated.Project.Hex()),
			zap.String("order", updated.OrderID),
			zap.Error(err))
	}

	if err := s.userRepo.RecordDonation(ctx, updated.Donor, users.DonationRecord{
		ProjectID: updated.Project,
		Amount:    updated.Amount,
		Date:      time.Now(),
		PaymentID: updated.PaymentID,
	}); err != nil {
		s.logger.Error("failed to record donor ledger entry", zap.String("order", updated.OrderID), zap.Error(err))
	}

	s.metrics.DonationsConfirmed.Inc()
	s.hub.Publish(notifications.NewEvent(notifications.EventDonationSucceeded, map[string]interface{}{
		"projectId": updated.Project.Hex(),
		"amount":    updated.Amount,
		"currency":  updated.Currency,
	}))

	return updated, nil
}

func (s *service) Receipt(ctx context.Context, donorID, donationID string) ([]byte, error) {
	id, err := primitive.ObjectIDFromHex(donationID)
	if err != nil {
		return nil, apierr.Validation("Invalid donation ID", nil)
	}

	donation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if donation == nil {
		return nil, apierr.NotFound("Donation not found")
	}
	if donation.Donor.Hex() != donorID {
		return nil, apierr.Forbidden("You can only download your own receipts")
	}
	if donation.Status != StatusSuccess {
		return nil, apierr.Validation("Receipts are only available for successful donations", nil)
	}

	var projectTitle, donorName string
	if project, err := s.projectRepo.GetByID(ctx, donation.Project); err == nil && project != nil {
		projectTitle = project.Title
	}
	if donor, err := s.userRepo.GetByID(ctx, donation.Donor); err == nil && donor != nil {
		donorName = donor.Name
	}

	pdf, err := buildReceipt(donation, projectTitle, donorName)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return pdf, nil
}
