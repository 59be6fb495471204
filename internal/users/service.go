package users

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"communifund/platform-backend/internal/apierr"
	"communifund/platform-backend/internal/auth"
	"communifund/platform-backend/internal/mailer"
)

const otpTTL = 10 * time.Minute

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegisterRequest carries a new local account plus the OTP proving
// ownership of the email.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"verificationOTP"`
	Avatar   string `json:"avatar"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by register/login/refresh.
type AuthResult struct {
	User   *User
	Tokens *auth.TokenPair
}

// Service implements donor/creator identity flows.
type Service interface {
	SendVerificationOTP(ctx context.Context, email string) error
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, userID string) error
	GetByID(ctx context.Context, userID string) (*User, error)
}

type service struct {
	repo   Repository
	tokens *auth.TokenManager
	mail   mailer.Mailer
	logger *zap.Logger
}

func NewService(repo Repository, tokens *auth.TokenManager, mail mailer.Mailer, logger *zap.Logger) Service {
	return &service{repo: repo, tokens: tokens, mail: mail, logger: logger}
}

func generateOTP() (string, error) {
	// Six digits, crypto-random, range [100000, 999999].
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func (s *service) SendVerificationOTP(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apierr.Validation("Email is required", nil)
	}
	if !emailPattern.MatchString(email) {
		return apierr.Validation("Invalid email id", nil)
	}

	existing, err := s.repo.GetByEmail(ctx, email, ProviderLocal)
	if err != nil {
		return apierr.Internal(err)
	}
	if existing != nil {
		return apierr.Validation("User already exists with this email", nil)
	}

	otp, err := generateOTP()
	if err != nil {
		return apierr.Internal(err)
	}

	now := time.Now()
	if err := s.repo.PutOTP(ctx, &EmailOTP{
		Email:     email,
		OTP:       otp,
		ExpiresAt: now.Add(otpTTL),
		CreatedAt: now,
	}); err != nil {
		return apierr.Internal(err)
	}

	if err := s.mail.SendVerificationOTP(ctx, email, otp); err != nil {
		s.logger.Error("failed to send verification email", zap.String("email", email), zap.Error(err))
		return apierr.External("Failed to send verification email", err)
	}

	return nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "name is required"
	}
	if req.Email == "" {
		fields["email"] = "email is required"
	} else if !emailPattern.MatchString(req.Email) {
		fields["email"] = "invalid email id"
	}
	if len(req.Password) < 6 {
		fields["password"] = "password must be at least 6 characters"
	}
	if req.OTP == "" {
		fields["verificationOTP"] = "OTP is required"
	}
	if len(fields) > 0 {
		return nil, apierr.Validation("All fields including OTP are required", fields)
	}

	existing, err := s.repo.GetByEmail(ctx, req.Email, ProviderLocal)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if existing != nil {
		return nil, apierr.Validation("User already exists, please login", nil)
	}

	if err := s.repo.ConsumeOTP(ctx, req.Email, req.OTP); err != nil {
		if errors.Is(err, ErrOTPInvalid) {
			return nil, apierr.Validation("Invalid or expired OTP", nil)
		}
		return nil, apierr.Internal(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	user := &User{
		Name:       req.Name,
		Email:      req.Email,
		Password:   string(hashed),
		Provider:   ProviderLocal,
		Avatar:     req.Avatar,
		IsVerified: true,
		Status:     StatusActive,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apierr.Validation("User already exists, please login", nil)
		}
		return nil, apierr.Internal(err)
	}

	return s.issueTokens(ctx, user)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return nil, apierr.Validation("Email and password are required", nil)
	}
	if !emailPattern.MatchString(req.Email) {
		return nil, apierr.Validation("Invalid email id", nil)
	}

	user, err := s.repo.GetByEmail(ctx, req.Email, ProviderLocal)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if user == nil {
		return nil, apierr.Validation("User does not exist", nil)
	}
	if !user.IsVerified {
		return nil, apierr.Unauthorized("Please verify your email first")
	}
	if user.Status == StatusBanned {
		return nil, apierr.Forbidden("Your account is banned")
	}
	if user.Status != StatusActive {
		return nil, apierr.Forbidden("Your account is not active")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apierr.Validation("Email or password is incorrect", nil)
	}

	return s.issueTokens(ctx, user)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, apierr.Unauthorized("Unauthorized request: Token missing")
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.GetByID(ctx, claims.SubjectID)
	if err != nil {
		return nil, err
	}
	// Rotation: the presented token must be the one on record.
	if user.RefreshToken != refreshToken {
		return nil, apierr.Unauthorized("Unauthorized request: Invalid refresh token")
	}

	return s.issueTokens(ctx, user)
}

func (s *service) Logout(ctx context.Context, userID string) error {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return apierr.Validation("Invalid user ID", nil)
	}
	if err := s.repo.SetRefreshToken(ctx, id, ""); err != nil {
		return apierr.Internal(err)
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, userID string) (*User, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apierr.Validation("Invalid user ID", nil)
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if user == nil {
		return nil, apierr.NotFound("User not found")
	}
	return user, nil
}

func (s *service) issueTokens(ctx context.Context, user *User) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(user.ID.Hex(), auth.RoleUser)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if err := s.repo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, apierr.Internal(err)
	}
	user.RefreshToken = pair.RefreshToken
	return &AuthResult{User: user, Tokens: pair}, nil
}
