package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"communifund/platform-backend/internal/apierr"
	"communifund/platform-backend/internal/config"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Claims carried by both access and refresh tokens.
type Claims struct {
	SubjectID string `json:"user_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// TokenPair is what login/register/refresh hand back to clients.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenManager signs and verifies JWTs.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
	}
}

// IssuePair mints an access/refresh token pair for the subject.
func (tm *TokenManager) IssuePair(subjectID, role string) (*TokenPair, error) {
	access, err := tm.sign(subjectID, role, tm.accessSecret, tm.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := tm.sign(subjectID, role, tm.refreshSecret, tm.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (tm *TokenManager) sign(subjectID, role string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		SubjectID: subjectID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccess parses and validates an access token.
func (tm *TokenManager) VerifyAccess(tokenString string) (*Claims, error) {
	return tm.verify(tokenString, tm.accessSecret)
}

// VerifyRefresh parses and validates a refresh token.
func (tm *TokenManager) VerifyRefresh(tokenString string) (*Claims, error) {
	return tm.verify(tokenString, tm.refreshSecret)
}

func (tm *TokenManager) verify(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apierr.Unauthorized("Not authorized, token failed")
	}
	return claims, nil
}
