// Package auth handles registration, login, and JWT issuance.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/harmonia/service/internal/config"
	"github.com/harmonia/service/internal/user"
)

const tokenTTL = 7 * 24 * time.Hour

// Service contains the business logic for credential-based authentication.
type Service struct {
	userSvc *user.Service
	cfg     *config.Config
}

// NewService creates a new auth Service.
func NewService(userSvc *user.Service, cfg *config.Config) *Service {
	return &Service{userSvc: userSvc, cfg: cfg}
}

// Register creates a new account and issues a JWT for it.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, *user.User, error) {
	u, err := s.userSvc.Register(ctx, username, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, u, nil
}

// Login verifies the credential pair and issues a JWT on success.
func (s *Service) Login(ctx context.Context, email, password string) (string, *user.User, error) {
	u, err := s.userSvc.VerifyCredentials(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, u, nil
}

// GetUser returns the account behind an authenticated user ID.
func (s *Service) GetUser(ctx context.Context, id string) (*user.User, error) {
	return s.userSvc.GetByID(ctx, id)
}

// issueToken creates a signed JWT for the given user.
func (s *Service) issueToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
