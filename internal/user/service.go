package user

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when the email/password pair does not
// match a stored credential. Unknown email and wrong password are deliberately
// indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service contains business logic for user accounts and credentials.
type Service struct {
	repo Repository
}

// NewService creates a new user Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a new account, storing the password only as a bcrypt hash.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.repo.Create(ctx, username, email, string(hash))
	if err != nil {
		return nil, err
	}
	return u, nil
}

// VerifyCredentials checks the email/password pair and returns the matching user.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		// Burn a comparison anyway so the timing does not reveal
		// whether the email is registered.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetByID returns a user by their UUID.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile changes the username and email of an existing user.
func (s *Service) UpdateProfile(ctx context.Context, id, username, email string) (*User, error) {
	return s.repo.UpdateProfile(ctx, id, username, email)
}

// dummyHash is a valid bcrypt hash of an unguessable string, used only to
// equalize timing in VerifyCredentials.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")
