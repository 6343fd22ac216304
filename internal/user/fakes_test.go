package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRepo is an in-memory Repository enforcing the same uniqueness rules as
// the users table.
type memRepo struct {
	mu    sync.Mutex
	users []*User
}

func (r *memRepo) Create(ctx context.Context, username, email, passwordHash string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			return nil, ErrAlreadyExists
		}
	}
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.users = append(r.users, u)
	c := *u
	return &c, nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) UpdateProfile(ctx context.Context, id, username, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID != id && (u.Username == username || u.Email == email) {
			return nil, ErrAlreadyExists
		}
	}
	for _, u := range r.users {
		if u.ID == id {
			u.Username = username
			u.Email = email
			u.UpdatedAt = time.Now()
			c := *u
			return &c, nil
		}
	}
	return nil, ErrNotFound
}
