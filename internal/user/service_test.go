package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister_StoresOnlyAHash(t *testing.T) {
	t.Parallel()
	svc := NewService(&memRepo{})

	u, err := svc.Register(context.Background(), "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")))
}

func TestRegister_DuplicateUsernameOrEmail(t *testing.T) {
	t.Parallel()
	svc := NewService(&memRepo{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrAlreadyExists)
	_, err = svc.Register(ctx, "other", "alice@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestVerifyCredentials(t *testing.T) {
	t.Parallel()
	svc := NewService(&memRepo{})
	ctx := context.Background()

	created, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	u, err := svc.VerifyCredentials(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	// Wrong password and unknown email fail identically.
	_, err = svc.VerifyCredentials(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.VerifyCredentials(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()
	svc := NewService(&memRepo{})
	ctx := context.Background()

	created, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, created.ID, "alice2", "alice2@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)
	assert.Equal(t, "alice2@example.com", updated.Email)

	_, err = svc.UpdateProfile(ctx, "no-such-id", "x", "x@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
