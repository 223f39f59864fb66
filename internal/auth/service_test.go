// internal/auth/service_test.go
package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfjones/chatter/internal/db"
	"github.com/mfjones/chatter/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "chatter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.RunMigrations())
	return NewService(store.NewUserStore(database), "test-secret")
}

func TestRegisterHashesPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@test.io", "alice", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)

	stored, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "password123", stored.EncryptedPassword)
	assert.NotEmpty(t, stored.EncryptedPassword)
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@test.io", "alice", "password123")
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, "alice@test.io", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "bearer", token.TokenType)
	assert.Equal(t, AccessTokenExpiry, token.ExpiresIn)
	assert.NotEmpty(t, token.AccessToken)

	// Leading whitespace in the email is tolerated.
	_, _, err = svc.Login(ctx, " alice@test.io", "password123")
	assert.NoError(t, err)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@test.io", "alice", "password123")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice@test.io", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@test.io", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@test.io", "alice", "password123")
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims["sub"])
	assert.Equal(t, "alice", claims["username"])
	assert.Equal(t, "chatter", claims["iss"])

	sub, err := svc.UserIDFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, sub)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestService(t)
	other := NewService(nil, "different-secret")
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@test.io", "alice", "password123")
	require.NoError(t, err)

	token, err := other.GenerateAccessToken(user)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.Error(t, err)

	_, err = svc.UserIDFromToken("not-even-a-jwt")
	assert.Error(t, err)
}
