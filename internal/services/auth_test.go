package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/repos"
	"github.com/sulafhq/sulaf-backend/internal/types"
)

func newAuthFixture(t *testing.T) (AuthService, repos.UserRepo) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.User{}))

	userRepo := repos.NewUserRepo(db, logger.NewNop())
	return NewAuthService(logger.NewNop(), userRepo), userRepo
}

func TestRegisterLoginAuthenticateRoundtrip(t *testing.T) {
	auth, _ := newAuthFixture(t)
	ctx := context.Background()

	user, token, err := auth.Register(ctx, RegisterInput{
		Username: "qari",
		Email:    "Qari@Example.com",
		Password: "secret123",
		FullName: "قارئ نهم",
	})
	require.NoError(t, err)
	assert.Equal(t, "qari@example.com", user.Email, "email is normalized")
	assert.NotEqual(t, "secret123", user.Password, "password is stored hashed")
	assert.NotEmpty(t, user.AvatarURL)
	require.NotEmpty(t, token)

	got, err := auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	loggedIn, loginToken, err := auth.Login(ctx, LoginInput{Email: "qari@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, loginToken)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	auth, _ := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := auth.Register(ctx, RegisterInput{Username: "qari", Email: "qari@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, _, err = auth.Register(ctx, RegisterInput{Username: "other", Email: "qari@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, _, err = auth.Register(ctx, RegisterInput{Username: "qari", Email: "new@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth, _ := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := auth.Register(ctx, RegisterInput{Username: "qari", Email: "qari@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, LoginInput{Email: "qari@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateRejectsGarbageAndForeignTokens(t *testing.T) {
	auth, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := auth.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// A well-formed token for a user this database has never seen.
	otherAuth, _ := newAuthFixture(t)
	_, foreignToken, err := otherAuth.Register(ctx, RegisterInput{Username: "x", Email: "x@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = auth.Authenticate(ctx, foreignToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
