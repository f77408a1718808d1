package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"wandertrails_backend/internal/feature/auth/usecase"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to initialize test database")

	// Each connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = NewUserGorm(db).Migrate(context.Background())
	require.NoError(t, err, "failed to migrate table")

	return db
}

func TestUserGorm_Contract(t *testing.T) {
	runUserRepositoryContract(t, func(t *testing.T) usecase.UserRepository {
		return NewUserGorm(setupTestDB(t))
	})
}

func TestNewUserGorm(t *testing.T) {
	db := setupTestDB(t)

	repo := NewUserGorm(db)

	assert.NotNil(t, repo, "repository is nil")
	assert.NotNil(t, repo.db, "database connection is nil")
}

func TestUserGorm_UniqueIndexIsFinalAuthority(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Bypass the repository pre-check and insert directly.
	require.NoError(t, db.Create(&UserModel{
		ID: "u1", Name: "Ann", Email: "ann@x.com", PasswordHash: "h", CreatedAt: time.Now(),
	}).Error)

	err := db.Create(&UserModel{
		ID: "u2", Name: "Ann", Email: "ann@x.com", PasswordHash: "h", CreatedAt: time.Now(),
	}).Error
	require.Error(t, err)
	assert.True(t, isDuplicateKey(err), "expected duplicate key error, got %v", err)

	_, err = NewUserGorm(db).Create(ctx, "Ann", "ann@x.com", "h")
	assert.ErrorIs(t, err, usecase.ErrEmailAlreadyExists)
}

func TestUserGorm_ExpiredResetIsStillFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserGorm(db)
	ctx := context.Background()

	user, err := repo.Create(ctx, "Ann", "ann@x.com", "h")
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, repo.SetResetToken(ctx, "ann@x.com", "digest", past))

	// Expiry is evaluated by the caller, not filtered by the store.
	found, err := repo.FindByResetTokenHash(ctx, "digest")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.False(t, found.HasPendingReset(time.Now()))
}

func TestIsDuplicateKey(t *testing.T) {
	t.Parallel()

	assert.True(t, isDuplicateKey(gorm.ErrDuplicatedKey))
	assert.False(t, isDuplicateKey(gorm.ErrRecordNotFound))
	assert.False(t, isDuplicateKey(assert.AnError))
}
