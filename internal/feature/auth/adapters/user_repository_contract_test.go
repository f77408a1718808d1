package adapters

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wandertrails_backend/internal/feature/auth/usecase"
)

// runUserRepositoryContract exercises the behaviour every Credential Store backend must share.
func runUserRepositoryContract(t *testing.T, newRepo func(t *testing.T) usecase.UserRepository) {
	ctx := context.Background()

	t.Run("create populates id and createdAt", func(t *testing.T) {
		repo := newRepo(t)

		before := time.Now().Add(-time.Second)
		user, err := repo.Create(ctx, "Ann", "ann@x.com", "hash-1")
		require.NoError(t, err)

		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "Ann", user.Name)
		assert.Equal(t, "ann@x.com", user.Email)
		assert.Equal(t, "hash-1", user.PasswordHash)
		assert.True(t, user.CreatedAt.After(before), "CreatedAt is before creation time")
		assert.Empty(t, user.ResetTokenHash)
		assert.Nil(t, user.ResetTokenExpiresAt)
	})

	t.Run("duplicate email is rejected case-insensitively", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Create(ctx, "Ann", "ann@x.com", "hash-1")
		require.NoError(t, err)

		_, err = repo.Create(ctx, "Other", "ANN@X.COM", "hash-2")
		assert.ErrorIs(t, err, usecase.ErrEmailAlreadyExists)
	})

	t.Run("find by email and id", func(t *testing.T) {
		repo := newRepo(t)

		users := make([]string, 0, 3)
		for _, email := range []string{"user1@example.com", "user2@example.com", "user3@example.com"} {
			u, err := repo.Create(ctx, "n", email, "pass-"+email)
			require.NoError(t, err)
			users = append(users, u.ID)
		}

		found, err := repo.FindByEmail(ctx, "User2@Example.com")
		require.NoError(t, err)
		assert.Equal(t, users[1], found.ID)
		assert.Equal(t, "pass-user2@example.com", found.PasswordHash)

		byID, err := repo.FindByID(ctx, users[2])
		require.NoError(t, err)
		assert.Equal(t, "user3@example.com", byID.Email)
	})

	t.Run("missing users are ErrUserNotFound", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.FindByEmail(ctx, "ghost@nowhere.test")
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)

		_, err = repo.FindByID(ctx, "nope")
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)

		_, err = repo.FindByID(ctx, "")
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)

		_, err = repo.FindByResetTokenHash(ctx, "")
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)
	})

	t.Run("set reset token for unknown email is a no-op", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Create(ctx, "Ann", "ann@x.com", "hash-1")
		require.NoError(t, err)

		err = repo.SetResetToken(ctx, "ghost@nowhere.test", "digest", time.Now().Add(time.Hour))
		require.NoError(t, err)

		_, err = repo.FindByResetTokenHash(ctx, "digest")
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)
	})

	t.Run("reset token lifecycle", func(t *testing.T) {
		repo := newRepo(t)

		user, err := repo.Create(ctx, "Ann", "ann@x.com", "old-hash")
		require.NoError(t, err)

		expiresAt := time.Now().Add(30 * time.Minute).Truncate(time.Second)
		require.NoError(t, repo.SetResetToken(ctx, "ann@x.com", "digest-1", expiresAt))

		found, err := repo.FindByResetTokenHash(ctx, "digest-1")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		require.NotNil(t, found.ResetTokenExpiresAt)
		assert.True(t, expiresAt.Equal(*found.ResetTokenExpiresAt))

		// A second request supersedes the first.
		require.NoError(t, repo.SetResetToken(ctx, "ann@x.com", "digest-2", expiresAt))
		_, err = repo.FindByResetTokenHash(ctx, "digest-1")
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)

		// The superseded digest cannot be used to update.
		err = repo.UpdatePasswordAndClearReset(ctx, user.ID, "digest-1", "new-hash")
		assert.ErrorIs(t, err, usecase.ErrResetTokenConsumed)

		require.NoError(t, repo.UpdatePasswordAndClearReset(ctx, user.ID, "digest-2", "new-hash"))

		updated, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", updated.PasswordHash)
		assert.Empty(t, updated.ResetTokenHash)
		assert.Nil(t, updated.ResetTokenExpiresAt)

		// Single use.
		err = repo.UpdatePasswordAndClearReset(ctx, user.ID, "digest-2", "newer-hash")
		assert.ErrorIs(t, err, usecase.ErrResetTokenConsumed)
	})

	t.Run("update for unknown user", func(t *testing.T) {
		repo := newRepo(t)

		err := repo.UpdatePasswordAndClearReset(ctx, "nope", "digest", "hash")
		assert.ErrorIs(t, err, usecase.ErrUserNotFound)
	})

	t.Run("concurrent signups for one email produce one account", func(t *testing.T) {
		repo := newRepo(t)

		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Create(ctx, "Ann", "race@x.com", "hash")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case assert.ErrorIs(t, err, usecase.ErrEmailAlreadyExists):
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, workers-1, conflicts)
	})
}
