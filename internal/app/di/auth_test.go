package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wandertrails_backend/internal/platform/config"
	"wandertrails_backend/internal/platform/identity/gotrue"
)

func baseConfig(t *testing.T) config.Config {
	return config.Config{
		Env:                      config.EnvTest,
		ClientOrigin:             "http://localhost:3000",
		JWTSecret:                "test-secret-at-least-20-chars",
		CookieName:               "sid",
		TokenExpiresDays:         7,
		ResetTokenExpiresMinutes: 30,
		StoreDriver:              config.DriverFile,
		UsersFile:                filepath.Join(t.TempDir(), "users.json"),
	}
}

func TestNewAuthService_LocalFileStore(t *testing.T) {
	ctx := context.Background()
	cfg := baseConfig(t)

	auth, cleanup, err := NewAuthService(ctx, cfg)
	require.NoError(t, err)
	defer cleanup()

	res, err := auth.Signup(ctx, "Ann", "ann@x.com", "password123")
	require.NoError(t, err)

	me, err := auth.GetSession(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, me.ID)

	assert.FileExists(t, cfg.UsersFile)
}

func TestNewAuthService_SQLiteStore(t *testing.T) {
	ctx := context.Background()
	cfg := baseConfig(t)
	cfg.StoreDriver = config.DriverSQLite
	cfg.DBName = ":memory:"

	auth, cleanup, err := NewAuthService(ctx, cfg)
	require.NoError(t, err)
	defer cleanup()

	_, err = auth.Signup(ctx, "Ann", "ann@x.com", "password123")
	require.NoError(t, err)
	_, err = auth.Login(ctx, "ANN@x.com", "password123")
	assert.NoError(t, err)
}

func TestNewAuthService_ManagedIdentity(t *testing.T) {
	cfg := baseConfig(t)
	cfg.SupabaseURL = "https://project.supabase.co"
	cfg.SupabaseAnonKey = "anon"

	auth, cleanup, err := NewAuthService(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &gotrue.Client{}, auth)
}

func TestNewAuthService_WeakSecret(t *testing.T) {
	cfg := baseConfig(t)
	cfg.JWTSecret = "short"

	_, cleanup, err := NewAuthService(context.Background(), cfg)
	assert.Error(t, err)
	assert.NotNil(t, cleanup)
}

func TestNewRevocationList_DisabledWithoutRedis(t *testing.T) {
	list, cleanup, err := NewRevocationList(context.Background(), baseConfig(t))
	require.NoError(t, err)
	defer cleanup()
	assert.Nil(t, list)
}

func TestDatabaseConfig(t *testing.T) {
	cfg := baseConfig(t)
	cfg.StoreDriver = config.DriverMySQL
	cfg.DBUser = "u"
	cfg.DBPassword = "p"
	cfg.DBName = "auth"
	cfg.DBInstanceName = "project:region:instance"

	got := DatabaseConfig(cfg)
	assert.Equal(t, "mysql", got.Driver)
	assert.Equal(t, "project:region:instance", got.InstanceName)
	assert.Equal(t, "auth", got.Name)
}
