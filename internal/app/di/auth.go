// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	authadapters "wandertrails_backend/internal/feature/auth/adapters"
	authhandler "wandertrails_backend/internal/feature/auth/transport/handler"
	"wandertrails_backend/internal/feature/auth/usecase"
	"wandertrails_backend/internal/platform/config"
	"wandertrails_backend/internal/platform/db"
	platformhttp "wandertrails_backend/internal/platform/http"
	"wandertrails_backend/internal/platform/identity/gotrue"
	jwtmw "wandertrails_backend/internal/platform/jwt"
	"wandertrails_backend/internal/platform/password"
	platformredis "wandertrails_backend/internal/platform/redis"
	"wandertrails_backend/internal/platform/session"
)

const (
	dbConnectTimeout   = 60 * time.Second
	identityTimeout    = 10 * time.Second
	revocationKeySpace = "wandertrails"
)

// Compile-time check that the managed identity client can stand in for the local usecase.
var _ authhandler.AuthUsecase = (*gotrue.Client)(nil)

// Cleanup releases resources acquired by a factory. It is never nil.
type Cleanup func()

func noop() {}

// NewAuthService returns the auth backend selected by configuration: the managed
// identity provider when it is configured, the local usecase otherwise.
func NewAuthService(ctx context.Context, cfg config.Config) (authhandler.AuthUsecase, Cleanup, error) {
	if cfg.UsesManagedIdentity() {
		client, err := gotrue.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey,
			cfg.ResetURLBase()+"/reset-password", platformhttp.NewHTTPClient(identityTimeout))
		if err != nil {
			return nil, noop, err
		}
		slog.Info("auth backend selected", "backend", "gotrue")
		return client, noop, nil
	}

	users, closeUsers, err := NewUserRepository(ctx, cfg)
	if err != nil {
		return nil, noop, err
	}

	revocations, closeRevocations, err := NewRevocationList(ctx, cfg)
	if err != nil {
		closeUsers()
		return nil, noop, err
	}

	tokens, err := jwtmw.NewGenerator(cfg.JWTSecret, cfg.TokenTTL())
	if err != nil {
		closeRevocations()
		closeUsers()
		return nil, noop, err
	}

	uc := usecase.NewAuthUsecase(users, password.NewHasher(password.DefaultCost), tokens, password.NewResetTokens(), usecase.Config{
		ResetTokenTTL: cfg.ResetTokenTTL(),
		ResetURLBase:  cfg.ResetURLBase(),
		Revocations:   revocations,
	})
	slog.Info("auth backend selected", "backend", "local", "store", cfg.StoreDriver, "revocation", revocations != nil)

	return uc, func() {
		closeRevocations()
		closeUsers()
	}, nil
}

// NewUserRepository creates the Credential Store for cfg.StoreDriver.
func NewUserRepository(ctx context.Context, cfg config.Config) (usecase.UserRepository, Cleanup, error) {
	if cfg.StoreDriver == config.DriverFile {
		repo, err := authadapters.NewUserFile(cfg.UsersFile)
		if err != nil {
			return nil, noop, err
		}
		return repo, noop, nil
	}

	gdb, err := db.Open(DatabaseConfig(cfg), dbConnectTimeout)
	if err != nil {
		return nil, noop, err
	}
	cleanup := closeDB(gdb)

	repo := authadapters.NewUserGorm(gdb)
	if err := repo.Migrate(ctx); err != nil {
		cleanup()
		return nil, noop, err
	}
	return repo, cleanup, nil
}

// NewRevocationList returns the Redis denylist when REDIS_ADDR is set, or nil for stateless sessions.
// A configured but unreachable Redis is an error: logout would otherwise silently stop revoking.
func NewRevocationList(ctx context.Context, cfg config.Config) (usecase.RevocationList, Cleanup, error) {
	if cfg.RedisAddr == "" {
		return nil, noop, nil
	}

	rdb, err := platformredis.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, noop, err
	}
	return session.NewRevocationRedis(rdb, revocationKeySpace), func() {
		if err := rdb.Close(); err != nil {
			slog.Error("failed to close Redis client", "error", err)
		}
	}, nil
}

// DatabaseConfig maps the flat process configuration to the db package's Config.
func DatabaseConfig(cfg config.Config) db.Config {
	return db.Config{
		Driver:       cfg.StoreDriver,
		DSN:          cfg.DBDSN,
		User:         cfg.DBUser,
		Password:     cfg.DBPassword,
		Name:         cfg.DBName,
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		InstanceName: cfg.DBInstanceName,
	}
}

func closeDB(gdb *gorm.DB) Cleanup {
	return func() {
		sqlDB, err := gdb.DB()
		if err != nil {
			return
		}
		if err := sqlDB.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}
}
