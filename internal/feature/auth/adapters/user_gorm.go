// Package adapters provides Credential Store implementations for the auth feature.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"wandertrails_backend/internal/feature/auth/domain/entity"
	"wandertrails_backend/internal/feature/auth/usecase"
)

// userGorm is a UserRepository backed by a SQL table through GORM.
// Uniqueness of email is enforced by a unique index; every mutation is a single statement
// or a transaction, so readers never see a partial write.
type userGorm struct {
	db    *gorm.DB
	now   func() time.Time
	newID func() (string, error)
}

// Compile-time check to ensure userGorm implements UserRepository.
var _ usecase.UserRepository = (*userGorm)(nil)

// NewUserGorm creates a new instance of userGorm with the given gorm.DB connection.
func NewUserGorm(db *gorm.DB) *userGorm {
	return &userGorm{
		db:    db,
		now:   time.Now,
		newID: func() (string, error) { return gonanoid.New() },
	}
}

// Migrate creates or updates the users table.
func (r *userGorm) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&UserModel{})
}

// Create inserts a user. It returns usecase.ErrEmailAlreadyExists on a unique violation.
func (r *userGorm) Create(ctx context.Context, name, email, passwordHash string) (*entity.User, error) {
	id, err := r.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user id: %w", err)
	}
	m := &UserModel{
		ID:           id,
		Name:         name,
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UTC(),
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&UserModel{}).Where("email = ?", m.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return usecase.ErrEmailAlreadyExists
		}
		return tx.Create(m).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, usecase.ErrEmailAlreadyExists
		}
		return nil, err
	}
	return m.ToEntity(), nil
}

// FindByEmail returns usecase.ErrUserNotFound if no user has the email.
func (r *userGorm) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.first(ctx, "email = ?", normalizeEmail(email))
}

// FindByID returns usecase.ErrUserNotFound if no user has the ID.
func (r *userGorm) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if id == "" {
		return nil, usecase.ErrUserNotFound
	}
	return r.first(ctx, "id = ?", id)
}

// SetResetToken overwrites the reset slot. Zero affected rows (unknown email) is not an error.
func (r *userGorm) SetResetToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) error {
	exp := expiresAt.UTC()
	return r.db.WithContext(ctx).
		Model(&UserModel{}).
		Where("email = ?", normalizeEmail(email)).
		Updates(map[string]any{
			"reset_token_hash":       tokenHash,
			"reset_token_expires_at": exp,
		}).Error
}

// FindByResetTokenHash returns usecase.ErrUserNotFound if no user holds the digest.
func (r *userGorm) FindByResetTokenHash(ctx context.Context, tokenHash string) (*entity.User, error) {
	if tokenHash == "" {
		return nil, usecase.ErrUserNotFound
	}
	return r.first(ctx, "reset_token_hash = ?", tokenHash)
}

// UpdatePasswordAndClearReset updates the hash and clears the reset slot in one statement,
// guarded by the digest so a token can only be consumed once.
func (r *userGorm) UpdatePasswordAndClearReset(ctx context.Context, userID, tokenHash, newHash string) error {
	result := r.db.WithContext(ctx).
		Model(&UserModel{}).
		Where("id = ? AND reset_token_hash = ?", userID, tokenHash).
		Updates(map[string]any{
			"password_hash":          newHash,
			"reset_token_hash":       gorm.Expr("NULL"),
			"reset_token_expires_at": gorm.Expr("NULL"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, userID); err != nil {
			return err
		}
		return usecase.ErrResetTokenConsumed
	}
	return nil
}

func (r *userGorm) first(ctx context.Context, query string, arg any) (*entity.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}
	return m.ToEntity(), nil
}

// isDuplicateKey detects unique violations across the supported dialects.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// MySQL error 1062: duplicate entry for unique key
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	// PostgreSQL SQLSTATE 23505: unique_violation
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}
