package adapters

import (
	"time"

	"wandertrails_backend/internal/feature/auth/domain/entity"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID                  string     `gorm:"primaryKey;size:32"`
	Name                string     `gorm:"size:80;not null"`
	Email               string     `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash        string     `gorm:"size:255;not null"`
	CreatedAt           time.Time  `gorm:"not null"`
	ResetTokenHash      *string    `gorm:"index;size:64"`
	ResetTokenExpiresAt *time.Time
}

// TableName returns the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}

// ToEntity converts the GORM model to a domain entity.
func (m *UserModel) ToEntity() *entity.User {
	u := &entity.User{
		ID:                  m.ID,
		Name:                m.Name,
		Email:               m.Email,
		PasswordHash:        m.PasswordHash,
		CreatedAt:           m.CreatedAt,
		ResetTokenExpiresAt: m.ResetTokenExpiresAt,
	}
	if m.ResetTokenHash != nil {
		u.ResetTokenHash = *m.ResetTokenHash
	}
	return u
}
