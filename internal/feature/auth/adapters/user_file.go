package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"wandertrails_backend/internal/feature/auth/domain/entity"
	"wandertrails_backend/internal/feature/auth/usecase"
)

// fileUser is the persisted shape of a user inside the JSON document.
type fileUser struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	PasswordHash        string `json:"passwordHash"`
	CreatedAt           string `json:"createdAt"`
	ResetTokenHash      string `json:"resetTokenHash,omitempty"`
	ResetTokenExpiresAt string `json:"resetTokenExpiresAt,omitempty"`
}

// fileDocument is the whole store: {"users": [...]}.
type fileDocument struct {
	Users []fileUser `json:"users"`
}

// toEntity converts the persisted record to a domain entity.
// An unparseable reset expiry becomes nil, which the usecase treats as expired.
func (u *fileUser) toEntity() *entity.User {
	created, _ := time.Parse(time.RFC3339Nano, u.CreatedAt)
	e := &entity.User{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		CreatedAt:      created,
		ResetTokenHash: u.ResetTokenHash,
	}
	if u.ResetTokenExpiresAt != "" {
		if exp, err := time.Parse(time.RFC3339Nano, u.ResetTokenExpiresAt); err == nil {
			e.ResetTokenExpiresAt = &exp
		}
	}
	return e
}

// userFile is a UserRepository backed by a single JSON file.
//
// Writes hold an in-process mutex and an exclusive flock on "<path>.lock" for the
// whole read-modify-write cycle, then replace the file with temp-file + rename.
// Readers therefore see either the previous or the next complete document.
type userFile struct {
	path  string
	mu    sync.Mutex
	lock  *flock.Flock
	now   func() time.Time
	newID func() (string, error)
}

// Compile-time check to ensure userFile implements UserRepository.
var _ usecase.UserRepository = (*userFile)(nil)

// NewUserFile creates a file-backed repository at path, creating its directory.
func NewUserFile(path string) (*userFile, error) {
	if path == "" {
		return nil, errors.New("users file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create users directory: %w", err)
	}
	return &userFile{
		path:  path,
		lock:  flock.New(path + ".lock"),
		now:   time.Now,
		newID: func() (string, error) { return gonanoid.New() },
	}, nil
}

// Create appends a new user. The email check runs under the write lock,
// so two concurrent signups for one email cannot both succeed.
func (r *userFile) Create(ctx context.Context, name, email, passwordHash string) (*entity.User, error) {
	email = normalizeEmail(email)

	var created fileUser
	err := r.update(ctx, func(doc *fileDocument) (bool, error) {
		for i := range doc.Users {
			if normalizeEmail(doc.Users[i].Email) == email {
				return false, usecase.ErrEmailAlreadyExists
			}
		}

		id, err := r.newID()
		if err != nil {
			return false, fmt.Errorf("failed to generate user id: %w", err)
		}
		created = fileUser{
			ID:           id,
			Name:         name,
			Email:        email,
			PasswordHash: passwordHash,
			CreatedAt:    r.now().UTC().Format(time.RFC3339Nano),
		}
		doc.Users = append(doc.Users, created)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return created.toEntity(), nil
}

// FindByEmail returns usecase.ErrUserNotFound if no user has the email.
func (r *userFile) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	email = normalizeEmail(email)
	return r.find(ctx, func(u *fileUser) bool { return normalizeEmail(u.Email) == email })
}

// FindByID returns usecase.ErrUserNotFound if no user has the ID.
func (r *userFile) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if id == "" {
		return nil, usecase.ErrUserNotFound
	}
	return r.find(ctx, func(u *fileUser) bool { return u.ID == id })
}

// SetResetToken overwrites the single reset slot of the user. Unknown emails are a no-op
// and leave the file untouched.
func (r *userFile) SetResetToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) error {
	email = normalizeEmail(email)
	return r.update(ctx, func(doc *fileDocument) (bool, error) {
		for i := range doc.Users {
			if normalizeEmail(doc.Users[i].Email) == email {
				doc.Users[i].ResetTokenHash = tokenHash
				doc.Users[i].ResetTokenExpiresAt = expiresAt.UTC().Format(time.RFC3339Nano)
				return true, nil
			}
		}
		return false, nil
	})
}

// FindByResetTokenHash returns usecase.ErrUserNotFound if no user holds the digest.
func (r *userFile) FindByResetTokenHash(ctx context.Context, tokenHash string) (*entity.User, error) {
	if tokenHash == "" {
		return nil, usecase.ErrUserNotFound
	}
	return r.find(ctx, func(u *fileUser) bool { return u.ResetTokenHash == tokenHash })
}

// UpdatePasswordAndClearReset replaces the hash and clears both reset fields in one write.
func (r *userFile) UpdatePasswordAndClearReset(ctx context.Context, userID, tokenHash, newHash string) error {
	return r.update(ctx, func(doc *fileDocument) (bool, error) {
		for i := range doc.Users {
			u := &doc.Users[i]
			if u.ID != userID {
				continue
			}
			if tokenHash == "" || u.ResetTokenHash != tokenHash {
				return false, usecase.ErrResetTokenConsumed
			}
			u.PasswordHash = newHash
			u.ResetTokenHash = ""
			u.ResetTokenExpiresAt = ""
			return true, nil
		}
		return false, usecase.ErrUserNotFound
	})
}

func (r *userFile) find(ctx context.Context, match func(*fileUser) bool) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := r.read()
	if err != nil {
		return nil, err
	}
	for i := range doc.Users {
		if match(&doc.Users[i]) {
			return doc.Users[i].toEntity(), nil
		}
	}
	return nil, usecase.ErrUserNotFound
}

// update runs one locked read-modify-write cycle. mutate reports whether the
// document changed; unchanged documents are not rewritten.
func (r *userFile) update(ctx context.Context, mutate func(*fileDocument) (bool, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	locked, err := r.lock.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to lock users file: %w", err)
	}
	if !locked {
		return errors.New("failed to lock users file")
	}
	defer func() { _ = r.lock.Unlock() }()

	doc, err := r.read()
	if err != nil {
		return err
	}
	changed, err := mutate(doc)
	if err != nil || !changed {
		return err
	}
	return r.write(doc)
}

// read loads the document. A missing file is an empty store.
func (r *userFile) read() (*fileDocument, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &fileDocument{}, nil
		}
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}
	return &doc, nil
}

// write replaces the file atomically: temp file in the same directory, fsync, rename.
func (r *userFile) write(doc *fileDocument) error {
	if doc.Users == nil {
		doc.Users = []fileUser{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode users file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace users file: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
