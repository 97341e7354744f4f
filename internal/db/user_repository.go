package db

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("username or email already exists")

const uniqueViolation = "23505"

type User struct {
	ID               uuid.UUID
	Username         string
	Email            string
	FullName         string
	PasswordHash     string
	AvatarURL        string
	CoverImageURL    sql.NullString
	RefreshTokenHash sql.NullString
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UserUpdate is a partial update of mutable profile fields. Nil means
// "leave unchanged"; all provided fields are applied in one UPDATE.
type UserUpdate struct {
	FullName *string
	Email    *string
}

const userColumns = `id, username, email, full_name, password_hash, avatar_url,
	cover_image_url, refresh_token_hash, created_at, updated_at`

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, email, full_name, password_hash, avatar_url, cover_image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.FullName, user.PasswordHash,
		user.AvatarURL, user.CoverImageURL, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrUserExists
		}
		return err
	}

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, NormalizeUsername(username)))
}

// GetByUsernameOrEmail matches on either identifier. Empty strings never
// match because usernames and emails are non-empty by construction.
func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query,
		NormalizeUsername(username), NormalizeEmail(email)))
}

func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query,
		NormalizeUsername(username), NormalizeEmail(email)).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// SetRefreshTokenHash overwrites the stored refresh token hash in a single
// atomic field update. This is the rotation mechanism: at most one refresh
// token per user is valid at any time, and the last writer wins.
func (r *UserRepository) SetRefreshTokenHash(ctx context.Context, id uuid.UUID, hash sql.NullString) error {
	query := `
		UPDATE users
		SET refresh_token_hash = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, hash)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ClearRefreshTokenHash is the logout path. It is unconditional and
// idempotent: clearing an already-clear token succeeds.
func (r *UserRepository) ClearRefreshTokenHash(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET refresh_token_hash = NULL, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Update applies a partial profile update and returns the updated row.
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, upd UserUpdate) (*User, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}

	if upd.FullName != nil {
		args = append(args, *upd.FullName)
		sets = append(sets, "full_name = $"+strconv.Itoa(len(args)))
	}
	if upd.Email != nil {
		args = append(args, NormalizeEmail(*upd.Email))
		sets = append(sets, "email = $"+strconv.Itoa(len(args)))
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + userColumns

	user, err := r.scanOne(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) UpdateAvatarURL(ctx context.Context, id uuid.UUID, url string) (*User, error) {
	query := `
		UPDATE users
		SET avatar_url = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return r.scanOne(r.db.QueryRowContext(ctx, query, id, url))
}

func (r *UserRepository) UpdateCoverImageURL(ctx context.Context, id uuid.UUID, url string) (*User, error) {
	query := `
		UPDATE users
		SET cover_image_url = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return r.scanOne(r.db.QueryRowContext(ctx, query, id, url))
}

func (r *UserRepository) scanOne(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName, &user.PasswordHash,
		&user.AvatarURL, &user.CoverImageURL, &user.RefreshTokenHash,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}
