package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/afzalhamdulay1/videoTube/internal/db"
	apperrors "github.com/afzalhamdulay1/videoTube/internal/errors"
	"github.com/afzalhamdulay1/videoTube/internal/logger"
	"github.com/afzalhamdulay1/videoTube/internal/media"
)

const BcryptCost = 12

// PublicUser is the API projection of a user record. The password hash and
// refresh token are never part of it.
type PublicUser struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// PublicUserFrom strips a user record down to its public projection.
func PublicUserFrom(u *db.User) *PublicUser {
	return &PublicUser{
		ID:            u.ID.String(),
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL.String,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// RegisterInput carries the registration form. Avatar and cover are local
// paths of the already-received upload files; the cover is optional.
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	AvatarPath string
	CoverPath  string
}

// LoginResult is the login response body: the public user plus both tokens
// (tokens are also delivered as cookies by the handler).
type LoginResult struct {
	User         *PublicUser `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// Service orchestrates the session lifecycle: register, login, logout,
// refresh and password changes.
type Service struct {
	users  UserStore
	media  media.Store
	tokens *TokenService
	log    *logger.Logger
}

func NewService(users UserStore, mediaStore media.Store, tokens *TokenService) *Service {
	return &Service{
		users:  users,
		media:  mediaStore,
		tokens: tokens,
		log:    logger.Default().WithComponent("auth"),
	}
}

// Register creates a new account. Media uploads happen before the record is
// created: a failed avatar upload aborts registration with no user row.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*PublicUser, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)
	password := strings.TrimSpace(in.Password)

	if fullName == "" || email == "" || username == "" || password == "" {
		return nil, apperrors.BadRequest("all fields are required")
	}
	if in.AvatarPath == "" {
		return nil, apperrors.BadRequest("avatar file is required")
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to check existing users").WithCause(err)
	}
	if exists {
		return nil, apperrors.UserExists()
	}

	avatar, err := s.media.Upload(ctx, in.AvatarPath)
	if err != nil {
		return nil, apperrors.BadRequest("failed to upload avatar").WithCause(err)
	}

	// Cover image is optional; a failed upload leaves it empty.
	coverURL := ""
	if in.CoverPath != "" {
		if cover, err := s.media.Upload(ctx, in.CoverPath); err == nil {
			coverURL = cover.URL
		} else {
			s.log.Warn(ctx, "cover image upload failed", map[string]any{"error": err.Error()})
		}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, apperrors.InternalError("failed to hash password").WithCause(err)
	}

	now := time.Now()
	user := &db.User{
		ID:            uuid.New(),
		Username:      db.NormalizeUsername(username),
		Email:         db.NormalizeEmail(email),
		FullName:      fullName,
		PasswordHash:  string(passwordHash),
		AvatarURL:     avatar.URL,
		CoverImageURL: sql.NullString{String: coverURL, Valid: coverURL != ""},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, db.ErrUserExists) {
			return nil, apperrors.UserExists()
		}
		return nil, apperrors.DatabaseError("something went wrong while registering the user").WithCause(err)
	}

	return PublicUserFrom(user), nil
}

// Login authenticates by username or email and issues a fresh token pair.
// Issuing overwrites the stored refresh token: concurrent logins race with
// last-writer-wins, leaving a single active refresh token.
func (s *Service) Login(ctx context.Context, username, email, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" && email == "" {
		return nil, apperrors.BadRequest("username or email is required")
	}

	user, err := s.users.GetByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, apperrors.UserNotFound()
		}
		return nil, apperrors.DatabaseError("failed to load user").WithCause(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.InvalidCredentials()
	}

	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:         PublicUserFrom(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout clears the stored refresh token. It is unconditional and
// idempotent; logging out twice is not an error.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.ClearRefreshTokenHash(ctx, userID); err != nil {
		return apperrors.DatabaseError("logout failed").WithCause(err)
	}
	return nil
}

// Refresh rotates a valid refresh token to a new pair.
func (s *Service) Refresh(ctx context.Context, incomingToken string) (*TokenPair, error) {
	if incomingToken == "" {
		return nil, apperrors.Unauthorized("unauthorized request")
	}

	user, err := s.tokens.VerifyRefresh(ctx, incomingToken)
	if err != nil {
		return nil, err
	}

	return s.tokens.IssuePair(ctx, user)
}

// ChangePassword verifies the old password and persists a new hash. No
// other field validation runs on this path.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return apperrors.UserNotFound()
		}
		return apperrors.DatabaseError("failed to load user").WithCause(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperrors.BadRequest("invalid old password")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), BcryptCost)
	if err != nil {
		return apperrors.InternalError("failed to hash password").WithCause(err)
	}

	if err := s.users.UpdatePassword(ctx, userID, string(newHash)); err != nil {
		return apperrors.DatabaseError("failed to update password").WithCause(err)
	}

	return nil
}

// CurrentUser returns the public profile of an authenticated user.
func (s *Service) CurrentUser(ctx context.Context, userID uuid.UUID) (*PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, apperrors.UserNotFound()
		}
		return nil, apperrors.DatabaseError("failed to load user").WithCause(err)
	}
	return PublicUserFrom(user), nil
}
