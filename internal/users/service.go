// Package users implements profile management and the channel read models
// built over the subscription graph and watch history.
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/afzalhamdulay1/videoTube/internal/auth"
	"github.com/afzalhamdulay1/videoTube/internal/db"
	apperrors "github.com/afzalhamdulay1/videoTube/internal/errors"
	"github.com/afzalhamdulay1/videoTube/internal/logger"
	"github.com/afzalhamdulay1/videoTube/internal/media"
)

// ProfileStore is the slice of the user repository the profile service
// depends on.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*db.User, error)
	Update(ctx context.Context, id uuid.UUID, update db.UserUpdate) (*db.User, error)
	UpdateAvatarURL(ctx context.Context, id uuid.UUID, url string) (*db.User, error)
	UpdateCoverImageURL(ctx context.Context, id uuid.UUID, url string) (*db.User, error)
}

// ProfileService mutates account details and profile media.
type ProfileService struct {
	users ProfileStore
	media media.Store
	log   *logger.Logger
}

func NewProfileService(users ProfileStore, mediaStore media.Store) *ProfileService {
	return &ProfileService{
		users: users,
		media: mediaStore,
		log:   logger.Default().WithComponent("users"),
	}
}

// UpdateAccount patches full name and/or email. At least one field must be
// present; an absent field keeps its current value.
func (s *ProfileService) UpdateAccount(ctx context.Context, userID uuid.UUID, fullName, email *string) (*auth.PublicUser, error) {
	if fullName == nil && email == nil {
		return nil, apperrors.BadRequest("all fields are required")
	}

	update := db.UserUpdate{FullName: fullName}
	if email != nil {
		normalized := db.NormalizeEmail(*email)
		if normalized == "" {
			return nil, apperrors.BadRequest("email must not be empty")
		}
		update.Email = &normalized
	}
	if fullName != nil && strings.TrimSpace(*fullName) == "" {
		return nil, apperrors.BadRequest("full name must not be empty")
	}

	user, err := s.users.Update(ctx, userID, update)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrUserNotFound):
			return nil, apperrors.UserNotFound()
		case errors.Is(err, db.ErrUserExists):
			return nil, apperrors.Conflict("email is already in use")
		}
		return nil, apperrors.DatabaseError("failed to update account details").WithCause(err)
	}

	return auth.PublicUserFrom(user), nil
}

// UpdateAvatar uploads the replacement first, then deletes the previous
// object. A failed delete aborts the swap, so the user keeps the old URL
// while the freshly uploaded object is left unreferenced.
func (s *ProfileService) UpdateAvatar(ctx context.Context, userID uuid.UUID, localPath string) (*auth.PublicUser, error) {
	if localPath == "" {
		return nil, apperrors.BadRequest("avatar file is missing")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, apperrors.UserNotFound()
		}
		return nil, apperrors.DatabaseError("failed to load user").WithCause(err)
	}

	uploaded, err := s.media.Upload(ctx, localPath)
	if err != nil {
		return nil, apperrors.BadRequest("error while uploading avatar").WithCause(err)
	}
	if uploaded.URL == "" {
		return nil, apperrors.BadRequest("error while uploading avatar")
	}

	if user.AvatarURL != "" {
		publicID := media.PublicIDFromURL(user.AvatarURL)
		if err := s.media.Delete(ctx, publicID); err != nil {
			s.log.Warn(ctx, "failed to delete old avatar", map[string]any{
				"public_id": publicID, "error": err.Error(),
			})
			return nil, apperrors.BadRequest("error while deleting old avatar").WithCause(err)
		}
	}

	updated, err := s.users.UpdateAvatarURL(ctx, userID, uploaded.URL)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to update avatar").WithCause(err)
	}

	return auth.PublicUserFrom(updated), nil
}

// UpdateCoverImage uploads and persists a new cover image. The previous
// cover object is not deleted.
func (s *ProfileService) UpdateCoverImage(ctx context.Context, userID uuid.UUID, localPath string) (*auth.PublicUser, error) {
	if localPath == "" {
		return nil, apperrors.BadRequest("cover image file is missing")
	}

	uploaded, err := s.media.Upload(ctx, localPath)
	if err != nil {
		return nil, apperrors.BadRequest("error while uploading cover image").WithCause(err)
	}
	if uploaded.URL == "" {
		return nil, apperrors.BadRequest("error while uploading cover image")
	}

	updated, err := s.users.UpdateCoverImageURL(ctx, userID, uploaded.URL)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, apperrors.UserNotFound()
		}
		return nil, apperrors.DatabaseError("failed to update cover image").WithCause(err)
	}

	return auth.PublicUserFrom(updated), nil
}
