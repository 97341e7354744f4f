package users

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/google/uuid"

	"github.com/afzalhamdulay1/videoTube/internal/auth"
	apperrors "github.com/afzalhamdulay1/videoTube/internal/errors"
	"github.com/afzalhamdulay1/videoTube/internal/validators"
)

// UpdateAccountRequest distinguishes absent fields from empty ones; only
// fields present in the body are updated.
type UpdateAccountRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
}

type Handlers struct {
	profile        *ProfileService
	channels       *ChannelService
	maxUploadBytes int64
}

func NewHandlers(profile *ProfileService, channels *ChannelService, maxUploadBytes int64) *Handlers {
	return &Handlers{
		profile:        profile,
		channels:       channels,
		maxUploadBytes: maxUploadBytes,
	}
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h *Handlers) UpdateAccount(w http.ResponseWriter, r *http.Request) error {
	userCtx := auth.GetUserFromContext(r.Context())
	if userCtx == nil {
		return apperrors.Unauthorized("unauthorized request")
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}

	user, err := h.profile.UpdateAccount(r.Context(), userCtx.UserID, req.FullName, req.Email)
	if err != nil {
		return err
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()),
		http.StatusOK, user, "Account details updated successfully")
	return nil
}

// UpdateAvatar handles PATCH /api/v1/users/avatar (multipart form).
func (h *Handlers) UpdateAvatar(w http.ResponseWriter, r *http.Request) error {
	return h.updateImage(w, r, "avatar", h.profile.UpdateAvatar, "Avatar image updated successfully")
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image (multipart form).
func (h *Handlers) UpdateCoverImage(w http.ResponseWriter, r *http.Request) error {
	return h.updateImage(w, r, "coverImage", h.profile.UpdateCoverImage, "Cover image updated successfully")
}

// ChannelProfile handles GET /api/v1/users/c/{username}. Authentication is
// optional; an authenticated viewer additionally gets isSubscribed.
func (h *Handlers) ChannelProfile(w http.ResponseWriter, r *http.Request) error {
	viewer := uuid.NullUUID{}
	if userCtx := auth.GetUserFromContext(r.Context()); userCtx != nil {
		viewer = uuid.NullUUID{UUID: userCtx.UserID, Valid: true}
	}

	view, err := h.channels.GetChannelProfile(r.Context(), r.PathValue("username"), viewer)
	if err != nil {
		return err
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()),
		http.StatusOK, view, "User channel fetched successfully")
	return nil
}

// ToggleSubscription handles POST /api/v1/subscriptions/c/{username}.
func (h *Handlers) ToggleSubscription(w http.ResponseWriter, r *http.Request) error {
	userCtx := auth.GetUserFromContext(r.Context())
	if userCtx == nil {
		return apperrors.Unauthorized("unauthorized request")
	}

	subscribed, err := h.channels.ToggleSubscription(r.Context(), userCtx.UserID, r.PathValue("username"))
	if err != nil {
		return err
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()),
		http.StatusOK, map[string]bool{"subscribed": subscribed}, "Subscription toggled successfully")
	return nil
}

// WatchHistory handles GET /api/v1/users/history.
func (h *Handlers) WatchHistory(w http.ResponseWriter, r *http.Request) error {
	userCtx := auth.GetUserFromContext(r.Context())
	if userCtx == nil {
		return apperrors.Unauthorized("unauthorized request")
	}

	history, err := h.channels.GetWatchHistory(r.Context(), userCtx.UserID)
	if err != nil {
		return err
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()),
		http.StatusOK, history, "Watch history fetched successfully")
	return nil
}

// RecordWatch handles POST /api/v1/users/history/{videoId}.
func (h *Handlers) RecordWatch(w http.ResponseWriter, r *http.Request) error {
	userCtx := auth.GetUserFromContext(r.Context())
	if userCtx == nil {
		return apperrors.Unauthorized("unauthorized request")
	}

	videoID, err := uuid.Parse(r.PathValue("videoId"))
	if err != nil {
		return apperrors.BadRequest("invalid video id")
	}

	if err := h.channels.RecordWatch(r.Context(), userCtx.UserID, videoID); err != nil {
		return err
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()),
		http.StatusOK, struct{}{}, "Watch recorded successfully")
	return nil
}

func (h *Handlers) updateImage(w http.ResponseWriter, r *http.Request, field string,
	update func(ctx context.Context, userID uuid.UUID, localPath string) (*auth.PublicUser, error),
	message string) error {

	userCtx := auth.GetUserFromContext(r.Context())
	if userCtx == nil {
		return apperrors.Unauthorized("unauthorized request")
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return apperrors.BadRequest("invalid multipart form")
	}

	path, err := validators.ReceiveImage(r, field, h.maxUploadBytes)
	if err != nil {
		return apperrors.BadRequest(err.Error())
	}
	if path != "" {
		defer os.Remove(path)
	}

	user, err := update(r.Context(), userCtx.UserID, path)
	if err != nil {
		return err
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()),
		http.StatusOK, user, message)
	return nil
}
