package auth

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	apperrors "github.com/afzalhamdulay1/videoTube/internal/errors"
	"github.com/afzalhamdulay1/videoTube/internal/validators"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// CookieSettings controls the transport-level credential cookies. Both are
// always HttpOnly; Secure is configurable for local development.
type CookieSettings struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Handlers struct {
	service        *Service
	cookies        CookieSettings
	maxUploadBytes int64
}

func NewHandlers(service *Service, cookies CookieSettings, maxUploadBytes int64) *Handlers {
	return &Handlers{
		service:        service,
		cookies:        cookies,
		maxUploadBytes: maxUploadBytes,
	}
}

// Register handles POST /api/v1/users/register (multipart form).
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return apperrors.BadRequest("invalid multipart form")
	}

	avatarPath, err := h.receiveUpload(r, "avatar")
	if err != nil {
		return err
	}
	if avatarPath != "" {
		defer os.Remove(avatarPath)
	}

	coverPath, err := h.receiveUpload(r, "coverImage")
	if err != nil {
		return err
	}
	if coverPath != "" {
		defer os.Remove(coverPath)
	}

	user, err := h.service.Register(r.Context(), RegisterInput{
		FullName:   r.FormValue("fullName"),
		Email:      r.FormValue("email"),
		Username:   r.FormValue("username"),
		Password:   r.FormValue("password"),
		AvatarPath: avatarPath,
		CoverPath:  coverPath,
	})
	if err != nil {
		return err
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()),
		http.StatusCreated, user, "User registered successfully")
	return nil
}

// Login handles POST /api/v1/users/login. Tokens are delivered twice: as
// HttpOnly cookies and in the response body.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) error {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setAuthCookies(w, result.AccessToken, result.RefreshToken)
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()),
		http.StatusOK, result, "User logged in successfully")
	return nil
}

// Logout handles POST /api/v1/users/logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) error {
	userCtx := GetUserFromContext(r.Context())
	if userCtx == nil {
		return apperrors.Unauthorized("unauthorized request")
	}

	if err := h.service.Logout(r.Context(), userCtx.UserID); err != nil {
		return err
	}

	h.clearAuthCookies(w)
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()),
		http.StatusOK, struct{}{}, "User logged out successfully")
	return nil
}

// Refresh handles POST /api/v1/users/refresh-token. The incoming token may
// arrive as a cookie or in the body.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) error {
	incoming := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		incoming = cookie.Value
	}
	if incoming == "" && r.Body != nil {
		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			incoming = req.RefreshToken
		}
	}

	pair, err := h.service.Refresh(r.Context(), incoming)
	if err != nil {
		return err
	}

	h.setAuthCookies(w, pair.AccessToken, pair.RefreshToken)
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()),
		http.StatusOK, pair, "Access token refreshed")
	return nil
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) error {
	userCtx := GetUserFromContext(r.Context())
	if userCtx == nil {
		return apperrors.Unauthorized("unauthorized request")
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}

	if err := h.service.ChangePassword(r.Context(), userCtx.UserID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()),
		http.StatusOK, struct{}{}, "Password changed successfully")
	return nil
}

// Me handles GET /api/v1/users/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) error {
	userCtx := GetUserFromContext(r.Context())
	if userCtx == nil {
		return apperrors.Unauthorized("unauthorized request")
	}

	user, err := h.service.CurrentUser(r.Context(), userCtx.UserID)
	if err != nil {
		return err
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()),
		http.StatusOK, user, "Current user fetched successfully")
	return nil
}

// receiveUpload spools a validated form file to a temp file. A missing file
// is not an error here; required files are enforced by the service.
func (h *Handlers) receiveUpload(r *http.Request, field string) (string, error) {
	path, err := validators.ReceiveImage(r, field, h.maxUploadBytes)
	if err != nil {
		return "", apperrors.BadRequest(err.Error())
	}
	return path, nil
}

func (h *Handlers) setAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(h.cookies.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(h.cookies.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
	})
}

func (h *Handlers) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cookies.Secure,
		})
	}
}
