package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/afzalhamdulay1/videoTube/internal/errors"
)

type contextKey string

const UserContextKey contextKey = "user"

// UserContext identifies the authenticated requester.
type UserContext struct {
	UserID   uuid.UUID
	Username string
	Email    string
}

// bearerToken extracts the access token from the Authorization header or
// the accessToken cookie. The cookie is the browser path; the header is for
// API clients.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}

	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func userContextFromToken(tokens *TokenService, tokenString string) (*UserContext, error) {
	claims, err := tokens.ValidateAccess(tokenString)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperrors.InvalidToken("invalid access token")
	}

	return &UserContext{
		UserID:   userID,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}

// Middleware rejects requests without a valid access token.
func Middleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				apperrors.WriteError(w, apperrors.GetRequestID(r.Context()),
					apperrors.Unauthorized("unauthorized request"))
				return
			}

			userCtx, err := userContextFromToken(tokens, tokenString)
			if err != nil {
				apperrors.WriteError(w, apperrors.GetRequestID(r.Context()), err)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, userCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalMiddleware resolves the requester when a valid access token is
// present but lets anonymous requests through. The channel profile uses it
// to compute isSubscribed for logged-in viewers.
func OptionalMiddleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			userCtx, err := userContextFromToken(tokens, tokenString)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, userCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext returns the authenticated user, or nil for anonymous
// requests.
func GetUserFromContext(ctx context.Context) *UserContext {
	user, ok := ctx.Value(UserContextKey).(*UserContext)
	if !ok {
		return nil
	}
	return user
}
