// Package api wires handlers, middleware and routes into the HTTP surface.
package api

import (
	"net/http"

	"github.com/afzalhamdulay1/videoTube/internal/auth"
	apperrors "github.com/afzalhamdulay1/videoTube/internal/errors"
	"github.com/afzalhamdulay1/videoTube/internal/health"
	"github.com/afzalhamdulay1/videoTube/internal/media"
	"github.com/afzalhamdulay1/videoTube/internal/users"
)

type Router struct {
	mux          *http.ServeMux
	authHandlers *auth.Handlers
	userHandlers *users.Handlers
	tokens       *auth.TokenService
	mediaServe   *media.ServeHandler
	health       *health.Handler
	metricsPage  http.HandlerFunc
}

func NewRouter(
	authHandlers *auth.Handlers,
	userHandlers *users.Handlers,
	tokens *auth.TokenService,
	mediaServe *media.ServeHandler,
	healthHandler *health.Handler,
	metricsPage http.HandlerFunc,
) *Router {
	r := &Router{
		mux:          http.NewServeMux(),
		authHandlers: authHandlers,
		userHandlers: userHandlers,
		tokens:       tokens,
		mediaServe:   mediaServe,
		health:       healthHandler,
		metricsPage:  metricsPage,
	}
	r.setupRoutes()
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) setupRoutes() {
	// Probes and metrics
	r.mux.HandleFunc("GET /health", r.health.LivenessHandler)
	r.mux.HandleFunc("GET /ready", r.health.ReadinessHandler)
	r.mux.HandleFunc("GET /metrics", r.metricsPage)

	// Session routes (no auth required)
	r.mux.Handle("POST /api/v1/users/register", apperrors.HandleFunc(r.authHandlers.Register))
	r.mux.Handle("POST /api/v1/users/login", apperrors.HandleFunc(r.authHandlers.Login))
	r.mux.Handle("POST /api/v1/users/refresh-token", apperrors.HandleFunc(r.authHandlers.Refresh))

	// Session routes (auth required)
	r.mux.Handle("POST /api/v1/users/logout", r.withAuth(r.authHandlers.Logout))
	r.mux.Handle("POST /api/v1/users/change-password", r.withAuth(r.authHandlers.ChangePassword))
	r.mux.Handle("GET /api/v1/users/me", r.withAuth(r.authHandlers.Me))

	// Profile routes (auth required)
	r.mux.Handle("PATCH /api/v1/users/update-account", r.withAuth(r.userHandlers.UpdateAccount))
	r.mux.Handle("PATCH /api/v1/users/avatar", r.withAuth(r.userHandlers.UpdateAvatar))
	r.mux.Handle("PATCH /api/v1/users/cover-image", r.withAuth(r.userHandlers.UpdateCoverImage))

	// Channel profile is public; a logged-in viewer gets isSubscribed.
	r.mux.Handle("GET /api/v1/users/c/{username}", r.withOptionalAuth(r.userHandlers.ChannelProfile))
	r.mux.Handle("POST /api/v1/subscriptions/c/{username}", r.withAuth(r.userHandlers.ToggleSubscription))

	// Watch history (auth required)
	r.mux.Handle("GET /api/v1/users/history", r.withAuth(r.userHandlers.WatchHistory))
	r.mux.Handle("POST /api/v1/users/history/{videoId}", r.withAuth(r.userHandlers.RecordWatch))

	// Profile media objects
	r.mux.HandleFunc("GET /media/{key...}", r.mediaServe.ServeObject)
}

func (r *Router) withAuth(h apperrors.Handler) http.Handler {
	return auth.Middleware(r.tokens)(apperrors.HandleFunc(h))
}

func (r *Router) withOptionalAuth(h apperrors.Handler) http.Handler {
	return auth.OptionalMiddleware(r.tokens)(apperrors.HandleFunc(h))
}
