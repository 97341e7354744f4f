package users

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/afzalhamdulay1/videoTube/internal/db"
	apperrors "github.com/afzalhamdulay1/videoTube/internal/errors"
	"github.com/afzalhamdulay1/videoTube/internal/logger"
)

const channelCacheTTL = 60 * time.Second

// ChannelStore resolves channels and their aggregated profile view.
type ChannelStore interface {
	GetByUsername(ctx context.Context, username string) (*db.User, error)
	GetChannelProfile(ctx context.Context, username string, viewerID uuid.NullUUID) (*db.ChannelProfile, error)
}

// HistoryStore covers the watch-history side of the video repository.
type HistoryStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*db.Video, error)
	AppendWatchHistory(ctx context.Context, userID, videoID uuid.UUID) error
	ListWatchHistory(ctx context.Context, userID uuid.UUID) ([]db.WatchEntry, error)
}

// SubscriptionStore toggles edges in the subscription graph.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error)
}

// ProfileCache is the cache surface used for channel profiles. A nil cache
// disables caching entirely.
type ProfileCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ChannelView is the API projection of a channel profile.
type ChannelView struct {
	ID                        string `json:"id"`
	Username                  string `json:"username"`
	FullName                  string `json:"fullName"`
	Email                     string `json:"email"`
	AvatarURL                 string `json:"avatar"`
	CoverImageURL             string `json:"coverImage"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

// WatchOwnerView is the single owner object nested in each history entry.
type WatchOwnerView struct {
	FullName  string `json:"fullName"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar"`
}

// WatchEntryView is one watch-history element with its owner resolved.
type WatchEntryView struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	VideoURL     string         `json:"videoUrl"`
	ThumbnailURL string         `json:"thumbnail"`
	DurationMs   int            `json:"durationMs"`
	Views        int64          `json:"views"`
	CreatedAt    time.Time      `json:"createdAt"`
	Owner        WatchOwnerView `json:"owner"`
}

// ChannelService serves the channel profile and watch history read models
// and mutates the subscription graph.
type ChannelService struct {
	channels      ChannelStore
	history       HistoryStore
	subscriptions SubscriptionStore
	cache         ProfileCache
	log           *logger.Logger
}

func NewChannelService(channels ChannelStore, history HistoryStore, subscriptions SubscriptionStore, profileCache ProfileCache) *ChannelService {
	return &ChannelService{
		channels:      channels,
		history:       history,
		subscriptions: subscriptions,
		cache:         profileCache,
		log:           logger.Default().WithComponent("channels"),
	}
}

// GetChannelProfile aggregates a channel's profile with subscriber counts
// and, for authenticated viewers, whether they subscribe to it. Only the
// anonymous view is cached; per-viewer results always hit the database.
func (s *ChannelService) GetChannelProfile(ctx context.Context, username string, viewer uuid.NullUUID) (*ChannelView, error) {
	username = db.NormalizeUsername(username)
	if username == "" {
		return nil, apperrors.BadRequest("username is missing")
	}

	cacheable := s.cache != nil && !viewer.Valid
	cacheKey := "channel:" + username

	if cacheable {
		if raw, ok := s.cache.Get(ctx, cacheKey); ok {
			view := &ChannelView{}
			if err := json.Unmarshal([]byte(raw), view); err == nil {
				return view, nil
			}
			s.log.Warn(ctx, "discarding malformed cached channel profile", map[string]any{"key": cacheKey})
		}
	}

	profile, err := s.channels.GetChannelProfile(ctx, username, viewer)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, apperrors.ChannelNotFound()
		}
		return nil, apperrors.DatabaseError("failed to load channel profile").WithCause(err)
	}

	view := &ChannelView{
		ID:                        profile.ID.String(),
		Username:                  profile.Username,
		FullName:                  profile.FullName,
		Email:                     profile.Email,
		AvatarURL:                 profile.AvatarURL,
		CoverImageURL:             profile.CoverImageURL.String,
		SubscribersCount:          profile.SubscribersCount,
		ChannelsSubscribedToCount: profile.ChannelsSubscribedToCount,
		IsSubscribed:              profile.IsSubscribed,
	}

	if cacheable {
		if raw, err := json.Marshal(view); err == nil {
			s.cache.Set(ctx, cacheKey, string(raw), channelCacheTTL)
		}
	}

	return view, nil
}

// ToggleSubscription flips the requester's subscription to a channel and
// returns the resulting state.
func (s *ChannelService) ToggleSubscription(ctx context.Context, subscriberID uuid.UUID, channelUsername string) (bool, error) {
	channelUsername = db.NormalizeUsername(channelUsername)
	if channelUsername == "" {
		return false, apperrors.BadRequest("username is missing")
	}

	channel, err := s.channels.GetByUsername(ctx, channelUsername)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return false, apperrors.ChannelNotFound()
		}
		return false, apperrors.DatabaseError("failed to load channel").WithCause(err)
	}

	if channel.ID == subscriberID {
		return false, apperrors.BadRequest("cannot subscribe to your own channel")
	}

	subscribed, err := s.subscriptions.Toggle(ctx, subscriberID, channel.ID)
	if err != nil {
		return false, apperrors.DatabaseError("failed to toggle subscription").WithCause(err)
	}

	if s.cache != nil {
		s.cache.Delete(ctx, "channel:"+channelUsername)
	}

	return subscribed, nil
}

// RecordWatch appends a video to the requester's watch history. Rewatches
// append again rather than moving the earlier entry.
func (s *ChannelService) RecordWatch(ctx context.Context, userID, videoID uuid.UUID) error {
	if _, err := s.history.GetByID(ctx, videoID); err != nil {
		if errors.Is(err, db.ErrVideoNotFound) {
			return apperrors.NotFound("video does not exist")
		}
		return apperrors.DatabaseError("failed to load video").WithCause(err)
	}

	if err := s.history.AppendWatchHistory(ctx, userID, videoID); err != nil {
		return apperrors.DatabaseError("failed to record watch history").WithCause(err)
	}

	return nil
}

// GetWatchHistory returns the requester's watch history in watch order,
// each entry carrying its video owner.
func (s *ChannelService) GetWatchHistory(ctx context.Context, userID uuid.UUID) ([]WatchEntryView, error) {
	entries, err := s.history.ListWatchHistory(ctx, userID)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to load watch history").WithCause(err)
	}

	views := make([]WatchEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, WatchEntryView{
			ID:           e.ID.String(),
			Title:        e.Title,
			Description:  e.Description.String,
			VideoURL:     e.VideoURL,
			ThumbnailURL: e.ThumbnailURL.String,
			DurationMs:   e.DurationMs,
			Views:        e.Views,
			CreatedAt:    e.CreatedAt,
			Owner: WatchOwnerView{
				FullName:  e.Owner.FullName,
				Username:  e.Owner.Username,
				AvatarURL: e.Owner.AvatarURL,
			},
		})
	}

	return views, nil
}
