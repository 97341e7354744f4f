package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ChannelProfile is the denormalized channel view. It carries no password
// hash and no refresh token; the pipeline projection excludes them.
type ChannelProfile struct {
	ID                        uuid.UUID
	Username                  string
	FullName                  string
	Email                     string
	AvatarURL                 string
	CoverImageURL             sql.NullString
	SubscribersCount          int64
	ChannelsSubscribedToCount int64
	IsSubscribed              bool
}

// VideoOwner is the single denormalized owner projection nested in each
// watch-history entry.
type VideoOwner struct {
	FullName  string
	Username  string
	AvatarURL string
}

// WatchEntry is one resolved watch-history element.
type WatchEntry struct {
	ID           uuid.UUID
	Title        string
	Description  sql.NullString
	VideoURL     string
	ThumbnailURL sql.NullString
	DurationMs   int
	Views        int64
	CreatedAt    time.Time
	Owner        VideoOwner
}

// GetChannelProfile executes the channel-profile pipeline. viewerID may be
// null for anonymous viewers, in which case is_subscribed is always false.
func (r *UserRepository) GetChannelProfile(ctx context.Context, username string, viewerID uuid.NullUUID) (*ChannelProfile, error) {
	query, args := ChannelProfilePipeline(username, viewerID).Compile()

	profile := &ChannelProfile{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&profile.ID, &profile.Username, &profile.FullName, &profile.Email,
		&profile.AvatarURL, &profile.CoverImageURL,
		&profile.SubscribersCount, &profile.ChannelsSubscribedToCount,
		&profile.IsSubscribed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return profile, nil
}

// ListWatchHistory executes the watch-history pipeline, preserving the
// stored watch order.
func (r *VideoRepository) ListWatchHistory(ctx context.Context, userID uuid.UUID) ([]WatchEntry, error) {
	query, args := WatchHistoryPipeline(userID).Compile()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []WatchEntry{}
	for rows.Next() {
		var e WatchEntry
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.VideoURL, &e.ThumbnailURL,
			&e.DurationMs, &e.Views, &e.CreatedAt,
			&e.Owner.FullName, &e.Owner.Username, &e.Owner.AvatarURL,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
