package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrVideoNotFound = errors.New("video not found")

// Video is owned by the video service; this backend only references it for
// watch-history resolution.
type Video struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Title        string
	Description  sql.NullString
	VideoURL     string
	ThumbnailURL sql.NullString
	DurationMs   int
	Views        int64
	CreatedAt    time.Time
}

type VideoRepository struct {
	db *DB
}

func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) Create(ctx context.Context, video *Video) error {
	query := `
		INSERT INTO videos (id, owner_id, title, description, video_url, thumbnail_url, duration_ms, views, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL,
		video.ThumbnailURL, video.DurationMs, video.Views, video.CreatedAt,
	)
	return err
}

func (r *VideoRepository) GetByID(ctx context.Context, id uuid.UUID) (*Video, error) {
	query := `
		SELECT id, owner_id, title, description, video_url, thumbnail_url, duration_ms, views, created_at
		FROM videos
		WHERE id = $1
	`

	video := &Video{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.VideoURL,
		&video.ThumbnailURL, &video.DurationMs, &video.Views, &video.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}

	return video, nil
}

// AppendWatchHistory records a watched video at the end of the user's
// history. Rewatches append a new entry; the stored order is the watch
// order.
func (r *VideoRepository) AppendWatchHistory(ctx context.Context, userID, videoID uuid.UUID) error {
	query := `
		INSERT INTO watch_history (user_id, video_id, position)
		SELECT $1, $2, COALESCE(MAX(position) + 1, 0)
		FROM watch_history
		WHERE user_id = $1
	`

	// Concurrent appends by the same user can compute the same position
	// and collide on the (user_id, position) primary key. Retrying
	// recomputes the position from the winner's row.
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		_, err = r.db.ExecContext(ctx, query, userID, videoID)
		if err == nil {
			return nil
		}
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
			return err
		}
	}
	return err
}
