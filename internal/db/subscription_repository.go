package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Subscription is an edge in the social graph: subscriber follows channel.
type Subscription struct {
	ID           int64
	SubscriberID uuid.UUID
	ChannelID    uuid.UUID
	CreatedAt    time.Time
}

type SubscriptionRepository struct {
	db *DB
}

func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Toggle removes all edges between subscriber and channel if any exist,
// otherwise inserts one. Returns the resulting subscribed state.
func (r *SubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error) {
	del := `DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2`

	result, err := r.db.ExecContext(ctx, del, subscriberID, channelID)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows > 0 {
		return false, nil
	}

	ins := `INSERT INTO subscriptions (subscriber_id, channel_id) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, ins, subscriberID, channelID); err != nil {
		return false, err
	}

	return true, nil
}
