package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

type DB struct {
	*sql.DB
}

func New(host, port, user, password, dbname string) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username VARCHAR(50) UNIQUE NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		full_name VARCHAR(100) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		avatar_url TEXT NOT NULL,
		cover_image_url TEXT,
		refresh_token_hash VARCHAR(64),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	-- No uniqueness constraint on (subscriber_id, channel_id): counts are
	-- over raw edges.
	CREATE TABLE IF NOT EXISTS subscriptions (
		id BIGSERIAL PRIMARY KEY,
		subscriber_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		channel_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_subscriptions_channel ON subscriptions(channel_id);
	CREATE INDEX IF NOT EXISTS idx_subscriptions_subscriber ON subscriptions(subscriber_id);

	CREATE TABLE IF NOT EXISTS videos (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title VARCHAR(255) NOT NULL,
		description TEXT,
		video_url TEXT NOT NULL,
		thumbnail_url TEXT,
		duration_ms INTEGER DEFAULT 0,
		views BIGINT DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_videos_owner ON videos(owner_id);

	CREATE TABLE IF NOT EXISTS watch_history (
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		video_id UUID NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		watched_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		PRIMARY KEY (user_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_watch_history_user ON watch_history(user_id);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
