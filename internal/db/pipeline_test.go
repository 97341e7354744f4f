package db

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestPipeline_Compile_BindsArgsInOutputOrder(t *testing.T) {
	query, args := NewPipeline("items", "i").
		ComputeCount("tag_count", "tags t", "t.item_id = i.id AND t.kind = ?", "color").
		Project("i.id").
		Match("i.owner = ?", "alice").
		Compile()

	// Field args bind before match args.
	if !strings.Contains(query, "t.kind = $1") {
		t.Errorf("expected field placeholder $1, got %q", query)
	}
	if !strings.Contains(query, "i.owner = $2") {
		t.Errorf("expected match placeholder $2, got %q", query)
	}
	if len(args) != 2 || args[0] != "color" || args[1] != "alice" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestChannelProfilePipeline_Compile(t *testing.T) {
	viewer := uuid.NullUUID{UUID: uuid.New(), Valid: true}
	query, args := ChannelProfilePipeline("ChaiAurCode", viewer).Compile()

	for _, want := range []string{
		"FROM users u",
		"(SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscribers_count",
		"(SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS channels_subscribed_to_count",
		"EXISTS(SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = $1) AS is_subscribed",
		"WHERE u.username = $2",
	} {
		if !strings.Contains(query, want) {
			t.Errorf("compiled query missing %q:\n%s", want, query)
		}
	}

	for _, leaked := range []string{"password_hash", "refresh_token_hash"} {
		if strings.Contains(query, leaked) {
			t.Errorf("projection must not include %s", leaked)
		}
	}

	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
	if args[0] != viewer {
		t.Errorf("expected viewer id as first arg, got %v", args[0])
	}
	// The username match is normalized before binding.
	if args[1] != "chaiaurcode" {
		t.Errorf("expected normalized username, got %v", args[1])
	}
}

func TestChannelProfilePipeline_AnonymousViewer(t *testing.T) {
	_, args := ChannelProfilePipeline("someone", uuid.NullUUID{}).Compile()

	// A null viewer still binds: SQL NULL never equals a subscriber id, so
	// is_subscribed compiles to false for anonymous requests.
	viewer, ok := args[0].(uuid.NullUUID)
	if !ok {
		t.Fatalf("expected uuid.NullUUID arg, got %T", args[0])
	}
	if viewer.Valid {
		t.Error("anonymous viewer must bind as null")
	}
}

func TestWatchHistoryPipeline_Compile(t *testing.T) {
	userID := uuid.New()
	query, args := WatchHistoryPipeline(userID).Compile()

	for _, want := range []string{
		"FROM watch_history wh",
		"JOIN videos v ON v.id = wh.video_id",
		"JOIN users o ON o.id = v.owner_id",
		"o.full_name, o.username, o.avatar_url",
		"WHERE wh.user_id = $1",
		"ORDER BY wh.position",
	} {
		if !strings.Contains(query, want) {
			t.Errorf("compiled query missing %q:\n%s", want, query)
		}
	}

	if len(args) != 1 || args[0] != userID {
		t.Errorf("unexpected args: %v", args)
	}
}
