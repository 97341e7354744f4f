package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/afzalhamdulay1/videoTube/internal/db"
)

// fakeGraphStore keeps users and raw subscription edges and computes the
// channel profile the way the SQL pipeline does.
type fakeGraphStore struct {
	users        map[string]*db.User // by username
	edges        [][2]uuid.UUID      // subscriber, channel
	profileCalls int
}

func newFakeGraphStore() *fakeGraphStore {
	return &fakeGraphStore{users: make(map[string]*db.User)}
}

func (s *fakeGraphStore) addUser(username string) *db.User {
	u := &db.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     username + "@example.com",
		FullName:  "User " + username,
		AvatarURL: "http://media.local/images/" + username,
	}
	s.users[username] = u
	return u
}

func (s *fakeGraphStore) subscribe(subscriber, channel uuid.UUID) {
	s.edges = append(s.edges, [2]uuid.UUID{subscriber, channel})
}

func (s *fakeGraphStore) GetByUsername(ctx context.Context, username string) (*db.User, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *fakeGraphStore) GetChannelProfile(ctx context.Context, username string, viewerID uuid.NullUUID) (*db.ChannelProfile, error) {
	s.profileCalls++

	u, ok := s.users[username]
	if !ok {
		return nil, db.ErrUserNotFound
	}

	profile := &db.ChannelProfile{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
	}
	for _, e := range s.edges {
		if e[1] == u.ID {
			profile.SubscribersCount++
			if viewerID.Valid && e[0] == viewerID.UUID {
				profile.IsSubscribed = true
			}
		}
		if e[0] == u.ID {
			profile.ChannelsSubscribedToCount++
		}
	}
	return profile, nil
}

func (s *fakeGraphStore) Toggle(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error) {
	kept := s.edges[:0]
	removed := false
	for _, e := range s.edges {
		if e[0] == subscriberID && e[1] == channelID {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	if removed {
		return false, nil
	}
	s.edges = append(s.edges, [2]uuid.UUID{subscriberID, channelID})
	return true, nil
}

type fakeHistoryStore struct {
	videos  map[uuid.UUID]*db.Video
	entries map[uuid.UUID][]db.WatchEntry // by user
	appends [][2]uuid.UUID
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{
		videos:  make(map[uuid.UUID]*db.Video),
		entries: make(map[uuid.UUID][]db.WatchEntry),
	}
}

func (s *fakeHistoryStore) GetByID(ctx context.Context, id uuid.UUID) (*db.Video, error) {
	v, ok := s.videos[id]
	if !ok {
		return nil, db.ErrVideoNotFound
	}
	return v, nil
}

func (s *fakeHistoryStore) AppendWatchHistory(ctx context.Context, userID, videoID uuid.UUID) error {
	s.appends = append(s.appends, [2]uuid.UUID{userID, videoID})
	return nil
}

func (s *fakeHistoryStore) ListWatchHistory(ctx context.Context, userID uuid.UUID) ([]db.WatchEntry, error) {
	return s.entries[userID], nil
}

type fakeCache struct {
	data    map[string]string
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, bool) {
	v, ok := c.data[key]
	return v, ok
}

func (c *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
		c.deletes = append(c.deletes, k)
	}
	return nil
}

func newChannelFixture() (*ChannelService, *fakeGraphStore, *fakeHistoryStore, *fakeCache) {
	graph := newFakeGraphStore()
	history := newFakeHistoryStore()
	cache := newFakeCache()
	svc := NewChannelService(graph, history, graph, cache)
	return svc, graph, history, cache
}

func TestGetChannelProfile_Counts(t *testing.T) {
	svc, graph, _, _ := newChannelFixture()

	channel := graph.addUser("channel")
	a := graph.addUser("a")
	b := graph.addUser("b")
	c := graph.addUser("c")
	x := graph.addUser("x")
	y := graph.addUser("y")

	// Three subscribers, subscribed to two channels.
	graph.subscribe(a.ID, channel.ID)
	graph.subscribe(b.ID, channel.ID)
	graph.subscribe(c.ID, channel.ID)
	graph.subscribe(channel.ID, x.ID)
	graph.subscribe(channel.ID, y.ID)

	view, err := svc.GetChannelProfile(context.Background(), "channel", uuid.NullUUID{})
	if err != nil {
		t.Fatalf("get channel profile failed: %v", err)
	}
	if view.SubscribersCount != 3 {
		t.Errorf("expected 3 subscribers, got %d", view.SubscribersCount)
	}
	if view.ChannelsSubscribedToCount != 2 {
		t.Errorf("expected 2 subscribed-to, got %d", view.ChannelsSubscribedToCount)
	}
	if view.IsSubscribed {
		t.Error("anonymous viewer must see isSubscribed=false")
	}
}

func TestGetChannelProfile_IsSubscribedPerViewer(t *testing.T) {
	svc, graph, _, _ := newChannelFixture()

	channel := graph.addUser("channel")
	subscriber := graph.addUser("subscriber")
	bystander := graph.addUser("bystander")
	graph.subscribe(subscriber.ID, channel.ID)

	view, err := svc.GetChannelProfile(context.Background(), "channel",
		uuid.NullUUID{UUID: subscriber.ID, Valid: true})
	if err != nil {
		t.Fatalf("get channel profile failed: %v", err)
	}
	if !view.IsSubscribed {
		t.Error("subscriber must see isSubscribed=true")
	}

	view, err = svc.GetChannelProfile(context.Background(), "channel",
		uuid.NullUUID{UUID: bystander.ID, Valid: true})
	if err != nil {
		t.Fatalf("get channel profile failed: %v", err)
	}
	if view.IsSubscribed {
		t.Error("non-subscriber must see isSubscribed=false")
	}
}

func TestGetChannelProfile_UnknownChannel(t *testing.T) {
	svc, _, _, _ := newChannelFixture()

	_, err := svc.GetChannelProfile(context.Background(), "ghost", uuid.NullUUID{})
	if status := httpStatus(t, err); status != 404 {
		t.Errorf("expected 404, got %d", status)
	}
}

func TestGetChannelProfile_EmptyUsername(t *testing.T) {
	svc, _, _, _ := newChannelFixture()

	_, err := svc.GetChannelProfile(context.Background(), "   ", uuid.NullUUID{})
	if status := httpStatus(t, err); status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestGetChannelProfile_NormalizesUsername(t *testing.T) {
	svc, graph, _, _ := newChannelFixture()
	graph.addUser("channel")

	if _, err := svc.GetChannelProfile(context.Background(), "  ChAnNeL ", uuid.NullUUID{}); err != nil {
		t.Errorf("mixed-case lookup failed: %v", err)
	}
}

func TestGetChannelProfile_AnonymousViewCached(t *testing.T) {
	svc, graph, _, _ := newChannelFixture()
	graph.addUser("channel")

	for i := 0; i < 3; i++ {
		if _, err := svc.GetChannelProfile(context.Background(), "channel", uuid.NullUUID{}); err != nil {
			t.Fatalf("get channel profile failed: %v", err)
		}
	}
	if graph.profileCalls != 1 {
		t.Errorf("anonymous lookups must be served from cache, got %d store calls", graph.profileCalls)
	}

	// Authenticated viewers bypass the cache.
	viewer := graph.addUser("viewer")
	svc.GetChannelProfile(context.Background(), "channel", uuid.NullUUID{UUID: viewer.ID, Valid: true})
	if graph.profileCalls != 2 {
		t.Errorf("viewer lookups must hit the store, got %d store calls", graph.profileCalls)
	}
}

func TestToggleSubscription(t *testing.T) {
	svc, graph, _, cache := newChannelFixture()
	graph.addUser("channel")
	subscriber := graph.addUser("subscriber")

	subscribed, err := svc.ToggleSubscription(context.Background(), subscriber.ID, "channel")
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !subscribed {
		t.Error("first toggle must subscribe")
	}

	subscribed, err = svc.ToggleSubscription(context.Background(), subscriber.ID, "channel")
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if subscribed {
		t.Error("second toggle must unsubscribe")
	}

	if len(cache.deletes) != 2 {
		t.Errorf("each toggle must invalidate the cached profile, got %v", cache.deletes)
	}
}

func TestToggleSubscription_SelfSubscribe(t *testing.T) {
	svc, graph, _, _ := newChannelFixture()
	channel := graph.addUser("channel")

	_, err := svc.ToggleSubscription(context.Background(), channel.ID, "channel")
	if status := httpStatus(t, err); status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestToggleSubscription_UnknownChannel(t *testing.T) {
	svc, graph, _, _ := newChannelFixture()
	subscriber := graph.addUser("subscriber")

	_, err := svc.ToggleSubscription(context.Background(), subscriber.ID, "ghost")
	if status := httpStatus(t, err); status != 404 {
		t.Errorf("expected 404, got %d", status)
	}
}

func TestRecordWatch_UnknownVideo(t *testing.T) {
	svc, _, _, _ := newChannelFixture()

	err := svc.RecordWatch(context.Background(), uuid.New(), uuid.New())
	if status := httpStatus(t, err); status != 404 {
		t.Errorf("expected 404, got %d", status)
	}
}

func TestRecordWatch_Appends(t *testing.T) {
	svc, _, history, _ := newChannelFixture()

	userID := uuid.New()
	videoID := uuid.New()
	history.videos[videoID] = &db.Video{ID: videoID, Title: "Intro"}

	// Rewatching appends again.
	for i := 0; i < 2; i++ {
		if err := svc.RecordWatch(context.Background(), userID, videoID); err != nil {
			t.Fatalf("record watch failed: %v", err)
		}
	}
	if len(history.appends) != 2 {
		t.Errorf("expected 2 appended entries, got %d", len(history.appends))
	}
}

func TestGetWatchHistory_PreservesOrderAndOwner(t *testing.T) {
	svc, _, history, _ := newChannelFixture()
	userID := uuid.New()

	first := uuid.New()
	second := uuid.New()
	history.entries[userID] = []db.WatchEntry{
		{ID: first, Title: "first", Owner: db.VideoOwner{Username: "creator", FullName: "The Creator"}},
		{ID: second, Title: "second", Owner: db.VideoOwner{Username: "other"}},
	}

	views, err := svc.GetWatchHistory(context.Background(), userID)
	if err != nil {
		t.Fatalf("get watch history failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(views))
	}
	if views[0].ID != first.String() || views[1].ID != second.String() {
		t.Error("watch order must be preserved")
	}
	if views[0].Owner.Username != "creator" || views[0].Owner.FullName != "The Creator" {
		t.Errorf("owner not resolved: %+v", views[0].Owner)
	}
}

func TestGetWatchHistory_EmptyIsNotNil(t *testing.T) {
	svc, _, _, _ := newChannelFixture()

	views, err := svc.GetWatchHistory(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("get watch history failed: %v", err)
	}
	if views == nil {
		t.Error("empty history must serialize as [], not null")
	}
}
