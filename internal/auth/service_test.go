package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/afzalhamdulay1/videoTube/internal/db"
	apperrors "github.com/afzalhamdulay1/videoTube/internal/errors"
	"github.com/afzalhamdulay1/videoTube/internal/media"
)

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	users map[uuid.UUID]*db.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*db.User)}
}

func (s *fakeUserStore) Create(ctx context.Context, user *db.User) error {
	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return db.ErrUserExists
		}
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*db.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *fakeUserStore) GetByUsernameOrEmail(ctx context.Context, username, email string) (*db.User, error) {
	username = db.NormalizeUsername(username)
	email = db.NormalizeEmail(email)
	for _, u := range s.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, db.ErrUserNotFound
}

func (s *fakeUserStore) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	_, err := s.GetByUsernameOrEmail(ctx, username, email)
	if errors.Is(err, db.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *fakeUserStore) SetRefreshTokenHash(ctx context.Context, id uuid.UUID, hash sql.NullString) error {
	u, ok := s.users[id]
	if !ok {
		return db.ErrUserNotFound
	}
	u.RefreshTokenHash = hash
	return nil
}

func (s *fakeUserStore) ClearRefreshTokenHash(ctx context.Context, id uuid.UUID) error {
	if u, ok := s.users[id]; ok {
		u.RefreshTokenHash = sql.NullString{}
	}
	return nil
}

func (s *fakeUserStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := s.users[id]
	if !ok {
		return db.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// fakeMediaStore counts uploads and can be told to fail.
type fakeMediaStore struct {
	uploads     int
	deletes     []string
	failUploads bool
	failAfter   int // fail uploads after this many successes; 0 means never
	failDeletes bool
}

func (s *fakeMediaStore) Upload(ctx context.Context, localPath string) (*media.UploadResult, error) {
	if s.failUploads || (s.failAfter > 0 && s.uploads >= s.failAfter) {
		return nil, errors.New("upload failed")
	}
	s.uploads++
	id := fmt.Sprintf("object-%d", s.uploads)
	return &media.UploadResult{
		URL:      "http://media.local/images/" + id,
		PublicID: id,
	}, nil
}

func (s *fakeMediaStore) Delete(ctx context.Context, publicID string) error {
	if s.failDeletes {
		return errors.New("delete failed")
	}
	s.deletes = append(s.deletes, publicID)
	return nil
}

func newTestService() (*Service, *fakeUserStore, *fakeMediaStore) {
	store := newFakeUserStore()
	mediaStore := &fakeMediaStore{}
	tokens := NewTokenService(store, "access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	return NewService(store, mediaStore, tokens), store, mediaStore
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	return appErr.HTTPStatus
}

func registerInput() RegisterInput {
	return RegisterInput{
		FullName:   "Test User",
		Email:      "test@example.com",
		Username:   "TestUser",
		Password:   "password123",
		AvatarPath: "/tmp/avatar.png",
	}
}

func TestRegister_Success(t *testing.T) {
	svc, store, _ := newTestService()

	user, err := svc.Register(context.Background(), registerInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if user.Username != "testuser" {
		t.Errorf("expected normalized username, got %q", user.Username)
	}
	if user.Email != "test@example.com" {
		t.Errorf("unexpected email %q", user.Email)
	}
	if user.AvatarURL == "" {
		t.Error("expected avatar URL to be set")
	}
	if len(store.users) != 1 {
		t.Errorf("expected 1 stored user, got %d", len(store.users))
	}
}

func TestRegister_MissingAvatar(t *testing.T) {
	svc, store, _ := newTestService()

	in := registerInput()
	in.AvatarPath = ""

	_, err := svc.Register(context.Background(), in)
	if status := httpStatus(t, err); status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
	if len(store.users) != 0 {
		t.Error("no user row may be created when the avatar is missing")
	}
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _, _ := newTestService()

	in := registerInput()
	in.Email = "   "

	_, err := svc.Register(context.Background(), in)
	if status := httpStatus(t, err); status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Register(context.Background(), registerInput()); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	// Same username, different case and email.
	in := registerInput()
	in.Email = "other@example.com"
	in.Username = "TESTUSER"

	_, err := svc.Register(context.Background(), in)
	if status := httpStatus(t, err); status != 409 {
		t.Errorf("expected 409, got %d", status)
	}
}

func TestRegister_FailedAvatarUploadCreatesNoUser(t *testing.T) {
	svc, store, mediaStore := newTestService()
	mediaStore.failUploads = true

	_, err := svc.Register(context.Background(), registerInput())
	if status := httpStatus(t, err); status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
	if len(store.users) != 0 {
		t.Error("failed avatar upload must not create a user")
	}
}

func TestRegister_FailedCoverUploadTolerated(t *testing.T) {
	svc, _, mediaStore := newTestService()
	mediaStore.failAfter = 1 // avatar succeeds, cover fails

	in := registerInput()
	in.CoverPath = "/tmp/cover.png"

	user, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("register should tolerate a failed cover upload: %v", err)
	}
	if user.CoverImageURL != "" {
		t.Errorf("expected empty cover image URL, got %q", user.CoverImageURL)
	}
}

func TestLogin_RequiresUsernameOrEmail(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Login(context.Background(), "", "", "password123")
	if status := httpStatus(t, err); status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Login(context.Background(), "ghost", "", "password123")
	if status := httpStatus(t, err); status != 404 {
		t.Errorf("expected 404, got %d", status)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestService()
	mustRegister(t, svc)

	_, err := svc.Login(context.Background(), "testuser", "", "wrong")
	if status := httpStatus(t, err); status != 401 {
		t.Errorf("expected 401, got %d", status)
	}
}

func TestLogin_StoresRefreshTokenHash(t *testing.T) {
	svc, store, _ := newTestService()
	registered := mustRegister(t, svc)

	// Login by email with a case variation.
	result, err := svc.Login(context.Background(), "", "Test@Example.com", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}

	id := uuid.MustParse(registered.ID)
	stored := store.users[id].RefreshTokenHash
	if !stored.Valid || stored.String != hashToken(result.RefreshToken) {
		t.Error("stored refresh token hash must match the issued refresh token")
	}
}

func TestRefresh_RotatesAndInvalidatesOldToken(t *testing.T) {
	svc, _, _ := newTestService()
	mustRegister(t, svc)

	login, err := svc.Login(context.Background(), "testuser", "", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	pair, err := svc.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if pair.RefreshToken == login.RefreshToken {
		t.Error("rotation must issue a different refresh token")
	}

	// The superseded token still has a valid signature but no longer
	// matches the stored hash.
	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	if status := httpStatus(t, err); status != 401 {
		t.Errorf("expected 401 for superseded token, got %d", status)
	}

	// The fresh token keeps working.
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Errorf("fresh token rejected: %v", err)
	}
}

func TestRefresh_EmptyToken(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Refresh(context.Background(), "")
	if status := httpStatus(t, err); status != 401 {
		t.Errorf("expected 401, got %d", status)
	}
}

func TestRefresh_GarbageToken(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Refresh(context.Background(), "not-a-jwt")
	if status := httpStatus(t, err); status != 401 {
		t.Errorf("expected 401, got %d", status)
	}
}

func TestLogout_ClearsRefreshToken(t *testing.T) {
	svc, store, _ := newTestService()
	registered := mustRegister(t, svc)
	id := uuid.MustParse(registered.ID)

	login, err := svc.Login(context.Background(), "testuser", "", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := svc.Logout(context.Background(), id); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if store.users[id].RefreshTokenHash.Valid {
		t.Error("logout must clear the stored refresh token")
	}

	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	if status := httpStatus(t, err); status != 401 {
		t.Errorf("expected 401 after logout, got %d", status)
	}

	// Logging out twice is not an error.
	if err := svc.Logout(context.Background(), id); err != nil {
		t.Errorf("second logout failed: %v", err)
	}
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	svc, store, _ := newTestService()
	registered := mustRegister(t, svc)
	id := uuid.MustParse(registered.ID)
	before := store.users[id].PasswordHash

	err := svc.ChangePassword(context.Background(), id, "wrong", "newpassword")
	if status := httpStatus(t, err); status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
	if store.users[id].PasswordHash != before {
		t.Error("password hash must be unchanged after a failed change")
	}
}

func TestChangePassword_Success(t *testing.T) {
	svc, _, _ := newTestService()
	registered := mustRegister(t, svc)
	id := uuid.MustParse(registered.ID)

	if err := svc.ChangePassword(context.Background(), id, "password123", "newpassword"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	if _, err := svc.Login(context.Background(), "testuser", "", "password123"); err == nil {
		t.Error("old password must no longer work")
	}
	if _, err := svc.Login(context.Background(), "testuser", "", "newpassword"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestCurrentUser(t *testing.T) {
	svc, _, _ := newTestService()
	registered := mustRegister(t, svc)

	user, err := svc.CurrentUser(context.Background(), uuid.MustParse(registered.ID))
	if err != nil {
		t.Fatalf("current user failed: %v", err)
	}
	if user.Username != "testuser" {
		t.Errorf("unexpected username %q", user.Username)
	}
}

func mustRegister(t *testing.T, svc *Service) *PublicUser {
	t.Helper()
	user, err := svc.Register(context.Background(), registerInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return user
}
