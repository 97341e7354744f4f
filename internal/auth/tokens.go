package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/afzalhamdulay1/videoTube/internal/db"
	apperrors "github.com/afzalhamdulay1/videoTube/internal/errors"
)

const tokenIssuer = "videotube"

// UserStore is the slice of the user repository the auth package depends on.
type UserStore interface {
	Create(ctx context.Context, user *db.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*db.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	SetRefreshTokenHash(ctx context.Context, id uuid.UUID, hash sql.NullString) error
	ClearRefreshTokenHash(ctx context.Context, id uuid.UUID) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// AccessClaims is the payload of the short-lived access token.
type AccessClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of the long-lived refresh token. It carries
// only the user id; validity is decided against the stored hash.
type RefreshClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenPair is an access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenService issues and validates signed tokens. Both tokens are signed,
// not encrypted; secrets are process-wide configuration loaded once.
type TokenService struct {
	users         UserStore
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenService(users UserStore, accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		users:         users,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssuePair generates a fresh token pair for the user and persists the
// refresh token hash onto the user record in a single field update.
// Overwriting the stored value is the rotation mechanism: it invalidates
// whatever refresh token was live before.
func (s *TokenService) IssuePair(ctx context.Context, user *db.User) (*TokenPair, error) {
	accessToken, err := s.signAccess(user)
	if err != nil {
		return nil, apperrors.InternalError("something went wrong while generating tokens").WithCause(err)
	}

	refreshToken, err := s.signRefresh(user.ID)
	if err != nil {
		return nil, apperrors.InternalError("something went wrong while generating tokens").WithCause(err)
	}

	hash := sql.NullString{String: hashToken(refreshToken), Valid: true}
	if err := s.users.SetRefreshTokenHash(ctx, user.ID, hash); err != nil {
		return nil, apperrors.InternalError("something went wrong while generating tokens").WithCause(err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// VerifyRefresh validates a refresh token cryptographically and against the
// value currently stored on the user record. A token that was valid but has
// been superseded by a newer login or refresh fails here even though its
// signature and expiry still check out.
func (s *TokenService) VerifyRefresh(ctx context.Context, tokenString string) (*db.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.refreshSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.InvalidToken("invalid refresh token")
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok {
		return nil, apperrors.InvalidToken("invalid refresh token")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperrors.InvalidToken("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, apperrors.InvalidToken("invalid refresh token")
		}
		return nil, apperrors.DatabaseError("failed to load user").WithCause(err)
	}

	if !user.RefreshTokenHash.Valid || user.RefreshTokenHash.String != hashToken(tokenString) {
		return nil, apperrors.InvalidToken("refresh token is expired or used")
	}

	return user, nil
}

// ValidateAccess validates an access token and returns its claims.
func (s *TokenService) ValidateAccess(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.accessSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.InvalidToken("access token has expired")
		}
		return nil, apperrors.InvalidToken("invalid access token")
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, apperrors.InvalidToken("invalid access token")
	}

	return claims, nil
}

func (s *TokenService) signAccess(user *db.User) (string, error) {
	now := time.Now()
	claims := &AccessClaims{
		UserID:   user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.accessSecret)
}

func (s *TokenService) signRefresh(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &RefreshClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			// Unique ID so back-to-back rotations never mint the same token.
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.refreshSecret)
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
