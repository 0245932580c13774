package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/videotube/backend/internal/models"
)

var (
	// ErrTokenInvalid indicates the token is missing, malformed, or fails signature checks.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates the token's signature is valid but it has expired.
	ErrTokenExpired = errors.New("token expired")
	// ErrRefreshReused indicates a cryptographically valid refresh token that no
	// longer matches the single stored slot for the user: it was rotated away or
	// cleared by logout.
	ErrRefreshReused = errors.New("refresh token expired or reused")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// CredentialStore is the slice of user persistence the token service needs:
// resolving the account a refresh token points at and rotating its stored slot.
type CredentialStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
}

// Manager issues and validates signed bearer tokens. Access tokens are
// validated statelessly by signature; refresh tokens must additionally match
// the value stored on the user record, making them single-use.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	users      CredentialStore

	// NowFunc overrides the time source in tests.
	NowFunc func() time.Time
}

// NewManager constructs a Manager signing tokens with the provided secret.
func NewManager(secret string, accessTTL, refreshTTL time.Duration, users CredentialStore) *Manager {
	if secret == "" {
		panic("auth: token secret must not be empty")
	}
	if users == nil {
		panic("auth: credential store must not be nil")
	}
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		users:      users,
	}
}

// Issue creates a new access/refresh pair for the user and persists the
// refresh token as the user's single active slot.
func (m *Manager) Issue(ctx context.Context, userID string) (models.TokenPair, error) {
	if userID == "" {
		return models.TokenPair{}, errors.New("user id must be provided")
	}

	now := m.now()

	access, accessExp, err := m.sign(userID, tokenTypeAccess, now, m.accessTTL)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, refreshExp, err := m.sign(userID, tokenTypeRefresh, now, m.refreshTTL)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := m.users.SetRefreshToken(ctx, userID, refresh); err != nil {
		return models.TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return models.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Rotate exchanges a refresh token for a new pair. The presented token must be
// byte-equal to the stored slot; anything else fails with ErrRefreshReused so
// old tokens become permanently invalid once rotated.
func (m *Manager) Rotate(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	if refreshToken == "" {
		return models.TokenPair{}, ErrTokenInvalid
	}

	userID, err := m.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("resolve refresh token user: %w", err)
	}

	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return models.TokenPair{}, ErrRefreshReused
	}

	return m.Issue(ctx, userID)
}

// ValidateAccess checks an access token's signature and expiry and returns the
// user id claim it carries.
func (m *Manager) ValidateAccess(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrTokenInvalid
	}
	return m.parse(tokenString, tokenTypeAccess)
}

func (m *Manager) sign(userID, tokenType string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := jwt.MapClaims{
		"user_id":    userID,
		"token_type": tokenType,
		"iat":        now.Unix(),
		"exp":        expiresAt.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (m *Manager) parse(tokenString, wantType string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrTokenInvalid
	}

	if tokenType, _ := claims["token_type"].(string); tokenType != wantType {
		return "", fmt.Errorf("%w: wrong token type", ErrTokenInvalid)
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", fmt.Errorf("%w: missing user_id claim", ErrTokenInvalid)
	}

	return userID, nil
}

func (m *Manager) now() time.Time {
	if m.NowFunc != nil {
		return m.NowFunc()
	}
	return time.Now().UTC()
}
