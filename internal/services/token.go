package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/HammerMeetNail/firefruitmoney/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	denylistKeyPrefix = "token:denylist:"
)

var (
	ErrInvalidToken = errors.New("token is invalid or expired")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Claims are the JWT claims issued for both access and refresh tokens.
type Claims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 access/refresh pairs. Refresh
// tokens are single use: rotating one records its jti in the denylist until
// it would have expired anyway.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	denylist   KeyValueStore
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration, denylist KeyValueStore) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		denylist:   denylist,
		now:        time.Now,
	}
}

func (m *TokenManager) IssuePair(userID uuid.UUID) (*models.TokenPair, error) {
	access, accessExp, err := m.sign(userID, tokenTypeAccess, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := m.sign(userID, tokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{
		Access:            access,
		AccessExpiration:  accessExp,
		Refresh:           refresh,
		RefreshExpiration: refreshExp,
	}, nil
}

// Refresh exchanges a refresh token for a new pair and revokes the old one.
func (m *TokenManager) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := m.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if err := m.checkDenylist(ctx, claims.ID); err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	pair, err := m.IssuePair(userID)
	if err != nil {
		return nil, err
	}

	remaining := claims.ExpiresAt.Time.Sub(m.now())
	if m.denylist != nil && remaining > 0 {
		if err := m.denylist.Set(ctx, denylistKeyPrefix+claims.ID, "1", remaining).Err(); err != nil {
			return nil, fmt.Errorf("revoking refresh token: %w", err)
		}
	}
	return pair, nil
}

// Verify reports whether token is a valid, unrevoked token of either type.
func (m *TokenManager) Verify(ctx context.Context, token string) error {
	claims, err := m.parse(token, "")
	if err != nil {
		return err
	}
	if claims.TokenType == tokenTypeRefresh {
		return m.checkDenylist(ctx, claims.ID)
	}
	return nil
}

// ParseAccess validates an access token and returns its subject.
func (m *TokenManager) ParseAccess(token string) (uuid.UUID, error) {
	claims, err := m.parse(token, tokenTypeAccess)
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

func (m *TokenManager) sign(userID uuid.UUID, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		UserID:    userID.String(),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing %s token: %w", tokenType, err)
	}
	return signed, expiresAt, nil
}

func (m *TokenManager) parse(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if wantType != "" && claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *TokenManager) checkDenylist(ctx context.Context, jti string) error {
	if m.denylist == nil {
		return nil
	}
	n, err := m.denylist.Exists(ctx, denylistKeyPrefix+jti).Result()
	if err != nil {
		return fmt.Errorf("checking token denylist: %w", err)
	}
	if n > 0 {
		return ErrTokenRevoked
	}
	return nil
}
