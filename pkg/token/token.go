// Package token issues and verifies the HS256 access/refresh pair.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	TokenType string `json:"token_type"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Pair struct {
	Access           string `json:"access"`
	Refresh          string `json:"refresh"`
	TokenType        string `json:"token_type"`
	AccessExpiresAt  int64  `json:"expires_at"`         // unix seconds
	RefreshExpiresAt int64  `json:"refresh_expires_at"` // unix seconds
}

type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair signs a new access and refresh token for the user.
func (m *Manager) IssuePair(userID uuid.UUID, email string) (*Pair, error) {
	access, accessExp, err := m.sign(userID, email, TypeAccess, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := m.sign(userID, email, TypeRefresh, m.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &Pair{
		Access:           access,
		Refresh:          refresh,
		TokenType:        "Bearer",
		AccessExpiresAt:  accessExp.Unix(),
		RefreshExpiresAt: refreshExp.Unix(),
	}, nil
}

// IssueAccess signs an access token only.
func (m *Manager) IssueAccess(userID uuid.UUID, email string) (string, int64, error) {
	signed, exp, err := m.sign(userID, email, TypeAccess, m.accessTTL)
	if err != nil {
		return "", 0, err
	}
	return signed, exp.Unix(), nil
}

// Parse verifies tokenString and checks it is of the wanted type.
func (m *Manager) Parse(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (m *Manager) sign(userID uuid.UUID, email, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		TokenType: tokenType,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
