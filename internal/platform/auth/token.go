package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims are carried by access tokens. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// ResetClaims are carried by password reset tokens.
type ResetClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

const resetAudience = "password-reset"

// TokenManager signs and verifies HS256 tokens with a shared secret.
type TokenManager struct {
	secret   []byte
	ttl      time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

func NewTokenManager(secret string, ttl, resetTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:   []byte(secret),
		ttl:      ttl,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// IssuedToken is an access token and its metadata.
type IssuedToken struct {
	Token     string    `json:"accessToken"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Issue signs an access token for userID.
func (m *TokenManager) Issue(userID uuid.UUID, role string) (*IssuedToken, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &IssuedToken{Token: signed, TokenID: claims.ID, ExpiresAt: exp}, nil
}

// Parse verifies signature and expiry of an access token.
func (m *TokenManager) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	if err := m.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	for _, aud := range claims.Audience {
		if aud == resetAudience {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// IssueReset signs a short-lived password reset token bound to email.
func (m *TokenManager) IssueReset(email string) (string, error) {
	now := m.now()
	claims := ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{resetAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.resetTTL)),
		},
		Email: email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

// ParseReset verifies a reset token and returns the email it was issued for.
func (m *TokenManager) ParseReset(token string) (string, error) {
	claims := &ResetClaims{}
	if err := m.parse(token, claims, jwt.WithAudience(resetAudience)); err != nil {
		return "", err
	}
	if claims.Email == "" {
		return "", ErrInvalidToken
	}
	return claims.Email, nil
}

func (m *TokenManager) parse(token string, claims jwt.Claims, extra ...jwt.ParserOption) error {
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}, extra...)

	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
