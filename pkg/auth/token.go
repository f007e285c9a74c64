package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/containerd/errdefs"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long an access token stays valid
const DefaultTokenTTL = 24 * time.Hour

const issuer = "cityfix"

var (
	// ErrMissingToken is returned when a request carries no bearer token
	ErrMissingToken = fmt.Errorf("missing bearer token: %w", errdefs.ErrUnauthenticated)

	// ErrInvalidToken is returned for malformed, expired or forged tokens
	ErrInvalidToken = fmt.Errorf("invalid or expired token: %w", errdefs.ErrUnauthenticated)
)

// Claims is the JWT payload of a CityFix access token
type Claims struct {
	Role  types.Role `json:"role"`
	Email string     `json:"email"`
	jwt.RegisteredClaims
}

// Token is a signed access token returned at login
type Token struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// TokenManager issues and verifies HS256 access tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a token manager; ttl 0 selects DefaultTokenTTL
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required: %w", errdefs.ErrInvalidArgument)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for user
func (tm *TokenManager) Issue(user *types.User) (*Token, error) {
	now := tm.now()
	expires := now.Add(tm.ttl)

	claims := Claims{
		Role:  user.Role,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expires}, nil
}

// Verify parses a signed token and returns its claims
func (tm *TokenManager) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token expired: %w", ErrInvalidToken)
		}
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
