// ABOUTME: JWT token issuance for broker access
// ABOUTME: Uses HS256 signing with the broker's shared access key

package realtime

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = time.Hour

// TokenIssuer mints short-lived HS256 tokens scoping a bearer to one broker
// audience, optionally bound to one user. Tokens are stateless and cannot be
// revoked before expiry; their blast radius is read/subscribe access to a
// single logical channel.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer with the given shared secret.
// ttl <= 0 falls back to DefaultTokenTTL.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: secret, ttl: ttl}
}

// Issue creates a signed token for the given audience. subject, when
// non-empty, binds the token to one user identity so the broker can route
// user-targeted sends.
func (i *TokenIssuer) Issue(audience, subject string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"aud": audience,
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
	}
	if subject != "" {
		claims["sub"] = subject
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify validates a token and returns its audience and subject claims.
// Subject is empty for tokens issued without one.
func (i *TokenIssuer) Verify(tokenString string) (audience, subject string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", ErrExpiredToken
		}
		return "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidToken
	}

	audiences, err := claims.GetAudience()
	if err != nil || len(audiences) == 0 {
		return "", "", fmt.Errorf("%w: aud", ErrMissingClaim)
	}

	subject, _ = claims["sub"].(string)
	return audiences[0], subject, nil
}
