package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytdash/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

const cookieIssuer = "ytdash"

type cookieClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session cookie values.
//
// A cookie value is an HS256 JWT carrying the session id in the sid claim.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec creates a codec signing with secret. Tokens expire after ttl.
func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Encode returns a signed cookie value for sid.
func (c *Codec) Encode(sid string) (string, error) {
	now := c.now()
	claims := cookieClaims{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cookieIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return value, nil
}

// Decode verifies value and returns the session id it carries.
//
// An expired token yields an empty id and no error. Any other verification
// failure wraps [shared.ErrMalformedSession].
func (c *Codec) Decode(value string) (string, error) {
	var claims cookieClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("%w: %w", shared.ErrMalformedSession, err)
	case claims.SessionID == "":
		return "", fmt.Errorf("%w: missing sid claim", shared.ErrMalformedSession)
	}
	return claims.SessionID, nil
}
