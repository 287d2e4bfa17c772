package claims

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed reports a token string that is not a decodable JWT.
	ErrMalformed = errors.New("malformed token")
	// ErrMissingExpiry reports a decodable token without an exp claim.
	ErrMissingExpiry = errors.New("token has no expiry claim")
)

// Claims is the subset of registered claims the access manager cares about.
// Only ExpiresAt is guaranteed to be set on a successful Parse.
type Claims struct {
	ExpiresAt time.Time
	IssuedAt  time.Time
	NotBefore time.Time
	Subject   string
	Issuer    string
	ID        string
}

// TTL returns the token lifetime measured from IssuedAt, or zero when the
// token carries no iat.
func (c *Claims) TTL() time.Duration {
	if c == nil || c.IssuedAt.IsZero() {
		return 0
	}
	return c.ExpiresAt.Sub(c.IssuedAt)
}

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// Parse decodes the claims segment of tokenStr. The signature is not
// verified and time-based claims are not validated: an already expired token
// parses successfully.
func Parse(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrMalformed
	}

	var rc jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(tokenStr, &rc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if rc.ExpiresAt == nil {
		return nil, ErrMissingExpiry
	}

	out := &Claims{
		ExpiresAt: rc.ExpiresAt.Time,
		Subject:   rc.Subject,
		Issuer:    rc.Issuer,
		ID:        rc.ID,
	}
	if rc.IssuedAt != nil {
		out.IssuedAt = rc.IssuedAt.Time
	}
	if rc.NotBefore != nil {
		out.NotBefore = rc.NotBefore.Time
	}
	return out, nil
}

// ParseExpiry returns the absolute expiry encoded in tokenStr. ok is false
// when the token is malformed or lacks an exp claim.
func ParseExpiry(tokenStr string) (expiry time.Time, ok bool) {
	c, err := Parse(tokenStr)
	if err != nil {
		return time.Time{}, false
	}
	return c.ExpiresAt, true
}
