// Package auth resolves bearer tokens into principals.  Identity is
// issued elsewhere; this service only verifies tokens signed with the
// shared secret.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
)

// ErrInvalidToken is returned for any token that cannot be verified:
// malformed, wrongly signed, expired or missing a subject.
var ErrInvalidToken = errors.New("invalid token")

// IdentityProvider turns a raw bearer token into the calling principal.
type IdentityProvider interface {
	Authenticate(ctx context.Context, token string) (model.Principal, error)
}

// Claims is the token payload.  The subject is the principal id and
// is_superuser grants administrative rights.
type Claims struct {
	IsSuperuser bool `json:"is_superuser"`
	jwt.RegisteredClaims
}

// JWTProvider verifies and issues HS256 tokens.
type JWTProvider struct {
	secret []byte
	now    func() time.Time
}

// NewJWTProvider returns a provider keyed by secret.
func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret), now: time.Now}
}

// Authenticate parses raw and returns the principal it names.  Only HS256
// is accepted; exp and nbf are checked when present.
func (p *JWTProvider) Authenticate(_ context.Context, raw string) (model.Principal, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		// Reject anything that is not HMAC so an attacker cannot pick "none"
		// or an asymmetric algorithm.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !tok.Valid {
		return model.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return model.Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return model.Principal{ID: claims.Subject, IsSuperuser: claims.IsSuperuser}, nil
}

// IssueToken signs a token for sub valid for ttl.  It backs the tokengen
// command and tests; production tokens come from the identity service.
func (p *JWTProvider) IssueToken(sub string, superuser bool, ttl time.Duration) (string, time.Time, error) {
	now := p.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		IsSuperuser: superuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// StaticProvider maps fixed tokens to principals.  It is meant for tests
// and local runs without a signing secret.
type StaticProvider map[string]model.Principal

func (s StaticProvider) Authenticate(_ context.Context, token string) (model.Principal, error) {
	p, ok := s[token]
	if !ok {
		return model.Principal{}, ErrInvalidToken
	}
	return p, nil
}
