// Package identity turns the identity provider's bearer token into the
// signed-in user the booking workflow acts for.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("identity: missing bearer token")
	ErrInvalidToken = errors.New("identity: invalid token")
	ErrNoEmail      = errors.New("identity: token carries no email")
	ErrDisabled     = errors.New("identity: verification secret not configured")
)

// Claims is the token payload issued by the identity provider.
type Claims struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	FullName string `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// User is the authenticated caller.
type User struct {
	Subject  string
	Email    string
	FullName string
}

// Verifier checks HMAC-signed identity tokens.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// Verify parses a raw token and returns the user it names. The email claim
// is required because patient records are keyed by email.
func (v *Verifier) Verify(raw string) (User, error) {
	if v == nil || len(v.secret) == 0 {
		return User{}, ErrDisabled
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return User{}, ErrMissingToken
	}

	claims := Claims{}
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil || !token.Valid {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	// Passed through as issued: patient lookups by email may be case-sensitive.
	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return User{}, ErrNoEmail
	}
	name := strings.TrimSpace(claims.FullName)
	if name == "" {
		name = strings.TrimSpace(claims.Name)
	}
	return User{Subject: claims.Subject, Email: email, FullName: name}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), nil
}

// Sign issues a token for user. Used by tests and local tooling.
func Sign(secret string, user User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

type contextKey struct{}

// WithUser stores user on ctx.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// FromContext returns the user stored by WithUser.
func FromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(contextKey{}).(User)
	return user, ok
}
