package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_RoundTrip(t *testing.T) {
	token, err := Sign("secret", User{Subject: "user_1", Email: "Ana@Example.com", FullName: "Ana Cruz"}, time.Hour)
	require.NoError(t, err)

	user, err := NewVerifier("secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, User{Subject: "user_1", Email: "Ana@Example.com", FullName: "Ana Cruz"}, user, "email keeps the issued casing")
}

func TestVerify_FallsBackToNameClaim(t *testing.T) {
	claims := Claims{Email: "ana@example.com", Name: "Ana"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	user, err := NewVerifier("secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.FullName)
}

func TestVerify_Failures(t *testing.T) {
	good, err := Sign("secret", User{Email: "ana@example.com"}, time.Hour)
	require.NoError(t, err)
	expired, err := Sign("secret", User{Email: "ana@example.com"}, -time.Minute)
	require.NoError(t, err)
	noEmail, err := Sign("secret", User{Subject: "user_1"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		verifier *Verifier
		token    string
		want     error
	}{
		{"disabled", NewVerifier(""), good, ErrDisabled},
		{"empty", NewVerifier("secret"), "", ErrMissingToken},
		{"wrong secret", NewVerifier("other"), good, ErrInvalidToken},
		{"expired", NewVerifier("secret"), expired, ErrInvalidToken},
		{"garbage", NewVerifier("secret"), "not.a.jwt", ErrInvalidToken},
		{"no email", NewVerifier("secret"), noEmail, ErrNoEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verifier.Verify(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	_, err = BearerToken("Basic xyz")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = BearerToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithUser(context.Background(), User{Email: "ana@example.com"})
	user, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "ana@example.com", user.Email)
}
