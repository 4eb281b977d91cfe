package jwtverifier

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims tokenClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() tokenClaims {
	now := time.Now()
	return tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "care-auth",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Email: "ana@example.com",
		Role:  "patient",
	}
}

func TestVerify_ValidToken(t *testing.T) {
	v, err := New(Config{Secret: secret, Issuer: "care-auth"})
	require.NoError(t, err)

	claims, err := v.Verify(context.Background(), sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "patient", claims.Role)
}

func TestVerify_Rejections(t *testing.T) {
	v, err := New(Config{Secret: secret, Issuer: "care-auth"})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = v.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrTokenEmpty)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err = v.Verify(ctx, sign(t, jwt.SigningMethodHS256, []byte(secret), expired))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	otherIssuer := validClaims()
	otherIssuer.Issuer = "someone-else"
	_, err = v.Verify(ctx, sign(t, jwt.SigningMethodHS256, []byte(secret), otherIssuer))
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	_, err = v.Verify(ctx, sign(t, jwt.SigningMethodHS256, []byte("wrong-secret-wrong-secret-wrong!"), validClaims()))
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	noSubject := validClaims()
	noSubject.Subject = ""
	_, err = v.Verify(ctx, sign(t, jwt.SigningMethodHS256, []byte(secret), noSubject))
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
