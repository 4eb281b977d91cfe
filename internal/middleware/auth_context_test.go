package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"care-connect/internal/ports/auth"

	"github.com/stretchr/testify/assert"
)

type staticVerifier struct{}

func (staticVerifier) Verify(_ context.Context, token string) (auth.Claims, error) {
	if token != "good" {
		return auth.Claims{}, errors.New("bad token")
	}
	return auth.Claims{UserID: "u-1", Role: "patient"}, nil
}

func serve(verifier auth.AuthVerifier, req *http.Request) (*httptest.ResponseRecorder, string) {
	var seen string
	h := AuthContext(verifier)(RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := GetClaims(r.Context())
		seen = c.UserID
		w.WriteHeader(http.StatusNoContent)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestAuthContext_DevModeUsesDebugHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DebugUserHeader, " patient-1 ")

	rec, seen := serve(nil, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "patient-1", seen)
}

func TestAuthContext_BearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec, seen := serve(staticVerifier{}, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u-1", seen)

	// con verifier el header de debug no cuenta
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DebugUserHeader, "patient-1")
	rec, _ = serve(staticVerifier{}, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec, _ = serve(staticVerifier{}, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("Bearer"))
}
