package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/cinebase/internal/catalog"
	"github.com/goliatone/cinebase/pkg/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	clock := testsupport.NewClock(time.Now())
	issuer, err := NewTokenIssuer(testTokenConfig(), clock.Now)
	require.NoError(t, err)

	token, _, err := issuer.Issue(catalog.User{ID: "u-1", Email: "a@example.com", Role: catalog.RoleUser})
	require.NoError(t, err)

	var seen Identity
	handler := Authenticate(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/movies", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("Bearer " + token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u-1", seen.UserID)

	rec = serve("bearer " + token)
	assert.Equal(t, http.StatusNoContent, rec.Code, "scheme is case-insensitive")

	for _, header := range []string{"", "Bearer", "Basic dXNlcjpwYXNz", "Bearer nonsense"} {
		rec := serve(header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	}

	clock.Advance(time.Hour)
	rec = serve("Bearer " + token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body["error"])
	assert.Equal(t, "token has expired", body["message"])
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(catalog.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		identity *Identity
		want     int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "user", identity: &Identity{UserID: "u", Role: catalog.RoleUser}, want: http.StatusForbidden},
		{name: "admin", identity: &Identity{UserID: "a", Role: catalog.RoleAdmin}, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/movies/1", nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), *tt.identity))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
