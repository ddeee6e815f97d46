package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ssoriano/roomchat/internal/auth"
	"github.com/ssoriano/roomchat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	s := &ChatApp{log: testutil.TestLogger(t)}

	h := s.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp ApiError
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "internal server error", resp.Message)
	assert.NotContains(t, rr.Body.String(), "boom", "panic detail must not leak to the client")
}

func TestAuthMiddleware(t *testing.T) {
	tokenService := auth.NewTokenService([]byte("test-signing-key"), 0)
	s := &ChatApp{log: testutil.TestLogger(t), auth: tokenService}

	var gotClaims *auth.RoomClaims
	next := func(w http.ResponseWriter, r *http.Request) {
		claims, ok := RoomClaims(r.Context())
		require.True(t, ok, "expected claims on the request context")
		gotClaims = claims
		w.WriteHeader(http.StatusOK)
	}

	t.Run("no authorization header", func(t *testing.T) {
		rr := httptest.NewRecorder()
		s.authMiddleware(next)(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("not a bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc")
		rr := httptest.NewRecorder()
		s.authMiddleware(next)(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		rr := httptest.NewRecorder()
		s.authMiddleware(next)(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := tokenService.Sign("alice", "room1")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		s.authMiddleware(next)(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, gotClaims)
		assert.Equal(t, "alice", gotClaims.Username)
		assert.Equal(t, "room1", gotClaims.RoomId)
	})
}
