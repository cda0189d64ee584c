package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "testuser",
		"exp": time.Now().Add(expiresIn).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func loginServer(t *testing.T, logins *atomic.Int32, token func() string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["username"] != "shopper" || creds["password"] != "barfi" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		logins.Add(1)
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": token(),
			"token_type":   "bearer",
		})
	}))
}

func TestToken_LogsInOnce(t *testing.T) {
	var logins atomic.Int32
	srv := loginServer(t, &logins, func() string { return signedToken(t, time.Hour) })
	defer srv.Close()

	m := NewManager(srv.URL, Credentials{Username: "shopper", Password: "barfi"})

	first, err := m.Token(context.Background())
	require.NoError(t, err)
	second, err := m.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), logins.Load(), "a live token is reused, not re-acquired")
}

func TestToken_RenewsNearExpiry(t *testing.T) {
	var logins atomic.Int32
	srv := loginServer(t, &logins, func() string { return signedToken(t, 5*time.Second) })
	defer srv.Close()

	m := NewManager(srv.URL, Credentials{Username: "shopper", Password: "barfi"})

	_, err := m.Token(context.Background())
	require.NoError(t, err)
	// 5s is inside the renewal leeway, so the next call logs in again.
	_, err = m.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), logins.Load())
}

func TestToken_BadCredentials(t *testing.T) {
	var logins atomic.Int32
	srv := loginServer(t, &logins, func() string { return "unused" })
	defer srv.Close()

	m := NewManager(srv.URL, Credentials{Username: "shopper", Password: "wrong"})

	_, err := m.Token(context.Background())
	assert.ErrorIs(t, err, ErrLoginRejected)
}

func TestToken_OpaqueTokenTreatedAsNonExpiring(t *testing.T) {
	var logins atomic.Int32
	srv := loginServer(t, &logins, func() string { return "not-a-jwt" })
	defer srv.Close()

	m := NewManager(srv.URL, Credentials{Username: "shopper", Password: "barfi"})

	tok, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "not-a-jwt", tok)

	_, err = m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), logins.Load())
}

func TestInvalidate_ForcesRelogin(t *testing.T) {
	var logins atomic.Int32
	srv := loginServer(t, &logins, func() string { return signedToken(t, time.Hour) })
	defer srv.Close()

	m := NewManager(srv.URL, Credentials{Username: "shopper", Password: "barfi"})

	_, err := m.Token(context.Background())
	require.NoError(t, err)

	m.Invalidate()
	_, err = m.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), logins.Load())
}

func TestToken_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	m := NewManager(srv.URL, Credentials{Username: "shopper", Password: "barfi"})
	_, err := m.Token(context.Background())
	assert.Error(t, err)
}
