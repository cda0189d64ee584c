// Package session acquires and renews the bearer credential every
// Catalog Service call carries.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrLoginRejected means the identity provider refused the configured
// credentials.
var ErrLoginRejected = errors.New("login rejected")

// expiryLeeway is how long before the token's exp claim we re-login,
// so a request never leaves with a credential about to lapse.
const expiryLeeway = 30 * time.Second

// Credentials is the shopper's login pair.
type Credentials struct {
	Username string
	Password string
}

// Manager logs in against the identity provider, caches the issued
// bearer token and renews it shortly before its exp claim. It is the
// engine's only holder of the credential.
type Manager struct {
	baseURL string
	http    *http.Client
	creds   Credentials

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewManager(baseURL string, creds Credentials) *Manager {
	return &Manager{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		creds:   creds,
	}
}

// Token returns a bearer credential, logging in (or re-logging-in)
// when the cached one is absent or near expiry.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && (m.expiresAt.IsZero() || time.Until(m.expiresAt) > expiryLeeway) {
		return m.token, nil
	}
	if err := m.login(ctx); err != nil {
		return "", err
	}
	return m.token, nil
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (m *Manager) login(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"username": m.creds.Username,
		"password": m.creds.Password,
	})
	if err != nil {
		return fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/auth/login", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrLoginRejected
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if body.AccessToken == "" {
		return fmt.Errorf("login response carried no token")
	}

	m.token = body.AccessToken
	m.expiresAt = tokenExpiry(body.AccessToken)
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature;
// the provider holds the secret, the engine only schedules renewal.
// A token we cannot parse is treated as non-expiring and replaced
// lazily when the service starts answering 401.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Invalidate discards the cached token so the next Token call logs in
// again. Callers use it after an unauthorized response.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiresAt = time.Time{}
}
