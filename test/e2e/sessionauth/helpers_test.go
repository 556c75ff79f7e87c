package sessionauth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/app"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Helpers for end-to-end tests. The service runs in-process behind a real
 * HTTP listener; the redis backend runs in a container.
 */

const (
	userEmail    = "carol@example.com"
	userPassword = "Correct-horse-1"
)

type client struct {
	t       *testing.T
	baseURL string
	http    *http.Client
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type authResult struct {
	tokenPair
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// baseEnv returns a configuration with relaxed rate limits, since the tests
// make many rapid requests from one address.
func baseEnv(t *testing.T) map[string]string {
	t.Helper()
	dir := t.TempDir()
	return map[string]string{
		"AUTH_ACCESS_SECRET":          "e2e-access-secret-0123456789",
		"AUTH_REFRESH_SECRET":         "e2e-refresh-secret-0123456789",
		"AUTH_DATABASE_FILE":          dir + "/auth.db",
		"AUTH_PEPPER_FILE":            dir + "/pepper",
		"ENV":                         "test",
		"LOG_LEVEL":                   "error",
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
	}
}

// startService builds the application from vars and serves it on a local
// listener.
func startService(t *testing.T, vars map[string]string) *client {
	t.Helper()

	cfg, err := app.LoadConfigFrom(vars)
	require.NoError(t, err)

	application, err := app.New(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = application.Close()
	})

	return &client{t: t, baseURL: srv.URL, http: srv.Client()}
}

// startRedis starts a redis container and returns its address.
func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("container test skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

// do sends a JSON request and returns the status code, decoding the body
// into out when out is non-nil.
func (c *client) do(method, path, bearer string, body, out any) int {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequestWithContext(c.t.Context(), method, c.baseURL+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("User-Agent", "sessionauth-e2e/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c *client) register() authResult {
	c.t.Helper()
	var res authResult
	code := c.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":      userEmail,
		"first_name": "Carol",
		"last_name":  "Danvers",
		"password":   userPassword,
	}, &res)
	require.Equal(c.t, http.StatusCreated, code)
	assertTokenPair(c.t, res.tokenPair)
	return res
}

func (c *client) login() authResult {
	c.t.Helper()
	var res authResult
	code := c.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    userEmail,
		"password": userPassword,
	}, &res)
	require.Equal(c.t, http.StatusOK, code)
	assertTokenPair(c.t, res.tokenPair)
	return res
}

func (c *client) refresh(token string) (tokenPair, int) {
	c.t.Helper()
	var pair tokenPair
	code := c.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": token}, &pair)
	return pair, code
}

// assertTokenPair verifies a token response has all required fields.
func assertTokenPair(t *testing.T, p tokenPair) {
	t.Helper()
	require.NotEmpty(t, p.AccessToken, "access token should not be empty")
	require.NotEmpty(t, p.RefreshToken, "refresh token should not be empty")
	require.Equal(t, "Bearer", p.TokenType)
	require.Positive(t, p.ExpiresIn)
}
