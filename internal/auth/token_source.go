package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// TokenSource supplies a bearer token for outgoing requests
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed, pre-issued token
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

// LoginClient obtains a token from the backend login endpoint and caches it
// until shortly before expiry.
type LoginClient struct {
	baseURL  string
	username string
	password string
	client   *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewLoginClient creates a token source backed by POST {base}/api/login
func NewLoginClient(baseURL, username, password string) (*LoginClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}
	return &LoginClient{
		baseURL:  baseURL,
		username: username,
		password: password,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Token returns the cached token, logging in again when it is near expiry
func (c *LoginClient) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.expires) > time.Minute {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login failed with status %d: %s", resp.StatusCode, string(errorBody))
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if loginResp.Token == "" {
		return "", fmt.Errorf("login response contained no token")
	}

	expires, err := TokenExpiry(loginResp.Token)
	if err != nil {
		// Tokens without a readable expiry are still usable; refresh hourly.
		expires = time.Now().Add(time.Hour)
	}

	c.token = loginResp.Token
	c.expires = expires
	return c.token, nil
}
