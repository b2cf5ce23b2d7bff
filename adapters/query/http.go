package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/clausechain/clausechain/domain/repositories"
	"github.com/clausechain/clausechain/internal/apperr"
	"github.com/clausechain/clausechain/internal/auth"
)

const (
	defaultHTTPTimeout = 60 * time.Second
)

// Config holds configuration for the HTTP query client
// Required fields:
// - BaseURL: The ClauseChain backend base URL
// Optional fields with defaults:
// - Token: A pre-issued bearer token (default: unauthenticated)
// - HTTPTimeout: Transport-level timeout, distinct from the session's
//   per-submission deadline (default: 60s)
type Config struct {
	BaseURL     string
	Token       string
	HTTPTimeout time.Duration
}

// ValidateConfig validates the query client Config
func ValidateConfig(config Config) error {
	if config.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if config.HTTPTimeout < 0 {
		return fmt.Errorf("HTTP timeout must be positive, got %v", config.HTTPTimeout)
	}
	return nil
}

// NewConfigFromEnv creates a Config from environment variables
func NewConfigFromEnv() Config {
	config := Config{
		BaseURL: os.Getenv("CLAUSECHAIN_API_BASE_URL"),
		Token:   os.Getenv("CLAUSECHAIN_API_TOKEN"),
	}

	if timeoutStr := os.Getenv("CLAUSECHAIN_HTTP_TIMEOUT_SECONDS"); timeoutStr != "" {
		if seconds, err := strconv.Atoi(timeoutStr); err == nil && seconds > 0 {
			config.HTTPTimeout = time.Duration(seconds) * time.Second
		}
	}

	return config
}

// HTTPClient implements the QueryService interface against the ClauseChain
// backend's POST /api/query endpoint
type HTTPClient struct {
	baseURL string
	client  *http.Client
	tokens  auth.TokenSource
	logger  *zap.Logger
}

// Ensure HTTPClient implements the QueryService interface
var _ repositories.QueryService = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP query client
func NewHTTPClient(config Config, logger *zap.Logger) (*HTTPClient, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	timeout := config.HTTPTimeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
		logger.Info("Using default HTTP timeout", zap.Duration("timeout", timeout))
	}

	c := &HTTPClient{
		baseURL: config.BaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
	if config.Token != "" {
		c.tokens = auth.StaticToken(config.Token)
	}
	return c, nil
}

// SetTokenSource attaches a bearer token source for outgoing requests
func (c *HTTPClient) SetTokenSource(tokens auth.TokenSource) {
	c.tokens = tokens
}

// Query submits one question as a JSON body {"query": text}. Non-2xx
// responses decode an optional {"message"} error body, falling back to a
// generic status-based message.
func (c *HTTPClient) Query(ctx context.Context, text string) (*repositories.QueryResult, error) {
	const op = "query.HTTPClient.Query"

	requestBody, err := json.Marshal(map[string]string{"query": text})
	if err != nil {
		return nil, apperr.E(apperr.CodeInternal, op, "failed to marshal request", err)
	}

	url := c.baseURL + "/api/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, apperr.E(apperr.CodeInternal, op, "failed to create HTTP request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	c.logger.Debug("Sending query request", zap.String("url", url))

	resp, err := c.client.Do(req)
	if err != nil {
		// Deadline errors pass through for the session's timeout
		// classification.
		return nil, apperr.E(apperr.CodeUnavailable, op, err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.E(apperr.CodeRemote, op, decodeErrorMessage(resp), nil)
	}

	var result repositories.QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperr.E(apperr.CodeRemote, op, "malformed response from backend", err)
	}

	c.logger.Debug("Query response received",
		zap.Int("matchedFolders", len(result.MatchedFolders)))
	return &result, nil
}

func (c *HTTPClient) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return apperr.E(apperr.CodeUnavailable, "query.HTTPClient.authorize", "could not obtain auth token", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// decodeErrorMessage reads a structured error message from a non-2xx
// response body, falling back to a generic status-based message.
func decodeErrorMessage(resp *http.Response) string {
	var errorBody struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errorBody); err == nil && errorBody.Message != "" {
		return errorBody.Message
	}
	return fmt.Sprintf("request failed with status %d", resp.StatusCode)
}
