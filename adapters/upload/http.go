package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
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
	defaultHTTPTimeout = 5 * time.Minute
	fileFieldName      = "file"
)

// Config holds configuration for the HTTP upload client
// Required fields:
// - BaseURL: The ClauseChain backend base URL
// Optional fields with defaults:
// - Token: A pre-issued bearer token (default: unauthenticated)
// - HTTPTimeout: Transport-level timeout (default: 5m; uploads can be large)
type Config struct {
	BaseURL     string
	Token       string
	HTTPTimeout time.Duration
}

// ValidateConfig validates the upload client Config
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

// HTTPClient implements the Uploader interface against the ClauseChain
// backend's POST /api/upload endpoint
type HTTPClient struct {
	baseURL string
	client  *http.Client
	tokens  auth.TokenSource
	logger  *zap.Logger
}

// Ensure HTTPClient implements the Uploader interface
var _ repositories.Uploader = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP upload client
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

// Upload posts one file as a multipart body with a single file field named
// after the original filename. Non-2xx responses decode an optional
// {"message"} error body, falling back to a generic status-based message.
func (c *HTTPClient) Upload(ctx context.Context, filename string, r io.Reader) (*repositories.UploadReceipt, error) {
	const op = "upload.HTTPClient.Upload"

	if filename == "" {
		return nil, apperr.E(apperr.CodeInvalidArgument, op, "filename is required", nil)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(fileFieldName, filename)
	if err != nil {
		return nil, apperr.E(apperr.CodeInternal, op, "failed to build multipart body", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, apperr.E(apperr.CodeInternal, op, "failed to read file content", err)
	}
	if err := writer.Close(); err != nil {
		return nil, apperr.E(apperr.CodeInternal, op, "failed to finalize multipart body", err)
	}

	url := c.baseURL + "/api/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, apperr.E(apperr.CodeInternal, op, "failed to create HTTP request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, apperr.E(apperr.CodeUnavailable, op, "could not obtain auth token", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("Sending upload request",
		zap.String("url", url),
		zap.String("filename", filename))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperr.E(apperr.CodeUnavailable, op, err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.E(apperr.CodeRemote, op, decodeErrorMessage(resp), nil)
	}

	receipt := &repositories.UploadReceipt{}
	if err := json.NewDecoder(resp.Body).Decode(receipt); err != nil {
		// A 2xx with an unreadable body is still a successful upload.
		c.logger.Debug("Upload response body not decodable", zap.Error(err))
		return &repositories.UploadReceipt{}, nil
	}
	return receipt, nil
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
