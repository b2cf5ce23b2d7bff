package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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
	defaultHTTPTimeout = 120 * time.Second
	audioFieldName     = "audio"
	audioFileName      = "recording"
)

// Config holds configuration for the HTTP transcription client
// Required fields:
// - BaseURL: The ClauseChain backend base URL
// Optional fields with defaults:
// - Token: A pre-issued bearer token (default: unauthenticated)
// - HTTPTimeout: Transport-level timeout (default: 120s; transcription of
//   long recordings is slow)
type Config struct {
	BaseURL     string
	Token       string
	HTTPTimeout time.Duration
}

// ValidateConfig validates the transcription client Config
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

// HTTPClient implements the Transcriber interface against the ClauseChain
// backend's POST /api/transcribe endpoint
type HTTPClient struct {
	baseURL string
	client  *http.Client
	tokens  auth.TokenSource
	logger  *zap.Logger
}

// Ensure HTTPClient implements the Transcriber interface
var _ repositories.Transcriber = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP transcription client
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

// Transcribe packages the audio payload as a multipart upload with one
// audio field and returns the transcript text
func (c *HTTPClient) Transcribe(ctx context.Context, payload repositories.AudioPayload) (string, error) {
	const op = "transcribe.HTTPClient.Transcribe"

	if len(payload.Data) == 0 {
		return "", apperr.E(apperr.CodeInvalidArgument, op, "audio payload is empty", nil)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(audioFieldName, audioFileName)
	if err != nil {
		return "", apperr.E(apperr.CodeInternal, op, "failed to build multipart body", err)
	}
	if _, err := part.Write(payload.Data); err != nil {
		return "", apperr.E(apperr.CodeInternal, op, "failed to write audio payload", err)
	}
	if err := writer.Close(); err != nil {
		return "", apperr.E(apperr.CodeInternal, op, "failed to finalize multipart body", err)
	}

	url := c.baseURL + "/api/transcribe"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", apperr.E(apperr.CodeInternal, op, "failed to create HTTP request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return "", apperr.E(apperr.CodeUnavailable, op, "could not obtain auth token", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("Sending transcription request",
		zap.String("url", url),
		zap.Int("bytes", len(payload.Data)))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperr.E(apperr.CodeUnavailable, op, err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.E(apperr.CodeTranscription, op,
			fmt.Sprintf("transcription failed with status %d", resp.StatusCode), nil)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperr.E(apperr.CodeTranscription, op, "malformed transcription response", err)
	}

	c.logger.Debug("Transcription response received", zap.Int("length", len(result.Text)))
	return result.Text, nil
}
