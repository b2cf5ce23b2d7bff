package upload

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/clausechain/clausechain/internal/apperr"
)

func TestUploadSendsFileFieldWithOriginalFilename(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/upload" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile(fileFieldName)
		if err != nil {
			t.Fatalf("Missing file form field: %v", err)
		}
		defer file.Close()
		if header.Filename != "lease-dallas.pdf" {
			t.Errorf("Expected original filename, got %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "%PDF-1.4" {
			t.Errorf("Unexpected file content %q", string(data))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "stored"})
	}))
	defer server.Close()

	client, err := NewHTTPClient(Config{BaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	receipt, err := client.Upload(context.Background(), "lease-dallas.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if receipt.Message != "stored" {
		t.Errorf("Expected receipt message 'stored', got %q", receipt.Message)
	}
}

func TestUploadErrorBodyMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "file is encrypted"})
	}))
	defer server.Close()

	client, _ := NewHTTPClient(Config{BaseURL: server.URL}, zaptest.NewLogger(t))
	_, err := client.Upload(context.Background(), "a.pdf", strings.NewReader("data"))
	if !apperr.IsCode(err, apperr.CodeRemote) {
		t.Fatalf("Expected remote error, got %v", err)
	}
	if apperr.UserMessage(err) != "file is encrypted" {
		t.Errorf("Expected decoded message, got %q", apperr.UserMessage(err))
	}
}

func TestUploadStatusFallbackMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, _ := NewHTTPClient(Config{BaseURL: server.URL}, zaptest.NewLogger(t))
	_, err := client.Upload(context.Background(), "a.pdf", strings.NewReader("data"))
	if apperr.UserMessage(err) != "request failed with status 502" {
		t.Errorf("Expected generic fallback, got %q", apperr.UserMessage(err))
	}
}

func TestUploadRequiresFilename(t *testing.T) {
	client, _ := NewHTTPClient(Config{BaseURL: "http://localhost:5000"}, zaptest.NewLogger(t))
	_, err := client.Upload(context.Background(), "", strings.NewReader("data"))
	if !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Errorf("Expected invalid-argument error, got %v", err)
	}
}

func TestNewConfigFromEnvHonorsTimeout(t *testing.T) {
	t.Setenv("CLAUSECHAIN_API_BASE_URL", "http://localhost:5000")
	t.Setenv("CLAUSECHAIN_HTTP_TIMEOUT_SECONDS", "45")

	config := NewConfigFromEnv()
	if config.HTTPTimeout != 45*time.Second {
		t.Errorf("Expected 45s timeout from environment, got %v", config.HTTPTimeout)
	}
}
