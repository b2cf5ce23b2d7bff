package query

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/clausechain/clausechain/internal/apperr"
)

func TestNewHTTPClientValidation(t *testing.T) {
	logger := zaptest.NewLogger(t)

	if _, err := NewHTTPClient(Config{}, logger); err == nil {
		t.Error("Expected error when base URL is not set")
	}

	client, err := NewHTTPClient(Config{BaseURL: "http://localhost:5000"}, logger)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if client.baseURL != "http://localhost:5000" {
		t.Errorf("Expected base URL to be kept, got %s", client.baseURL)
	}
}

func TestQuerySendsJSONBodyAndParsesResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/query" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		if body["query"] != "Which Dallas leases expire next quarter?" {
			t.Errorf("Unexpected query text %q", body["query"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response":        "3 leases.",
			"matched_folders": []string{"Dallas-A"},
			"query":           body["query"],
		})
	}))
	defer server.Close()

	client, err := NewHTTPClient(Config{BaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	result, err := client.Query(context.Background(), "Which Dallas leases expire next quarter?")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if result.Response != "3 leases." {
		t.Errorf("Expected response '3 leases.', got %q", result.Response)
	}
	if len(result.MatchedFolders) != 1 || result.MatchedFolders[0] != "Dallas-A" {
		t.Errorf("Expected matched folder Dallas-A, got %v", result.MatchedFolders)
	}
}

func TestQueryAbsentFieldsStayAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "done"})
	}))
	defer server.Close()

	client, _ := NewHTTPClient(Config{BaseURL: server.URL}, zaptest.NewLogger(t))
	result, err := client.Query(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if result.MatchedFolders != nil {
		t.Errorf("Absent matched_folders must decode to nil, got %v", result.MatchedFolders)
	}
}

func TestQueryEmptyFolderListStaysEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "none", "matched_folders": []string{}})
	}))
	defer server.Close()

	client, _ := NewHTTPClient(Config{BaseURL: server.URL}, zaptest.NewLogger(t))
	result, err := client.Query(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if result.MatchedFolders == nil || len(result.MatchedFolders) != 0 {
		t.Errorf("Empty matched_folders must decode to an empty list, got %v", result.MatchedFolders)
	}
}

func TestQueryDecodesErrorBodyMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "index is rebuilding"})
	}))
	defer server.Close()

	client, _ := NewHTTPClient(Config{BaseURL: server.URL}, zaptest.NewLogger(t))
	_, err := client.Query(context.Background(), "anything")
	if !apperr.IsCode(err, apperr.CodeRemote) {
		t.Fatalf("Expected remote error, got %v", err)
	}
	if apperr.UserMessage(err) != "index is rebuilding" {
		t.Errorf("Expected decoded error message, got %q", apperr.UserMessage(err))
	}
}

func TestQueryFallsBackToStatusMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client, _ := NewHTTPClient(Config{BaseURL: server.URL}, zaptest.NewLogger(t))
	_, err := client.Query(context.Background(), "anything")
	if !apperr.IsCode(err, apperr.CodeRemote) {
		t.Fatalf("Expected remote error, got %v", err)
	}
	if apperr.UserMessage(err) != "request failed with status 500" {
		t.Errorf("Expected generic status fallback, got %q", apperr.UserMessage(err))
	}
}

func TestQuerySendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("Expected bearer token header, got %q", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "ok"})
	}))
	defer server.Close()

	client, _ := NewHTTPClient(Config{BaseURL: server.URL, Token: "test-token"}, zaptest.NewLogger(t))
	if _, err := client.Query(context.Background(), "anything"); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
}
