package query

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/clausechain/clausechain/domain/repositories"
	"github.com/clausechain/clausechain/internal/apperr"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"

	geminiSystemPrompt = "You are ClauseChain, a contract intelligence assistant. " +
		"Answer questions about leases, capex obligations, and ESG documents " +
		"concisely and factually. If you do not know, say so."
)

// GeminiClient implements the QueryService interface directly against
// Gemini for development without a ClauseChain backend. It answers from the
// model alone, so results carry no matched folders.
type GeminiClient struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// Ensure GeminiClient implements the QueryService interface
var _ repositories.QueryService = (*GeminiClient)(nil)

// NewGeminiClient creates a Gemini-backed query service
func NewGeminiClient(ctx context.Context, logger *zap.Logger) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultGeminiModel
		logger.Info("Using default Gemini model", zap.String("model", model))
	}

	return &GeminiClient{
		client: client,
		logger: logger,
		model:  model,
	}, nil
}

// Query answers one question with a single model turn
func (g *GeminiClient) Query(ctx context.Context, text string) (*repositories.QueryResult, error) {
	const op = "query.GeminiClient.Query"

	contents := []*genai.Content{
		genai.NewContentFromText(geminiSystemPrompt, genai.RoleUser),
		genai.NewContentFromText(text, genai.RoleUser),
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return nil, apperr.E(apperr.CodeUnavailable, op, "model request failed", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		g.logger.Warn("Gemini returned no candidates")
		return &repositories.QueryResult{Query: text}, nil
	}

	var responseText string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			responseText += part.Text
		}
	}

	g.logger.Info("Gemini answer generated", zap.Int("length", len(responseText)))
	return &repositories.QueryResult{Response: responseText, Query: text}, nil
}
