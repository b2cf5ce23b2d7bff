package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clausechain/clausechain/domain/entities"
	"github.com/clausechain/clausechain/domain/repositories"
	"github.com/clausechain/clausechain/internal/apperr"
)

const (
	// DefaultSubmitTimeout bounds one conversational network call
	DefaultSubmitTimeout = 30 * time.Second

	placeholderAnswer = "The backend returned no answer for this query."
	timedOutMessage   = "The request timed out. Please try again."
)

// ConversationSession owns an ordered, append-only log of exchanges and at
// most one in-flight query at a time. A submission is rejected, not queued,
// while another is outstanding, which keeps the log ordering total.
type ConversationSession struct {
	queries repositories.QueryService
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	nextID  int64
	log     []entities.Exchange
	pending *pendingRequest
}

// pendingRequest is the single in-flight conversational call
type pendingRequest struct {
	text     string
	cancel   context.CancelFunc
	deadline time.Time
}

// SessionOption customizes a ConversationSession
type SessionOption func(*ConversationSession)

// WithSubmitTimeout overrides the per-submission deadline
func WithSubmitTimeout(d time.Duration) SessionOption {
	return func(s *ConversationSession) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewConversationSession creates a session backed by the given query service
func NewConversationSession(queries repositories.QueryService, logger *zap.Logger, opts ...SessionOption) *ConversationSession {
	s := &ConversationSession{
		queries: queries,
		logger:  logger,
		timeout: DefaultSubmitTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit turns one piece of user text into an ordered request/response
// exchange. Empty text and a busy session are rejected synchronously with no
// exchange appended and no network call. Otherwise the user exchange is
// appended immediately, exactly one query is issued under the session
// timeout, and the resolution (assistant or error exchange) is appended and
// returned. The pending slot is cleared on every exit path.
func (s *ConversationSession) Submit(ctx context.Context, text string) (*entities.Exchange, error) {
	const op = "ConversationSession.Submit"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.E(apperr.CodeInvalidArgument, op, "query text is empty", nil)
	}

	qctx, cancel, err := s.accept(ctx, text)
	if err != nil {
		return nil, err
	}
	defer s.release(cancel)

	s.logger.Info("Submitting query", zap.String("text", text))

	result, err := s.queries.Query(qctx, text)
	if err != nil {
		message := s.classifyFailure(qctx, err)
		s.logger.Warn("Query failed",
			zap.String("text", text),
			zap.String("message", message),
			zap.Error(err))
		return s.append(entities.RoleError, message, nil, nil), nil
	}

	content := result.Response
	if content == "" {
		content = placeholderAnswer
	}

	var payload map[string]any
	setPayload := func(key string, value any) {
		if payload == nil {
			payload = make(map[string]any)
		}
		payload[key] = value
	}
	if result.MatchedFolders != nil {
		setPayload("matched_folders", result.MatchedFolders)
	}
	if result.Message != "" {
		setPayload("message", result.Message)
	}
	if result.Query != "" {
		setPayload("query", result.Query)
	}

	s.logger.Info("Query resolved",
		zap.String("text", text),
		zap.Int("matchedFolders", len(result.MatchedFolders)))

	return s.append(entities.RoleAssistant, content, payload, entities.FolderEvidence(result.MatchedFolders)), nil
}

// Busy reports whether a submission is outstanding
func (s *ConversationSession) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Exchanges returns a snapshot of the log in submission-acceptance order
func (s *ConversationSession) Exchanges() []entities.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]entities.Exchange, len(s.log))
	copy(snapshot, s.log)
	return snapshot
}

// accept rejects when a request is outstanding, otherwise appends the user
// exchange and opens the pending slot under one lock acquisition.
func (s *ConversationSession) accept(ctx context.Context, text string) (context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return nil, nil, apperr.E(apperr.CodeBusy, "ConversationSession.Submit", "a request is already in flight", nil)
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	deadline, _ := qctx.Deadline()
	s.pending = &pendingRequest{text: text, cancel: cancel, deadline: deadline}
	s.appendLocked(entities.RoleUser, text, nil, nil)
	return qctx, cancel, nil
}

func (s *ConversationSession) release(cancel context.CancelFunc) {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	cancel()
}

// classifyFailure maps a query error to the user-visible message: timeouts
// get a distinct message, coded remote/transport errors carry their own.
func (s *ConversationSession) classifyFailure(qctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(qctx.Err(), context.DeadlineExceeded) {
		return timedOutMessage
	}
	return apperr.UserMessage(err)
}

func (s *ConversationSession) append(role entities.Role, content string, payload map[string]any, evidence []entities.Evidence) *entities.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(role, content, payload, evidence)
}

func (s *ConversationSession) appendLocked(role entities.Role, content string, payload map[string]any, evidence []entities.Evidence) *entities.Exchange {
	s.nextID++
	s.log = append(s.log, entities.Exchange{
		ID:        s.nextID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Payload:   payload,
		Evidence:  evidence,
	})
	appended := s.log[len(s.log)-1]
	return &appended
}
