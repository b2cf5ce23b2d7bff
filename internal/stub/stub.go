package stub

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/clausechain/clausechain/domain/entities"
	"github.com/clausechain/clausechain/internal/auth"
)

// Server is a development backend implementing the collaborators' wire
// contract: login, query, transcribe, upload, and file listing. It lets
// the client core run end to end without the production services.
type Server struct {
	signer *auth.Signer
	logger *zap.Logger

	mu      sync.RWMutex
	files   []entities.FileRecord
	folders map[string][]string
}

// NewServer creates a stub backend signing tokens with secret.
func NewServer(secret []byte, logger *zap.Logger) (*Server, error) {
	signer, err := auth.NewSigner(secret)
	if err != nil {
		return nil, err
	}
	return &Server{
		signer: signer,
		logger: logger,
		folders: map[string][]string{
			"Dallas":  {"Dallas-A", "Dallas-B"},
			"Austin":  {"Austin-HQ"},
			"Chicago": {"Chicago-Loop"},
		},
	}, nil
}

// Router builds the echo instance serving the stub routes.
func (s *Server) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "clausechain-stub",
		})
	})

	api := e.Group("/api")
	api.POST("/login", s.login)
	api.POST("/query", s.query, s.requireToken)
	api.POST("/transcribe", s.transcribe)
	api.POST("/upload", s.upload)
	api.GET("/files", s.listFiles)

	return e
}

// Start runs the stub on addr until the process exits.
func (s *Server) Start(addr string) error {
	e := s.Router()
	s.logger.Info("stub backend listening", zap.String("addr", addr))
	return e.Start(addr)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid request format"})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "username and password are required"})
	}

	// Any non-empty credential pair is accepted; this is a dev backend.
	token, err := s.signer.GenerateUserToken(req.Username)
	if err != nil {
		s.logger.Error("failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "token generation failed"})
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token})
}

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: "missing bearer token"})
		}
		if _, err := s.signer.ValidateToken(token); err != nil {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: "invalid token"})
		}
		return next(c)
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Response       string    `json:"response"`
	MatchedFolders *[]string `json:"matched_folders,omitempty"`
	Message        string    `json:"message,omitempty"`
	Query          string    `json:"query,omitempty"`
}

func (s *Server) query(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid request format"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "query must not be empty"})
	}

	s.mu.RLock()
	var matched []string
	for city, folders := range s.folders {
		if strings.Contains(strings.ToLower(req.Query), strings.ToLower(city)) {
			matched = append(matched, folders...)
		}
	}
	s.mu.RUnlock()

	resp := queryResponse{Query: req.Query}
	switch {
	case matched != nil:
		resp.Response = fmt.Sprintf("Found %d matching folders for your question.", len(matched))
		resp.MatchedFolders = &matched
	case strings.Contains(strings.ToLower(req.Query), "lease"):
		empty := []string{}
		resp.Response = "No folders matched, but the corpus mentions leases."
		resp.MatchedFolders = &empty
	default:
		resp.Response = "I could not find anything relevant in the document corpus."
		resp.Message = "try naming a city or a document"
	}
	return c.JSON(http.StatusOK, resp)
}

type transcribeResponse struct {
	Text string `json:"text"`
}

func (s *Server) transcribe(c echo.Context) error {
	file, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "audio field is required"})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "audio could not be read"})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "audio could not be read"})
	}

	// Canned transcripts keyed on payload size, enough to drive the
	// record-transcribe-submit chain during development.
	var text string
	switch {
	case len(data) > 10000:
		text = "Summarize the renewal terms across all Dallas leases."
	case len(data) > 1000:
		text = "Which leases are in Dallas?"
	default:
		text = "Hello."
	}

	s.logger.Info("stub transcription served",
		zap.Int("audio_bytes", len(data)),
		zap.String("text", text))

	return c.JSON(http.StatusOK, transcribeResponse{Text: text})
}

func (s *Server) upload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "file field is required"})
	}
	if file.Size == 0 {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "file is empty"})
	}

	record := entities.FileRecord{
		ID:         uuid.NewString(),
		Name:       file.Filename,
		Size:       file.Size,
		UploadedAt: time.Now(),
	}

	s.mu.Lock()
	s.files = append(s.files, record)
	s.mu.Unlock()

	s.logger.Info("stub upload stored",
		zap.String("name", file.Filename),
		zap.Int64("size", file.Size))

	return c.JSON(http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Successfully processed %s", file.Filename),
	})
}

func (s *Server) listFiles(c echo.Context) error {
	s.mu.RLock()
	files := make([]entities.FileRecord, len(s.files))
	copy(files, s.files)
	s.mu.RUnlock()

	return c.JSON(http.StatusOK, map[string]any{"files": files})
}
