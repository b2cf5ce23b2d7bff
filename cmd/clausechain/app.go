package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/clausechain/clausechain/adapters/audio"
	"github.com/clausechain/clausechain/adapters/catalog"
	"github.com/clausechain/clausechain/adapters/query"
	"github.com/clausechain/clausechain/adapters/transcribe"
	"github.com/clausechain/clausechain/adapters/upload"
	"github.com/clausechain/clausechain/domain/entities"
	"github.com/clausechain/clausechain/domain/repositories"
	"github.com/clausechain/clausechain/internal/auth"
	"github.com/clausechain/clausechain/usecase"
)

// app wires the adapters and usecase services for one CLI invocation.
// Adapter selection is environment-driven: GEMINI_API_KEY switches the
// query backend to Gemini, CLAUSECHAIN_TRANSCRIBER=google switches
// transcription to Google Speech, MONGODB_URI enables the persistent
// file catalog.
type app struct {
	logger   *zap.Logger
	session  *usecase.ConversationSession
	pipeline *usecase.AudioPipeline
	queue    *usecase.UploadQueue
	catalog  repositories.FileCatalog

	closers []func(context.Context)
}

func buildApp(ctx context.Context, device repositories.AudioDevice) (*app, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{logger: logger}

	tokens, err := tokenSourceFromEnv()
	if err != nil {
		return nil, err
	}

	queries, err := buildQueryService(ctx, logger, tokens)
	if err != nil {
		return nil, err
	}
	a.session = usecase.NewConversationSession(queries, logger)

	transcriber, err := buildTranscriber(logger, tokens)
	if err != nil {
		return nil, err
	}
	if device == nil {
		device = audio.NewMicrophone(logger)
	}
	a.pipeline = usecase.NewAudioPipeline(device, transcriber, a.session, logger)

	uploader, err := upload.NewHTTPClient(upload.NewConfigFromEnv(), logger)
	if err != nil {
		return nil, err
	}
	if tokens != nil {
		uploader.SetTokenSource(tokens)
	}

	if os.Getenv("MONGODB_URI") != "" {
		mongoCatalog, err := catalog.NewMongoCatalog(ctx, logger)
		if err != nil {
			return nil, err
		}
		a.catalog = mongoCatalog
		a.closers = append(a.closers, func(ctx context.Context) {
			if err := mongoCatalog.Close(ctx); err != nil {
				logger.Warn("catalog close failed", zap.Error(err))
			}
		})
	} else {
		a.catalog = catalog.NewMemoryCatalog()
	}
	a.queue = usecase.NewUploadQueue(uploader, a.catalog, logger)

	return a, nil
}

func (a *app) close(ctx context.Context) {
	for _, closer := range a.closers {
		closer(ctx)
	}
	_ = a.logger.Sync()
}

func tokenSourceFromEnv() (auth.TokenSource, error) {
	username := os.Getenv("CLAUSECHAIN_USERNAME")
	password := os.Getenv("CLAUSECHAIN_PASSWORD")
	if username == "" || password == "" {
		return nil, nil
	}
	return auth.NewLoginClient(os.Getenv("CLAUSECHAIN_API_BASE_URL"), username, password)
}

func buildQueryService(ctx context.Context, logger *zap.Logger, tokens auth.TokenSource) (repositories.QueryService, error) {
	if os.Getenv("GEMINI_API_KEY") != "" {
		return query.NewGeminiClient(ctx, logger)
	}

	client, err := query.NewHTTPClient(query.NewConfigFromEnv(), logger)
	if err != nil {
		return nil, err
	}
	if tokens != nil {
		client.SetTokenSource(tokens)
	}
	return client, nil
}

func buildTranscriber(logger *zap.Logger, tokens auth.TokenSource) (repositories.Transcriber, error) {
	if os.Getenv("CLAUSECHAIN_TRANSCRIBER") == "google" {
		return transcribe.NewGoogleClient(os.Getenv("CLAUSECHAIN_SPEECH_LANGUAGE"), logger), nil
	}

	client, err := transcribe.NewHTTPClient(transcribe.NewConfigFromEnv(), logger)
	if err != nil {
		return nil, err
	}
	if tokens != nil {
		client.SetTokenSource(tokens)
	}
	return client, nil
}

func printExchange(out io.Writer, ex *entities.Exchange) {
	switch ex.Role {
	case entities.RoleUser:
		fmt.Fprintf(out, "you> %s\n", ex.Content)
	case entities.RoleError:
		fmt.Fprintf(out, "error> %s\n", ex.Content)
	default:
		fmt.Fprintf(out, "clausechain> %s\n", ex.Content)
	}

	// A present-but-empty folder list means the backend searched and
	// found nothing; an absent list means it reported no evidence at all.
	if folders, ok := folderList(ex.Payload["matched_folders"]); ok {
		if len(folders) == 0 {
			fmt.Fprintln(out, "  matched folders: (none)")
		} else {
			fmt.Fprintf(out, "  matched folders: %s\n", strings.Join(folders, ", "))
		}
	}
	if ex.Confidence != nil {
		fmt.Fprintf(out, "  confidence: %.2f\n", *ex.Confidence)
	}
}

// folderList reads a matched-folder payload value in either shape: []string
// as built in-process, or []any after a round trip through JSON.
func folderList(value any) ([]string, bool) {
	switch folders := value.(type) {
	case []string:
		return folders, true
	case []any:
		names := make([]string, 0, len(folders))
		for _, f := range folders {
			if name, ok := f.(string); ok {
				names = append(names, name)
			}
		}
		return names, true
	default:
		return nil, false
	}
}
