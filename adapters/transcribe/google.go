package transcribe

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/clausechain/clausechain/domain/repositories"
	"github.com/clausechain/clausechain/internal/apperr"
)

const defaultLanguage = "en-US"

// GoogleClient implements the Transcriber interface against Google Cloud
// Speech-to-Text directly, for development without a ClauseChain backend.
// Credentials come from the ambient Google application default credentials.
type GoogleClient struct {
	language string
	logger   *zap.Logger
}

// Ensure GoogleClient implements the Transcriber interface
var _ repositories.Transcriber = (*GoogleClient)(nil)

// NewGoogleClient creates a Google Speech transcriber
func NewGoogleClient(language string, logger *zap.Logger) *GoogleClient {
	if language == "" {
		language = defaultLanguage
	}
	return &GoogleClient{language: language, logger: logger}
}

// Transcribe runs one synchronous recognition over the payload
func (g *GoogleClient) Transcribe(ctx context.Context, payload repositories.AudioPayload) (string, error) {
	const op = "transcribe.GoogleClient.Transcribe"

	if len(payload.Data) == 0 {
		return "", apperr.E(apperr.CodeInvalidArgument, op, "audio payload is empty", nil)
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", apperr.E(apperr.CodeUnavailable, op, "failed to create speech client", err)
	}
	defer client.Close()

	encoding, err := audioEncoding(payload.MIMEType)
	if err != nil {
		return "", apperr.E(apperr.CodeInvalidArgument, op, err.Error(), err)
	}

	sampleRate := payload.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: int32(sampleRate),
			LanguageCode:    g.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: payload.Data},
		},
	})
	if err != nil {
		return "", apperr.E(apperr.CodeTranscription, op, "recognition failed", err)
	}

	var transcript strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		transcript.WriteString(result.Alternatives[0].Transcript)
	}

	g.logger.Info("Google transcription completed",
		zap.Int("results", len(resp.Results)),
		zap.Int("length", transcript.Len()))
	return transcript.String(), nil
}

// audioEncoding maps a payload MIME type to the Speech API enum
func audioEncoding(mimeType string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch mimeType {
	case "", "audio/pcm", "audio/l16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "audio/flac":
		return speechpb.RecognitionConfig_FLAC, nil
	case "audio/ogg", "audio/webm":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
			fmt.Errorf("unsupported audio MIME type: %s", mimeType)
	}
}
