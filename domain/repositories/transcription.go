package repositories

import (
	"context"
	"time"
)

// AudioPayload is one finalized capture cycle's audio
type AudioPayload struct {
	Data       []byte
	MIMEType   string
	SampleRate int
	Duration   time.Duration
}

// Transcriber abstracts the speech transcription collaborator
type Transcriber interface {
	// Transcribe converts a finalized audio payload to text
	Transcribe(ctx context.Context, payload AudioPayload) (string, error)
}
