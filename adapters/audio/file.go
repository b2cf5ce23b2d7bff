package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clausechain/clausechain/domain/repositories"
	"github.com/clausechain/clausechain/internal/apperr"
)

// FileDevice replays a pre-recorded audio file as a single capture
// cycle. It backs the one-shot CLI flow where a question arrives as a
// file instead of live microphone input.
type FileDevice struct {
	path string
}

var _ repositories.AudioDevice = (*FileDevice)(nil)

// NewFileDevice creates a device that serves the audio file at path.
func NewFileDevice(path string) *FileDevice {
	return &FileDevice{path: path}
}

// Acquire reads the file into memory and returns it as a ready capture.
func (d *FileDevice) Acquire(ctx context.Context) (repositories.AudioCapture, error) {
	const op = "audio.FileDevice.Acquire"

	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, apperr.E(apperr.CodeDeviceUnavailable, op, "audio file could not be read", err)
	}
	if len(data) == 0 {
		return nil, apperr.E(apperr.CodeDeviceUnavailable, op, "audio file is empty", nil)
	}

	return &fileCapture{
		payload: repositories.AudioPayload{
			Data:       data,
			MIMEType:   mimeTypeForExtension(d.path),
			SampleRate: micSampleRate,
		},
		started: time.Now(),
	}, nil
}

func mimeTypeForExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return "audio/flac"
	case ".ogg":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	default:
		return micMIMEType
	}
}

type fileCapture struct {
	payload repositories.AudioPayload
	started time.Time
}

func (c *fileCapture) Finalize() (repositories.AudioPayload, error) {
	payload := c.payload
	payload.Duration = time.Since(c.started)
	return payload, nil
}

func (c *fileCapture) Release() error {
	return nil
}

func (c *fileCapture) Elapsed() time.Duration {
	return time.Since(c.started)
}
