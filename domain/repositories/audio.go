package repositories

import (
	"context"
	"time"
)

// AudioDevice abstracts a capture device (microphone, file, mock)
type AudioDevice interface {
	// Acquire opens the device and starts buffering frames. It fails when
	// the device cannot be opened or permission is denied.
	Acquire(ctx context.Context) (AudioCapture, error)
}

// AudioCapture is exclusive ownership of the device for one record cycle.
// Release must be safe to call on every exit path, including after a failed
// Finalize, and more than once.
type AudioCapture interface {
	// Finalize stops buffering and packages the accumulated audio
	Finalize() (AudioPayload, error)
	// Release stops all underlying tracks and frees the device
	Release() error
	// Elapsed is the time spent capturing so far
	Elapsed() time.Duration
}
