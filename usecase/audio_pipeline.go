package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clausechain/clausechain/domain/entities"
	"github.com/clausechain/clausechain/domain/repositories"
	"github.com/clausechain/clausechain/internal/apperr"
)

// AudioPipeline chains one capture-to-transcript cycle: record, stop,
// transcribe, then submit the transcript through the conversation session
// under that component's full contract. At most one recording is active at
// a time, and the capture device is released on every stop path.
type AudioPipeline struct {
	device      repositories.AudioDevice
	transcriber repositories.Transcriber
	session     *ConversationSession
	logger      *zap.Logger

	mu     sync.Mutex
	active *recordingSession
}

// recordingSession is transient ownership of the device for one cycle
type recordingSession struct {
	capture   repositories.AudioCapture
	startedAt time.Time
}

// NewAudioPipeline creates a pipeline feeding the given conversation session
func NewAudioPipeline(
	device repositories.AudioDevice,
	transcriber repositories.Transcriber,
	session *ConversationSession,
	logger *zap.Logger,
) *AudioPipeline {
	return &AudioPipeline{
		device:      device,
		transcriber: transcriber,
		session:     session,
		logger:      logger,
	}
}

// StartCapture acquires the device and begins buffering audio frames. The
// device is exclusively owned: starting while a recording is active, or
// failing to acquire the device, is reported as device unavailability.
func (p *AudioPipeline) StartCapture(ctx context.Context) error {
	const op = "AudioPipeline.StartCapture"

	p.mu.Lock()
	if p.active != nil {
		p.mu.Unlock()
		return apperr.E(apperr.CodeDeviceUnavailable, op, "a recording is already active", nil)
	}
	// Reserve the slot before the acquire suspension point
	rec := &recordingSession{startedAt: time.Now()}
	p.active = rec
	p.mu.Unlock()

	capture, err := p.device.Acquire(ctx)
	if err != nil {
		p.mu.Lock()
		if p.active == rec {
			p.active = nil
		}
		p.mu.Unlock()
		p.logger.Warn("Capture device unavailable", zap.Error(err))
		return apperr.E(apperr.CodeDeviceUnavailable, op, "capture device could not be acquired", err)
	}

	p.mu.Lock()
	// A StopCapture racing the acquire may have cleared the reserved slot.
	// The stop wins: release the fresh capture instead of resurrecting the
	// recording.
	if p.active != rec {
		p.mu.Unlock()
		if rerr := capture.Release(); rerr != nil {
			p.logger.Warn("Failed to release capture device", zap.Error(rerr))
		}
		return apperr.E(apperr.CodeInvalidArgument, op, "recording was stopped before the device was ready", nil)
	}
	rec.capture = capture
	rec.startedAt = time.Now()
	p.mu.Unlock()

	p.logger.Info("Recording started")
	return nil
}

// StopCapture finalizes the buffered audio into a single payload. The device
// is released on every exit path, including a failed finalize.
func (p *AudioPipeline) StopCapture() (repositories.AudioPayload, error) {
	const op = "AudioPipeline.StopCapture"

	p.mu.Lock()
	rec := p.active
	p.active = nil
	p.mu.Unlock()

	if rec == nil || rec.capture == nil {
		return repositories.AudioPayload{}, apperr.E(apperr.CodeInvalidArgument, op, "no active recording", nil)
	}

	defer func() {
		if err := rec.capture.Release(); err != nil {
			p.logger.Warn("Failed to release capture device", zap.Error(err))
		}
	}()

	payload, err := rec.capture.Finalize()
	if err != nil {
		p.logger.Warn("Failed to finalize recording", zap.Error(err))
		return repositories.AudioPayload{}, apperr.E(apperr.CodeInternal, op, "failed to finalize recording", err)
	}

	p.logger.Info("Recording stopped",
		zap.Int("bytes", len(payload.Data)),
		zap.Duration("duration", payload.Duration))
	return payload, nil
}

// TranscribeAndSubmit sends the payload to the transcription collaborator
// and forwards the transcript into the conversation session unchanged. A
// transcription failure is surfaced to the caller rather than silently
// absorbed. When the session is busy the transcript is not submitted and the
// rejection carries the transcript so the caller can retry.
func (p *AudioPipeline) TranscribeAndSubmit(ctx context.Context, payload repositories.AudioPayload) (*entities.Exchange, error) {
	const op = "AudioPipeline.TranscribeAndSubmit"

	transcript, err := p.transcriber.Transcribe(ctx, payload)
	if err != nil {
		p.logger.Warn("Transcription failed", zap.Error(err))
		return nil, apperr.E(apperr.CodeTranscription, op, "transcription failed", err)
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		p.logger.Warn("Transcription returned no speech")
		return nil, apperr.E(apperr.CodeTranscription, op, "no speech recognized", nil)
	}

	p.logger.Info("Transcription completed", zap.String("transcript", transcript))

	exchange, err := p.session.Submit(ctx, transcript)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeBusy) {
			p.logger.Warn("Conversation busy, transcript not submitted",
				zap.String("transcript", transcript))
			return nil, apperr.E(apperr.CodeBusy, op,
				"conversation is busy; transcript not submitted: "+transcript, err)
		}
		return nil, err
	}
	return exchange, nil
}

// StopAndSubmit chains StopCapture and TranscribeAndSubmit for one cycle
func (p *AudioPipeline) StopAndSubmit(ctx context.Context) (*entities.Exchange, error) {
	payload, err := p.StopCapture()
	if err != nil {
		return nil, err
	}
	return p.TranscribeAndSubmit(ctx, payload)
}

// Recording reports whether a capture cycle is active
func (p *AudioPipeline) Recording() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active != nil
}

// Elapsed is the duration of the active recording, zero when idle
func (p *AudioPipeline) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return 0
	}
	return time.Since(p.active.startedAt)
}
