package audio

import (
	"context"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/clausechain/clausechain/domain/repositories"
	"github.com/clausechain/clausechain/internal/apperr"
)

const (
	micSampleRate = 16000
	micChannels   = 1
	micMIMEType   = "audio/pcm"
)

// Microphone captures audio from the default system capture device.
// Each Acquire opens a fresh device; the returned capture owns it
// exclusively until Release.
type Microphone struct {
	logger *zap.Logger
}

var _ repositories.AudioDevice = (*Microphone)(nil)

// NewMicrophone creates a microphone device backed by the default
// system capture hardware.
func NewMicrophone(logger *zap.Logger) *Microphone {
	return &Microphone{logger: logger}
}

// Acquire opens the capture device and starts buffering frames.
func (m *Microphone) Acquire(ctx context.Context) (repositories.AudioCapture, error) {
	const op = "audio.Microphone.Acquire"

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, apperr.E(apperr.CodeDeviceUnavailable, op, "audio subsystem could not be initialized", err)
	}

	capture := &micCapture{
		malgoCtx: mctx,
		logger:   m.logger,
		started:  time.Now(),
	}

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = micChannels
	config.SampleRate = micSampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			capture.append(input)
		},
	}

	device, err := malgo.InitDevice(mctx.Context, config, callbacks)
	if err != nil {
		capture.teardownContext()
		return nil, apperr.E(apperr.CodeDeviceUnavailable, op, "microphone could not be opened", err)
	}
	capture.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		capture.teardownContext()
		return nil, apperr.E(apperr.CodeDeviceUnavailable, op, "microphone could not be started", err)
	}

	m.logger.Info("microphone capture started",
		zap.Int("sample_rate", micSampleRate),
		zap.Int("channels", micChannels))

	return capture, nil
}

type micCapture struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	logger   *zap.Logger
	started  time.Time

	mu       sync.Mutex
	buf      []byte
	stopped  bool
	released bool
}

func (c *micCapture) append(input []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.buf = append(c.buf, input...)
}

// Finalize stops the device and packages the buffered PCM frames.
func (c *micCapture) Finalize() (repositories.AudioPayload, error) {
	const op = "audio.micCapture.Finalize"

	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return repositories.AudioPayload{}, apperr.E(apperr.CodeInternal, op, "capture already released", nil)
	}
	c.stopped = true
	data := make([]byte, len(c.buf))
	copy(data, c.buf)
	c.mu.Unlock()

	if c.device != nil {
		if err := c.device.Stop(); err != nil {
			c.logger.Warn("microphone stop failed", zap.Error(err))
		}
	}

	return repositories.AudioPayload{
		Data:       data,
		MIMEType:   micMIMEType,
		SampleRate: micSampleRate,
		Duration:   time.Since(c.started),
	}, nil
}

// Release frees the device. Safe to call more than once.
func (c *micCapture) Release() error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return nil
	}
	c.released = true
	c.stopped = true
	c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.teardownContext()
	return nil
}

// Elapsed reports the time spent capturing so far.
func (c *micCapture) Elapsed() time.Duration {
	return time.Since(c.started)
}

func (c *micCapture) teardownContext() {
	if c.malgoCtx == nil {
		return
	}
	if err := c.malgoCtx.Uninit(); err != nil {
		c.logger.Warn("audio context teardown failed", zap.Error(err))
	}
	c.malgoCtx.Free()
	c.malgoCtx = nil
}
