package audio

import (
	"context"
	"sync"
	"time"

	"github.com/clausechain/clausechain/domain/repositories"
	"github.com/clausechain/clausechain/internal/apperr"
)

// MemoryDevice is an in-memory capture device. It serves a canned
// payload and tracks acquisition state, which makes it usable both as
// a development stand-in and in tests.
type MemoryDevice struct {
	mu      sync.Mutex
	payload repositories.AudioPayload
	inUse   bool
}

var _ repositories.AudioDevice = (*MemoryDevice)(nil)

// NewMemoryDevice creates a device that serves payload on every cycle.
func NewMemoryDevice(payload repositories.AudioPayload) *MemoryDevice {
	return &MemoryDevice{payload: payload}
}

// Acquire hands out the device. It fails while a previous capture has
// not been released, mirroring real hardware exclusivity.
func (d *MemoryDevice) Acquire(ctx context.Context) (repositories.AudioCapture, error) {
	const op = "audio.MemoryDevice.Acquire"

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inUse {
		return nil, apperr.E(apperr.CodeDeviceUnavailable, op, "device is already in use", nil)
	}
	d.inUse = true

	return &memoryCapture{
		device:  d,
		payload: d.payload,
		started: time.Now(),
	}, nil
}

// InUse reports whether a capture currently owns the device.
func (d *MemoryDevice) InUse() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inUse
}

func (d *MemoryDevice) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inUse = false
}

type memoryCapture struct {
	device  *MemoryDevice
	payload repositories.AudioPayload
	started time.Time

	mu       sync.Mutex
	released bool
}

func (c *memoryCapture) Finalize() (repositories.AudioPayload, error) {
	payload := c.payload
	payload.Duration = time.Since(c.started)
	return payload, nil
}

func (c *memoryCapture) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil
	}
	c.released = true
	c.device.release()
	return nil
}

func (c *memoryCapture) Elapsed() time.Duration {
	return time.Since(c.started)
}
