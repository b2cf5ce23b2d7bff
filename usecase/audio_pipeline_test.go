package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/clausechain/clausechain/domain/entities"
	"github.com/clausechain/clausechain/domain/repositories"
	"github.com/clausechain/clausechain/internal/apperr"
)

type fakeCapture struct {
	mu          sync.Mutex
	payload     repositories.AudioPayload
	finalizeErr error
	released    bool
}

func (c *fakeCapture) Finalize() (repositories.AudioPayload, error) {
	if c.finalizeErr != nil {
		return repositories.AudioPayload{}, c.finalizeErr
	}
	return c.payload, nil
}

func (c *fakeCapture) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
	return nil
}

func (c *fakeCapture) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

func (c *fakeCapture) Elapsed() time.Duration { return time.Second }

type fakeDevice struct {
	capture    *fakeCapture
	acquireErr error
	fn         func(ctx context.Context) (repositories.AudioCapture, error)
}

func (d *fakeDevice) Acquire(ctx context.Context) (repositories.AudioCapture, error) {
	if d.fn != nil {
		return d.fn(ctx)
	}
	if d.acquireErr != nil {
		return nil, d.acquireErr
	}
	return d.capture, nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, payload repositories.AudioPayload) (string, error) {
	return f.text, f.err
}

func newTestPipeline(t *testing.T, device *fakeDevice, transcriber *fakeTranscriber, queries *fakeQueryService) *AudioPipeline {
	t.Helper()
	logger := zaptest.NewLogger(t)
	session := NewConversationSession(queries, logger)
	return NewAudioPipeline(device, transcriber, session, logger)
}

func TestStartCaptureRejectsSecondRecording(t *testing.T) {
	device := &fakeDevice{capture: &fakeCapture{}}
	pipeline := newTestPipeline(t, device, &fakeTranscriber{}, &fakeQueryService{})

	if err := pipeline.StartCapture(context.Background()); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}
	if !pipeline.Recording() {
		t.Fatal("Pipeline should report an active recording")
	}

	err := pipeline.StartCapture(context.Background())
	if !apperr.IsCode(err, apperr.CodeDeviceUnavailable) {
		t.Errorf("Expected device-unavailable rejection, got %v", err)
	}
}

func TestStartCaptureDeviceFailure(t *testing.T) {
	device := &fakeDevice{acquireErr: errors.New("permission denied")}
	pipeline := newTestPipeline(t, device, &fakeTranscriber{}, &fakeQueryService{})

	err := pipeline.StartCapture(context.Background())
	if !apperr.IsCode(err, apperr.CodeDeviceUnavailable) {
		t.Fatalf("Expected device-unavailable error, got %v", err)
	}

	// A failed acquire must leave the pipeline idle and usable.
	if pipeline.Recording() {
		t.Error("Pipeline should be idle after a failed acquire")
	}
	device.acquireErr = nil
	if err := pipeline.StartCapture(context.Background()); err != nil {
		t.Errorf("StartCapture after failure should work, got %v", err)
	}
}

func TestStopDuringAcquireReleasesCapture(t *testing.T) {
	capture := &fakeCapture{}
	acquiring := make(chan struct{})
	gate := make(chan struct{})
	device := &fakeDevice{fn: func(ctx context.Context) (repositories.AudioCapture, error) {
		close(acquiring)
		<-gate
		return capture, nil
	}}
	pipeline := newTestPipeline(t, device, &fakeTranscriber{}, &fakeQueryService{})

	started := make(chan error, 1)
	go func() {
		started <- pipeline.StartCapture(context.Background())
	}()
	<-acquiring

	// Stop arrives while the device is still being acquired; there is no
	// capture to finalize yet.
	if _, err := pipeline.StopCapture(); !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Fatalf("Expected invalid-argument from stop during acquire, got %v", err)
	}

	close(gate)
	if err := <-started; !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Fatalf("Expected the stop to win over the resumed start, got %v", err)
	}
	if !capture.Released() {
		t.Error("The acquired capture must be released when the stop wins")
	}
	if pipeline.Recording() {
		t.Error("Pipeline should be idle after the stop wins")
	}

	// The pipeline stays usable for a fresh cycle.
	device.fn = nil
	device.capture = &fakeCapture{}
	if err := pipeline.StartCapture(context.Background()); err != nil {
		t.Errorf("StartCapture after the race should work, got %v", err)
	}
}

func TestStopCaptureReleasesDeviceOnFinalizeFailure(t *testing.T) {
	capture := &fakeCapture{finalizeErr: errors.New("codec failure")}
	device := &fakeDevice{capture: capture}
	pipeline := newTestPipeline(t, device, &fakeTranscriber{}, &fakeQueryService{})

	if err := pipeline.StartCapture(context.Background()); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}

	_, err := pipeline.StopCapture()
	if err == nil {
		t.Fatal("Expected finalize error to propagate")
	}
	if !capture.Released() {
		t.Error("Device must be released even when finalize fails")
	}
	if pipeline.Recording() {
		t.Error("Pipeline should be idle after stop")
	}
}

func TestStopCaptureWithoutRecording(t *testing.T) {
	pipeline := newTestPipeline(t, &fakeDevice{capture: &fakeCapture{}}, &fakeTranscriber{}, &fakeQueryService{})

	_, err := pipeline.StopCapture()
	if !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Errorf("Expected invalid-argument error, got %v", err)
	}
}

func TestStopAndSubmitFullCycle(t *testing.T) {
	capture := &fakeCapture{payload: repositories.AudioPayload{Data: []byte("pcm"), MIMEType: "audio/pcm"}}
	device := &fakeDevice{capture: capture}
	transcriber := &fakeTranscriber{text: "Which Dallas leases expire next quarter?"}
	queries := &fakeQueryService{fn: func(ctx context.Context, text string) (*repositories.QueryResult, error) {
		return &repositories.QueryResult{Response: "3 leases.", MatchedFolders: []string{"Dallas-A"}}, nil
	}}
	pipeline := newTestPipeline(t, device, transcriber, queries)

	if err := pipeline.StartCapture(context.Background()); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}

	exchange, err := pipeline.StopAndSubmit(context.Background())
	if err != nil {
		t.Fatalf("StopAndSubmit failed: %v", err)
	}

	if exchange.Role != entities.RoleAssistant || exchange.Content != "3 leases." {
		t.Errorf("Expected assistant answer, got %s %q", exchange.Role, exchange.Content)
	}
	if !capture.Released() {
		t.Error("Device should be released after the cycle")
	}

	// The transcript entered the conversation exactly as typed text would.
	log := pipeline.session.Exchanges()
	if len(log) != 2 || log[0].Content != transcriber.text {
		t.Errorf("Expected transcript as user exchange, got %+v", log)
	}
}

func TestTranscriptionFailureSurfacedWithoutExchange(t *testing.T) {
	transcriber := &fakeTranscriber{err: errors.New("bad gateway")}
	pipeline := newTestPipeline(t, &fakeDevice{capture: &fakeCapture{}}, transcriber, &fakeQueryService{})

	_, err := pipeline.TranscribeAndSubmit(context.Background(), repositories.AudioPayload{Data: []byte("pcm")})
	if !apperr.IsCode(err, apperr.CodeTranscription) {
		t.Fatalf("Expected transcription error, got %v", err)
	}

	if got := len(pipeline.session.Exchanges()); got != 0 {
		t.Errorf("Transcription failure must not append exchanges, got %d", got)
	}
}

func TestEmptyTranscriptRejected(t *testing.T) {
	transcriber := &fakeTranscriber{text: "   "}
	queries := &fakeQueryService{}
	pipeline := newTestPipeline(t, &fakeDevice{capture: &fakeCapture{}}, transcriber, queries)

	_, err := pipeline.TranscribeAndSubmit(context.Background(), repositories.AudioPayload{Data: []byte("pcm")})
	if !apperr.IsCode(err, apperr.CodeTranscription) {
		t.Fatalf("Expected transcription error for empty transcript, got %v", err)
	}
	if queries.callCount() != 0 {
		t.Errorf("Empty transcript must not reach the query service, got %d calls", queries.callCount())
	}
}

func TestBusySessionRejectsTranscriptWithReport(t *testing.T) {
	gate := make(chan struct{})
	queries := &fakeQueryService{fn: func(ctx context.Context, text string) (*repositories.QueryResult, error) {
		<-gate
		return &repositories.QueryResult{Response: "done"}, nil
	}}
	transcriber := &fakeTranscriber{text: "spoken question"}
	pipeline := newTestPipeline(t, &fakeDevice{capture: &fakeCapture{}}, transcriber, queries)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = pipeline.session.Submit(context.Background(), "typed question")
	}()
	waitFor(t, pipeline.session.Busy)

	_, err := pipeline.TranscribeAndSubmit(context.Background(), repositories.AudioPayload{Data: []byte("pcm")})
	if !apperr.IsCode(err, apperr.CodeBusy) {
		t.Fatalf("Expected busy rejection, got %v", err)
	}
	// The rejection reports the transcript instead of dropping it silently.
	if !strings.Contains(err.Error(), "spoken question") {
		t.Errorf("Busy rejection should carry the transcript, got %q", err.Error())
	}

	close(gate)
	<-done
}
