package server_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundloom/soundloom/internal/audio"
	"github.com/soundloom/soundloom/internal/config"
	"github.com/soundloom/soundloom/internal/gen"
	"github.com/soundloom/soundloom/internal/infer"
	"github.com/soundloom/soundloom/internal/server"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:        "test",
		Port:       "8080",
		HSTSMaxAge: 31536000,
		LogLevel:   "info",
	}
}

func testLogger() *slog.Logger {
	// Only show errors during tests
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// newTestServer wires a full stack with the offline engine behind the API.
func newTestServer(t *testing.T, engine infer.Engine) (*server.Server, *gen.Handle) {
	t.Helper()

	ring := audio.NewRing(64)
	handle := gen.NewHandle(ring, testLogger())
	worker := infer.NewWorker(handle, engine, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go worker.Run(ctx)

	return server.New(testConfig(), testLogger(), handle, worker), handle
}

func fastSynth() infer.Engine {
	return infer.NewSynth(infer.SynthConfig{SampleRate: 8000, Seconds: 1, Steps: 4})
}

func do(srv *server.Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, fastSynth())

	w := do(srv, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code, "Health endpoint should return 200 OK")
	assert.Contains(t, w.Body.String(), "healthy", "Response should contain 'healthy'")
	assert.Contains(t, w.Body.String(), "soundloom", "Response should contain service name")
}

func TestSubmitAndDownloadResult(t *testing.T) {
	srv, handle := newTestServer(t, fastSynth())

	w := do(srv, http.MethodPost, "/api/generations", `{"prompt":"test"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Contains(t, w.Body.String(), "request_id")

	require.Eventually(t, func() bool {
		return handle.ReadState().Phase == gen.PhaseSucceeded
	}, 2*time.Second, 5*time.Millisecond)

	// State reports the finished result's metadata.
	w = do(srv, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"phase":"succeeded"`)
	assert.Contains(t, w.Body.String(), `"result_sample_rate":8000`)

	// The WAV download carries the encoded result.
	w = do(srv, http.MethodGet, "/api/result.wav", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
	assert.Equal(t, "RIFF", w.Body.String()[:4])

	w = do(srv, http.MethodGet, "/api/result.mp3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))

	// Acknowledge returns the state to idle.
	w = do(srv, http.MethodPost, "/api/acknowledge", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"phase":"idle"`)
}

func TestSubmitValidation(t *testing.T) {
	srv, _ := newTestServer(t, fastSynth())

	w := do(srv, http.MethodPost, "/api/generations", `{"prompt":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(srv, http.MethodPost, "/api/generations", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitWhileBusyConflicts(t *testing.T) {
	// An engine that never finishes until the test ends.
	blocked := make(chan struct{})
	engine := engineFunc(func(ctx context.Context, _ gen.Request, _ infer.ProgressFunc) (*gen.Result, error) {
		select {
		case <-blocked:
		case <-ctx.Done():
		}

		return nil, ctx.Err()
	})
	defer close(blocked)

	srv, handle := newTestServer(t, engine)

	w := do(srv, http.MethodPost, "/api/generations", `{"prompt":"first"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		return handle.ReadState().Phase == gen.PhaseRunning
	}, 2*time.Second, time.Millisecond)

	w = do(srv, http.MethodPost, "/api/generations", `{"prompt":"second"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already in progress")

	// Cancelling the running request succeeds.
	w = do(srv, http.MethodPost, "/api/cancel", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"phase":"cancelled"`)
}

func TestCancelWithNothingInFlight(t *testing.T) {
	srv, _ := newTestServer(t, fastSynth())

	w := do(srv, http.MethodPost, "/api/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestResultWithoutGeneration(t *testing.T) {
	srv, _ := newTestServer(t, fastSynth())

	w := do(srv, http.MethodGet, "/api/result.wav", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAcknowledgeWithoutOutcome(t *testing.T) {
	srv, _ := newTestServer(t, fastSynth())

	w := do(srv, http.MethodPost, "/api/acknowledge", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

// engineFunc adapts a function to the Engine interface.
type engineFunc func(ctx context.Context, req gen.Request, progress infer.ProgressFunc) (*gen.Result, error)

func (engineFunc) Name() string { return "func" }

func (f engineFunc) Generate(ctx context.Context, req gen.Request, progress infer.ProgressFunc) (*gen.Result, error) {
	return f(ctx, req, progress)
}
