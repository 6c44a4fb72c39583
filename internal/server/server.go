// Package server exposes the generation lifecycle over HTTP: a remote
// flavor of the polling UI. Clients submit prompts, poll state, cancel,
// and download the finished result.
package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundloom/soundloom/internal/config"
	"github.com/soundloom/soundloom/internal/export"
	"github.com/soundloom/soundloom/internal/gen"
	"github.com/soundloom/soundloom/internal/infer"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	logger *slog.Logger
	router *gin.Engine
	handle *gen.Handle
	worker *infer.Worker
}

// New creates a new Server instance
func New(cfg *config.Config, logger *slog.Logger, handle *gen.Handle, worker *infer.Worker) *Server {
	// Set Gin mode based on environment
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	server := &Server{
		config: cfg,
		logger: logger,
		router: router,
		handle: handle,
		worker: worker,
	}

	// Setup middleware and routes
	setupSecurityMiddleware(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Router returns the underlying gin router, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server
func Run(s *Server) error {
	s.logger.Info("Server listening", "port", s.config.Port)

	return s.router.Run(":" + s.config.Port)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.POST("/generations", s.handleSubmit)
		api.POST("/cancel", s.handleCancel)
		api.POST("/acknowledge", s.handleAcknowledge)
		api.GET("/result.wav", s.handleResultWAV)
		api.GET("/result.mp3", s.handleResultMP3)
	}
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "soundloom",
	})
}

// stateResponse is the JSON projection of a state snapshot.
type stateResponse struct {
	Phase      string  `json:"phase"`
	RequestID  uint64  `json:"request_id"`
	Prompt     string  `json:"prompt,omitempty"`
	Progress   float64 `json:"progress"`
	FailReason string  `json:"fail_reason,omitempty"`

	// Result metadata; the samples themselves are fetched via
	// /api/result.wav or /api/result.mp3.
	ResultSamples    int     `json:"result_samples,omitempty"`
	ResultSampleRate int     `json:"result_sample_rate,omitempty"`
	ResultSeconds    float64 `json:"result_seconds,omitempty"`
}

func toStateResponse(st gen.Snapshot) stateResponse {
	resp := stateResponse{
		Phase:      st.Phase.String(),
		RequestID:  st.RequestID,
		Prompt:     st.Prompt,
		Progress:   st.Progress,
		FailReason: st.FailReason,
	}

	if st.Result != nil {
		resp.ResultSamples = len(st.Result.Samples)
		resp.ResultSampleRate = st.Result.SampleRate
		resp.ResultSeconds = st.Result.Duration().Seconds()
	}

	return resp
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, toStateResponse(s.handle.ReadState()))
}

type submitRequest struct {
	Prompt           string `json:"prompt"`
	WithConditioning bool   `json:"with_conditioning"`
}

func (s *Server) handleSubmit(c *gin.Context) {
	var body submitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}

	req, err := s.worker.Generate(body.Prompt, body.WithConditioning)

	switch {
	case errors.Is(err, gen.ErrEmptyPrompt):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, gen.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		s.logger.Error("submit failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusAccepted, gin.H{"request_id": req.ID})
	}
}

func (s *Server) handleCancel(c *gin.Context) {
	if !s.handle.Cancel() {
		c.JSON(http.StatusConflict, gin.H{"error": "nothing to cancel"})

		return
	}

	c.JSON(http.StatusOK, toStateResponse(s.handle.ReadState()))
}

func (s *Server) handleAcknowledge(c *gin.Context) {
	if err := s.handle.Acknowledge(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

		return
	}

	c.JSON(http.StatusOK, toStateResponse(s.handle.ReadState()))
}

func (s *Server) handleResultWAV(c *gin.Context) {
	s.serveResult(c, "audio/wav", export.EncodeWAV)
}

func (s *Server) handleResultMP3(c *gin.Context) {
	s.serveResult(c, "audio/mpeg", export.EncodeMP3)
}

func (s *Server) serveResult(c *gin.Context, contentType string, encode func(*gen.Result) ([]byte, error)) {
	st := s.handle.ReadState()
	if st.Phase != gen.PhaseSucceeded || st.Result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no finished result"})

		return
	}

	data, err := encode(st.Result)
	if err != nil {
		s.logger.Error("result encoding failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encoding failed"})

		return
	}

	c.Data(http.StatusOK, contentType, data)
}
