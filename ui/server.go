package ui

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"datapipe/ai"
	"datapipe/app"
	"datapipe/internal/errors"
	"datapipe/internal/profiling"
	"datapipe/ports"

	"github.com/gin-gonic/gin"
)

// Runner runs the full pipeline over the data directory
type Runner interface {
	Run(ctx context.Context) (*app.RunSummary, error)
}

// Config holds the collaborators of the HTTP API. Runner and Logs are
// optional; their routes answer 503 when they are nil.
type Config struct {
	Profiler ports.ProfilerPort
	Runner   Runner
	Logs     *ai.InteractionLogger

	// UploadDir receives uploaded CSV files while they are profiled
	UploadDir string

	// AfterRun is called with the outcome of every background run
	AfterRun func(ctx context.Context, summary *app.RunSummary, err error)
}

// RunStatus is the state of the most recent background run
type RunStatus struct {
	Status     string          `json:"status"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Summary    *app.RunSummary `json:"summary,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Run states
const (
	RunIdle     = "idle"
	RunRunning  = "running"
	RunDone     = "done"
	RunFailed   = "failed"
	formFileKey = "file"
)

// Server is the JSON API over the profiler and the pipeline
type Server struct {
	router *gin.Engine
	config Config

	// State of the background run
	runMutex sync.RWMutex
	run      RunStatus
	runDone  chan struct{}
}

// NewServer creates the API server and registers its routes
func NewServer(config Config) *Server {
	if config.UploadDir == "" {
		config.UploadDir = os.TempDir()
	}

	s := &Server{
		router: gin.Default(),
		config: config,
		run:    RunStatus{Status: RunIdle},
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	api.POST("/profile", s.handleProfile)
	api.POST("/runs", s.handleStartRun)
	api.GET("/runs/latest", s.handleRunStatus)

	// Interaction logs are browsed through the log viewer
	if s.config.Logs != nil {
		viewer := NewLogViewer(s.config.Logs)
		s.router.Any("/logs/*path", gin.WrapH(http.StripPrefix("/logs", viewer)))
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	log.Printf("[Server] Starting datapipe API on http://%s", addr)
	return s.router.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleProfile profiles an uploaded CSV file and returns the profile with
// its text report
func (s *Server) handleProfile(c *gin.Context) {
	if s.config.Profiler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profiler not configured"})
		return
	}

	header, err := c.FormFile(formFileKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .csv files can be profiled"})
		return
	}

	tmp, err := os.CreateTemp(s.config.UploadDir, "upload-*.csv")
	if err != nil {
		log.Printf("[Profile] Failed to create upload file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := c.SaveUploadedFile(header, path); err != nil {
		log.Printf("[Profile] Failed to save %s: %v", header.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}

	start := time.Now()
	p := s.config.Profiler.ProfileCSV(c.Request.Context(), path)
	if p.IsEmpty() {
		err := errors.ProfilingFailed(header.Filename, nil)
		c.JSON(errors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	log.Printf("[Profile] Profiled %s (%d columns) in %v", header.Filename, len(p.Columns), time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"file":    header.Filename,
		"profile": p,
		"report":  profiling.GenerateReport(p),
	})
}

// handleStartRun starts a pipeline run in the background. Only one run
// executes at a time.
func (s *Server) handleStartRun(c *gin.Context) {
	if s.config.Runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline not configured"})
		return
	}

	s.runMutex.Lock()
	if s.run.Status == RunRunning {
		status := s.run
		s.runMutex.Unlock()
		c.JSON(http.StatusConflict, status)
		return
	}
	now := time.Now()
	s.run = RunStatus{Status: RunRunning, StartedAt: &now}
	s.runDone = make(chan struct{})
	status := s.run
	done := s.runDone
	s.runMutex.Unlock()

	go s.executeRun(done)

	c.JSON(http.StatusAccepted, status)
}

func (s *Server) executeRun(done chan struct{}) {
	defer close(done)

	ctx := context.Background()
	summary, err := s.config.Runner.Run(ctx)

	finished := time.Now()
	s.runMutex.Lock()
	s.run.FinishedAt = &finished
	s.run.Summary = summary
	if err != nil {
		log.Printf("[Server] Pipeline run failed: %v", err)
		s.run.Status = RunFailed
		s.run.Error = err.Error()
	} else {
		s.run.Status = RunDone
	}
	s.runMutex.Unlock()

	if s.config.AfterRun != nil {
		s.config.AfterRun(ctx, summary, err)
	}
}

func (s *Server) handleRunStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.RunStatus())
}

// RunStatus returns a copy of the state of the most recent run
func (s *Server) RunStatus() RunStatus {
	s.runMutex.RLock()
	defer s.runMutex.RUnlock()
	return s.run
}

// WaitForRun blocks until the current background run finishes or ctx ends
func (s *Server) WaitForRun(ctx context.Context) error {
	s.runMutex.RLock()
	done := s.runDone
	s.runMutex.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
