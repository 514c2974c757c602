// Package server exposes the document pipeline over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/MeKo-Tech/doctext/internal/scratch"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Processor runs one document through the pipeline.
type Processor interface {
	Process(ctx context.Context, doc pipeline.SourceDocument, opts ...pipeline.Option) (pipeline.Result, error)
}

// Config holds server configuration.
type Config struct {
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	UploadDir   string
	ErrorLog    string // empty disables the error log file
	RateLimit   RateLimitConfig
}

// RateLimitConfig holds per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	processor   Processor
	cleaner     *scratch.Cleaner
	uploadDir   string
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	rateLimiter *RateLimiter
	errorLog    *ErrorLogger
}

// NewServer creates a server. Uploads are deleted through cleaner after
// each request.
func NewServer(cfg Config, processor Processor, cleaner *scratch.Cleaner) (*Server, error) {
	if processor == nil {
		return nil, fmt.Errorf("server: processor is required")
	}
	if cleaner == nil {
		cleaner = scratch.NewCleaner(scratch.DefaultCleanerConfig())
	}
	initErrorMetrics()
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 5
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 120
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	uploadDir, err := filepath.Abs(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}

	s := &Server{
		processor:   processor,
		cleaner:     cleaner,
		uploadDir:   uploadDir,
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: cfg.MaxUploadMB,
		timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
	}
	if cfg.RateLimit.Enabled {
		rl := cfg.RateLimit
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.Burst, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	if cfg.ErrorLog != "" {
		el, err := NewErrorLogger(cfg.ErrorLog)
		if err != nil {
			return nil, err
		}
		s.errorLog = el
	}
	return s, nil
}

// Close waits for pending upload deletions and closes the error log.
func (s *Server) Close() error {
	s.cleaner.Wait()
	return s.errorLog.Close()
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/api/process", s.corsMiddleware(s.rateLimitMiddleware(s.processHandler)))
	mux.HandleFunc("/ws/process", s.rateLimitMiddleware(s.processWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// Bootstrap creates the upload and scratch directories and starts the stale
// artifact sweeper, which runs until ctx is done.
func Bootstrap(ctx context.Context, uploadDir, scratchDir string, interval, maxAge time.Duration) error {
	if err := scratch.EnsureDirs(uploadDir, scratchDir); err != nil {
		return err
	}
	if maxAge > 0 {
		go scratch.RunSweeper(ctx, interval, maxAge, uploadDir, scratchDir)
	}
	return nil
}
