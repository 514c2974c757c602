package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/doctext/internal/config"
	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/MeKo-Tech/doctext/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP document processing server",
	Long: `Start an HTTP server that runs uploaded documents through the pipeline.

The server provides the following endpoints:
  POST /api/process - multipart upload in the "file" field
  GET  /ws/process  - WebSocket with per-page progress
  GET  /health      - health check
  GET  /metrics     - Prometheus metrics

Examples:
  doctext serve
  doctext serve --port 8080
  doctext serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(func(c *config.Config) { applyServeFlags(cmd, c) })
		if err != nil {
			return err
		}
		sc := cfg.Server

		ctx, cancel := context.WithCancel(commandContext(cmd))
		defer cancel()

		_, sweepInterval, sweepMaxAge := cfg.Durations()
		if err := server.Bootstrap(ctx, cfg.UploadDir, cfg.ScratchDir, sweepInterval, sweepMaxAge); err != nil {
			return fmt.Errorf("failed to prepare directories: %w", err)
		}

		p, err := pipelineFactory(ctx, cfg, func(b *pipeline.Builder) {
			b.WithCleanupFailureHook(server.RecordCleanupFailure)
		})
		if err != nil {
			return fmt.Errorf("failed to build pipeline: %w", err)
		}
		defer func() {
			slog.Info("Pipeline profile", "profile", p.Profiler().Snapshot())
			_ = p.Close()
		}()
		slog.Info("Pipeline initialized", "pipeline", p.Info())

		docServer, err := server.NewServer(serverConfig(cfg), p, p.Cleaner())
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", sc.Host, sc.Port),
			Handler:           docServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(sc.TimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(sc.TimeoutSec+5) * time.Second,
		}

		go func() {
			slog.Info("Starting document server", "host", sc.Host, "port", sc.Port, "engine", cfg.OCR.Engine)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", sc.ShutdownTimeout))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(sc.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server shutdown completed")
		}

		if err := docServer.Close(); err != nil {
			slog.Error("Server cleanup error", "error", err)
		}
		slog.Info("Graceful shutdown completed")
		return nil
	},
}

// applyServeFlags overrides server settings with explicitly set flags.
func applyServeFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		c.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		c.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("cors-origin") {
		c.Server.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("max-upload-size") {
		c.Server.MaxUploadMB, _ = flags.GetInt("max-upload-size")
	}
	if flags.Changed("timeout") {
		c.Server.TimeoutSec, _ = flags.GetInt("timeout")
	}
	if flags.Changed("shutdown-timeout") {
		c.Server.ShutdownTimeout, _ = flags.GetInt("shutdown-timeout")
	}
	if flags.Changed("upload-dir") {
		c.UploadDir, _ = flags.GetString("upload-dir")
	}
	if flags.Changed("error-log") {
		c.Server.ErrorLog, _ = flags.GetString("error-log")
	}
	if flags.Changed("rate-limit-enabled") {
		c.Server.RateLimit.Enabled, _ = flags.GetBool("rate-limit-enabled")
	}
	if flags.Changed("requests-per-minute") {
		c.Server.RateLimit.RequestsPerMinute, _ = flags.GetInt("requests-per-minute")
	}
	if flags.Changed("burst") {
		c.Server.RateLimit.Burst, _ = flags.GetInt("burst")
	}
	if flags.Changed("max-requests-per-day") {
		c.Server.RateLimit.MaxRequestsPerDay, _ = flags.GetInt("max-requests-per-day")
	}
	if flags.Changed("max-data-per-day") {
		c.Server.RateLimit.MaxDataPerDayMB, _ = flags.GetInt("max-data-per-day")
	}
}

// serverConfig maps the centralized configuration to server.Config.
func serverConfig(cfg *config.Config) server.Config {
	sc := cfg.Server
	return server.Config{
		CORSOrigin:  sc.CORSOrigin,
		MaxUploadMB: int64(sc.MaxUploadMB),
		TimeoutSec:  sc.TimeoutSec,
		UploadDir:   cfg.UploadDir,
		ErrorLog:    sc.ErrorLog,
		RateLimit: server.RateLimitConfig{
			Enabled:           sc.RateLimit.Enabled,
			RequestsPerMinute: sc.RateLimit.RequestsPerMinute,
			Burst:             sc.RateLimit.Burst,
			MaxRequestsPerDay: sc.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     int64(sc.RateLimit.MaxDataPerDayMB) * 1024 * 1024,
		},
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 3000, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 5, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 120, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().String("upload-dir", "uploads", "directory for uploaded files")
	serveCmd.Flags().String("error-log", "logs/error.log", "file receiving failed requests (empty disables)")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	serveCmd.Flags().Int("burst", 10, "requests a client may send at once")
	serveCmd.Flags().Int("max-requests-per-day", 1000, "maximum requests per day per client")
	serveCmd.Flags().Int("max-data-per-day", 500, "maximum upload volume per day per client (MB)")
}
