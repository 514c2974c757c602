package config

import (
	"testing"
	"time"

	"github.com/MeKo-Tech/doctext/internal/pdf"
	"github.com/MeKo-Tech/doctext/internal/recognizer/cloudvision"
	"github.com/MeKo-Tech/doctext/internal/recognizer/tesseract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "temp", cfg.ScratchDir)
	assert.Equal(t, "uploads", cfg.UploadDir)

	assert.Equal(t, tesseract.Name, cfg.OCR.Engine)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.InDelta(t, 0.6, cfg.OCR.LowConfidence, 1e-9)

	assert.Equal(t, 2000, cfg.Image.MaxWidth)
	assert.Equal(t, 2000, cfg.Image.MaxHeight)
	assert.Equal(t, 128, cfg.Image.Threshold)

	assert.Equal(t, pdf.BackendPoppler, cfg.PDF.Backend)
	assert.Equal(t, 72, cfg.PDF.DPI)
	assert.Equal(t, 1, cfg.PDF.PageWorkers)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Server.MaxUploadMB)
	assert.Equal(t, "logs/error.log", cfg.Server.ErrorLog)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, 4, cfg.Batch.Workers)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"format", func(c *Config) { c.Output.Format = "xml" }, "invalid output format"},
		{"scratch dir", func(c *Config) { c.ScratchDir = "" }, "scratch_dir"},
		{"engine", func(c *Config) { c.OCR.Engine = "paddle" }, "invalid OCR engine"},
		{"cloud engine", func(c *Config) { c.OCR.Engine = cloudvision.Name }, ""},
		{"language", func(c *Config) { c.OCR.Language = "" }, "language"},
		{"low confidence", func(c *Config) { c.OCR.LowConfidence = 1.5 }, "invalid low_confidence"},
		{"low confidence disabled", func(c *Config) { c.OCR.LowConfidence = -1 }, ""},
		{"psm", func(c *Config) { c.OCR.Tesseract.PageSegMode = 14 }, "page_seg_mode"},
		{"image bounds", func(c *Config) { c.Image.MaxWidth = 0 }, "image bounds"},
		{"threshold", func(c *Config) { c.Image.Threshold = 256 }, "invalid threshold"},
		{"sigma", func(c *Config) { c.Image.SharpenSigma = -1 }, "sharpen_sigma"},
		{"backend", func(c *Config) { c.PDF.Backend = "ghostscript" }, "invalid PDF backend"},
		{"mupdf", func(c *Config) { c.PDF.Backend = pdf.BackendMuPDF }, ""},
		{"dpi", func(c *Config) { c.PDF.DPI = 10 }, "invalid dpi"},
		{"page workers", func(c *Config) { c.PDF.PageWorkers = 0 }, "page_workers"},
		{"retry attempts", func(c *Config) { c.Cleanup.RetryAttempts = -1 }, "retry_attempts"},
		{"retry delay", func(c *Config) { c.Cleanup.RetryDelay = "soon" }, "invalid retry_delay"},
		{"negative sweep", func(c *Config) { c.Cleanup.SweepMaxAge = "-1h" }, "invalid sweep_max_age"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"upload limit", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max_upload_mb"},
		{"timeout", func(c *Config) { c.Server.TimeoutSec = 0 }, "timeout_sec"},
		{"rate limit", func(c *Config) { c.Server.RateLimit.Burst = -1 }, "rate limits"},
		{"batch workers", func(c *Config) { c.Batch.Workers = 0 }, "batch workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	retry, interval, maxAge := cfg.Durations()
	assert.Equal(t, time.Second, retry)
	assert.Equal(t, 10*time.Minute, interval)
	assert.Equal(t, time.Hour, maxAge)

	cfg.Cleanup.SweepInterval = ""
	_, interval, _ = cfg.Durations()
	assert.Zero(t, interval)
}

func TestToPipelineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProjectRoot = "/srv/docs"
	cfg.ScratchDir = "/tmp/scratch"
	cfg.OCR.Engine = cloudvision.Name
	cfg.OCR.Language = "deu"
	cfg.OCR.LowConfidence = 0.75
	cfg.OCR.Tesseract.PageSegMode = 6
	cfg.OCR.CloudVision.Endpoint = "http://localhost:9000/"
	cfg.Image.MaxWidth = 1200
	cfg.Image.Threshold = 100
	cfg.PDF.DPI = 150
	cfg.PDF.Password = "pw"
	cfg.PDF.PageWorkers = 3
	cfg.Cleanup.RetryAttempts = 2
	cfg.Cleanup.RetryDelay = "250ms"

	p := cfg.ToPipelineConfig()
	assert.Equal(t, "/srv/docs", p.ProjectRoot)
	assert.Equal(t, "/tmp/scratch", p.ScratchDir)
	assert.Equal(t, cloudvision.Name, p.OCR.Engine)
	assert.Equal(t, 6, p.OCR.Tesseract.PageSegMode)
	assert.Equal(t, "http://localhost:9000/", p.OCR.CloudVision.Endpoint)
	assert.Equal(t, "deu", p.Extractor.Language)
	assert.InDelta(t, 0.75, p.Extractor.LowConfidence, 1e-9)
	assert.Equal(t, 1200, p.Normalizer.MaxWidth)
	assert.Equal(t, uint8(100), p.Normalizer.Threshold)
	assert.InDelta(t, 0.01, p.Normalizer.LowPercentile, 1e-9, "unexposed normalizer settings keep defaults")
	assert.Equal(t, 150, p.PDF.DPI)
	assert.Equal(t, "pw", p.PDF.Password)
	assert.Equal(t, 3, p.PDF.PageWorkers)
	assert.Equal(t, 2, p.Cleanup.RetryAttempts)
	assert.Equal(t, 250*time.Millisecond, p.Cleanup.RetryDelay)
}

func TestValidateThreshold(t *testing.T) {
	assert.NoError(t, validateThreshold(0, "x"))
	assert.NoError(t, validateThreshold(1, "x"))
	assert.EqualError(t, validateThreshold(1.01, "x"), "invalid x: 1.01 (must be between 0.0 and 1.0)")
}
