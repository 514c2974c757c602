package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/MeKo-Tech/doctext/internal/normalizer"
	"github.com/MeKo-Tech/doctext/internal/pdf"
	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/MeKo-Tech/doctext/internal/recognizer"
	"github.com/MeKo-Tech/doctext/internal/recognizer/cloudvision"
	"github.com/MeKo-Tech/doctext/internal/recognizer/tesseract"
	"github.com/MeKo-Tech/doctext/internal/scratch"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{pipeline.FormatText, pipeline.FormatJSON, pipeline.FormatCSV}
	validEngines   = []string{tesseract.Name, cloudvision.Name}
	validBackends  = []string{pdf.BackendPoppler, pdf.BackendMuPDF}
)

// DefaultConfig returns a configuration with sensible default values.
func DefaultConfig() Config {
	p := pipeline.DefaultConfig()
	return Config{
		LogLevel:   "info",
		ScratchDir: p.ScratchDir,
		UploadDir:  "uploads",
		OCR: OCRConfig{
			Engine:        p.OCR.Engine,
			Language:      p.Extractor.Language,
			LowConfidence: p.Extractor.LowConfidence,
		},
		Image: ImageConfig{
			MaxWidth:     p.Normalizer.MaxWidth,
			MaxHeight:    p.Normalizer.MaxHeight,
			Threshold:    int(p.Normalizer.Threshold),
			SharpenSigma: p.Normalizer.SharpenSigma,
		},
		PDF: PDFConfig{
			Backend:      p.PDF.Backend,
			DPI:          p.PDF.DPI,
			PdftoppmPath: p.PDF.PdftoppmPath,
			PageWorkers:  p.PDF.PageWorkers,
		},
		Cleanup: CleanupConfig{
			RetryAttempts: p.Cleanup.RetryAttempts,
			RetryDelay:    p.Cleanup.RetryDelay.String(),
			SweepInterval: (10 * time.Minute).String(),
			SweepMaxAge:   time.Hour.String(),
		},
		Output: OutputConfig{Format: pipeline.FormatText},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            3000,
			CORSOrigin:      "*",
			MaxUploadMB:     5,
			TimeoutSec:      120,
			ShutdownTimeout: 10,
			ErrorLog:        "logs/error.log",
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				Burst:             10,
				MaxRequestsPerDay: 1000,
				MaxDataPerDayMB:   500,
			},
		},
		Batch: BatchConfig{
			Workers:   4,
			Recursive: true,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %v)", c.LogLevel, validLogLevels)
	}
	if !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %v)", c.Output.Format, validFormats)
	}
	if c.ScratchDir == "" {
		return errors.New("scratch_dir must not be empty")
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateImage(); err != nil {
		return err
	}
	if err := c.validatePDF(); err != nil {
		return err
	}
	if err := c.validateCleanup(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("batch workers must be positive, got %d", c.Batch.Workers)
	}
	return nil
}

func (c *Config) validateOCR() error {
	if !slices.Contains(validEngines, c.OCR.Engine) {
		return fmt.Errorf("invalid OCR engine: %s (must be one of: %v)", c.OCR.Engine, validEngines)
	}
	if c.OCR.Language == "" {
		return errors.New("ocr language must not be empty")
	}
	if c.OCR.LowConfidence >= 0 {
		if err := validateThreshold(c.OCR.LowConfidence, "low_confidence"); err != nil {
			return err
		}
	}
	if c.OCR.Tesseract.PageSegMode < 0 || c.OCR.Tesseract.PageSegMode > 13 {
		return fmt.Errorf("invalid page_seg_mode: %d (must be between 0 and 13)", c.OCR.Tesseract.PageSegMode)
	}
	return nil
}

func (c *Config) validateImage() error {
	if c.Image.MaxWidth <= 0 || c.Image.MaxHeight <= 0 {
		return fmt.Errorf("image bounds must be positive, got %dx%d", c.Image.MaxWidth, c.Image.MaxHeight)
	}
	if c.Image.Threshold < 0 || c.Image.Threshold > 255 {
		return fmt.Errorf("invalid threshold: %d (must be between 0 and 255)", c.Image.Threshold)
	}
	if c.Image.SharpenSigma < 0 {
		return fmt.Errorf("sharpen_sigma must not be negative, got %.2f", c.Image.SharpenSigma)
	}
	return nil
}

func (c *Config) validatePDF() error {
	if !slices.Contains(validBackends, c.PDF.Backend) {
		return fmt.Errorf("invalid PDF backend: %s (must be one of: %v)", c.PDF.Backend, validBackends)
	}
	if c.PDF.DPI < 36 || c.PDF.DPI > 1200 {
		return fmt.Errorf("invalid dpi: %d (must be between 36 and 1200)", c.PDF.DPI)
	}
	if c.PDF.PageWorkers <= 0 {
		return fmt.Errorf("page_workers must be positive, got %d", c.PDF.PageWorkers)
	}
	return nil
}

func (c *Config) validateCleanup() error {
	if c.Cleanup.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must not be negative, got %d", c.Cleanup.RetryAttempts)
	}
	for name, v := range map[string]string{
		"retry_delay":    c.Cleanup.RetryDelay,
		"sweep_interval": c.Cleanup.SweepInterval,
		"sweep_max_age":  c.Cleanup.SweepMaxAge,
	} {
		if _, err := parseDuration(v, name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("timeout_sec must be positive, got %d", c.Server.TimeoutSec)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.Burst < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return errors.New("rate limits must not be negative")
	}
	return nil
}

// Durations returns the parsed cleanup durations. Call after Validate.
func (c *Config) Durations() (retryDelay, sweepInterval, sweepMaxAge time.Duration) {
	retryDelay, _ = parseDuration(c.Cleanup.RetryDelay, "retry_delay")
	sweepInterval, _ = parseDuration(c.Cleanup.SweepInterval, "sweep_interval")
	sweepMaxAge, _ = parseDuration(c.Cleanup.SweepMaxAge, "sweep_max_age")
	return retryDelay, sweepInterval, sweepMaxAge
}

// ToPipelineConfig converts the centralized configuration to a pipeline config.
func (c *Config) ToPipelineConfig() pipeline.Config {
	p := pipeline.DefaultConfig()
	p.ProjectRoot = c.ProjectRoot
	p.ScratchDir = c.ScratchDir
	p.OCR = c.toOCRConfig()
	p.Extractor = c.toExtractorConfig()
	p.Normalizer = c.toNormalizerConfig()
	p.PDF = pipeline.PDFConfig{
		Backend:      c.PDF.Backend,
		DPI:          c.PDF.DPI,
		PdftoppmPath: c.PDF.PdftoppmPath,
		Password:     c.PDF.Password,
		PageWorkers:  c.PDF.PageWorkers,
	}
	retryDelay, _, _ := c.Durations()
	p.Cleanup = scratch.CleanerConfig{RetryAttempts: c.Cleanup.RetryAttempts, RetryDelay: retryDelay}
	return p
}

func (c *Config) toOCRConfig() pipeline.OCRConfig {
	return pipeline.OCRConfig{
		Engine:    c.OCR.Engine,
		Tesseract: tesseract.Config{PageSegMode: c.OCR.Tesseract.PageSegMode},
		CloudVision: cloudvision.Config{
			CredentialsFile: c.OCR.CloudVision.CredentialsFile,
			APIKey:          c.OCR.CloudVision.APIKey,
			Endpoint:        c.OCR.CloudVision.Endpoint,
		},
	}
}

func (c *Config) toExtractorConfig() recognizer.Config {
	return recognizer.Config{
		Language:      c.OCR.Language,
		LowConfidence: c.OCR.LowConfidence,
	}
}

func (c *Config) toNormalizerConfig() normalizer.Config {
	n := normalizer.DefaultConfig()
	n.MaxWidth = c.Image.MaxWidth
	n.MaxHeight = c.Image.MaxHeight
	n.Threshold = uint8(c.Image.Threshold) //nolint:gosec // G115: range checked in Validate
	n.SharpenSigma = c.Image.SharpenSigma
	return n
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// parseDuration accepts Go duration strings; empty means zero.
func parseDuration(s, name string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q: %w", name, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: %q (must not be negative)", name, s)
	}
	return d, nil
}
