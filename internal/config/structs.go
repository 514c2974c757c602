//nolint:lll
package config

// Config represents the complete configuration for doctext.
// It covers every command (image, pdf, doc, process, batch, serve) and is
// loaded from configuration files, environment variables and command-line flags.
type Config struct {
	LogLevel    string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose     bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
	ProjectRoot string `mapstructure:"project_root" yaml:"project_root" json:"project_root"`
	ScratchDir  string `mapstructure:"scratch_dir" yaml:"scratch_dir" json:"scratch_dir"`
	UploadDir   string `mapstructure:"upload_dir" yaml:"upload_dir" json:"upload_dir"`

	OCR     OCRConfig     `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Image   ImageConfig   `mapstructure:"image" yaml:"image" json:"image"`
	PDF     PDFConfig     `mapstructure:"pdf" yaml:"pdf" json:"pdf"`
	Cleanup CleanupConfig `mapstructure:"cleanup" yaml:"cleanup" json:"cleanup"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output" json:"output"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
	Batch   BatchConfig   `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// OCRConfig selects the text recognition engine.
type OCRConfig struct {
	Engine        string            `mapstructure:"engine" yaml:"engine" json:"engine"`
	Language      string            `mapstructure:"language" yaml:"language" json:"language"`
	LowConfidence float64           `mapstructure:"low_confidence" yaml:"low_confidence" json:"low_confidence"`
	Tesseract     TesseractConfig   `mapstructure:"tesseract" yaml:"tesseract" json:"tesseract"`
	CloudVision   CloudVisionConfig `mapstructure:"cloudvision" yaml:"cloudvision" json:"cloudvision"`
}

// TesseractConfig contains local engine settings.
type TesseractConfig struct {
	PageSegMode int `mapstructure:"page_seg_mode" yaml:"page_seg_mode" json:"page_seg_mode"`
}

// CloudVisionConfig contains Google Cloud Vision settings.
type CloudVisionConfig struct {
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file" json:"credentials_file"`
	APIKey          string `mapstructure:"api_key" yaml:"api_key" json:"-"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
}

// ImageConfig contains normalization settings.
type ImageConfig struct {
	MaxWidth     int     `mapstructure:"max_width" yaml:"max_width" json:"max_width"`
	MaxHeight    int     `mapstructure:"max_height" yaml:"max_height" json:"max_height"`
	Threshold    int     `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	SharpenSigma float64 `mapstructure:"sharpen_sigma" yaml:"sharpen_sigma" json:"sharpen_sigma"`
}

// PDFConfig contains rasterization settings.
type PDFConfig struct {
	Backend      string `mapstructure:"backend" yaml:"backend" json:"backend"`
	DPI          int    `mapstructure:"dpi" yaml:"dpi" json:"dpi"`
	PdftoppmPath string `mapstructure:"pdftoppm_path" yaml:"pdftoppm_path" json:"pdftoppm_path"`
	Password     string `mapstructure:"password" yaml:"password" json:"-"`
	PageWorkers  int    `mapstructure:"page_workers" yaml:"page_workers" json:"page_workers"`
}

// CleanupConfig controls artifact deletion and the stale file sweeper.
type CleanupConfig struct {
	RetryAttempts int    `mapstructure:"retry_attempts" yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay    string `mapstructure:"retry_delay" yaml:"retry_delay" json:"retry_delay"`
	SweepInterval string `mapstructure:"sweep_interval" yaml:"sweep_interval" json:"sweep_interval"`
	SweepMaxAge   string `mapstructure:"sweep_max_age" yaml:"sweep_max_age" json:"sweep_max_age"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	ErrorLog        string          `mapstructure:"error_log" yaml:"error_log" json:"error_log"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	Burst             int  `mapstructure:"burst" yaml:"burst" json:"burst"`
	MaxRequestsPerDay int  `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}
