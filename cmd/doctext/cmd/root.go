package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/doctext/internal/config"
	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/MeKo-Tech/doctext/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "doctext",
	Short: "Extract text from scanned images, PDFs and office documents",
	Long: `doctext extracts machine-readable text from heterogeneous documents.

Each input is routed through a lane that fits its type:
- Images are normalized (grayscale, contrast, sharpen, threshold, resize) and OCR'd
- PDFs are rasterized page by page, then normalized and OCR'd
- DOCX and spreadsheets are read directly without OCR

Examples:
  doctext image scan.png
  doctext pdf report.pdf --pages 1-3 --format json
  doctext doc letter.docx
  doctext batch inbox/ --workers 8
  doctext serve --port 3000`,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, _ := cmd.PersistentFlags().GetBool("version")
		if v {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "doctext version "+version.String())
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, FormatError(err))
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

// FormatError renders err for the terminal. Pipeline failures print as
// "CODE: message".
func FormatError(err error) string {
	var de *docerr.Error
	if errors.As(err, &de) {
		return fmt.Sprintf("%s: %s", de.Code, docerr.Message(err))
	}
	return "Error: " + err.Error()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/doctext, /etc/doctext)")
	flags.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("scratch-dir", "temp", "directory for transient page and image artifacts")
	flags.String("engine", "tesseract", "OCR engine (tesseract, cloudvision)")
	flags.StringP("language", "l", "eng", "OCR language")
	flags.StringP("format", "f", "text", "output format (text, json, csv)")
	flags.StringP("output", "o", "", "write results to file instead of stdout")
	flags.Bool("version", false, "print version information and exit")

	bindFlags(viper.GetViper())

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if globalConfig == nil {
			initConfig()
		}

		var logLevel slog.Level
		if globalConfig.Verbose {
			logLevel = slog.LevelDebug
		} else {
			switch globalConfig.LogLevel {
			case "debug":
				logLevel = slog.LevelDebug
			case "warn":
				logLevel = slog.LevelWarn
			case "error":
				logLevel = slog.LevelError
			default:
				logLevel = slog.LevelInfo
			}
		}

		// stdout carries extracted text, so logs go to stderr.
		logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	}
}

// bindFlags maps the global flags onto configuration keys.
func bindFlags(v *viper.Viper) {
	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("scratch_dir", flags.Lookup("scratch-dir"))
	_ = v.BindPFlag("ocr.engine", flags.Lookup("engine"))
	_ = v.BindPFlag("ocr.language", flags.Lookup("language"))
	_ = v.BindPFlag("output.format", flags.Lookup("format"))
	_ = v.BindPFlag("output.file", flags.Lookup("output"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	configLoader = config.NewLoader()

	var err error
	if cfgFile != "" {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	} else {
		globalConfig, err = configLoader.Load()
	}

	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}

// GetConfig returns the global configuration.
func GetConfig() *config.Config {
	if globalConfig == nil {
		initConfig()
	}

	// Flag binding happens after the first load, so unmarshal again.
	loader := GetConfigLoader()
	var cfg config.Config
	if err := loader.GetViper().Unmarshal(&cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error unmarshaling updated configuration: %v\n", err)
		return globalConfig
	}

	return &cfg
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}
