package cmd

import (
	"github.com/MeKo-Tech/doctext/internal/config"
	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/spf13/cobra"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf <file>",
	Short: "Extract text from a PDF by rasterizing and OCR'ing its pages",
	Long: `Rasterize each page of a PDF, normalize it and run OCR. Page texts are
joined in page order with a blank line between pages.

With --text-layer the embedded text is read instead and no OCR runs.

Examples:
  doctext pdf scan.pdf
  doctext pdf report.pdf --pages 1-3,5
  doctext pdf report.pdf --dpi 150 --page-workers 4 --progress
  doctext pdf born-digital.pdf --text-layer --format json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		cfg, err := loadConfig(func(c *config.Config) {
			if flags.Changed("dpi") {
				c.PDF.DPI, _ = flags.GetInt("dpi")
			}
			if flags.Changed("backend") {
				c.PDF.Backend, _ = flags.GetString("backend")
			}
			if flags.Changed("password") {
				c.PDF.Password, _ = flags.GetString("password")
			}
			if flags.Changed("page-workers") {
				c.PDF.PageWorkers, _ = flags.GetInt("page-workers")
			}
		})
		if err != nil {
			return err
		}

		mt, err := requireLane(args[0], "", pipeline.LanePDF)
		if err != nil {
			return err
		}

		opts := progressOption(cmd, "Pages: ")
		if pages, _ := flags.GetString("pages"); pages != "" {
			opts = append(opts, pipeline.WithPageRange(pages))
		}
		if textLayer, _ := flags.GetBool("text-layer"); textLayer {
			opts = append(opts, pipeline.WithTextLayer(true))
		}
		return runDocument(cmd, cfg, pipeline.SourceDocument{Path: args[0], MediaType: mt}, opts...)
	},
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	pdfCmd.Flags().String("pages", "", "page selection, e.g. 1-3,5 (default all pages)")
	pdfCmd.Flags().Bool("text-layer", false, "read embedded text instead of running OCR")
	pdfCmd.Flags().Int("dpi", 72, "rasterization resolution")
	pdfCmd.Flags().String("backend", "poppler", "rasterizer backend (poppler, mupdf)")
	pdfCmd.Flags().String("password", "", "password for encrypted PDFs")
	pdfCmd.Flags().Int("page-workers", 1, "pages processed concurrently")
	pdfCmd.Flags().Bool("progress", false, "show page progress on stderr")
}
