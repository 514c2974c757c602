package cmd

import (
	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/spf13/cobra"
)

// processCmd represents the process command.
var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Route any supported document to the matching lane",
	Long: `Detect the document type and process it: images and PDFs through OCR,
DOCX and spreadsheets through direct extraction.

The type comes from --type, then the file extension, then the content.

Examples:
  doctext process upload.bin --type application/pdf
  doctext process inbox/scan.jpg --format json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		mediaType, _ := cmd.Flags().GetString("type")
		doc := pipeline.SourceDocument{Path: args[0], MediaType: pipeline.ParseMediaType(mediaType)}
		return runDocument(cmd, cfg, doc, progressOption(cmd, "Pages: ")...)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().String("type", "", "declared media type, e.g. application/pdf")
	processCmd.Flags().Bool("progress", false, "show page progress on stderr")
}
