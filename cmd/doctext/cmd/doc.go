package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/doctext/internal/document"
	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/spf13/cobra"
)

// docCmd represents the doc command.
var docCmd = &cobra.Command{
	Use:   "doc <file>",
	Short: "Extract text from DOCX, XLSX/XLS or a PDF text layer without OCR",
	Long: `Read a structured document directly. DOCX yields paragraph text; spreadsheets
yield one header-keyed record per row and sheet; PDFs yield their embedded text.

The kind is taken from the file extension unless --kind is given.

Examples:
  doctext doc letter.docx
  doctext doc people.xlsx --format csv
  doctext doc export.bin --kind xlsx`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}

		var kind document.Kind
		if s, _ := cmd.Flags().GetString("kind"); s != "" {
			if kind, err = document.ParseKind(s); err != nil {
				return err
			}
		} else {
			var ok bool
			if kind, ok = document.KindFromExtension(args[0]); !ok {
				return fmt.Errorf("cannot infer document kind of %s; use --kind", args[0])
			}
		}
		return runDocument(cmd, cfg, pipeline.SourceDocument{Path: args[0]}, pipeline.WithDocumentKind(kind))
	},
}

func init() {
	rootCmd.AddCommand(docCmd)
	docCmd.Flags().String("kind", "", "document kind ("+document.KindNames()+")")
}
