package cmd

import (
	"github.com/MeKo-Tech/doctext/internal/config"
	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/spf13/cobra"
)

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image <file>",
	Short: "Extract text from a scanned image",
	Long: `Normalize an image and run OCR on it.

The image is converted to grayscale, contrast-stretched, sharpened,
thresholded and fit into the configured bounding box before recognition.

Supported formats: JPEG, PNG, BMP, TIFF, WebP

Examples:
  doctext image scan.png
  doctext image receipt.jpg --format json
  doctext image page.tiff --threshold 150 --output page.txt`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(func(c *config.Config) {
			if cmd.Flags().Changed("max-width") {
				c.Image.MaxWidth, _ = cmd.Flags().GetInt("max-width")
			}
			if cmd.Flags().Changed("max-height") {
				c.Image.MaxHeight, _ = cmd.Flags().GetInt("max-height")
			}
			if cmd.Flags().Changed("threshold") {
				c.Image.Threshold, _ = cmd.Flags().GetInt("threshold")
			}
			if cmd.Flags().Changed("sharpen-sigma") {
				c.Image.SharpenSigma, _ = cmd.Flags().GetFloat64("sharpen-sigma")
			}
		})
		if err != nil {
			return err
		}

		mt, err := requireLane(args[0], "", pipeline.LaneImage)
		if err != nil {
			return err
		}
		return runDocument(cmd, cfg, pipeline.SourceDocument{Path: args[0], MediaType: mt})
	},
}

func init() {
	rootCmd.AddCommand(imageCmd)
	imageCmd.Flags().Int("max-width", 2000, "maximum normalized width in pixels")
	imageCmd.Flags().Int("max-height", 2000, "maximum normalized height in pixels")
	imageCmd.Flags().Int("threshold", 128, "binarization threshold (0-255)")
	imageCmd.Flags().Float64("sharpen-sigma", 1.0, "sharpening strength")
}
