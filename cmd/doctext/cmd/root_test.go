package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "doctext", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Same(t, rootCmd, GetRootCommand())
}

func TestRootCommandHelp(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "--format")
}

func TestRootCommandVersion(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "doctext version dev")
}

func TestRootCommandNoArgs(t *testing.T) {
	out, _, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, _, err := execute(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, expected := range []string{"image", "pdf", "doc", "process", "batch", "serve", "config"} {
		assert.Contains(t, names, expected)
	}
}

func TestFormatError(t *testing.T) {
	stage := docerr.New(docerr.CodeTextExtraction, "extract", "No text could be extracted from the image")
	assert.Equal(t, "TEXT_EXTRACTION_ERROR: No text could be extracted from the image", FormatError(stage))
	assert.Equal(t, "TEXT_EXTRACTION_ERROR: No text could be extracted from the image",
		FormatError(fmt.Errorf("scan.png: %w", stage)))
	assert.Equal(t, "Error: boom", FormatError(errors.New("boom")))
}

func TestGetConfigHonorsFlags(t *testing.T) {
	useFakePipeline(t, nil, nil)
	_, _, err := execute(t, "config", "show", "--engine", "cloudvision", "--language", "deu")
	require.NoError(t, err)

	cfg := GetConfig()
	assert.Equal(t, "cloudvision", cfg.OCR.Engine)
	assert.Equal(t, "deu", cfg.OCR.Language)
}
