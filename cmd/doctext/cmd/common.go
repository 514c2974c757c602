package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/doctext/internal/config"
	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/spf13/cobra"
)

// pipelineFactory builds the pipeline a command runs documents through.
// configure runs on the builder before Build.
var pipelineFactory = func(ctx context.Context, cfg *config.Config, configure ...func(*pipeline.Builder)) (*pipeline.Pipeline, error) {
	b := pipeline.NewBuilderFromConfig(cfg.ToPipelineConfig())
	for _, fn := range configure {
		fn(b)
	}
	return b.Build(ctx)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig returns the effective configuration after apply has mapped the
// command's own flags onto it.
func loadConfig(apply func(*config.Config)) (*config.Config, error) {
	cfg := GetConfig()
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// requireLane rejects files whose detected type belongs to another lane.
func requireLane(path string, declared pipeline.MediaType, want pipeline.Lane) (pipeline.MediaType, error) {
	mt := pipeline.DetectMediaType(path, declared)
	lane, _, err := pipeline.Route(mt)
	if err != nil {
		return mt, fmt.Errorf("%s: %w", path, err)
	}
	if lane != want {
		return mt, fmt.Errorf("%s has type %s, which the %s command does not handle", path, mt, want)
	}
	return mt, nil
}

// runDocument processes one file and writes the formatted result.
func runDocument(cmd *cobra.Command, cfg *config.Config, doc pipeline.SourceDocument, opts ...pipeline.Option) error {
	info, err := os.Stat(doc.Path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", doc.Path, err)
	}
	doc.Size = info.Size()

	ctx := commandContext(cmd)
	p, err := pipelineFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			slog.Warn("Error closing pipeline", "error", err)
		}
	}()

	res, err := p.Process(ctx, doc, opts...)
	if err != nil {
		return err
	}
	if res.LowConfidence {
		slog.Warn("Low OCR confidence", "file", doc.Path, "confidence", pipeline.FormatConfidence(res.Confidence))
	}

	out, err := pipeline.Format(res, cfg.Output.Format)
	if err != nil {
		return err
	}
	return writeOutput(cmd, out, cfg.Output.File)
}

// writeOutput prints out or writes it to file.
func writeOutput(cmd *cobra.Command, out, file string) error {
	if file == "" {
		if len(out) > 0 && out[len(out)-1] != '\n' {
			out += "\n"
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(file, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", file)
	return nil
}

// progressOption returns a console progress reporter when enabled.
func progressOption(cmd *cobra.Command, prefix string) []pipeline.Option {
	if show, _ := cmd.Flags().GetBool("progress"); !show {
		return nil
	}
	return []pipeline.Option{pipeline.WithProgress(pipeline.NewConsoleProgressCallback(cmd.ErrOrStderr(), prefix))}
}
