package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/MeKo-Tech/doctext/internal/config"
	"github.com/MeKo-Tech/doctext/internal/pipeline"
	"github.com/MeKo-Tech/doctext/internal/testutil/fakes"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// useFakePipeline makes commands build pipelines on the fake engine and
// raster backend.
func useFakePipeline(t *testing.T, engine *fakes.Engine, backend *fakes.RasterBackend) {
	t.Helper()
	if engine == nil {
		engine = &fakes.Engine{Text: "Hello World"}
	}
	if backend == nil {
		backend = &fakes.RasterBackend{Pages: 2}
	}
	scratchDir := t.TempDir()
	old := pipelineFactory
	pipelineFactory = func(ctx context.Context, cfg *config.Config, configure ...func(*pipeline.Builder)) (*pipeline.Pipeline, error) {
		b := pipeline.NewBuilderFromConfig(cfg.ToPipelineConfig())
		for _, fn := range configure {
			fn(b)
		}
		return b.WithScratchDir(scratchDir).
			WithEngine(engine).
			WithRasterBackend(backend).
			Build(ctx)
	}
	t.Cleanup(func() { pipelineFactory = old })
}

// resetFlags clears values left behind by earlier executions of rootCmd.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs rootCmd with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}
