package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/doctext/test/integration/pipeline/support"
	"github.com/cucumber/godog"
)

// scenarioInitializer creates a fresh context per scenario, bound to t for
// fixture helpers.
func scenarioInitializer(t *testing.T) func(*godog.ScenarioContext) {
	return func(sc *godog.ScenarioContext) {
		testContext := support.NewTestContext(t)

		testContext.RegisterDocumentSteps(sc)
		testContext.RegisterServerSteps(sc)

		sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
			if err := testContext.Cleanup(); err != nil {
				t.Logf("Warning: Failed to cleanup test context: %v", err)
			}
			return ctx, nil
		})
	}
}

// TestFeatures runs the Godog test suite.
func TestFeatures(t *testing.T) {
	entries, err := os.ReadDir("features")
	if err != nil {
		t.Fatalf("failed to read features directory: %v", err)
	}

	format := os.Getenv("GODOG_FORMAT")
	if format == "" {
		format = "pretty"
	}
	tags := os.Getenv("GODOG_TAGS")

	found := false
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".feature") {
			continue
		}
		found = true
		featurePath := filepath.Join("features", e.Name())

		t.Run(e.Name(), func(t *testing.T) {
			suite := godog.TestSuite{
				ScenarioInitializer: scenarioInitializer(t),
				Options: &godog.Options{
					Format:   format,
					Tags:     tags,
					Paths:    []string{featurePath},
					TestingT: t,
				},
			}

			if suite.Run() != 0 {
				t.Fatalf("non-zero status returned for %s", featurePath)
			}
		})
	}

	if !found {
		t.Fatalf("no .feature files found in features/")
	}
}
