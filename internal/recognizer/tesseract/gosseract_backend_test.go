//go:build tesseract

package tesseract

import (
	"context"
	"strings"
	"testing"

	"github.com/MeKo-Tech/doctext/internal/recognizer"
	"github.com/MeKo-Tech/doctext/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"
)

func TestEngine_RecognizesRenderedText(t *testing.T) {
	cfg := testutil.DefaultTestImageConfig()
	cfg.Text = "HELLO"
	cfg.FontFace = basicfont.Face7x13
	cfg.Size = testutil.ImageSize{Width: 200, Height: 60}
	path := t.TempDir() + "/hello.png"
	testutil.SaveImage(t, testutil.GenerateTextImage(cfg), path)

	eng, err := New(Config{PageSegMode: 7})
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	var steps []float64
	rec, err := eng.Recognize(context.Background(), recognizer.Request{
		ImagePath: path,
		Language:  "eng",
		Progress:  func(_ string, f float64) { steps = append(steps, f) },
	})
	require.NoError(t, err)
	assert.Contains(t, strings.ToUpper(rec.Text), "HELLO")
	require.NotNil(t, rec.Confidence)
	assert.Equal(t, []float64{0, 1}, steps)
}

func TestEngine_CancelledContext(t *testing.T) {
	eng, err := New(Config{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.Recognize(ctx, recognizer.Request{ImagePath: "unused.png"})
	assert.ErrorIs(t, err, context.Canceled)
}
