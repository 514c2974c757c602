package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.True(t, FileExists(filepath.Join(root, "go.mod")))
}

func TestEnsureDirAndRequireEmptyDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	require.NoError(t, EnsureDir(filepath.Join(dir, "nested")))
	// Subdirectories are not artifacts.
	RequireEmptyDir(t, dir)
}

func TestGenerateTextImage(t *testing.T) {
	img := GenerateTextImage(DefaultTestImageConfig())
	assert.Equal(t, MediumSize.Width, img.Bounds().Dx())

	dark := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] < 128 {
			dark++
		}
	}
	assert.Positive(t, dark, "text should draw dark pixels")
}

func TestWriteImages(t *testing.T) {
	dir := t.TempDir()
	p := WriteTextImage(t, dir, "a.jpg", "x", SmallSize)
	img := LoadImage(t, p)
	assert.Equal(t, SmallSize.Height, img.Bounds().Dy())
	assert.Len(t, ListFiles(t, dir), 1)
}

func TestBuildPDF_XrefOffsetsPointAtObjects(t *testing.T) {
	data := BuildPDF([]PDFPage{{Text: "One (1)"}, {Text: ""}, {Text: "a\nb"}})

	m := regexp.MustCompile(`startxref\n(\d+)\n`).FindSubmatch(data)
	require.NotNil(t, m)
	xref, err := strconv.Atoi(string(m[1]))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data[xref:], []byte("xref\n0 10\n")))

	entries := regexp.MustCompile(`(\d{10}) 00000 n `).FindAllSubmatch(data, -1)
	require.Len(t, entries, 9)
	for i, e := range entries {
		off, err := strconv.Atoi(string(e[1]))
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data[off:], fmt.Appendf(nil, "%d 0 obj", i+1)), "object %d", i+1)
	}
	assert.Contains(t, string(data), `(One \(1\)) Tj`)
	assert.Contains(t, string(data), "/Count 3")
}

func TestWriteDOCX(t *testing.T) {
	p := WriteDOCX(t, t.TempDir(), "d.docx", "A & B", "x\ty")
	zr, err := zip.OpenReader(p)
	require.NoError(t, err)
	defer func() { _ = zr.Close() }()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "word/document.xml")
}

func TestWriteSampleDocuments(t *testing.T) {
	docs := WriteSampleDocuments(t, t.TempDir())
	for _, p := range []string{docs.PNG, docs.JPEG, docs.BlankPNG, docs.PDF, docs.DOCX, docs.XLSX} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Positive(t, info.Size(), p)
	}
}
