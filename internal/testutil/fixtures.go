package testutil

import (
	"testing"
)

// SampleDocuments holds one generated input per pipeline lane.
type SampleDocuments struct {
	Dir      string
	PNG      string
	JPEG     string
	PDF      string
	DOCX     string
	XLSX     string
	BlankPNG string
}

// Sample texts rendered into the generated documents.
const (
	SampleImageText = "Hello"
	SamplePage1     = "First page"
	SamplePage2     = "Second page"
)

// WriteSampleDocuments generates a fixture set under dir.
func WriteSampleDocuments(t *testing.T, dir string) SampleDocuments {
	t.Helper()

	return SampleDocuments{
		Dir:      dir,
		PNG:      WriteTextImage(t, dir, "hello.png", SampleImageText, SmallSize),
		JPEG:     WriteTextImage(t, dir, "hello.jpg", SampleImageText, SmallSize),
		BlankPNG: WriteBlankImage(t, dir, "blank.png", SmallSize),
		PDF:      WritePDF(t, dir, "two-pages.pdf", SamplePage1, SamplePage2),
		DOCX:     WriteDOCX(t, dir, "letter.docx", "Dear reader,", "Body text."),
		XLSX: WriteXLSX(t, dir, "people.xlsx", SheetData{
			Name: "People",
			Rows: [][]any{{"Name", "Age"}, {"Ann", 34}, {"Bob", 27}},
		}),
	}
}
