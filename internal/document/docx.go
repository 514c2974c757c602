package document

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MeKo-Tech/doctext/internal/docerr"
)

const docxBodyPart = "word/document.xml"

// wordprocessingML namespace
const wNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

func extractDOCX(path string) (Result, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Result{}, docerr.Wrap(docerr.CodeDocumentProcessing, "docx", err, "Failed to extract text from DOCX")
	}
	defer func() { _ = zr.Close() }()

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return Result{}, docerr.Wrap(docerr.CodeDocumentProcessing, "docx",
			fmt.Errorf("missing %s", docxBodyPart), "Failed to extract text from DOCX")
	}

	rc, err := body.Open()
	if err != nil {
		return Result{}, docerr.Wrap(docerr.CodeDocumentProcessing, "docx", err, "Failed to extract text from DOCX")
	}
	defer func() { _ = rc.Close() }()

	paragraphs, err := readParagraphs(rc)
	if err != nil {
		return Result{}, docerr.Wrap(docerr.CodeDocumentProcessing, "docx", err, "Failed to extract text from DOCX")
	}

	text := strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
	if text == "" {
		return Result{}, docerr.New(docerr.CodeDocumentProcessing, "docx", "No text found in document")
	}
	return Result{Text: text}, nil
}

// readParagraphs streams the body part and returns the raw text of every
// w:p element. Runs are concatenated, w:tab becomes a tab and w:br / w:cr
// a newline.
func readParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		cur        strings.Builder
		inText     bool
		depth      int // nesting of w:p, text boxes can nest paragraphs
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				if depth > 0 && cur.Len() > 0 {
					cur.WriteByte('\n')
				}
				depth++
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Space != wNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				depth--
				if depth == 0 {
					paragraphs = append(paragraphs, cur.String())
					cur.Reset()
				}
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return paragraphs, nil
}
