package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/doctext/internal/docerr"
	"github.com/MeKo-Tech/doctext/internal/pipeline"
)

type jsonError struct {
	Code    docerr.Code `json:"code"`
	Message string      `json:"message"`
}

type jsonDocument struct {
	File   string           `json:"file"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  *jsonError       `json:"error,omitempty"`
}

// formatBatchResults formats the batch results in the specified format.
func formatBatchResults(files []FileResult, format string) (string, error) {
	switch format {
	case pipeline.FormatJSON:
		return formatJSON(files)
	case pipeline.FormatCSV:
		return formatCSV(files)
	case "", pipeline.FormatText:
		return formatText(files), nil
	}
	return "", fmt.Errorf("unsupported output format %q", format)
}

func formatJSON(files []FileResult) (string, error) {
	out := struct {
		Documents []jsonDocument `json:"documents"`
	}{Documents: make([]jsonDocument, len(files))}

	for i, f := range files {
		doc := jsonDocument{File: f.Path, Result: f.Result}
		if f.Err != nil {
			doc.Error = &jsonError{Code: docerr.CodeOf(f.Err), Message: docerr.Message(f.Err)}
		}
		out.Documents[i] = doc
	}

	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

func formatCSV(files []FileResult) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	_ = writer.Write([]string{"file", "status", "lane", "pages", "confidence", "error_code", "text"})

	for _, f := range files {
		if f.Err != nil {
			_ = writer.Write([]string{f.Path, "error", "", "", "", string(docerr.CodeOf(f.Err)), docerr.Message(f.Err)})
			continue
		}
		res := f.Result
		_ = writer.Write([]string{
			f.Path,
			"ok",
			string(res.Lane),
			strconv.Itoa(res.PageCount),
			pipeline.FormatConfidence(res.Confidence),
			"",
			res.Text,
		})
	}
	writer.Flush()
	return output.String(), writer.Error()
}

func formatText(files []FileResult) string {
	var output strings.Builder
	for i, f := range files {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s\n", f.Path)
		if f.Err != nil {
			fmt.Fprintf(&output, "error: %s: %s\n", docerr.CodeOf(f.Err), docerr.Message(f.Err))
			continue
		}
		output.WriteString(f.Result.Text)
		output.WriteString("\n")
	}
	return output.String()
}
