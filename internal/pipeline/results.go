package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Output formats understood by Format.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ToJSON serializes a result to pretty JSON.
func ToJSON(res Result) (string, error) {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainText returns the extracted text.
func ToPlainText(res Result) string { return res.Text }

// ToCSV exports the result as CSV. Structured results with sheets get one
// line per cell (sheet, row, column, value); other results get a single
// summary line.
func ToCSV(res Result) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if len(res.Sheets) > 0 {
		_ = w.Write([]string{"sheet", "row", "column", "value"})
		for _, s := range res.Sheets {
			for i, row := range s.Rows {
				cols := make([]string, 0, len(row))
				for k := range row {
					cols = append(cols, k)
				}
				slices.Sort(cols)
				for _, c := range cols {
					_ = w.Write([]string{s.Name, strconv.Itoa(i + 1), c, row[c]})
				}
			}
		}
	} else {
		_ = w.Write([]string{"lane", "media_type", "pages", "confidence", "text"})
		_ = w.Write([]string{string(res.Lane), string(res.MediaType), strconv.Itoa(res.PageCount), FormatConfidence(res.Confidence), res.Text})
	}
	w.Flush()
	return buf.String(), w.Error()
}

// Format renders res in the named format.
func Format(res Result, format string) (string, error) {
	switch format {
	case "", FormatText:
		return ToPlainText(res), nil
	case FormatJSON:
		return ToJSON(res)
	case FormatCSV:
		return ToCSV(res)
	}
	return "", fmt.Errorf("unsupported output format %q", format)
}

// FormatConfidence renders an optional confidence with three decimals.
func FormatConfidence(c *float64) string {
	if c == nil {
		return ""
	}
	return strconv.FormatFloat(*c, 'f', 3, 64)
}
