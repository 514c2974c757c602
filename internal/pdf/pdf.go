// Package pdf turns PDF documents into page rasters and plain text.
//
// Rasterization is delegated to a Backend: poppler's pdftoppm (default) or
// MuPDF through go-fitz when built with the `fitz` tag. The Rasterizer
// resolves and validates the input, decrypts protected files into the run's
// scratch space and hands out pages one at a time.
package pdf

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ParsePageRange parses a page range string like "1-5" or "1,3,5".
// The empty string selects every page and returns nil.
func ParsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start < 1 {
			return nil, fmt.Errorf("invalid start page: %d", start)
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil || page < 1 {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}

// SelectPages resolves a page range against a document of total pages. The
// result is sorted, de-duplicated and restricted to existing pages so text is
// always aggregated in document order.
func SelectPages(pageRange string, total int) ([]int, error) {
	requested, err := ParsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}
	if requested == nil {
		all := make([]int, total)
		for i := range all {
			all[i] = i + 1
		}
		return all, nil
	}
	slices.Sort(requested)
	requested = slices.Compact(requested)
	out := requested[:0]
	for _, p := range requested {
		if p <= total {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("page range %q selects no pages of %d", pageRange, total)
	}
	return out, nil
}
