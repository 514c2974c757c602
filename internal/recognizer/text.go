package recognizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanOptions controls text post-processing behavior.
type CleanOptions struct {
	NormalizeForm      string            // "NFC" (default), "NFKC", "NFD", "NFKD", "none" to disable
	RemoveZeroWidth    bool              // remove zero-width spaces/joiners
	RemoveControlChars bool              // remove control characters except \n and \t
	TrimLineEnds       bool              // strip trailing spaces and tabs on every line
	MaxBlankRun        int               // cap consecutive newlines at this count (0 = unlimited)
	Trim               bool              // trim leading/trailing whitespace
	ReplaceMap         map[string]string // replacements applied after normalization
}

// DefaultCleanOptions keeps line structure and removes OCR noise.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{
		NormalizeForm:      "NFC",
		RemoveZeroWidth:    true,
		RemoveControlChars: true,
		TrimLineEnds:       true,
		MaxBlankRun:        3,
		Trim:               true,
	}
}

// PostProcessText applies normalization and cleaning to OCR text.
func PostProcessText(s string, opts CleanOptions) string {
	if s == "" {
		return s
	}

	s = applyNormalization(s, opts.NormalizeForm)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	if opts.RemoveZeroWidth {
		s = removeZeroWidth(s)
	}
	if opts.RemoveControlChars {
		s = removeControlChars(s)
	}
	if len(opts.ReplaceMap) > 0 {
		s = applyReplaceMap(s, opts.ReplaceMap)
	}
	if opts.TrimLineEnds {
		s = trailingSpaceRe.ReplaceAllString(s, "")
	}
	if opts.MaxBlankRun > 0 {
		s = capNewlines(s, opts.MaxBlankRun)
	}
	if opts.Trim {
		s = strings.TrimSpace(s)
	}
	return s
}

func applyNormalization(s, form string) string {
	switch strings.ToUpper(form) {
	case "NFC", "":
		return norm.NFC.String(s)
	case "NFKC":
		return norm.NFKC.String(s)
	case "NFD":
		return norm.NFD.String(s)
	case "NFKD":
		return norm.NFKD.String(s)
	}
	return s
}

func applyReplaceMap(s string, replaceMap map[string]string) string {
	pairs := make([]string, 0, 2*len(replaceMap))
	for k, v := range replaceMap {
		pairs = append(pairs, k, v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

var trailingSpaceRe = regexp.MustCompile(`(?m)[ \t]+$`)

func capNewlines(s string, n int) string {
	var b strings.Builder
	b.Grow(len(s))
	run := 0
	for _, r := range s {
		if r == '\n' {
			run++
			if run > n {
				continue
			}
		} else {
			run = 0
		}
		b.WriteRune(r)
	}
	return b.String()
}

func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// removeZeroWidth removes common zero-width characters used in OCR noise.
func removeZeroWidth(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200B', // ZERO WIDTH SPACE
			'\u200C', // ZERO WIDTH NON-JOINER
			'\u200D', // ZERO WIDTH JOINER
			'\u2060', // WORD JOINER
			'\uFEFF': // ZERO WIDTH NO-BREAK SPACE (BOM)
			return -1
		}
		return r
	}, s)
}
