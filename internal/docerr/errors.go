// Package docerr defines the stage-scoped error taxonomy shared by every
// document processing lane.
//
// Each failure surfaced by the pipeline is an *Error carrying a closed Code,
// a human-readable message and the underlying cause. Callers classify
// failures with errors.As or CodeOf instead of inspecting message strings.
package docerr

import (
	"errors"
	"fmt"
)

// Code identifies the pipeline stage that failed.
type Code string

const (
	// CodeImageProcessing is raised when image normalization fails.
	CodeImageProcessing Code = "IMAGE_PROCESSING_ERROR"
	// CodeTextExtraction is raised when OCR fails or returns no text.
	CodeTextExtraction Code = "TEXT_EXTRACTION_ERROR"
	// CodePDFProcessing is raised for missing or malformed PDFs and wrapped page failures.
	CodePDFProcessing Code = "PDF_PROCESSING_ERROR"
	// CodeDocumentProcessing is raised when structured extraction fails or yields nothing.
	CodeDocumentProcessing Code = "DOCUMENT_PROCESSING_ERROR"
	// CodeInternal marks an unexpected failure that is a bug rather than bad input.
	CodeInternal Code = "INTERNAL_ERROR"
)

// Codes lists the stage codes in taxonomy order. CodeInternal is not a stage.
var Codes = []Code{CodeImageProcessing, CodeTextExtraction, CodePDFProcessing, CodeDocumentProcessing}

// Valid reports whether c is one of the known codes.
func (c Code) Valid() bool {
	switch c {
	case CodeImageProcessing, CodeTextExtraction, CodePDFProcessing, CodeDocumentProcessing, CodeInternal:
		return true
	}
	return false
}

// Error is a classified pipeline failure.
type Error struct {
	Code    Code
	Op      string // stage operation, e.g. "normalize", "rasterize"
	Page    int    // 1-based page for paged documents, 0 otherwise
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error with no underlying cause.
func New(code Code, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

// Wrap classifies err under code. If err is already an *Error it is returned
// unchanged so stage errors are never double-wrapped.
func Wrap(code Code, op string, err error, message string) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(code Code, op string, err error, format string, args ...any) error {
	return Wrap(code, op, err, fmt.Sprintf(format, args...))
}

// WrapPage classifies err as a failure of one page of a paged document.
// Errors that already carry code propagate unchanged; other classified
// errors are kept as the cause so their stage code stays reachable.
func WrapPage(code Code, op string, page int, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) && de.Code == code {
		return err
	}
	return &Error{
		Code:    code,
		Op:      op,
		Page:    page,
		Message: fmt.Sprintf("Failed to process PDF page %d", page),
		Err:     err,
	}
}

// Internal wraps an unexpected failure. Classified errors pass through.
func Internal(op string, err error) error {
	return Wrap(CodeInternal, op, err, "Internal processing failure")
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// CodeInternal when err is not classified or carries an unknown code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) && de.Code.Valid() {
		return de.Code
	}
	return CodeInternal
}

// IsCode reports whether err's outermost classification is code.
func IsCode(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}

// Message returns the user-facing message of a classified error, falling
// back to err.Error().
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Error()
	}
	return err.Error()
}
