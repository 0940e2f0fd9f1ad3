// =============================================================================
// Ack File Processor - Input Validation
// =============================================================================
//
// This module defines the input validation error taxonomy shared by the CSV
// parser and the transform pipeline. Validation runs before any transform, and
// a validation failure aborts only the file that raised it.
//
// ERROR KINDS:
//   - EmptyFile  : the file has no content, or only whitespace
//   - NoColumns  : the header row yields zero columns
//   - NoDataRows : the header parsed but no data rows follow
//   - ParseError : the content is not readable CSV
//
// =============================================================================

package validation

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/ack-file-processor/internal/recordset"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Kind classifies an input validation failure.
type Kind string

const (
	KindEmptyFile  Kind = "EmptyFile"
	KindNoDataRows Kind = "NoDataRows"
	KindNoColumns  Kind = "NoColumns"
	KindParseError Kind = "ParseError"
)

// Sentinels for errors.Is checks against any *Error of the matching kind.
var (
	ErrEmptyFile  = errors.New("file is empty")
	ErrNoDataRows = errors.New("file has no data rows")
	ErrNoColumns  = errors.New("file has no columns")
	ErrParse      = errors.New("file could not be parsed")
)

// Error represents a single input validation failure for one file.
type Error struct {
	// Kind is the failure class.
	Kind Kind

	// File is the name of the file that failed, when known.
	File string

	// Detail carries extra context such as the parser message.
	Detail string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(string(e.Kind))
	if e.File != "" {
		fmt.Fprintf(&b, " in '%s'", e.File)
	}
	b.WriteString(": ")
	b.WriteString(e.sentinel().Error())
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}

	return b.String()
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindEmptyFile:
		return ErrEmptyFile
	case KindNoDataRows:
		return ErrNoDataRows
	case KindNoColumns:
		return ErrNoColumns
	default:
		return ErrParse
	}
}

// NewError creates a validation error of the given kind.
func NewError(kind Kind, file, detail string, cause error) *Error {
	return &Error{Kind: kind, File: file, Detail: detail, Err: cause}
}

// =============================================================================
// CHECKS
// =============================================================================

// CheckContent rejects raw file content that is empty or whitespace only.
func CheckContent(file string, content []byte) error {
	if len(bytes.TrimSpace(content)) == 0 {
		return NewError(KindEmptyFile, file, "", nil)
	}
	return nil
}

// CheckRecordSet verifies a parsed file has columns and at least one data row.
//
// A nil record set is treated as an empty file. Columns are checked before
// rows so a file with neither reports NoColumns.
func CheckRecordSet(file string, rs *recordset.RecordSet) error {
	if rs == nil {
		return NewError(KindEmptyFile, file, "", nil)
	}
	if rs.Width() == 0 {
		return NewError(KindNoColumns, file, "", nil)
	}
	if rs.Len() == 0 {
		return NewError(KindNoDataRows, file, fmt.Sprintf("%d columns read", rs.Width()), nil)
	}
	return nil
}

// =============================================================================
// REPORTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errs []error) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d error(s):\n\n", len(errs)))

	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// KindOf returns the validation kind of err, or "" if err is not a
// validation error.
func KindOf(err error) Kind {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}
