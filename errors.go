package arvik

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ArchiveError is the error type returned by every operation in this module. It
// can be refined with extra context without losing the ability to match the
// original sentinel using [errors.Is].
type ArchiveError interface {
	error
	WithMessage(message string) ArchiveError
	Wrap(err error) ArchiveError
}

type baseArvikError string

const rootError = baseArvikError("")

// Structural errors. Once any of these is returned by a scan, the position of
// the next record boundary is unknown and the scan cannot continue.
var ErrBadTag = rootError.WithMessage("Bad archive tag")
var ErrTruncatedHeader = rootError.WithMessage("Truncated member header")
var ErrTruncatedFooter = rootError.WithMessage("Truncated member footer")
var ErrCorruptHeader = rootError.WithMessage("Corrupt member header")
var ErrCorruptFooter = rootError.WithMessage("Corrupt member footer")

// Integrity errors.
var ErrCRCParse = rootError.WithMessage("Unparsable CRC in member footer")
var ErrCRCMismatch = rootError.WithMessage("CRC mismatch")

// I/O errors.
var ErrIOFailed = rootError.WithMessage("Input/output error")
var ErrReadFailed = ErrIOFailed.WithMessage("read failed")
var ErrWriteFailed = ErrIOFailed.WithMessage("write failed")

// Member-level errors. These are recoverable: the offending member is skipped
// and processing continues.
var ErrMemberSkipped = rootError.WithMessage("Member skipped")
var ErrInvalidName = rootError.WithMessage("Invalid member name")
var ErrMemberNotFound = rootError.WithMessage("Not found in archive")

func (e baseArvikError) Error() string {
	return string(e)
}

func (e baseArvikError) WithMessage(message string) ArchiveError {
	return customArchiveError{
		message:       message,
		originalError: e,
	}
}

func (e baseArvikError) Wrap(err error) ArchiveError {
	return customArchiveError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customArchiveError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e customArchiveError) Error() string {
	return e.message
}

func (e customArchiveError) WithMessage(message string) ArchiveError {
	return customArchiveError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customArchiveError) Wrap(err error) ArchiveError {
	return customArchiveError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customArchiveError) Unwrap() error {
	return e.originalError
}
