package archive

import (
	"github.com/dargueta/arvik"
	"github.com/rs/zerolog"
)

// DefaultBufferSize is the size of the intermediate buffer used to copy member
// data into an archive.
const DefaultBufferSize = 4096

// CreateOptions controls archive creation. The zero value is usable.
type CreateOptions struct {
	// Permissions is applied to the mode of every member before it's stored.
	Permissions arvik.PermissionPolicy
	// BufferSize is the size of the copy buffer. Zero or less means
	// [DefaultBufferSize].
	BufferSize int
	// Logger receives progress and per-member warnings. nil disables logging.
	Logger *zerolog.Logger
}

func (o *CreateOptions) bufferSize() int {
	if o.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return o.BufferSize
}

// CRCPolicy determines what a scan does when a member fails validation.
type CRCPolicy int

const (
	// CRCWarn logs the failure and continues with the next member. The scan
	// returns all failures together once it reaches the end of the archive.
	CRCWarn CRCPolicy = iota
	// CRCFatal stops the scan at the first failure.
	CRCFatal
)

func (p CRCPolicy) String() string {
	switch p {
	case CRCWarn:
		return "warn"
	case CRCFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ScanOptions controls how an archive is scanned. The zero value scans without
// validating checksums.
type ScanOptions struct {
	// Validate enables checking every member's data against the CRC stored in
	// its footer.
	Validate bool
	// CRCPolicy only has an effect if Validate is set. Unparsable CRCs are
	// treated the same as mismatches.
	CRCPolicy CRCPolicy
	// Logger receives warnings about malformed cosmetic fields and, with
	// [CRCWarn], checksum failures. nil disables logging.
	Logger *zerolog.Logger
}

func loggerOrNop(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return logger
}
