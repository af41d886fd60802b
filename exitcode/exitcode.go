// Package exitcode defines the process exit statuses of the arvik command and
// maps errors onto them.
package exitcode

import (
	"errors"

	"github.com/dargueta/arvik"
)

// Code is a process exit status.
type Code int

const (
	OK Code = iota
	Generic
	InvalidOption
	MembersSkipped
	BadTag
	ReadFailed
	WriteFailed
	NoAction
	DataCorrupt
	NotFound
)

var messagesByCode = map[Code]string{
	OK:             "Success",
	Generic:        "Unspecified error",
	InvalidOption:  "Invalid command line option",
	MembersSkipped: "Some members were not archived",
	BadTag:         "Bad archive tag",
	ReadFailed:     "Read failed",
	WriteFailed:    "Write failed",
	NoAction:       "No action specified",
	DataCorrupt:    "Archive data is corrupt",
	NotFound:       "Member not found in archive",
}

func (c Code) String() string {
	message, ok := messagesByCode[c]
	if !ok {
		return "Unknown exit code"
	}
	return message
}

// The first entry an error matches determines its exit code, so the more
// specific errors have to come first.
var codesByError = []struct {
	err  error
	code Code
}{
	{arvik.ErrBadTag, BadTag},
	{arvik.ErrCorruptHeader, DataCorrupt},
	{arvik.ErrCorruptFooter, DataCorrupt},
	{arvik.ErrCRCMismatch, DataCorrupt},
	{arvik.ErrCRCParse, DataCorrupt},
	{arvik.ErrTruncatedHeader, ReadFailed},
	{arvik.ErrTruncatedFooter, ReadFailed},
	{arvik.ErrReadFailed, ReadFailed},
	{arvik.ErrWriteFailed, WriteFailed},
	{arvik.ErrMemberNotFound, NotFound},
	{arvik.ErrMemberSkipped, MembersSkipped},
}

// FromError returns the exit code for an error. nil maps to [OK], and errors
// this module doesn't define map to [Generic].
func FromError(err error) Code {
	if err == nil {
		return OK
	}
	for _, entry := range codesByError {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return Generic
}
