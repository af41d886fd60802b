package arvik

import (
	"fmt"
	"os"
	"time"
)

// Header describes one member of an archive. It's produced fresh for every
// member by a scan, so handlers may keep it around after they return.
type Header struct {
	// Name is the member's file name, without the `/` end-of-name marker used
	// in the on-disk representation. It never contains a directory component.
	Name string
	// ModTime is the last modification time, with one-second resolution.
	ModTime time.Time
	UID     int
	GID     int
	// Mode holds only permission and setuid/setgid/sticky bits. See [UnixMode].
	Mode os.FileMode
	// Size is the exact number of data bytes following the header, not counting
	// the padding byte.
	Size int64
}

// Padded reports whether the member's data is followed by a padding byte.
func (h Header) Padded() bool {
	return h.Size%2 != 0
}

// String gives a short description for use in error messages.
func (h Header) String() string {
	return fmt.Sprintf("%q (%d bytes)", h.Name, h.Size)
}

// Footer is the decoded trailer of a member.
type Footer struct {
	// CRCText is the CRC field exactly as stored, trailing padding removed.
	CRCText string
	// CRC is the parsed checksum. It's only meaningful if CRCErr is nil.
	CRC uint32
	// CRCErr is set if CRCText couldn't be parsed. Whether that's fatal is up
	// to the caller.
	CRCErr error
}

// Checksum is the outcome of integrity checking for a single member.
type Checksum struct {
	// Validated is true if the caller asked for validation. If false, the
	// remaining fields besides Computed are zero.
	Validated bool
	Stored    uint32
	Computed  uint32
	// Err is nil if the checksum matched, and wraps either [ErrCRCParse] or
	// [ErrCRCMismatch] otherwise.
	Err error
}

// OK returns true if no integrity problem was detected. Members that weren't
// validated are always OK.
func (c Checksum) OK() bool {
	return c.Err == nil
}

// PermissionPolicy replaces the process umask when storing or restoring
// permission bits. Bits set in Mask are cleared.
type PermissionPolicy struct {
	Mask os.FileMode
}

// Apply returns the mode with the policy's mask cleared.
func (p PermissionPolicy) Apply(mode os.FileMode) os.FileMode {
	return mode &^ p.Mask
}
