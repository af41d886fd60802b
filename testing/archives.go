package testing

import (
	"bytes"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dargueta/arvik"
	"github.com/dargueta/arvik/archive"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// SourceFile describes a file to create on disk before archiving it.
type SourceFile struct {
	Name string
	Data []byte
	// Mode defaults to 0o644 if zero.
	Mode os.FileMode
	// ModTime defaults to a fixed timestamp if zero.
	ModTime time.Time
}

// DefaultModTime is used for source files that don't set ModTime.
var DefaultModTime = time.Unix(1700000000, 0)

// RandomBytes returns `size` random bytes, or fails the test.
func RandomBytes(t *testing.T, size int) []byte {
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoErrorf(t, err, "failed to generate %d random bytes", size)
	return data
}

// WriteSourceFiles creates the given files in a new temporary directory and
// returns the directory along with the paths of the files, in order.
func WriteSourceFiles(t *testing.T, files ...SourceFile) (string, []string) {
	directory := t.TempDir()
	paths := make([]string, 0, len(files))

	for _, file := range files {
		mode := file.Mode
		if mode == 0 {
			mode = 0o644
		}
		modTime := file.ModTime
		if modTime.IsZero() {
			modTime = DefaultModTime
		}

		path := filepath.Join(directory, file.Name)
		require.NoError(t, os.WriteFile(path, file.Data, mode))
		// WriteFile is subject to the umask.
		require.NoError(t, os.Chmod(path, mode))
		require.NoError(t, os.Chtimes(path, modTime, modTime))
		paths = append(paths, path)
	}
	return directory, paths
}

// CreateArchive builds an archive in memory from the files at the given paths.
// Skipped files fail the test.
func CreateArchive(t *testing.T, paths []string) []byte {
	buffer := bytes.Buffer{}
	report, err := archive.Create(&buffer, paths, archive.CreateOptions{})
	require.NoError(t, err, "failed to create archive")
	require.NoError(t, report.SkippedErr(), "some files were skipped")
	require.Len(t, report.Members, len(paths))
	return buffer.Bytes()
}

// CreateArchiveFromFiles is a shortcut for [WriteSourceFiles] followed by
// [CreateArchive].
func CreateArchiveFromFiles(t *testing.T, files ...SourceFile) []byte {
	_, paths := WriteSourceFiles(t, files...)
	return CreateArchive(t, paths)
}

// LoadArchive returns a stream over a copy of the archive bytes. Writes to the
// stream don't affect `data`, and the stream can't grow.
func LoadArchive(t *testing.T, data []byte) io.ReadWriteSeeker {
	require.NotEmpty(t, data, "archive is empty")
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	return bytesextra.NewReadWriteSeeker(dataCopy)
}

// CollectedMember is everything a [Collector] saw for one member.
type CollectedMember struct {
	Header   arvik.Header
	Data     []byte
	Footer   arvik.Footer
	Checksum arvik.Checksum
	// Ended is true if EndMember was called for this member.
	Ended bool
}

// Collector is an [archive.Handler] that records every member it's given.
type Collector struct {
	Members []CollectedMember
	// SkipData makes the collector ignore member data entirely, like a lister.
	SkipData bool
}

func (c *Collector) BeginMember(header arvik.Header, data io.Reader) error {
	member := CollectedMember{Header: header}
	if !c.SkipData {
		contents, err := io.ReadAll(data)
		if err != nil {
			return err
		}
		member.Data = contents
	}
	c.Members = append(c.Members, member)
	return nil
}

func (c *Collector) EndMember(header arvik.Header, footer arvik.Footer, checksum arvik.Checksum) error {
	last := &c.Members[len(c.Members)-1]
	last.Footer = footer
	last.Checksum = checksum
	last.Ended = true
	return nil
}

// Names returns the names of all collected members, in order.
func (c *Collector) Names() []string {
	names := make([]string, len(c.Members))
	for i, member := range c.Members {
		names[i] = member.Header.Name
	}
	return names
}
