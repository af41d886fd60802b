package handlers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dargueta/arvik"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// ExtractorOptions configures an [Extractor]. The zero value extracts every
// member into the current directory, restoring permissions exactly.
type ExtractorOptions struct {
	// Directory is where members are written. Empty means the current
	// directory.
	Directory string
	// Permissions is applied to each member's stored mode before it's set on
	// the extracted file.
	Permissions arvik.PermissionPolicy
	// PreserveOwner makes the extractor try to restore the owner and group.
	// Failures are logged but otherwise ignored.
	PreserveOwner bool
	// Progress, if not nil, receives an "x - NAME" line for every file
	// extracted.
	Progress io.Writer
	// Selection limits extraction to some members. nil extracts everything.
	Selection *Selection
	Logger    *zerolog.Logger
}

// Extractor is an [archive.Handler] that writes members to files.
//
// Failing to create or write one file doesn't stop the scan: the failure is
// logged, the rest of the member's data is skipped, and extraction continues
// with the next member. All such failures are available from [Extractor.Err]
// afterwards.
type Extractor struct {
	opts      ExtractorOptions
	log       *zerolog.Logger
	failures  *multierror.Error
	extracted []string
}

// NewExtractor creates an extractor with the given options.
func NewExtractor(opts ExtractorOptions) *Extractor {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Extractor{opts: opts, log: logger}
}

// Err returns all per-file failures encountered so far, or nil.
func (e *Extractor) Err() error {
	return e.failures.ErrorOrNil()
}

// Extracted returns the paths of all files written so far.
func (e *Extractor) Extracted() []string {
	return e.extracted
}

// OutputPath returns the path a member with the given name is extracted to.
func (e *Extractor) OutputPath(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/`+string(os.PathSeparator)) {
		return "", arvik.ErrInvalidName.WithMessage(fmt.Sprintf("%q", name))
	}
	return filepath.Join(e.opts.Directory, name), nil
}

func (e *Extractor) BeginMember(header arvik.Header, data io.Reader) error {
	if !e.opts.Selection.Match(header.Name) {
		return nil
	}

	path, err := e.OutputPath(header.Name)
	if err != nil {
		e.fail(header, err)
		return nil
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		e.fail(header, arvik.ErrWriteFailed.WithMessage(path).Wrap(err))
		return nil
	}

	output := trackingWriter{writer: file}
	_, copyErr := io.Copy(&output, data)
	closeErr := file.Close()

	if output.err != nil {
		e.fail(header, arvik.ErrWriteFailed.WithMessage(path).Wrap(output.err))
		return nil
	} else if copyErr != nil {
		// Reading the archive failed. This isn't specific to the member, so the
		// scan can't go on.
		return copyErr
	} else if closeErr != nil {
		e.fail(header, arvik.ErrWriteFailed.WithMessage(path).Wrap(closeErr))
		return nil
	}

	e.restoreMetadata(path, header)
	e.extracted = append(e.extracted, path)
	if e.opts.Progress != nil {
		fmt.Fprintf(e.opts.Progress, "x - %s\n", header.Name)
	}
	e.log.Debug().Str("name", header.Name).Str("path", path).Msg("extracted member")
	return nil
}

func (e *Extractor) EndMember(header arvik.Header, footer arvik.Footer, checksum arvik.Checksum) error {
	if checksum.Validated && !checksum.OK() && e.opts.Selection.Match(header.Name) {
		e.log.Warn().
			Str("name", header.Name).
			Msg("extracted file failed its integrity check and may be damaged")
	}
	return nil
}

// restoreMetadata sets the mode and modification time, and optionally the
// owner, of an extracted file. The mode is set explicitly so the result doesn't
// depend on the process umask.
func (e *Extractor) restoreMetadata(path string, header arvik.Header) {
	if err := os.Chmod(path, e.opts.Permissions.Apply(header.Mode)); err != nil {
		e.fail(header, arvik.ErrIOFailed.WithMessage(path).Wrap(err))
	}
	if err := os.Chtimes(path, header.ModTime, header.ModTime); err != nil {
		e.fail(header, arvik.ErrIOFailed.WithMessage(path).Wrap(err))
	}
	if e.opts.PreserveOwner {
		if err := os.Chown(path, header.UID, header.GID); err != nil {
			e.log.Warn().Err(err).Str("path", path).Msg("couldn't restore owner")
		}
	}
}

func (e *Extractor) fail(header arvik.Header, err error) {
	err = fmt.Errorf("member %q: %w", header.Name, err)
	e.log.Error().Err(err).Msg("couldn't extract member")
	e.failures = multierror.Append(e.failures, err)
}

// trackingWriter remembers write errors so they can be told apart from read
// errors after an [io.Copy].
type trackingWriter struct {
	writer io.Writer
	err    error
}

func (w *trackingWriter) Write(data []byte) (int, error) {
	n, err := w.writer.Write(data)
	if err != nil {
		w.err = err
	}
	return n, err
}
