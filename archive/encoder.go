package archive

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dargueta/arvik"
	"github.com/dargueta/arvik/format"
	"github.com/hashicorp/go-multierror"
)

// CreateReport describes the outcome of a successful [Create].
type CreateReport struct {
	// Members holds the headers of all members written, in order.
	Members []arvik.Header
	// Skipped collects one error for every source that couldn't be archived.
	// It's nil if nothing was skipped.
	Skipped *multierror.Error
}

// SkippedErr returns the errors in Skipped as a single error, or nil.
func (r *CreateReport) SkippedErr() error {
	return r.Skipped.ErrorOrNil()
}

// Create writes an archive containing the files at the given paths, in order,
// to output.
//
// Members are named after the base name of their path. Sources that can't be
// opened or examined, or that aren't regular files, are logged, recorded in
// the report and skipped. Failing to read a source after its header has been
// written, or failing to write to output at all, leaves the archive malformed;
// these errors stop creation immediately and are returned.
func Create(output io.Writer, paths []string, opts CreateOptions) (CreateReport, error) {
	return create(output, paths, opts, nil)
}

// CreateFile creates or truncates the archive file at destination and writes
// the given paths into it, as with [Create]. If destination is empty the
// archive is written to standard output.
//
// If the archive file itself appears in paths it's skipped.
func CreateFile(destination string, paths []string, opts CreateOptions) (report CreateReport, err error) {
	var output io.Writer = os.Stdout
	var destInfo os.FileInfo

	if destination != "" {
		file, openErr := os.OpenFile(
			destination,
			os.O_WRONLY|os.O_CREATE|os.O_TRUNC,
			opts.Permissions.Apply(0o666),
		)
		if openErr != nil {
			return report, arvik.ErrWriteFailed.WithMessage(destination).Wrap(openErr)
		}
		defer func() {
			closeErr := file.Close()
			if err == nil && closeErr != nil {
				err = arvik.ErrWriteFailed.WithMessage(destination).Wrap(closeErr)
			}
		}()

		destInfo, _ = file.Stat()
		output = file
	}

	buffered := bufio.NewWriter(output)
	report, err = create(buffered, paths, opts, destInfo)
	if err != nil {
		return report, err
	}

	if flushErr := buffered.Flush(); flushErr != nil {
		return report, arvik.ErrWriteFailed.Wrap(flushErr)
	}
	return report, nil
}

func create(
	output io.Writer,
	paths []string,
	opts CreateOptions,
	exclude os.FileInfo,
) (CreateReport, error) {
	log := loggerOrNop(opts.Logger)
	report := CreateReport{}

	if err := format.WriteTag(output); err != nil {
		return report, err
	}

	buffer := make([]byte, opts.bufferSize())
	for _, path := range paths {
		header, source, err := openSource(path, opts.Permissions, exclude)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping member")
			report.Skipped = multierror.Append(report.Skipped, err)
			continue
		}

		err = writeMember(output, header, source, buffer)
		source.Close()
		if err != nil {
			return report, fmt.Errorf("member %q: %w", header.Name, err)
		}

		log.Debug().
			Str("name", header.Name).
			Int64("size", header.Size).
			Msg("added member")
		report.Members = append(report.Members, header)
	}
	return report, nil
}

// openSource opens a file to be archived and builds its header. On success the
// caller owns the returned file.
func openSource(
	path string,
	permissions arvik.PermissionPolicy,
	exclude os.FileInfo,
) (arvik.Header, *os.File, error) {
	name := filepath.Base(path)
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, format.NameEndMarker) {
		return arvik.Header{}, nil, arvik.ErrMemberSkipped.WithMessage(path).Wrap(
			arvik.ErrInvalidName.WithMessage(fmt.Sprintf("can't derive a member name from %q", path)))
	}

	file, err := os.Open(path)
	if err != nil {
		return arvik.Header{}, nil, arvik.ErrMemberSkipped.WithMessage(path).Wrap(err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return arvik.Header{}, nil, arvik.ErrMemberSkipped.WithMessage(path).Wrap(err)
	}

	if !info.Mode().IsRegular() {
		file.Close()
		return arvik.Header{}, nil, arvik.ErrMemberSkipped.WithMessage(path).Wrap(
			errors.New("not a regular file"))
	}

	if exclude != nil && os.SameFile(info, exclude) {
		file.Close()
		return arvik.Header{}, nil, arvik.ErrMemberSkipped.WithMessage(path).Wrap(
			errors.New("file is the archive being created"))
	}

	uid, gid := ownerOf(info)
	header := arvik.Header{
		Name:    format.TruncateName(name),
		ModTime: info.ModTime().Truncate(time.Second),
		UID:     uid,
		GID:     gid,
		Mode:    permissions.Apply(arvik.FileMode(arvik.UnixMode(info.Mode()))),
		Size:    info.Size(),
	}
	return header, file, nil
}

// writeMember writes a header, exactly header.Size bytes from source, the pad
// byte if needed, and the footer.
func writeMember(output io.Writer, header arvik.Header, source io.Reader, buffer []byte) error {
	if err := format.WriteHeader(output, header); err != nil {
		return err
	}

	checksum := crc32.NewIEEE()
	remaining := header.Size

	for remaining > 0 {
		chunk := buffer
		if int64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}

		nRead, err := io.ReadFull(source, chunk)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return arvik.ErrReadFailed.WithMessage(
				fmt.Sprintf(
					"file shrank while being archived: expected %d bytes, got %d",
					header.Size,
					header.Size-remaining+int64(nRead),
				),
			)
		} else if err != nil {
			return arvik.ErrReadFailed.Wrap(err)
		}

		checksum.Write(chunk)
		if err = writeFull(output, chunk); err != nil {
			return err
		}
		remaining -= int64(nRead)
	}

	if header.Padded() {
		if err := writeFull(output, []byte{format.PadByte}); err != nil {
			return err
		}
	}
	return format.WriteFooter(output, checksum.Sum32())
}

func writeFull(output io.Writer, data []byte) error {
	n, err := output.Write(data)
	if err != nil {
		return arvik.ErrWriteFailed.Wrap(err)
	} else if n != len(data) {
		return arvik.ErrWriteFailed.Wrap(io.ErrShortWrite)
	}
	return nil
}
