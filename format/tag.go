package format

import (
	"fmt"
	"io"

	"github.com/dargueta/arvik"
)

// Tag is the magic string at the start of every archive.
const Tag = "#<arvik4>\n"

// WriteTag writes the magic tag to the writer.
func WriteTag(w io.Writer) error {
	_, err := io.WriteString(w, Tag)
	if err != nil {
		return arvik.ErrWriteFailed.Wrap(err)
	}
	return nil
}

// ReadTag reads exactly len(Tag) bytes and checks that they're the magic tag.
// An empty or short stream is a bad tag too.
func ReadTag(r io.Reader) error {
	buf := make([]byte, len(Tag))
	n, err := io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return arvik.ErrBadTag.WithMessage(
			fmt.Sprintf("archive too short: got %d bytes, need %d", n, len(Tag)))
	} else if err != nil {
		return arvik.ErrReadFailed.Wrap(err)
	}

	if string(buf) != Tag {
		return arvik.ErrBadTag.WithMessage(fmt.Sprintf("expected %q, got %q", Tag, buf))
	}
	return nil
}
