package archive

import (
	"hash"
	"hash/crc32"
	"io"
)

// memberReader gives handlers access to exactly one member's data. Every byte
// that passes through it is added to the running checksum, whether a handler
// reads it or the scanner skips it.
type memberReader struct {
	source    io.Reader
	remaining int64
	checksum  hash.Hash32
}

func newMemberReader(source io.Reader, size int64) *memberReader {
	return &memberReader{
		source:    source,
		remaining: size,
		checksum:  crc32.NewIEEE(),
	}
}

func (r *memberReader) Read(buffer []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(buffer)) > r.remaining {
		buffer = buffer[:r.remaining]
	}

	n, err := r.source.Read(buffer)
	r.checksum.Write(buffer[:n])
	r.remaining -= int64(n)

	// The archive ending in the middle of a member's data isn't a normal end
	// of file.
	if err == io.EOF && r.remaining > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// drain consumes whatever the handler left unread.
func (r *memberReader) drain() error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func (r *memberReader) sum() uint32 {
	return r.checksum.Sum32()
}
