package archive

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dargueta/arvik"
	"github.com/dargueta/arvik/format"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Handler processes the members of an archive during a [Scan]. Only one
// method of one handler is ever running at a time.
type Handler interface {
	// BeginMember is called after a member's header is read. data yields
	// exactly header.Size bytes. The handler may read all, some, or none of
	// it; the scanner skips whatever is left once BeginMember returns. data
	// must not be used after BeginMember returns.
	//
	// Returning an error stops the scan, and the error is returned by Scan.
	BeginMember(header arvik.Header, data io.Reader) error

	// EndMember is called once the member's footer has been read and, if
	// requested, validated. With [CRCFatal] it isn't called for members that
	// fail validation.
	//
	// Returning an error stops the scan, and the error is returned by Scan.
	EndMember(header arvik.Header, footer arvik.Footer, checksum arvik.Checksum) error
}

// HandlerFunc adapts a function to the [Handler] interface. The function is
// used as BeginMember; EndMember does nothing.
type HandlerFunc func(header arvik.Header, data io.Reader) error

func (f HandlerFunc) BeginMember(header arvik.Header, data io.Reader) error {
	return f(header, data)
}

func (f HandlerFunc) EndMember(arvik.Header, arvik.Footer, arvik.Checksum) error {
	return nil
}

type scanState int

const (
	stateStart scanState = iota
	stateTagChecked
	stateReadingHeader
	stateReadingData
	stateReadingFooter
	stateEnd
	stateAborted
)

var scanStateNames = map[scanState]string{
	stateStart:         "start",
	stateTagChecked:    "tag checked",
	stateReadingHeader: "reading header",
	stateReadingData:   "reading data",
	stateReadingFooter: "reading footer",
	stateEnd:           "end",
	stateAborted:       "aborted",
}

func (s scanState) String() string {
	return scanStateNames[s]
}

type scanner struct {
	input   io.Reader
	handler Handler
	opts    ScanOptions
	log     *zerolog.Logger
	state   scanState

	// index is the zero-based position of the member being processed.
	index int
	// lastName is the name of the most recent member with a readable header,
	// used to locate errors when the current header is unreadable.
	lastName    string
	crcFailures *multierror.Error
}

// Scan walks an archive from the beginning, calling the handler for every
// member in order.
//
// The magic tag is checked first. After that, any structural problem (a
// truncated or corrupt header or footer, or data that ends early) stops the
// scan immediately, since the start of the next member can't be found.
//
// If opts.Validate is set, every member's data is checked against its stored
// CRC. What happens on failure depends on opts.CRCPolicy: [CRCFatal] returns
// the error at once, [CRCWarn] logs it, carries on, and returns all such
// failures combined when the scan is otherwise complete.
func Scan(input io.Reader, handler Handler, opts ScanOptions) error {
	s := scanner{
		input:   input,
		handler: handler,
		opts:    opts,
		log:     loggerOrNop(opts.Logger),
		state:   stateStart,
	}
	return s.run()
}

// ScanFile opens the archive at path and scans it with [Scan]. If path is
// empty, standard input is scanned instead. The file is always closed before
// this returns.
func ScanFile(path string, handler Handler, opts ScanOptions) error {
	var input io.Reader = os.Stdin
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return arvik.ErrReadFailed.WithMessage(path).Wrap(err)
		}
		defer file.Close()
		input = file
	}
	return Scan(bufio.NewReader(input), handler, opts)
}

func (s *scanner) run() error {
	if err := format.ReadTag(s.input); err != nil {
		return s.abort(err)
	}
	s.state = stateTagChecked

	for s.index = 0; ; s.index++ {
		s.state = stateReadingHeader
		rawHeader, err := format.ReadHeader(s.input)
		if err == io.EOF {
			s.state = stateEnd
			s.log.Debug().Int("members", s.index).Msg("reached end of archive")
			return s.crcFailures.ErrorOrNil()
		} else if err != nil {
			return s.abort(s.locate(err))
		}

		header, err := rawHeader.Decode()
		if err != nil {
			return s.abort(s.locate(err))
		}
		if fieldErrs := rawHeader.FieldErrors(); fieldErrs != nil {
			s.log.Warn().
				Err(fieldErrs).
				Str("name", header.Name).
				Msg("malformed header fields, using zero")
		}
		s.lastName = header.Name

		s.state = stateReadingData
		computed, err := s.processData(header)
		if err != nil {
			return s.abort(err)
		}

		s.state = stateReadingFooter
		rawFooter, err := format.ReadFooter(s.input)
		if err != nil {
			return s.abort(fmt.Errorf("member %q: %w", header.Name, err))
		}
		footer, err := rawFooter.Decode()
		if err != nil {
			return s.abort(fmt.Errorf("member %q: %w", header.Name, err))
		}

		checksum := s.verify(header, footer, computed)
		if !checksum.OK() {
			if s.opts.CRCPolicy == CRCFatal {
				return s.abort(checksum.Err)
			}
			s.log.Warn().Err(checksum.Err).Str("name", header.Name).Msg("integrity check failed")
			s.crcFailures = multierror.Append(s.crcFailures, checksum.Err)
		}

		if err = s.handler.EndMember(header, footer, checksum); err != nil {
			return s.abort(err)
		}
	}
}

// processData hands the member's data to the handler, then skips whatever the
// handler didn't consume along with the padding byte. It returns the CRC of
// the data.
func (s *scanner) processData(header arvik.Header) (uint32, error) {
	data := newMemberReader(s.input, header.Size)

	handlerErr := s.handler.BeginMember(header, data)
	if handlerErr != nil {
		if data.remaining > 0 && errors.Is(handlerErr, io.ErrUnexpectedEOF) {
			return 0, s.truncatedData(header, data)
		}
		return 0, handlerErr
	}

	if err := data.drain(); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, s.truncatedData(header, data)
		}
		return 0, fmt.Errorf("member %q: %w", header.Name, arvik.ErrReadFailed.Wrap(err))
	}

	if header.Padded() {
		var pad [1]byte
		if _, err := io.ReadFull(s.input, pad[:]); err != nil {
			return 0, fmt.Errorf(
				"member %q: %w", header.Name, arvik.ErrTruncatedFooter.Wrap(io.ErrUnexpectedEOF))
		}
	}
	return data.sum(), nil
}

func (s *scanner) truncatedData(header arvik.Header, data *memberReader) error {
	return arvik.ErrReadFailed.WithMessage(
		fmt.Sprintf(
			"member %q: archive ends after %d of %d data bytes",
			header.Name,
			header.Size-data.remaining,
			header.Size,
		),
	).Wrap(io.ErrUnexpectedEOF)
}

func (s *scanner) verify(header arvik.Header, footer arvik.Footer, computed uint32) arvik.Checksum {
	checksum := arvik.Checksum{Computed: computed}
	if !s.opts.Validate {
		return checksum
	}

	checksum.Validated = true
	if footer.CRCErr != nil {
		checksum.Err = fmt.Errorf("member %q: %w", header.Name, footer.CRCErr)
		return checksum
	}

	checksum.Stored = footer.CRC
	if footer.CRC != computed {
		checksum.Err = arvik.ErrCRCMismatch.WithMessage(
			fmt.Sprintf(
				"member %q: stored %s, computed %s",
				header.Name,
				format.FormatCRC(footer.CRC),
				format.FormatCRC(computed),
			),
		)
	}
	return checksum
}

// locate adds the position of the current member to an error raised before
// its name is known.
func (s *scanner) locate(err error) error {
	if s.index == 0 {
		return fmt.Errorf("member #1: %w", err)
	}
	return fmt.Errorf("member #%d (after %q): %w", s.index+1, s.lastName, err)
}

func (s *scanner) abort(err error) error {
	s.log.Debug().Err(err).Stringer("state", s.state).Int("member", s.index).Msg("scan aborted")
	s.state = stateAborted
	return err
}
