package format

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dargueta/arvik"
	"github.com/hashicorp/go-multierror"
	"github.com/noxer/bytewriter"
)

// Terminator ends every header and footer. Anything else in its place means
// the archive is corrupt.
const Terminator = "$\n"

// PadByte follows the data of members with an odd size, so that every footer
// starts on an even offset.
const PadByte = '\n'

// HeaderSize and FooterSize are the sizes of the on-disk records, in bytes.
const (
	HeaderSize = NameWidth + DateWidth + UIDWidth + GIDWidth + ModeWidth + SizeWidth + TerminatorWidth
	FooterSize = CRCWidth + TerminatorWidth
)

// RawHeader is the on-disk representation of a member header. Every field is
// ASCII text; see the package documentation of arvik for the layout.
type RawHeader struct {
	// Name is the member name, followed immediately by [NameEndMarker] and then
	// padded with spaces.
	Name [NameWidth]byte
	// Date is the modification time in seconds since the Unix epoch, base 10.
	Date [DateWidth]byte
	UID  [UIDWidth]byte
	GID  [GIDWidth]byte
	// Mode is the permission bits in octal.
	Mode [ModeWidth]byte
	// Size is the length of the data in bytes, base 10. The padding byte isn't
	// included.
	Size       [SizeWidth]byte
	Terminator [TerminatorWidth]byte
}

// RawFooter is the on-disk representation of a member footer.
type RawFooter struct {
	// CRC is the CRC-32 of the member data formatted as "0x" followed by eight
	// hexadecimal digits.
	CRC        [CRCWidth]byte
	Terminator [TerminatorWidth]byte
}

// NewRawHeader encodes a header. Values too wide for their fields are
// truncated.
func NewRawHeader(header arvik.Header) RawHeader {
	raw := RawHeader{}
	PutName(raw.Name[:], header.Name)
	PutDecimal(raw.Date[:], header.ModTime.Unix())
	PutDecimal(raw.UID[:], int64(header.UID))
	PutDecimal(raw.GID[:], int64(header.GID))
	PutOctal(raw.Mode[:], arvik.UnixMode(header.Mode))
	PutDecimal(raw.Size[:], header.Size)
	copy(raw.Terminator[:], Terminator)
	return raw
}

// NewRawFooter encodes a footer for data with the given checksum.
func NewRawFooter(crc uint32) RawFooter {
	raw := RawFooter{}
	PutCRC(raw.CRC[:], crc)
	copy(raw.Terminator[:], Terminator)
	return raw
}

// MarshalBinary returns the header exactly as it's stored in an archive.
func (raw *RawHeader) MarshalBinary() ([]byte, error) {
	buffer := make([]byte, HeaderSize)
	err := binary.Write(bytewriter.New(buffer), binary.LittleEndian, raw)
	return buffer, err
}

// MarshalBinary returns the footer exactly as it's stored in an archive.
func (raw *RawFooter) MarshalBinary() ([]byte, error) {
	buffer := make([]byte, FooterSize)
	err := binary.Write(bytewriter.New(buffer), binary.LittleEndian, raw)
	return buffer, err
}

// Valid returns true if the header's terminator is intact.
func (raw *RawHeader) Valid() bool {
	return string(raw.Terminator[:]) == Terminator
}

// Valid returns true if the footer's terminator is intact.
func (raw *RawFooter) Valid() bool {
	return string(raw.Terminator[:]) == Terminator
}

// Decode converts the header to its native form.
//
// Only the terminator and size are load-bearing: if either is bad, the header
// can't be used to find the next record and this fails with
// [arvik.ErrCorruptHeader]. Problems with the other fields are tolerated and
// the affected values are left as zero; use [RawHeader.FieldErrors] to find
// out about them.
func (raw *RawHeader) Decode() (arvik.Header, error) {
	name := ParseName(raw.Name[:])
	if !raw.Valid() {
		return arvik.Header{}, arvik.ErrCorruptHeader.WithMessage(
			fmt.Sprintf("bad terminator %q after member %q", raw.Terminator[:], name))
	}

	size, err := ParseDecimal(raw.Size[:])
	if err != nil {
		return arvik.Header{}, arvik.ErrCorruptHeader.WithMessage(
			fmt.Sprintf("member %q has invalid size %q", name, FieldText(raw.Size[:])))
	}
	if size < 0 {
		return arvik.Header{}, arvik.ErrCorruptHeader.WithMessage(
			fmt.Sprintf("member %q has negative size %d", name, size))
	}

	mtime, _ := ParseDecimal(raw.Date[:])
	uid, _ := ParseDecimal(raw.UID[:])
	gid, _ := ParseDecimal(raw.GID[:])
	mode, _ := ParseOctal(raw.Mode[:])

	return arvik.Header{
		Name:    name,
		ModTime: time.Unix(mtime, 0),
		UID:     int(uid),
		GID:     int(gid),
		Mode:    arvik.FileMode(mode & arvik.ModeMask),
		Size:    size,
	}, nil
}

// FieldErrors returns all parse errors for the cosmetic fields of the header
// (date, owner, group, mode), or nil if there are none.
func (raw *RawHeader) FieldErrors() error {
	var result *multierror.Error

	check := func(fieldName string, field []byte, err error) {
		if err != nil {
			result = multierror.Append(
				result, fmt.Errorf("bad %s field %q: %w", fieldName, FieldText(field), err))
		}
	}

	_, err := ParseDecimal(raw.Date[:])
	check("date", raw.Date[:], err)
	_, err = ParseDecimal(raw.UID[:])
	check("uid", raw.UID[:], err)
	_, err = ParseDecimal(raw.GID[:])
	check("gid", raw.GID[:], err)
	_, err = ParseOctal(raw.Mode[:])
	check("mode", raw.Mode[:], err)

	return result.ErrorOrNil()
}

// Decode converts the footer to its native form. A CRC field that can't be
// parsed is reported in [arvik.Footer.CRCErr] rather than as an error, since
// it only matters if the caller is validating checksums.
func (raw *RawFooter) Decode() (arvik.Footer, error) {
	if !raw.Valid() {
		return arvik.Footer{}, arvik.ErrCorruptFooter.WithMessage(
			fmt.Sprintf("bad terminator %q", raw.Terminator[:]))
	}

	footer := arvik.Footer{CRCText: FieldText(raw.CRC[:])}
	crc, err := ParseCRC(raw.CRC[:])
	if err != nil {
		footer.CRCErr = arvik.ErrCRCParse.Wrap(err)
	} else {
		footer.CRC = crc
	}
	return footer, nil
}

// ReadHeader reads one header record.
//
// It returns [io.EOF] if the stream ends exactly at the start of the record,
// which is how the end of an archive looks. A partial record fails with
// [arvik.ErrTruncatedHeader]. The terminator is checked; other fields aren't.
func ReadHeader(r io.Reader) (RawHeader, error) {
	raw := RawHeader{}
	err := binary.Read(r, binary.LittleEndian, &raw)
	if err == io.EOF {
		return raw, io.EOF
	} else if errors.Is(err, io.ErrUnexpectedEOF) {
		return raw, arvik.ErrTruncatedHeader.Wrap(err)
	} else if err != nil {
		return raw, arvik.ErrReadFailed.Wrap(err)
	}

	if !raw.Valid() {
		return raw, arvik.ErrCorruptHeader.WithMessage(
			fmt.Sprintf(
				"bad terminator %q after member %q",
				raw.Terminator[:],
				ParseName(raw.Name[:]),
			),
		)
	}
	return raw, nil
}

// ReadFooter reads one footer record. Unlike [ReadHeader], hitting the end of
// the stream before any bytes are read is an error.
func ReadFooter(r io.Reader) (RawFooter, error) {
	raw := RawFooter{}
	err := binary.Read(r, binary.LittleEndian, &raw)
	if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
		return raw, arvik.ErrTruncatedFooter.Wrap(io.ErrUnexpectedEOF)
	} else if err != nil {
		return raw, arvik.ErrReadFailed.Wrap(err)
	}

	if !raw.Valid() {
		return raw, arvik.ErrCorruptFooter.WithMessage(
			fmt.Sprintf("bad terminator %q", raw.Terminator[:]))
	}
	return raw, nil
}

// WriteHeader encodes a header and writes it in a single call.
func WriteHeader(w io.Writer, header arvik.Header) error {
	raw := NewRawHeader(header)
	return writeRecord(w, &raw)
}

// WriteFooter encodes a footer and writes it in a single call.
func WriteFooter(w io.Writer, crc uint32) error {
	raw := NewRawFooter(crc)
	return writeRecord(w, &raw)
}

type recordMarshaler interface {
	MarshalBinary() ([]byte, error)
}

func writeRecord(w io.Writer, record recordMarshaler) error {
	data, err := record.MarshalBinary()
	if err != nil {
		return err
	}

	n, err := w.Write(data)
	if err != nil {
		return arvik.ErrWriteFailed.Wrap(err)
	} else if n != len(data) {
		return arvik.ErrWriteFailed.Wrap(io.ErrShortWrite)
	}
	return nil
}
