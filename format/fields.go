package format

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Field widths, in bytes.
const (
	NameWidth       = 30
	DateWidth       = 12
	UIDWidth        = 6
	GIDWidth        = 6
	ModeWidth       = 8
	SizeWidth       = 10
	CRCWidth        = 10
	TerminatorWidth = 2
)

// MaxNameLength is the longest name that can be stored. One byte of the name
// field is always taken by the end-of-name marker.
const MaxNameLength = NameWidth - 1

// NameEndMarker terminates the name inside the name field. It lets names
// contain trailing spaces, and can't appear in a name since it's the path
// separator.
const NameEndMarker = '/'

const fieldPadding = ' '

// PutString writes text into a fixed-width field, left-justified and padded
// with spaces. Text longer than the field is silently truncated.
func PutString(field []byte, text string) {
	n := copy(field, text)
	for i := n; i < len(field); i++ {
		field[i] = fieldPadding
	}
}

// PutDecimal writes a signed base-10 integer into a field.
func PutDecimal(field []byte, value int64) {
	PutString(field, strconv.FormatInt(value, 10))
}

// PutOctal writes an unsigned base-8 integer into a field, without any "0"
// prefix.
func PutOctal(field []byte, value uint32) {
	PutString(field, strconv.FormatUint(uint64(value), 8))
}

// FormatCRC renders a checksum the way it's stored in a footer, e.g.
// "0x0000beef".
func FormatCRC(crc uint32) string {
	return fmt.Sprintf("0x%08x", crc)
}

// PutCRC writes a checksum into a field using [FormatCRC].
func PutCRC(field []byte, crc uint32) {
	PutString(field, FormatCRC(crc))
}

// TruncateName returns the part of the name that will actually be stored in
// an archive.
func TruncateName(name string) string {
	if len(name) > MaxNameLength {
		return name[:MaxNameLength]
	}
	return name
}

// PutName writes a member name into the name field followed by the
// end-of-name marker.
func PutName(field []byte, name string) {
	name = TruncateName(name)
	if len(name) > len(field)-1 {
		name = name[:len(field)-1]
	}
	PutString(field, name+string(NameEndMarker))
}

// ParseName returns everything in the field before the first end-of-name
// marker. If there is no marker, trailing padding is removed instead.
func ParseName(field []byte) string {
	end := bytes.IndexByte(field, NameEndMarker)
	if end < 0 {
		return strings.TrimRight(string(field), " \x00")
	}
	return string(field[:end])
}

// FieldText returns the contents of a field with padding removed.
func FieldText(field []byte) string {
	return strings.Trim(string(field), " \x00")
}

// ParseDecimal parses a base-10 field. Leading and trailing padding is ignored;
// anything else that isn't part of the number is an error, as is an empty
// field.
func ParseDecimal(field []byte) (int64, error) {
	text := FieldText(field)
	if text == "" {
		return 0, fmt.Errorf("empty numeric field")
	}
	return strconv.ParseInt(text, 10, 64)
}

// ParseOctal parses an unsigned base-8 field.
func ParseOctal(field []byte) (uint32, error) {
	text := FieldText(field)
	if text == "" {
		return 0, fmt.Errorf("empty octal field")
	}
	value, err := strconv.ParseUint(text, 8, 32)
	return uint32(value), err
}

// ParseCRC parses a checksum field. Like strtol with a base of 0, the radix is
// taken from the prefix, so "0x" is required for hexadecimal.
func ParseCRC(field []byte) (uint32, error) {
	text := FieldText(field)
	if text == "" {
		return 0, fmt.Errorf("empty checksum field")
	}
	value, err := strconv.ParseUint(text, 0, 32)
	return uint32(value), err
}
