package handlers

import (
	"fmt"
	"io"
	"time"

	"github.com/dargueta/arvik"
	"github.com/dargueta/arvik/format"
	"github.com/dustin/go-humanize"
	"github.com/gocarina/gocsv"
)

// ListFormat selects how a [Lister] renders members.
type ListFormat int

const (
	// FormatCompact prints only the name of each member.
	FormatCompact ListFormat = iota
	// FormatVerbose prints permissions, owner, group, size, modification time,
	// CRC and name, in the style of `ar tv`.
	FormatVerbose
	// FormatCSV writes one CSV row per member, with a header row. Nothing is
	// written until [Lister.Close] is called.
	FormatCSV
)

// TimestampLayout is the layout of modification times in verbose listings.
const TimestampLayout = "Jan _2 15:04 2006"

// ListerOptions configures a [Lister].
type ListerOptions struct {
	Format ListFormat
	// HumanSizes prints sizes like "1.2 kB" instead of a byte count. It has no
	// effect on CSV output.
	HumanSizes bool
	// Location is the time zone timestamps are shown in. nil means local time.
	Location *time.Location
	// Selection limits the listing to some members. nil lists everything.
	Selection *Selection
}

// Lister is an [archive.Handler] that prints one line per member. It never
// reads member data.
type Lister struct {
	output io.Writer
	opts   ListerOptions
	rows   []listingRow
}

type listingRow struct {
	Name     string `csv:"name"`
	Mode     string `csv:"mode"`
	UID      int    `csv:"uid"`
	GID      int    `csv:"gid"`
	Size     int64  `csv:"size"`
	Modified string `csv:"modified"`
	CRC      string `csv:"crc"`
	Status   string `csv:"status"`
}

// NewLister creates a lister that writes to output.
func NewLister(output io.Writer, opts ListerOptions) *Lister {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Lister{output: output, opts: opts}
}

func (l *Lister) BeginMember(header arvik.Header, data io.Reader) error {
	return nil
}

// EndMember prints the member. The CRC shown is the one computed from the data
// read, which is the same as the stored one unless validation failed.
func (l *Lister) EndMember(header arvik.Header, footer arvik.Footer, checksum arvik.Checksum) error {
	if !l.opts.Selection.Match(header.Name) {
		return nil
	}

	var err error
	switch l.opts.Format {
	case FormatCompact:
		_, err = fmt.Fprintln(l.output, header.Name)
	case FormatVerbose:
		_, err = fmt.Fprintln(l.output, l.verboseLine(header, footer, checksum))
	case FormatCSV:
		l.rows = append(l.rows, l.csvRow(header, checksum))
	default:
		err = fmt.Errorf("unknown listing format %d", l.opts.Format)
	}

	if err != nil {
		return arvik.ErrWriteFailed.Wrap(err)
	}
	return nil
}

// Close flushes buffered output. It must be called after the scan finishes.
func (l *Lister) Close() error {
	if l.opts.Format != FormatCSV {
		return nil
	}

	rows := l.rows
	l.rows = nil
	if err := gocsv.Marshal(rows, l.output); err != nil {
		return arvik.ErrWriteFailed.Wrap(err)
	}
	return nil
}

func (l *Lister) verboseLine(header arvik.Header, footer arvik.Footer, checksum arvik.Checksum) string {
	var size string
	if l.opts.HumanSizes {
		size = humanize.Bytes(uint64(header.Size))
	} else {
		size = fmt.Sprintf("%d", header.Size)
	}

	line := fmt.Sprintf(
		"%s %d/%d %10s %s %s %s",
		arvik.ModeString(header.Mode),
		header.UID,
		header.GID,
		size,
		header.ModTime.In(l.opts.Location).Format(TimestampLayout),
		format.FormatCRC(checksum.Computed),
		header.Name,
	)

	if checksum.Validated && !checksum.OK() {
		line += fmt.Sprintf(" (CRC FAILED, stored %q)", footer.CRCText)
	}
	return line
}

func (l *Lister) csvRow(header arvik.Header, checksum arvik.Checksum) listingRow {
	status := "unchecked"
	if checksum.Validated {
		if checksum.OK() {
			status = "ok"
		} else {
			status = "failed"
		}
	}

	return listingRow{
		Name:     header.Name,
		Mode:     fmt.Sprintf("%04o", arvik.UnixMode(header.Mode)),
		UID:      header.UID,
		GID:      header.GID,
		Size:     header.Size,
		Modified: header.ModTime.In(l.opts.Location).Format(time.RFC3339),
		CRC:      format.FormatCRC(checksum.Computed),
		Status:   status,
	}
}
