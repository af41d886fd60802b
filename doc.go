// Package arvik defines the shared types of the arvik archive format.
//
// An arvik archive is a magic tag followed by any number of members. Each
// member is a fixed-size text header, the raw file data, one padding byte if
// the data has an odd length, and a fixed-size text footer carrying the CRC-32
// of the data:
//
//	#<arvik4>\n
//	name/ (30) mtime (12) uid (6) gid (6) mode (8, octal) size (10) $\n
//	<size bytes of data> [\n if size is odd]
//	0x1234abcd $\n
//
// All numeric fields are ASCII, left-justified and padded with spaces. Values
// that don't fit in their field are truncated, as are names longer than 29
// bytes. These are limitations of the format.
//
// There is no index. Readers walk the archive from the start, using the size
// field of each header to find the next record. If a header or footer
// terminator is damaged there is no way to find the next member, so corruption
// is always fatal to a scan.
//
// The encoding lives in package format, creation and scanning in package
// archive, and the stock extract/list handlers in package handlers.
package arvik
