// Package format implements the on-disk encoding of arvik archives: the magic
// tag, fixed-width ASCII fields, and the header and footer records built from
// them.
//
// Nothing in here does any buffering or seeking. Records are read and written
// whole, in a single call, so a short read at a record boundary can be told
// apart from a clean end of archive.
package format
