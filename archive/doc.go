// Package archive creates and scans arvik archives.
//
// [Create] serializes a list of files into an archive. [Scan] walks an
// existing archive from front to back, handing each member to a [Handler]
// along with a reader bounded to that member's data. Neither ever seeks, so
// both work on pipes.
package archive
