// Package handlers provides the stock [archive.Handler] implementations used by
// the command line tool: an [Extractor] that writes members to disk and a
// [Lister] that prints a table of contents.
package handlers
