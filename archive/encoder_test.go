package archive_test

import (
	"bytes"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dargueta/arvik"
	"github.com/dargueta/arvik/archive"
	"github.com/dargueta/arvik/format"
	at "github.com/dargueta/arvik/testing"
	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate__TwoFileLayout(t *testing.T) {
	_, paths := at.WriteSourceFiles(
		t,
		at.SourceFile{Name: "a.txt", Data: []byte("abc")},
		at.SourceFile{Name: "b.txt", Data: []byte("abcd"), Mode: 0o600},
	)

	buffer := bytes.Buffer{}
	report, err := archive.Create(&buffer, paths, archive.CreateOptions{})
	require.NoError(t, err)
	assert.NoError(t, report.SkippedErr())
	require.Len(t, report.Members, 2)

	data := buffer.Bytes()
	require.Len(
		t,
		data,
		len(format.Tag)+2*(format.HeaderSize+format.FooterSize)+4+4,
		"archive size is wrong",
	)
	assert.Equal(t, format.Tag, string(data[:len(format.Tag)]))

	offset := len(format.Tag)
	firstHeader := string(data[offset : offset+format.HeaderSize])
	assert.True(t, strings.HasPrefix(firstHeader, "a.txt/ "), "first header: %q", firstHeader)
	assert.Contains(t, firstHeader, "644     3         $\n")

	offset += format.HeaderSize
	assert.Equal(t, "abc\n", string(data[offset:offset+4]), "data or padding byte is wrong")

	offset += 4
	assert.Equal(t, "0x352441c2$\n", string(data[offset:offset+format.FooterSize]))

	offset += format.FooterSize
	secondHeader := string(data[offset : offset+format.HeaderSize])
	assert.True(t, strings.HasPrefix(secondHeader, "b.txt/ "), "second header: %q", secondHeader)
	assert.Contains(t, secondHeader, "600     4         $\n")

	offset += format.HeaderSize
	assert.Equal(t, "abcd", string(data[offset:offset+4]), "even data must not be padded")

	offset += 4
	expectedFooter := format.FormatCRC(crc32.ChecksumIEEE([]byte("abcd"))) + "$\n"
	assert.Equal(t, expectedFooter, string(data[offset:]))
}

func TestCreate__HeaderMetadata(t *testing.T) {
	modTime := time.Unix(1234567890, 0)
	_, paths := at.WriteSourceFiles(
		t, at.SourceFile{Name: "run.sh", Data: []byte("#!/bin/sh\n"), Mode: 0o755, ModTime: modTime},
	)

	report, err := archive.Create(&bytes.Buffer{}, paths, archive.CreateOptions{})
	require.NoError(t, err)
	require.Len(t, report.Members, 1)

	header := report.Members[0]
	assert.Equal(t, "run.sh", header.Name)
	assert.EqualValues(t, 10, header.Size)
	assert.Equal(t, os.FileMode(0o755), header.Mode)
	assert.True(t, modTime.Equal(header.ModTime), "expected %s, got %s", modTime, header.ModTime)
}

func TestCreate__PermissionPolicy(t *testing.T) {
	_, paths := at.WriteSourceFiles(t, at.SourceFile{Name: "x", Data: []byte("1"), Mode: 0o777})

	report, err := archive.Create(
		&bytes.Buffer{},
		paths,
		archive.CreateOptions{Permissions: arvik.PermissionPolicy{Mask: 0o022}},
	)
	require.NoError(t, err)
	require.Len(t, report.Members, 1)
	assert.Equal(t, os.FileMode(0o755), report.Members[0].Mode)
}

func TestCreate__SkipsUnreadableSources(t *testing.T) {
	directory, paths := at.WriteSourceFiles(
		t,
		at.SourceFile{Name: "first", Data: []byte("first")},
		at.SourceFile{Name: "last", Data: []byte("last")},
	)
	missing := filepath.Join(directory, "does-not-exist")
	subdirectory := filepath.Join(directory, "subdir")
	require.NoError(t, os.Mkdir(subdirectory, 0o755))

	sources := []string{paths[0], missing, subdirectory, paths[1]}

	buffer := bytes.Buffer{}
	report, err := archive.Create(&buffer, sources, archive.CreateOptions{})
	require.NoError(t, err, "skipped members must not abort creation")

	require.NotNil(t, report.Skipped)
	assert.Len(t, report.Skipped.Errors, 2)
	assert.ErrorIs(t, report.SkippedErr(), arvik.ErrMemberSkipped)
	assert.ErrorIs(t, report.SkippedErr(), os.ErrNotExist)
	assert.Contains(t, report.SkippedErr().Error(), "does-not-exist")

	collector := at.Collector{}
	require.NoError(t, archive.Scan(&buffer, &collector, archive.ScanOptions{Validate: true}))
	assert.Equal(t, []string{"first", "last"}, collector.Names())
}

func TestCreate__ShortWriteIsFatal(t *testing.T) {
	_, paths := at.WriteSourceFiles(
		t,
		at.SourceFile{Name: "big", Data: bytes.Repeat([]byte{'z'}, 500)},
		at.SourceFile{Name: "never", Data: []byte("never written")},
	)

	output := make([]byte, 200)
	report, err := archive.Create(bytewriter.New(output), paths, archive.CreateOptions{})
	assert.ErrorIs(t, err, arvik.ErrWriteFailed)
	assert.Contains(t, err.Error(), `"big"`, "error should name the member")
	assert.Empty(t, report.Members)
}

func TestCreate__SmallBufferSize(t *testing.T) {
	content := at.RandomBytes(t, 1001)
	_, paths := at.WriteSourceFiles(t, at.SourceFile{Name: "random.bin", Data: content})

	buffer := bytes.Buffer{}
	_, err := archive.Create(&buffer, paths, archive.CreateOptions{BufferSize: 7})
	require.NoError(t, err)

	collector := at.Collector{}
	require.NoError(t, archive.Scan(&buffer, &collector, archive.ScanOptions{Validate: true}))
	require.Len(t, collector.Members, 1)
	assert.Equal(t, content, collector.Members[0].Data)
}

func TestCreate__NameTruncation(t *testing.T) {
	longName := strings.Repeat("long-name-", 5) + ".txt"
	require.Greater(t, len(longName), format.MaxNameLength)

	data := at.CreateArchiveFromFiles(t, at.SourceFile{Name: longName, Data: []byte("payload")})

	collector := at.Collector{}
	require.NoError(t, archive.Scan(bytes.NewReader(data), &collector, archive.ScanOptions{}))
	require.Len(t, collector.Members, 1)
	assert.Equal(t, longName[:format.MaxNameLength], collector.Members[0].Header.Name)
	assert.Equal(t, []byte("payload"), collector.Members[0].Data)
}

func TestCreateFile(t *testing.T) {
	directory, paths := at.WriteSourceFiles(
		t,
		at.SourceFile{Name: "one", Data: []byte("1")},
		at.SourceFile{Name: "two", Data: []byte("22")},
	)
	archivePath := filepath.Join(directory, "out.arvik")

	// Write garbage first to make sure the file gets truncated.
	require.NoError(t, os.WriteFile(archivePath, bytes.Repeat([]byte{'!'}, 4096), 0o644))

	// The archive is listed as one of its own members and must be left out.
	report, err := archive.CreateFile(
		archivePath, append(paths, archivePath), archive.CreateOptions{})
	require.NoError(t, err)
	assert.Len(t, report.Members, 2)
	require.NotNil(t, report.Skipped)
	assert.Len(t, report.Skipped.Errors, 1)

	collector := at.Collector{}
	err = archive.ScanFile(archivePath, &collector, archive.ScanOptions{Validate: true, CRCPolicy: archive.CRCFatal})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, collector.Names())
}

func TestCreateFile__BadDestination(t *testing.T) {
	destination := filepath.Join(t.TempDir(), "missing", "out.arvik")
	_, err := archive.CreateFile(destination, nil, archive.CreateOptions{})
	assert.ErrorIs(t, err, arvik.ErrWriteFailed)
}

func TestCreate__EmptyArchive(t *testing.T) {
	buffer := bytes.Buffer{}
	report, err := archive.Create(&buffer, nil, archive.CreateOptions{})
	require.NoError(t, err)
	assert.Empty(t, report.Members)
	assert.Equal(t, format.Tag, buffer.String())

	collector := at.Collector{}
	require.NoError(t, archive.Scan(&buffer, &collector, archive.ScanOptions{Validate: true}))
	assert.Empty(t, collector.Members)
}
