package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dargueta/arvik/exitcode"
	"github.com/dargueta/arvik/format"
	at "github.com/dargueta/arvik/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// runApp runs the command line tool in-process and returns its exit code along
// with everything written to stdout and stderr.
func runApp(t *testing.T, args ...string) (exitcode.Code, string, string) {
	stdout := bytes.Buffer{}
	stderr := bytes.Buffer{}

	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"arvik"}, args...))
	if err == nil {
		return exitcode.OK, stdout.String(), stderr.String()
	}

	var exitErr cli.ExitCoder
	require.Truef(t, errors.As(err, &exitErr), "error doesn't set an exit code: %v", err)
	stderr.WriteString(err.Error())
	return exitcode.Code(exitErr.ExitCode()), stdout.String(), stderr.String()
}

func TestCreateListExtract(t *testing.T) {
	directory, paths := at.WriteSourceFiles(
		t,
		at.SourceFile{Name: "a.txt", Data: []byte("abc")},
		at.SourceFile{Name: "b.txt", Data: []byte("abcd")},
	)
	archivePath := filepath.Join(directory, "test.arvik")

	code, stdout, stderr := runApp(t, append([]string{"-cvf", archivePath}, paths...)...)
	require.Equal(t, exitcode.OK, code, stderr)
	assert.Equal(t, "a - a.txt\na - b.txt\n", stdout)

	code, stdout, stderr = runApp(t, "-t", "-f", archivePath)
	require.Equal(t, exitcode.OK, code, stderr)
	assert.Equal(t, "a.txt\nb.txt\n", stdout)

	code, stdout, stderr = runApp(t, "-tvV", "-f", archivePath)
	require.Equal(t, exitcode.OK, code, stderr)
	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "0x352441c2")

	outputDirectory := t.TempDir()
	code, stdout, stderr = runApp(t, "-xvV", "--strict", "-f", archivePath, "-C", outputDirectory)
	require.Equal(t, exitcode.OK, code, stderr)
	assert.Equal(t, "x - a.txt\nx - b.txt\n", stdout)

	contents, err := os.ReadFile(filepath.Join(outputDirectory, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(contents))
}

func TestNoAction(t *testing.T) {
	code, _, stderr := runApp(t, "-v")
	assert.Equal(t, exitcode.NoAction, code)
	assert.Contains(t, stderr, "no action specified")
}

func TestConflictingActions(t *testing.T) {
	code, _, _ := runApp(t, "-c", "-x")
	assert.Equal(t, exitcode.InvalidOption, code)
}

func TestInvalidOption(t *testing.T) {
	code, _, _ := runApp(t, "--bogus")
	assert.Equal(t, exitcode.InvalidOption, code)
}

func TestBadTagExitCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-an-archive")
	require.NoError(t, os.WriteFile(path, []byte("!<arch>\nsomething else"), 0o644))

	code, _, stderr := runApp(t, "-t", "-f", path)
	assert.Equal(t, exitcode.BadTag, code)
	assert.Contains(t, stderr, "Bad archive tag")
}

func TestCRCFailureExitCode(t *testing.T) {
	data := at.CreateArchiveFromFiles(
		t,
		at.SourceFile{Name: "a.txt", Data: []byte("abc")},
		at.SourceFile{Name: "b.txt", Data: []byte("abcd")},
	)
	data[len(format.Tag)+format.HeaderSize] = 'Z'
	path := filepath.Join(t.TempDir(), "damaged.arvik")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	// Without validation the damage goes unnoticed.
	code, _, stderr := runApp(t, "-t", "-f", path)
	assert.Equal(t, exitcode.OK, code, stderr)

	// Warning mode lists everything but still fails.
	code, stdout, _ := runApp(t, "-tV", "-f", path)
	assert.Equal(t, exitcode.DataCorrupt, code)
	assert.Equal(t, "a.txt\nb.txt\n", stdout)

	// Strict mode stops at the first bad member.
	code, stdout, _ = runApp(t, "-tV", "--strict", "-f", path)
	assert.Equal(t, exitcode.DataCorrupt, code)
	assert.Empty(t, stdout)
}

func TestCreateSkippedExitCode(t *testing.T) {
	directory, paths := at.WriteSourceFiles(t, at.SourceFile{Name: "real", Data: []byte("1")})
	archivePath := filepath.Join(directory, "out.arvik")

	code, _, stderr := runApp(
		t, "-c", "-f", archivePath, paths[0], filepath.Join(directory, "imaginary"))
	assert.Equal(t, exitcode.MembersSkipped, code)
	assert.Contains(t, stderr, "imaginary")

	code, stdout, _ := runApp(t, "-t", "-f", archivePath)
	assert.Equal(t, exitcode.OK, code)
	assert.Equal(t, "real\n", stdout)
}

func TestListMissingMember(t *testing.T) {
	directory, paths := at.WriteSourceFiles(t, at.SourceFile{Name: "here", Data: []byte("1")})
	archivePath := filepath.Join(directory, "out.arvik")
	code, _, _ := runApp(t, append([]string{"-c", "-f", archivePath}, paths...)...)
	require.Equal(t, exitcode.OK, code)

	code, stdout, stderr := runApp(t, "-t", "-f", archivePath, "here", "gone")
	assert.Equal(t, exitcode.NotFound, code)
	assert.Equal(t, "here\n", stdout)
	assert.Contains(t, stderr, `"gone"`)
}

func TestParseUmask(t *testing.T) {
	policy, err := parseUmask("022")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o022), policy.Mask)

	_, err = parseUmask("99")
	assert.Error(t, err)
}
