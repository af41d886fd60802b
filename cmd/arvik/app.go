package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dargueta/arvik"
	"github.com/dargueta/arvik/archive"
	"github.com/dargueta/arvik/exitcode"
	"github.com/dargueta/arvik/handlers"
	"github.com/dargueta/arvik/logging"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "arvik",
		Usage: "Create, list and extract arvik archives",
		UsageText: "arvik -c [-v] [-f ARCHIVE] FILE...\n" +
			"   arvik -t [-v] [-V] [-f ARCHIVE] [MEMBER...]\n" +
			"   arvik -x [-v] [-V] [-f ARCHIVE] [-C DIR] [MEMBER...]",
		Description: "Without -f, archives are written to standard output and read from standard input.",

		UseShortOptionHandling: true,
		HideHelpCommand:        true,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "create", Aliases: []string{"c"}, Usage: "create an archive"},
			&cli.BoolFlag{Name: "list", Aliases: []string{"t"}, Usage: "print the table of contents"},
			&cli.BoolFlag{Name: "extract", Aliases: []string{"x"}, Usage: "extract members"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "archive `PATH`"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "verbose output"},
			&cli.BoolFlag{Name: "validate", Aliases: []string{"V"}, Usage: "validate member CRCs"},
			&cli.BoolFlag{
				Name:    "strict",
				Usage:   "stop at the first CRC failure instead of warning",
				EnvVars: []string{"ARVIK_STRICT"},
			},
			&cli.BoolFlag{Name: "csv", Usage: "list members as CSV"},
			&cli.BoolFlag{Name: "human", Usage: "show sizes in human-readable units"},
			&cli.StringFlag{Name: "directory", Aliases: []string{"C"}, Usage: "extract into `DIR`"},
			&cli.BoolFlag{Name: "preserve-owner", Usage: "restore owner and group on extraction"},
			&cli.StringFlag{
				Name:    "umask",
				Usage:   "octal `MASK` of permission bits to clear when storing or restoring modes",
				EnvVars: []string{"ARVIK_UMASK"},
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "write diagnostics to a rotated log file at `PATH`",
				EnvVars: []string{"ARVIK_LOG_FILE"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "diagnostic `LEVEL` (debug, info, warn, error)",
				EnvVars: []string{"ARVIK_LOG_LEVEL"},
			},
		},
		Action: run,
		OnUsageError: func(ctx *cli.Context, err error, isSubcommand bool) error {
			return cli.Exit(fmt.Sprintf("arvik: %s", err.Error()), int(exitcode.InvalidOption))
		},
	}
}

// fail converts an error into one that sets the exit status.
func fail(err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit(fmt.Sprintf("arvik: %s", err.Error()), int(exitcode.FromError(err)))
}

func run(ctx *cli.Context) error {
	actions := 0
	for _, name := range []string{"create", "list", "extract"} {
		if ctx.Bool(name) {
			actions++
		}
	}
	if actions == 0 {
		return cli.Exit("arvik: no action specified; use -c, -t or -x", int(exitcode.NoAction))
	} else if actions > 1 {
		return cli.Exit("arvik: only one of -c, -t and -x may be given", int(exitcode.InvalidOption))
	}

	logger, closer, err := logging.New(
		logging.Options{
			Level:   ctx.String("log-level"),
			File:    ctx.String("log-file"),
			Console: ctx.App.ErrWriter,
		},
	)
	if err != nil {
		return cli.Exit(fmt.Sprintf("arvik: %s", err.Error()), int(exitcode.InvalidOption))
	}
	defer closer.Close()

	permissions, err := parseUmask(ctx.String("umask"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("arvik: %s", err.Error()), int(exitcode.InvalidOption))
	}

	switch {
	case ctx.Bool("create"):
		return createArchive(ctx, &logger, permissions)
	case ctx.Bool("list"):
		return listArchive(ctx, &logger)
	default:
		return extractArchive(ctx, &logger, permissions)
	}
}

func parseUmask(text string) (arvik.PermissionPolicy, error) {
	if text == "" {
		return arvik.PermissionPolicy{}, nil
	}
	mask, err := strconv.ParseUint(text, 8, 32)
	if err != nil || mask > arvik.ModeMask {
		return arvik.PermissionPolicy{}, fmt.Errorf("invalid umask %q", text)
	}
	return arvik.PermissionPolicy{Mask: arvik.FileMode(uint32(mask))}, nil
}

func scanOptions(ctx *cli.Context, logger *zerolog.Logger) archive.ScanOptions {
	policy := archive.CRCWarn
	if ctx.Bool("strict") {
		policy = archive.CRCFatal
	}
	return archive.ScanOptions{
		Validate:  ctx.Bool("validate"),
		CRCPolicy: policy,
		Logger:    logger,
	}
}

func createArchive(ctx *cli.Context, logger *zerolog.Logger, permissions arvik.PermissionPolicy) error {
	archivePath := ctx.String("file")
	report, err := archive.CreateFile(
		archivePath,
		ctx.Args().Slice(),
		archive.CreateOptions{Permissions: permissions, Logger: logger},
	)

	if ctx.Bool("verbose") {
		// Don't mix progress into the archive itself.
		var progress io.Writer = ctx.App.Writer
		if archivePath == "" {
			progress = ctx.App.ErrWriter
		}
		for _, member := range report.Members {
			fmt.Fprintf(progress, "a - %s\n", member.Name)
		}
	}

	if err != nil {
		return fail(err)
	}
	return fail(report.SkippedErr())
}

func listArchive(ctx *cli.Context, logger *zerolog.Logger) error {
	listFormat := handlers.FormatCompact
	if ctx.Bool("csv") {
		listFormat = handlers.FormatCSV
	} else if ctx.Bool("verbose") {
		listFormat = handlers.FormatVerbose
	}

	selection := handlers.NewSelection(ctx.Args().Slice())
	lister := handlers.NewLister(
		ctx.App.Writer,
		handlers.ListerOptions{
			Format:     listFormat,
			HumanSizes: ctx.Bool("human"),
			Selection:  selection,
		},
	)

	err := archive.ScanFile(ctx.String("file"), lister, scanOptions(ctx, logger))
	if closeErr := lister.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = selection.Err()
	}
	return fail(err)
}

func extractArchive(ctx *cli.Context, logger *zerolog.Logger, permissions arvik.PermissionPolicy) error {
	selection := handlers.NewSelection(ctx.Args().Slice())
	opts := handlers.ExtractorOptions{
		Directory:     ctx.String("directory"),
		Permissions:   permissions,
		PreserveOwner: ctx.Bool("preserve-owner"),
		Selection:     selection,
		Logger:        logger,
	}
	if ctx.Bool("verbose") {
		opts.Progress = ctx.App.Writer
	}

	extractor := handlers.NewExtractor(opts)
	err := archive.ScanFile(ctx.String("file"), extractor, scanOptions(ctx, logger))
	if err == nil {
		err = extractor.Err()
	}
	if err == nil {
		err = selection.Err()
	}
	return fail(err)
}
