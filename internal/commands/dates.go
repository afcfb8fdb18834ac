package commands

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/gerunddev/postkit/internal/dates"
	"github.com/gerunddev/postkit/internal/styles"
)

type datesOptions struct {
	CommonOptions

	Dir    string `long:"dir" description:"Directory of posts to rewrite (not recursive)"`
	Date   string `long:"date" description:"Literal value for every date field, e.g. '2025-07-17 12:05:57 -0400'"`
	DryRun bool   `long:"dry-run" description:"Show which files would change without writing"`
}

// FixDates sets the date field of every post in a directory to one value
func FixDates(args []string) int {
	ctx, cancel := signalContext()
	defer cancel()
	return runFixDates(ctx, os.Stdout, args)
}

func runFixDates(ctx context.Context, out io.Writer, args []string) int {
	var opts datesOptions
	if _, help, err := parseArgs(out, "fix-dates", &opts, args); err != nil {
		return fatal(out, "%v", err)
	} else if help {
		return ExitOK
	}

	s, err := openSession(opts.CommonOptions)
	if err != nil {
		return fatal(out, "%v", err)
	}
	defer s.close()

	dir := s.cfg.FixDates.Dir
	if opts.Dir != "" {
		dir = opts.Dir
	}
	target := s.cfg.FixDates.TargetDate
	if opts.Date != "" {
		target = opts.Date
	}

	n := &dates.Normalizer{
		TargetDate: target,
		Extensions: s.cfg.MarkdownExts,
		DryRun:     opts.DryRun,
		Log:        s.log,
	}

	batch, err := n.FixDir(ctx, dir)
	if batch != nil {
		printDates(out, batch, opts.DryRun)
	}
	if err != nil {
		if errors.Is(err, dates.ErrNoTargetDate) {
			return fatal(out, "%v: pass --date or set fix_dates.target_date", err)
		}
		return fatal(out, "fix-dates %s: %v", dir, err)
	}

	status(out, styles.Info, "%d of %d files updated", batch.Changed(), len(batch.Files))
	return exitCode(len(batch.Errors))
}

func printDates(out io.Writer, batch *dates.BatchResult, dryRun bool) {
	for _, f := range batch.Files {
		switch {
		case f.Changed && dryRun:
			status(out, styles.Dry, "Would update: %s", f.Path)
		case f.Changed:
			status(out, styles.OK, "Date updated: %s", f.Path)
		default:
			status(out, styles.Info, "No date: line changed in %s", f.Path)
		}
	}
	for _, e := range batch.Errors {
		status(out, styles.Fail, "%v", e)
	}
}
