package commands

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/gerunddev/postkit/internal/reformat"
	"github.com/gerunddev/postkit/internal/styles"
)

type reformatOptions struct {
	CommonOptions

	Dir    string `long:"dir" description:"Posts directory to walk recursively"`
	DryRun bool   `long:"dry-run" description:"Show which files would change without writing"`
	Diff   bool   `long:"diff" description:"Print a unified diff for every changed file (also with --dry-run)"`
}

// Reformat normalizes spacing in every post and appends the stylesheet link
func Reformat(args []string) int {
	ctx, cancel := signalContext()
	defer cancel()
	return runReformat(ctx, os.Stdout, args)
}

func runReformat(ctx context.Context, out io.Writer, args []string) int {
	var opts reformatOptions
	if _, help, err := parseArgs(out, "reformat", &opts, args); err != nil {
		return fatal(out, "%v", err)
	} else if help {
		return ExitOK
	}

	s, err := openSession(opts.CommonOptions)
	if err != nil {
		return fatal(out, "%v", err)
	}
	defer s.close()

	dir := s.cfg.Reformat.Dir
	if opts.Dir != "" {
		dir = opts.Dir
	}

	f := reformat.New(s.cfg, s.log)
	f.DryRun = opts.DryRun
	f.Diff = opts.Diff

	batch, err := f.Run(ctx, dir)
	if batch != nil {
		printReformat(out, batch)
	}
	if err != nil {
		return fatal(out, "reformat %s: %v", dir, err)
	}

	if opts.Diff {
		reformat.WriteDiffs(out, batch)
	}
	status(out, styles.Info, "%s", batch)
	return exitCode(len(batch.Errors))
}

func printReformat(out io.Writer, batch *reformat.BatchResult) {
	for _, f := range batch.Files {
		if !f.Changed {
			continue
		}
		if batch.DryRun {
			status(out, styles.Dry, "Would change: %s", f.Path)
			continue
		}
		status(out, styles.OK, "Reformatted: %s (backup: %s)", f.Path, filepath.Base(f.Backup))
	}
	for _, e := range batch.Errors {
		status(out, styles.Fail, "%v", e)
	}
}
