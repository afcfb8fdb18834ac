package commands

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/gerunddev/postkit/internal/importer"
	"github.com/gerunddev/postkit/internal/styles"
)

type importOptions struct {
	CommonOptions

	Date     string `long:"date" description:"Post date (YYYY-MM-DD) used in front matter and file names"`
	Category string `long:"category" description:"Category written to front matter"`
	Strict   bool   `long:"strict" description:"Report image references that match no embedded image"`

	Args struct {
		Dir string `positional-arg-name:"dir" description:"Directory containing zip archives"`
	} `positional-args:"yes" required:"yes"`
}

// Import turns every zip archive in a directory into a post
func Import(args []string) int {
	ctx, cancel := signalContext()
	defer cancel()
	return runImport(ctx, os.Stdout, args)
}

func runImport(ctx context.Context, out io.Writer, args []string) int {
	var opts importOptions
	if _, help, err := parseArgs(out, "import", &opts, args); err != nil {
		return fatal(out, "%v", err)
	} else if help {
		return ExitOK
	}

	s, err := openSession(opts.CommonOptions)
	if err != nil {
		return fatal(out, "%v", err)
	}
	defer s.close()

	iopts := importer.OptionsFromConfig(s.cfg)
	iopts.RunID = s.runID
	if opts.Date != "" {
		iopts.Date = opts.Date
	}
	if opts.Category != "" {
		iopts.Category = opts.Category
	}
	if opts.Strict {
		iopts.Strict = true
	}

	imp := importer.New(iopts, nil, s.log)
	batch, err := imp.ImportDir(ctx, opts.Args.Dir)
	if batch != nil {
		printImport(out, batch)
	}
	if err != nil {
		return fatal(out, "import %s: %v", opts.Args.Dir, err)
	}

	status(out, styles.Info, "%s", batch)
	return exitCode(len(batch.Errors))
}

func printImport(out io.Writer, batch *importer.BatchResult) {
	for _, r := range batch.Results {
		name := filepath.Base(r.Archive)
		if r.Skipped {
			status(out, styles.Warn, "Skipped %s: %s", name, r.Reason)
			continue
		}
		status(out, styles.OK, "Imported %s -> %s (%d images, %d references rewritten)",
			name, r.PostPath, r.Images, r.Rewritten)
		if r.Flagged {
			for _, ref := range r.Unresolved {
				status(out, styles.Warn, "  unresolved image in %s: %s", name, ref)
			}
		}
	}
	for _, e := range batch.Errors {
		status(out, styles.Fail, "%s: %v", filepath.Base(e.Archive), e.Err)
	}
}
