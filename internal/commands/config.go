package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gerunddev/postkit/internal/config"
	"github.com/gerunddev/postkit/internal/styles"
)

type configOptions struct {
	Config string `long:"config" description:"Config file to use instead of the default location"`
	Init   bool   `long:"init" description:"Write the default configuration if no file exists yet"`
}

// Config prints the effective configuration
func Config(args []string) int {
	return runConfig(os.Stdout, args)
}

func runConfig(out io.Writer, args []string) int {
	var opts configOptions
	if _, help, err := parseArgs(out, "config", &opts, args); err != nil {
		return fatal(out, "%v", err)
	} else if help {
		return ExitOK
	}

	if opts.Config != "" {
		path := opts.Config
		config.ConfigPath = func() string { return path }
	}
	path := config.ConfigPath()

	if opts.Init {
		if _, err := os.Stat(path); err == nil {
			status(out, styles.Warn, "Config already exists: %s", path)
			return ExitOK
		} else if !errors.Is(err, os.ErrNotExist) {
			return fatal(out, "%v", err)
		}
		if err := config.DefaultConfig().Save(); err != nil {
			return fatal(out, "%v", err)
		}
		status(out, styles.OK, "Wrote default config: %s", path)
		return ExitOK
	}

	cfg, err := config.Load()
	if err != nil {
		return fatal(out, "%v", err)
	}
	data, err := cfg.Marshal()
	if err != nil {
		return fatal(out, "%v", err)
	}

	source := path
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		source = path + " (not found, using defaults)"
	}
	fmt.Fprintln(out, styles.TitleStyle.Render("# "+source))
	fmt.Fprint(out, string(data))
	return ExitOK
}
