package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/gerunddev/postkit/internal/config"
	"github.com/gerunddev/postkit/internal/logger"
	"github.com/gerunddev/postkit/internal/styles"
	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
)

// Process exit codes shared by every subcommand.
const (
	ExitOK      = 0
	ExitFatal   = 1
	ExitPartial = 2
)

// CommonOptions are accepted by every pipeline subcommand.
type CommonOptions struct {
	Config  string `long:"config" description:"Config file to use instead of the default location"`
	Verbose bool   `short:"v" long:"verbose" description:"Log at debug level"`
}

// session is what a subcommand needs once flags and config are settled.
type session struct {
	cfg     *config.Config
	log     *logger.Logger
	runID   string
	cleanup func()
}

func (s *session) close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// parseArgs fills opts from args. help is true when -h/--help was given and
// the usage text has already been written to out.
func parseArgs(out io.Writer, name string, opts interface{}, args []string) (rest []string, help bool, err error) {
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "postkit " + name

	rest, err = parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(out, flagsErr.Message)
			return nil, true, nil
		}
		return nil, false, err
	}
	return rest, false, nil
}

// openSession loads the configuration and builds the logger. Logs go to
// stderr and, when log_file is set, to that file as well.
func openSession(common CommonOptions) (*session, error) {
	if common.Config != "" {
		path := common.Config
		config.ConfigPath = func() string { return path }
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := logger.ParseLevel(cfg.LogLevel)
	if common.Verbose {
		level = log.DebugLevel
	}

	writers := []io.Writer{os.Stderr}
	var cleanup func()
	if cfg.LogFile != "" {
		w, closeFile, err := logger.OpenLogFile(cfg.LogFile)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, w)
		cleanup = closeFile
	}

	runID := uuid.New().String()[:8]
	l := logger.NewMultiLogger(level, writers...).With("run", runID)
	l.ConfigLoaded(config.ConfigPath(), cfg.PostsDir, cfg.AssetDir)

	return &session{cfg: cfg, log: l, runID: runID, cleanup: cleanup}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM so a batch stops between units.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func fatal(out io.Writer, format string, args ...interface{}) int {
	fmt.Fprintln(out, styles.Fail+" "+fmt.Sprintf(format, args...))
	return ExitFatal
}

func status(out io.Writer, prefix, format string, args ...interface{}) {
	fmt.Fprintln(out, prefix+" "+fmt.Sprintf(format, args...))
}

// exitCode maps a finished batch onto the process exit code.
func exitCode(failures int) int {
	if failures > 0 {
		return ExitPartial
	}
	return ExitOK
}
