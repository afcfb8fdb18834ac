package logger

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger wraps charm/log for structured logging
type Logger struct {
	*log.Logger
}

// New creates a new logger with the given output
func New(w io.Writer) *Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	return &Logger{Logger: l}
}

// NewWithLevel creates a logger with a specific level
func NewWithLevel(w io.Writer, level log.Level) *Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level,
	})
	return &Logger{Logger: l}
}

// ParseLevel maps a config level name onto a charm/log level, defaulting to info.
func ParseLevel(name string) log.Level {
	level, err := log.ParseLevel(name)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// OpenLogFile opens path for appending log lines. The returned cleanup
// closes the file.
func OpenLogFile(path string) (io.Writer, func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// NewMultiLogger creates a logger that writes to multiple outputs
func NewMultiLogger(level log.Level, writers ...io.Writer) *Logger {
	w := io.MultiWriter(writers...)
	return NewWithLevel(w, level)
}

// Discard returns a logger that discards all output
func Discard() *Logger {
	return New(io.Discard)
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(keyvals...)}
}

// BatchStarted logs the start of a batch run over dir
func (l *Logger) BatchStarted(stage, dir string, units int) {
	l.Info("batch started",
		"stage", stage,
		"dir", dir,
		"units", units)
}

// BatchCompleted logs the completion of a batch run
func (l *Logger) BatchCompleted(stage string, changed int, errors int, duration time.Duration) {
	l.Info("batch completed",
		"stage", stage,
		"changed", changed,
		"errors", errors,
		"duration", duration.Round(time.Millisecond))
}

// ArchiveStarted logs the start of an archive import
func (l *Logger) ArchiveStarted(archive, slug string) {
	l.Info("archive started",
		"archive", archive,
		"slug", slug)
}

// ArchiveImported logs a written post
func (l *Logger) ArchiveImported(archive, post string, images, rewritten int) {
	l.Info("archive imported",
		"archive", archive,
		"post", post,
		"images", images,
		"rewritten", rewritten)
}

// ArchiveSkipped logs an archive that produced no post
func (l *Logger) ArchiveSkipped(archive, reason string) {
	l.Warn("archive skipped",
		"archive", archive,
		"reason", reason)
}

// ImageCopied logs a relocated image asset
func (l *Logger) ImageCopied(source, dest string) {
	l.Debug("image copied",
		"source", source,
		"dest", dest)
}

// UnresolvedImage logs an image reference that matched no embedded asset
func (l *Logger) UnresolvedImage(post, ref string) {
	l.Warn("unresolved image reference",
		"post", post,
		"ref", ref)
}

// DateFixed logs a rewritten date field
func (l *Logger) DateFixed(file, date string) {
	l.Info("date fixed",
		"file", file,
		"date", date)
}

// FileReformatted logs a rewritten post and its backup
func (l *Logger) FileReformatted(file, backup string) {
	l.Info("file reformatted",
		"file", file,
		"backup", backup)
}

// FileUnchanged logs a file that needed no changes
func (l *Logger) FileUnchanged(file string) {
	l.Debug("file unchanged",
		"file", file)
}

// FileError logs an error for a specific file
func (l *Logger) FileError(file string, err error) {
	l.Error("file error",
		"file", file,
		"error", err)
}

// ConfigLoaded logs successful config loading
func (l *Logger) ConfigLoaded(path, postsDir, assetDir string) {
	l.Debug("config loaded",
		"path", path,
		"posts_dir", postsDir,
		"asset_dir", assetDir)
}
