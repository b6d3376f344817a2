package internal

import (
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Logger is a [slog.Logger] that tags every record
// with the kind and name of the component emitting it.
type Logger struct {
	*slog.Logger

	kind string
	name string
}

var logLevel = new(slog.LevelVar)

// SetLogLevel sets the level of every [Logger].
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

func newHandler() slog.Handler {
	var w io.Writer
	noColor := false

	if runtime.GOOS == "windows" {
		w = colorable.NewColorableStdout()
	} else {
		w = os.Stderr
		noColor = !isatty.IsTerminal(os.Stderr.Fd())
	}

	return tint.NewHandler(w, &tint.Options{
		Level:   logLevel,
		NoColor: noColor,
	})
}

// NewLogger returns a new [Logger] writing to stderr.
func NewLogger(kind, name string) *Logger {
	return NewLoggerWithHandler(kind, name, newHandler())
}

// NewLoggerWithHandler returns a new [Logger] using the given handler.
func NewLoggerWithHandler(kind, name string, handler slog.Handler) *Logger {
	return &Logger{
		Logger: slog.New(handler),

		kind: kind,
		name: name,
	}
}

func (l *Logger) getInfo() slog.Attr {
	return slog.Group("info", slog.String("kind", l.kind), slog.String("name", l.name))
}

func (l *Logger) getArgs(args ...any) []any {
	return append([]any{l.getInfo()}, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, l.getArgs(args...)...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.Logger.Info(msg, l.getArgs(args...)...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, l.getArgs(args...)...)
}

func (l *Logger) Error(msg string, err error, args ...any) {
	tmpArgs := append([]any{tint.Err(err)}, args...)
	l.Logger.Error(msg, l.getArgs(tmpArgs...)...)
}
