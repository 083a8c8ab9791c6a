// Package logging configures the process-wide logrus logger and carries
// request-scoped log entries through context.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is re-exported so callers don't need to import logrus for simple logging.
type Fields = logrus.Fields

// Options controls logger construction.
type Options struct {
	Level   string // debug, info, warn, error (default info)
	File    string // optional rotating log file
	NoColor bool
}

type ctxKey struct{}

var (
	logger = logrus.New()
	once   sync.Once
)

// Setup configures the shared logger. Only the first call has an effect.
func Setup(opts Options) *logrus.Logger {
	once.Do(func() {
		level, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        opts.NoColor,
			TimestampFormat: "2006-01-02 15:04:05",
			HideKeys:        false,
			FieldsOrder:     []string{"request_id", "tag", "angle"},
			CallerFirst:     true,
			CustomCallerFormatter: func(f *runtime.Frame) string {
				s := strings.Split(f.Function, ".")
				funcName := s[len(s)-1]
				return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
			},
		})

		writers := []io.Writer{os.Stderr}
		if opts.File != "" {
			writers = append(writers, &lumberjack.Logger{
				Filename:   opts.File,
				LocalTime:  true,
				Compress:   true,
				MaxSize:    100,
				MaxAge:     7,
				MaxBackups: 3,
			})
		}
		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(level >= logrus.DebugLevel)
	})
	return logger
}

// Logger returns the shared logger.
func Logger() *logrus.Logger {
	return logger
}

// WithContext stores a log entry in ctx.
func WithContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// FromContext returns the entry stored in ctx, or a bare entry on the shared logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && entry != nil {
			return entry
		}
	}
	return logrus.NewEntry(logger)
}
