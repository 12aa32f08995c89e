package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is a printf-style wrapper over charmbracelet/log that satisfies
// app.Logger.
type Logger struct {
	l *log.Logger
}

// New builds a logger writing to w (stdout when nil) at the given level.
func New(prefix, level string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	l := log.New(w)
	l.SetPrefix(prefix)
	l.SetReportTimestamp(true)
	l.SetTimeFormat(time.DateTime)
	l.SetReportCaller(true)
	l.SetCallerOffset(1)
	l.SetLevel(parseLevel(level))
	return &Logger{l: l}
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	}
	return log.InfoLevel
}

// With returns a logger that adds key/value to every line.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{l: l.l.With(key, value)}
}

func (l *Logger) Debug(format string, v ...interface{}) { l.l.Debugf(format, v...) }
func (l *Logger) Info(format string, v ...interface{})  { l.l.Infof(format, v...) }
func (l *Logger) Warn(format string, v ...interface{})  { l.l.Warnf(format, v...) }
func (l *Logger) Error(format string, v ...interface{}) { l.l.Errorf(format, v...) }
func (l *Logger) Fatal(format string, v ...interface{}) { l.l.Fatalf(format, v...) }
