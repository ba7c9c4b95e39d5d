package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a level name to a Level, defaulting to info.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// StdLogger is a runtime.Logger for hosts that run outside Nakama.
type StdLogger struct {
	out    *log.Logger
	level  Level
	fields map[string]interface{}
}

var _ runtime.Logger = (*StdLogger)(nil)

// New writes to w, or stderr when w is nil.
func New(w io.Writer, level Level) *StdLogger {
	if w == nil {
		w = os.Stderr
	}
	return &StdLogger{out: log.New(w, "", log.LstdFlags|log.Lmicroseconds), level: level}
}

func (l *StdLogger) Debug(format string, v ...interface{}) { l.write(LevelDebug, "DEBUG", format, v) }
func (l *StdLogger) Info(format string, v ...interface{})  { l.write(LevelInfo, "INFO", format, v) }
func (l *StdLogger) Warn(format string, v ...interface{})  { l.write(LevelWarn, "WARN", format, v) }
func (l *StdLogger) Error(format string, v ...interface{}) { l.write(LevelError, "ERROR", format, v) }

func (l *StdLogger) WithField(key string, v interface{}) runtime.Logger {
	return l.WithFields(map[string]interface{}{key: v})
}

func (l *StdLogger) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &StdLogger{out: l.out, level: l.level, fields: merged}
}

func (l *StdLogger) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		out[k] = v
	}
	return out
}

func (l *StdLogger) write(level Level, tag, format string, v []interface{}) {
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, v...)
	if len(l.fields) == 0 {
		l.out.Printf("%-5s %s", tag, msg)
		return
	}
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
	}
	l.out.Printf("%-5s %s%s", tag, msg, b.String())
}
