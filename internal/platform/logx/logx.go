// internal/platform/logx/logx.go
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// EnvLevel is the environment variable read by New.
const EnvLevel = "RECONBUS_LOG_LEVEL"

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Err(err error, kv ...any)
	With(kv ...any) Logger
	SetLevel(lvl Level)
}

// sink is shared by a logger and every child created with With, so that
// SetLevel on the root applies to all plugin loggers of a scan.
type sink struct {
	mu  sync.Mutex
	lvl Level
	lg  *log.Logger
}

type simpleLogger struct {
	out   *sink
	scope []string // fixed key=value pairs
}

func New() Logger {
	return NewWithWriter(os.Stderr, ParseLevel(os.Getenv(EnvLevel)))
}

// NewWithLevel creates a logger with a specific log level.
func NewWithLevel(lvl Level) Logger {
	return NewWithWriter(os.Stderr, lvl)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, lvl Level) Logger {
	return &simpleLogger{out: &sink{lvl: lvl, lg: log.New(w, "", 0)}}
}

// NewSilent creates a logger that only outputs errors (used while the UI owns the terminal).
func NewSilent() Logger {
	return NewWithLevel(LevelError)
}

// NewDiscard creates a logger that drops everything.
func NewDiscard() Logger {
	return NewWithWriter(io.Discard, LevelError)
}

func (s *simpleLogger) With(kv ...any) Logger {
	return &simpleLogger{
		out:   s.out,
		scope: append(append([]string{}, s.scope...), kvPairs(kv...)...),
	}
}

func (s *simpleLogger) SetLevel(lvl Level) {
	s.out.mu.Lock()
	defer s.out.mu.Unlock()
	s.out.lvl = lvl
}

func (s *simpleLogger) Debug(msg string, kv ...any) { s.log(LevelDebug, "DBG", msg, kv...) }
func (s *simpleLogger) Info(msg string, kv ...any)  { s.log(LevelInfo, "INF", msg, kv...) }
func (s *simpleLogger) Warn(msg string, kv ...any)  { s.log(LevelWarn, "WRN", msg, kv...) }
func (s *simpleLogger) Err(err error, kv ...any) {
	if err == nil {
		return
	}
	kv = append([]any{"error", err.Error()}, kv...)
	s.log(LevelError, "ERR", "", kv...)
}

func (s *simpleLogger) log(l Level, tag, msg string, kv ...any) {
	s.out.mu.Lock()
	defer s.out.mu.Unlock()
	if l < s.out.lvl {
		return
	}
	fields := append([]string{}, s.scope...)
	fields = append(fields, kvPairs(kv...)...)

	var b strings.Builder
	b.WriteString(time.Now().Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(tag)
	if strings.TrimSpace(msg) != "" {
		b.WriteByte(' ')
		b.WriteString(msg)
	}
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f)
	}
	s.out.lg.Println(b.String())
}

func kvPairs(kv ...any) []string {
	out := make([]string, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		var v any = "(missing)"
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		out = append(out, fmt.Sprintf("%v=%s", kv[i], quote(fmt.Sprint(v))))
	}
	return out
}

// quote wraps values containing spaces so log lines stay splittable on whitespace.
func quote(v string) string {
	if strings.ContainsAny(v, " \t\n\"") {
		return fmt.Sprintf("%q", v)
	}
	return v
}

// ParseLevel maps a level name to a Level. Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "dbg":
		return LevelDebug
	case "info", "inf", "":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "err", "error":
		return LevelError
	default:
		return LevelInfo
	}
}
