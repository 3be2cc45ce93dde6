// Package logging provides structured, level-gated logging for taskd.
//
// It wraps the standard log package rather than pulling in a third-party
// logging framework: the server is a single process writing to a single
// stream, and the only features worth paying for are levels, key-value
// context, and a process-wide default instance that every subsystem
// (message bus, scheduler, task runner, status reader) can reach without
// threading a *Logger through every call.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Config holds logging configuration.
type Config struct {
	Level LogLevel
	// Format is "text" (default) or "json".
	Format string
	Output io.Writer
	// Sync forces every write through a single mutex; the logger always
	// does this today, but the flag exists so callers migrating from the
	// teacher's async-buffered variants have something to flip.
	Sync bool
	// NoColor is accepted for interface compatibility with terminal-aware
	// callers; this logger never emits ANSI color codes.
	NoColor bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// Logger wraps stdlib log with level support and key-value context.
type Logger struct {
	logger *log.Logger
	level  LogLevel
	format string
	ctx    []any // flattened key-value pairs inherited by With* children
	mu     *sync.Mutex
}

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

// NewLogger creates a new logger.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	format := config.Format
	if format == "" {
		format = "text"
	}
	return &Logger{
		logger: log.New(output, "", log.LstdFlags),
		level:  config.Level,
		format: format,
		mu:     &sync.Mutex{},
	}
}

// Default returns the default logger, creating it if necessary.
func Default() *Logger {
	defaultMu.RLock()
	if defaultLogger != nil {
		defer defaultMu.RUnlock()
		return defaultLogger
	}
	defaultMu.RUnlock()

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// WithTask returns a child logger that annotates every message with the
// submitting task's id.
func (l *Logger) WithTask(id uint32) *Logger {
	return l.with("task_id", id)
}

// WithSlot returns a child logger that annotates every message with a
// scheduler slot index.
func (l *Logger) WithSlot(slot int) *Logger {
	return l.with("slot", slot)
}

// WithRequest returns a child logger annotated with a task id and the
// request/operation name that produced it (e.g. "dispatch", "mark_done").
func (l *Logger) WithRequest(id uint32, op string) *Logger {
	return l.with("task_id", id, "op", op)
}

// WithError returns a child logger that carries an error in its context;
// every subsequent message includes it even if the call site doesn't pass
// it explicitly.
func (l *Logger) WithError(err error) *Logger {
	return l.with("error", err)
}

func (l *Logger) with(kv ...any) *Logger {
	child := &Logger{
		logger: l.logger,
		level:  l.level,
		format: l.format,
		mu:     l.mu,
	}
	child.ctx = append(append([]any{}, l.ctx...), kv...)
	return child
}

// formatArgs converts key-value pairs to a "key=val key=val" string.
func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
	}
	if b.Len() == 0 {
		return ""
	}
	return " " + b.String()
}

func jsonEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (l *Logger) log(level LogLevel, prefix, msg string, args ...any) {
	if level < l.level {
		return
	}
	all := append(append([]any{}, l.ctx...), args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == "json" {
		var b strings.Builder
		fmt.Fprintf(&b, `{"level":"%s","msg":"%s"`, level.String(), jsonEscape(msg))
		for i := 0; i < len(all); i += 2 {
			if i+1 >= len(all) {
				break
			}
			fmt.Fprintf(&b, `,"%v":"%s"`, all[i], jsonEscape(fmt.Sprintf("%v", all[i+1])))
		}
		b.WriteByte('}')
		l.logger.Print(b.String())
		return
	}

	l.logger.Printf("%s %s%s", prefix, msg, formatArgs(all))
}

func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, "[DEBUG]", msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(LevelInfo, "[INFO]", msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(LevelWarn, "[WARN]", msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, "[ERROR]", msg, args...) }

// Debugf, Infof, Warnf, Errorf are printf-style equivalents, kept for
// callers porting code that formats its own message.
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, "[DEBUG]", fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, "[INFO]", fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, "[WARN]", fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, "[ERROR]", fmt.Sprintf(format, args...)) }

// Printf logs a printf-style message at info level, for callers that
// only format messages.
func (l *Logger) Printf(format string, args ...any) { l.Infof(format, args...) }

// Global convenience functions operating on the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
