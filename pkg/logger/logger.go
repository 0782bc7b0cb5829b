package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ringBuffer is the shared recent-log store behind GetRecentLogs. It is shared across a
// Logger and every scope derived from it via WithScope, so a support bundle captures the
// full interleaved history regardless of which scope wrote which line.
type ringBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newRingBuffer(max int) *ringBuffer {
	return &ringBuffer{lines: make([]string, 0, max), max: max}
}

func (r *ringBuffer) add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	if len(r.lines) > r.max {
		r.lines = r.lines[len(r.lines)-r.max:]
	}
}

func (r *ringBuffer) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]string, len(r.lines))
	copy(lines, r.lines)
	return lines
}

// Logger writes timestamped, leveled lines to stdout (and optionally a rotated file) while
// keeping a bounded in-memory history for diagnostics. WithScope tags every line a derived
// Logger writes with a caller-chosen identifier (a world name, a region file) without
// duplicating the underlying writers or history buffer.
type Logger struct {
	*log.Logger
	fileLogger *lumberjack.Logger
	ring       *ringBuffer
	scope      string
}

type Config struct {
	Enabled    bool
	FilePath   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func New() *Logger {
	return &Logger{
		Logger: log.New(os.Stdout, "", 0),
		ring:   newRingBuffer(1000),
	}
}

func NewWithConfig(cfg *Config) *Logger {
	writers := []io.Writer{os.Stdout}

	var fileLogger *lumberjack.Logger
	if cfg != nil && cfg.Enabled && cfg.FilePath != "" {
		fileLogger = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		writers = append(writers, fileLogger)
	}

	multiWriter := io.MultiWriter(writers...)

	return &Logger{
		Logger:     log.New(multiWriter, "", 0),
		fileLogger: fileLogger,
		ring:       newRingBuffer(1000),
	}
}

// WithScope returns a Logger that writes through the same destinations and shares the same
// recent-log history as l, but prefixes every line with scope. Nested scopes accumulate
// ("world=overworld region=r.0.0.mca"), so a scanner can tag its world-level logger once and
// its per-region callers narrow it further without re-stating the world name.
func (l *Logger) WithScope(scope string) *Logger {
	combined := scope
	if l.scope != "" {
		combined = l.scope + " " + scope
	}
	return &Logger{
		Logger:     l.Logger,
		fileLogger: l.fileLogger,
		ring:       l.ring,
		scope:      combined,
	}
}

func (l *Logger) log(level, format string, args ...any) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)

	var logLine string
	if l.scope != "" {
		logLine = fmt.Sprintf("[%s] %s %s: %s", timestamp, level, l.scope, message)
	} else {
		logLine = fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	}

	if l.ring != nil {
		l.ring.add(logLine)
	}
	l.Printf("%s", logLine)
}

func (l *Logger) Info(format string, args ...any) {
	l.log("INFO", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log("ERROR", format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log("WARN", format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.log("DEBUG", format, args...)
}

func (l *Logger) Fatal(format string, args ...any) {
	l.log("FATAL", format, args...)
	os.Exit(1)
}

// GetRecentLogs returns the shared history buffer, covering lines written by l and every
// Logger derived from it via WithScope.
func (l *Logger) GetRecentLogs() []string {
	if l.ring == nil {
		return nil
	}
	return l.ring.snapshot()
}

// Close file logger
func (l *Logger) Close() error {
	if l.fileLogger != nil {
		return l.fileLogger.Close()
	}
	return nil
}

// Get current log file path
func (l *Logger) GetLogFilePath() string {
	if l.fileLogger != nil {
		return l.fileLogger.Filename
	}
	return ""
}
