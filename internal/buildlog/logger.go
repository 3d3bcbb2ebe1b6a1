// Package buildlog provides the content logger handed to importers and
// processors. It reports progress and warnings only; failures are returned as
// errors and never logged here.
package buildlog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vk/contentgrid/internal/content"
)

// Logger is the diagnostics sink visible to pipeline components.
type Logger interface {
	LogMessage(format string, args ...any)
	LogImportantMessage(format string, args ...any)
	LogWarning(helpLink string, identity content.Identity, format string, args ...any)

	// PushFile marks name as the file currently being processed. Warnings
	// without an identity of their own are attributed to it.
	PushFile(name string)
	PopFile()
	CurrentFile() string

	Indent()
	Unindent()
}

const indentUnit = "  "

// SlogLogger implements Logger on top of a slog.Logger.
type SlogLogger struct {
	logger *slog.Logger

	mu     sync.Mutex
	files  []string
	indent int
}

// New returns a Logger writing through logger.
func New(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: logger}
}

func (l *SlogLogger) state() (string, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	file := ""
	if len(l.files) > 0 {
		file = l.files[len(l.files)-1]
	}
	return file, strings.Repeat(indentUnit, l.indent)
}

func (l *SlogLogger) log(level slog.Level, msg string, attrs ...any) {
	file, prefix := l.state()
	if file != "" {
		attrs = append(attrs, "file", file)
	}
	l.logger.Log(context.Background(), level, prefix+msg, attrs...)
}

func (l *SlogLogger) LogMessage(format string, args ...any) {
	l.log(slog.LevelDebug, fmt.Sprintf(format, args...))
}

func (l *SlogLogger) LogImportantMessage(format string, args ...any) {
	l.log(slog.LevelInfo, fmt.Sprintf(format, args...))
}

func (l *SlogLogger) LogWarning(helpLink string, identity content.Identity, format string, args ...any) {
	attrs := []any{}
	if !identity.IsZero() {
		attrs = append(attrs, "source", identity.String())
	}
	if helpLink != "" {
		attrs = append(attrs, "help", helpLink)
	}
	l.log(slog.LevelWarn, fmt.Sprintf(format, args...), attrs...)
}

func (l *SlogLogger) PushFile(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files = append(l.files, name)
}

// PopFile removes the innermost file. Popping an empty stack is a no-op.
func (l *SlogLogger) PopFile() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.files) > 0 {
		l.files = l.files[:len(l.files)-1]
	}
}

func (l *SlogLogger) CurrentFile() string {
	file, _ := l.state()
	return file
}

func (l *SlogLogger) Indent() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.indent++
}

func (l *SlogLogger) Unindent() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indent > 0 {
		l.indent--
	}
}
