package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	debugStyle = lipgloss.NewStyle().Faint(true)
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Logger writes leveled, colored messages to the console and, when
// attached, plain timestamped lines to the orchestrator log file.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	file    io.Writer
	verbose bool
	now     func() time.Time
}

// NewLogger builds a console logger. Debug lines are emitted only in
// verbose mode.
func NewLogger(verbose bool) *Logger {
	return &Logger{out: os.Stderr, verbose: verbose, now: time.Now}
}

// AttachFile mirrors every message (including debug) to w without color.
func (l *Logger) AttachFile(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.file = w
}

func (l *Logger) Debug(format string, args ...any) {
	l.emit("DEBUG", debugStyle, !l.verbose, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.emit("INFO", infoStyle, false, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.emit("WARN", warnStyle, false, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.emit("ERROR", errorStyle, false, format, args...)
}

func (l *Logger) emit(level string, style lipgloss.Style, consoleSuppressed bool, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !consoleSuppressed {
		fmt.Fprintf(l.out, "%s %s\n", style.Render(level+":"), msg)
	}
	if l.file != nil {
		fmt.Fprintf(l.file, "[%s] %s %s\n", l.now().Format("2006-01-02 15:04:05"), level, msg)
	}
}
