package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ansel1/htmlreport/results"
)

// ClassLog appends log entries to the page of one class. Obtain one from
// Session.Channel and keep it for the lifetime of the class. It is safe for
// concurrent use.
type ClassLog struct {
	id        results.ClassID
	renderer  *Renderer
	threshold Level
	now       func() time.Time

	mu     sync.Mutex
	file   *os.File
	closed bool
}

// ID returns the class the log belongs to.
func (l *ClassLog) ID() results.ClassID {
	return l.id
}

// Enabled reports whether entries at level reach the page.
func (l *ClassLog) Enabled(level Level) bool {
	return level >= l.threshold && l.threshold != LevelOff
}

// Log appends a message attributed to method.
func (l *ClassLog) Log(level Level, method, msg string) error {
	return l.LogEntry(LogEntry{Level: level, Method: method, Message: msg})
}

// Logf appends a formatted message attributed to method.
func (l *ClassLog) Logf(level Level, method, format string, args ...any) error {
	if !l.Enabled(level) {
		return nil
	}
	return l.Log(level, method, fmt.Sprintf(format, args...))
}

// LogEntry appends entry. Missing class, time and thread are filled in.
func (l *ClassLog) LogEntry(entry LogEntry) error {
	if !l.Enabled(entry.Level) {
		return nil
	}
	if entry.Class == "" {
		entry.Class = string(l.id)
	}
	if entry.Time.IsZero() {
		entry.Time = l.now()
	}
	if entry.Thread <= 0 {
		entry.Thread = 1
	}
	rows := l.renderer.Render(entry)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return &WriteError{Artifact: l.name(), Err: ErrClosed}
	}
	if _, err := l.file.WriteString(rows); err != nil {
		return &WriteError{Artifact: l.name(), Err: err}
	}
	return nil
}

// Close writes the page footer and closes the file. Closing twice is a no-op.
func (l *ClassLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	_, werr := l.file.WriteString(l.renderer.Tail())
	cerr := l.file.Close()
	if werr != nil {
		return &WriteError{Artifact: l.name(), Err: werr}
	}
	if cerr != nil {
		return &WriteError{Artifact: l.name(), Err: cerr}
	}
	return nil
}

func (l *ClassLog) name() string {
	return filepath.Base(l.file.Name())
}
