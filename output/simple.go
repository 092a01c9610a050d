package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/ansel1/htmlreport/output/format"
	"github.com/ansel1/htmlreport/results"
)

// SimpleOutput writes plain text progress for -notty mode: pass-through lines
// as they arrive, one line per finished class, and the summary at the end.
type SimpleOutput struct {
	mu       sync.Mutex
	writer   io.Writer
	registry *results.Registry
	source   format.Source

	// Lightweight counters for exit code determination
	failed int
}

// NewSimpleOutput creates a simple output writer. source feeds the final
// summary and may be nil.
func NewSimpleOutput(w io.Writer, registry *results.Registry, source format.Source) *SimpleOutput {
	return &SimpleOutput{
		writer:   w,
		registry: registry,
		source:   source,
	}
}

// WriteRaw passes a non-record input line through. It is safe to call while
// ProcessEvents runs.
func (s *SimpleOutput) WriteRaw(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, string(line))
}

// ProcessEvents consumes registry events until the channel is closed, then
// writes the summary. The channel is drained even after a write error so the
// registry never blocks on it.
func (s *SimpleOutput) ProcessEvents(events <-chan results.Event) error {
	var writeErr error
	for evt := range events {
		switch evt.Type {
		case results.EventMethodUpdated:
			if evt.State == results.StateFailed {
				s.mu.Lock()
				s.failed++
				s.mu.Unlock()
			}

		case results.EventClassFinished:
			if writeErr != nil {
				continue
			}
			writeErr = s.writeClass(evt.Class)
		}
	}
	if writeErr != nil {
		return writeErr
	}
	return s.writeSummary()
}

// writeClass prints the outcome line of a finished class.
func (s *SimpleOutput) writeClass(id results.ClassID) error {
	if s.registry == nil {
		return nil
	}
	class, ok := s.registry.Class(id)
	if !ok {
		return nil
	}

	counts := class.Counts()
	symbol := format.SymbolSkip
	switch {
	case counts.Failed > 0:
		symbol = format.SymbolFail
	case counts.Passed > 0:
		symbol = format.SymbolPass
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.writer, "%s %s (%s) %s\n",
		symbol, id, counts, results.FormatDuration(class.EndTime.Sub(class.StartTime)))
	return err
}

// writeSummary writes the console summary of the run
func (s *SimpleOutput) writeSummary() error {
	if s.source == nil {
		return nil
	}

	// Use default terminal width (80 columns)
	formatter := format.NewPlainSummaryFormatter(80)
	summaryText := formatter.Format(format.SummaryOf(s.source))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.writer); err != nil {
		return err
	}
	_, err := fmt.Fprintln(s.writer, summaryText)
	return err
}

// HasFailures returns true if any method failed
func (s *SimpleOutput) HasFailures() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed > 0
}
