package engine

import (
	"bufio"
	"io"

	"github.com/ansel1/htmlreport/logging"
	"github.com/ansel1/htmlreport/parser"
)

// EventType tells which field of an Event is set.
type EventType string

const (
	EventRawLine  EventType = "raw"
	EventRecord   EventType = "record"
	EventError    EventType = "error"
	EventComplete EventType = "complete"
)

// Event is one item of the stream. Records carry the decoded line, raw lines
// the bytes of a line that was not a record.
type Event struct {
	Type    EventType
	RawLine []byte
	Record  parser.Event
	Error   error
}

const (
	// streamBuffer lets the scanner run ahead of a slow dispatcher.
	streamBuffer = 100
	// maxLineSize bounds a single input line; stack traces make lines long.
	maxLineSize = 1024 * 1024
)

// Engine splits its input into records and raw lines. Records are decoded
// but not interpreted: the report session gives them meaning.
type Engine struct {
	rawCopy    *tee
	recordCopy *tee
}

// Option configures an Engine.
type Option func(*Engine)

// WithRawOutput copies every input line to w.
func WithRawOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.rawCopy = &tee{name: "raw output", w: w}
	}
}

// WithJSONOutput copies the lines that decode as records to w.
func WithJSONOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.recordCopy = &tee{name: "JSON output", w: w}
	}
}

// NewEngine returns an engine with opts applied.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stream scans input in a new goroutine. The returned channel ends with an
// EventComplete, preceded by an EventError if reading failed, and is then
// closed. The goroutine blocks while the channel is full, so the consumer must
// read it to the end.
func (e *Engine) Stream(input io.Reader) <-chan Event {
	events := make(chan Event, streamBuffer)

	go func() {
		defer close(events)

		scanner := bufio.NewScanner(input)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			events <- e.classify(scanner.Bytes())
		}
		if err := scanner.Err(); err != nil {
			events <- Event{Type: EventError, Error: err}
		}
		events <- Event{Type: EventComplete}
	}()

	return events
}

// classify decodes one line and copies it to the configured outputs.
func (e *Engine) classify(line []byte) Event {
	e.rawCopy.writeLine(line)

	record, err := parser.ParseEvent(line)
	if err != nil {
		// The scanner reuses line once Scan is called again.
		return Event{Type: EventRawLine, RawLine: append([]byte(nil), line...)}
	}

	e.recordCopy.writeLine(line)
	return Event{Type: EventRecord, Record: record}
}

// tee copies lines to a side output. After the first write error the output
// is abandoned; the stream itself carries on.
type tee struct {
	name   string
	w      io.Writer
	failed bool
}

var newline = []byte("\n")

func (t *tee) writeLine(line []byte) {
	if t == nil || t.failed {
		return
	}
	_, err := t.w.Write(line)
	if err == nil {
		_, err = t.w.Write(newline)
	}
	if err != nil {
		t.failed = true
		logging.Warn("Engine", "stopped writing %s: %v", t.name, err)
	}
}
