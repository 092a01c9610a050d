package engine

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansel1/htmlreport/parser"
)

const (
	classStartLine = `{"Time":"2024-01-01T00:00:00Z","Action":"class-start","Class":"p1.A"}`
	passLine       = `{"Time":"2024-01-01T00:00:01Z","Action":"pass","Class":"p1.A","Method":"m1","Thread":1}`
)

func collect(events <-chan Event) []Event {
	var collected []Event
	for evt := range events {
		collected = append(collected, evt)
	}
	return collected
}

func TestEngine_Stream_ParsesRecords(t *testing.T) {
	input := classStartLine + "\n" + passLine

	collected := collect(NewEngine().Stream(strings.NewReader(input)))

	require.Len(t, collected, 3)
	assert.Equal(t, EventRecord, collected[0].Type)
	assert.Equal(t, parser.ActionClassStart, collected[0].Record.Action)
	assert.Equal(t, "p1.A", collected[0].Record.Class)

	assert.Equal(t, EventRecord, collected[1].Type)
	assert.Equal(t, parser.ActionPass, collected[1].Record.Action)
	assert.Equal(t, "m1", collected[1].Record.Method)

	assert.Equal(t, EventComplete, collected[2].Type)
}

func TestEngine_Stream_HandlesRawLines(t *testing.T) {
	input := "This is not JSON\n" +
		classStartLine + "\n" +
		`{"unrelated":"json"}` + "\n" +
		passLine

	collected := collect(NewEngine().Stream(strings.NewReader(input)))

	require.Len(t, collected, 5)
	assert.Equal(t, EventRawLine, collected[0].Type)
	assert.Equal(t, "This is not JSON", string(collected[0].RawLine))
	assert.Equal(t, EventRecord, collected[1].Type)
	assert.Equal(t, EventRawLine, collected[2].Type, "JSON without an Action is passed through")
	assert.Equal(t, EventRecord, collected[3].Type)
	assert.Equal(t, EventComplete, collected[4].Type)
}

func TestEngine_Stream_WritesOutputs(t *testing.T) {
	input := "Non-JSON line\n" + classStartLine

	var rawBuf, jsonBuf bytes.Buffer
	eng := NewEngine(
		WithRawOutput(&rawBuf),
		WithJSONOutput(&jsonBuf),
	)
	collect(eng.Stream(strings.NewReader(input)))

	assert.Equal(t, "Non-JSON line\n"+classStartLine+"\n", rawBuf.String())
	assert.Equal(t, classStartLine+"\n", jsonBuf.String())
}

func TestEngine_Stream_EmptyInput(t *testing.T) {
	collected := collect(NewEngine().Stream(strings.NewReader("")))

	require.Len(t, collected, 1)
	assert.Equal(t, EventComplete, collected[0].Type)
}

// errReader simulates a reader that returns an error
type errReader struct{}

func (e errReader) Read(p []byte) (n int, err error) {
	return 0, errors.New("simulated read error")
}

func TestEngine_Stream_HandlesReadError(t *testing.T) {
	collected := collect(NewEngine().Stream(errReader{}))

	require.Len(t, collected, 2)
	assert.Equal(t, EventError, collected[0].Type)
	assert.Error(t, collected[0].Error)
	assert.Equal(t, EventComplete, collected[1].Type)
}

func TestEngine_Stream_CopiesLineBuffer(t *testing.T) {
	collected := collect(NewEngine().Stream(strings.NewReader("line1\nline2\nline3")))

	var rawLines []string
	for _, evt := range collected {
		if evt.Type == EventRawLine {
			rawLines = append(rawLines, string(evt.RawLine))
		}
	}
	assert.Equal(t, []string{"line1", "line2", "line3"}, rawLines)
}

func TestEngine_Stream_LongLines(t *testing.T) {
	frames := strings.Repeat(`"at some.deeply.nested.Frame(Frame.java:1)",`, 3000)
	line := `{"Action":"fail","Class":"p1.A","Method":"m1","Failure":{"Summary":"boom","Frames":[` +
		frames + `"at end"]}}`
	require.Greater(t, len(line), 64*1024)

	collected := collect(NewEngine().Stream(strings.NewReader(line)))

	require.Len(t, collected, 2)
	require.Equal(t, EventRecord, collected[0].Type)
	assert.Len(t, collected[0].Record.Failure.Frames, 3001)
}

// failingWriter accepts n writes, then fails.
type failingWriter struct {
	n      int
	writes int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes > w.n {
		return 0, errors.New("disk full")
	}
	return len(p), nil
}

func TestEngine_Stream_AbandonsFailingOutput(t *testing.T) {
	input := classStartLine + "\nplain\n" + passLine

	w := &failingWriter{n: 1}
	collected := collect(NewEngine(WithRawOutput(w)).Stream(strings.NewReader(input)))

	require.Len(t, collected, 4)
	assert.Equal(t, EventRecord, collected[0].Type)
	assert.Equal(t, EventRawLine, collected[1].Type)
	assert.Equal(t, EventRecord, collected[2].Type)
	assert.Equal(t, 2, w.writes, "no writes after the first failure")
}
