package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansel1/htmlreport/report"
	"github.com/ansel1/htmlreport/results"
)

func TestParseEvent(t *testing.T) {
	line := `{"Time":"2024-01-01T10:00:00Z","Action":"fail","Class":"p1.A","Method":"m2","Thread":3,` +
		`"Failure":{"Summary":"boom","Frames":["at X","at Y"]}}`

	evt, err := ParseEvent([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), evt.Time)
	assert.Equal(t, ActionFail, evt.Action)
	assert.Equal(t, 3, evt.Thread)
	require.NotNil(t, evt.Failure)
	assert.Equal(t, []string{"at X", "at Y"}, evt.Failure.Frames)
}

func TestParseEventRejects(t *testing.T) {
	_, err := ParseEvent([]byte("=== RUN plain text"))
	assert.Error(t, err)

	_, err = ParseEvent([]byte(`{"Class":"p1.A"}`))
	assert.ErrorIs(t, err, ErrNotEvent)
}

func TestEventReport(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	boom := &Failure{Summary: "boom", Frames: []string{"at X"}}

	tests := []struct {
		name  string
		event Event
		want  report.Event
	}{
		{
			name:  "run start",
			event: Event{Action: ActionRunStart, Time: ts},
			want:  report.RunStarted{Time: ts},
		},
		{
			name:  "suite finish",
			event: Event{Action: ActionSuiteFinish, Suite: "smoke", Passed: 3, Failed: 1, Skipped: 2},
			want:  report.SuiteFinished{Name: "smoke", Passed: 3, Failed: 1, Skipped: 2},
		},
		{
			name:  "class start",
			event: Event{Action: ActionClassStart, Class: "p1.A"},
			want:  report.ClassStarted{Class: "p1.A"},
		},
		{
			name:  "method start",
			event: Event{Action: ActionMethodStart, Class: "p1.A", Method: "m1"},
			want:  report.MethodStarted{Class: "p1.A", Method: "m1"},
		},
		{
			name:  "skip",
			event: Event{Action: ActionSkip, Class: "p1.A", Method: "m1", Thread: 2},
			want:  report.MethodOutcome{Class: "p1.A", Method: "m1", Thread: 2, State: results.StateSkipped},
		},
		{
			name:  "fail",
			event: Event{Action: ActionFail, Class: "p1.A", Method: "m2", Failure: boom},
			want: report.MethodOutcome{
				Class:   "p1.A",
				Method:  "m2",
				State:   results.StateFailed,
				Failure: &report.Failure{Summary: "boom", Frames: []string{"at X"}},
			},
		},
		{
			name:  "failed config",
			event: Event{Action: ActionConfig, Class: "p1.A", Method: "setUp", BeforeClass: true, Failure: boom},
			want: report.ConfigOutcome{
				Class:       "p1.A",
				Method:      "setUp",
				BeforeClass: true,
				Failure:     &report.Failure{Summary: "boom", Frames: []string{"at X"}},
			},
		},
		{
			name:  "passed config",
			event: Event{Action: ActionConfig, Class: "p1.A", Method: "tearDown"},
			want:  report.ConfigOutcome{Class: "p1.A", Method: "tearDown", Passed: true},
		},
		{
			name:  "log defaults to info",
			event: Event{Action: ActionLog, Message: "hello"},
			want:  report.LogRecord{Entry: report.LogEntry{Level: report.LevelInfo, Message: "hello"}},
		},
		{
			name:  "log with level and style",
			event: Event{Action: ActionLog, Class: "p1.A", Level: "fine", Message: "x", Style: report.StyleRowHighlight},
			want: report.LogRecord{
				Class: "p1.A",
				Entry: report.LogEntry{Level: report.LevelFine, Message: "x", Style: report.StyleRowHighlight},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.event.Report()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEventReportErrors(t *testing.T) {
	tests := []struct {
		name  string
		event Event
	}{
		{name: "unknown action", event: Event{Action: "explode", Class: "p1.A"}},
		{name: "class event without class", event: Event{Action: ActionClassStart}},
		{name: "bad level", event: Event{Action: ActionLog, Level: "LOUD"}},
		{name: "class with path", event: Event{Action: ActionClassStart, Class: "../../escaped.X"}},
		{name: "class with separator", event: Event{Action: ActionPass, Class: "p1/A", Method: "m1"}},
		{name: "empty segment", event: Event{Action: ActionClassFinish, Class: "p1..A"}},
		{name: "log with path class", event: Event{Action: ActionLog, Class: "p1/../A", Message: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.event.Report()
			assert.Error(t, err)
		})
	}
}
