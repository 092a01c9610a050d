// Package parser decodes the JSON-lines event stream written by the test engine.
//
// Every line is one object:
//
//	{"Time":"2024-01-01T10:00:00Z","Action":"fail","Class":"p1.A","Method":"m2","Thread":1,
//	 "Failure":{"Summary":"boom","Frames":["at X","at Y"]}}
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ansel1/htmlreport/report"
	"github.com/ansel1/htmlreport/results"
)

// Actions understood in the Action field.
const (
	ActionRunStart    = "run-start"
	ActionRunFinish   = "run-finish"
	ActionSuiteStart  = "suite-start"
	ActionSuiteFinish = "suite-finish"
	ActionClassStart  = "class-start"
	ActionClassFinish = "class-finish"
	ActionMethodStart = "method-start"
	ActionPass        = "pass"
	ActionFail        = "fail"
	ActionSkip        = "skip"
	ActionConfig      = "config"
	ActionLog         = "log"
)

// ErrNotEvent is returned for JSON lines that carry no Action.
var ErrNotEvent = errors.New("not an engine event")

// Failure is the error attached to a failed method or configuration.
type Failure struct {
	Summary string   `json:"Summary"`
	Frames  []string `json:"Frames,omitempty"`
}

// Event represents a single line of the engine event stream
type Event struct {
	Time        time.Time `json:"Time"`
	Action      string    `json:"Action"`
	Suite       string    `json:"Suite,omitempty"`
	Class       string    `json:"Class,omitempty"`
	Method      string    `json:"Method,omitempty"`
	Thread      int       `json:"Thread,omitempty"`
	Level       string    `json:"Level,omitempty"`
	Message     string    `json:"Message,omitempty"`
	Style       string    `json:"Style,omitempty"`
	BeforeClass bool      `json:"BeforeClass,omitempty"`
	Passed      int       `json:"Passed,omitempty"`
	Failed      int       `json:"Failed,omitempty"`
	Skipped     int       `json:"Skipped,omitempty"`
	Failure     *Failure  `json:"Failure,omitempty"`
}

// ParseEvent parses a single line of the event stream
func ParseEvent(line []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(line, &event); err != nil {
		return event, err
	}
	if event.Action == "" {
		return event, ErrNotEvent
	}
	return event, nil
}

func (e Event) failure() *report.Failure {
	if e.Failure == nil {
		return nil
	}
	return &report.Failure{Summary: e.Failure.Summary, Frames: e.Failure.Frames}
}

func (e Event) classID() (results.ClassID, error) {
	if e.Class == "" {
		return "", fmt.Errorf("%s event without Class", e.Action)
	}
	if !validClassName(e.Class) {
		return "", fmt.Errorf("%s event with invalid Class %q", e.Action, e.Class)
	}
	return results.ClassID(e.Class), nil
}

// validClassName accepts dotted names whose segments hold identifier
// characters only.
func validClassName(name string) bool {
	for _, segment := range strings.Split(name, ".") {
		if segment == "" {
			return false
		}
		for _, r := range segment {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("_$-", r) {
				return false
			}
		}
	}
	return true
}

// Report translates the event into the report session's event type.
func (e Event) Report() (report.Event, error) {
	switch e.Action {
	case ActionRunStart:
		return report.RunStarted{Time: e.Time}, nil
	case ActionRunFinish:
		return report.RunFinished{Time: e.Time}, nil
	case ActionSuiteStart:
		return report.SuiteStarted{Time: e.Time, Name: e.Suite}, nil
	case ActionSuiteFinish:
		return report.SuiteFinished{Time: e.Time, Name: e.Suite, Passed: e.Passed, Failed: e.Failed, Skipped: e.Skipped}, nil
	case ActionLog:
		return e.logRecord()
	}

	id, err := e.classID()
	if err != nil {
		return nil, err
	}

	switch e.Action {
	case ActionClassStart:
		return report.ClassStarted{Class: id}, nil
	case ActionClassFinish:
		return report.ClassFinished{Class: id}, nil
	case ActionMethodStart:
		return report.MethodStarted{Class: id, Method: e.Method}, nil
	case ActionPass, ActionFail, ActionSkip:
		state := map[string]results.MethodState{
			ActionPass: results.StatePassed,
			ActionFail: results.StateFailed,
			ActionSkip: results.StateSkipped,
		}[e.Action]
		return report.MethodOutcome{
			Time:    e.Time,
			Class:   id,
			Method:  e.Method,
			Thread:  e.Thread,
			State:   state,
			Failure: e.failure(),
		}, nil
	case ActionConfig:
		return report.ConfigOutcome{
			Time:        e.Time,
			Class:       id,
			Method:      e.Method,
			Thread:      e.Thread,
			BeforeClass: e.BeforeClass,
			Passed:      e.Failure == nil,
			Failure:     e.failure(),
		}, nil
	}
	return nil, fmt.Errorf("unknown action %q", e.Action)
}

func (e Event) logRecord() (report.Event, error) {
	level := report.LevelInfo
	if e.Level != "" {
		var err error
		if level, err = report.ParseLevel(e.Level); err != nil {
			return nil, err
		}
	}
	var id results.ClassID
	if e.Class != "" {
		var err error
		if id, err = e.classID(); err != nil {
			return nil, err
		}
	}
	return report.LogRecord{
		Class: id,
		Entry: report.LogEntry{
			Time:    e.Time,
			Level:   level,
			Method:  e.Method,
			Thread:  e.Thread,
			Message: e.Message,
			Style:   e.Style,
			Failure: e.failure(),
		},
	}, nil
}
