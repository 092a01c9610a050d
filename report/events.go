package report

import (
	"time"

	"github.com/ansel1/htmlreport/results"
)

// Event is a lifecycle notification from the test engine. The concrete types
// below are the only implementations.
type Event interface {
	event()
}

// RunStarted opens the run.
type RunStarted struct {
	Time time.Time
}

// RunFinished closes the run and triggers the overview.
type RunFinished struct {
	Time time.Time
}

// SuiteStarted marks the start of a suite.
type SuiteStarted struct {
	Time time.Time
	Name string
}

// SuiteFinished carries the counters the engine computed for a suite.
type SuiteFinished struct {
	Time    time.Time
	Name    string
	Passed  int
	Failed  int
	Skipped int
}

// ClassStarted marks the start of a test class.
type ClassStarted struct {
	Class results.ClassID
}

// ClassFinished marks the end of a test class.
type ClassFinished struct {
	Class results.ClassID
}

// MethodStarted marks the start, or a re-run, of a test method.
type MethodStarted struct {
	Class  results.ClassID
	Method string
}

// MethodOutcome reports the result of a test method. Failure is set for failed methods.
type MethodOutcome struct {
	Time    time.Time
	Class   results.ClassID
	Method  string
	Thread  int
	State   results.MethodState
	Failure *Failure
}

// ConfigOutcome reports the result of a before-class or after-class configuration method.
type ConfigOutcome struct {
	Time        time.Time
	Class       results.ClassID
	Method      string
	Thread      int
	BeforeClass bool
	Passed      bool
	Failure     *Failure
}

// LogRecord is a message a test wrote to its class log. An empty Class routes it
// to the default class page.
type LogRecord struct {
	Class results.ClassID
	Entry LogEntry
}

func (RunStarted) event()    {}
func (RunFinished) event()   {}
func (SuiteStarted) event()  {}
func (SuiteFinished) event() {}
func (ClassStarted) event()  {}
func (ClassFinished) event() {}
func (MethodStarted) event() {}
func (MethodOutcome) event() {}
func (ConfigOutcome) event() {}
func (LogRecord) event()     {}
