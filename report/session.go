package report

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ansel1/htmlreport/logging"
	"github.com/ansel1/htmlreport/results"
)

// ErrSessionFinished is returned for events dispatched after RunFinished.
var ErrSessionFinished = errors.New("report session already finished")

// Settings are the immutable inputs of a session.
type Settings struct {
	Home       string
	OrgPrefix  string
	Threshold  Level
	DateFormat string
	// Escape HTML-escapes user supplied text on every page.
	Escape bool
	Assets Assets
}

// FailureRecord is a failed test or configuration method, kept for the console summary.
type FailureRecord struct {
	Class   results.ClassID
	Method  string
	Config  bool
	Failure *Failure
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRegistry makes the session record lifecycle state into r instead of a
// private registry. Subscribers of r observe the run.
func WithRegistry(r *results.Registry) SessionOption {
	return func(s *Session) {
		s.registry = r
	}
}

// WithEnv replaces CurrentEnv as the source of the overview environment.
func WithEnv(env func() EnvInfo) SessionOption {
	return func(s *Session) {
		s.env = env
	}
}

// WithSessionClock replaces time.Now for run timestamps and log entries without a time.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

type logSlot struct {
	mu  sync.Mutex
	log *ClassLog
}

// Session owns everything one run writes: the result registry, the navigation
// catalog and the open class pages. Create one per run and feed it every engine
// event through Dispatch, which is safe for concurrent use.
type Session struct {
	settings Settings
	registry *results.Registry
	writer   *Writer
	agg      Aggregator
	env      func() EnvInfo
	now      func() time.Time

	mu       sync.Mutex
	logs     map[results.ClassID]*logSlot
	failures []FailureRecord
	start    time.Time
	summary  RunSummary
	finished bool
}

// NewSession creates a session writing under settings.Home.
func NewSession(settings Settings, opts ...SessionOption) *Session {
	s := &Session{
		settings: settings,
		env:      CurrentEnv,
		now:      time.Now,
		logs:     make(map[results.ClassID]*logSlot),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = results.NewRegistry(results.WithClock(s.now))
	}

	renderer := Renderer{
		DateFormat: settings.DateFormat,
		OrgPrefix:  settings.OrgPrefix,
		Escape:     settings.Escape,
	}
	s.writer = NewWriter(settings.Home, renderer, settings.Assets)
	return s
}

// Registry returns the result registry of the session.
func (s *Session) Registry() *results.Registry {
	return s.registry
}

// Writer returns the report writer of the session.
func (s *Session) Writer() *Writer {
	return s.writer
}

// Summary returns the run summary computed at RunFinished.
func (s *Session) Summary() RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Failures returns the failed methods recorded so far.
func (s *Session) Failures() []FailureRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FailureRecord(nil), s.failures...)
}

// Channel returns the log of class id, registering the class in the navigation
// and creating its page on first use. Callers keep the handle; repeated calls
// return the same log.
func (s *Session) Channel(id results.ClassID) (*ClassLog, error) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return nil, ErrSessionFinished
	}
	slot, exists := s.logs[id]
	if !exists {
		slot = &logSlot{}
		s.logs[id] = slot
	}
	s.mu.Unlock()

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.log != nil {
		return slot.log, nil
	}

	// runFinished may have closed the slots since the check above.
	s.mu.Lock()
	finished := s.finished
	s.mu.Unlock()
	if finished {
		return nil, ErrSessionFinished
	}

	log, err := s.writer.OpenClassLog(id, s.settings.Threshold)
	if err != nil {
		return nil, err
	}
	if err := s.writer.Catalog().RegisterClass(id.Package(), id.SimpleName()); err != nil {
		_ = log.Close()
		return nil, err
	}
	log.now = s.now
	slot.log = log
	return log, nil
}

// Dispatch applies one engine event.
func (s *Session) Dispatch(evt Event) error {
	switch e := evt.(type) {
	case RunStarted:
		return s.runStarted(e)
	case RunFinished:
		return s.runFinished(e)
	case SuiteStarted:
		return s.logDefault(e.Time, "Started executing suite "+e.Name)
	case SuiteFinished:
		s.agg.AddSuite(e.Passed, e.Failed, e.Skipped)
		return s.logDefault(e.Time, "Finished executing suite "+e.Name)
	case ClassStarted:
		s.registry.StartClass(e.Class)
		_, err := s.Channel(e.Class)
		return err
	case ClassFinished:
		return s.classFinished(e)
	case MethodStarted:
		return s.registry.StartMethod(e.Class, e.Method)
	case MethodOutcome:
		return s.methodOutcome(e)
	case ConfigOutcome:
		return s.configOutcome(e)
	case LogRecord:
		return s.logRecord(e)
	}
	return fmt.Errorf("unsupported event %T", evt)
}

func (s *Session) timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

func (s *Session) runStarted(e RunStarted) error {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return ErrSessionFinished
	}
	s.start = s.timestamp(e.Time)
	s.mu.Unlock()

	created, err := s.writer.WriteRunStart()
	if err != nil {
		return err
	}
	if created {
		logging.Info("Session", "created report skeleton in %s", s.writer.Home())
	} else {
		logging.Debug("Session", "reusing report skeleton in %s", s.writer.Home())
	}
	return s.logDefault(e.Time, "Started test run")
}

func (s *Session) classFinished(e ClassFinished) error {
	if err := s.registry.FinishClass(e.Class); err != nil {
		return err
	}
	if d, err := s.registry.ClassDuration(e.Class); err == nil {
		logging.Debug("Session", "class %s finished in %s (%s)", e.Class, d, s.registry.Summarize(e.Class))
	}
	return nil
}

func (s *Session) methodOutcome(e MethodOutcome) error {
	if !e.State.Terminal() {
		return &results.PreconditionError{
			Op:     "MethodOutcome",
			Class:  e.Class,
			Method: e.Method,
			Reason: "outcome must be passed, failed or skipped",
		}
	}
	if err := s.registry.SetMethodState(e.Class, e.Method, e.State); err != nil {
		return err
	}

	entry := LogEntry{
		Time:    e.Time,
		Method:  e.Method,
		Thread:  e.Thread,
		Message: fmt.Sprintf("Test %s-%s %s", DisplayName(string(e.Class), s.settings.OrgPrefix), e.Method, e.State),
	}
	switch e.State {
	case results.StatePassed:
		entry.Level = LevelInfo
		entry.Style = StyleRowSuccess
	case results.StateSkipped:
		entry.Level = LevelWarning
		entry.Style = StyleRowWarning
	case results.StateFailed:
		entry.Level = LevelSevere
		entry.Failure = e.Failure
		s.recordFailure(FailureRecord{Class: e.Class, Method: e.Method, Failure: e.Failure})
	}

	log, err := s.Channel(e.Class)
	if err != nil {
		return err
	}
	return log.LogEntry(entry)
}

func (s *Session) configOutcome(e ConfigOutcome) error {
	phase := "After Class"
	if e.BeforeClass {
		phase = "Before Class"
	}
	result := "passed"
	style := StyleRowSuccess
	if !e.Passed {
		result = "failed"
		style = StyleRowFailure
		s.recordFailure(FailureRecord{Class: e.Class, Method: e.Method, Config: true, Failure: e.Failure})
	}

	log, err := s.Channel(e.Class)
	if err != nil {
		return err
	}
	err = log.LogEntry(LogEntry{
		Time:    e.Time,
		Level:   LevelInfo,
		Method:  e.Method,
		Thread:  e.Thread,
		Message: fmt.Sprintf("[%s] %s %s", e.Class.SimpleName(), phase, result),
		Style:   style,
	})
	if err != nil || e.Passed {
		return err
	}
	return log.LogEntry(LogEntry{
		Time:    e.Time,
		Level:   LevelSevere,
		Method:  e.Method,
		Thread:  e.Thread,
		Message: "StackTrace",
		Failure: e.Failure,
	})
}

func (s *Session) logRecord(e LogRecord) error {
	id := e.Class
	if id == "" {
		id = DefaultClass
	}
	log, err := s.Channel(id)
	if err != nil {
		return err
	}
	return log.LogEntry(e.Entry)
}

func (s *Session) logDefault(t time.Time, msg string) error {
	log, err := s.Channel(DefaultClass)
	if err != nil {
		return err
	}
	return log.LogEntry(LogEntry{Time: t, Level: LevelInfo, Message: msg})
}

func (s *Session) recordFailure(f FailureRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, f)
}

// runFinished closes every class page, then writes the overview. Errors from
// individual pages are collected so that one bad page does not hide the others.
func (s *Session) runFinished(e RunFinished) error {
	var result *multierror.Error
	if err := s.logDefault(e.Time, "Finished test run"); err != nil {
		if errors.Is(err, ErrSessionFinished) {
			return err
		}
		result = multierror.Append(result, err)
	}

	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return ErrSessionFinished
	}
	s.finished = true
	start := s.start
	slots := make([]*logSlot, 0, len(s.logs))
	for _, slot := range s.logs {
		slots = append(slots, slot)
	}
	s.mu.Unlock()

	for _, slot := range slots {
		slot.mu.Lock()
		if slot.log != nil {
			if err := slot.log.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
		slot.mu.Unlock()
	}

	end := s.timestamp(e.Time)
	if start.IsZero() {
		start = end
	}
	summary := s.agg.Summary(s.registry.Classes(), start, end)

	s.mu.Lock()
	s.summary = summary
	s.mu.Unlock()

	if err := s.writer.WriteRunEnd(summary, s.env(), summary.Duration()); err != nil {
		result = multierror.Append(result, err)
	}
	s.registry.Close()

	logging.Info("Session", "run finished: %d passed, %d failed, %d skipped", summary.Passed, summary.Failed, summary.Skipped)
	return result.ErrorOrNil()
}
