package report

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansel1/htmlreport/results"
)

func testSettings(t *testing.T) Settings {
	t.Helper()
	return Settings{
		Home:       t.TempDir(),
		OrgPrefix:  "package-root",
		Threshold:  LevelFine,
		DateFormat: time.RFC3339,
		Escape:     true,
	}
}

func fixedEnv() EnvInfo {
	return EnvInfo{RunID: "run-1"}
}

func dispatchAll(t *testing.T, s *Session, events ...Event) {
	t.Helper()
	for _, evt := range events {
		require.NoError(t, s.Dispatch(evt), "%T", evt)
	}
}

func TestSessionClassScenario(t *testing.T) {
	s := NewSession(testSettings(t), WithEnv(fixedEnv))
	const class results.ClassID = "p1.A"

	dispatchAll(t, s,
		RunStarted{},
		ClassStarted{Class: class},
		MethodStarted{Class: class, Method: "m1"},
		MethodOutcome{Class: class, Method: "m1", Thread: 1, State: results.StatePassed},
		MethodStarted{Class: class, Method: "m2"},
		MethodOutcome{
			Class:   class,
			Method:  "m2",
			Thread:  1,
			State:   results.StateFailed,
			Failure: &Failure{Summary: "boom", Frames: []string{"at X", "at Y"}},
		},
		ClassFinished{Class: class},
		RunFinished{},
	)

	assert.Equal(t, results.Counts{Passed: 1, Failed: 1, Total: 2}, s.Registry().Summarize(class))

	page := readFile(t, s.Writer().ClassPath(class))
	var header, data int
	for _, line := range strings.Split(page, "\n") {
		switch {
		case strings.HasPrefix(line, "<tr class='logRowHeading'>"):
			header++
		case strings.HasPrefix(line, "<tr name="):
			data++
		}
	}
	assert.Equal(t, 1, header)
	// Two rows per outcome plus the row holding the stack trace table.
	assert.Equal(t, 5, data)
	assert.Equal(t, 1, strings.Count(page, "<table class='tableStacktrace'>"))
	assert.Contains(t, page, ">Test p1.A-m1 passed</td>")
	assert.Contains(t, page, "<tr name='Thread-1' class='logRowSucccess'>")
	assert.Contains(t, page, ">Test p1.A-m2 failed</td>")
	assert.Contains(t, page, "<tr class='traceEvenRow'><td>at Y</td></tr>")
	assert.True(t, strings.HasSuffix(page, "</html>\n"))

	assert.Equal(t, []string{"A"}, s.Writer().Catalog().Classes("p1"))
	assert.Equal(t, RunSummary{Passed: 1, Failed: 1}, withoutTimes(s.Summary()))

	overview := readFile(t, filepath.Join(s.Writer().Home(), "overview.html"))
	assert.Contains(t, overview, "var s1 = [['fail',1], ['skip',0], ['pass',1]];")
	assert.Contains(t, overview, "<td>1</td><td>50.00%</td>")

	failures := s.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "m2", failures[0].Method)
	assert.Equal(t, "boom", failures[0].Failure.Summary)
}

func withoutTimes(s RunSummary) RunSummary {
	s.Start = time.Time{}
	s.End = time.Time{}
	return s
}

func TestSessionFinishWithoutStartWritesNothing(t *testing.T) {
	settings := testSettings(t)
	s := NewSession(settings, WithEnv(fixedEnv))

	err := s.Dispatch(ClassFinished{Class: "p1.A"})
	require.ErrorIs(t, err, results.ErrPrecondition)
	assert.True(t, IsFatal(err))

	entries, err := os.ReadDir(settings.Home)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSessionOutcomeRequiresTerminalState(t *testing.T) {
	s := NewSession(testSettings(t), WithEnv(fixedEnv))
	dispatchAll(t, s,
		RunStarted{},
		ClassStarted{Class: "p1.A"},
		MethodStarted{Class: "p1.A", Method: "m1"},
	)

	err := s.Dispatch(MethodOutcome{Class: "p1.A", Method: "m1", State: results.StateUnknown})
	assert.ErrorIs(t, err, results.ErrPrecondition)
}

func TestSessionSkipAndConfigOutcomes(t *testing.T) {
	s := NewSession(testSettings(t), WithEnv(fixedEnv))
	const class results.ClassID = "p1.A"

	dispatchAll(t, s,
		RunStarted{},
		ClassStarted{Class: class},
		ConfigOutcome{Class: class, Method: "setUp", BeforeClass: true, Passed: true},
		MethodStarted{Class: class, Method: "m1"},
		MethodOutcome{Class: class, Method: "m1", State: results.StateSkipped},
		ConfigOutcome{
			Class:   class,
			Method:  "tearDown",
			Passed:  false,
			Failure: &Failure{Summary: "cleanup failed", Frames: []string{"at Z"}},
		},
		ClassFinished{Class: class},
		RunFinished{},
	)

	page := readFile(t, s.Writer().ClassPath(class))
	assert.Contains(t, page, ">[A] Before Class passed</td>")
	assert.Contains(t, page, "<tr name='Thread-1' class='logRowWarning'><td colspan='5' >Test p1.A-m1 skipped</td>")
	assert.Contains(t, page, "<tr name='Thread-1' class='logRowFailure'><td colspan='5' >[A] After Class failed</td>")
	assert.Contains(t, page, ">StackTrace</td>")
	assert.Contains(t, page, "<tr><td>cleanup failed</td></tr>")

	failures := s.Failures()
	require.Len(t, failures, 1)
	assert.True(t, failures[0].Config)
}

func TestSessionSuiteCountersAndDefaultPage(t *testing.T) {
	s := NewSession(testSettings(t), WithEnv(fixedEnv))

	dispatchAll(t, s,
		RunStarted{},
		SuiteStarted{Name: "smoke"},
		LogRecord{Entry: LogEntry{Level: LevelInfo, Message: "free text"}},
		SuiteFinished{Name: "smoke", Passed: 7, Failed: 2, Skipped: 1},
		RunFinished{},
	)

	assert.Equal(t, RunSummary{Passed: 7, Failed: 2, Skipped: 1}, withoutTimes(s.Summary()))

	page := readFile(t, s.Writer().ClassPath(DefaultClass))
	for _, msg := range []string{"Started test run", "Started executing suite smoke", "free text", "Finished executing suite smoke", "Finished test run"} {
		assert.Contains(t, page, ">"+msg+"</td>")
	}
	assert.Equal(t, []string{"htmlreport"}, s.Writer().Catalog().Packages())
}

func TestSessionChannelIsStable(t *testing.T) {
	s := NewSession(testSettings(t), WithEnv(fixedEnv))

	var wg sync.WaitGroup
	logs := make([]*ClassLog, 8)
	for i := range logs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			log, err := s.Channel("p1.A")
			assert.NoError(t, err)
			logs[i] = log
		}(i)
	}
	wg.Wait()

	for _, log := range logs[1:] {
		assert.Same(t, logs[0], log)
	}
	require.NoError(t, logs[0].Log(LevelInfo, "m1", "via handle"))
	require.NoError(t, s.Dispatch(RunFinished{}))

	assert.Contains(t, readFile(t, s.Writer().ClassPath("p1.A")), ">via handle</td>")
}

func TestSessionRejectsEventsAfterFinish(t *testing.T) {
	s := NewSession(testSettings(t), WithEnv(fixedEnv))
	dispatchAll(t, s, RunStarted{}, RunFinished{})

	assert.ErrorIs(t, s.Dispatch(RunFinished{}), ErrSessionFinished)
	_, err := s.Channel("p1.A")
	assert.ErrorIs(t, err, ErrSessionFinished)
}

func TestSessionRegistrySubscribers(t *testing.T) {
	registry := results.NewRegistry()
	events := registry.Subscribe()
	s := NewSession(testSettings(t), WithRegistry(registry), WithEnv(fixedEnv))

	dispatchAll(t, s,
		RunStarted{},
		ClassStarted{Class: "p1.A"},
		MethodStarted{Class: "p1.A", Method: "m1"},
		MethodOutcome{Class: "p1.A", Method: "m1", State: results.StatePassed},
		ClassFinished{Class: "p1.A"},
		RunFinished{},
	)

	var types []results.EventType
	for evt := range events {
		types = append(types, evt.Type)
	}
	assert.Equal(t, []results.EventType{
		results.EventClassStarted,
		results.EventMethodUpdated,
		results.EventMethodUpdated,
		results.EventClassFinished,
	}, types)
}

func TestSessionRejectsClassPagesOutsideHome(t *testing.T) {
	base := t.TempDir()
	settings := testSettings(t)
	settings.Home = filepath.Join(base, "home")
	s := NewSession(settings, WithEnv(fixedEnv))
	dispatchAll(t, s, RunStarted{})

	err := s.Dispatch(ClassStarted{Class: "../../escaped.X"})
	var werr *WriteError
	require.ErrorAs(t, err, &werr)
	assert.False(t, IsFatal(err))
	assert.NoFileExists(t, filepath.Join(base, "escaped.X.html"))

	_, err = s.Channel("p1/../../../escaped.Y")
	require.Error(t, err)
	assert.False(t, IsFatal(err))
	assert.NoFileExists(t, filepath.Join(base, "escaped.Y.html"))

	// Other classes keep logging.
	dispatchAll(t, s, ClassStarted{Class: "p1.A"}, RunFinished{})
	assert.Equal(t, []string{"htmlreport", "p1"}, s.Writer().Catalog().Packages())
}

func TestSessionOutcomeTrimsOrgPrefix(t *testing.T) {
	settings := testSettings(t)
	settings.OrgPrefix = "com.example"
	s := NewSession(settings, WithEnv(fixedEnv))
	const class results.ClassID = "com.example.p1.A"

	dispatchAll(t, s,
		RunStarted{},
		ClassStarted{Class: class},
		MethodStarted{Class: class, Method: "m1"},
		MethodOutcome{Class: class, Method: "m1", State: results.StatePassed},
		ClassFinished{Class: class},
		RunFinished{},
	)

	assert.Contains(t, readFile(t, s.Writer().ClassPath(class)), ">Test p1.A-m1 passed</td>")
}

func TestSessionChannelRacingFinishClosesEveryPage(t *testing.T) {
	for i := 0; i < 20; i++ {
		s := NewSession(testSettings(t), WithEnv(fixedEnv))
		dispatchAll(t, s, RunStarted{})

		ids := []results.ClassID{"p1.A", "p1.B", "p2.C", "p2.D"}
		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(id results.ClassID) {
				defer wg.Done()
				_, err := s.Channel(id)
				if err != nil {
					assert.ErrorIs(t, err, ErrSessionFinished)
				}
			}(id)
		}
		require.NoError(t, s.Dispatch(RunFinished{}))
		wg.Wait()

		for _, id := range ids {
			path := s.Writer().ClassPath(id)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			assert.True(t, strings.HasSuffix(readFile(t, path), "</html>\n"), "%s left open", id)
		}
	}
}
