package report

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ansel1/htmlreport/results"
)

// RunSummary holds the pass/fail/skip totals of a run and its time span.
type RunSummary struct {
	Passed  int
	Failed  int
	Skipped int
	Start   time.Time
	End     time.Time
}

// Total returns the number of methods with an outcome.
func (s RunSummary) Total() int {
	return s.Passed + s.Failed + s.Skipped
}

// Percent returns n as a percentage of the total, or 0 when there were no outcomes.
func (s RunSummary) Percent(n int) float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// Percentages returns the pass, fail and skip percentages in that order.
func (s RunSummary) Percentages() (pass, fail, skip float64) {
	return s.Percent(s.Passed), s.Percent(s.Failed), s.Percent(s.Skipped)
}

// Duration returns the wall time of the run.
func (s RunSummary) Duration() time.Duration {
	if s.Start.IsZero() || s.End.Before(s.Start) {
		return 0
	}
	return s.End.Sub(s.Start)
}

// SeriesPoint is one slice of the overview donut chart.
type SeriesPoint struct {
	Label string
	Value int
}

// Series returns the chart data in the order the chart colours expect: fail, skip, pass.
func (s RunSummary) Series() []SeriesPoint {
	return []SeriesPoint{
		{Label: "fail", Value: s.Failed},
		{Label: "skip", Value: s.Skipped},
		{Label: "pass", Value: s.Passed},
	}
}

// seriesLiteral renders the series as a javascript array literal.
func (s RunSummary) seriesLiteral() string {
	points := s.Series()
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("['%s',%d]", p.Label, p.Value)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Aggregator folds per-suite counters reported by the engine into a run summary.
// It is safe for concurrent use.
type Aggregator struct {
	mu      sync.Mutex
	suites  int
	passed  int
	failed  int
	skipped int
}

// AddSuite adds the counters of one finished suite.
func (a *Aggregator) AddSuite(passed, failed, skipped int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.suites++
	a.passed += passed
	a.failed += failed
	a.skipped += skipped
}

// Reduce derives the counts from individual method outcomes.
func Reduce(classes []results.ClassResult) RunSummary {
	var s RunSummary
	for _, c := range classes {
		counts := c.Counts()
		s.Passed += counts.Passed
		s.Failed += counts.Failed
		s.Skipped += counts.Skipped
	}
	return s
}

// Summary returns the run summary. Suite counters are authoritative when any
// suite reported; otherwise the counts are reduced from the method outcomes.
func (a *Aggregator) Summary(classes []results.ClassResult, start, end time.Time) RunSummary {
	a.mu.Lock()
	suites := a.suites
	s := RunSummary{Passed: a.passed, Failed: a.failed, Skipped: a.skipped}
	a.mu.Unlock()

	if suites == 0 {
		s = Reduce(classes)
	}
	s.Start = start
	s.End = end
	return s
}
