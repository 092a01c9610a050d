package format

import (
	"path/filepath"

	"github.com/ansel1/htmlreport/report"
	"github.com/ansel1/htmlreport/results"
)

// Source is what a console summary is computed from. *report.Session implements it.
type Source interface {
	Registry() *results.Registry
	Writer() *report.Writer
	Summary() report.RunSummary
	Failures() []report.FailureRecord
}

// SummaryOf computes the console summary of a session. When the run never
// finished, the totals are reduced from the registry instead.
func SummaryOf(src Source) *Summary {
	classes := src.Registry().Classes()
	run := src.Summary()
	if run.Total() == 0 {
		reduced := report.Reduce(classes)
		run.Passed, run.Failed, run.Skipped = reduced.Passed, reduced.Failed, reduced.Skipped
	}

	summary := ComputeSummary(classes, run, src.Failures())
	summary.ReportPath = filepath.Join(src.Writer().LogDir(), "index.html")
	return summary
}
