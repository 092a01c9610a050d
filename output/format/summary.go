package format

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"github.com/ansel1/htmlreport/report"
	"github.com/ansel1/htmlreport/results"
)

// formatDuration formats a duration as HH:MM:SS.mmm.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, milliseconds)
}

// Symbol constants for test results
const (
	SymbolPass = "✓"
	SymbolFail = "✗"
	SymbolSkip = "∅"
)

// Indentation constants
const (
	IndentLevel1 = "  "   // 2 spaces
	IndentLevel2 = "    " // 4 spaces
)

// maxFailureFrames limits the stack frames printed per failure.
const maxFailureFrames = 10

// ClassLine is one row of the class table.
type ClassLine struct {
	ID       results.ClassID
	Counts   results.Counts
	Elapsed  time.Duration
	Finished bool
}

// Summary represents the computed console summary of a run.
type Summary struct {
	Classes    []ClassLine
	Failures   []report.FailureRecord
	Run        report.RunSummary
	ReportPath string
}

// ComputeSummary builds the console summary from the registry snapshot, the
// run totals and the recorded failures. Classes keep the order they are given in.
func ComputeSummary(classes []results.ClassResult, run report.RunSummary, failures []report.FailureRecord) *Summary {
	summary := &Summary{
		Classes:  make([]ClassLine, 0, len(classes)),
		Failures: failures,
		Run:      run,
	}
	for _, c := range classes {
		line := ClassLine{
			ID:       c.ID,
			Counts:   c.Counts(),
			Finished: c.Finished(),
		}
		if line.Finished {
			line.Elapsed = c.EndTime.Sub(c.StartTime)
		}
		summary.Classes = append(summary.Classes, line)
	}
	return summary
}

// SummaryFormatter formats a Summary for display.
type SummaryFormatter struct {
	width        int
	useColors    bool
	passStyle    lipgloss.Style
	failStyle    lipgloss.Style
	skipStyle    lipgloss.Style
	neutralStyle lipgloss.Style
}

// NewSummaryFormatter creates a new summary formatter. Colors are enabled when
// stdout is a TTY.
func NewSummaryFormatter(width int) *SummaryFormatter {
	if width <= 0 {
		width = 80
	}
	useColors := isatty.IsTerminal(os.Stdout.Fd())

	return &SummaryFormatter{
		width:        width,
		useColors:    useColors,
		passStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")), // green
		failStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")), // red
		skipStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")), // yellow
		neutralStyle: lipgloss.NewStyle(),
	}
}

// NewPlainSummaryFormatter creates a summary formatter that never emits colors.
func NewPlainSummaryFormatter(width int) *SummaryFormatter {
	sf := NewSummaryFormatter(width)
	sf.useColors = false
	return sf
}

// Format renders a complete summary as a formatted string.
func (sf *SummaryFormatter) Format(summary *Summary) string {
	var b strings.Builder

	if len(summary.Failures) > 0 {
		b.WriteString(sf.formatFailures(summary.Failures))
		b.WriteString("\n")
	}

	if len(summary.Classes) > 0 {
		b.WriteString(sf.formatClassSection(summary.Classes))
		b.WriteString("\n")
	}

	b.WriteString(sf.formatOverallResults(summary))
	b.WriteString("\n")

	return b.String()
}

func (sf *SummaryFormatter) render(style lipgloss.Style, s string) string {
	if !sf.useColors {
		return s
	}
	return style.Render(s)
}

// classSymbol picks the symbol of a class: fail wins, then pass, then skip.
func (sf *SummaryFormatter) classSymbol(c results.Counts) string {
	switch {
	case c.Failed > 0:
		return sf.render(sf.failStyle, SymbolFail)
	case c.Passed > 0:
		return sf.render(sf.passStyle, SymbolPass)
	default:
		return sf.render(sf.skipStyle, SymbolSkip)
	}
}

// formatClassSection renders one table row per class.
func (sf *SummaryFormatter) formatClassSection(classes []ClassLine) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "CLASS", SymbolPass, SymbolFail, SymbolSkip, "TIME"})

	for _, c := range classes {
		elapsed := "running"
		if c.Finished {
			elapsed = formatDuration(c.Elapsed)
		}
		t.AppendRow(table.Row{
			sf.classSymbol(c.Counts),
			string(c.ID),
			c.Counts.Passed,
			c.Counts.Failed,
			c.Counts.Skipped,
			elapsed,
		})
	}

	return renderSectionHeader("CLASSES") + t.Render() + "\n"
}

// formatOverallResults formats the overall statistics section.
func (sf *SummaryFormatter) formatOverallResults(summary *Summary) string {
	var b strings.Builder
	b.WriteString(renderSectionHeader("OVERALL RESULTS"))

	run := summary.Run
	passPercent, failPercent, skipPercent := run.Percentages()

	passIcon := sf.render(sf.passStyle, SymbolPass)
	failIcon := sf.render(sf.failStyle, SymbolFail)
	skipIcon := sf.render(sf.skipStyle, SymbolSkip)

	fmt.Fprintf(&b, "Total tests:    %d\n", run.Total())
	fmt.Fprintf(&b, "Passed:         %d %s (%.1f%%)\n", run.Passed, passIcon, passPercent)
	fmt.Fprintf(&b, "Failed:         %d %s (%.1f%%)\n", run.Failed, failIcon, failPercent)
	fmt.Fprintf(&b, "Skipped:        %d %s (%.1f%%)\n", run.Skipped, skipIcon, skipPercent)
	fmt.Fprintf(&b, "Total time:     %s\n", formatDuration(run.Duration()))
	fmt.Fprintf(&b, "Classes:        %d\n", len(summary.Classes))
	if summary.ReportPath != "" {
		fmt.Fprintf(&b, "Report:         %s\n", summary.ReportPath)
	}

	b.WriteString(sf.horizontalLine())
	return b.String()
}

// formatFailures lists failures grouped by class, in the order they happened.
func (sf *SummaryFormatter) formatFailures(failures []report.FailureRecord) string {
	var b strings.Builder
	b.WriteString(renderSectionHeader("FAILURES"))

	byClass := make(map[results.ClassID][]report.FailureRecord)
	order := make([]results.ClassID, 0)
	for _, f := range failures {
		if _, exists := byClass[f.Class]; !exists {
			order = append(order, f.Class)
		}
		byClass[f.Class] = append(byClass[f.Class], f)
	}

	for i, class := range order {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(string(class) + "\n")

		for _, f := range byClass[class] {
			name := f.Method
			if f.Config {
				name += " (configuration)"
			}
			b.WriteString(IndentLevel1 + sf.render(sf.failStyle, SymbolFail) + " " + name + "\n")
			if f.Failure == nil {
				continue
			}
			b.WriteString(IndentLevel2 + f.Failure.Summary + "\n")

			frames := f.Failure.Frames
			if len(frames) > maxFailureFrames {
				frames = frames[:maxFailureFrames]
			}
			for _, frame := range frames {
				b.WriteString(IndentLevel2 + frame + "\n")
			}
		}
	}

	b.WriteString(sf.horizontalLine())
	return b.String()
}

// horizontalLine returns a horizontal separator line.
func (sf *SummaryFormatter) horizontalLine() string {
	return strings.Repeat("-", sf.width)
}

func renderSectionHeader(header string) string {
	return header + "\n" + strings.Repeat("-", len(header)) + "\n"
}
