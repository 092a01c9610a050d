package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ansel1/htmlreport/output/format"
	"github.com/ansel1/htmlreport/results"
)

// ResultsEventMsg wraps registry events for bubbletea
type ResultsEventMsg results.Event

// EOFMsg signals that the input has been fully ingested
type EOFMsg struct{}

// ClassState tracks the display state of one test class.
type ClassState struct {
	ID        results.ClassID
	Status    string // "running", "passed", "failed", "skipped"
	StartTime time.Time
	Elapsed   time.Duration // set when the class finishes
	Counts    results.Counts
	Current   string // last method that started
}

// GetElapsedTime returns the elapsed time for display
func (cs *ClassState) GetElapsedTime() time.Duration {
	if cs.Status == "running" {
		return time.Since(cs.StartTime)
	}
	return cs.Elapsed
}

// classStatus derives the display status of a class from its registry snapshot.
func classStatus(c results.ClassResult) string {
	if !c.Finished() {
		return "running"
	}
	counts := c.Counts()
	switch {
	case counts.Failed > 0:
		return "failed"
	case counts.Passed > 0:
		return "passed"
	default:
		return "skipped"
	}
}

// Model is the bubbletea progress view of a run.
//
// It consumes results.Event from the Registry and reads the class snapshots
// back from the registry for rendering, so the registry stays the single
// owner of result state.
type Model struct {
	registry *results.Registry
	source   format.Source

	Classes    map[results.ClassID]*ClassState
	ClassOrder []results.ClassID

	Passed  int
	Failed  int
	Skipped int
	Running int

	TerminalWidth  int
	TerminalHeight int

	passStyle    lipgloss.Style
	failStyle    lipgloss.Style
	skipStyle    lipgloss.Style
	neutralStyle lipgloss.Style

	ReplayMode bool
	ReplayRate float64

	Finished         bool
	StartTime        time.Time
	TotalElapsedTime time.Duration
	spinner          spinner.Model
}

// NewModel creates a new TUI model reading class state from registry. source
// feeds DisplaySummary and may be nil.
func NewModel(replayMode bool, replayRate float64, registry *results.Registry, source format.Source) *Model {
	s := spinner.New()
	s.Spinner = spinner.Jump

	return &Model{
		registry:       registry,
		source:         source,
		Classes:        make(map[results.ClassID]*ClassState),
		ClassOrder:     make([]results.ClassID, 0),
		TerminalWidth:  80, // updated by Bubbletea
		TerminalHeight: 24,
		passStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("2")), // green
		failStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("1")), // red
		skipStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")), // yellow
		neutralStyle:   lipgloss.NewStyle(),
		spinner:        s,
		ReplayMode:     replayMode,
		ReplayRate:     replayRate,
		StartTime:      time.Now(),
	}
}

// Init starts the spinner
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ResultsEventMsg:
		m.handleResultsEvent(results.Event(msg))

	case tea.WindowSizeMsg:
		m.TerminalWidth = msg.Width
		m.TerminalHeight = msg.Height

	case EOFMsg:
		m.finish()
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.finish()
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) finish() {
	if m.Finished {
		return
	}
	m.Finished = true
	m.TotalElapsedTime = time.Since(m.StartTime)
}

// handleResultsEvent syncs the class named by evt from the registry and
// recomputes the run counters.
func (m *Model) handleResultsEvent(evt results.Event) {
	state, exists := m.Classes[evt.Class]
	if !exists {
		state = &ClassState{ID: evt.Class, Status: "running", StartTime: time.Now()}
		m.Classes[evt.Class] = state
		m.ClassOrder = append(m.ClassOrder, evt.Class)
	}

	if evt.Type == results.EventMethodUpdated && evt.State == results.StateUnknown {
		state.Current = evt.Method
	}

	if m.registry != nil {
		if snapshot, ok := m.registry.Class(evt.Class); ok {
			state.Counts = snapshot.Counts()
			state.Status = classStatus(snapshot)
			if snapshot.Finished() {
				state.Elapsed = snapshot.EndTime.Sub(snapshot.StartTime)
				state.Current = ""
			}
		}
	}

	m.Passed, m.Failed, m.Skipped, m.Running = 0, 0, 0, 0
	for _, cs := range m.Classes {
		m.Passed += cs.Counts.Passed
		m.Failed += cs.Counts.Failed
		m.Skipped += cs.Counts.Skipped
		m.Running += cs.Counts.Unknown
	}
}

// View renders the TUI
func (m *Model) View() string {
	return strings.TrimRight(expandTabs(m.render(), 8), "\n")
}

// expandTabs replaces tab characters in a string with spaces.
// Tabs only advance the cursor in some terminals, which lets characters of the
// previous frame bleed through.
func expandTabs(s string, tabWidth int) string {
	var b strings.Builder
	col := 0
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteRune(r)
			col = 0
		case '\t':
			spaces := tabWidth - (col % tabWidth)
			b.WriteString(strings.Repeat(" ", spaces))
			col += spaces
		default:
			b.WriteRune(r)
			col++
		}
	}
	return b.String()
}

// HasFailures returns true if any method failed
func (m *Model) HasFailures() bool {
	return m.Failed > 0
}

// formatElapsedTime formats elapsed time as X.Xs below a minute and X.Xm above.
func formatElapsedTime(d time.Duration) string {
	seconds := d.Seconds()
	if seconds < 0.05 {
		return "0.0s"
	}
	if seconds >= 60 {
		return fmt.Sprintf("%.1fm", seconds/60)
	}
	return fmt.Sprintf("%.1fs", seconds)
}

// scaled converts wall time into the time of the recorded run when replaying
// at a rate other than 1.
func (m *Model) scaled(d time.Duration) time.Duration {
	if m.ReplayMode && m.ReplayRate != 1.0 && m.ReplayRate != 0 {
		return time.Duration(float64(d) / m.ReplayRate)
	}
	return d
}

// classElapsed is the elapsed time shown for a class. Finished classes show
// the recorded duration.
func (m *Model) classElapsed(cs *ClassState) time.Duration {
	if cs.Status == "running" {
		return m.scaled(cs.GetElapsedTime())
	}
	return cs.Elapsed
}

// truncateLine truncates a line to fit within width
func truncateLine(line string, width int) string {
	if width <= 0 {
		return ""
	}
	if len(line) <= width {
		return line
	}
	return line[:width]
}

// visibleClasses picks the classes that fit on screen. Running classes come
// first, then the most recently started finished ones.
func (m *Model) visibleClasses(available int) []results.ClassID {
	if available <= 0 {
		return nil
	}

	var running, done []results.ClassID
	for _, id := range m.ClassOrder {
		if m.Classes[id].Status == "running" {
			running = append(running, id)
		} else {
			done = append(done, id)
		}
	}

	picked := make(map[results.ClassID]bool, available)
	for _, id := range running {
		if len(picked) == available {
			break
		}
		picked[id] = true
	}
	for i := len(done) - 1; i >= 0 && len(picked) < available; i-- {
		picked[done[i]] = true
	}

	visible := make([]results.ClassID, 0, len(picked))
	for _, id := range m.ClassOrder {
		if picked[id] {
			visible = append(visible, id)
		}
	}
	return visible
}

// render draws one line per class, a separator and the counts line. Input
// lines that are not records are printed above the program, not here.
func (m *Model) render() string {
	var b strings.Builder

	var wPassed, wFailed, wSkipped, wElapsed int
	for _, cs := range m.Classes {
		wPassed = max(wPassed, len(fmt.Sprint(cs.Counts.Passed)))
		wFailed = max(wFailed, len(fmt.Sprint(cs.Counts.Failed)))
		wSkipped = max(wSkipped, len(fmt.Sprint(cs.Counts.Skipped)))
		wElapsed = max(wElapsed, len(formatElapsedTime(m.classElapsed(cs))))
	}

	fixedLines := 1 // summary line
	if len(m.ClassOrder) > 0 {
		fixedLines++ // separator
	}

	for _, id := range m.visibleClasses(m.TerminalHeight - fixedLines) {
		m.renderClass(&b, m.Classes[id], wPassed, wFailed, wSkipped, wElapsed)
	}

	if len(m.ClassOrder) > 0 {
		b.WriteString(strings.Repeat("-", m.TerminalWidth))
		b.WriteString("\n")
	}

	m.renderSummaryLine(&b, wElapsed)
	return b.String()
}

// renderClass renders the counts line of one class
func (m *Model) renderClass(b *strings.Builder, cs *ClassState, wPassed, wFailed, wSkipped, wElapsed int) {
	counts := cs.Counts

	passedStr := fmt.Sprintf("%s %*d", format.SymbolPass, wPassed, counts.Passed)
	if counts.Passed > 0 {
		passedStr = m.passStyle.Render(passedStr)
	} else {
		passedStr = m.neutralStyle.Render(passedStr)
	}

	failedStr := fmt.Sprintf("%s %*d", format.SymbolFail, wFailed, counts.Failed)
	if counts.Failed > 0 {
		failedStr = m.failStyle.Render(failedStr)
	} else {
		failedStr = m.neutralStyle.Render(failedStr)
	}

	skippedStr := fmt.Sprintf("%s %*d", format.SymbolSkip, wSkipped, counts.Skipped)
	if counts.Skipped > 0 {
		skippedStr = m.skipStyle.Render(skippedStr)
	} else {
		skippedStr = m.neutralStyle.Render(skippedStr)
	}

	elapsedStr := fmt.Sprintf("%*s", wElapsed, formatElapsedTime(m.classElapsed(cs)))
	right := fmt.Sprintf("%s  %s  %s  %s", passedStr, failedStr, skippedStr, elapsedStr)

	left := string(cs.ID)
	prefix := "  "
	switch cs.Status {
	case "running":
		prefix = m.getSpinnerPrefix(counts.Failed > 0)
		if cs.Current != "" {
			left += " > " + cs.Current
		}
	case "failed":
		prefix = m.failStyle.Render(format.SymbolFail) + " "
	case "passed":
		prefix = m.passStyle.Render(format.SymbolPass) + " "
	default:
		prefix = m.skipStyle.Render(format.SymbolSkip) + " "
	}

	m.renderAlignedLine(b, left, right, prefix)
}

// getSpinnerPrefix returns the spinner string with appropriate color
func (m *Model) getSpinnerPrefix(failed bool) string {
	spinnerView := m.spinner.View()
	if failed {
		return m.failStyle.Render(spinnerView) + " "
	}
	return m.passStyle.Render(spinnerView) + " "
}

// renderAlignedLine renders a line with left-aligned and right-aligned content
func (m *Model) renderAlignedLine(b *strings.Builder, left, right, prefix string) {
	fullLeft := prefix + left

	if right == "" {
		b.WriteString(fullLeft)
		b.WriteString("\n")
		return
	}

	rightWidth := lipgloss.Width(right)
	leftWidth := lipgloss.Width(fullLeft)

	availableWidth := m.TerminalWidth - rightWidth - 2
	if availableWidth < 0 {
		availableWidth = 0
	}

	if leftWidth >= availableWidth {
		b.WriteString(ensureReset(truncateLine(fullLeft, availableWidth)))
	} else {
		b.WriteString(ensureReset(fullLeft))
		b.WriteString(strings.Repeat(" ", availableWidth-leftWidth))
	}
	b.WriteString("  ")
	b.WriteString(right)
	b.WriteString("\n")
}

// renderSummaryLine renders the run counts line
func (m *Model) renderSummaryLine(b *strings.Builder, wElapsed int) {
	total := m.Passed + m.Failed + m.Skipped + m.Running

	elapsed := m.TotalElapsedTime
	if !m.Finished {
		elapsed = time.Since(m.StartTime)
	}
	elapsedStr := fmt.Sprintf("%*s", wElapsed, formatElapsedTime(m.scaled(elapsed)))

	status := "RUNNING"
	prefix := m.getSpinnerPrefix(m.Failed > 0)
	if m.Finished {
		prefix = "  "
		status = "PASSED"
		if m.Failed > 0 {
			status = "FAILED"
		}
	}
	left := fmt.Sprintf("%s: %d passed, %d failed, %d skipped, %d running, %d total",
		status, m.Passed, m.Failed, m.Skipped, m.Running, total)

	m.renderAlignedLine(b, left, elapsedStr, prefix)
}

// DisplaySummary prints the console summary of the run after the TUI exits,
// either because the input ended or because the user quit.
func (m *Model) DisplaySummary() {
	if m.source == nil {
		return
	}

	formatter := format.NewSummaryFormatter(m.TerminalWidth)
	fmt.Println()
	fmt.Println(formatter.Format(format.SummaryOf(m.source)))
}

// ensureReset terminates s with a reset sequence so truncated styles do not bleed.
func ensureReset(s string) string {
	if s == "" || strings.HasSuffix(s, "\033[0m") {
		return s
	}
	return s + "\033[0m"
}
