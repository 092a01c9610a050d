package report

import (
	"html"
	"strconv"
	"strings"
	"time"
)

// Row and column style classes understood by css/log-testclass.css.
const (
	StyleRowSuccess   = "logRowSucccess"
	StyleRowFailure   = "logRowFailure"
	StyleRowWarning   = "logRowWarning"
	StyleRowHighlight = "logRowResult"
	StyleRowMetadata  = "logMetaData"

	styleRowHeading     = "logRowHeading"
	styleNoWrap         = "noWrapColumn"
	styleColumnSevere   = "logColumnSevere"
	styleColumnWarning  = "logColumnWarning"
	styleTraceOddRow    = "traceOddRow"
	styleTraceEvenRow   = "traceEvenRow"
	styleTableStack     = "tableStacktrace"
	stylesheetClassPage = "css/log-testclass.css"
)

// metadataColumns is the number of cells in a metadata row; the message cell spans them.
const metadataColumns = 5

// Failure is an error attached to a log entry: its display string and stack frames.
type Failure struct {
	Summary string
	Frames  []string
}

// LogEntry is one event rendered into a class log page.
type LogEntry struct {
	Time    time.Time
	Level   Level
	Class   string
	Method  string
	Thread  int
	Message string
	Style   string   // explicit message row class; overrides the level-derived style
	Failure *Failure // optional
}

// Renderer turns log entries into HTML table rows. It holds no mutable state and
// is safe for concurrent use.
type Renderer struct {
	DateFormat string
	OrgPrefix  string
	// Escape HTML-escapes user supplied text. When false the text is embedded verbatim.
	Escape bool
}

func (r *Renderer) text(s string) string {
	if r.Escape {
		return html.EscapeString(s)
	}
	return s
}

// Head returns the page header up to and including the table heading row.
func (r *Renderer) Head(title string) string {
	var b strings.Builder
	b.WriteString("<?xml version='1.0' encoding='utf-8' ?>\n")
	b.WriteString("<!doctype html>\n")
	b.WriteString("<html>\n")
	b.WriteString("<head>\n")
	b.WriteString("   <meta http-equiv='Content-Type' content='text/html;charset=utf-8' />\n")
	b.WriteString("   <link rel='stylesheet' type='text/css' href='" + stylesheetClassPage + "' />\n")
	b.WriteString("</head>\n")
	b.WriteString("<body>\n")
	b.WriteString("<h1>" + r.text(title) + "</h1>\n")
	b.WriteString("<hr>\n")
	b.WriteString("<div class='logContent'>\n")
	b.WriteString("<table class='tableLog'>\n")
	b.WriteString("<tr class='" + styleRowHeading + "'>")
	b.WriteString("<th>Date</th>")
	b.WriteString("<th>Verbosity</th>")
	b.WriteString("<th>Class</th>")
	b.WriteString("<th>Method</th>")
	b.WriteString("<th>ThreadId</th>")
	b.WriteString("</tr>\n")
	return b.String()
}

// Tail closes what Head opened.
func (r *Renderer) Tail() string {
	return "</table>\n</div>\n</body>\n</html>\n"
}

// Render returns the rows for one entry: a metadata row, a message row and, when
// a failure is attached, a row holding the stack trace table.
func (r *Renderer) Render(entry LogEntry) string {
	thread := strconv.Itoa(entry.Thread)
	rowName := " name='Thread-" + thread + "'"

	var b strings.Builder

	b.WriteString("<tr" + rowName + " class='" + StyleRowMetadata + "'>")
	b.WriteString("<td class='" + styleNoWrap + "'>" + entry.Time.Format(r.DateFormat) + "</td>")
	b.WriteString("<td" + levelColumnClass(entry.Level) + ">" + entry.Level.String() + "</td>")
	b.WriteString("<td>" + r.text(DisplayName(entry.Class, r.OrgPrefix)) + "</td>")
	b.WriteString("<td>" + r.text(entry.Method) + "</td>")
	b.WriteString("<td>" + thread + "</td>")
	b.WriteString("</tr>\n")

	b.WriteString("<tr" + rowName + r.rowClass(entry) + ">")
	b.WriteString("<td colspan='" + strconv.Itoa(metadataColumns) + "' >" + r.message(entry.Message) + "</td>")
	b.WriteString("</tr>\n")

	if entry.Failure != nil {
		b.WriteString("<tr" + rowName + ">\n")
		b.WriteString("<td colspan='" + strconv.Itoa(metadataColumns+1) + "'>\n")
		b.WriteString(r.traceTable(entry.Failure))
		b.WriteString("</td>\n")
		b.WriteString("</tr>\n")
	}

	return b.String()
}

// message escapes the text (if enabled) and turns line breaks into <br>.
func (r *Renderer) message(msg string) string {
	msg = r.text(msg)
	msg = strings.ReplaceAll(msg, "\r\n", "<br>")
	return strings.ReplaceAll(msg, "\n", "<br>")
}

// rowClass returns the class attribute of the message row.
func (r *Renderer) rowClass(entry LogEntry) string {
	if entry.Style != "" {
		return " class='" + r.text(entry.Style) + "'"
	}
	switch entry.Level {
	case LevelSevere:
		return " class='" + StyleRowFailure + "'"
	case LevelWarning:
		return " class='" + StyleRowWarning + "'"
	}
	return ""
}

func levelColumnClass(level Level) string {
	switch level {
	case LevelSevere:
		return " class='" + styleColumnSevere + "'"
	case LevelWarning:
		return " class='" + styleColumnWarning + "'"
	}
	return ""
}

func (r *Renderer) traceTable(f *Failure) string {
	odd := " class='" + styleTraceOddRow + "'"
	even := " class='" + styleTraceEvenRow + "'"

	var b strings.Builder
	b.WriteString("<table class='" + styleTableStack + "'>\n")
	b.WriteString("<tr" + odd + "><td><b>StackTrace</b></td></tr>\n")
	b.WriteString("<tr><td>" + r.text(f.Summary) + "</td></tr>\n")
	for i, frame := range f.Frames {
		style := even
		if (i+1)%2 == 1 {
			style = odd
		}
		b.WriteString("<tr" + style + "><td>" + r.text(frame) + "</td></tr>\n")
	}
	b.WriteString("</table>\n")
	return b.String()
}

// DisplayName trims the organisational prefix from a package or class name.
// The prefix itself is shown as ".".
func DisplayName(name, orgPrefix string) string {
	if orgPrefix == "" {
		return name
	}
	if name == orgPrefix {
		return "."
	}
	return strings.TrimPrefix(name, orgPrefix+".")
}
