package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryTime = time.Date(2024, 3, 5, 10, 11, 12, 0, time.UTC)

func TestRenderPlainEntry(t *testing.T) {
	r := Renderer{DateFormat: "15:04:05", OrgPrefix: "package-root", Escape: true}

	got := r.Render(LogEntry{
		Time:    entryTime,
		Level:   LevelInfo,
		Class:   "package-root.p1.A",
		Method:  "m1",
		Thread:  2,
		Message: "hello",
	})

	want := "<tr name='Thread-2' class='logMetaData'><td class='noWrapColumn'>10:11:12</td><td>INFO</td><td>p1.A</td><td>m1</td><td>2</td></tr>\n" +
		"<tr name='Thread-2'><td colspan='5' >hello</td></tr>\n"
	assert.Equal(t, want, got)
}

func TestRenderRowStyle(t *testing.T) {
	r := Renderer{DateFormat: time.RFC3339}

	tests := []struct {
		name       string
		entry      LogEntry
		wantRow    string
		wantColumn string
	}{
		{
			name:    "info has no style",
			entry:   LogEntry{Level: LevelInfo},
			wantRow: "<tr name='Thread-1'><td",
		},
		{
			name:       "severe",
			entry:      LogEntry{Level: LevelSevere},
			wantRow:    "<tr name='Thread-1' class='logRowFailure'>",
			wantColumn: "<td class='logColumnSevere'>SEVERE</td>",
		},
		{
			name:       "warning",
			entry:      LogEntry{Level: LevelWarning},
			wantRow:    "<tr name='Thread-1' class='logRowWarning'>",
			wantColumn: "<td class='logColumnWarning'>WARNING</td>",
		},
		{
			name:       "explicit style wins over level",
			entry:      LogEntry{Level: LevelWarning, Style: StyleRowSuccess},
			wantRow:    "<tr name='Thread-1' class='logRowSucccess'>",
			wantColumn: "<td class='logColumnWarning'>WARNING</td>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.entry.Thread = 1
			got := r.Render(tt.entry)
			assert.Contains(t, got, tt.wantRow)
			if tt.wantColumn != "" {
				assert.Contains(t, got, tt.wantColumn)
			}
		})
	}
}

func TestRenderFailure(t *testing.T) {
	r := Renderer{DateFormat: time.RFC3339, Escape: true}

	got := r.Render(LogEntry{
		Time:    entryTime,
		Level:   LevelSevere,
		Class:   "p1.A",
		Method:  "m2",
		Thread:  1,
		Message: "Test A-m2 failed",
		Failure: &Failure{Summary: "boom", Frames: []string{"at X", "at Y", "at Z"}},
	})

	wantTrace := "<tr name='Thread-1'>\n" +
		"<td colspan='6'>\n" +
		"<table class='tableStacktrace'>\n" +
		"<tr class='traceOddRow'><td><b>StackTrace</b></td></tr>\n" +
		"<tr><td>boom</td></tr>\n" +
		"<tr class='traceOddRow'><td>at X</td></tr>\n" +
		"<tr class='traceEvenRow'><td>at Y</td></tr>\n" +
		"<tr class='traceOddRow'><td>at Z</td></tr>\n" +
		"</table>\n" +
		"</td>\n" +
		"</tr>\n"
	assert.True(t, strings.HasSuffix(got, wantTrace), got)
}

func TestRenderMessageMarkup(t *testing.T) {
	entry := LogEntry{Level: LevelInfo, Thread: 1, Method: "<m>", Message: "a < b\nline2\r\nline3"}

	t.Run("escaped", func(t *testing.T) {
		r := Renderer{DateFormat: time.RFC3339, Escape: true}
		got := r.Render(entry)
		assert.Contains(t, got, "<td>&lt;m&gt;</td>")
		assert.Contains(t, got, ">a &lt; b<br>line2<br>line3</td>")
	})

	t.Run("legacy markup", func(t *testing.T) {
		r := Renderer{DateFormat: time.RFC3339}
		got := r.Render(entry)
		assert.Contains(t, got, "<td><m></td>")
		assert.Contains(t, got, ">a < b<br>line2<br>line3</td>")
	})
}

func TestHeadAndTail(t *testing.T) {
	r := Renderer{Escape: true}

	head := r.Head("p1.A")
	assert.Contains(t, head, "<h1>p1.A</h1>")
	assert.Contains(t, head, "href='css/log-testclass.css'")
	assert.True(t, strings.HasSuffix(head,
		"<tr class='logRowHeading'><th>Date</th><th>Verbosity</th><th>Class</th><th>Method</th><th>ThreadId</th></tr>\n"))
	assert.Equal(t, "</table>\n</div>\n</body>\n</html>\n", r.Tail())
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{name: "com.example.p1", prefix: "com.example", want: "p1"},
		{name: "com.example", prefix: "com.example", want: "."},
		{name: "org.other.p1", prefix: "com.example", want: "org.other.p1"},
		{name: "com.examples.p1", prefix: "com.example", want: "com.examples.p1"},
		{name: "p1", prefix: "", want: "p1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.name, tt.prefix))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "FINE", want: LevelFine},
		{in: "severe", want: LevelSevere},
		{in: " Warning ", want: LevelWarning},
		{in: "off", want: LevelOff},
		{in: "850", want: Level(850)},
		{in: "chatty", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "850", Level(850).String())
	assert.Equal(t, "CONFIG", LevelConfig.String())
}
