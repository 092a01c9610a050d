package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ansel1/htmlreport/results"
)

const (
	indexFile    = "index.html"
	overviewFile = "overview.html"
	logDirName   = "log"
)

// DefaultClass owns the messages that belong to no test class: run and suite
// boundaries, and log records without a class. Its page is the one the content
// frame shows first.
const DefaultClass results.ClassID = "htmlreport.RunListener"

// isoTime is the timestamp layout of the overview run info.
const isoTime = "2006-01-02T15:04:05.000Z07:00"

// Writer lays out the report under its home directory: overview.html and the
// assets at the top, the frameset, navigation and class pages under log/.
type Writer struct {
	home     string
	logDir   string
	renderer Renderer
	assets   Assets
	catalog  *Catalog
}

// NewWriter creates a writer rooted at home. A nil assets installs nothing.
func NewWriter(home string, renderer Renderer, assets Assets) *Writer {
	if assets == nil {
		assets = NoAssets{}
	}
	logDir := filepath.Join(home, logDirName)
	return &Writer{
		home:     home,
		logDir:   logDir,
		renderer: renderer,
		assets:   assets,
		catalog:  NewCatalog(logDir, renderer.OrgPrefix, renderer.Escape),
	}
}

// Catalog returns the navigation catalog of the report.
func (w *Writer) Catalog() *Catalog {
	return w.catalog
}

// Home returns the report root directory.
func (w *Writer) Home() string {
	return w.home
}

// LogDir returns the directory holding the frameset, navigation and class pages.
func (w *Writer) LogDir() string {
	return w.logDir
}

// ClassPath returns the path of the log page of id.
func (w *Writer) ClassPath(id results.ClassID) string {
	return filepath.Join(w.logDir, classFile(id.Package(), id.SimpleName()))
}

func checkClassID(id results.ClassID) error {
	if err := checkPageName("package", id.Package()); err != nil {
		return err
	}
	return checkPageName("class", id.SimpleName())
}

// WriteRunStart prepares the report skeleton. When index.html already exists the
// skeleton is left alone and false is returned, so that consecutive runs share
// one report.
func (w *Writer) WriteRunStart() (bool, error) {
	if fileExists(filepath.Join(w.logDir, indexFile)) {
		return false, nil
	}

	if err := os.MkdirAll(w.logDir, 0o755); err != nil {
		return false, &WriteError{Artifact: logDirName, Fatal: true, Err: err}
	}
	if err := w.assets.Install(w.home); err != nil {
		return false, &WriteError{Artifact: "assets", Fatal: true, Err: err}
	}

	defaultPage := w.ClassPath(DefaultClass)
	if err := touchFile(defaultPage); err != nil {
		return false, &WriteError{Artifact: filepath.Base(defaultPage), Fatal: true, Err: err}
	}
	if err := rewriteFile(filepath.Join(w.logDir, indexFile), w.renderIndex()); err != nil {
		return false, &WriteError{Artifact: indexFile, Fatal: true, Err: err}
	}
	if err := rewriteFile(filepath.Join(w.logDir, packageRootFile), w.renderPackageRoot()); err != nil {
		return false, &WriteError{Artifact: packageRootFile, Fatal: true, Err: err}
	}
	return true, nil
}

func (w *Writer) renderIndex() string {
	defaultPage := classFile(DefaultClass.Package(), DefaultClass.SimpleName())

	var b strings.Builder
	b.WriteString("<html>\n")
	b.WriteString("<frameset cols='15%,*'>\n")
	b.WriteString("   <frameset rows='40%,*'>\n")
	b.WriteString("      <frame name='packageNames' src='" + packagesFile + "'/>\n")
	b.WriteString("      <frame name='classNames'   src='" + packageRootFile + "'/>\n")
	b.WriteString("   </frameset>\n")
	b.WriteString("   <frame name='content' src='" + defaultPage + "'/>\n")
	b.WriteString("</frameset>\n")
	b.WriteString("</html>\n")
	return b.String()
}

func (w *Writer) renderPackageRoot() string {
	defaultPage := classFile(DefaultClass.Package(), DefaultClass.SimpleName())

	var b strings.Builder
	b.WriteString(navHead)
	b.WriteString("<tr><td class='noWrapColumn'><a href='" + defaultPage + "' target='content'>" +
		w.renderer.text(DefaultClass.SimpleName()) + "</a></td></tr>\n")
	b.WriteString(navTail)
	return b.String()
}

// OpenClassLog creates the log page of id, truncating a page left by an earlier
// run, and writes its header. Entries below threshold are dropped.
func (w *Writer) OpenClassLog(id results.ClassID, threshold Level) (*ClassLog, error) {
	if err := checkClassID(id); err != nil {
		return nil, &WriteError{Artifact: string(id), Err: err}
	}
	path := w.ClassPath(id)
	if err := os.MkdirAll(w.logDir, 0o755); err != nil {
		return nil, &WriteError{Artifact: filepath.Base(path), Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, &WriteError{Artifact: filepath.Base(path), Err: err}
	}
	if _, err := f.WriteString(w.renderer.Head(string(id))); err != nil {
		_ = f.Close()
		return nil, &WriteError{Artifact: filepath.Base(path), Err: err}
	}
	return &ClassLog{
		id:        id,
		file:      f,
		renderer:  &w.renderer,
		threshold: threshold,
		now:       time.Now,
	}, nil
}

// WriteRunEnd writes overview.html from the run summary and environment.
func (w *Writer) WriteRunEnd(summary RunSummary, env EnvInfo, duration time.Duration) error {
	if err := rewriteFile(filepath.Join(w.home, overviewFile), w.renderOverview(summary, env, duration)); err != nil {
		return &WriteError{Artifact: overviewFile, Fatal: true, Err: err}
	}
	return nil
}

// FormatRunDuration renders d as whole hours, minutes and seconds.
func FormatRunDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d : %02d : %02d", secs/3600, (secs%3600)/60, secs%60)
}

func (w *Writer) renderOverview(summary RunSummary, env EnvInfo, duration time.Duration) string {
	var b strings.Builder
	b.WriteString(overviewHead)
	b.WriteString("<script>\n")
	b.WriteString("$(document).ready(function()\n{\n")
	b.WriteString("   var s1 = " + summary.seriesLiteral() + ";\n")
	b.WriteString(overviewChart)
	b.WriteString("});\n\n")
	b.WriteString("$( \n   function ()\n   {\n")
	b.WriteString("      $('#accordion').accordion({ header: 'div#accordionTitle'});\n")
	b.WriteString("   }\n);\n\n")
	b.WriteString("</script>\n")
	b.WriteString(overviewStyle)
	b.WriteString("</head>\n")
	b.WriteString("<body>\n\n")
	b.WriteString("<table class='layoutTable'>\n")
	b.WriteString("<tr class='overview'>\n")
	b.WriteString("<td width='60%'>\n")
	w.writeResultSection(&b, summary)
	b.WriteString("</td>\n")
	b.WriteString("<td width='40%' valign='top'>\n")
	w.writeAccordion(&b, summary, env, duration)
	b.WriteString("</td>\n")
	b.WriteString("</tr>\n")
	b.WriteString("</table>\n")
	b.WriteString("</body>\n")
	b.WriteString("</html>\n")
	return b.String()
}

func (w *Writer) writeResultSection(b *strings.Builder, summary RunSummary) {
	rows := []struct {
		name  string
		style string
		value int
	}{
		{"Pass", "pass", summary.Passed},
		{"Fail", "fail", summary.Failed},
		{"Skip", "skip", summary.Skipped},
	}

	b.WriteString("   <table class='stretch'>\n")
	b.WriteString("   <tr height='70%'>\n")
	b.WriteString("   <td>\n")
	b.WriteString("      <table class='stretch'>\n")
	b.WriteString("      <tr>\n")
	b.WriteString("         <td align='center'><div id='chart' class='posCenter'></div></td>\n")
	b.WriteString("      </tr>\n")
	b.WriteString("      </table>\n")
	b.WriteString("   </td>\n")
	b.WriteString("   </tr>\n")
	b.WriteString("   <tr height='30%'>\n")
	b.WriteString("   <td>\n")
	b.WriteString("      <table class='resultTable posCenter'>\n")
	b.WriteString("      <tr><th>&nbsp</th><th> Count </th><th> Percent </th></tr>\n")
	for _, row := range rows {
		fmt.Fprintf(b, "      <tr><th class='%s'>%s</th><td>%d</td><td>%3.2f%%</td></tr>\n",
			row.style, row.name, row.value, summary.Percent(row.value))
	}
	b.WriteString("      </table>\n")
	b.WriteString("   </td>\n")
	b.WriteString("   </tr>\n")
	b.WriteString("   </table>\n")
}

func (w *Writer) writeAccordion(b *strings.Builder, summary RunSummary, env EnvInfo, duration time.Duration) {
	run := []Property{
		{Name: "Run ID", Value: env.RunID},
		{Name: "Start Time", Value: formatISO(summary.Start)},
		{Name: "End Time", Value: formatISO(summary.End)},
		{Name: "Duration", Value: FormatRunDuration(duration)},
	}

	b.WriteString("   <div id='accordion'>\n")
	w.writeAccordionSection(b, "Run Info", run)
	w.writeAccordionSection(b, "Runtime Info", env.Runtime)
	w.writeAccordionSection(b, "Platform Info", env.Platform)
	b.WriteString("   </div>\n")
}

func (w *Writer) writeAccordionSection(b *strings.Builder, title string, props []Property) {
	b.WriteString("      <div id='accordionTitle'>" + title + "</div>\n")
	b.WriteString("      <div>\n")
	b.WriteString("         <table>\n")
	for _, p := range props {
		b.WriteString("            <tr><th>" + w.renderer.text(p.Name) + "</th><td colspan='2'>" +
			w.renderer.text(p.Value) + "</td></tr>\n")
	}
	b.WriteString("         </table>\n")
	b.WriteString("      </div>\n")
}

func formatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(isoTime)
}

const overviewHead = `<html>
<head>
<link type='text/css' rel='stylesheet' href='css/overview.css'></link>
<link type='text/css' rel='stylesheet' href='jquery-ui/themes/start/jquery-ui-1.9.1.custom.css'></link>
<link type='text/css' rel='stylesheet' href='jqplot/jquery.jqplot.min.css' />
<script type='text/javascript' src='jquery/jquery-1.8.2.min.js'></script>
<script type='text/javascript' src='jquery-ui/js/jquery-ui-1.9.1.custom.min.js'></script>
<script type='text/javascript' src='jqplot/jquery.jqplot.min.js'></script>
<script type='text/javascript' src='jqplot/jqplot.donutRenderer.min.js'></script>

`

const overviewChart = `   var plot = $.jqplot('chart', [s1],
   {
      animate: true,
      seriesColors: ['rgb(200,0,0)','rgb(255,128,0)','rgb(0,128,64)'],
      seriesDefaults:
      {
         renderer:$.jqplot.DonutRenderer,
         rendererOptions:
         {
            sliceMargin: 3,
            startAngle: 0,
            showDataLabels: true,
            dataLabels: 'value'
         }
      },
      grid:
      {
         background:'rgba(255,255,255,0)',
         borderWidth: 0,
         shadow: false
      }
   });
`

const overviewStyle = `<style>
   .jqplot-data-label { color:rgb(230,230,230); }
   #chart             { width:450px; height:450px; }
</style>
`
