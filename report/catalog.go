package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ansel1/htmlreport/results"
)

const (
	packagesFile    = "packages.html"
	packageRootFile = "package-root.html"
)

// packageFile returns the navigation page name of a package.
func packageFile(pkg string) string {
	return "package-" + pkg + ".html"
}

// classFile returns the log page name of a class.
func classFile(pkg, class string) string {
	if pkg == results.DefaultPackage {
		return class + ".html"
	}
	return pkg + "." + class + ".html"
}

// checkPageName rejects names that would place a page outside the log
// directory.
func checkPageName(kind, name string) error {
	if name == "" || strings.ContainsAny(name, `/\`+"\x00") {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}

type packageEntry struct {
	mu      sync.Mutex
	classes map[string]struct{}
}

// Catalog tracks the packages and classes that have a log page and keeps the
// navigation pages in sync with it.
//
// Every change rewrites the affected page from the full catalog state. The
// catalog lock covers the package set and packages.html; each package has its
// own lock covering its class set and package-<name>.html, so registrations in
// different packages proceed in parallel.
type Catalog struct {
	dir       string
	orgPrefix string
	escape    bool

	mu       sync.Mutex
	packages map[string]*packageEntry
}

// NewCatalog creates an empty catalog writing its pages to dir.
func NewCatalog(dir, orgPrefix string, escape bool) *Catalog {
	return &Catalog{
		dir:       dir,
		orgPrefix: orgPrefix,
		escape:    escape,
		packages:  make(map[string]*packageEntry),
	}
}

// RegisterClass adds class to pkg, rewriting packages.html when the package is
// new and package-<pkg>.html when the class is new. Registering a known class
// writes nothing. A failed rewrite leaves the catalog unchanged so that the next
// registration retries it; such failures are fatal since they break navigation.
// Names that cannot form a page name are rejected with a non-fatal error.
func (c *Catalog) RegisterClass(pkg, class string) error {
	if err := checkPageName("package", pkg); err != nil {
		return &WriteError{Artifact: packageFile(pkg), Err: err}
	}
	if err := checkPageName("class", class); err != nil {
		return &WriteError{Artifact: classFile(pkg, class), Err: err}
	}

	entry, err := c.packageEntry(pkg)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if _, exists := entry.classes[class]; exists {
		return nil
	}
	entry.classes[class] = struct{}{}

	name := packageFile(pkg)
	if err := rewriteFile(filepath.Join(c.dir, name), c.renderPackage(pkg, entry)); err != nil {
		delete(entry.classes, class)
		return &WriteError{Artifact: name, Fatal: true, Err: err}
	}
	return nil
}

// packageEntry returns the entry for pkg, adding it and rewriting packages.html if needed.
func (c *Catalog) packageEntry(pkg string) (*packageEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.packages[pkg]; exists {
		return entry, nil
	}

	entry := &packageEntry{classes: make(map[string]struct{})}
	c.packages[pkg] = entry

	if err := rewriteFile(filepath.Join(c.dir, packagesFile), c.renderPackages()); err != nil {
		delete(c.packages, pkg)
		return nil, &WriteError{Artifact: packagesFile, Fatal: true, Err: err}
	}
	return entry, nil
}

// Packages returns the registered package names in sorted order.
func (c *Catalog) Packages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sortedPackages()
}

// Classes returns the registered classes of pkg in sorted order.
func (c *Catalog) Classes(pkg string) []string {
	c.mu.Lock()
	entry, exists := c.packages[pkg]
	c.mu.Unlock()
	if !exists {
		return nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return sortedKeys(entry.classes)
}

// sortedPackages must be called with c.mu held.
func (c *Catalog) sortedPackages() []string {
	names := make([]string, 0, len(c.packages))
	for name := range c.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Catalog) text(s string) string {
	r := Renderer{Escape: c.escape}
	return r.text(s)
}

// renderPackages must be called with c.mu held.
func (c *Catalog) renderPackages() string {
	var b strings.Builder
	b.WriteString(navHead)
	b.WriteString("<tr><td class='noWrapColumn'>&nbsp</td></tr>\n")
	b.WriteString("<tr><td class='noWrapColumn'><b><a href='" + packageRootFile + "' target='classNames'>" +
		c.text(c.orgPrefix) + " </a></b></td></tr>\n")
	for _, pkg := range c.sortedPackages() {
		b.WriteString("<tr><td class='noWrapColumn'><a href='" + packageFile(pkg) + "' target='classNames'>" +
			c.text(DisplayName(pkg, c.orgPrefix)) + "</a></td></tr>\n")
	}
	b.WriteString(navTail)
	return b.String()
}

// renderPackage must be called with entry.mu held.
func (c *Catalog) renderPackage(pkg string, entry *packageEntry) string {
	var b strings.Builder
	b.WriteString(navHead)
	for _, class := range sortedKeys(entry.classes) {
		b.WriteString("<tr><td class='noWrapColumn'><a href='" + classFile(pkg, class) + "' target='content'>" +
			c.text(class) + "</a></td></tr>\n")
	}
	b.WriteString(navTail)
	return b.String()
}

const navHead = `<html>
<head>
   <link type='text/css' rel='stylesheet' href='` + stylesheetClassPage + `'></link>
</head>
<body>
<table class='tableLogLink'>
`

const navTail = `</table>
</body>
</html>
`
