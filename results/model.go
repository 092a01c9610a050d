package results

import (
	"strings"
	"time"
)

// ClassID is the fully-qualified name of a test class, e.g. "com.example.root.p1.ClassA".
type ClassID string

// DefaultPackage is used for classes whose identity carries no package qualifier.
const DefaultPackage = "default"

// Package returns everything before the last dot, or DefaultPackage when there is none.
func (id ClassID) Package() string {
	i := strings.LastIndex(string(id), ".")
	if i <= 0 {
		return DefaultPackage
	}
	return string(id[:i])
}

// SimpleName returns the part after the last dot.
func (id ClassID) SimpleName() string {
	i := strings.LastIndex(string(id), ".")
	if i < 0 {
		return string(id)
	}
	return string(id[i+1:])
}

func (id ClassID) String() string {
	return string(id)
}

// MethodState is the outcome of a single test method.
type MethodState int

const (
	StateUnknown MethodState = iota
	StatePassed
	StateFailed
	StateSkipped
)

func (s MethodState) String() string {
	switch s {
	case StatePassed:
		return "passed"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is a final outcome.
// A method never leaves a terminal state unless it is started again.
func (s MethodState) Terminal() bool {
	return s == StatePassed || s == StateFailed || s == StateSkipped
}

// MethodResult represents the timing and outcome of one test method.
type MethodResult struct {
	Name      string
	State     MethodState
	StartTime time.Time
	EndTime   time.Time // zero until the method reaches a terminal state
}

// Finished reports whether the method has an end time.
func (m MethodResult) Finished() bool {
	return !m.EndTime.IsZero()
}

// ClassResult is the aggregated state of all methods of one test class.
//
// ClassResult values returned by the Registry are snapshots; mutating them
// has no effect on the registry.
type ClassResult struct {
	ID        ClassID
	StartTime time.Time
	EndTime   time.Time                // zero until FinishClass
	Methods   map[string]*MethodResult // method name -> result
}

// Started reports whether StartClass was observed for this class.
func (c ClassResult) Started() bool {
	return !c.StartTime.IsZero()
}

// Finished reports whether FinishClass was observed for this class.
func (c ClassResult) Finished() bool {
	return !c.EndTime.IsZero()
}

// Counts returns the method outcome counts of the class.
func (c ClassResult) Counts() Counts {
	var counts Counts
	for _, m := range c.Methods {
		counts.add(m.State)
	}
	return counts
}

// Counts holds method counts per state. Passed+Failed+Skipped+Unknown always equals Total.
type Counts struct {
	Passed  int
	Failed  int
	Skipped int
	Unknown int
	Total   int
}

func (c *Counts) add(state MethodState) {
	c.Total++
	switch state {
	case StatePassed:
		c.Passed++
	case StateFailed:
		c.Failed++
	case StateSkipped:
		c.Skipped++
	default:
		c.Unknown++
	}
}

// String renders the counts the way the class log summary line shows them.
func (c Counts) String() string {
	return fmtCounts(c)
}
