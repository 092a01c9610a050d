package results

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// classEntry is the registry's private, lock-protected copy of a ClassResult.
type classEntry struct {
	mu     sync.Mutex
	result ClassResult
}

// Registry is the single source of truth for class and method lifecycle state.
//
// Every operation is safe for concurrent use. The class map is guarded by an
// RWMutex and each class carries its own mutex, so work on different classes
// never waits on anything but the brief map lookup. Lifecycle calls made out of
// order fail with a *PreconditionError instead of producing garbled timings.
type Registry struct {
	mu      sync.RWMutex
	classes map[ClassID]*classEntry

	subscribers []chan Event
	subMu       sync.Mutex
	closed      bool

	now func() time.Time
}

// Option configures the registry
type Option func(*Registry)

// WithClock replaces time.Now as the source of start and end timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		classes:     make(map[ClassID]*classEntry),
		subscribers: make([]chan Event, 0),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe returns a channel that will receive registry events.
// The caller should read from this channel until it is closed by Close.
func (r *Registry) Subscribe() <-chan Event {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	ch := make(chan Event, 100)
	if r.closed {
		close(ch)
		return ch
	}
	r.subscribers = append(r.subscribers, ch)
	return ch
}

// emit sends an event to all subscribers.
func (r *Registry) emit(evt Event) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	if r.closed {
		return
	}
	for _, sub := range r.subscribers {
		sub <- evt
	}
}

// Close closes all subscriber channels. Lifecycle calls remain valid afterwards
// but no longer emit events.
func (r *Registry) Close() {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for _, sub := range r.subscribers {
		close(sub)
	}
}

// lookup returns the entry for id, or nil.
func (r *Registry) lookup(id ClassID) *classEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.classes[id]
}

// getOrCreate returns the entry for id, creating it if needed.
// Concurrent first access creates at most one entry.
func (r *Registry) getOrCreate(id ClassID) *classEntry {
	if entry := r.lookup(id); entry != nil {
		return entry
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.classes[id]; exists {
		return entry
	}
	entry := &classEntry{
		result: ClassResult{
			ID:      id,
			Methods: make(map[string]*MethodResult),
		},
	}
	r.classes[id] = entry
	return entry
}

// StartClass marks the class as started. Re-entry for an already started class
// is allowed and keeps the original start time.
func (r *Registry) StartClass(id ClassID) {
	entry := r.getOrCreate(id)

	entry.mu.Lock()
	if entry.result.StartTime.IsZero() {
		entry.result.StartTime = r.now()
	}
	entry.mu.Unlock()

	r.emit(NewClassStartedEvent(id))
}

// FinishClass marks the class as finished.
func (r *Registry) FinishClass(id ClassID) error {
	entry := r.lookup(id)
	if entry == nil {
		return &PreconditionError{Op: "FinishClass", Class: id, Reason: "class was never started"}
	}

	entry.mu.Lock()
	if entry.result.StartTime.IsZero() {
		entry.mu.Unlock()
		return &PreconditionError{Op: "FinishClass", Class: id, Reason: "class was never started"}
	}
	entry.result.EndTime = r.now()
	entry.mu.Unlock()

	r.emit(NewClassFinishedEvent(id))
	return nil
}

// StartMethod creates the method result, or resets an existing one so that the
// method can be run again.
func (r *Registry) StartMethod(id ClassID, method string) error {
	entry := r.lookup(id)
	if entry == nil {
		return &PreconditionError{Op: "StartMethod", Class: id, Method: method, Reason: "class was never started"}
	}

	entry.mu.Lock()
	if entry.result.StartTime.IsZero() {
		entry.mu.Unlock()
		return &PreconditionError{Op: "StartMethod", Class: id, Method: method, Reason: "class was never started"}
	}
	mr, exists := entry.result.Methods[method]
	if !exists {
		mr = &MethodResult{Name: method}
		entry.result.Methods[method] = mr
	}
	mr.State = StateUnknown
	mr.StartTime = r.now()
	mr.EndTime = time.Time{}
	entry.mu.Unlock()

	r.emit(NewMethodUpdatedEvent(id, method, StateUnknown))
	return nil
}

// SetMethodState records the outcome of a started method. A terminal state also
// records the method end time. A method that already holds a terminal state must
// be started again before it can take another one.
func (r *Registry) SetMethodState(id ClassID, method string, state MethodState) error {
	entry := r.lookup(id)
	if entry == nil {
		return &PreconditionError{Op: "SetMethodState", Class: id, Method: method, Reason: "method was never started"}
	}

	entry.mu.Lock()
	mr, exists := entry.result.Methods[method]
	if !exists {
		entry.mu.Unlock()
		return &PreconditionError{Op: "SetMethodState", Class: id, Method: method, Reason: "method was never started"}
	}
	if mr.State.Terminal() {
		entry.mu.Unlock()
		return &PreconditionError{
			Op:     "SetMethodState",
			Class:  id,
			Method: method,
			Reason: fmt.Sprintf("method already %s", mr.State),
		}
	}
	mr.State = state
	if state.Terminal() {
		end := r.now()
		if end.Before(mr.StartTime) {
			end = mr.StartTime
		}
		mr.EndTime = end
	}
	entry.mu.Unlock()

	r.emit(NewMethodUpdatedEvent(id, method, state))
	return nil
}

// MethodState returns the state of a method, or StateUnknown if it was never started.
func (r *Registry) MethodState(id ClassID, method string) MethodState {
	entry := r.lookup(id)
	if entry == nil {
		return StateUnknown
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if mr, exists := entry.result.Methods[method]; exists {
		return mr.State
	}
	return StateUnknown
}

// ClassDuration returns the formatted time between StartClass and FinishClass.
func (r *Registry) ClassDuration(id ClassID) (string, error) {
	d, err := r.ClassElapsed(id)
	if err != nil {
		return "", err
	}
	return FormatDuration(d), nil
}

// ClassElapsed returns the time between StartClass and FinishClass.
func (r *Registry) ClassElapsed(id ClassID) (time.Duration, error) {
	entry := r.lookup(id)
	if entry == nil {
		return 0, &PreconditionError{Op: "ClassDuration", Class: id, Reason: "class was never started"}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.result.EndTime.IsZero() {
		return 0, &PreconditionError{Op: "ClassDuration", Class: id, Reason: "class has not finished"}
	}
	return entry.result.EndTime.Sub(entry.result.StartTime), nil
}

// MethodDuration returns the formatted time between StartMethod and the terminal state.
func (r *Registry) MethodDuration(id ClassID, method string) (string, error) {
	entry := r.lookup(id)
	if entry == nil {
		return "", &PreconditionError{Op: "MethodDuration", Class: id, Method: method, Reason: "method was never started"}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	mr, exists := entry.result.Methods[method]
	if !exists {
		return "", &PreconditionError{Op: "MethodDuration", Class: id, Method: method, Reason: "method was never started"}
	}
	if mr.EndTime.IsZero() {
		return "", &PreconditionError{Op: "MethodDuration", Class: id, Method: method, Reason: "method has not finished"}
	}
	return FormatDuration(mr.EndTime.Sub(mr.StartTime)), nil
}

// Summarize returns the method counts of a class. Unknown classes yield zero counts.
func (r *Registry) Summarize(id ClassID) Counts {
	entry := r.lookup(id)
	if entry == nil {
		return Counts{}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return entry.result.Counts()
}

// Class returns a snapshot of one class result.
func (r *Registry) Class(id ClassID) (ClassResult, bool) {
	entry := r.lookup(id)
	if entry == nil {
		return ClassResult{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return entry.snapshot(), true
}

// Classes returns snapshots of every known class, sorted by class ID.
func (r *Registry) Classes() []ClassResult {
	r.mu.RLock()
	entries := make([]*classEntry, 0, len(r.classes))
	for _, entry := range r.classes {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	snapshots := make([]ClassResult, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		snapshots = append(snapshots, entry.snapshot())
		entry.mu.Unlock()
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ID < snapshots[j].ID
	})
	return snapshots
}

// snapshot deep-copies the result. The caller must hold e.mu.
func (e *classEntry) snapshot() ClassResult {
	c := e.result
	c.Methods = make(map[string]*MethodResult, len(e.result.Methods))
	for name, mr := range e.result.Methods {
		cp := *mr
		c.Methods[name] = &cp
	}
	return c
}
