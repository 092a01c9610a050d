package results

// EventType identifies the type of event emitted by the Registry.
type EventType string

const (
	EventClassStarted  EventType = "class_started"  // A class was started
	EventMethodUpdated EventType = "method_updated" // A method was started or changed state
	EventClassFinished EventType = "class_finished" // A class was finished
)

// Event represents a state change emitted by the Registry.
type Event struct {
	Type   EventType
	Class  ClassID
	Method string      // For EventMethodUpdated
	State  MethodState // For EventMethodUpdated
}

// NewClassStartedEvent creates a new ClassStarted event.
func NewClassStartedEvent(id ClassID) Event {
	return Event{
		Type:  EventClassStarted,
		Class: id,
	}
}

// NewMethodUpdatedEvent creates a new MethodUpdated event.
func NewMethodUpdatedEvent(id ClassID, method string, state MethodState) Event {
	return Event{
		Type:   EventMethodUpdated,
		Class:  id,
		Method: method,
		State:  state,
	}
}

// NewClassFinishedEvent creates a new ClassFinished event.
func NewClassFinishedEvent(id ClassID) Event {
	return Event{
		Type:  EventClassFinished,
		Class: id,
	}
}
