package results

import (
	"errors"
	"fmt"
)

// ErrPrecondition is matched by every *PreconditionError via errors.Is.
var ErrPrecondition = errors.New("lifecycle precondition violated")

// PreconditionError reports a lifecycle call made out of order, e.g. finishing a
// class that was never started. It signals an integration bug and is not retryable.
type PreconditionError struct {
	Op     string
	Class  ClassID
	Method string
	Reason string
}

func (e *PreconditionError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("%s: %s (class=%s method=%s)", e.Op, e.Reason, e.Class, e.Method)
	}
	return fmt.Sprintf("%s: %s (class=%s)", e.Op, e.Reason, e.Class)
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}
