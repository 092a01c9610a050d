package report

import (
	"errors"
	"fmt"

	"github.com/ansel1/htmlreport/results"
	"github.com/hashicorp/go-multierror"
)

// ErrClosed is returned when logging to a class page that has already been closed.
var ErrClosed = errors.New("class log closed")

// WriteError reports a failure to create or write a report artifact.
//
// Fatal is set for artifacts shared by the whole report (index, navigation and
// overview pages). A failure on a single class page is not fatal: other classes
// keep logging.
type WriteError struct {
	Artifact string
	Fatal    bool
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Artifact, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must abort the run: a lifecycle precondition
// violation or a fatal WriteError, possibly inside a multierror.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			if IsFatal(e) {
				return true
			}
		}
		return false
	}
	if errors.Is(err, results.ErrPrecondition) {
		return true
	}
	var werr *WriteError
	if errors.As(err, &werr) {
		return werr.Fatal
	}
	return true
}
