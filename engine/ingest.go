package engine

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/ansel1/htmlreport/logging"
	"github.com/ansel1/htmlreport/parser"
	"github.com/ansel1/htmlreport/report"
)

// Dispatcher applies report events. *report.Session implements it.
type Dispatcher interface {
	Dispatch(report.Event) error
}

// Ingest feeds the records of events into d until the stream completes or ctx
// is cancelled. Raw lines are handed to onRaw, which may be nil.
//
// A record that cannot be translated, or whose dispatch fails with a non-fatal
// error, is logged and skipped. The first fatal error stops dispatching while
// the stream is read to its end. When the input ends without a run-finish
// record the run is finished anyway, so that every page gets closed and the
// overview written. After a cancellation Ingest returns at once and the rest
// of the stream is discarded in the background.
func Ingest(ctx context.Context, events <-chan Event, d Dispatcher, onRaw func(line []byte)) error {
	var (
		result     *multierror.Error
		fatal      error
		dispatched int
		finished   bool
	)

	dispatch := func(evt report.Event) {
		if fatal != nil {
			return
		}
		dispatched++
		if err := d.Dispatch(evt); err != nil {
			if report.IsFatal(err) {
				fatal = err
				logging.Error("Ingest", err, "aborting report generation")
				return
			}
			logging.Warn("Ingest", "%v", err)
		}
	}

	finish := func() {
		if finished || dispatched == 0 {
			return
		}
		finished = true
		logging.Warn("Ingest", "input ended before run-finish, finishing the report")
		dispatch(report.RunFinished{})
	}

loop:
	for {
		select {
		case <-ctx.Done():
			finish()
			result = multierror.Append(result, ctx.Err())
			go discard(events)
			break loop
		case evt, ok := <-events:
			if !ok {
				finish()
				break loop
			}
			switch evt.Type {
			case EventRawLine:
				if onRaw != nil {
					onRaw(evt.RawLine)
				}
			case EventRecord:
				translated, err := evt.Record.Report()
				if err != nil {
					logging.Warn("Ingest", "skipping %s record: %v", evt.Record.Action, err)
					continue
				}
				if evt.Record.Action == parser.ActionRunFinish {
					finished = true
				}
				dispatch(translated)
			case EventError:
				result = multierror.Append(result, evt.Error)
			case EventComplete:
				finish()
			}
		}
	}

	if fatal != nil {
		result = multierror.Append(result, fatal)
	}
	return result.ErrorOrNil()
}

func discard(events <-chan Event) {
	for range events {
	}
}
