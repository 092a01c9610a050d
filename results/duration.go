package results

import (
	"fmt"
	"time"
)

// FormatElapsed formats elapsed milliseconds as MM:SS.mmm, or HH:MM:SS.mmm once
// the duration reaches one hour. Negative values are treated as zero.
func FormatElapsed(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3_600_000
	minutes := (ms / 60_000) % 60
	seconds := (ms / 1000) % 60
	millis := ms % 1000

	if hours == 0 {
		return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

// FormatDuration is FormatElapsed for a time.Duration.
func FormatDuration(d time.Duration) string {
	return FormatElapsed(d.Milliseconds())
}

func fmtCounts(c Counts) string {
	return fmt.Sprintf("Total=%-2d, Pass=%-2d, Fail=%-2d, Skip=%-2d", c.Total, c.Passed, c.Failed, c.Skipped)
}
