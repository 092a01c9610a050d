package engine

import (
	"bufio"
	"io"
	"time"

	"github.com/ansel1/htmlreport/parser"
)

// lineWithTiming is an input line and the time it was originally written.
type lineWithTiming struct {
	line      []byte
	timestamp time.Time
}

// ReplayReader wraps a recorded event stream and plays it back with the delays
// between the original event timestamps, scaled by rate.
type ReplayReader struct {
	lines         []lineWithTiming
	rate          float64
	currentIdx    int
	lineBuffer    []byte
	bufferPos     int
	firstRead     bool
	lastEventTime time.Time
}

// NewReplayReader reads the whole recording up front. A rate of 0 replays
// instantly, 1 at the original speed and 0.5 twice as fast.
func NewReplayReader(r io.Reader, rate float64) (*ReplayReader, error) {
	var lines []lineWithTiming
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		lineCopy := make([]byte, len(line))
		copy(lineCopy, line)

		// Lines without a timestamp inherit the previous one.
		var ts time.Time
		if len(lines) > 0 {
			ts = lines[len(lines)-1].timestamp
		}
		if record, err := parser.ParseEvent(lineCopy); err == nil && !record.Time.IsZero() {
			ts = record.Time
		}
		lines = append(lines, lineWithTiming{line: lineCopy, timestamp: ts})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &ReplayReader{
		lines:      lines,
		rate:       rate,
		currentIdx: 0,
		firstRead:  true,
	}, nil
}

// Read implements io.Reader, returning data line-by-line with timing delays
func (r *ReplayReader) Read(p []byte) (n int, err error) {
	// Finish the line being returned first.
	if r.bufferPos < len(r.lineBuffer) {
		n = copy(p, r.lineBuffer[r.bufferPos:])
		r.bufferPos += n
		return n, nil
	}

	if r.currentIdx >= len(r.lines) {
		return 0, io.EOF
	}

	current := r.lines[r.currentIdx]

	if !r.firstRead && r.rate > 0 && !r.lastEventTime.IsZero() && !current.timestamp.IsZero() {
		actualDelay := current.timestamp.Sub(r.lastEventTime)
		if actualDelay > 0 {
			adjustedDelay := time.Duration(float64(actualDelay) * r.rate)
			time.Sleep(adjustedDelay)
		}
	}

	r.firstRead = false
	if !current.timestamp.IsZero() {
		r.lastEventTime = current.timestamp
	}

	r.lineBuffer = make([]byte, len(current.line)+1)
	copy(r.lineBuffer, current.line)
	r.lineBuffer[len(current.line)] = '\n'
	r.bufferPos = 0
	r.currentIdx++

	n = copy(p, r.lineBuffer[r.bufferPos:])
	r.bufferPos += n

	return n, nil
}
