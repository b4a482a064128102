package service

import (
	"github.com/EduPulseAI/engagement-service/pkg/config"
)

// Window is a tumbling event-time interval [Start, End) in epoch milliseconds.
type Window struct {
	Start int64
	End   int64
}

// WindowAssigner buckets events into fixed-size tumbling windows and decides,
// against a per-key watermark, whether a window may still accept events.
type WindowAssigner struct {
	durationMs int64
	graceMs    int64
}

// NewWindowAssigner constructs an assigner from the configured window
// parameters.
func NewWindowAssigner(cfg config.WindowConfig) *WindowAssigner {
	return &WindowAssigner{
		durationMs: cfg.Duration.Milliseconds(),
		graceMs:    cfg.Grace.Milliseconds(),
	}
}

// Assign returns the window the given event time falls into.
func (w *WindowAssigner) Assign(timestamp int64) Window {
	start := timestamp - mod(timestamp, w.durationMs)
	return Window{Start: start, End: start + w.durationMs}
}

// Accepts reports whether a window may still take events given the maximum
// event time observed so far for the key. Once the watermark passes the
// window end plus grace, late events for that window are dropped rather than
// re-opening it.
func (w *WindowAssigner) Accepts(window Window, watermark int64) bool {
	return watermark < window.End+w.graceMs
}

// RetentionMs is how long a window's aggregate is kept after its start,
// measured in event time.
func (w *WindowAssigner) RetentionMs() int64 {
	return w.durationMs + w.graceMs
}

// mod is a floored modulo so that pre-epoch timestamps still land in the
// window that contains them.
func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
