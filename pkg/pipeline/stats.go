package pipeline

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Stats counts what happened to every line and frame.
// Counters are safe to read while the pipeline runs.
type Stats struct {
	startTime time.Time

	lines          atomic.Uint64
	frames         atomic.Uint64
	readings       atomic.Uint64
	resyncs        atomic.Uint64
	overruns       atomic.Uint64
	checksumErrors atomic.Uint64
	fieldErrors    atomic.Uint64
	incomplete     atomic.Uint64
	regressions    atomic.Uint64
	sinkErrors     atomic.Uint64
}

func NewStats() *Stats {
	return &Stats{startTime: time.Now()}
}

type StatsSnapshot struct {
	Uptime         time.Duration `json:"-"`
	UptimeSeconds  float64       `json:"uptime_seconds"`
	Lines          uint64        `json:"lines"`
	Frames         uint64        `json:"frames"`
	Readings       uint64        `json:"readings"`
	Resyncs        uint64        `json:"resyncs"`
	Overruns       uint64        `json:"overruns"`
	ChecksumErrors uint64        `json:"checksum_errors"`
	FieldErrors    uint64        `json:"field_errors"`
	Incomplete     uint64        `json:"incomplete_readings"`
	Regressions    uint64        `json:"timestamp_regressions"`
	SinkErrors     uint64        `json:"sink_errors"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	uptime := time.Since(s.startTime)
	return StatsSnapshot{
		Uptime:         uptime,
		UptimeSeconds:  uptime.Seconds(),
		Lines:          s.lines.Load(),
		Frames:         s.frames.Load(),
		Readings:       s.readings.Load(),
		Resyncs:        s.resyncs.Load(),
		Overruns:       s.overruns.Load(),
		ChecksumErrors: s.checksumErrors.Load(),
		FieldErrors:    s.fieldErrors.Load(),
		Incomplete:     s.incomplete.Load(),
		Regressions:    s.regressions.Load(),
		SinkErrors:     s.sinkErrors.Load(),
	}
}

// Dropped is the number of frames or readings that never reached a sink.
func (s StatsSnapshot) Dropped() uint64 {
	return s.Overruns + s.ChecksumErrors + s.Incomplete + s.Regressions
}

// String returns a formatted statistics summary
func (s StatsSnapshot) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Statistics (%.0f seconds) ===\n", s.Uptime.Seconds())
	fmt.Fprintf(&sb, "Lines:            %8d\n", s.Lines)
	fmt.Fprintf(&sb, "Frames:           %8d\n", s.Frames)
	fmt.Fprintf(&sb, "Readings:         %8d\n", s.Readings)
	if s.Resyncs > 0 {
		fmt.Fprintf(&sb, "Resyncs:          %8d\n", s.Resyncs)
	}
	if s.Overruns > 0 {
		fmt.Fprintf(&sb, "Overruns:         %8d\n", s.Overruns)
	}
	if s.ChecksumErrors > 0 {
		fmt.Fprintf(&sb, "Checksum Errors:  %8d\n", s.ChecksumErrors)
	}
	if s.FieldErrors > 0 {
		fmt.Fprintf(&sb, "Field Errors:     %8d\n", s.FieldErrors)
	}
	if s.Incomplete > 0 {
		fmt.Fprintf(&sb, "Incomplete:       %8d\n", s.Incomplete)
	}
	if s.Regressions > 0 {
		fmt.Fprintf(&sb, "Time Regressions: %8d\n", s.Regressions)
	}
	if s.SinkErrors > 0 {
		fmt.Fprintf(&sb, "Sink Errors:      %8d\n", s.SinkErrors)
	}
	sb.WriteString("================================\n")
	return sb.String()
}
