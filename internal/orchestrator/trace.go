package orchestrator

import (
	"time"

	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/common/metrics"
)

// TraceRecord is one visited pipeline state. Records are immutable once
// appended; the full per-turn trace is part of the API response, so
// consumers can audit every routing decision the turn made.
type TraceRecord struct {
	Agent      string      `json:"agent"`
	Action     string      `json:"action"`
	Input      interface{} `json:"input,omitempty"`
	Output     interface{} `json:"output,omitempty"`
	Reasoning  string      `json:"reasoning,omitempty"`
	DurationMS int64       `json:"duration_ms"`
	Timestamp  time.Time   `json:"timestamp"`
	Success    bool        `json:"success"`
	Error      string      `json:"error,omitempty"`
}

// Tracker accumulates one turn's trace. Not safe for concurrent use; each
// turn owns its own Tracker.
type Tracker struct {
	records []TraceRecord
}

// Record appends one state visit and feeds the per-stage metrics. err marks
// the record failed; recovered failures still pass a non-nil err here so the
// trace shows what happened, even when the turn continues.
func (t *Tracker) Record(agent, action string, start time.Time, input, output interface{}, reasoning string, err error) {
	elapsed := time.Since(start)
	rec := TraceRecord{
		Agent:      agent,
		Action:     action,
		Input:      input,
		Output:     output,
		Reasoning:  reasoning,
		DurationMS: elapsed.Milliseconds(),
		Timestamp:  start.UTC(),
		Success:    err == nil,
	}
	if err != nil {
		rec.Error = err.Error()
		metrics.PipelineStageFailures.WithLabelValues(agent, string(errors.CodeOf(err))).Inc()
	}
	metrics.PipelineStageDuration.WithLabelValues(agent).Observe(elapsed.Seconds())
	t.records = append(t.records, rec)
}

// Records returns the trace in visit order.
func (t *Tracker) Records() []TraceRecord {
	return t.records
}
