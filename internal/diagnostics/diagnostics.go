// Package diagnostics implements the per-request diagnostics record the
// Orchestrator accumulates across stage boundaries and returns alongside the
// final result envelope.
//
// Grounded on pipeline.py's PipelineDiagnostics dataclass (retries,
// validator_fail_reasons, executor_errors, timings_ms, generated_sql,
// final_sql, chosen_tables, detected_capabilities) and logger_config.py's
// log_agent_flow decorator's entry/exit/error event shape, re-expressed as a
// structured Sink interface (with a LoggerSink adapter) rather than a
// decorator wrapping every method. The Orchestrator records into Diagnostics
// only; it does not call a Sink, so no per-stage events are emitted through
// one.
package diagnostics

// Diagnostics is the per-request record, assembled incrementally by the
// Orchestrator and surfaced verbatim in the final result envelope.
type Diagnostics struct {
	Retries              int            `json:"retries"`
	ValidatorFailReasons []string       `json:"validator_fail_reasons"`
	ExecutorErrors       []string       `json:"executor_errors"`
	TimingsMS            map[string]int `json:"timings_ms"`
	GeneratedSQL         string         `json:"generated_sql,omitempty"`
	FinalSQL             string         `json:"final_sql,omitempty"`
	ChosenTables         []string       `json:"chosen_tables"`
	DetectedCapabilities []string       `json:"detected_capabilities"`
}

// New returns a zero-valued Diagnostics with its maps initialized.
func New() *Diagnostics {
	return &Diagnostics{TimingsMS: map[string]int{}}
}

// RecordTiming adds elapsedMS to stage's running total, matching
// pipeline.py's diag.timings_ms.setdefault(stage, 0); diag.timings_ms[stage]
// += elapsed pattern used for the validation stage across retries.
func (d *Diagnostics) RecordTiming(stage string, elapsedMS int) {
	d.TimingsMS[stage] += elapsedMS
}

// RecordValidatorFailure appends reason and bumps the retry counter.
func (d *Diagnostics) RecordValidatorFailure(reason string) {
	d.ValidatorFailReasons = append(d.ValidatorFailReasons, reason)
	d.Retries++
}

// RecordExecutorError appends err and bumps the retry counter.
func (d *Diagnostics) RecordExecutorError(err string) {
	d.ExecutorErrors = append(d.ExecutorErrors, err)
	d.Retries++
}

// Sink receives one structured event per stage boundary, for callers that
// want a live event stream (e.g. request-scoped logging) in addition to the
// final Diagnostics snapshot. A Logger satisfies Sink trivially via
// LoggerSink.
type Sink interface {
	Stage(name string, elapsedMS int, err error)
}

// LoggerSink adapts a logging.Logger-shaped emitter (any type with an Info
// and Warn method taking (msg string, kv ...any)) into a Sink. Declared
// structurally here rather than importing internal/logging, so diagnostics
// stays dependency-free and reusable from tests.
type LoggerSink struct {
	Info func(msg string, kv ...any)
	Warn func(msg string, kv ...any)
}

// Stage implements Sink.
func (l LoggerSink) Stage(name string, elapsedMS int, err error) {
	if err != nil {
		if l.Warn != nil {
			l.Warn("pipeline stage failed", "stage", name, "elapsed_ms", elapsedMS, "error", err)
		}
		return
	}
	if l.Info != nil {
		l.Info("pipeline stage completed", "stage", name, "elapsed_ms", elapsedMS)
	}
}
