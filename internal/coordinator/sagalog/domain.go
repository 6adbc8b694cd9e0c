// Package sagalog records every state transition of a checkout settlement
// saga. Each entry carries the OpenTelemetry trace and span ids that were
// active when it was written, so a log row leads straight to its trace.
package sagalog

import "time"

// Status is the lifecycle state of a saga execution.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
)

// SagaLog is one appended transition.
type SagaLog struct {
	// SagaID is the order id being settled.
	SagaID string `json:"saga_id"`

	Status Status `json:"status"`

	// CurrentStep is the step that just finished or failed.
	CurrentStep string `json:"current_step,omitempty"`

	// Payload is the JSON input, written only with the STARTED entry.
	Payload string `json:"payload,omitempty"`

	// ErrorMessages is a JSON array of failure and compensation messages.
	ErrorMessages string `json:"error_messages"`

	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}
