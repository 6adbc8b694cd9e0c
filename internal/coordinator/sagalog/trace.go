package sagalog

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// TraceInfo holds the OTel identifiers extracted from a context.
type TraceInfo struct {
	TraceID string
	SpanID  string
}

// ExtractTraceInfo returns the hex trace and span ids of the span active in
// ctx. Both are empty when ctx carries no valid span, as in unit tests.
func ExtractTraceInfo(ctx context.Context) TraceInfo {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return TraceInfo{}
	}
	return TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

// NewEntry builds an entry stamped with the trace info found in ctx.
//
//	entry := sagalog.NewEntry(ctx, orderID, sagalog.StatusStepDone, "Settle_Payment_Step", "", nil)
//	_ = repo.Save(ctx, entry)
func NewEntry(
	ctx context.Context,
	sagaID string,
	status Status,
	currentStep string,
	payload string,
	errs []string,
) *SagaLog {
	ti := ExtractTraceInfo(ctx)

	errJSON := "[]"
	if len(errs) > 0 {
		if b, err := json.Marshal(errs); err == nil {
			errJSON = string(b)
		}
	}

	return &SagaLog{
		SagaID:        sagaID,
		Status:        status,
		CurrentStep:   currentStep,
		Payload:       payload,
		ErrorMessages: errJSON,
		TraceID:       ti.TraceID,
		SpanID:        ti.SpanID,
		UpdatedAt:     time.Now().UTC(),
	}
}
