package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jcmexdev/pizzeria-storefront/internal/coordinator/sagalog"
)

// Step represents a single unit of work in the Saga.
// Each step must have a compensating action to undo its effects.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Orchestrator manages the execution of a collection of Steps.
type Orchestrator struct {
	sagaID  string
	payload string
	steps   []Step
	log     sagalog.Repository
}

// NewOrchestrator builds a saga. logRepo may be nil, in which case state
// transitions are not recorded.
func NewOrchestrator(sagaID string, steps []Step, logRepo sagalog.Repository) *Orchestrator {
	return &Orchestrator{sagaID: sagaID, steps: steps, log: logRepo}
}

// WithPayload attaches the JSON input recorded with the STARTED entry.
func (o *Orchestrator) WithPayload(payload string) *Orchestrator {
	o.payload = payload
	return o
}

// Start runs the saga steps sequentially.
// If a step fails, it triggers the compensation of all previously successful steps.
// Compensation runs on a context detached from ctx's cancellation so an
// abandoned request still undoes what it already did.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.record(ctx, sagalog.StatusStarted, "", o.payload, nil)

	var successfulSteps []Step

	for _, step := range o.steps {
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, step, successfulSteps, fmt.Errorf("step %s not started: %w", step.Name(), err))
		}

		slog.DebugContext(ctx, "executing saga step", "saga_id", o.sagaID, "step", step.Name())
		if err := step.Execute(ctx); err != nil {
			return o.fail(ctx, step, successfulSteps, fmt.Errorf("step %s: %w", step.Name(), err))
		}
		// Track successful step for potential compensation (LIFO)
		successfulSteps = append(successfulSteps, step)
		o.record(ctx, sagalog.StatusStepDone, step.Name(), "", nil)
	}

	o.record(ctx, sagalog.StatusCompleted, "", "", nil)
	slog.InfoContext(ctx, "saga completed", "saga_id", o.sagaID)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, failed Step, done []Step, err error) error {
	slog.WarnContext(ctx, "saga step failed, starting rollback", "saga_id", o.sagaID, "step", failed.Name(), "error", err)

	compCtx := context.WithoutCancel(ctx)
	errs := []string{err.Error()}
	o.record(compCtx, sagalog.StatusCompensating, failed.Name(), "", errs)

	errs = append(errs, o.rollback(compCtx, done)...)
	o.record(compCtx, sagalog.StatusFailed, failed.Name(), "", errs)
	return err
}

func (o *Orchestrator) rollback(ctx context.Context, steps []Step) []string {
	var errs []string
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		slog.InfoContext(ctx, "compensating saga step", "saga_id", o.sagaID, "step", step.Name())
		if err := step.Compensate(ctx); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: failed to compensate saga step", "saga_id", o.sagaID, "step", step.Name(), "error", err)
			errs = append(errs, fmt.Sprintf("compensation of %s failed: %v", step.Name(), err))
		}
	}
	return errs
}

func (o *Orchestrator) record(ctx context.Context, status sagalog.Status, step, payload string, errs []string) {
	if o.log == nil {
		return
	}
	entry := sagalog.NewEntry(ctx, o.sagaID, status, step, payload, errs)
	if err := o.log.Save(ctx, entry); err != nil {
		slog.WarnContext(ctx, "failed to write saga log", "saga_id", o.sagaID, "status", status, "error", err)
	}
}
