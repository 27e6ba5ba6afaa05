package saga

import (
	"context"
	"log"
	"net/http"
	"time"
)

// SagaOutcome is the terminal state of one orchestrated request. It is
// observed through logs, metrics and the event feed; nothing persists it.
type SagaOutcome string

const (
	OutcomeSuccess                   SagaOutcome = "success"
	OutcomeFailed                    SagaOutcome = "failed"
	OutcomeCompensationPublished     SagaOutcome = "compensation_published"
	OutcomeCompensationPublishFailed SagaOutcome = "compensation_publish_failed"
)

// ActivityResult is the structured outcome of the activity-step call.
type ActivityResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StatusSuccess is the activity-step status that lets the saga complete.
const StatusSuccess = "success"

// StatusFailure marks a failed activity step.
const StatusFailure = "failure"

// Succeeded reports whether the activity step confirmed success.
func (r ActivityResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// ActivityCaller invokes the activity step synchronously. A transport
// failure (timeout, unreachable endpoint, non-2xx) is reported as an
// error; the orchestrator treats it as a failed step, never as its own
// fault.
type ActivityCaller interface {
	Call(ctx context.Context, record TransactionRecord) (ActivityResult, error)
}

// CompensationPublisher publishes a compensation message carrying the
// record that must be undone.
type CompensationPublisher interface {
	PublishCompensation(ctx context.Context, record TransactionRecord) error
}

// Notifier receives the outcome of each orchestrated request.
type Notifier interface {
	SagaFinished(orderID string, outcome SagaOutcome, message string)
}

// Orchestrator coordinates one saga per inbound request: run the
// activity step, and trigger compensation when it cannot be confirmed
// successful. It holds no cross-request state.
type Orchestrator struct {
	activity    ActivityCaller
	compensator CompensationPublisher
	notifier    Notifier
	timeout     time.Duration
	logf        func(format string, args ...any)
}

// NewOrchestrator constructs an Orchestrator. timeout bounds the wait on
// the activity-step call; notifier may be nil.
func NewOrchestrator(activity ActivityCaller, compensator CompensationPublisher, notifier Notifier, timeout time.Duration, logf func(format string, args ...any)) *Orchestrator {
	if logf == nil {
		logf = log.Printf
	}
	return &Orchestrator{
		activity:    activity,
		compensator: compensator,
		notifier:    notifier,
		timeout:     timeout,
		logf:        logf,
	}
}

// Canonical response bodies for the saga entry point.
const (
	ResponseCompleted  = "Saga completed successfully."
	ResponseFailed     = "Saga failed. Compensation triggered."
	ResponseUnexpected = "Unexpected error occurred."
)

// StartSaga runs one saga for the given request body and returns the
// HTTP-style status and response text. A body that does not parse as a
// TransactionRecord produces the error response with no side effects.
// A failed activity step triggers exactly one compensation publish; the
// response stays failed whether or not that publish succeeds.
func (o *Orchestrator) StartSaga(ctx context.Context, body []byte) (int, string) {
	record, err := ParseRecord(body)
	if err != nil {
		o.logf("orchestrator: rejecting request: %v", err)
		return http.StatusInternalServerError, ResponseUnexpected
	}

	result := o.callActivity(ctx, record)
	if result.Succeeded() {
		o.logf("orchestrator: saga completed for order %s", record.OrderID)
		o.notify(record.OrderID, OutcomeSuccess, result.Message)
		return http.StatusOK, ResponseCompleted
	}

	o.logf("orchestrator: activity step failed for order %s: %s", record.OrderID, result.Message)
	o.notify(record.OrderID, OutcomeFailed, result.Message)

	if err := o.compensator.PublishCompensation(ctx, record); err != nil {
		// Best effort: the saga stays failed and uncompensated. No retry.
		o.logf("orchestrator: compensation publish failed for order %s: %v", record.OrderID, err)
		o.notify(record.OrderID, OutcomeCompensationPublishFailed, err.Error())
	} else {
		o.logf("orchestrator: compensation triggered for order %s", record.OrderID)
		o.notify(record.OrderID, OutcomeCompensationPublished, "")
	}

	return http.StatusInternalServerError, ResponseFailed
}

// callActivity performs the single bounded activity-step call. Any error
// from the caller is folded into a failure result; a late response after
// the deadline is abandoned, not awaited.
func (o *Orchestrator) callActivity(ctx context.Context, record TransactionRecord) ActivityResult {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	result, err := o.activity.Call(ctx, record)
	if err != nil {
		return ActivityResult{Status: StatusFailure, Message: err.Error()}
	}
	return result
}

func (o *Orchestrator) notify(orderID string, outcome SagaOutcome, message string) {
	if o.notifier != nil {
		o.notifier.SagaFinished(orderID, outcome, message)
	}
}
