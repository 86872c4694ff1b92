package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentcommerce/x402-a2a/a2a"
	"github.com/agentcommerce/x402-a2a/facilitator"
	"github.com/agentcommerce/x402-a2a/protocol"
	"github.com/agentcommerce/x402-a2a/types"
)

// ServerExecutor is the merchant-side payment state machine. It wraps a
// business-logic delegate and turns its payment-required signal into the
// request → submit → verify → execute → settle flow, persisting every
// transition onto the task exchanged with the peer.
//
// Per payment attempt the status moves monotonically through
//
//	payment-required → payment-submitted → payment-verified →
//	payment-completed | payment-failed
//
// with payment-failed reachable from any point. Completed, failed, and
// rejected are terminal.
type ServerExecutor struct {
	delegate a2a.Executor
	fac      facilitator.Client
	store    RequirementsStore
	utils    protocol.Utils
	opts     options
}

// NewServerExecutor wraps delegate with payment middleware backed by the
// given facilitator.
func NewServerExecutor(delegate a2a.Executor, fac facilitator.Client, opts ...Option) *ServerExecutor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = NewMemoryStore()
	}
	return &ServerExecutor{
		delegate: delegate,
		fac:      fac,
		store:    o.store,
		opts:     o,
	}
}

// Execute runs one turn. The task is submitted and marked in progress
// before any business logic runs; the transport requires the task to exist
// before subsequent events referencing it are valid.
func (e *ServerExecutor) Execute(ctx context.Context, rc *a2a.RequestContext, q a2a.EventQueue) error {
	if !isActive(rc) {
		return e.delegate.Execute(ctx, rc, q)
	}

	updater := a2a.NewTaskUpdater(q, rc.TaskID, rc.ContextID)
	if rc.CurrentTask == nil {
		if err := updater.Submit(ctx); err != nil {
			return err
		}
	}
	if err := updater.StartWork(ctx); err != nil {
		return err
	}

	// A resubmission may carry fresher status on the incoming message than
	// what was persisted on the task; either one saying payment-submitted
	// routes the turn down the paid path.
	taskStatus, _ := e.utils.PaymentStatus(rc.CurrentTask)
	messageStatus, _ := e.utils.PaymentStatusFromMessage(rc.Message)
	if taskStatus == types.PaymentSubmitted || messageStatus == types.PaymentSubmitted {
		return e.processPaidRequest(ctx, rc, q)
	}

	err := safeExecute(ctx, e.delegate, rc, q)
	var payErr *types.PaymentRequiredError
	if errors.As(err, &payErr) {
		return e.handlePaymentRequired(ctx, payErr, rc, q)
	}
	return err
}

// Cancel is not supported by the payment middleware.
func (e *ServerExecutor) Cancel(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
	return a2a.ErrCancelNotSupported
}

// processPaidRequest handles a turn whose status is payment-submitted:
// extract payload, match stored requirements, verify, re-invoke the
// delegate, settle, and record the outcome.
func (e *ServerExecutor) processPaidRequest(ctx context.Context, rc *a2a.RequestContext, q a2a.EventQueue) error {
	task := rc.CurrentTask
	if task == nil {
		return fmt.Errorf("task not found in context during payment processing")
	}

	e.opts.log.Info("processing submitted payment", "task_id", task.ID)

	// The incoming message is the freshest data; prefer its payload over
	// what was persisted on the task.
	payload := e.utils.PaymentPayloadFromMessage(rc.Message)
	if payload == nil {
		payload = e.utils.PaymentPayload(task)
	}
	if payload == nil {
		e.opts.log.Warn("payment payload missing from task and message", "task_id", task.ID)
		return e.failPayment(ctx, task, types.ErrInvalidSignature, "missing payment data", "", q)
	}

	// Atomically consume the stored accepts list. A duplicate concurrent
	// submission for the same task finds nothing here and fails, so at most
	// one settlement can happen per task.
	accepts, ok, err := e.store.Take(ctx, task.ID)
	if err != nil {
		return e.failPayment(ctx, task, types.ErrInvalidSignature, fmt.Sprintf("requirements lookup failed: %v", err), payload.Network, q)
	}
	if !ok {
		e.opts.log.Warn("no stored payment requirements for task", "task_id", task.ID)
		return e.failPayment(ctx, task, types.ErrInvalidSignature, "missing payment requirements", payload.Network, q)
	}

	requirements := matchRequirement(accepts, payload)
	if requirements == nil {
		e.opts.log.Warn("no payment requirement matches submitted payload",
			"task_id", task.ID, "scheme", payload.Scheme, "network", payload.Network)
		return e.failPayment(ctx, task, types.ErrInvalidSignature, "no matching payment requirements", payload.Network, q)
	}

	verifyStart := time.Now()
	verifyResp, err := e.fac.Verify(ctx, payload, requirements)
	e.opts.rec.ObserveLatency("verify", requirements.Network, time.Since(verifyStart))
	if err != nil {
		e.opts.log.Error("payment verification errored", "task_id", task.ID, "error", err)
		return e.failPayment(ctx, task, types.ErrInvalidSignature, fmt.Sprintf("verification failed: %v", err), requirements.Network, q)
	}
	if !verifyResp.IsValid {
		reason := verifyResp.InvalidReason
		if reason == "" {
			reason = "invalid payment"
		}
		e.opts.log.Warn("payment verification rejected", "task_id", task.ID, "reason", reason)
		return e.failPayment(ctx, task, types.ErrInvalidSignature, reason, requirements.Network, q)
	}

	e.opts.log.Info("payment verified", "task_id", task.ID, "payer", verifyResp.Payer)
	e.opts.rec.IncEvent("payment_verified", requirements.Network)
	task = e.utils.RecordPaymentVerified(task)
	if err := q.Enqueue(ctx, task); err != nil {
		return err
	}

	// Let the delegate see that payment cleared without re-deriving it.
	if task.Metadata == nil {
		task.Metadata = make(map[string]interface{})
	}
	task.Metadata[types.PaymentVerifiedKey] = true

	delegateStart := time.Now()
	err = safeExecute(ctx, e.delegate, rc, q)
	e.opts.rec.ObserveLatency("delegate", requirements.Network, time.Since(delegateStart))
	if err != nil {
		// Payment was verified but funds never moved; settlement is
		// deliberately skipped and the code reports a service failure.
		e.opts.log.Error("delegate failed after verification", "task_id", task.ID, "error", err)
		return e.failPayment(ctx, task, types.ErrSettlementFailed, fmt.Sprintf("service failed: %v", err), requirements.Network, q)
	}

	settleStart := time.Now()
	settleResp, err := e.fac.Settle(ctx, payload, requirements)
	e.opts.rec.ObserveLatency("settle", requirements.Network, time.Since(settleStart))
	if err != nil {
		e.opts.log.Error("settlement errored", "task_id", task.ID, "error", err)
		return e.failPayment(ctx, task, types.ErrSettlementFailed, fmt.Sprintf("settlement failed: %v", err), requirements.Network, q)
	}

	if settleResp.Success {
		e.opts.log.Info("payment settled", "task_id", task.ID, "transaction", settleResp.Transaction)
		e.opts.rec.IncEvent("payment_completed", requirements.Network)
		task, err = e.utils.RecordPaymentSuccess(task, settleResp)
		if err != nil {
			return err
		}
		return q.Enqueue(ctx, task)
	}

	code := classifySettlementError(settleResp.ErrorReason)
	e.opts.log.Warn("settlement rejected", "task_id", task.ID, "code", code, "reason", settleResp.ErrorReason)
	e.opts.rec.IncEvent("payment_failed", requirements.Network)
	task, err = e.utils.RecordPaymentFailure(task, code, settleResp)
	if err != nil {
		return err
	}
	return q.Enqueue(ctx, task)
}

// handlePaymentRequired turns a delegate's payment demand into a
// payment-required task update and stores the offered requirements for the
// paid turn.
func (e *ServerExecutor) handlePaymentRequired(ctx context.Context, payErr *types.PaymentRequiredError, rc *a2a.RequestContext, q a2a.EventQueue) error {
	task := rc.CurrentTask
	if task == nil {
		if rc.TaskID == "" {
			return fmt.Errorf("cannot request payment: task id is missing from the context")
		}
		task = &a2a.Task{
			ID:        rc.TaskID,
			ContextID: rc.ContextID,
			Status:    a2a.TaskStatus{State: a2a.TaskStateInputRequired},
			Metadata:  make(map[string]interface{}),
		}
	}

	accepts := payErr.Accepts()
	if err := e.store.Put(ctx, task.ID, accepts); err != nil {
		return fmt.Errorf("failed to store payment requirements: %w", err)
	}

	required := &types.PaymentRequiredResponse{
		X402Version: e.opts.config.X402Version,
		Accepts:     accepts,
		Error:       payErr.Error(),
	}

	task, err := e.utils.CreatePaymentRequiredTask(task, required)
	if err != nil {
		return err
	}

	network := ""
	if len(accepts) > 0 {
		network = accepts[0].Network
	}
	e.opts.log.Info("payment required", "task_id", task.ID, "options", len(accepts), "network", network)
	e.opts.rec.IncEvent("payment_required", network)
	return q.Enqueue(ctx, task)
}

// failPayment is the single funnel for every failure branch: it records the
// terminal status with a machine-readable code, clears the stored
// requirements so the store never leaks, and emits the updated task.
func (e *ServerExecutor) failPayment(ctx context.Context, task *a2a.Task, code, reason, network string, q a2a.EventQueue) error {
	settle := &types.SettleResponse{
		Success:     false,
		Network:     network,
		ErrorReason: reason,
	}
	task, err := e.utils.RecordPaymentFailure(task, code, settle)
	if err != nil {
		return err
	}

	if _, _, err := e.store.Take(ctx, task.ID); err != nil {
		e.opts.log.Warn("failed to clear stored requirements", "task_id", task.ID, "error", err)
	}

	e.opts.rec.IncEvent("payment_failed", network)
	return q.Enqueue(ctx, task)
}

// matchRequirement picks the stored requirement the payload was signed
// against, by scheme and network equality. First match wins.
func matchRequirement(accepts []types.PaymentRequirements, payload *types.PaymentPayload) *types.PaymentRequirements {
	for i := range accepts {
		if accepts[i].Scheme == payload.Scheme && accepts[i].Network == payload.Network {
			return &accepts[i]
		}
	}
	return nil
}

// classifySettlementError maps a facilitator failure reason onto an x402
// error code.
func classifySettlementError(reason string) string {
	if strings.Contains(strings.ToLower(reason), "insufficient") {
		return types.ErrInsufficientFunds
	}
	return types.ErrSettlementFailed
}
