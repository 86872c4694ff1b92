package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentcommerce/x402-a2a/a2a"
	"github.com/agentcommerce/x402-a2a/protocol"
	"github.com/agentcommerce/x402-a2a/types"
	"github.com/agentcommerce/x402-a2a/wallet"
)

// ClientExecutor is the paying-agent side of the flow. It wraps a delegate
// executor and, when the remote merchant demands payment, signs the offered
// requirements with the configured wallet and records the submission so the
// next turn carries the payload back to the merchant.
//
// With auto-pay disabled the executor records payment-rejected instead of
// signing; the task terminates without a wallet interaction.
type ClientExecutor struct {
	delegate a2a.Executor
	signer   wallet.Signer
	utils    protocol.Utils
	opts     options
}

// NewClientExecutor wraps delegate with payment handling backed by signer.
func NewClientExecutor(delegate a2a.Executor, signer wallet.Signer, opts ...Option) *ClientExecutor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &ClientExecutor{
		delegate: delegate,
		signer:   signer,
		opts:     o,
	}
}

// Execute runs the delegate and then inspects the resulting task state. A
// payment-required task is answered in the same turn: sign and record the
// submission, or record the rejection.
func (e *ClientExecutor) Execute(ctx context.Context, rc *a2a.RequestContext, q a2a.EventQueue) error {
	if !isActive(rc) {
		return e.delegate.Execute(ctx, rc, q)
	}

	if err := e.delegate.Execute(ctx, rc, q); err != nil {
		return err
	}

	task := rc.CurrentTask
	status, ok := e.utils.PaymentStatus(task)
	if !ok || status != types.PaymentRequired {
		return nil
	}

	if !e.opts.autoPay {
		e.opts.log.Info("auto-pay disabled, rejecting payment requirements", "task_id", task.ID)
		e.opts.rec.IncEvent("payment_rejected", "")
		task = e.utils.RecordPaymentRejected(task)
		return q.Enqueue(ctx, task)
	}

	required := e.utils.PaymentRequirements(task)
	if required == nil {
		return fmt.Errorf("task %s is payment-required but carries no payment requirements", task.ID)
	}

	payload, err := e.signer.SignPayment(ctx, required)
	if errors.Is(err, wallet.ErrPaymentDeclined) {
		e.opts.log.Info("wallet declined payment requirements", "task_id", task.ID)
		e.opts.rec.IncEvent("payment_rejected", "")
		task = e.utils.RecordPaymentRejected(task)
		return q.Enqueue(ctx, task)
	}
	if err != nil {
		e.opts.log.Error("wallet failed to sign payment", "task_id", task.ID, "error", err)
		e.opts.rec.IncEvent("payment_failed", "")
		task, ferr := e.utils.RecordPaymentFailure(task, types.ErrInvalidSignature, &types.SettleResponse{
			Success:     false,
			ErrorReason: fmt.Sprintf("signing failed: %v", err),
		})
		if ferr != nil {
			return ferr
		}
		return q.Enqueue(ctx, task)
	}

	e.opts.log.Info("payment signed", "task_id", task.ID, "network", payload.Network)
	e.opts.rec.IncEvent("payment_submitted", payload.Network)
	task, err = e.utils.RecordPaymentSubmission(task, payload)
	if err != nil {
		return err
	}
	return q.Enqueue(ctx, task)
}

// Cancel is not supported by the payment middleware.
func (e *ClientExecutor) Cancel(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
	return a2a.ErrCancelNotSupported
}
