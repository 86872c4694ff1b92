package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	x402a2a "github.com/agentcommerce/x402-a2a"
	"github.com/agentcommerce/x402-a2a/a2a"
	"github.com/agentcommerce/x402-a2a/facilitator"
	"github.com/agentcommerce/x402-a2a/protocol"
	"github.com/agentcommerce/x402-a2a/types"
)

// memQueue collects published events for assertions.
type memQueue struct {
	mu     sync.Mutex
	events []a2a.Event
}

func (q *memQueue) Enqueue(_ context.Context, event a2a.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
	return nil
}

// lastTask returns the most recently published task snapshot.
func (q *memQueue) lastTask(t *testing.T) *a2a.Task {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := len(q.events) - 1; i >= 0; i-- {
		if task, ok := q.events[i].(*a2a.Task); ok {
			return task
		}
	}
	t.Fatal("no task event published")
	return nil
}

// funcExecutor adapts a function into an a2a.Executor delegate.
type funcExecutor struct {
	fn func(ctx context.Context, rc *a2a.RequestContext, q a2a.EventQueue) error
}

func (f *funcExecutor) Execute(ctx context.Context, rc *a2a.RequestContext, q a2a.EventQueue) error {
	return f.fn(ctx, rc, q)
}

func (f *funcExecutor) Cancel(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
	return a2a.ErrCancelNotSupported
}

func activeHeaders() map[string]string {
	return map[string]string{x402a2a.ExtensionHeader: x402a2a.ExtensionURI}
}

func testRequirements() types.PaymentRequirements {
	return types.PaymentRequirements{
		Scheme:            "exact",
		Network:           "base-sepolia",
		MaxAmountRequired: "10000",
		Resource:          "/premium",
		MimeType:          "application/json",
		PayTo:             "0x209693Bc6afc0C5328bA36FaF03C514EF312287C",
		MaxTimeoutSeconds: 600,
		Asset:             "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		Extra:             map[string]interface{}{"name": "USDC", "version": "2"},
	}
}

func testPayload() *types.PaymentPayload {
	return &types.PaymentPayload{
		X402Version: types.X402Version,
		Scheme:      "exact",
		Network:     "base-sepolia",
		Payload: types.ExactPaymentPayload{
			Signature: "0xdeadbeef",
			Authorization: types.EIP3009Authorization{
				From:        "0x857b06519E91e3A54538791bDbb0E22373e36b66",
				To:          "0x209693Bc6afc0C5328bA36FaF03C514EF312287C",
				Value:       "10000",
				ValidAfter:  "1700000000",
				ValidBefore: "1700000600",
				Nonce:       "0x01",
			},
		},
	}
}

// submittedContext builds a request context carrying a signed payload on the
// incoming message, as a paying agent resubmits it.
func submittedContext(t *testing.T, taskID string) *a2a.RequestContext {
	t.Helper()
	msg, err := protocol.CreatePaymentSubmissionMessage(taskID, testPayload())
	require.NoError(t, err)
	return &a2a.RequestContext{
		TaskID:    taskID,
		ContextID: "ctx-1",
		CurrentTask: &a2a.Task{
			ID:        taskID,
			ContextID: "ctx-1",
			Status:    a2a.TaskStatus{State: a2a.TaskStateInputRequired},
		},
		Message: msg,
		Headers: activeHeaders(),
	}
}

func TestServerExecutorPassthroughWhenInactive(t *testing.T) {
	called := false
	delegate := &funcExecutor{fn: func(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
		called = true
		return nil
	}}
	exec := NewServerExecutor(delegate, facilitator.NewMock())
	q := &memQueue{}

	err := exec.Execute(context.Background(), &a2a.RequestContext{TaskID: "task-1"}, q)

	require.NoError(t, err)
	assert.True(t, called)
	assert.Empty(t, q.events, "inactive requests must not produce payment events")
}

func TestServerExecutorRequestsPayment(t *testing.T) {
	requirements := testRequirements()
	delegate := &funcExecutor{fn: func(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
		return types.NewPaymentRequiredError("payment required for /premium", requirements)
	}}
	store := NewMemoryStore()
	exec := NewServerExecutor(delegate, facilitator.NewMock(), WithStore(store))
	q := &memQueue{}

	err := exec.Execute(context.Background(), &a2a.RequestContext{
		TaskID:    "task-1",
		ContextID: "ctx-1",
		Message:   a2a.NewMessage("user", "give me the premium thing"),
		Headers:   activeHeaders(),
	}, q)
	require.NoError(t, err)

	task := q.lastTask(t)
	assert.Equal(t, a2a.TaskStateInputRequired, task.Status.State)

	var utils protocol.Utils
	status, ok := utils.PaymentStatus(task)
	require.True(t, ok)
	assert.Equal(t, types.PaymentRequired, status)

	required := utils.PaymentRequirements(task)
	require.NotNil(t, required)
	assert.Equal(t, types.X402Version, required.X402Version)
	assert.Equal(t, "payment required for /premium", required.Error)
	require.Len(t, required.Accepts, 1)
	assert.Equal(t, requirements.MaxAmountRequired, required.Accepts[0].MaxAmountRequired)

	stored, found, err := store.Get(context.Background(), "task-1")
	require.NoError(t, err)
	require.True(t, found, "offered requirements must be stored for the paid turn")
	assert.Equal(t, requirements.Network, stored[0].Network)
}

func TestServerExecutorPaidPathSettles(t *testing.T) {
	var sawVerified bool
	delegate := &funcExecutor{fn: func(_ context.Context, rc *a2a.RequestContext, _ a2a.EventQueue) error {
		sawVerified, _ = rc.CurrentTask.Metadata[types.PaymentVerifiedKey].(bool)
		return nil
	}}
	mock := facilitator.NewMock()
	mock.Transaction = "0xabc123"
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "task-1", []types.PaymentRequirements{testRequirements()}))

	exec := NewServerExecutor(delegate, mock, WithStore(store))
	q := &memQueue{}

	err := exec.Execute(context.Background(), submittedContext(t, "task-1"), q)
	require.NoError(t, err)

	assert.True(t, sawVerified, "delegate must see the verified signal")
	assert.Len(t, mock.VerifyCalls(), 1)
	assert.Len(t, mock.SettleCalls(), 1)

	var utils protocol.Utils
	task := q.lastTask(t)
	status, ok := utils.PaymentStatus(task)
	require.True(t, ok)
	assert.Equal(t, types.PaymentCompleted, status)

	receipt := utils.LatestReceipt(task)
	require.NotNil(t, receipt)
	assert.True(t, receipt.Success)
	assert.Equal(t, "0xabc123", receipt.Transaction)

	// Payload must not survive a completed payment.
	assert.Nil(t, utils.PaymentPayload(task))
	assert.Equal(t, 0, store.Len())
}

func TestServerExecutorVerificationFailure(t *testing.T) {
	delegate := &funcExecutor{fn: func(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
		t.Fatal("delegate must not run when verification fails")
		return nil
	}}
	mock := facilitator.NewMock()
	mock.Valid = false
	mock.InvalidReason = "bad signature"
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "task-1", []types.PaymentRequirements{testRequirements()}))

	exec := NewServerExecutor(delegate, mock, WithStore(store))
	q := &memQueue{}

	err := exec.Execute(context.Background(), submittedContext(t, "task-1"), q)
	require.NoError(t, err)

	assert.Empty(t, mock.SettleCalls(), "failed verification must never settle")

	var utils protocol.Utils
	task := q.lastTask(t)
	status, _ := utils.PaymentStatus(task)
	assert.Equal(t, types.PaymentFailed, status)
	assert.Equal(t, types.ErrInvalidSignature, task.Status.Message.Metadata[types.ErrorKey])

	receipt := utils.LatestReceipt(task)
	require.NotNil(t, receipt)
	assert.False(t, receipt.Success)
	assert.Equal(t, "bad signature", receipt.ErrorReason)
}

func TestServerExecutorSettlementInsufficientFunds(t *testing.T) {
	delegate := &funcExecutor{fn: func(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
		return nil
	}}
	mock := facilitator.NewMock()
	mock.Settled = false
	mock.SettleErrorReason = "transfer reverted: insufficient balance"
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "task-1", []types.PaymentRequirements{testRequirements()}))

	exec := NewServerExecutor(delegate, mock, WithStore(store))
	q := &memQueue{}

	err := exec.Execute(context.Background(), submittedContext(t, "task-1"), q)
	require.NoError(t, err)

	var utils protocol.Utils
	task := q.lastTask(t)
	status, _ := utils.PaymentStatus(task)
	assert.Equal(t, types.PaymentFailed, status)
	assert.Equal(t, types.ErrInsufficientFunds, task.Status.Message.Metadata[types.ErrorKey])
}

func TestServerExecutorDelegateFailureSkipsSettlement(t *testing.T) {
	delegate := &funcExecutor{fn: func(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
		return errors.New("model backend unavailable")
	}}
	mock := facilitator.NewMock()
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "task-1", []types.PaymentRequirements{testRequirements()}))

	exec := NewServerExecutor(delegate, mock, WithStore(store))
	q := &memQueue{}

	err := exec.Execute(context.Background(), submittedContext(t, "task-1"), q)
	require.NoError(t, err)

	assert.Len(t, mock.VerifyCalls(), 1)
	assert.Empty(t, mock.SettleCalls(), "funds must not move when the service failed")

	var utils protocol.Utils
	task := q.lastTask(t)
	status, _ := utils.PaymentStatus(task)
	assert.Equal(t, types.PaymentFailed, status)
	assert.Equal(t, types.ErrSettlementFailed, task.Status.Message.Metadata[types.ErrorKey])
}

func TestServerExecutorDelegatePanicIsContained(t *testing.T) {
	delegate := &funcExecutor{fn: func(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
		panic("boom")
	}}
	mock := facilitator.NewMock()
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "task-1", []types.PaymentRequirements{testRequirements()}))

	exec := NewServerExecutor(delegate, mock, WithStore(store))
	q := &memQueue{}

	err := exec.Execute(context.Background(), submittedContext(t, "task-1"), q)
	require.NoError(t, err)

	assert.Empty(t, mock.SettleCalls())

	var utils protocol.Utils
	task := q.lastTask(t)
	status, _ := utils.PaymentStatus(task)
	assert.Equal(t, types.PaymentFailed, status)
}

func TestServerExecutorMissingRequirementsFails(t *testing.T) {
	delegate := &funcExecutor{fn: func(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
		return nil
	}}
	mock := facilitator.NewMock()
	exec := NewServerExecutor(delegate, mock, WithStore(NewMemoryStore()))
	q := &memQueue{}

	err := exec.Execute(context.Background(), submittedContext(t, "task-unknown"), q)
	require.NoError(t, err)

	assert.Empty(t, mock.VerifyCalls())

	var utils protocol.Utils
	task := q.lastTask(t)
	status, _ := utils.PaymentStatus(task)
	assert.Equal(t, types.PaymentFailed, status)
	assert.Equal(t, types.ErrInvalidSignature, task.Status.Message.Metadata[types.ErrorKey])
}

func TestServerExecutorMissingPayloadFails(t *testing.T) {
	delegate := &funcExecutor{fn: func(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
		return nil
	}}
	mock := facilitator.NewMock()
	exec := NewServerExecutor(delegate, mock, WithStore(NewMemoryStore()))
	q := &memQueue{}

	// Status says submitted but no payload anywhere.
	rc := &a2a.RequestContext{
		TaskID: "task-1",
		CurrentTask: &a2a.Task{
			ID: "task-1",
			Status: a2a.TaskStatus{
				State: a2a.TaskStateInputRequired,
				Message: &a2a.Message{
					MessageID: "m1",
					Role:      "agent",
					Metadata: map[string]interface{}{
						types.StatusKey: types.PaymentSubmitted.String(),
					},
				},
			},
		},
		Headers: activeHeaders(),
	}

	err := exec.Execute(context.Background(), rc, q)
	require.NoError(t, err)

	assert.Empty(t, mock.VerifyCalls())

	var utils protocol.Utils
	task := q.lastTask(t)
	status, _ := utils.PaymentStatus(task)
	assert.Equal(t, types.PaymentFailed, status)
}

func TestServerExecutorConcurrentSubmissionsSettleOnce(t *testing.T) {
	delegate := &funcExecutor{fn: func(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
		return nil
	}}
	mock := facilitator.NewMock()
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "task-1", []types.PaymentRequirements{testRequirements()}))

	exec := NewServerExecutor(delegate, mock, WithStore(store))

	const attempts = 8
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := &memQueue{}
			_ = exec.Execute(context.Background(), submittedContext(t, "task-1"), q)
		}()
	}
	wg.Wait()

	assert.Len(t, mock.SettleCalls(), 1, "at most one settlement per task")
	assert.Equal(t, 0, store.Len())
}

func TestServerExecutorMismatchedPayloadFails(t *testing.T) {
	delegate := &funcExecutor{fn: func(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
		return nil
	}}
	mock := facilitator.NewMock()
	store := NewMemoryStore()
	// Offered on base, payload will claim base-sepolia.
	offered := testRequirements()
	offered.Network = "base"
	require.NoError(t, store.Put(context.Background(), "task-1", []types.PaymentRequirements{offered}))

	exec := NewServerExecutor(delegate, mock, WithStore(store))
	q := &memQueue{}

	err := exec.Execute(context.Background(), submittedContext(t, "task-1"), q)
	require.NoError(t, err)

	assert.Empty(t, mock.VerifyCalls())

	var utils protocol.Utils
	task := q.lastTask(t)
	status, _ := utils.PaymentStatus(task)
	assert.Equal(t, types.PaymentFailed, status)
}

func TestServerExecutorPropagatesDelegateError(t *testing.T) {
	boom := fmt.Errorf("delegate blew up")
	delegate := &funcExecutor{fn: func(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
		return boom
	}}
	exec := NewServerExecutor(delegate, facilitator.NewMock())
	q := &memQueue{}

	err := exec.Execute(context.Background(), &a2a.RequestContext{
		TaskID:  "task-1",
		Message: a2a.NewMessage("user", "hello"),
		Headers: activeHeaders(),
	}, q)

	assert.ErrorContains(t, err, "delegate blew up")
}

func TestServerExecutorCancelUnsupported(t *testing.T) {
	exec := NewServerExecutor(&funcExecutor{fn: func(context.Context, *a2a.RequestContext, a2a.EventQueue) error {
		return nil
	}}, facilitator.NewMock())

	err := exec.Cancel(context.Background(), &a2a.RequestContext{}, &memQueue{})
	assert.ErrorIs(t, err, a2a.ErrCancelNotSupported)
}
