package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcommerce/x402-a2a/a2a"
	"github.com/agentcommerce/x402-a2a/types"
)

func sampleRequired() *types.PaymentRequiredResponse {
	return &types.PaymentRequiredResponse{
		X402Version: types.X402Version,
		Accepts: []types.PaymentRequirements{{
			Scheme:            "exact",
			Network:           "base-sepolia",
			MaxAmountRequired: "10000",
			Resource:          "/premium",
			MimeType:          "application/json",
			PayTo:             "0x209693Bc6afc0C5328bA36FaF03C514EF312287C",
			MaxTimeoutSeconds: 600,
			Asset:             "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
			Extra:             map[string]interface{}{"name": "USDC", "version": "2"},
		}},
		Error: "payment required",
	}
}

func samplePayload() *types.PaymentPayload {
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

func newTask() *a2a.Task {
	return &a2a.Task{
		ID:        "task-1",
		ContextID: "ctx-1",
		Status:    a2a.TaskStatus{State: a2a.TaskStateWorking},
	}
}

// wireTrip simulates the task crossing the transport: serialized to JSON and
// parsed back, so all metadata values decay to generic JSON types.
func wireTrip(t *testing.T, task *a2a.Task) *a2a.Task {
	t.Helper()
	raw, err := json.Marshal(task)
	require.NoError(t, err)
	var out a2a.Task
	require.NoError(t, json.Unmarshal(raw, &out))
	return &out
}

func TestCreatePaymentRequiredTask(t *testing.T) {
	var u Utils
	task, err := u.CreatePaymentRequiredTask(newTask(), sampleRequired())
	require.NoError(t, err)

	assert.Equal(t, a2a.TaskStateInputRequired, task.Status.State)

	status, ok := u.PaymentStatus(task)
	require.True(t, ok)
	assert.Equal(t, types.PaymentRequired, status)

	got := u.PaymentRequirements(task)
	require.NotNil(t, got)
	assert.Equal(t, "payment required", got.Error)
	require.Len(t, got.Accepts, 1)
	assert.Equal(t, "10000", got.Accepts[0].MaxAmountRequired)
}

func TestPaymentStateSurvivesWireTrip(t *testing.T) {
	var u Utils
	task, err := u.CreatePaymentRequiredTask(newTask(), sampleRequired())
	require.NoError(t, err)
	task, err = u.RecordPaymentSubmission(task, samplePayload())
	require.NoError(t, err)

	task = wireTrip(t, task)

	status, ok := u.PaymentStatus(task)
	require.True(t, ok)
	assert.Equal(t, types.PaymentSubmitted, status)

	payload := u.PaymentPayload(task)
	require.NotNil(t, payload)
	assert.Equal(t, "0xdeadbeef", payload.Payload.Signature)
	assert.Equal(t, "0x857b06519E91e3A54538791bDbb0E22373e36b66", payload.Payload.Authorization.From)

	required := u.PaymentRequirements(task)
	require.NotNil(t, required)
	assert.Equal(t, "base-sepolia", required.Accepts[0].Network)
}

func TestRecordPaymentSuccessClearsSensitiveKeys(t *testing.T) {
	var u Utils
	task, err := u.CreatePaymentRequiredTask(newTask(), sampleRequired())
	require.NoError(t, err)
	task, err = u.RecordPaymentSubmission(task, samplePayload())
	require.NoError(t, err)

	task, err = u.RecordPaymentSuccess(task, &types.SettleResponse{
		Success:     true,
		Transaction: "0xabc",
		Network:     "base-sepolia",
	})
	require.NoError(t, err)

	status, _ := u.PaymentStatus(task)
	assert.Equal(t, types.PaymentCompleted, status)
	assert.Nil(t, u.PaymentPayload(task), "payload must be removed on success")
	assert.Nil(t, u.PaymentRequirements(task), "requirements must be removed on success")

	receipt := u.LatestReceipt(task)
	require.NotNil(t, receipt)
	assert.Equal(t, "0xabc", receipt.Transaction)
}

func TestRecordPaymentFailureKeepsRequirements(t *testing.T) {
	var u Utils
	task, err := u.CreatePaymentRequiredTask(newTask(), sampleRequired())
	require.NoError(t, err)
	task, err = u.RecordPaymentSubmission(task, samplePayload())
	require.NoError(t, err)

	task, err = u.RecordPaymentFailure(task, types.ErrSettlementFailed, &types.SettleResponse{
		Success:     false,
		Network:     "base-sepolia",
		ErrorReason: "rpc timeout",
	})
	require.NoError(t, err)

	status, _ := u.PaymentStatus(task)
	assert.Equal(t, types.PaymentFailed, status)
	assert.Equal(t, types.ErrSettlementFailed, task.Status.Message.Metadata[types.ErrorKey])
	assert.Nil(t, u.PaymentPayload(task), "payload must be removed on failure")
	assert.NotNil(t, u.PaymentRequirements(task), "requirements stay for retry after failure")
}

func TestReceiptsAccumulateAcrossAttempts(t *testing.T) {
	var u Utils
	task, err := u.CreatePaymentRequiredTask(newTask(), sampleRequired())
	require.NoError(t, err)

	task, err = u.RecordPaymentFailure(task, types.ErrSettlementFailed, &types.SettleResponse{
		Success: false, ErrorReason: "first attempt",
	})
	require.NoError(t, err)

	task = wireTrip(t, task)

	task, err = u.RecordPaymentSuccess(task, &types.SettleResponse{
		Success: true, Transaction: "0xabc",
	})
	require.NoError(t, err)

	receipts := u.PaymentReceipts(task)
	require.Len(t, receipts, 2, "receipts are append-only")
	assert.Equal(t, "first attempt", receipts[0].ErrorReason)
	assert.True(t, receipts[1].Success)

	latest := u.LatestReceipt(task)
	require.NotNil(t, latest)
	assert.Equal(t, "0xabc", latest.Transaction)
}

func TestRecordPaymentVerifiedKeepsPayload(t *testing.T) {
	var u Utils
	task, err := u.RecordPaymentSubmission(newTask(), samplePayload())
	require.NoError(t, err)

	task = u.RecordPaymentVerified(task)

	status, _ := u.PaymentStatus(task)
	assert.Equal(t, types.PaymentVerified, status)
	assert.NotNil(t, u.PaymentPayload(task), "payload is still needed for settlement")
}

func TestRecordPaymentRejected(t *testing.T) {
	var u Utils
	task, err := u.CreatePaymentRequiredTask(newTask(), sampleRequired())
	require.NoError(t, err)

	task = u.RecordPaymentRejected(task)

	status, _ := u.PaymentStatus(task)
	assert.Equal(t, types.PaymentRejected, status)
	assert.NotNil(t, u.PaymentRequirements(task), "merchant can still see what was declined")
}

func TestAccessorsTolerateAbsentState(t *testing.T) {
	var u Utils

	_, ok := u.PaymentStatus(nil)
	assert.False(t, ok)
	assert.Nil(t, u.PaymentRequirements(nil))
	assert.Nil(t, u.PaymentPayload(nil))
	assert.Nil(t, u.PaymentReceipts(nil))
	assert.Nil(t, u.LatestReceipt(newTask()))

	_, ok = u.PaymentStatus(newTask())
	assert.False(t, ok)

	msg := &a2a.Message{
		MessageID: "m1",
		Metadata: map[string]interface{}{
			types.StatusKey:  "not-a-status",
			types.PayloadKey: "not-an-object",
		},
	}
	_, ok = u.PaymentStatusFromMessage(msg)
	assert.False(t, ok, "unknown status strings are ignored")
	assert.Nil(t, u.PaymentPayloadFromMessage(msg), "malformed payloads are ignored")
}

func TestCreatePaymentSubmissionMessage(t *testing.T) {
	var u Utils
	msg, err := CreatePaymentSubmissionMessage("task-1", samplePayload())
	require.NoError(t, err)

	assert.Equal(t, "task-1", msg.TaskID)
	assert.Equal(t, "user", msg.Role)
	assert.NotEmpty(t, msg.MessageID)

	status, ok := u.PaymentStatusFromMessage(msg)
	require.True(t, ok)
	assert.Equal(t, types.PaymentSubmitted, status)

	payload := u.PaymentPayloadFromMessage(msg)
	require.NotNil(t, payload)
	assert.Equal(t, "base-sepolia", payload.Network)
}
