// Package protocol translates between typed x402 payment state and the
// generic metadata mapping carried by a task's status message. It is the
// single source of truth for where in the payment flow a task currently is:
// both executors read and write protocol state exclusively through it.
package protocol

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/agentcommerce/x402-a2a/a2a"
	"github.com/agentcommerce/x402-a2a/types"
)

// Utils provides the canonical read and write operations for payment state
// on tasks and messages. It is stateless; all side effects are confined to
// the task or message passed in.
type Utils struct{}

// toMetadata converts a typed value to its JSON object form so it survives a
// JSON round trip over the wire unchanged.
func toMetadata(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// fromMetadata parses a metadata value back into out. Values may be the
// original Go map or a decoded JSON object; both round-trip through JSON.
func fromMetadata(value interface{}, out interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// PaymentStatusFromMessage extracts the payment status from message
// metadata. Absent or malformed values report false, never an error.
func (Utils) PaymentStatusFromMessage(m *a2a.Message) (types.PaymentStatus, bool) {
	if m == nil || m.Metadata == nil {
		return "", false
	}
	s, ok := m.Metadata[types.StatusKey].(string)
	if !ok {
		return "", false
	}
	return types.ParsePaymentStatus(s)
}

// PaymentStatus extracts the payment status from the task's status message.
func (u Utils) PaymentStatus(t *a2a.Task) (types.PaymentStatus, bool) {
	if t == nil {
		return "", false
	}
	return u.PaymentStatusFromMessage(t.Status.Message)
}

// PaymentRequirementsFromMessage extracts the payment-required response from
// message metadata, or nil when absent or unparseable.
func (Utils) PaymentRequirementsFromMessage(m *a2a.Message) *types.PaymentRequiredResponse {
	if m == nil || m.Metadata == nil {
		return nil
	}
	value, ok := m.Metadata[types.RequiredKey]
	if !ok {
		return nil
	}
	var resp types.PaymentRequiredResponse
	if err := fromMetadata(value, &resp); err != nil {
		return nil
	}
	return &resp
}

// PaymentRequirements extracts the payment-required response from the task's
// status message.
func (u Utils) PaymentRequirements(t *a2a.Task) *types.PaymentRequiredResponse {
	if t == nil {
		return nil
	}
	return u.PaymentRequirementsFromMessage(t.Status.Message)
}

// PaymentPayloadFromMessage extracts the signed payment payload from message
// metadata, or nil when absent or unparseable.
func (Utils) PaymentPayloadFromMessage(m *a2a.Message) *types.PaymentPayload {
	if m == nil || m.Metadata == nil {
		return nil
	}
	value, ok := m.Metadata[types.PayloadKey]
	if !ok {
		return nil
	}
	var payload types.PaymentPayload
	if err := fromMetadata(value, &payload); err != nil {
		return nil
	}
	return &payload
}

// PaymentPayload extracts the signed payment payload from the task's status
// message.
func (u Utils) PaymentPayload(t *a2a.Task) *types.PaymentPayload {
	if t == nil {
		return nil
	}
	return u.PaymentPayloadFromMessage(t.Status.Message)
}

// ensureStatusMessage guarantees the task has a status message with a
// metadata map, creating one with the given text when missing.
func ensureStatusMessage(t *a2a.Task, text string) *a2a.Message {
	if t.Status.Message == nil {
		t.Status.Message = &a2a.Message{
			MessageID: t.ID + "-status",
			TaskID:    t.ID,
			Role:      "agent",
			Parts:     []a2a.Part{a2a.TextPart(text)},
		}
	}
	if t.Status.Message.Metadata == nil {
		t.Status.Message.Metadata = make(map[string]interface{})
	}
	return t.Status.Message
}

// CreatePaymentRequiredTask moves the task into the payment-required state:
// transport state input-required, payment status payment-required, and the
// full requirements response persisted on the status message.
func (Utils) CreatePaymentRequiredTask(t *a2a.Task, required *types.PaymentRequiredResponse) (*a2a.Task, error) {
	t.Status.State = a2a.TaskStateInputRequired
	msg := ensureStatusMessage(t, "Payment is required for this service.")

	reqMeta, err := toMetadata(required)
	if err != nil {
		return nil, err
	}
	msg.Metadata[types.StatusKey] = types.PaymentRequired.String()
	msg.Metadata[types.RequiredKey] = reqMeta
	return t, nil
}

// RecordPaymentSubmission writes a signed payload into the task's status
// message with status payment-submitted, ready for resubmission to the
// merchant.
func (Utils) RecordPaymentSubmission(t *a2a.Task, payload *types.PaymentPayload) (*a2a.Task, error) {
	msg := ensureStatusMessage(t, "Payment authorization provided.")

	payloadMeta, err := toMetadata(payload)
	if err != nil {
		return nil, err
	}
	msg.Metadata[types.StatusKey] = types.PaymentSubmitted.String()
	msg.Metadata[types.PayloadKey] = payloadMeta
	return t, nil
}

// RecordPaymentVerified marks the payment as verified. Payload and
// requirements stay in place; they are still needed for settlement.
func (Utils) RecordPaymentVerified(t *a2a.Task) *a2a.Task {
	msg := ensureStatusMessage(t, "Payment verification recorded.")
	msg.Metadata[types.StatusKey] = types.PaymentVerified.String()
	return t
}

// RecordPaymentRejected marks the task as having declined the payment
// requirements. The requirements stay on the message so the merchant can
// see what was declined.
func (Utils) RecordPaymentRejected(t *a2a.Task) *a2a.Task {
	msg := ensureStatusMessage(t, "Payment requirements rejected.")
	msg.Metadata[types.StatusKey] = types.PaymentRejected.String()
	return t
}

// RecordPaymentSuccess marks the payment completed, appends the settlement
// result to the receipts array, and removes the payload and requirements
// keys: a once-signed payload must not be replayable or readable after
// success.
func (u Utils) RecordPaymentSuccess(t *a2a.Task, settle *types.SettleResponse) (*a2a.Task, error) {
	msg := ensureStatusMessage(t, "Payment completed successfully.")

	msg.Metadata[types.StatusKey] = types.PaymentCompleted.String()
	if err := appendReceipt(msg, settle); err != nil {
		return nil, err
	}
	delete(msg.Metadata, types.PayloadKey)
	delete(msg.Metadata, types.RequiredKey)
	return t, nil
}

// RecordPaymentFailure marks the payment failed with an error code and
// appends the settlement result to the receipts array. Only the payload key
// is removed; requirements are kept for retry and debugging, unlike success.
func (u Utils) RecordPaymentFailure(t *a2a.Task, errorCode string, settle *types.SettleResponse) (*a2a.Task, error) {
	msg := ensureStatusMessage(t, "Payment failed.")

	msg.Metadata[types.StatusKey] = types.PaymentFailed.String()
	msg.Metadata[types.ErrorKey] = errorCode
	if err := appendReceipt(msg, settle); err != nil {
		return nil, err
	}
	delete(msg.Metadata, types.PayloadKey)
	return t, nil
}

func appendReceipt(msg *a2a.Message, settle *types.SettleResponse) error {
	receiptMeta, err := toMetadata(settle)
	if err != nil {
		return err
	}
	receipts, _ := msg.Metadata[types.ReceiptsKey].([]interface{})
	msg.Metadata[types.ReceiptsKey] = append(receipts, receiptMeta)
	return nil
}

// PaymentReceiptsFromMessage returns every settlement attempt recorded on
// the message, oldest first. Unparseable entries are skipped.
func (Utils) PaymentReceiptsFromMessage(m *a2a.Message) []types.SettleResponse {
	if m == nil || m.Metadata == nil {
		return nil
	}
	entries, ok := m.Metadata[types.ReceiptsKey].([]interface{})
	if !ok {
		return nil
	}
	receipts := make([]types.SettleResponse, 0, len(entries))
	for _, entry := range entries {
		var r types.SettleResponse
		if err := fromMetadata(entry, &r); err != nil {
			continue
		}
		receipts = append(receipts, r)
	}
	return receipts
}

// PaymentReceipts returns the full settlement history from the task's status
// message, never truncated.
func (u Utils) PaymentReceipts(t *a2a.Task) []types.SettleResponse {
	if t == nil {
		return nil
	}
	return u.PaymentReceiptsFromMessage(t.Status.Message)
}

// LatestReceipt returns the most recent settlement attempt, or nil.
func (u Utils) LatestReceipt(t *a2a.Task) *types.SettleResponse {
	receipts := u.PaymentReceipts(t)
	if len(receipts) == 0 {
		return nil
	}
	return &receipts[len(receipts)-1]
}

// CreatePaymentSubmissionMessage builds the correlated payment submission
// message a paying agent sends back to the merchant.
func CreatePaymentSubmissionMessage(taskID string, payload *types.PaymentPayload) (*a2a.Message, error) {
	payloadMeta, err := toMetadata(payload)
	if err != nil {
		return nil, err
	}
	return &a2a.Message{
		MessageID: uuid.NewString(),
		TaskID:    taskID,
		Role:      "user",
		Parts:     []a2a.Part{a2a.TextPart("Payment authorization provided")},
		Metadata: map[string]interface{}{
			types.StatusKey:  types.PaymentSubmitted.String(),
			types.PayloadKey: payloadMeta,
		},
	}, nil
}
