package types

// PaymentStatus is the protocol-defined payment state attached to a task.
// Exactly one status is current per task at any time.
type PaymentStatus string

const (
	// PaymentRequired means payment has been requested from the peer.
	PaymentRequired PaymentStatus = "payment-required"
	// PaymentSubmitted means a signed payment has been submitted.
	PaymentSubmitted PaymentStatus = "payment-submitted"
	// PaymentVerified means the facilitator confirmed the payment is valid.
	PaymentVerified PaymentStatus = "payment-verified"
	// PaymentRejected means the peer declined the payment requirements.
	PaymentRejected PaymentStatus = "payment-rejected"
	// PaymentCompleted means the payment settled successfully.
	PaymentCompleted PaymentStatus = "payment-completed"
	// PaymentFailed means payment processing failed.
	PaymentFailed PaymentStatus = "payment-failed"
)

// ParsePaymentStatus parses a metadata value into a PaymentStatus. Unknown
// or malformed values report false rather than an error; absence of state is
// not a failure.
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(s) {
	case PaymentRequired, PaymentSubmitted, PaymentVerified,
		PaymentRejected, PaymentCompleted, PaymentFailed:
		return PaymentStatus(s), true
	default:
		return "", false
	}
}

// String returns the wire form of the status.
func (s PaymentStatus) String() string {
	return string(s)
}

// Terminal reports whether the status ends a payment attempt.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentRejected
}

// Task metadata keys used to persist protocol state between peers. These are
// the only channel for payment state across a request boundary; in-memory
// fields must never be trusted as the state source.
const (
	// StatusKey holds the current PaymentStatus.
	StatusKey = "x402.payment.status"
	// RequiredKey holds a PaymentRequiredResponse.
	RequiredKey = "x402.payment.required"
	// PayloadKey holds a PaymentPayload.
	PayloadKey = "x402.payment.payload"
	// ReceiptsKey holds the ordered array of SettleResponse objects.
	ReceiptsKey = "x402.payment.receipts"
	// ErrorKey holds the error code when a payment failed.
	ErrorKey = "x402.payment.error"
)

// PaymentVerifiedKey is set to true on task metadata once the facilitator
// has verified payment, so the delegate can trust payment cleared without
// re-deriving it.
const PaymentVerifiedKey = "x402_payment_verified"
