package types

// Standard error codes exposed to peers when a payment fails.
const (
	ErrInsufficientFunds = "INSUFFICIENT_FUNDS"
	ErrInvalidSignature  = "INVALID_SIGNATURE"
	ErrExpiredPayment    = "EXPIRED_PAYMENT"
	ErrDuplicateNonce    = "DUPLICATE_NONCE"
	ErrNetworkMismatch   = "NETWORK_MISMATCH"
	ErrInvalidAmount     = "INVALID_AMOUNT"
	ErrSettlementFailed  = "SETTLEMENT_FAILED"
)

// ErrorCodes returns all defined payment error codes.
func ErrorCodes() []string {
	return []string{
		ErrInsufficientFunds,
		ErrInvalidSignature,
		ErrExpiredPayment,
		ErrDuplicateNonce,
		ErrNetworkMismatch,
		ErrInvalidAmount,
		ErrSettlementFailed,
	}
}

// Error is a protocol-level error with a machine-readable code.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// PaymentRequiredError is returned by a delegate executor to demand payment
// before the requested service is delivered. The server executor intercepts
// it with errors.As and turns it into a payment-required task update.
type PaymentRequiredError struct {
	// Message is the human-readable reason shown to the paying peer.
	Message string

	// Requirements is the menu of acceptable payment methods.
	Requirements []PaymentRequirements

	// Code optionally carries an x402 error code for the condition.
	Code string
}

// NewPaymentRequiredError builds a PaymentRequiredError from one or more
// payment options.
func NewPaymentRequiredError(message string, requirements ...PaymentRequirements) *PaymentRequiredError {
	return &PaymentRequiredError{
		Message:      message,
		Requirements: requirements,
	}
}

func (e *PaymentRequiredError) Error() string {
	return e.Message
}

// Accepts returns the payment requirements in PaymentRequiredResponse
// accepts-array form.
func (e *PaymentRequiredError) Accepts() []PaymentRequirements {
	return e.Requirements
}
