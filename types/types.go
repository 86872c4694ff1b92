package types

import (
	"fmt"
)

// X402Version is the version of the x402 protocol spoken by this library.
const X402Version = 1

// PaymentRequirements describes one payment method a merchant accepts for a
// resource. Instances are immutable once issued; together they form the
// "accepts" array of a PaymentRequiredResponse.
type PaymentRequirements struct {
	// Scheme of the payment protocol to use (e.g., "exact").
	Scheme string `json:"scheme" validate:"required"`

	// Network of the blockchain to send payment on (e.g., "base-sepolia").
	Network string `json:"network" validate:"required"`

	// Maximum amount required to pay for the resource in atomic units of the
	// asset. Represented as a string because Go does not support uint256.
	MaxAmountRequired string `json:"maxAmountRequired" validate:"required"`

	// Resource identifier being paid for (e.g., "/generate-image").
	Resource string `json:"resource"`

	// Description of the resource being purchased.
	Description string `json:"description"`

	// MIME type of the resource response (e.g., "application/json").
	MimeType string `json:"mimeType"`

	// Output schema of the resource response, if applicable.
	OutputSchema map[string]interface{} `json:"outputSchema,omitempty"`

	// Address to which the payment must be sent.
	PayTo string `json:"payTo" validate:"required"`

	// Maximum time in seconds for the payment to remain valid.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds" validate:"gt=0"`

	// Address of the EIP-3009 compliant ERC20 contract.
	Asset string `json:"asset" validate:"required"`

	// Extra information specific to the scheme. For the `exact` scheme on
	// EVM networks this carries the EIP-712 domain `name` and `version` of
	// the asset contract.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// Validate checks that the PaymentRequirements contains all required fields.
func (pr *PaymentRequirements) Validate() error {
	if pr.Scheme == "" {
		return fmt.Errorf("paymentRequirements.scheme is required")
	}

	if pr.Network == "" {
		return fmt.Errorf("paymentRequirements.network is required")
	}

	if pr.MaxAmountRequired == "" {
		return fmt.Errorf("paymentRequirements.maxAmountRequired is required")
	}

	if pr.PayTo == "" {
		return fmt.Errorf("paymentRequirements.payTo is required")
	}

	if pr.Asset == "" {
		return fmt.Errorf("paymentRequirements.asset is required")
	}

	if pr.MaxTimeoutSeconds <= 0 {
		return fmt.Errorf("paymentRequirements.maxTimeoutSeconds must be greater than 0")
	}

	return nil
}

// PaymentRequiredResponse is the merchant's answer when payment is needed:
// the menu of acceptable payment methods plus a human-readable message.
type PaymentRequiredResponse struct {
	// Version of the x402 payment protocol.
	X402Version int `json:"x402Version"`

	// List of payment requirements the merchant accepts.
	Accepts []PaymentRequirements `json:"accepts"`

	// Message from the merchant indicating why payment is required or what
	// went wrong while processing it.
	Error string `json:"error"`
}

// EIP3009Authorization is an EIP-3009 transferWithAuthorization message:
// a signed, off-chain permission for a specific token transfer, redeemable
// on-chain once.
type EIP3009Authorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`       // uint256
	ValidAfter  string `json:"validAfter"`  // uint256 timestamp
	ValidBefore string `json:"validBefore"` // uint256 timestamp
	Nonce       string `json:"nonce"`       // bytes32
}

// ExactPaymentPayload is the signed payment body for the `exact` scheme.
type ExactPaymentPayload struct {
	// The 65-byte ECDSA signature (r,s,v) as hex.
	Signature string `json:"signature"`

	Authorization EIP3009Authorization `json:"authorization"`
}

// PaymentPayload is a signed payment submitted by the paying agent.
type PaymentPayload struct {
	// Version of the x402 payment protocol.
	X402Version int `json:"x402Version"`

	Scheme string `json:"scheme"`

	Network string `json:"network"`

	Payload ExactPaymentPayload `json:"payload"`
}

// Validate checks that the PaymentPayload contains all required fields.
func (p *PaymentPayload) Validate() error {
	if p.X402Version <= 0 {
		return fmt.Errorf("x402Version must be greater than 0")
	}

	if p.Scheme == "" {
		return fmt.Errorf("paymentPayload.scheme is required")
	}

	if p.Network == "" {
		return fmt.Errorf("paymentPayload.network is required")
	}

	if p.Payload.Signature == "" {
		return fmt.Errorf("paymentPayload.payload.signature is required")
	}

	return nil
}

// VerifyRequest is the body sent to a facilitator to verify or settle a
// payment: the signed payload plus the requirements it is matched against.
type VerifyRequest struct {
	X402Version         int                 `json:"x402Version"`
	PaymentPayload      PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
}

// VerifyResponse is the facilitator's verification result.
type VerifyResponse struct {
	// Indicates whether the payment is valid.
	IsValid bool `json:"isValid"`

	// Provides a reason if the payment is invalid, otherwise empty.
	InvalidReason string `json:"invalidReason,omitempty"`

	// Address of the verified payer.
	Payer string `json:"payer,omitempty"`
}

// SettleResponse is the facilitator's settlement result. Appended to a
// task's receipts array; the sequence of settlement attempts is never
// truncated.
type SettleResponse struct {
	Success     bool   `json:"success"`
	Transaction string `json:"transaction,omitempty"`
	Network     string `json:"network,omitempty"`
	Payer       string `json:"payer,omitempty"`
	ErrorReason string `json:"errorReason,omitempty"`
}

// SupportedKind describes one payment kind a facilitator supports.
type SupportedKind struct {
	X402Version int                    `json:"x402Version"`
	Scheme      string                 `json:"scheme"`
	Network     string                 `json:"network"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// SupportedResponse lists all payment kinds supported by a facilitator.
type SupportedResponse struct {
	Kinds []SupportedKind `json:"kinds"`
}
