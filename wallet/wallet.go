// Package wallet signs payment requirements on the paying side: selecting
// one offer from a merchant's accepts list and producing the signed
// EIP-3009 authorization the client executor submits back.
package wallet

import (
	"context"
	"errors"

	"github.com/agentcommerce/x402-a2a/types"
)

// ErrPaymentDeclined is returned when the wallet refuses the merchant's
// offer: nothing in the accepts list is signable, or everything signable
// exceeds the configured spending limit. The client executor records
// payment-rejected for it instead of payment-failed.
var ErrPaymentDeclined = errors.New("wallet: payment declined")

// Signer selects one payment requirement from a payment-required response
// and returns the signed payload for it.
type Signer interface {
	SignPayment(ctx context.Context, required *types.PaymentRequiredResponse) (*types.PaymentPayload, error)
}
