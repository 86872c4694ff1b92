// Package facilitator defines the contract with the payment facilitator:
// the verification and settlement oracle that validates signed payment
// authorizations and executes them on-chain on behalf of the merchant.
package facilitator

import (
	"context"

	"github.com/agentcommerce/x402-a2a/types"
)

// Client is the facilitator capability used by the server executor. Verify
// must be safe to call repeatedly; Settle is triggered at most once per
// successfully verified payment by this layer. Implementations own their
// timeouts; the executor enforces none.
type Client interface {
	// Verify checks a payment authorization against requirements without
	// moving funds.
	Verify(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.VerifyResponse, error)

	// Settle executes a verified payment on-chain.
	Settle(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.SettleResponse, error)

	// Supported lists the payment kinds the facilitator can process.
	Supported(ctx context.Context) (*types.SupportedResponse, error)
}
