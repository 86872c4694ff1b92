package facilitator

import (
	"context"
	"sync"

	"github.com/agentcommerce/x402-a2a/types"
)

// Mock is a facilitator that bypasses network calls and returns configured
// responses. It records every call so tests and demos can assert on the
// verify/settle sequence.
type Mock struct {
	mu sync.Mutex

	// Valid controls the verification outcome.
	Valid bool
	// InvalidReason is returned when Valid is false.
	InvalidReason string
	// Settled controls the settlement outcome.
	Settled bool
	// Transaction is the transaction hash reported on successful settlement.
	Transaction string
	// SettleErrorReason is returned when Settled is false.
	SettleErrorReason string
	// Network is echoed on settlement responses; requirements network is
	// used when empty.
	Network string

	// VerifyErr and SettleErr, when set, are returned as call errors to
	// simulate a facilitator outage.
	VerifyErr error
	SettleErr error

	verifyCalls []types.VerifyRequest
	settleCalls []types.VerifyRequest
}

// NewMock returns a mock facilitator that accepts and settles everything.
func NewMock() *Mock {
	return &Mock{Valid: true, Settled: true, Transaction: "0xmock"}
}

// Verify implements Client.
func (m *Mock) Verify(_ context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.VerifyResponse, error) {
	m.record(&m.verifyCalls, payload, requirements)
	if m.VerifyErr != nil {
		return nil, m.VerifyErr
	}
	if !m.Valid {
		reason := m.InvalidReason
		if reason == "" {
			reason = "mock_invalid_payload"
		}
		return &types.VerifyResponse{IsValid: false, InvalidReason: reason}, nil
	}
	return &types.VerifyResponse{
		IsValid: true,
		Payer:   payload.Payload.Authorization.From,
	}, nil
}

// Settle implements Client.
func (m *Mock) Settle(_ context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.SettleResponse, error) {
	m.record(&m.settleCalls, payload, requirements)
	if m.SettleErr != nil {
		return nil, m.SettleErr
	}
	network := m.Network
	if network == "" {
		network = requirements.Network
	}
	if !m.Settled {
		reason := m.SettleErrorReason
		if reason == "" {
			reason = "mock_settlement_failed"
		}
		return &types.SettleResponse{Success: false, Network: network, ErrorReason: reason}, nil
	}
	return &types.SettleResponse{
		Success:     true,
		Transaction: m.Transaction,
		Network:     network,
		Payer:       payload.Payload.Authorization.From,
	}, nil
}

// Supported implements Client.
func (m *Mock) Supported(context.Context) (*types.SupportedResponse, error) {
	return &types.SupportedResponse{
		Kinds: []types.SupportedKind{
			{X402Version: types.X402Version, Scheme: "exact", Network: "base"},
			{X402Version: types.X402Version, Scheme: "exact", Network: "base-sepolia"},
		},
	}, nil
}

func (m *Mock) record(calls *[]types.VerifyRequest, payload *types.PaymentPayload, requirements *types.PaymentRequirements) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*calls = append(*calls, types.VerifyRequest{
		X402Version:         types.X402Version,
		PaymentPayload:      *payload,
		PaymentRequirements: *requirements,
	})
}

// VerifyCalls returns a copy of all recorded verify calls.
func (m *Mock) VerifyCalls() []types.VerifyRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.VerifyRequest(nil), m.verifyCalls...)
}

// SettleCalls returns a copy of all recorded settle calls.
func (m *Mock) SettleCalls() []types.VerifyRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.VerifyRequest(nil), m.settleCalls...)
}
