package wallet

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/agentcommerce/x402-a2a/merchant"
	"github.com/agentcommerce/x402-a2a/types"
)

// validAfterSkew backdates authorizations to tolerate clock drift between
// the wallet and the verifying chain.
const validAfterSkew = 10 * time.Minute

// LocalWallet signs payments with an in-process private key. Intended for
// agents that custody their own key; production deployments can implement
// Signer against an external signer service instead.
type LocalWallet struct {
	key      *ecdsa.PrivateKey
	maxValue *big.Int
	now      func() time.Time
}

// LocalOption customizes a LocalWallet.
type LocalOption func(*LocalWallet)

// WithMaxValue caps the atomic amount the wallet will sign for. Offers
// above the cap are declined.
func WithMaxValue(max *big.Int) LocalOption {
	return func(w *LocalWallet) {
		w.maxValue = max
	}
}

// withClock overrides the time source, for tests.
func withClock(now func() time.Time) LocalOption {
	return func(w *LocalWallet) {
		w.now = now
	}
}

// NewLocalWallet builds a wallet from a hex-encoded private key.
func NewLocalWallet(hexKey string, opts ...LocalOption) (*LocalWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid private key: %w", err)
	}
	w := &LocalWallet{key: key, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Address returns the wallet's payer address.
func (w *LocalWallet) Address() common.Address {
	return crypto.PubkeyToAddress(w.key.PublicKey)
}

// SignPayment selects the first signable requirement from the accepts list
// and signs an EIP-3009 transfer authorization for it. A requirement is
// signable when it uses the exact scheme on a known EVM network and its
// amount is within the configured limit.
func (w *LocalWallet) SignPayment(_ context.Context, required *types.PaymentRequiredResponse) (*types.PaymentPayload, error) {
	if required == nil || len(required.Accepts) == 0 {
		return nil, fmt.Errorf("wallet: no payment requirements offered")
	}

	req := w.selectRequirement(required.Accepts)
	if req == nil {
		return nil, ErrPaymentDeclined
	}

	auth, err := w.buildAuthorization(req)
	if err != nil {
		return nil, err
	}

	domain, err := domainFor(req)
	if err != nil {
		return nil, err
	}

	signature, err := SignAuthorization(w.key, domain, auth)
	if err != nil {
		return nil, err
	}

	return &types.PaymentPayload{
		X402Version: types.X402Version,
		Scheme:      req.Scheme,
		Network:     req.Network,
		Payload: types.ExactPaymentPayload{
			Signature:     signature,
			Authorization: auth,
		},
	}, nil
}

func (w *LocalWallet) selectRequirement(accepts []types.PaymentRequirements) *types.PaymentRequirements {
	for i := range accepts {
		req := &accepts[i]
		if req.Scheme != "exact" {
			continue
		}
		if !merchant.IsSupportedNetwork(req.Network) {
			continue
		}
		amount, ok := new(big.Int).SetString(req.MaxAmountRequired, 10)
		if !ok {
			continue
		}
		if w.maxValue != nil && amount.Cmp(w.maxValue) > 0 {
			continue
		}
		return req
	}
	return nil
}

func (w *LocalWallet) buildAuthorization(req *types.PaymentRequirements) (types.EIP3009Authorization, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return types.EIP3009Authorization{}, fmt.Errorf("wallet: failed to generate nonce: %w", err)
	}

	now := w.now()
	validAfter := now.Add(-validAfterSkew).Unix()
	validBefore := now.Add(time.Duration(req.MaxTimeoutSeconds) * time.Second).Unix()

	return types.EIP3009Authorization{
		From:        w.Address().Hex(),
		To:          req.PayTo,
		Value:       req.MaxAmountRequired,
		ValidAfter:  fmt.Sprintf("%d", validAfter),
		ValidBefore: fmt.Sprintf("%d", validBefore),
		Nonce:       hexutil.Encode(nonce[:]),
	}, nil
}

// domainFor derives the EIP-712 signing domain from a requirement: the
// asset contract, its advertised name/version, and the network's chain id.
func domainFor(req *types.PaymentRequirements) (Domain, error) {
	chainID, ok := merchant.ChainID(req.Network)
	if !ok {
		return Domain{}, fmt.Errorf("wallet: unknown chain id for network %s", req.Network)
	}

	name, _ := req.Extra["name"].(string)
	version, _ := req.Extra["version"].(string)
	if name == "" || version == "" {
		return Domain{}, fmt.Errorf("wallet: requirement extra is missing the EIP-712 domain name/version")
	}

	return Domain{
		Name:              name,
		Version:           version,
		ChainID:           big.NewInt(chainID),
		VerifyingContract: common.HexToAddress(req.Asset),
	}, nil
}
