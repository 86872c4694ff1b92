// Package merchant builds the payment requirements a selling agent offers:
// dollar or token prices turned into atomic on-chain amounts with the
// EIP-712 domain details a wallet needs to sign against them.
package merchant

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/agentcommerce/x402-a2a/types"
)

var validate = validator.New()

// TokenAsset identifies a custom payment token and its EIP-712 domain.
type TokenAsset struct {
	Address    string
	Decimals   int32
	EIP712Name string
	EIP712Ver  string
}

// TokenAmount prices a resource in a custom token instead of USD.
type TokenAmount struct {
	// Amount in human units of the token (e.g., "1.5").
	Amount string
	Asset  TokenAsset
}

type requirementOptions struct {
	network     string
	scheme      string
	description string
	mimeType    string
	maxTimeout  int
	output      map[string]interface{}
	token       *TokenAmount
}

// Option customizes generated payment requirements.
type Option func(*requirementOptions)

// WithNetwork sets the blockchain network (default "base").
func WithNetwork(network string) Option {
	return func(o *requirementOptions) { o.network = network }
}

// WithScheme sets the payment scheme (default "exact").
func WithScheme(scheme string) Option {
	return func(o *requirementOptions) { o.scheme = scheme }
}

// WithDescription sets the human-readable description.
func WithDescription(description string) Option {
	return func(o *requirementOptions) { o.description = description }
}

// WithMimeType sets the expected response content type.
func WithMimeType(mimeType string) Option {
	return func(o *requirementOptions) { o.mimeType = mimeType }
}

// WithMaxTimeout sets the payment validity window in seconds.
func WithMaxTimeout(seconds int) Option {
	return func(o *requirementOptions) { o.maxTimeout = seconds }
}

// WithOutputSchema attaches a response schema.
func WithOutputSchema(schema map[string]interface{}) Option {
	return func(o *requirementOptions) { o.output = schema }
}

// WithToken prices the resource in a custom token; the price argument is
// ignored in favor of the token amount.
func WithToken(token TokenAmount) Option {
	return func(o *requirementOptions) { o.token = &token }
}

// CreatePaymentRequirements builds one payment requirement. The price is a
// USD amount ("$1.50" or "1.50") settled in the network's USDC unless
// WithToken overrides it.
func CreatePaymentRequirements(price, payToAddress, resource string, opts ...Option) (*types.PaymentRequirements, error) {
	o := requirementOptions{
		network:    "base",
		scheme:     "exact",
		mimeType:   "application/json",
		maxTimeout: 600,
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, ok := networks[o.network]
	if !ok {
		return nil, &types.Error{
			Code:    types.ErrNetworkMismatch,
			Message: fmt.Sprintf("unsupported network: %s (supported: %s)", o.network, strings.Join(SupportedNetworks(), ", ")),
		}
	}

	var (
		amount string
		asset  string
		extra  map[string]interface{}
		err    error
	)
	if o.token != nil {
		amount, err = atomicAmount(o.token.Amount, o.token.Asset.Decimals)
		if err != nil {
			return nil, err
		}
		asset = o.token.Asset.Address
		extra = map[string]interface{}{
			"name":    o.token.Asset.EIP712Name,
			"version": o.token.Asset.EIP712Ver,
		}
	} else {
		amount, err = atomicAmount(strings.TrimPrefix(price, "$"), cfg.USDCDecimals)
		if err != nil {
			return nil, err
		}
		asset = cfg.USDCAddress
		extra = map[string]interface{}{
			"name":    cfg.USDCName,
			"version": cfg.USDCVersion,
		}
	}

	req := &types.PaymentRequirements{
		Scheme:            o.scheme,
		Network:           o.network,
		MaxAmountRequired: amount,
		Resource:          resource,
		Description:       o.description,
		MimeType:          o.mimeType,
		OutputSchema:      o.output,
		PayTo:             payToAddress,
		MaxTimeoutSeconds: o.maxTimeout,
		Asset:             asset,
		Extra:             extra,
	}
	if err := validate.Struct(req); err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidAmount,
			Message: fmt.Sprintf("invalid payment requirements: %v", err),
		}
	}
	return req, nil
}

// atomicAmount converts a human-unit amount string into atomic units of an
// asset with the given number of decimals.
func atomicAmount(amount string, decimals int32) (string, error) {
	dec, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return "", &types.Error{
			Code:    types.ErrInvalidAmount,
			Message: fmt.Sprintf("invalid amount %q: %v", amount, err),
		}
	}
	if dec.IsNegative() {
		return "", &types.Error{
			Code:    types.ErrInvalidAmount,
			Message: "amount cannot be negative",
		}
	}
	atomic := dec.Shift(decimals)
	if !atomic.IsInteger() {
		return "", &types.Error{
			Code:    types.ErrInvalidAmount,
			Message: fmt.Sprintf("amount %q has more than %d decimal places", amount, decimals),
		}
	}
	return atomic.String(), nil
}
