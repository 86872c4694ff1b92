package merchant

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/agentcommerce/x402-a2a/types"
)

// RequirePayment builds the typed error a delegate returns to demand
// payment for a single service.
//
//	if !caller.HasAccess() {
//		return merchant.RequirePayment("$1.00", payTo, "/premium-feature",
//			merchant.WithDescription("Premium feature access"))
//	}
func RequirePayment(price, payToAddress, resource string, opts ...Option) error {
	req, err := CreatePaymentRequirements(price, payToAddress, resource, opts...)
	if err != nil {
		return err
	}
	message := req.Description
	if message == "" {
		message = "Payment required for this service"
	}
	return types.NewPaymentRequiredError(message, *req)
}

// RequirePaymentChoice builds the typed error for a menu of payment
// options.
func RequirePaymentChoice(message string, options ...types.PaymentRequirements) error {
	if message == "" {
		message = "Multiple payment options available"
	}
	return types.NewPaymentRequiredError(message, options...)
}

// Tier defines one entry of a tiered service menu.
type Tier struct {
	// Multiplier scales the base price.
	Multiplier int
	// Suffix is appended to the resource path.
	Suffix string
	// Description of the tier.
	Description string
}

// TieredOptions builds payment requirements for multiple service tiers from
// a base USD price.
func TieredOptions(basePrice, payToAddress, resource string, tiers []Tier, opts ...Option) ([]types.PaymentRequirements, error) {
	if len(tiers) == 0 {
		tiers = []Tier{
			{Multiplier: 1, Suffix: "basic", Description: "Basic service"},
			{Multiplier: 2, Suffix: "premium", Description: "Premium service"},
		}
	}

	base, err := decimal.NewFromString(strings.TrimPrefix(basePrice, "$"))
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidAmount,
			Message: fmt.Sprintf("invalid base price %q: %v", basePrice, err),
		}
	}

	options := make([]types.PaymentRequirements, 0, len(tiers))
	for _, tier := range tiers {
		multiplier := tier.Multiplier
		if multiplier <= 0 {
			multiplier = 1
		}
		tierResource := resource
		if tier.Suffix != "" {
			tierResource = resource + "/" + tier.Suffix
		}
		tierOpts := append([]Option{WithDescription(tier.Description)}, opts...)
		req, err := CreatePaymentRequirements(
			base.Mul(decimal.NewFromInt(int64(multiplier))).String(),
			payToAddress,
			tierResource,
			tierOpts...,
		)
		if err != nil {
			return nil, err
		}
		options = append(options, *req)
	}
	return options, nil
}
