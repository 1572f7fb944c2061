// Package pricing estimates marketplace fees and project profitability.
package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidConfig is returned for unknown keys and out-of-range values.
var ErrInvalidConfig = errors.New("invalid pricing config")

// Recognised configuration keys.
const (
	KeyFinalValueFee     = "ebay_final_value_fee"
	KeyPaymentProcessing = "ebay_payment_processing"
	KeyPaymentFixed      = "ebay_payment_fixed"
	KeyPromotedListing   = "ebay_promoted_listing"
	KeyShippingLight     = "shipping_estimate_light"
	KeyShippingMedium    = "shipping_estimate_medium"
	KeyShippingHeavy     = "shipping_estimate_heavy"
)

var percentageKeys = map[string]bool{
	KeyFinalValueFee:     true,
	KeyPaymentProcessing: true,
	KeyPromotedListing:   true,
}

// Config is an owner's fee and shipping assumptions. Rates are fractions of
// the listing price; the fixed fee and shipping estimates are amounts.
type Config struct {
	FinalValueFee     decimal.Decimal `json:"ebay_final_value_fee"`
	PaymentProcessing decimal.Decimal `json:"ebay_payment_processing"`
	PaymentFixed      decimal.Decimal `json:"ebay_payment_fixed"`
	PromotedListing   decimal.Decimal `json:"ebay_promoted_listing"`
	ShippingLight     decimal.Decimal `json:"shipping_estimate_light"`
	ShippingMedium    decimal.Decimal `json:"shipping_estimate_medium"`
	ShippingHeavy     decimal.Decimal `json:"shipping_estimate_heavy"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		FinalValueFee:     decimal.RequireFromString("0.1315"),
		PaymentProcessing: decimal.RequireFromString("0.029"),
		PaymentFixed:      decimal.RequireFromString("0.30"),
		PromotedListing:   decimal.Zero,
		ShippingLight:     decimal.NewFromInt(8),
		ShippingMedium:    decimal.NewFromInt(15),
		ShippingHeavy:     decimal.NewFromInt(25),
	}
}

// Keys lists the recognised configuration keys in stable order.
func Keys() []string {
	keys := make([]string, 0, 7)
	for k := range DefaultConfig().Map() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Description is a short human description of key.
func Description(key string) string {
	switch key {
	case KeyFinalValueFee:
		return "Marketplace final value fee (fraction of price)"
	case KeyPaymentProcessing:
		return "Payment processing fee (fraction of price)"
	case KeyPaymentFixed:
		return "Fixed payment fee per order"
	case KeyPromotedListing:
		return "Promoted listing fee (fraction of price)"
	case KeyShippingLight:
		return "Shipping estimate for light parts"
	case KeyShippingMedium:
		return "Shipping estimate for medium parts"
	case KeyShippingHeavy:
		return "Shipping estimate for heavy parts"
	}
	return ""
}

func (c *Config) field(key string) *decimal.Decimal {
	switch key {
	case KeyFinalValueFee:
		return &c.FinalValueFee
	case KeyPaymentProcessing:
		return &c.PaymentProcessing
	case KeyPaymentFixed:
		return &c.PaymentFixed
	case KeyPromotedListing:
		return &c.PromotedListing
	case KeyShippingLight:
		return &c.ShippingLight
	case KeyShippingMedium:
		return &c.ShippingMedium
	case KeyShippingHeavy:
		return &c.ShippingHeavy
	}
	return nil
}

// Map returns the configuration keyed by its recognised names.
func (c Config) Map() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		KeyFinalValueFee:     c.FinalValueFee,
		KeyPaymentProcessing: c.PaymentProcessing,
		KeyPaymentFixed:      c.PaymentFixed,
		KeyPromotedListing:   c.PromotedListing,
		KeyShippingLight:     c.ShippingLight,
		KeyShippingMedium:    c.ShippingMedium,
		KeyShippingHeavy:     c.ShippingHeavy,
	}
}

// ValidateValue checks a single key/value pair.
func ValidateValue(key string, v decimal.Decimal) error {
	if _, ok := DefaultConfig().Map()[key]; !ok {
		return fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, key)
	}
	if v.IsNegative() {
		return fmt.Errorf("%w: %s must be >= 0", ErrInvalidConfig, key)
	}
	if percentageKeys[key] && v.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s must be between 0 and 1 (percentage as decimal)", ErrInvalidConfig, key)
	}
	return nil
}

// Validate checks every field of c.
func (c Config) Validate() error {
	for k, v := range c.Map() {
		if err := ValidateValue(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns c with updates applied. Nothing is applied when any key or
// value is invalid.
func (c Config) Apply(updates map[string]decimal.Decimal) (Config, error) {
	var bad []string
	for k := range updates {
		if c.field(k) == nil {
			bad = append(bad, k)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return c, fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(bad, ", "))
	}
	next := c
	for k, v := range updates {
		if err := ValidateValue(k, v); err != nil {
			return c, err
		}
		*next.field(k) = v
	}
	return next, nil
}
