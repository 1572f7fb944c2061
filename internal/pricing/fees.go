package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// WeightClass selects a shipping estimate.
type WeightClass string

const (
	Light  WeightClass = "light"
	Medium WeightClass = "medium"
	Heavy  WeightClass = "heavy"
)

// ParseWeightClass maps s to a weight class; anything unknown is Medium.
func ParseWeightClass(s string) WeightClass {
	switch w := WeightClass(strings.ToLower(strings.TrimSpace(s))); w {
	case Light, Medium, Heavy:
		return w
	}
	return Medium
}

// Breakdown is a fee estimate for one listing price.
type Breakdown struct {
	ListingPrice         decimal.Decimal `json:"listing_price"`
	FinalValueFee        decimal.Decimal `json:"final_value_fee"`
	PaymentProcessingFee decimal.Decimal `json:"payment_processing_fee"`
	PaymentFixedFee      decimal.Decimal `json:"payment_fixed_fee"`
	PromotedListingFee   decimal.Decimal `json:"promoted_listing_fee"`
	TotalFees            decimal.Decimal `json:"total_fees"`
	ShippingEstimate     decimal.Decimal `json:"shipping_estimate"`
	NetAfterFees         decimal.Decimal `json:"net_after_fees"`
	NetAfterShipping     decimal.Decimal `json:"net_after_shipping"`
}

// CalculateFees estimates marketplace fees and shipping at full precision.
// A non-positive price yields an all-zero breakdown.
func CalculateFees(price decimal.Decimal, cfg Config, weight WeightClass) Breakdown {
	if !price.IsPositive() {
		return Breakdown{}
	}
	fvf := price.Mul(cfg.FinalValueFee)
	processing := price.Mul(cfg.PaymentProcessing)
	promoted := price.Mul(cfg.PromotedListing)
	total := fvf.Add(processing).Add(cfg.PaymentFixed).Add(promoted)

	var shipping decimal.Decimal
	switch ParseWeightClass(string(weight)) {
	case Light:
		shipping = cfg.ShippingLight
	case Heavy:
		shipping = cfg.ShippingHeavy
	default:
		shipping = cfg.ShippingMedium
	}
	net := price.Sub(total)
	return Breakdown{
		ListingPrice:         price,
		FinalValueFee:        fvf,
		PaymentProcessingFee: processing,
		PaymentFixedFee:      cfg.PaymentFixed,
		PromotedListingFee:   promoted,
		TotalFees:            total,
		ShippingEstimate:     shipping,
		NetAfterFees:         net,
		NetAfterShipping:     net.Sub(shipping),
	}
}

// Rounded returns b with every figure rounded to cents for presentation.
func (b Breakdown) Rounded() Breakdown {
	r := func(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
	return Breakdown{
		ListingPrice:         r(b.ListingPrice),
		FinalValueFee:        r(b.FinalValueFee),
		PaymentProcessingFee: r(b.PaymentProcessingFee),
		PaymentFixedFee:      r(b.PaymentFixedFee),
		PromotedListingFee:   r(b.PromotedListingFee),
		TotalFees:            r(b.TotalFees),
		ShippingEstimate:     r(b.ShippingEstimate),
		NetAfterFees:         r(b.NetAfterFees),
		NetAfterShipping:     r(b.NetAfterShipping),
	}
}
