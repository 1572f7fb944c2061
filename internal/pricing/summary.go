package pricing

import "github.com/shopspring/decimal"

// Part statuses that matter for profitability.
const (
	StatusInSystem  = "IN_SYSTEM"
	StatusListed    = "LISTED"
	StatusSold      = "SOLD"
	StatusKept      = "KEPT"
	StatusTrashed   = "TRASHED"
	StatusInProject = "IN_PROJECT"
)

// Part is the pricing view of one harvested part. Parts sharing a SetID are
// sold together and estimated once.
type Part struct {
	Status          string
	SetID           string
	WeightClass     WeightClass
	EstimatedValue  decimal.Decimal
	ActualSalePrice decimal.Decimal
	FeesPaid        decimal.Decimal
	ShippingPaid    decimal.Decimal
}

// Summary is a project's projected and realised profitability, rounded to
// cents.
type Summary struct {
	PartsTotal     int `json:"parts_total"`
	PartsForSale   int `json:"parts_for_sale"`
	PartsSold      int `json:"parts_sold"`
	PartsKept      int `json:"parts_kept"`
	PartsTrashed   int `json:"parts_trashed"`
	PartsInProject int `json:"parts_in_project"`

	AcquisitionCost  decimal.Decimal `json:"acquisition_cost"`
	BreakEvenPerPart decimal.Decimal `json:"break_even_per_part"`

	TotalEstimatedValue    decimal.Decimal `json:"total_estimated_value"`
	TotalEstimatedFees     decimal.Decimal `json:"total_estimated_fees"`
	TotalEstimatedShipping decimal.Decimal `json:"total_estimated_shipping"`
	ProjectedNetRevenue    decimal.Decimal `json:"projected_net_revenue"`
	ProjectedProfit        decimal.Decimal `json:"projected_profit"`
	ProfitMarginPercent    decimal.Decimal `json:"profit_margin_percent"`

	ActualRevenue  decimal.Decimal `json:"actual_revenue"`
	ActualFees     decimal.Decimal `json:"actual_fees"`
	ActualShipping decimal.Decimal `json:"actual_shipping"`
	ActualProfit   decimal.Decimal `json:"actual_profit"`
}

// SummarizeProject estimates the profitability of a project bought for
// acquisitionCost and broken into parts.
func SummarizeProject(acquisitionCost decimal.Decimal, parts []Part, cfg Config) Summary {
	s := Summary{PartsTotal: len(parts)}
	var estValue, estFees, estShipping, revenue, fees, shipping decimal.Decimal
	seenSets := make(map[string]bool)

	for _, p := range parts {
		switch p.Status {
		case StatusSold:
			s.PartsSold++
			revenue = revenue.Add(p.ActualSalePrice)
			fees = fees.Add(p.FeesPaid)
			shipping = shipping.Add(p.ShippingPaid)
		case StatusKept:
			s.PartsKept++
		case StatusTrashed:
			s.PartsTrashed++
		case StatusInProject:
			s.PartsInProject++
		case StatusInSystem, StatusListed:
			s.PartsForSale++
			if p.SetID != "" {
				if seenSets[p.SetID] {
					continue
				}
				seenSets[p.SetID] = true
			}
			if p.EstimatedValue.IsPositive() {
				estValue = estValue.Add(p.EstimatedValue)
				b := CalculateFees(p.EstimatedValue, cfg, p.WeightClass).Rounded()
				estFees = estFees.Add(b.TotalFees)
				estShipping = estShipping.Add(b.ShippingEstimate)
			}
		}
	}

	projectedNet := estValue.Sub(estFees).Sub(estShipping)
	projectedProfit := projectedNet.Sub(acquisitionCost)
	margin := decimal.Zero
	if acquisitionCost.IsPositive() {
		margin = projectedProfit.Div(acquisitionCost).Mul(decimal.NewFromInt(100))
	}
	breakEven := decimal.Zero
	if sellable := s.PartsForSale + s.PartsSold; sellable > 0 {
		breakEven = acquisitionCost.Div(decimal.NewFromInt(int64(sellable)))
	}
	actualProfit := decimal.Zero
	if s.PartsSold > 0 {
		actualProfit = revenue.Sub(fees).Sub(shipping).Sub(breakEven.Mul(decimal.NewFromInt(int64(s.PartsSold))))
	}

	s.AcquisitionCost = acquisitionCost.Round(2)
	s.BreakEvenPerPart = breakEven.Round(2)
	s.TotalEstimatedValue = estValue.Round(2)
	s.TotalEstimatedFees = estFees.Round(2)
	s.TotalEstimatedShipping = estShipping.Round(2)
	s.ProjectedNetRevenue = projectedNet.Round(2)
	s.ProjectedProfit = projectedProfit.Round(2)
	s.ProfitMarginPercent = margin.Round(2)
	s.ActualRevenue = revenue.Round(2)
	s.ActualFees = fees.Round(2)
	s.ActualShipping = shipping.Round(2)
	s.ActualProfit = actualProfit.Round(2)
	return s
}
