package httpapi

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"artifactlive.org/internal/audit"
	"artifactlive.org/internal/pricing"
)

type pricingConfigResponse struct {
	Config       pricing.Config    `json:"config"`
	Descriptions map[string]string `json:"descriptions"`
}

type calculateRequest struct {
	Price       decimal.Decimal `json:"price"`
	WeightClass string          `json:"weight_class"`
}

type partRequest struct {
	Status          string          `json:"status"`
	SetID           string          `json:"set_id"`
	WeightClass     string          `json:"weight_class"`
	EstimatedValue  decimal.Decimal `json:"estimated_value"`
	ActualSalePrice decimal.Decimal `json:"actual_sale_price"`
	FeesPaid        decimal.Decimal `json:"fees_paid"`
	ShippingPaid    decimal.Decimal `json:"shipping_paid"`
}

type summaryRequest struct {
	AcquisitionCost decimal.Decimal `json:"acquisition_cost"`
	Parts           []partRequest   `json:"parts"`
}

func describe(cfg pricing.Config) pricingConfigResponse {
	desc := make(map[string]string, len(pricing.Keys()))
	for _, k := range pricing.Keys() {
		desc[k] = pricing.Description(k)
	}
	return pricingConfigResponse{Config: cfg, Descriptions: desc}
}

func (a *API) getPricingConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.pricing.GetPricingConfig(r.Context(), owner(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, describe(cfg))
}

func (a *API) updatePricingConfig(w http.ResponseWriter, r *http.Request) {
	var updates map[string]decimal.Decimal
	if err := decodeJSON(w, r, &updates); err != nil {
		badRequest(w, r, "%s", err.Error())
		return
	}
	if len(updates) == 0 {
		badRequest(w, r, "no configuration keys supplied")
		return
	}
	cfg, err := a.pricing.UpdatePricingConfig(r.Context(), owner(r), updates)
	if err != nil {
		handleError(w, r, err)
		return
	}
	changed := make(map[string]any, len(updates))
	for k, v := range updates {
		changed[k] = v.String()
	}
	a.audit(r.Context(), audit.PricingConfigUpdate, changed)
	writeJSON(w, http.StatusOK, describe(cfg))
}

func (a *API) calculateFees(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "%s", err.Error())
		return
	}
	cfg, err := a.pricing.GetPricingConfig(r.Context(), owner(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pricing.CalculateFees(req.Price, cfg, pricing.ParseWeightClass(req.WeightClass)).Rounded())
}

func (a *API) projectSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "%s", err.Error())
		return
	}
	if req.AcquisitionCost.IsNegative() {
		badRequest(w, r, "acquisition_cost must be >= 0")
		return
	}
	cfg, err := a.pricing.GetPricingConfig(r.Context(), owner(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	parts := make([]pricing.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		parts = append(parts, pricing.Part{
			Status:          strings.ToUpper(strings.TrimSpace(p.Status)),
			SetID:           p.SetID,
			WeightClass:     pricing.ParseWeightClass(p.WeightClass),
			EstimatedValue:  p.EstimatedValue,
			ActualSalePrice: p.ActualSalePrice,
			FeesPaid:        p.FeesPaid,
			ShippingPaid:    p.ShippingPaid,
		})
	}
	writeJSON(w, http.StatusOK, pricing.SummarizeProject(req.AcquisitionCost, parts, cfg))
}
