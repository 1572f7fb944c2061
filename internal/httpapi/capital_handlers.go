package httpapi

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"artifactlive.org/internal/ledger"
	"artifactlive.org/internal/poster"
	"artifactlive.org/internal/pricing"
)

// contributionRequest records either a valued contribution (value) or an
// inventory layer (item_name, quantity, unit_cost).
type contributionRequest struct {
	Value         *decimal.Decimal `json:"value"`
	Description   string           `json:"description"`
	ReferenceType string           `json:"reference_type"`
	ReferenceID   string           `json:"reference_id"`

	ItemName string          `json:"item_name"`
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Source   string          `json:"source"`
	LayerID  string          `json:"layer_id"`
}

type saleRequest struct {
	PartID      string           `json:"part_id"`
	PartName    string           `json:"part_name"`
	SalePrice   decimal.Decimal  `json:"sale_price"`
	Fees        *decimal.Decimal `json:"fees"`
	Shipping    decimal.Decimal  `json:"shipping"`
	WeightClass string           `json:"weight_class"`
	CostBasis   decimal.Decimal  `json:"cost_basis"`
}

func (a *API) recordContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "%s", err.Error())
		return
	}

	var (
		txID  string
		err   error
		value decimal.Decimal
	)
	switch {
	case strings.TrimSpace(req.ItemName) != "":
		txID, err = a.poster.ContributeInventory(r.Context(), owner(r), poster.Item{
			Name:     req.ItemName,
			Quantity: req.Quantity,
			UnitCost: req.UnitCost,
			Source:   req.Source,
			LayerID:  req.LayerID,
		})
		value = req.Quantity.Mul(req.UnitCost).Round(2)
	case req.Value != nil:
		ref := ledger.Reference{Type: strings.ToUpper(strings.TrimSpace(req.ReferenceType)), ID: req.ReferenceID}
		txID, err = a.poster.RecordCapitalContribution(r.Context(), owner(r), *req.Value, req.Description, ref)
		value = req.Value.Round(2)
	default:
		badRequest(w, r, "either value or item_name is required")
		return
	}
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.notifyPosted(r, txID, "capital_contribution", "", []ledger.Line{{Debit: value}, {Credit: value}})
	writeJSON(w, http.StatusCreated, postingResponse{TransactionID: txID})
}

func (a *API) recordSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "%s", err.Error())
		return
	}
	txID, err := a.poster.RecordSale(r.Context(), owner(r), poster.Sale{
		PartID:      req.PartID,
		PartName:    req.PartName,
		SalePrice:   req.SalePrice,
		Fees:        req.Fees,
		Shipping:    req.Shipping,
		WeightClass: pricing.ParseWeightClass(req.WeightClass),
		CostBasis:   req.CostBasis,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	entries, lines := a.postedEntries(r, txID)
	a.notifyPosted(r, txID, "sale", "", lines)
	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction_id": txID,
		"entries":        entries,
	})
}
