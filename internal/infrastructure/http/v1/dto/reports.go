package dto

import (
	"github.com/shopspring/decimal"

	"stocklot/internal/domain/reports"
)

// ProductValuationResponse is one product's on-hand value.
type ProductValuationResponse struct {
	ProductID string          `json:"productId"`
	OnHand    int64           `json:"onHand"`
	Value     decimal.Decimal `json:"value"`
}

// ValuationResponse is the full stock valuation snapshot.
type ValuationResponse struct {
	Products   []ProductValuationResponse `json:"products"`
	TotalValue decimal.Decimal            `json:"totalValue"`
}

// FromValuation converts a domain valuation.
func FromValuation(v *reports.Valuation) ValuationResponse {
	products := make([]ProductValuationResponse, len(v.Products))
	for i, p := range v.Products {
		products[i] = ProductValuationResponse{
			ProductID: p.ProductID.String(),
			OnHand:    p.OnHand,
			Value:     p.Value,
		}
	}
	return ValuationResponse{Products: products, TotalValue: v.TotalValue}
}

// WeightedAverageCostResponse is a product's receipt-weighted average cost.
type WeightedAverageCostResponse struct {
	ProductID        string          `json:"productId"`
	QuantityReceived int64           `json:"quantityReceived"`
	AverageCost      decimal.Decimal `json:"averageCost"`
}

// FromWeightedAverageCost converts a domain result.
func FromWeightedAverageCost(w *reports.WeightedAverageCost) WeightedAverageCostResponse {
	return WeightedAverageCostResponse{
		ProductID:        w.ProductID.String(),
		QuantityReceived: w.QuantityReceived,
		AverageCost:      w.AverageCost,
	}
}
