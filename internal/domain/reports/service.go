package reports

import (
	"context"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
)

// Repository is the read-side contract for costing reports.
type Repository interface {
	// ProductValuations returns per-product on-hand quantity and value
	// (currentQuantity * costPrice summed over lots).
	ProductValuations(ctx context.Context) ([]ProductValuation, error)

	// WeightedAverageCost aggregates all lots ever received for a product.
	// Returns nil when the product has no lots.
	WeightedAverageCost(ctx context.Context, productID id.ID) (*WeightedAverageCost, error)
}

// Service serves costing reports.
type Service struct {
	repo Repository
}

// NewService creates the reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// StockValuation returns the current stock value per product and in total.
func (s *Service) StockValuation(ctx context.Context) (*Valuation, error) {
	products, err := s.repo.ProductValuations(ctx)
	if err != nil {
		return nil, err
	}
	v := &Valuation{Products: products}
	for _, p := range products {
		v.TotalValue = v.TotalValue.Add(p.Value)
	}
	return v, nil
}

// WeightedAverageCost returns the receipt-weighted average cost for a
// product.
func (s *Service) WeightedAverageCost(ctx context.Context, productID id.ID) (*WeightedAverageCost, error) {
	if id.IsNil(productID) {
		return nil, apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	wac, err := s.repo.WeightedAverageCost(ctx, productID)
	if err != nil {
		return nil, err
	}
	if wac == nil {
		return nil, apperror.NewNotFound("product costing history", productID.String())
	}
	return wac, nil
}
