// Package reports derives costing views over the inventory ledger.
package reports

import (
	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
)

// ProductValuation is the on-hand value of one product at current lot costs.
type ProductValuation struct {
	ProductID id.ID       `db:"productId"`
	OnHand    int64       `db:"onHand"`
	Value     types.Money `db:"value"`
}

// Valuation is the full stock valuation snapshot.
type Valuation struct {
	Products   []ProductValuation
	TotalValue types.Money
}

// WeightedAverageCost is the receipt-weighted average lot cost of a product,
// computed over all lots ever received (exhausted lots included; that is why
// they are retained).
type WeightedAverageCost struct {
	ProductID        id.ID       `db:"productId"`
	QuantityReceived int64       `db:"quantityReceived"`
	AverageCost      types.Money `db:"averageCost"`
}
