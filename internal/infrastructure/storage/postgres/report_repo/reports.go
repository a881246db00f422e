// Package report_repo provides read-side queries for costing reports.
package report_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"stocklot/internal/core/id"
	"stocklot/internal/domain/reports"
	"stocklot/internal/infrastructure/storage/postgres"
)

// Repo implements reports.Repository.
type Repo struct {
	txm *postgres.TxManager
}

// NewRepo creates the reports repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

// ProductValuations values on-hand stock at lot cost, per product.
func (r *Repo) ProductValuations(ctx context.Context) ([]reports.ProductValuation, error) {
	sql := `
		SELECT "productId",
		       COALESCE(SUM("currentQuantity"), 0)               AS "onHand",
		       COALESCE(SUM("currentQuantity" * "costPrice"), 0) AS value
		FROM "inventoryEntries"
		GROUP BY "productId"
		HAVING COALESCE(SUM("currentQuantity"), 0) > 0
		ORDER BY "productId"
	`

	var valuations []reports.ProductValuation
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &valuations, sql); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select valuations: %w", err), "inventory entries", "")
	}
	return valuations, nil
}

// WeightedAverageCost aggregates every lot ever received for the product,
// exhausted lots included.
func (r *Repo) WeightedAverageCost(ctx context.Context, productID id.ID) (*reports.WeightedAverageCost, error) {
	sql := `
		SELECT COALESCE(SUM("quantityReceived"), 0)               AS received,
		       COALESCE(SUM("quantityReceived" * "costPrice"), 0) AS total_cost
		FROM "inventoryEntries"
		WHERE "productId" = $1
	`

	var received int64
	var totalCost decimal.Decimal
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, productID).Scan(&received, &totalCost)
	if err != nil && err != pgx.ErrNoRows {
		return nil, postgres.MapError(fmt.Errorf("aggregate lots: %w", err), "inventory entries", productID.String())
	}
	if received == 0 {
		return nil, nil
	}

	return &reports.WeightedAverageCost{
		ProductID:        productID,
		QuantityReceived: received,
		AverageCost:      totalCost.Div(decimal.NewFromInt(received)).Round(4),
	}, nil
}

// Ensure interface compliance.
var _ reports.Repository = (*Repo)(nil)
