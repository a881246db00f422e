// Package ledger_repo provides the PostgreSQL implementation of the
// transaction ledger repository.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/ledger"
	"stocklot/internal/infrastructure/storage/postgres"
)

const transactionsTable = "transactions"

var transactionColumns = []string{
	"id", `"transactionType"`, "amount", "description", `"paymentDate"`,
	`"referenceId"`, `"referenceType"`, `"paymentMethodId"`, `"processedById"`,
	"status", `"createdAt"`,
}

// Repo implements ledger.Repository.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	opKeys  *postgres.OperationKeyStore
}

// NewRepo creates the transaction ledger repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		opKeys:  postgres.NewOperationKeyStore(txm),
	}
}

// Create inserts a new transaction row.
func (r *Repo) Create(ctx context.Context, t *ledger.Transaction) error {
	q := r.builder.Insert(transactionsTable).
		Columns(transactionColumns...).
		Values(
			t.ID, t.Type, t.Amount, t.Description, t.PaymentDate,
			t.ReferenceID, t.ReferenceType, t.PaymentMethodID, t.ProcessedByID,
			t.Status, t.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert transaction: %w", err), "transaction", t.ID.String())
	}
	return nil
}

// Get retrieves a transaction by id.
func (r *Repo) Get(ctx context.Context, txID id.ID) (*ledger.Transaction, error) {
	q := r.builder.Select(transactionColumns...).
		From(transactionsTable).
		Where(squirrel.Eq{"id": txID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t ledger.Transaction
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &t, sql, args...); err != nil {
		return nil, postgres.MapError(err, "transaction", txID.String())
	}
	return &t, nil
}

// GetForUpdate retrieves a transaction with a pessimistic row lock.
func (r *Repo) GetForUpdate(ctx context.Context, txID id.ID) (*ledger.Transaction, error) {
	sql := `
		SELECT id, "transactionType", amount, description, "paymentDate",
		       "referenceId", "referenceType", "paymentMethodId", "processedById",
		       status, "createdAt"
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`

	var t ledger.Transaction
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &t, sql, txID); err != nil {
		return nil, postgres.MapError(err, "transaction", txID.String())
	}
	return &t, nil
}

// UpdateStatus writes a new transaction status.
func (r *Repo) UpdateStatus(ctx context.Context, txID id.ID, status ledger.Status) error {
	q := r.builder.Update(transactionsTable).
		Set("status", status).
		Where(squirrel.Eq{"id": txID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update status: %w", err), "transaction", txID.String())
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(pgx.ErrNoRows, "transaction", txID.String())
	}
	return nil
}

// List retrieves transactions with filtering.
func (r *Repo) List(ctx context.Context, filter ledger.Filter) ([]ledger.Transaction, error) {
	q := r.builder.Select(transactionColumns...).From(transactionsTable)

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{`"transactionType"`: *filter.Type})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Ref != nil {
		q = q.Where(squirrel.Eq{
			`"referenceId"`:   filter.Ref.ID,
			`"referenceType"`: string(filter.Ref.Kind),
		})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{`"paymentDate"`: *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{`"paymentDate"`: *filter.ToDate})
	}

	q = q.OrderBy(`"paymentDate" DESC`, "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var transactions []ledger.Transaction
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &transactions, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select transactions: %w", err), "transactions", "")
	}
	return transactions, nil
}

// SumCompletedAsOf sums completed transactions dated up to asOf.
func (r *Repo) SumCompletedAsOf(ctx context.Context, asOf time.Time, typ *ledger.TransactionType) (types.Money, error) {
	sql := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE status = $1 AND "paymentDate" <= $2
	`
	args := []any{ledger.StatusCompleted, asOf}
	if typ != nil {
		sql += ` AND "transactionType" = $3`
		args = append(args, *typ)
	}

	var sum decimal.Decimal
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&sum); err != nil {
		return types.ZeroMoney(), postgres.MapError(fmt.Errorf("sum transactions: %w", err), "transactions", "")
	}
	return sum, nil
}

// ClaimOperationKey claims a service-level idempotency key.
func (r *Repo) ClaimOperationKey(ctx context.Context, key, operation string, entityID id.ID) (id.ID, bool, error) {
	return r.opKeys.Claim(ctx, key, operation, entityID)
}

// Ensure interface compliance.
var _ ledger.Repository = (*Repo)(nil)
