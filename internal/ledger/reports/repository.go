package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads posted-line aggregates for reporting.
type Repository interface {
	AccountBalances(ctx context.Context, asOf *time.Time) ([]AccountBalance, error)
	CategoryAggregates(ctx context.Context, from, to time.Time) ([]CategoryAggregate, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) AccountBalances(ctx context.Context, asOf *time.Time) ([]AccountBalance, error) {
	query := `SELECT a.code, a.name, a.category, a.nature, a.opening_balance,
COALESCE(SUM(l.debit) FILTER (WHERE e.status='POSTED'`
	args := []any{}
	if asOf != nil {
		args = append(args, *asOf)
		query += ` AND e.date <= $1`
	}
	query += `),0),
COALESCE(SUM(l.credit) FILTER (WHERE e.status='POSTED'`
	if asOf != nil {
		query += ` AND e.date <= $1`
	}
	query += `),0)
FROM accounts a
LEFT JOIN journal_entry_lines l ON l.account_id = a.id
LEFT JOIN journal_entries e ON e.id = l.entry_id
WHERE a.is_leaf
GROUP BY a.code, a.name, a.category, a.nature, a.opening_balance
ORDER BY a.code`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.Code, &b.Name, &b.Category, &b.Nature, &b.Opening, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (r *repository) CategoryAggregates(ctx context.Context, from, to time.Time) ([]CategoryAggregate, error) {
	rows, err := r.db.Query(ctx, `SELECT e.category, e.subcategory,
COALESCE(SUM(l.debit)  FILTER (WHERE a.is_cash_account OR a.is_bank_account),0),
COALESCE(SUM(l.credit) FILTER (WHERE a.is_cash_account OR a.is_bank_account),0),
COALESCE(SUM(l.debit)  FILTER (WHERE a.category='EXPENSE'),0),
COALESCE(SUM(l.credit) FILTER (WHERE a.category='EXPENSE'),0)
FROM journal_entry_lines l
JOIN journal_entries e ON e.id = l.entry_id
JOIN accounts a ON a.id = l.account_id
WHERE e.status='POSTED' AND e.category <> '' AND e.date BETWEEN $1 AND $2
GROUP BY e.category, e.subcategory
ORDER BY e.category, e.subcategory`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var aggregates []CategoryAggregate
	for rows.Next() {
		var agg CategoryAggregate
		if err := rows.Scan(&agg.Category, &agg.Subcategory, &agg.CashDebit, &agg.CashCredit, &agg.ExpenseDebit, &agg.ExpenseCredit); err != nil {
			return nil, err
		}
		aggregates = append(aggregates, agg)
	}
	return aggregates, rows.Err()
}
