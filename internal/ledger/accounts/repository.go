package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/qayd-erp/qayd-erp/internal/ledger"
)

// ErrMappingNotFound indicates no account is mapped for a payment method.
var ErrMappingNotFound = errors.New("accounts: payment method mapping not found")

// Sums aggregates posted line totals for a balance computation.
type Sums struct {
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Opening decimal.Decimal
}

// Repository persists chart of accounts rows.
type Repository interface {
	GetByCode(ctx context.Context, code string) (Account, error)
	GetByID(ctx context.Context, id int64) (Account, error)
	GetByPartner(ctx context.Context, kind string, id int64) (Account, error)
	List(ctx context.Context, activeOnly bool) ([]Account, error)
	ListRootCodes(ctx context.Context, category ledger.AccountCategory) ([]string, error)
	ListChildCodes(ctx context.Context, parentID int64) ([]string, error)
	Exists(ctx context.Context, code string) (bool, error)
	Insert(ctx context.Context, account Account) (Account, error)
	Deactivate(ctx context.Context, code string) error
	HasPostings(ctx context.Context, accountID int64) (bool, error)
	SumLines(ctx context.Context, accountID int64, asOf *time.Time, postedOnly bool) (Sums, error)
	SumByCodePrefix(ctx context.Context, prefix string, asOf *time.Time, postedOnly bool) (Sums, error)
}

// MappingRepository persists payment-method-to-account mappings.
type MappingRepository interface {
	Get(ctx context.Context, method string) (PaymentMethodMapping, error)
	Upsert(ctx context.Context, mapping PaymentMethodMapping) error
	Delete(ctx context.Context, method string) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, code, name, type_id, category, nature, parent_id, is_leaf, is_active,
is_cash_account, is_bank_account, opening_balance, opening_balance_date, partner_kind, partner_id,
created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.TypeID, &a.Category, &a.Nature, &a.ParentID,
		&a.IsLeaf, &a.IsActive, &a.IsCashAccount, &a.IsBankAccount,
		&a.OpeningBalance, &a.OpeningBalanceDate, &a.PartnerKind, &a.PartnerID,
		&a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) GetByCode(ctx context.Context, code string) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ledger.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ledger.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) GetByPartner(ctx context.Context, kind string, id int64) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE partner_kind=$1 AND partner_id=$2`, kind, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ledger.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY code`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) ListRootCodes(ctx context.Context, category ledger.AccountCategory) ([]string, error) {
	return r.listCodes(ctx, `SELECT code FROM accounts WHERE parent_id IS NULL AND category=$1 ORDER BY code`, category)
}

func (r *repository) ListChildCodes(ctx context.Context, parentID int64) ([]string, error) {
	return r.listCodes(ctx, `SELECT code FROM accounts WHERE parent_id=$1 ORDER BY code`, parentID)
}

func (r *repository) listCodes(ctx context.Context, query string, arg any) ([]string, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (r *repository) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE code=$1)`, code).Scan(&exists)
	return exists, err
}

func (r *repository) Insert(ctx context.Context, account Account) (Account, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Account{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `INSERT INTO accounts
(code, name, type_id, category, nature, parent_id, is_leaf, is_active, is_cash_account, is_bank_account,
 opening_balance, opening_balance_date, partner_kind, partner_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING `+accountColumns,
		account.Code, account.Name, account.TypeID, account.Category, account.Nature,
		account.ParentID, account.IsLeaf, account.IsActive, account.IsCashAccount, account.IsBankAccount,
		account.OpeningBalance, account.OpeningBalanceDate, account.PartnerKind, account.PartnerID)
	inserted, err := scanAccount(row)
	if err != nil {
		return Account{}, err
	}
	if account.ParentID != nil {
		if _, err := tx.Exec(ctx, `UPDATE accounts SET is_leaf=FALSE, updated_at=NOW() WHERE id=$1`, *account.ParentID); err != nil {
			return Account{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Account{}, err
	}
	return inserted, nil
}

func (r *repository) Deactivate(ctx context.Context, code string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET is_active=FALSE, updated_at=NOW() WHERE code=$1`, code)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

func (r *repository) HasPostings(ctx context.Context, accountID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM journal_entry_lines WHERE account_id=$1)`, accountID).Scan(&exists)
	return exists, err
}

func (r *repository) SumLines(ctx context.Context, accountID int64, asOf *time.Time, postedOnly bool) (Sums, error) {
	query := `SELECT COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM journal_entry_lines l JOIN journal_entries e ON e.id = l.entry_id
WHERE l.account_id=$1`
	args := []any{accountID}
	if postedOnly {
		query += ` AND e.status='POSTED'`
	}
	if asOf != nil {
		args = append(args, *asOf)
		query += ` AND e.date <= $2`
	}
	var sums Sums
	if err := r.db.QueryRow(ctx, query, args...).Scan(&sums.Debit, &sums.Credit); err != nil {
		return Sums{}, err
	}
	return sums, nil
}

func (r *repository) SumByCodePrefix(ctx context.Context, prefix string, asOf *time.Time, postedOnly bool) (Sums, error) {
	query := `SELECT COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM journal_entry_lines l
JOIN journal_entries e ON e.id = l.entry_id
JOIN accounts a ON a.id = l.account_id
WHERE a.code LIKE $1 || '%'`
	args := []any{prefix}
	if postedOnly {
		query += ` AND e.status='POSTED'`
	}
	if asOf != nil {
		args = append(args, *asOf)
		query += ` AND e.date <= $2`
	}
	var sums Sums
	if err := r.db.QueryRow(ctx, query, args...).Scan(&sums.Debit, &sums.Credit); err != nil {
		return Sums{}, err
	}
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(opening_balance),0) FROM accounts WHERE code LIKE $1 || '%' AND is_leaf`, prefix).
		Scan(&sums.Opening)
	if err != nil {
		return Sums{}, err
	}
	return sums, nil
}

type mappingRepository struct {
	db *pgxpool.Pool
}

// NewMappingRepository constructs a pgx-backed MappingRepository.
func NewMappingRepository(db *pgxpool.Pool) MappingRepository {
	return &mappingRepository{db: db}
}

func (r *mappingRepository) Get(ctx context.Context, method string) (PaymentMethodMapping, error) {
	var m PaymentMethodMapping
	err := r.db.QueryRow(ctx, `SELECT method, account_code, created_at, updated_at FROM payment_method_mappings WHERE method=$1`, method).
		Scan(&m.Method, &m.AccountCode, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentMethodMapping{}, ErrMappingNotFound
		}
		return PaymentMethodMapping{}, err
	}
	return m, nil
}

func (r *mappingRepository) Upsert(ctx context.Context, mapping PaymentMethodMapping) error {
	_, err := r.db.Exec(ctx, `INSERT INTO payment_method_mappings (method, account_code) VALUES ($1,$2)
ON CONFLICT (method) DO UPDATE SET account_code=EXCLUDED.account_code, updated_at=NOW()`, mapping.Method, mapping.AccountCode)
	return err
}

func (r *mappingRepository) Delete(ctx context.Context, method string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM payment_method_mappings WHERE method=$1`, method)
	return err
}
