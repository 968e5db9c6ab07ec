package ledger

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/qayd-erp/qayd-erp/internal/platform/db"
)

// ErrDuplicateIdempotencyKey signals the unique constraint fired on insert.
// The gateway treats it as "another request won the race" and re-reads.
var ErrDuplicateIdempotencyKey = errors.New("ledger: idempotency key already exists")

// ResolvedLine is a journal line whose account code has been resolved.
type ResolvedLine struct {
	AccountID   int64
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// EntryRecord carries the persisted columns of a new journal entry.
type EntryRecord struct {
	PeriodID       int64
	Date           time.Time
	Description    string
	EntryType      string
	Status         EntryStatus
	SourceModule   string
	SourceModel    string
	SourceID       string
	IdempotencyKey string
	Category       string
	Subcategory    string
	PostedBy       *int64
	PostedAt       *time.Time
}

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	FindEntryByIdempotencyKey(ctx context.Context, key string) (JournalEntry, error)
}

// TxRepository exposes the operations available inside a transaction.
type TxRepository interface {
	GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error)
	GetEntryByIdempotencyKey(ctx context.Context, key string) (JournalEntry, error)
	InsertEntry(ctx context.Context, rec EntryRecord) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []ResolvedLine) error
	SetPosted(ctx context.Context, entryID, actorID int64, at time.Time) error
	SetUnposted(ctx context.Context, entryID int64) error
	SetStatus(ctx context.Context, entryID int64, status EntryStatus) error
	DeleteEntry(ctx context.Context, entryID int64) error
	GetPostingAccountsByCode(ctx context.Context, codes []string) (map[string]PostingAccount, error)
	GetPostingAccountsByID(ctx context.Context, ids []int64) (map[int64]PostingAccount, error)
	FindOpenPeriodByDate(ctx context.Context, date time.Time) (Period, error)
	GetPeriodForUpdate(ctx context.Context, periodID int64) (Period, error)
}

// Repository persists ledger entities through pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const entryColumns = `id, number, period_id, date, description, entry_type, status,
source_module, source_model, source_id, idempotency_key, category, subcategory,
posted_by, posted_at, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.Number, &e.PeriodID, &e.Date, &e.Description, &e.EntryType, &e.Status,
		&e.SourceModule, &e.SourceModel, &e.SourceID, &e.IdempotencyKey, &e.Category, &e.Subcategory,
		&e.PostedBy, &e.PostedAt, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// FindEntryByIdempotencyKey resolves an entry outside a transaction. Used as
// the gateway fast path; the unique index remains the authoritative guard.
func (r *Repository) FindEntryByIdempotencyKey(ctx context.Context, key string) (JournalEntry, error) {
	entry, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE idempotency_key=$1`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := queryLines(ctx, r.pool, entry.ID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

// ListEntries returns entries filtered by status, newest first.
func (r *Repository) ListEntries(ctx context.Context, status EntryStatus, limit int) ([]JournalEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT ` + entryColumns + ` FROM journal_entries`
	args := []any{}
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, status)
	}
	query += ` ORDER BY number DESC LIMIT ` + strconv.Itoa(limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *txRepository) GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := queryLines(ctx, r.tx, entry.ID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *txRepository) GetEntryByIdempotencyKey(ctx context.Context, key string) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE idempotency_key=$1`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := queryLines(ctx, r.tx, entry.ID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, rec EntryRecord) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries
(period_id, date, description, entry_type, status, source_module, source_model, source_id, idempotency_key, category, subcategory, posted_by, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10,$11,$12,$13)
RETURNING `+entryColumns,
		rec.PeriodID, rec.Date, rec.Description, rec.EntryType, rec.Status,
		rec.SourceModule, rec.SourceModel, rec.SourceID, rec.IdempotencyKey,
		rec.Category, rec.Subcategory, rec.PostedBy, rec.PostedAt)
	entry, err := scanEntry(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return JournalEntry{}, ErrDuplicateIdempotencyKey
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []ResolvedLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_entry_lines (entry_id, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5)`, entryID, line.AccountID, line.Debit, line.Credit, line.Description); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) SetPosted(ctx context.Context, entryID, actorID int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status='POSTED', posted_by=$2, posted_at=$3, updated_at=NOW() WHERE id=$1`, entryID, actorID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *txRepository) SetUnposted(ctx context.Context, entryID int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status='DRAFT', posted_by=NULL, posted_at=NULL, updated_at=NOW() WHERE id=$1`, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *txRepository) SetStatus(ctx context.Context, entryID int64, status EntryStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$2, updated_at=NOW() WHERE id=$1`, entryID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *txRepository) DeleteEntry(ctx context.Context, entryID int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_entry_lines WHERE entry_id=$1`, entryID); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *txRepository) GetPostingAccountsByCode(ctx context.Context, codes []string) (map[string]PostingAccount, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, code, nature, category, is_leaf, is_active FROM accounts WHERE code = ANY($1)`, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]PostingAccount, len(codes))
	for rows.Next() {
		var a PostingAccount
		if err := rows.Scan(&a.ID, &a.Code, &a.Nature, &a.Category, &a.IsLeaf, &a.IsActive); err != nil {
			return nil, err
		}
		out[a.Code] = a
	}
	return out, rows.Err()
}

func (r *txRepository) GetPostingAccountsByID(ctx context.Context, ids []int64) (map[int64]PostingAccount, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, code, nature, category, is_leaf, is_active FROM accounts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]PostingAccount, len(ids))
	for rows.Next() {
		var a PostingAccount
		if err := rows.Scan(&a.ID, &a.Code, &a.Nature, &a.Category, &a.IsLeaf, &a.IsActive); err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

func (r *txRepository) FindOpenPeriodByDate(ctx context.Context, date time.Time) (Period, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `SELECT id, name, start_date, end_date, status, is_current, created_at, updated_at
FROM accounting_periods WHERE status='OPEN' AND $1 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date), ErrNoOpenPeriod)
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, periodID int64) (Period, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `SELECT id, name, start_date, end_date, status, is_current, created_at, updated_at
FROM accounting_periods WHERE id=$1 FOR UPDATE`, periodID), ErrNoOpenPeriod)
}

func scanPeriod(row pgx.Row, missing error) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.IsCurrent, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, missing
		}
		return Period{}, err
	}
	return p, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q querier, entryID int64) ([]JournalEntryLine, error) {
	rows, err := q.Query(ctx, `SELECT l.id, l.entry_id, l.account_id, a.code, l.debit, l.credit, l.description, l.created_at, l.updated_at
FROM journal_entry_lines l JOIN accounts a ON a.id = l.account_id
WHERE l.entry_id=$1 ORDER BY l.id ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalEntryLine
	for rows.Next() {
		var line JournalEntryLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.AccountCode, &line.Debit, &line.Credit, &line.Description, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
