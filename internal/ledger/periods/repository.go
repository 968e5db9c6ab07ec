package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qayd-erp/qayd-erp/internal/ledger"
)

// ErrPeriodNotFound indicates no period matched.
var ErrPeriodNotFound = errors.New("periods: period not found")

// Repository persists accounting periods.
type Repository interface {
	GetByID(ctx context.Context, id int64) (ledger.Period, error)
	List(ctx context.Context) ([]ledger.Period, error)
	FindOpenPeriodByDate(ctx context.Context, date time.Time) (ledger.Period, error)
	FindPeriodByDate(ctx context.Context, date time.Time) (ledger.Period, error)
	Insert(ctx context.Context, period ledger.Period) (ledger.Period, error)
	SetStatus(ctx context.Context, id int64, status ledger.PeriodStatus) error
	SetCurrentFlags(ctx context.Context, currentID *int64) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodColumns = `id, name, start_date, end_date, status, is_current, created_at, updated_at`

func scanPeriod(row pgx.Row) (ledger.Period, error) {
	var p ledger.Period
	err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.IsCurrent, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) GetByID(ctx context.Context, id int64) (ledger.Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Period{}, ErrPeriodNotFound
		}
		return ledger.Period{}, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context) ([]ledger.Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM accounting_periods ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []ledger.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// FindOpenPeriodByDate returns the open period covering the supplied date.
func (r *repository) FindOpenPeriodByDate(ctx context.Context, date time.Time) (ledger.Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+`
FROM accounting_periods WHERE status='OPEN' AND $1 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Period{}, ledger.ErrNoOpenPeriod
		}
		return ledger.Period{}, err
	}
	return p, nil
}

// FindPeriodByDate returns the period covering the supplied date regardless
// of status.
func (r *repository) FindPeriodByDate(ctx context.Context, date time.Time) (ledger.Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+`
FROM accounting_periods WHERE $1 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Period{}, ErrPeriodNotFound
		}
		return ledger.Period{}, err
	}
	return p, nil
}

func (r *repository) Insert(ctx context.Context, period ledger.Period) (ledger.Period, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounting_periods (name, start_date, end_date, status, is_current)
VALUES ($1,$2,$3,$4,FALSE) RETURNING `+periodColumns,
		period.Name, period.StartDate, period.EndDate, period.Status)
	return scanPeriod(row)
}

func (r *repository) SetStatus(ctx context.Context, id int64, status ledger.PeriodStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounting_periods SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPeriodNotFound
	}
	return nil
}

// SetCurrentFlags makes currentID the only current period. A nil currentID
// clears the flag everywhere. Only rows whose flag changes are touched, so
// running it twice in a row updates zero rows the second time.
func (r *repository) SetCurrentFlags(ctx context.Context, currentID *int64) (int64, error) {
	var id int64 // zero matches no row
	if currentID != nil {
		id = *currentID
	}
	cmd, err := r.db.Exec(ctx, `UPDATE accounting_periods SET is_current = (id = $1), updated_at=NOW()
WHERE is_current <> (id = $1)`, id)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
