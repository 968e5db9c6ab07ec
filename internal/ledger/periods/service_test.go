package periods

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qayd-erp/qayd-erp/internal/ledger"
)

type memoryRepo struct {
	periods map[int64]*ledger.Period
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{periods: make(map[int64]*ledger.Period)}
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (ledger.Period, error) {
	p, ok := r.periods[id]
	if !ok {
		return ledger.Period{}, ErrPeriodNotFound
	}
	return *p, nil
}

func (r *memoryRepo) List(ctx context.Context) ([]ledger.Period, error) {
	out := make([]ledger.Period, 0, len(r.periods))
	for _, p := range r.periods {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r *memoryRepo) FindOpenPeriodByDate(ctx context.Context, date time.Time) (ledger.Period, error) {
	for _, p := range r.periods {
		if p.Status == ledger.PeriodStatusOpen && p.Contains(date) {
			return *p, nil
		}
	}
	return ledger.Period{}, ledger.ErrNoOpenPeriod
}

func (r *memoryRepo) FindPeriodByDate(ctx context.Context, date time.Time) (ledger.Period, error) {
	for _, p := range r.periods {
		if p.Contains(date) {
			return *p, nil
		}
	}
	return ledger.Period{}, ErrPeriodNotFound
}

func (r *memoryRepo) Insert(ctx context.Context, period ledger.Period) (ledger.Period, error) {
	r.nextID++
	period.ID = r.nextID
	r.periods[period.ID] = &period
	return period, nil
}

func (r *memoryRepo) SetStatus(ctx context.Context, id int64, status ledger.PeriodStatus) error {
	p, ok := r.periods[id]
	if !ok {
		return ErrPeriodNotFound
	}
	p.Status = status
	return nil
}

func (r *memoryRepo) SetCurrentFlags(ctx context.Context, currentID *int64) (int64, error) {
	var updated int64
	for id, p := range r.periods {
		want := currentID != nil && id == *currentID
		if p.IsCurrent != want {
			p.IsCurrent = want
			updated++
		}
	}
	return updated, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateValidatesRange(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), CreatePeriodInput{
		Name:      "2025-02",
		StartDate: date(2025, 2, 28),
		EndDate:   date(2025, 2, 1),
	})
	require.ErrorIs(t, err, ErrInvalidPeriodRange)

	period, err := svc.Create(context.Background(), CreatePeriodInput{
		Name:      "2025-02",
		StartDate: date(2025, 2, 1),
		EndDate:   date(2025, 2, 28),
	})
	require.NoError(t, err)
	require.Equal(t, ledger.PeriodStatusOpen, period.Status)
	require.False(t, period.IsCurrent)
}

func TestCloseAndReopen(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	period, err := svc.Create(context.Background(), CreatePeriodInput{
		Name:      "2025-01",
		StartDate: date(2025, 1, 1),
		EndDate:   date(2025, 1, 31),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Close(context.Background(), period.ID))
	got, err := repo.GetByID(context.Background(), period.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.PeriodStatusClosed, got.Status)

	// Closing an already closed period is a no-op.
	require.NoError(t, svc.Close(context.Background(), period.ID))

	require.NoError(t, svc.Reopen(context.Background(), period.ID))
	got, err = repo.GetByID(context.Background(), period.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.PeriodStatusOpen, got.Status)
}

func TestTransitionUnknownPeriod(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	require.ErrorIs(t, svc.Close(context.Background(), 99), ErrPeriodNotFound)
}

func TestRefreshCurrentFlag(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	svc.WithNow(func() time.Time { return date(2025, 2, 10) })

	jan, err := svc.Create(context.Background(), CreatePeriodInput{
		Name: "2025-01", StartDate: date(2025, 1, 1), EndDate: date(2025, 1, 31),
	})
	require.NoError(t, err)
	feb, err := svc.Create(context.Background(), CreatePeriodInput{
		Name: "2025-02", StartDate: date(2025, 2, 1), EndDate: date(2025, 2, 28),
	})
	require.NoError(t, err)
	repo.periods[jan.ID].IsCurrent = true

	updated, current, err := svc.RefreshCurrentFlag(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, updated)
	require.NotNil(t, current)
	require.Equal(t, feb.ID, current.ID)
	require.True(t, current.IsCurrent)
	require.False(t, repo.periods[jan.ID].IsCurrent)
	require.True(t, repo.periods[feb.ID].IsCurrent)

	// Running again changes nothing.
	updated, current, err = svc.RefreshCurrentFlag(context.Background())
	require.NoError(t, err)
	require.Zero(t, updated)
	require.NotNil(t, current)
	require.Equal(t, feb.ID, current.ID)
}

func TestRefreshCurrentFlagNoCoveringPeriod(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	svc.WithNow(func() time.Time { return date(2025, 6, 15) })

	jan, err := svc.Create(context.Background(), CreatePeriodInput{
		Name: "2025-01", StartDate: date(2025, 1, 1), EndDate: date(2025, 1, 31),
	})
	require.NoError(t, err)
	repo.periods[jan.ID].IsCurrent = true

	updated, current, err := svc.RefreshCurrentFlag(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)
	require.Nil(t, current)
	require.False(t, repo.periods[jan.ID].IsCurrent)
}
