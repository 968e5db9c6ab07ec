package periods

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/qayd-erp/qayd-erp/internal/ledger"
)

// ErrInvalidPeriodRange indicates start date after end date.
var ErrInvalidPeriodRange = errors.New("periods: start date must not be after end date")

// ErrInvalidTransition indicates a status change that is not allowed.
var ErrInvalidTransition = errors.New("periods: status transition invalid")

// CreatePeriodInput groups the fields needed to open a new period.
type CreatePeriodInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// Service manages posting windows.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the period service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns all periods ordered by start date.
func (s *Service) List(ctx context.Context) ([]ledger.Period, error) {
	return s.repo.List(ctx)
}

// FindOpenPeriodByDate returns the open period containing date.
func (s *Service) FindOpenPeriodByDate(ctx context.Context, date time.Time) (ledger.Period, error) {
	return s.repo.FindOpenPeriodByDate(ctx, date)
}

// Create opens a new period after validating its date range.
func (s *Service) Create(ctx context.Context, input CreatePeriodInput) (ledger.Period, error) {
	if input.Name == "" {
		return ledger.Period{}, errors.New("periods: name required")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return ledger.Period{}, errors.New("periods: start and end dates required")
	}
	if input.StartDate.After(input.EndDate) {
		return ledger.Period{}, ErrInvalidPeriodRange
	}
	return s.repo.Insert(ctx, ledger.Period{
		Name:      input.Name,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		Status:    ledger.PeriodStatusOpen,
	})
}

// Close stops a period from accepting postings.
func (s *Service) Close(ctx context.Context, id int64) error {
	return s.transition(ctx, id, ledger.PeriodStatusClosed)
}

// Reopen allows postings into a closed period again.
func (s *Service) Reopen(ctx context.Context, id int64) error {
	return s.transition(ctx, id, ledger.PeriodStatusOpen)
}

func (s *Service) transition(ctx context.Context, id int64, target ledger.PeriodStatus) error {
	period, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if period.Status == target {
		return nil
	}
	switch {
	case period.Status == ledger.PeriodStatusOpen && target == ledger.PeriodStatusClosed:
	case period.Status == ledger.PeriodStatusClosed && target == ledger.PeriodStatusOpen:
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, period.Status, target)
	}
	return s.repo.SetStatus(ctx, id, target)
}

// RefreshCurrentFlag marks the period containing today as the single current
// one and clears the flag elsewhere. Safe to run repeatedly; the scheduled
// daily job calls it.
func (s *Service) RefreshCurrentFlag(ctx context.Context) (int64, *ledger.Period, error) {
	today := s.now()
	current, err := s.repo.FindPeriodByDate(ctx, today)
	if err != nil {
		if !errors.Is(err, ErrPeriodNotFound) {
			return 0, nil, err
		}
		updated, err := s.repo.SetCurrentFlags(ctx, nil)
		if err != nil {
			return 0, nil, err
		}
		if s.logger != nil && updated > 0 {
			s.logger.Info("cleared current period flag", slog.Int64("updated", updated))
		}
		return updated, nil, nil
	}
	updated, err := s.repo.SetCurrentFlags(ctx, &current.ID)
	if err != nil {
		return 0, nil, err
	}
	current.IsCurrent = true
	if s.logger != nil && updated > 0 {
		s.logger.Info("current period flag refreshed",
			slog.String("period", current.Name),
			slog.Int64("updated", updated))
	}
	return updated, &current, nil
}
