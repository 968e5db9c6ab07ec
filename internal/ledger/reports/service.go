package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Service prepares read-side aggregations over posted journal lines.
type Service struct {
	repo     Repository
	collator *collate.Collator
}

// NewService constructs the reporting service. Category names are Arabic, so
// ordering uses Arabic collation rather than raw byte order.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, collator: collate.New(language.Arabic)}
}

// TrialBalance aggregates account balances up to asOf (nil: all dates).
func (s *Service) TrialBalance(ctx context.Context, asOf *time.Time) (TrialBalance, error) {
	if s.repo == nil {
		return TrialBalance{}, fmt.Errorf("reports: repository not configured")
	}
	balances, err := s.repo.AccountBalances(ctx, asOf)
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(balances), nil
}

// CategoryProfitability aggregates per-category profit for the date range.
func (s *Service) CategoryProfitability(ctx context.Context, from, to time.Time) ([]CategoryProfit, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("reports: repository not configured")
	}
	if from.After(to) {
		return nil, fmt.Errorf("reports: from date must not be after to date")
	}
	rows, err := s.repo.CategoryAggregates(ctx, from, to)
	if err != nil {
		return nil, err
	}
	result := BuildCategoryProfitability(rows)
	s.sortCategories(result)
	return result, nil
}

func (s *Service) sortCategories(nodes []CategoryProfit) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return s.collator.CompareString(nodes[i].Category, nodes[j].Category) < 0
	})
	for i := range nodes {
		children := nodes[i].Subcategories
		sort.SliceStable(children, func(a, b int) bool {
			return s.collator.CompareString(children[a].Subcategory, children[b].Subcategory) < 0
		})
	}
}
