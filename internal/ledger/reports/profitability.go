package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryAggregate is one (category, subcategory) bucket of posted line
// sums. Cash columns cover lines on cash/bank accounts; expense columns
// cover lines on expense-category accounts.
type CategoryAggregate struct {
	Category      string
	Subcategory   string
	CashDebit     decimal.Decimal
	CashCredit    decimal.Decimal
	ExpenseDebit  decimal.Decimal
	ExpenseCredit decimal.Decimal
}

// CategoryProfit is the profitability view of one category node.
// Refunds carries every credit-side movement on cash/bank accounts inside the
// category; the ledger cannot distinguish an actual refund from any other
// outgoing cash movement filed under the same category.
type CategoryProfit struct {
	Category      string           `json:"category"`
	Subcategory   string           `json:"subcategory,omitempty"`
	GrossRevenue  decimal.Decimal  `json:"gross_revenue"`
	Refunds       decimal.Decimal  `json:"refunds"`
	NetRevenue    decimal.Decimal  `json:"net_revenue"`
	Expenses      decimal.Decimal  `json:"expenses"`
	Profit        decimal.Decimal  `json:"profit"`
	Margin        decimal.Decimal  `json:"margin"`
	Subcategories []CategoryProfit `json:"subcategories,omitempty"`
}

var hundred = decimal.NewFromInt(100)

func computeProfit(category, subcategory string, agg CategoryAggregate) CategoryProfit {
	gross := agg.CashDebit
	refunds := agg.CashCredit
	net := gross.Sub(refunds)
	expenses := agg.ExpenseDebit.Sub(agg.ExpenseCredit)
	profit := net.Sub(expenses)
	margin := decimal.Zero
	if !net.IsZero() {
		margin = profit.Div(net).Mul(hundred)
	}
	return CategoryProfit{
		Category:     category,
		Subcategory:  subcategory,
		GrossRevenue: gross,
		Refunds:      refunds,
		NetRevenue:   net,
		Expenses:     expenses,
		Profit:       profit,
		Margin:       margin,
	}
}

func addAggregates(a, b CategoryAggregate) CategoryAggregate {
	return CategoryAggregate{
		CashDebit:     a.CashDebit.Add(b.CashDebit),
		CashCredit:    a.CashCredit.Add(b.CashCredit),
		ExpenseDebit:  a.ExpenseDebit.Add(b.ExpenseDebit),
		ExpenseCredit: a.ExpenseCredit.Add(b.ExpenseCredit),
	}
}

// BuildCategoryProfitability rolls aggregates into a two-level tree. A
// category's totals equal its direct postings (empty subcategory) plus the
// sum of all its subcategories.
func BuildCategoryProfitability(rows []CategoryAggregate) []CategoryProfit {
	direct := make(map[string]CategoryAggregate)
	subs := make(map[string]map[string]CategoryAggregate)
	seen := make(map[string]bool)
	var categories []string
	for _, row := range rows {
		if !seen[row.Category] {
			seen[row.Category] = true
			categories = append(categories, row.Category)
		}
		if row.Subcategory == "" {
			direct[row.Category] = addAggregates(direct[row.Category], row)
			continue
		}
		bucket, ok := subs[row.Category]
		if !ok {
			bucket = make(map[string]CategoryAggregate)
			subs[row.Category] = bucket
		}
		bucket[row.Subcategory] = addAggregates(bucket[row.Subcategory], row)
	}
	sort.Strings(categories)

	out := make([]CategoryProfit, 0, len(categories))
	for _, category := range categories {
		total := direct[category]
		var children []CategoryProfit
		subNames := make([]string, 0, len(subs[category]))
		for name := range subs[category] {
			subNames = append(subNames, name)
		}
		sort.Strings(subNames)
		for _, name := range subNames {
			agg := subs[category][name]
			total = addAggregates(total, agg)
			children = append(children, computeProfit(category, name, agg))
		}
		node := computeProfit(category, "", total)
		node.Subcategories = children
		out = append(out, node)
	}
	return out
}
