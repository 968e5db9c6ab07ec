package reports

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/qayd-erp/qayd-erp/internal/ledger"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAccountBalanceClosing(t *testing.T) {
	debit := AccountBalance{
		Nature:  ledger.NatureDebit,
		Opening: amt("1000"),
		Debit:   amt("500"),
		Credit:  amt("200"),
	}
	require.True(t, debit.Closing().Equal(amt("1300")))

	credit := AccountBalance{
		Nature:  ledger.NatureCredit,
		Opening: amt("100"),
		Debit:   amt("30"),
		Credit:  amt("250"),
	}
	require.True(t, credit.Closing().Equal(amt("320")))
}

func TestBuildTrialBalanceGroupsByCategoryDigit(t *testing.T) {
	tb := BuildTrialBalance([]AccountBalance{
		{Code: "40100", Name: "مبيعات", Category: ledger.CategoryRevenue, Nature: ledger.NatureCredit, Credit: amt("900")},
		{Code: "10100", Name: "الصندوق", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, Opening: amt("1000"), Debit: amt("500")},
		{Code: "10200", Name: "البنك", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, Debit: amt("400")},
		{Code: "50100", Name: "رواتب", Category: ledger.CategoryExpense, Nature: ledger.NatureDebit, Debit: amt("300"), Credit: amt("50")},
	})

	require.Len(t, tb.Groups, 3)
	require.Equal(t, "1", tb.Groups[0].Key)
	require.Equal(t, "4", tb.Groups[1].Key)
	require.Equal(t, "5", tb.Groups[2].Key)

	assets := tb.Groups[0]
	require.Len(t, assets.Accounts, 2)
	require.Equal(t, "10100", assets.Accounts[0].Code)
	require.Equal(t, "10200", assets.Accounts[1].Code)
	require.True(t, assets.Opening.Equal(amt("1000")))
	require.True(t, assets.Debit.Equal(amt("900")))
	require.True(t, assets.Closing.Equal(amt("1900")))

	require.True(t, tb.TotalDebit.Equal(amt("1200")))
	require.True(t, tb.TotalCredit.Equal(amt("950")))
}

func TestBuildTrialBalanceEmpty(t *testing.T) {
	tb := BuildTrialBalance(nil)
	require.Empty(t, tb.Groups)
	require.True(t, tb.TotalDebit.IsZero())
	require.True(t, tb.TotalCredit.IsZero())
}
