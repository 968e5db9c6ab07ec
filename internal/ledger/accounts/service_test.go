package accounts

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/qayd-erp/qayd-erp/internal/ledger"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateAccountAllocatesRootCode(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, ServiceConfig{}, nil)

	account, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		Name:     "الصندوق",
		Category: ledger.CategoryAsset,
		Nature:   ledger.NatureDebit,
	})
	require.NoError(t, err)
	require.Equal(t, "10000", account.Code)
	require.True(t, account.IsLeaf)
	require.True(t, account.IsActive)
}

func TestCreateAccountChildDemotesParent(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Account{Code: "1103", Name: "عملاء", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsLeaf: true, IsActive: true})
	svc := NewService(repo, ServiceConfig{}, nil)

	child, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		Name:       "عميل نقدي",
		Category:   ledger.CategoryAsset,
		Nature:     ledger.NatureDebit,
		ParentCode: "1103",
	})
	require.NoError(t, err)
	require.Equal(t, "1103001", child.Code)
	require.NotNil(t, child.ParentID)

	parent, err := repo.GetByCode(context.Background(), "1103")
	require.NoError(t, err)
	require.False(t, parent.IsLeaf)
}

func TestCreateAccountRejectsCategoryMismatch(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Account{Code: "1103", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsLeaf: true, IsActive: true})
	svc := NewService(repo, ServiceConfig{}, nil)

	_, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		Name:       "مورد",
		Category:   ledger.CategoryLiability,
		Nature:     ledger.NatureCredit,
		ParentCode: "1103",
	})
	require.Error(t, err)
}

func TestCreateAccountRejectsPostedLeafParent(t *testing.T) {
	repo := newMemoryRepo()
	parent := repo.seed(Account{Code: "1103", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsLeaf: true, IsActive: true})
	repo.postings[parent.ID] = Sums{Debit: amt("100"), Credit: decimal.Zero}
	svc := NewService(repo, ServiceConfig{}, nil)

	_, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		Name:       "عميل",
		Category:   ledger.CategoryAsset,
		Nature:     ledger.NatureDebit,
		ParentCode: "1103",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "postings")
}

func TestCreateAccountRejectsDuplicateCode(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Account{Code: "10000", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsLeaf: true, IsActive: true})
	svc := NewService(repo, ServiceConfig{}, nil)

	_, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		Name:     "مكرر",
		Code:     "10000",
		Category: ledger.CategoryAsset,
		Nature:   ledger.NatureDebit,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "exists")
}

func TestCreateAccountRejectsExplicitCodeWrongCategory(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, ServiceConfig{}, nil)

	_, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		Name:     "خطأ",
		Code:     "40000",
		Category: ledger.CategoryAsset,
		Nature:   ledger.NatureDebit,
	})
	require.Error(t, err)
}

func TestEnsureAccountForCustomer(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Account{Code: "10300", Name: "عملاء", TypeID: 3, Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsLeaf: true, IsActive: true})
	svc := NewService(repo, ServiceConfig{}, nil)

	partner := Partner{Kind: "customer", ID: 55, Name: "شركة الأمل"}
	account, err := svc.EnsureAccountFor(context.Background(), partner)
	require.NoError(t, err)
	require.Equal(t, "10300001", account.Code)
	require.Equal(t, ledger.CategoryAsset, account.Category)
	require.Equal(t, ledger.NatureDebit, account.Nature)
	require.Equal(t, "شركة الأمل", account.Name)
	require.Equal(t, "customer", account.PartnerKind)

	// Second call returns the same account without creating another.
	again, err := svc.EnsureAccountFor(context.Background(), partner)
	require.NoError(t, err)
	require.Equal(t, account.ID, again.ID)
	all, err := repo.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestEnsureAccountForSupplier(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Account{Code: "20100", Name: "موردون", TypeID: 7, Category: ledger.CategoryLiability, Nature: ledger.NatureCredit, IsLeaf: true, IsActive: true})
	svc := NewService(repo, ServiceConfig{}, nil)

	account, err := svc.EnsureAccountFor(context.Background(), Partner{Kind: "supplier", ID: 9, Name: "مورد عام"})
	require.NoError(t, err)
	require.Equal(t, "20100001", account.Code)
	require.Equal(t, ledger.CategoryLiability, account.Category)
	require.Equal(t, ledger.NatureCredit, account.Nature)
}

func TestEnsureAccountForUnknownKind(t *testing.T) {
	svc := NewService(newMemoryRepo(), ServiceConfig{}, nil)
	_, err := svc.EnsureAccountFor(context.Background(), Partner{Kind: "courier", ID: 1, Name: "x"})
	require.Error(t, err)
}

func TestGetBalanceDebitNature(t *testing.T) {
	repo := newMemoryRepo()
	cash := repo.seed(Account{
		Code: "10100", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit,
		IsLeaf: true, IsActive: true, OpeningBalance: amt("1000"),
	})
	repo.postings[cash.ID] = Sums{Debit: amt("500"), Credit: decimal.Zero}
	svc := NewService(repo, ServiceConfig{}, nil)

	balance, err := svc.GetBalance(context.Background(), "10100", BalanceOptions{IncludeOpening: true, PostedOnly: true})
	require.NoError(t, err)
	require.True(t, balance.Equal(amt("1500")))

	// Without opening only movements count.
	balance, err = svc.GetBalance(context.Background(), "10100", BalanceOptions{PostedOnly: true})
	require.NoError(t, err)
	require.True(t, balance.Equal(amt("500")))
}

func TestGetBalanceCreditNature(t *testing.T) {
	repo := newMemoryRepo()
	revenue := repo.seed(Account{
		Code: "40100", Category: ledger.CategoryRevenue, Nature: ledger.NatureCredit,
		IsLeaf: true, IsActive: true,
	})
	repo.postings[revenue.ID] = Sums{Debit: amt("50"), Credit: amt("300")}
	svc := NewService(repo, ServiceConfig{}, nil)

	balance, err := svc.GetBalance(context.Background(), "40100", BalanceOptions{PostedOnly: true})
	require.NoError(t, err)
	require.True(t, balance.Equal(amt("250")))
}

func TestGetBalanceAggregatesChildren(t *testing.T) {
	repo := newMemoryRepo()
	parent := repo.seed(Account{Code: "1103", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsActive: true})
	childA := repo.seed(Account{Code: "1103001", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsLeaf: true, IsActive: true, ParentID: &parent.ID, OpeningBalance: amt("100")})
	childB := repo.seed(Account{Code: "1103002", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsLeaf: true, IsActive: true, ParentID: &parent.ID})
	repo.postings[childA.ID] = Sums{Debit: amt("200"), Credit: amt("50")}
	repo.postings[childB.ID] = Sums{Debit: amt("75"), Credit: decimal.Zero}
	svc := NewService(repo, ServiceConfig{}, nil)

	balance, err := svc.GetBalance(context.Background(), "1103", BalanceOptions{IncludeOpening: true, PostedOnly: true})
	require.NoError(t, err)
	require.True(t, balance.Equal(amt("325")), "got %s", balance)
}

func TestGetBalanceUnknownAccount(t *testing.T) {
	svc := NewService(newMemoryRepo(), ServiceConfig{}, nil)
	_, err := svc.GetBalance(context.Background(), "9999", BalanceOptions{})
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
}
