package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qayd-erp/qayd-erp/internal/ledger"
)

func TestNextRootCodeStartsRange(t *testing.T) {
	repo := newMemoryRepo()
	alloc := NewCodeAllocator(repo)

	code, err := alloc.NextRootCode(context.Background(), ledger.CategoryAsset)
	require.NoError(t, err)
	require.Equal(t, "10000", code)

	code, err = alloc.NextRootCode(context.Background(), ledger.CategoryExpense)
	require.NoError(t, err)
	require.Equal(t, "50000", code)
}

func TestNextRootCodeIncrements(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(Account{Code: "10000", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsLeaf: true, IsActive: true})
	repo.seed(Account{Code: "10004", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsLeaf: true, IsActive: true})
	alloc := NewCodeAllocator(repo)

	code, err := alloc.NextRootCode(context.Background(), ledger.CategoryAsset)
	require.NoError(t, err)
	require.Equal(t, "10005", code)
}

func TestNextRootCodeUnknownCategory(t *testing.T) {
	alloc := NewCodeAllocator(newMemoryRepo())
	_, err := alloc.NextRootCode(context.Background(), ledger.AccountCategory("CONTRA"))
	require.Error(t, err)
}

func TestNextChildCodeFirstChild(t *testing.T) {
	repo := newMemoryRepo()
	parent := repo.seed(Account{Code: "1103", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsLeaf: true, IsActive: true})
	alloc := NewCodeAllocator(repo)

	code, err := alloc.NextChildCode(context.Background(), parent)
	require.NoError(t, err)
	require.Equal(t, "1103001", code)
}

func TestNextChildCodeFollowsSiblingWidth(t *testing.T) {
	repo := newMemoryRepo()
	parent := repo.seed(Account{Code: "1103", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsActive: true})
	child := Account{Code: "110301", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsLeaf: true, IsActive: true, ParentID: &parent.ID}
	repo.seed(child)
	alloc := NewCodeAllocator(repo)

	code, err := alloc.NextChildCode(context.Background(), parent)
	require.NoError(t, err)
	require.Equal(t, "110302", code)
}

func TestNextChildCodeSkipsTakenCodes(t *testing.T) {
	repo := newMemoryRepo()
	parent := repo.seed(Account{Code: "1103", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsActive: true})
	for _, code := range []string{"1103001", "1103002"} {
		repo.seed(Account{Code: code, Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsLeaf: true, IsActive: true, ParentID: &parent.ID})
	}
	alloc := NewCodeAllocator(repo)

	code, err := alloc.NextChildCode(context.Background(), parent)
	require.NoError(t, err)
	require.Equal(t, "1103003", code)
}

func TestNextChildCodeExhausted(t *testing.T) {
	repo := newMemoryRepo()
	parent := repo.seed(Account{Code: "1103", Category: ledger.CategoryAsset, Nature: ledger.NatureDebit, IsActive: true})
	// A single-digit sibling narrows the suffix space to 1..9.
	for i := 1; i <= 9; i++ {
		repo.seed(Account{
			Code:     parent.Code + string(rune('0'+i)),
			Category: ledger.CategoryAsset, Nature: ledger.NatureDebit,
			IsLeaf: true, IsActive: true, ParentID: &parent.ID,
		})
	}
	alloc := NewCodeAllocator(repo)

	_, err := alloc.NextChildCode(context.Background(), parent)
	require.ErrorIs(t, err, ErrCodeSpaceExhausted)
}

func TestValidateCode(t *testing.T) {
	parent := &Account{Code: "1103", Category: ledger.CategoryAsset}

	require.NoError(t, ValidateCode("10000", ledger.CategoryAsset, nil))
	require.NoError(t, ValidateCode("1103001", ledger.CategoryAsset, parent))

	require.Error(t, ValidateCode("", ledger.CategoryAsset, nil))
	require.Error(t, ValidateCode("1abc", ledger.CategoryAsset, nil))
	require.Error(t, ValidateCode("20000", ledger.CategoryAsset, nil))
	require.Error(t, ValidateCode("1104001", ledger.CategoryAsset, parent))
	require.Error(t, ValidateCode("1103", ledger.CategoryAsset, parent))
}

func TestValidateCodePartnerParentsExtendCategoryRoots(t *testing.T) {
	assets := &Account{Code: "10000", Category: ledger.CategoryAsset}
	liabilities := &Account{Code: "20000", Category: ledger.CategoryLiability}

	// The receivables/payables parents the seed plants must extend their roots.
	require.NoError(t, ValidateCode("10300", ledger.CategoryAsset, assets))
	require.NoError(t, ValidateCode("20100", ledger.CategoryLiability, liabilities))

	// Short codes that drop the root prefix are not valid children.
	require.Error(t, ValidateCode("1103", ledger.CategoryAsset, assets))
	require.Error(t, ValidateCode("2101", ledger.CategoryLiability, liabilities))
}
