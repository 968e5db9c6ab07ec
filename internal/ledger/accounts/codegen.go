package accounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/qayd-erp/qayd-erp/internal/ledger"
)

// CodeRange bounds root account codes for a category.
type CodeRange struct {
	Start int
	End   int
}

var categoryRanges = map[ledger.AccountCategory]CodeRange{
	ledger.CategoryAsset:     {Start: 10000, End: 19999},
	ledger.CategoryLiability: {Start: 20000, End: 29999},
	ledger.CategoryEquity:    {Start: 30000, End: 39999},
	ledger.CategoryRevenue:   {Start: 40000, End: 49999},
	ledger.CategoryExpense:   {Start: 50000, End: 59999},
}

// ErrCodeSpaceExhausted indicates no free code remains in the target range.
var ErrCodeSpaceExhausted = errors.New("accounts: code space exhausted")

const defaultChildSuffixWidth = 3

// CodeAllocator generates unused account codes from an explicit
// category-range table and a hierarchical suffix increment.
type CodeAllocator struct {
	repo        Repository
	suffixWidth int
}

// NewCodeAllocator constructs a CodeAllocator.
func NewCodeAllocator(repo Repository) *CodeAllocator {
	return &CodeAllocator{repo: repo, suffixWidth: defaultChildSuffixWidth}
}

// NextRootCode returns the next unused top-level code in the category range.
func (a *CodeAllocator) NextRootCode(ctx context.Context, category ledger.AccountCategory) (string, error) {
	rng, ok := categoryRanges[category]
	if !ok {
		return "", fmt.Errorf("accounts: unknown category %q", category)
	}
	codes, err := a.repo.ListRootCodes(ctx, category)
	if err != nil {
		return "", err
	}
	next := rng.Start
	for _, code := range codes {
		n, err := strconv.Atoi(code)
		if err != nil || n < rng.Start || n > rng.End {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	for candidate := next; candidate <= rng.End; candidate++ {
		code := strconv.Itoa(candidate)
		exists, err := a.repo.Exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: category %s", ErrCodeSpaceExhausted, category)
}

// NextChildCode returns parent.Code plus the next zero-padded numeric suffix.
// The suffix width follows existing siblings when present.
func (a *CodeAllocator) NextChildCode(ctx context.Context, parent Account) (string, error) {
	if parent.Code == "" {
		return "", errors.New("accounts: parent code required")
	}
	siblings, err := a.repo.ListChildCodes(ctx, parent.ID)
	if err != nil {
		return "", err
	}
	width := a.suffixWidth
	next := 1
	for _, code := range siblings {
		if !strings.HasPrefix(code, parent.Code) {
			continue
		}
		suffix := code[len(parent.Code):]
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if len(suffix) > 0 {
			width = len(suffix)
		}
		if n >= next {
			next = n + 1
		}
	}
	limit := 1
	for i := 0; i < width; i++ {
		limit *= 10
	}
	for candidate := next; candidate < limit; candidate++ {
		code := parent.Code + fmt.Sprintf("%0*d", width, candidate)
		exists, err := a.repo.Exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: parent %s", ErrCodeSpaceExhausted, parent.Code)
}

// ValidateCode enforces the structural code rules: the leading digit must
// match the category and a child code must start with its parent's code.
func ValidateCode(code string, category ledger.AccountCategory, parent *Account) error {
	if code == "" {
		return errors.New("accounts: code required")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("accounts: code %q must be numeric", code)
		}
	}
	prefix, ok := categoryPrefix(category)
	if !ok {
		return fmt.Errorf("accounts: unknown category %q", category)
	}
	if code[0] != prefix {
		return fmt.Errorf("accounts: code %q does not match category %s", code, category)
	}
	if parent != nil {
		if !strings.HasPrefix(code, parent.Code) || len(code) <= len(parent.Code) {
			return fmt.Errorf("accounts: code %q must extend parent code %q", code, parent.Code)
		}
	}
	return nil
}

func categoryPrefix(category ledger.AccountCategory) (byte, bool) {
	switch category {
	case ledger.CategoryAsset:
		return '1', true
	case ledger.CategoryLiability:
		return '2', true
	case ledger.CategoryEquity:
		return '3', true
	case ledger.CategoryRevenue:
		return '4', true
	case ledger.CategoryExpense:
		return '5', true
	}
	return 0, false
}
