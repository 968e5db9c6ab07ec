package accounts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qayd-erp/qayd-erp/internal/ledger"
)

type memoryRepo struct {
	byCode   map[string]*Account
	nextID   int64
	postings map[int64]Sums
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		byCode:   make(map[string]*Account),
		postings: make(map[int64]Sums),
	}
}

func (r *memoryRepo) seed(a Account) Account {
	r.nextID++
	a.ID = r.nextID
	r.byCode[a.Code] = &a
	return a
}

func (r *memoryRepo) GetByCode(ctx context.Context, code string) (Account, error) {
	a, ok := r.byCode[code]
	if !ok {
		return Account{}, ledger.ErrAccountNotFound
	}
	return *a, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (Account, error) {
	for _, a := range r.byCode {
		if a.ID == id {
			return *a, nil
		}
	}
	return Account{}, ledger.ErrAccountNotFound
}

func (r *memoryRepo) GetByPartner(ctx context.Context, kind string, id int64) (Account, error) {
	for _, a := range r.byCode {
		if a.PartnerKind == kind && a.PartnerID != nil && *a.PartnerID == id {
			return *a, nil
		}
	}
	return Account{}, ledger.ErrAccountNotFound
}

func (r *memoryRepo) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	var out []Account
	for _, a := range r.byCode {
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memoryRepo) ListRootCodes(ctx context.Context, category ledger.AccountCategory) ([]string, error) {
	var codes []string
	for _, a := range r.byCode {
		if a.ParentID == nil && a.Category == category {
			codes = append(codes, a.Code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (r *memoryRepo) ListChildCodes(ctx context.Context, parentID int64) ([]string, error) {
	var codes []string
	for _, a := range r.byCode {
		if a.ParentID != nil && *a.ParentID == parentID {
			codes = append(codes, a.Code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (r *memoryRepo) Exists(ctx context.Context, code string) (bool, error) {
	_, ok := r.byCode[code]
	return ok, nil
}

func (r *memoryRepo) Insert(ctx context.Context, account Account) (Account, error) {
	if _, ok := r.byCode[account.Code]; ok {
		return Account{}, fmt.Errorf("accounts: duplicate code %s", account.Code)
	}
	r.nextID++
	account.ID = r.nextID
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	r.byCode[account.Code] = &account
	if account.ParentID != nil {
		for _, a := range r.byCode {
			if a.ID == *account.ParentID {
				a.IsLeaf = false
			}
		}
	}
	return account, nil
}

func (r *memoryRepo) Deactivate(ctx context.Context, code string) error {
	a, ok := r.byCode[code]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	a.IsActive = false
	return nil
}

func (r *memoryRepo) HasPostings(ctx context.Context, accountID int64) (bool, error) {
	sums, ok := r.postings[accountID]
	return ok && (!sums.Debit.IsZero() || !sums.Credit.IsZero()), nil
}

func (r *memoryRepo) SumLines(ctx context.Context, accountID int64, asOf *time.Time, postedOnly bool) (Sums, error) {
	return r.postings[accountID], nil
}

func (r *memoryRepo) SumByCodePrefix(ctx context.Context, prefix string, asOf *time.Time, postedOnly bool) (Sums, error) {
	total := Sums{Debit: decimal.Zero, Credit: decimal.Zero, Opening: decimal.Zero}
	for _, a := range r.byCode {
		if !strings.HasPrefix(a.Code, prefix) {
			continue
		}
		sums := r.postings[a.ID]
		total.Debit = total.Debit.Add(sums.Debit)
		total.Credit = total.Credit.Add(sums.Credit)
		if a.IsLeaf {
			total.Opening = total.Opening.Add(a.OpeningBalance)
		}
	}
	return total, nil
}

type memoryMappings struct {
	byMethod map[string]PaymentMethodMapping
}

func newMemoryMappings() *memoryMappings {
	return &memoryMappings{byMethod: make(map[string]PaymentMethodMapping)}
}

func (r *memoryMappings) Get(ctx context.Context, method string) (PaymentMethodMapping, error) {
	m, ok := r.byMethod[method]
	if !ok {
		return PaymentMethodMapping{}, ErrMappingNotFound
	}
	return m, nil
}

func (r *memoryMappings) Upsert(ctx context.Context, mapping PaymentMethodMapping) error {
	r.byMethod[mapping.Method] = mapping
	return nil
}

func (r *memoryMappings) Delete(ctx context.Context, method string) error {
	delete(r.byMethod, method)
	return nil
}
