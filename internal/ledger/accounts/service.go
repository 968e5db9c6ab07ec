package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qayd-erp/qayd-erp/internal/ledger"
)

// ServiceConfig carries the parent codes partner sub-accounts hang under.
type ServiceConfig struct {
	ReceivablesParentCode string
	PayablesParentCode    string
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.ReceivablesParentCode == "" {
		c.ReceivablesParentCode = "10300"
	}
	if c.PayablesParentCode == "" {
		c.PayablesParentCode = "20100"
	}
	return c
}

// BalanceOptions controls how a balance is computed.
type BalanceOptions struct {
	AsOf           *time.Time
	IncludeOpening bool
	PostedOnly     bool
}

// CreateAccountInput groups the fields required to open an account.
type CreateAccountInput struct {
	Code               string // empty: allocate
	Name               string
	TypeID             int64
	Category           ledger.AccountCategory
	Nature             ledger.AccountNature
	ParentCode         string
	IsCashAccount      bool
	IsBankAccount      bool
	OpeningBalance     decimal.Decimal
	OpeningBalanceDate *time.Time
}

// Service maintains the account directory and computes balances.
type Service struct {
	repo      Repository
	allocator *CodeAllocator
	cfg       ServiceConfig
	logger    *slog.Logger
}

// NewService constructs the account service.
func NewService(repo Repository, cfg ServiceConfig, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		allocator: NewCodeAllocator(repo),
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// List returns accounts ordered by code.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	return s.repo.List(ctx, activeOnly)
}

// Get resolves an account by code.
func (s *Service) Get(ctx context.Context, code string) (Account, error) {
	return s.repo.GetByCode(ctx, code)
}

// CreateAccount opens a new account, allocating a code when none is supplied.
// Adding a child demotes its parent to non-leaf, which is only allowed while
// the parent has no postings.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error) {
	if input.Name == "" {
		return Account{}, errors.New("accounts: name required")
	}
	var parent *Account
	if input.ParentCode != "" {
		p, err := s.repo.GetByCode(ctx, input.ParentCode)
		if err != nil {
			return Account{}, fmt.Errorf("resolve parent %q: %w", input.ParentCode, err)
		}
		if p.Category != input.Category {
			return Account{}, fmt.Errorf("accounts: parent %s category %s does not match %s", p.Code, p.Category, input.Category)
		}
		if p.IsLeaf {
			hasPostings, err := s.repo.HasPostings(ctx, p.ID)
			if err != nil {
				return Account{}, err
			}
			if hasPostings {
				return Account{}, fmt.Errorf("accounts: parent %s already has postings", p.Code)
			}
		}
		parent = &p
	}

	code := input.Code
	if code == "" {
		var err error
		if parent != nil {
			code, err = s.allocator.NextChildCode(ctx, *parent)
		} else {
			code, err = s.allocator.NextRootCode(ctx, input.Category)
		}
		if err != nil {
			return Account{}, err
		}
	}
	if err := ValidateCode(code, input.Category, parent); err != nil {
		return Account{}, err
	}
	exists, err := s.repo.Exists(ctx, code)
	if err != nil {
		return Account{}, err
	}
	if exists {
		return Account{}, fmt.Errorf("accounts: code %s already exists", code)
	}

	account := Account{
		Code:               code,
		Name:               input.Name,
		TypeID:             input.TypeID,
		Category:           input.Category,
		Nature:             input.Nature,
		IsLeaf:             true,
		IsActive:           true,
		IsCashAccount:      input.IsCashAccount,
		IsBankAccount:      input.IsBankAccount,
		OpeningBalance:     input.OpeningBalance,
		OpeningBalanceDate: input.OpeningBalanceDate,
	}
	if parent != nil {
		account.ParentID = &parent.ID
	}
	created, err := s.repo.Insert(ctx, account)
	if err != nil {
		return Account{}, err
	}
	if s.logger != nil {
		s.logger.Info("account created", slog.String("code", created.Code), slog.String("name", created.Name))
	}
	return created, nil
}

// EnsureAccountFor returns the partner's sub-account, creating it under the
// receivables or payables parent on first use. Replaces the legacy save-signal
// side effect with an explicit call.
func (s *Service) EnsureAccountFor(ctx context.Context, partner Partner) (Account, error) {
	if partner.ID == 0 {
		return Account{}, errors.New("accounts: partner id required")
	}
	existing, err := s.repo.GetByPartner(ctx, partner.Kind, partner.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		return Account{}, err
	}

	var parentCode string
	var category ledger.AccountCategory
	var nature ledger.AccountNature
	switch partner.Kind {
	case "customer":
		parentCode = s.cfg.ReceivablesParentCode
		category = ledger.CategoryAsset
		nature = ledger.NatureDebit
	case "supplier":
		parentCode = s.cfg.PayablesParentCode
		category = ledger.CategoryLiability
		nature = ledger.NatureCredit
	default:
		return Account{}, fmt.Errorf("accounts: unknown partner kind %q", partner.Kind)
	}
	parent, err := s.repo.GetByCode(ctx, parentCode)
	if err != nil {
		return Account{}, fmt.Errorf("resolve partner parent %q: %w", parentCode, err)
	}
	code, err := s.allocator.NextChildCode(ctx, parent)
	if err != nil {
		return Account{}, err
	}
	account := Account{
		Code:        code,
		Name:        partner.Name,
		TypeID:      parent.TypeID,
		Category:    category,
		Nature:      nature,
		ParentID:    &parent.ID,
		IsLeaf:      true,
		IsActive:    true,
		PartnerKind: partner.Kind,
		PartnerID:   &partner.ID,
	}
	created, err := s.repo.Insert(ctx, account)
	if err != nil {
		return Account{}, err
	}
	if s.logger != nil {
		s.logger.Info("partner account created",
			slog.String("code", created.Code),
			slog.String("partner_kind", partner.Kind),
			slog.Int64("partner_id", partner.ID))
	}
	return created, nil
}

// Deactivate retires an account from new postings.
func (s *Service) Deactivate(ctx context.Context, code string) error {
	return s.repo.Deactivate(ctx, code)
}

// GetBalance returns the signed balance of an account per its nature. For a
// non-leaf account it aggregates all accounts sharing the code prefix.
func (s *Service) GetBalance(ctx context.Context, code string, opts BalanceOptions) (decimal.Decimal, error) {
	account, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}
	var sums Sums
	if account.IsLeaf {
		sums, err = s.repo.SumLines(ctx, account.ID, opts.AsOf, opts.PostedOnly)
		if err != nil {
			return decimal.Zero, err
		}
		sums.Opening = account.OpeningBalance
	} else {
		sums, err = s.repo.SumByCodePrefix(ctx, account.Code, opts.AsOf, opts.PostedOnly)
		if err != nil {
			return decimal.Zero, err
		}
		sums.Opening = sums.Opening.Add(account.OpeningBalance)
	}
	balance := decimal.Zero
	if opts.IncludeOpening {
		balance = sums.Opening
	}
	if account.Nature == ledger.NatureCredit {
		return balance.Add(sums.Credit).Sub(sums.Debit), nil
	}
	return balance.Add(sums.Debit).Sub(sums.Credit), nil
}
