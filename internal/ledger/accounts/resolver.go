package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// KeyedCache is a key/value cache with explicit invalidation. Invalidation is
// called from the same flow that mutates the underlying row, never from a
// framework signal.
type KeyedCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Invalidate(ctx context.Context, key string) error
}

const paymentAccountKeyPrefix = "payment-account:"

// PaymentAccountResolver maps payment methods to ledger accounts through a
// cache layer.
type PaymentAccountResolver struct {
	mappings MappingRepository
	accounts Repository
	cache    KeyedCache
	logger   *slog.Logger
}

// NewPaymentAccountResolver constructs the resolver. Cache may be nil, in
// which case every lookup hits the repository.
func NewPaymentAccountResolver(mappings MappingRepository, accounts Repository, cache KeyedCache, logger *slog.Logger) *PaymentAccountResolver {
	return &PaymentAccountResolver{mappings: mappings, accounts: accounts, cache: cache, logger: logger}
}

// Resolve returns the account configured for the payment method.
func (r *PaymentAccountResolver) Resolve(ctx context.Context, method string) (Account, error) {
	if method == "" {
		return Account{}, errors.New("accounts: payment method required")
	}
	if r.cache != nil {
		code, ok, err := r.cache.Get(ctx, paymentAccountKeyPrefix+method)
		if err != nil && r.logger != nil {
			r.logger.Warn("payment account cache read", slog.Any("error", err))
		}
		if ok {
			return r.accounts.GetByCode(ctx, code)
		}
	}
	mapping, err := r.mappings.Get(ctx, method)
	if err != nil {
		return Account{}, err
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, paymentAccountKeyPrefix+method, mapping.AccountCode); err != nil && r.logger != nil {
			r.logger.Warn("payment account cache write", slog.Any("error", err))
		}
	}
	return r.accounts.GetByCode(ctx, mapping.AccountCode)
}

// SaveMapping stores a mapping and invalidates its cache entry in the same
// flow. The target account must be an active cash or bank leaf.
func (r *PaymentAccountResolver) SaveMapping(ctx context.Context, method, accountCode string) error {
	if method == "" {
		return errors.New("accounts: payment method required")
	}
	account, err := r.accounts.GetByCode(ctx, accountCode)
	if err != nil {
		return err
	}
	if !account.IsLeaf || !account.IsActive {
		return fmt.Errorf("accounts: %s is not an active leaf account", accountCode)
	}
	if !account.IsCashAccount && !account.IsBankAccount {
		return fmt.Errorf("accounts: %s is neither a cash nor a bank account", accountCode)
	}
	if err := r.mappings.Upsert(ctx, PaymentMethodMapping{Method: method, AccountCode: accountCode}); err != nil {
		return err
	}
	return r.invalidate(ctx, method)
}

// DeleteMapping removes a mapping and invalidates its cache entry.
func (r *PaymentAccountResolver) DeleteMapping(ctx context.Context, method string) error {
	if err := r.mappings.Delete(ctx, method); err != nil {
		return err
	}
	return r.invalidate(ctx, method)
}

func (r *PaymentAccountResolver) invalidate(ctx context.Context, method string) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.Invalidate(ctx, paymentAccountKeyPrefix+method); err != nil {
		if r.logger != nil {
			r.logger.Warn("payment account cache invalidate", slog.Any("error", err))
		}
		return err
	}
	return nil
}
