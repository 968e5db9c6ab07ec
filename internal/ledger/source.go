package ledger

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// EntrySource identifies the business record an entry originates from. It is
// a closed set: only the source types below satisfy the interface. Storage
// persists the (module, model, id) triple.
type EntrySource interface {
	sourceTriple() (module, model, id string)
}

// SaleSource points at a sale invoice.
type SaleSource struct{ ID int64 }

// PurchaseSource points at a purchase invoice.
type PurchaseSource struct{ ID int64 }

// PayrollSource points at a payroll run.
type PayrollSource struct{ ID int64 }

// PartnerSource points at a partner (customer/supplier) transaction.
type PartnerSource struct{ ID int64 }

// ManualSource marks an entry keyed only by an external reference.
type ManualSource struct{ Ref uuid.UUID }

func (s SaleSource) sourceTriple() (string, string, string) {
	return "sale", "SaleInvoice", strconv.FormatInt(s.ID, 10)
}

func (s PurchaseSource) sourceTriple() (string, string, string) {
	return "purchase", "PurchaseInvoice", strconv.FormatInt(s.ID, 10)
}

func (s PayrollSource) sourceTriple() (string, string, string) {
	return "hr", "PayrollRun", strconv.FormatInt(s.ID, 10)
}

func (s PartnerSource) sourceTriple() (string, string, string) {
	return "financial", "PartnerTransaction", strconv.FormatInt(s.ID, 10)
}

func (s ManualSource) sourceTriple() (string, string, string) {
	return "financial", "ManualEntry", s.Ref.String()
}

// SourceTriple exposes the persisted form of a source.
func SourceTriple(s EntrySource) (module, model, id string) {
	return s.sourceTriple()
}

// SourceKey derives the deterministic idempotency key for a source and action.
// Retried requests and re-run handlers produce the same key.
func SourceKey(s EntrySource, action string) string {
	module, model, id := s.sourceTriple()
	if action == "" {
		action = "create"
	}
	return fmt.Sprintf("JE:%s:%s:%s:%s", module, model, id, action)
}

// ParseSource rehydrates an EntrySource from its stored triple.
func ParseSource(module, model, id string) (EntrySource, error) {
	switch module + "/" + model {
	case "sale/SaleInvoice":
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ledger: parse sale source id %q: %w", id, err)
		}
		return SaleSource{ID: n}, nil
	case "purchase/PurchaseInvoice":
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ledger: parse purchase source id %q: %w", id, err)
		}
		return PurchaseSource{ID: n}, nil
	case "hr/PayrollRun":
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ledger: parse payroll source id %q: %w", id, err)
		}
		return PayrollSource{ID: n}, nil
	case "financial/PartnerTransaction":
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ledger: parse partner source id %q: %w", id, err)
		}
		return PartnerSource{ID: n}, nil
	case "financial/ManualEntry":
		ref, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("ledger: parse manual source ref %q: %w", id, err)
		}
		return ManualSource{Ref: ref}, nil
	}
	return nil, fmt.Errorf("ledger: unknown entry source %s/%s", module, model)
}
