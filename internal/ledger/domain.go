package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountCategory enumerates CoA categories.
type AccountCategory string

const (
	CategoryAsset     AccountCategory = "ASSET"
	CategoryLiability AccountCategory = "LIABILITY"
	CategoryEquity    AccountCategory = "EQUITY"
	CategoryRevenue   AccountCategory = "REVENUE"
	CategoryExpense   AccountCategory = "EXPENSE"
)

// AccountNature determines the sign convention for balances.
type AccountNature string

const (
	NatureDebit  AccountNature = "DEBIT"
	NatureCredit AccountNature = "CREDIT"
)

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// EntryStatus enumerates journal lifecycle values.
type EntryStatus string

const (
	EntryStatusDraft     EntryStatus = "DRAFT"
	EntryStatusPosted    EntryStatus = "POSTED"
	EntryStatusCancelled EntryStatus = "CANCELLED"
)

// PostingAccount is the projection of a ledger account the posting path needs.
type PostingAccount struct {
	ID       int64
	Code     string
	Nature   AccountNature
	Category AccountCategory
	IsLeaf   bool
	IsActive bool
}

// Period represents a posting window.
type Period struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Status    PeriodStatus
	IsCurrent bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanPostEntries reports whether the period accepts new postings.
func (p Period) CanPostEntries() bool {
	return p.Status == PeriodStatusOpen
}

// Contains reports whether date falls inside [StartDate, EndDate].
func (p Period) Contains(date time.Time) bool {
	d := date.Truncate(24 * time.Hour)
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

// JournalEntry is a balanced double-entry record.
type JournalEntry struct {
	ID             int64
	Number         int64
	PeriodID       int64
	Date           time.Time
	Description    string
	EntryType      string
	Status         EntryStatus
	SourceModule   string
	SourceModel    string
	SourceID       string
	IdempotencyKey string
	Category       string
	Subcategory    string
	PostedBy       *int64
	PostedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Lines          []JournalEntryLine
}

// JournalEntryLine stores one side of a double entry against a leaf account.
type JournalEntryLine struct {
	ID          int64
	EntryID     int64
	AccountID   int64
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LineInput describes a journal line by account code.
type LineInput struct {
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// CreateEntryInput groups the fields the gateway needs to record an entry.
type CreateEntryInput struct {
	Source      EntrySource
	Action      string
	Date        time.Time
	Description string
	EntryType   string
	Category    string
	Subcategory string
	ActorID     int64
	Lines       []LineInput

	// IdempotencyKey overrides the key derived from Source+Action.
	IdempotencyKey string
}

// DraftInput groups the fields needed to create a manual draft entry.
type DraftInput struct {
	PeriodID    int64
	Date        time.Time
	Description string
	EntryType   string
	Category    string
	Subcategory string
	ActorID     int64
	Lines       []LineInput
}

var (
	// ErrUnbalanced indicates sum of debits != sum of credits.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrLineBothSides indicates a line with both debit and credit set.
	ErrLineBothSides = errors.New("ledger: line cannot be both debit and credit")
	// ErrLineEmpty indicates a line with neither debit nor credit.
	ErrLineEmpty = errors.New("ledger: line requires a debit or credit amount")
	// ErrLineNegative indicates a negative amount.
	ErrLineNegative = errors.New("ledger: line amounts must be non-negative")
	// ErrAccountNotFound indicates a line references an unknown account code.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrAccountNotLeaf indicates a posting against a non-leaf account.
	ErrAccountNotLeaf = errors.New("ledger: account is not a leaf")
	// ErrAccountInactive indicates a posting against a deactivated account.
	ErrAccountInactive = errors.New("ledger: account is inactive")
	// ErrNoOpenPeriod indicates no open period contains the entry date.
	ErrNoOpenPeriod = errors.New("ledger: no open period for date")
	// ErrPeriodClosed indicates the entry's period no longer accepts changes.
	ErrPeriodClosed = errors.New("ledger: period is closed")
	// ErrDateOutOfPeriod indicates the entry date falls outside its period.
	ErrDateOutOfPeriod = errors.New("ledger: date outside accounting period")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrInvalidStatus indicates the lifecycle transition is not allowed.
	ErrInvalidStatus = errors.New("ledger: invalid status transition")
	// ErrEntryNotDeletable indicates the entry cannot be deleted.
	ErrEntryNotDeletable = errors.New("ledger: only draft entries may be deleted")
)

// ValidateLines enforces the line-level rules and the balance law.
func ValidateLines(lines []LineInput) error {
	if len(lines) < 2 {
		return ErrTooFewLines
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for idx, line := range lines {
		if line.AccountCode == "" {
			return fmt.Errorf("ledger: line %d missing account code", idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("line %d: %w", idx, ErrLineNegative)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return fmt.Errorf("line %d: %w", idx, ErrLineBothSides)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return fmt.Errorf("line %d: %w", idx, ErrLineEmpty)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: debit %s credit %s", ErrUnbalanced, debit, credit)
	}
	return nil
}

// Validate ensures gateway input meets the pre-write criteria.
func (in CreateEntryInput) Validate() error {
	if in.Source == nil {
		return errors.New("ledger: entry source required")
	}
	if in.Date.IsZero() {
		return errors.New("ledger: entry date required")
	}
	return ValidateLines(in.Lines)
}

// Validate ensures a manual draft carries enough to persist.
func (in DraftInput) Validate() error {
	if in.PeriodID == 0 {
		return errors.New("ledger: period required")
	}
	if in.Date.IsZero() {
		return errors.New("ledger: entry date required")
	}
	return ValidateLines(in.Lines)
}
