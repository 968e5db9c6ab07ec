package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qayd-erp/qayd-erp/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the draft/posted/cancelled lifecycle of journal entries.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the lifecycle service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateDraft persists a manual entry in DRAFT status. Line accounts must be
// active leaves; the balance law is checked again at posting time.
func (s *Service) CreateDraft(ctx context.Context, input DraftInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		resolved, err := resolveLines(ctx, tx, input.Lines)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, EntryRecord{
			PeriodID:     input.PeriodID,
			Date:         input.Date,
			Description:  input.Description,
			EntryType:    input.EntryType,
			Status:       EntryStatusDraft,
			SourceModule: "financial",
			SourceModel:  "ManualEntry",
			Category:     input.Category,
			Subcategory:  input.Subcategory,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, resolved); err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, input.ActorID, "journal.draft", entry.ID, map[string]any{"number": entry.Number})
	return entry, nil
}

// Post transitions a draft entry to POSTED. All rules are checked inside the
// transaction; on any failure the entry stays in draft untouched.
func (s *Service) Post(ctx context.Context, entryID, actorID int64) (JournalEntry, error) {
	if entryID == 0 {
		return JournalEntry{}, errors.New("ledger: entry id required")
	}
	var entry JournalEntry
	postedAt := s.now()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return ErrInvalidStatus
		}
		if err := validatePersistedLines(current.Lines); err != nil {
			return err
		}
		accounts, err := tx.GetPostingAccountsByID(ctx, lineAccountIDs(current.Lines))
		if err != nil {
			return err
		}
		for _, line := range current.Lines {
			account, ok := accounts[line.AccountID]
			if !ok {
				return fmt.Errorf("%w: account id %d", ErrAccountNotFound, line.AccountID)
			}
			if !account.IsLeaf {
				return fmt.Errorf("%w: %s", ErrAccountNotLeaf, account.Code)
			}
			if !account.IsActive {
				return fmt.Errorf("%w: %s", ErrAccountInactive, account.Code)
			}
		}
		period, err := tx.GetPeriodForUpdate(ctx, current.PeriodID)
		if err != nil {
			return err
		}
		if !period.CanPostEntries() {
			return ErrPeriodClosed
		}
		if !period.Contains(current.Date) {
			return ErrDateOutOfPeriod
		}
		if err := tx.SetPosted(ctx, current.ID, actorID, postedAt); err != nil {
			return err
		}
		entry = current
		entry.Status = EntryStatusPosted
		entry.PostedBy = &actorID
		entry.PostedAt = &postedAt
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, actorID, "journal.post", entry.ID, map[string]any{"number": entry.Number})
	return entry, nil
}

// Unpost reverts a posted entry to DRAFT, clearing the posting stamps. Entries
// whose period has since closed are immutable and stay posted.
func (s *Service) Unpost(ctx context.Context, entryID, actorID int64) (JournalEntry, error) {
	if entryID == 0 {
		return JournalEntry{}, errors.New("ledger: entry id required")
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusPosted {
			return ErrInvalidStatus
		}
		period, err := tx.GetPeriodForUpdate(ctx, current.PeriodID)
		if err != nil {
			return err
		}
		if !period.CanPostEntries() {
			return ErrPeriodClosed
		}
		if err := tx.SetUnposted(ctx, current.ID); err != nil {
			return err
		}
		entry = current
		entry.Status = EntryStatusDraft
		entry.PostedBy = nil
		entry.PostedAt = nil
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, actorID, "journal.unpost", entry.ID, map[string]any{"number": entry.Number})
	return entry, nil
}

// Cancel marks a draft entry as CANCELLED.
func (s *Service) Cancel(ctx context.Context, entryID, actorID int64) (JournalEntry, error) {
	if entryID == 0 {
		return JournalEntry{}, errors.New("ledger: entry id required")
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return ErrInvalidStatus
		}
		if err := tx.SetStatus(ctx, current.ID, EntryStatusCancelled); err != nil {
			return err
		}
		entry = current
		entry.Status = EntryStatusCancelled
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, actorID, "journal.cancel", entry.ID, map[string]any{"number": entry.Number})
	return entry, nil
}

// Delete removes a draft entry and its lines. Posted and cancelled entries are
// kept for the audit trail.
func (s *Service) Delete(ctx context.Context, entryID, actorID int64) error {
	if entryID == 0 {
		return errors.New("ledger: entry id required")
	}
	var number int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return ErrEntryNotDeletable
		}
		number = current.Number
		return tx.DeleteEntry(ctx, current.ID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "journal.delete", entryID, map[string]any{"number": number})
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}

func lineAccountIDs(lines []JournalEntryLine) []int64 {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for _, line := range lines {
		if !seen[line.AccountID] {
			seen[line.AccountID] = true
			ids = append(ids, line.AccountID)
		}
	}
	return ids
}

func validatePersistedLines(lines []JournalEntryLine) error {
	inputs := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, LineInput{
			AccountCode: line.AccountCode,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return ValidateLines(inputs)
}

func resolveLines(ctx context.Context, tx TxRepository, lines []LineInput) ([]ResolvedLine, error) {
	codes := make([]string, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		if !seen[line.AccountCode] {
			seen[line.AccountCode] = true
			codes = append(codes, line.AccountCode)
		}
	}
	accounts, err := tx.GetPostingAccountsByCode(ctx, codes)
	if err != nil {
		return nil, err
	}
	resolved := make([]ResolvedLine, 0, len(lines))
	for _, line := range lines {
		account, ok := accounts[line.AccountCode]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, line.AccountCode)
		}
		if !account.IsLeaf {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotLeaf, account.Code)
		}
		if !account.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrAccountInactive, account.Code)
		}
		resolved = append(resolved, ResolvedLine{
			AccountID:   account.ID,
			AccountCode: account.Code,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return resolved, nil
}
