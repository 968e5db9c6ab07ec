package ledger

import (
	"context"
	"time"
)

type memoryRepo struct {
	entries    map[int64]*JournalEntry
	byKey      map[string]int64
	accounts   map[int64]PostingAccount
	byCode     map[string]int64
	periods    map[int64]Period
	nextID     int64
	nextNumber int64

	// hideFastPath makes the pool-level idempotency lookup miss, simulating
	// a concurrent writer that commits between lookup and insert.
	hideFastPath bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		entries:  make(map[int64]*JournalEntry),
		byKey:    make(map[string]int64),
		accounts: make(map[int64]PostingAccount),
		byCode:   make(map[string]int64),
		periods:  make(map[int64]Period),
	}
}

func (r *memoryRepo) addAccount(a PostingAccount) {
	r.accounts[a.ID] = a
	r.byCode[a.Code] = a.ID
}

func (r *memoryRepo) addPeriod(p Period) {
	r.periods[p.ID] = p
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) FindEntryByIdempotencyKey(ctx context.Context, key string) (JournalEntry, error) {
	if r.hideFastPath {
		r.hideFastPath = false
		return JournalEntry{}, ErrEntryNotFound
	}
	id, ok := r.byKey[key]
	if !ok {
		return JournalEntry{}, ErrEntryNotFound
	}
	return *r.entries[id], nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (tx *memoryTx) GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	entry, ok := tx.repo.entries[entryID]
	if !ok {
		return JournalEntry{}, ErrEntryNotFound
	}
	return *entry, nil
}

func (tx *memoryTx) GetEntryByIdempotencyKey(ctx context.Context, key string) (JournalEntry, error) {
	id, ok := tx.repo.byKey[key]
	if !ok {
		return JournalEntry{}, ErrEntryNotFound
	}
	return *tx.repo.entries[id], nil
}

func (tx *memoryTx) InsertEntry(ctx context.Context, rec EntryRecord) (JournalEntry, error) {
	if rec.IdempotencyKey != "" {
		if _, exists := tx.repo.byKey[rec.IdempotencyKey]; exists {
			return JournalEntry{}, ErrDuplicateIdempotencyKey
		}
	}
	tx.repo.nextID++
	tx.repo.nextNumber++
	now := time.Now()
	entry := JournalEntry{
		ID:             tx.repo.nextID,
		Number:         tx.repo.nextNumber,
		PeriodID:       rec.PeriodID,
		Date:           rec.Date,
		Description:    rec.Description,
		EntryType:      rec.EntryType,
		Status:         rec.Status,
		SourceModule:   rec.SourceModule,
		SourceModel:    rec.SourceModel,
		SourceID:       rec.SourceID,
		IdempotencyKey: rec.IdempotencyKey,
		Category:       rec.Category,
		Subcategory:    rec.Subcategory,
		PostedBy:       rec.PostedBy,
		PostedAt:       rec.PostedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	tx.repo.entries[entry.ID] = &entry
	if rec.IdempotencyKey != "" {
		tx.repo.byKey[rec.IdempotencyKey] = entry.ID
	}
	return entry, nil
}

func (tx *memoryTx) InsertLines(ctx context.Context, entryID int64, lines []ResolvedLine) error {
	entry, ok := tx.repo.entries[entryID]
	if !ok {
		return ErrEntryNotFound
	}
	for _, line := range lines {
		entry.Lines = append(entry.Lines, JournalEntryLine{
			ID:          int64(len(entry.Lines) + 1),
			EntryID:     entryID,
			AccountID:   line.AccountID,
			AccountCode: line.AccountCode,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return nil
}

func (tx *memoryTx) SetPosted(ctx context.Context, entryID, actorID int64, at time.Time) error {
	entry, ok := tx.repo.entries[entryID]
	if !ok {
		return ErrEntryNotFound
	}
	entry.Status = EntryStatusPosted
	entry.PostedBy = &actorID
	entry.PostedAt = &at
	return nil
}

func (tx *memoryTx) SetUnposted(ctx context.Context, entryID int64) error {
	entry, ok := tx.repo.entries[entryID]
	if !ok {
		return ErrEntryNotFound
	}
	entry.Status = EntryStatusDraft
	entry.PostedBy = nil
	entry.PostedAt = nil
	return nil
}

func (tx *memoryTx) SetStatus(ctx context.Context, entryID int64, status EntryStatus) error {
	entry, ok := tx.repo.entries[entryID]
	if !ok {
		return ErrEntryNotFound
	}
	entry.Status = status
	return nil
}

func (tx *memoryTx) DeleteEntry(ctx context.Context, entryID int64) error {
	entry, ok := tx.repo.entries[entryID]
	if !ok {
		return ErrEntryNotFound
	}
	delete(tx.repo.entries, entryID)
	if entry.IdempotencyKey != "" {
		delete(tx.repo.byKey, entry.IdempotencyKey)
	}
	return nil
}

func (tx *memoryTx) GetPostingAccountsByCode(ctx context.Context, codes []string) (map[string]PostingAccount, error) {
	out := make(map[string]PostingAccount)
	for _, code := range codes {
		if id, ok := tx.repo.byCode[code]; ok {
			out[code] = tx.repo.accounts[id]
		}
	}
	return out, nil
}

func (tx *memoryTx) GetPostingAccountsByID(ctx context.Context, ids []int64) (map[int64]PostingAccount, error) {
	out := make(map[int64]PostingAccount)
	for _, id := range ids {
		if account, ok := tx.repo.accounts[id]; ok {
			out[id] = account
		}
	}
	return out, nil
}

func (tx *memoryTx) FindOpenPeriodByDate(ctx context.Context, date time.Time) (Period, error) {
	for _, p := range tx.repo.periods {
		if p.Status == PeriodStatusOpen && p.Contains(date) {
			return p, nil
		}
	}
	return Period{}, ErrNoOpenPeriod
}

func (tx *memoryTx) GetPeriodForUpdate(ctx context.Context, periodID int64) (Period, error) {
	p, ok := tx.repo.periods[periodID]
	if !ok {
		return Period{}, ErrNoOpenPeriod
	}
	return p, nil
}
