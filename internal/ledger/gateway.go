package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qayd-erp/qayd-erp/internal/shared"
)

// Gateway is the single entry point business modules use to record financial
// effects. It enforces idempotency, resolves account codes, validates the
// balance law before any write, and persists entry plus lines atomically.
type Gateway struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewGateway constructs the gateway.
func NewGateway(repo RepositoryPort, audit AuditPort) *Gateway {
	return &Gateway{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (g *Gateway) WithNow(now func() time.Time) {
	if now != nil {
		g.now = now
	}
}

// ReverseInput wraps the parameters for reversing a posted entry.
type ReverseInput struct {
	EntryID     int64
	ActorID     int64
	Date        time.Time
	Description string
}

// CreateJournalEntry records a posted entry for the supplied source. Calling
// it twice with the same idempotency key returns the first entry unchanged.
func (g *Gateway) CreateJournalEntry(ctx context.Context, input CreateEntryInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	key := input.IdempotencyKey
	if key == "" {
		key = SourceKey(input.Source, input.Action)
	}

	// Fast path. The unique index on idempotency_key stays authoritative; this
	// lookup only spares a transaction on retried requests.
	if existing, err := g.repo.FindEntryByIdempotencyKey(ctx, key); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrEntryNotFound) {
		return JournalEntry{}, err
	}

	module, model, sourceID := SourceTriple(input.Source)
	postedAt := g.now()
	var entry JournalEntry
	var replayed bool
	err := g.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		resolved, err := resolveLines(ctx, tx, input.Lines)
		if err != nil {
			return err
		}
		period, err := tx.FindOpenPeriodByDate(ctx, input.Date)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, EntryRecord{
			PeriodID:       period.ID,
			Date:           input.Date,
			Description:    input.Description,
			EntryType:      input.EntryType,
			Status:         EntryStatusPosted,
			SourceModule:   module,
			SourceModel:    model,
			SourceID:       sourceID,
			IdempotencyKey: key,
			Category:       input.Category,
			Subcategory:    input.Subcategory,
			PostedBy:       &input.ActorID,
			PostedAt:       &postedAt,
		})
		if err != nil {
			if errors.Is(err, ErrDuplicateIdempotencyKey) {
				// A concurrent request with the same key won the race.
				replayed = true
				return nil
			}
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, resolved); err != nil {
			return err
		}
		inserted.Lines = toEntryLines(inserted.ID, resolved, postedAt)
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if replayed {
		return g.repo.FindEntryByIdempotencyKey(ctx, key)
	}
	if g.audit != nil {
		_ = g.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "journal.create",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"number":          entry.Number,
				"source_module":   module,
				"source_model":    model,
				"source_id":       sourceID,
				"idempotency_key": key,
			},
			At: g.now(),
		})
	}
	return entry, nil
}

// ReverseEntry records a balanced opposite of a posted entry. The reversal has
// its own deterministic key, so repeated calls yield one reversal.
func (g *Gateway) ReverseEntry(ctx context.Context, input ReverseInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, errors.New("ledger: entry id required")
	}
	var original JournalEntry
	err := g.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusPosted {
			return ErrInvalidStatus
		}
		original = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	source, err := ParseSource(original.SourceModule, original.SourceModel, original.SourceID)
	if err != nil {
		return JournalEntry{}, err
	}
	date := input.Date
	if date.IsZero() {
		date = g.now()
	}
	description := input.Description
	if description == "" {
		description = fmt.Sprintf("Reversal of JE %d", original.Number)
	}
	return g.CreateJournalEntry(ctx, CreateEntryInput{
		Source:      source,
		Action:      "reverse",
		Date:        date,
		Description: description,
		EntryType:   "reversal",
		Category:    original.Category,
		Subcategory: original.Subcategory,
		ActorID:     input.ActorID,
		Lines:       swapSides(original.Lines),
	})
}

func swapSides(lines []JournalEntryLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountCode: line.AccountCode,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: line.Description,
		})
	}
	return out
}

func toEntryLines(entryID int64, lines []ResolvedLine, ts time.Time) []JournalEntryLine {
	out := make([]JournalEntryLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalEntryLine{
			EntryID:     entryID,
			AccountID:   line.AccountID,
			AccountCode: line.AccountCode,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		})
	}
	return out
}
