package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type lineRequest struct {
	AccountCode string          `json:"account_code" validate:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

type createDraftRequest struct {
	PeriodID    int64         `json:"period_id" validate:"required"`
	Date        string        `json:"date" validate:"required"`
	Description string        `json:"description"`
	EntryType   string        `json:"entry_type"`
	Category    string        `json:"category"`
	Subcategory string        `json:"subcategory"`
	Lines       []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type createEntryRequest struct {
	SourceModule   string        `json:"source_module" validate:"required"`
	SourceModel    string        `json:"source_model" validate:"required"`
	SourceID       string        `json:"source_id" validate:"required"`
	Action         string        `json:"action"`
	Date           string        `json:"date" validate:"required"`
	Description    string        `json:"description"`
	EntryType      string        `json:"entry_type"`
	Category       string        `json:"category"`
	Subcategory    string        `json:"subcategory"`
	IdempotencyKey string        `json:"idempotency_key"`
	Lines          []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type reverseEntryRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

type lineResponse struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	AccountCode string          `json:"account_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

type entryResponse struct {
	ID             int64          `json:"id"`
	Number         int64          `json:"number"`
	PeriodID       int64          `json:"period_id"`
	Date           string         `json:"date"`
	Description    string         `json:"description,omitempty"`
	EntryType      string         `json:"entry_type,omitempty"`
	Status         EntryStatus    `json:"status"`
	SourceModule   string         `json:"source_module"`
	SourceModel    string         `json:"source_model"`
	SourceID       string         `json:"source_id,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Category       string         `json:"category,omitempty"`
	Subcategory    string         `json:"subcategory,omitempty"`
	PostedBy       *int64         `json:"posted_by,omitempty"`
	PostedAt       *time.Time     `json:"posted_at,omitempty"`
	Lines          []lineResponse `json:"lines,omitempty"`
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("ledger: invalid date %q, want YYYY-MM-DD", value)
	}
	return t, nil
}

func toLineInputs(lines []lineRequest) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountCode: line.AccountCode,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return out
}

func toEntryResponse(entry JournalEntry) entryResponse {
	resp := entryResponse{
		ID:             entry.ID,
		Number:         entry.Number,
		PeriodID:       entry.PeriodID,
		Date:           entry.Date.Format(dateLayout),
		Description:    entry.Description,
		EntryType:      entry.EntryType,
		Status:         entry.Status,
		SourceModule:   entry.SourceModule,
		SourceModel:    entry.SourceModel,
		SourceID:       entry.SourceID,
		IdempotencyKey: entry.IdempotencyKey,
		Category:       entry.Category,
		Subcategory:    entry.Subcategory,
		PostedBy:       entry.PostedBy,
		PostedAt:       entry.PostedAt,
	}
	for _, line := range entry.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:          line.ID,
			AccountID:   line.AccountID,
			AccountCode: line.AccountCode,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return resp
}
