package accounts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/qayd-erp/qayd-erp/internal/ledger"
)

// AccountType mirrors the account hierarchy at the type level.
type AccountType struct {
	ID        int64
	Code      string
	Category  ledger.AccountCategory
	Nature    ledger.AccountNature
	ParentID  *int64
	Level     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Account models a chart of accounts node. Only leaf accounts receive
// postings; a child's code is always prefixed by its parent's code.
type Account struct {
	ID                 int64
	Code               string
	Name               string
	TypeID             int64
	Category           ledger.AccountCategory
	Nature             ledger.AccountNature
	ParentID           *int64
	IsLeaf             bool
	IsActive           bool
	IsCashAccount      bool
	IsBankAccount      bool
	OpeningBalance     decimal.Decimal
	OpeningBalanceDate *time.Time
	PartnerKind        string
	PartnerID          *int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Partner identifies a business counterparty that owns a sub-account.
type Partner struct {
	Kind string // "customer" or "supplier"
	ID   int64
	Name string
}

// PaymentMethodMapping links a payment method to the ledger account that
// receives its movements.
type PaymentMethodMapping struct {
	Method      string
	AccountCode string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
