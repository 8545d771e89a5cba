package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// TransactionType transaction type
type TransactionType string

const (
	TransactionTypeDeposit          TransactionType = "deposit"
	TransactionTypeWithdrawal       TransactionType = "withdrawal"
	TransactionTypeDisbursement     TransactionType = "loan-disbursement"
	TransactionTypeInterestAccrual  TransactionType = "interest-accrual"
	TransactionTypeMarginCall       TransactionType = "margin-call"
	TransactionTypeLiquidation      TransactionType = "liquidation"
	TransactionTypeRepayment        TransactionType = "loan-repayment"
	TransactionTypeSwap             TransactionType = "swap"
	TransactionTypeRelocation       TransactionType = "relocation"
	TransactionTypeCollateralReturn TransactionType = "collateral-return"
)

// TransactionStatus transaction status
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

const (
	// TransactionKeyLTV ltv
	TransactionKeyLTV = "ltv"
	// TransactionKeyBorrowPrice borrow price
	TransactionKeyBorrowPrice = "borrow_price"
	// TransactionKeyCollateralPrice collateral price
	TransactionKeyCollateralPrice = "collateral_price"
	// TransactionKeyPrincipal principal
	TransactionKeyPrincipal = "principal"
	// TransactionKeyRate rate
	TransactionKeyRate = "rate"
	// TransactionKeyError error
	TransactionKeyError = "error"
	// TransactionKeyContract token contract
	TransactionKeyContract = "contract"
	// TransactionKeySource source transaction trace
	TransactionKeySource = "source"
	// TransactionKeyGasTopUp gas top up chain tx
	TransactionKeyGasTopUp = "gas_top_up"
	// TransactionKeyBlock block number
	TransactionKeyBlock = "block"
)

// TransactionExtraData extra data
type TransactionExtraData map[string]interface{}

// NewTransactionExtra new transaction extra instance
func NewTransactionExtra() TransactionExtraData {
	return make(TransactionExtraData)
}

// Put put data
func (t TransactionExtraData) Put(key string, value interface{}) TransactionExtraData {
	t[key] = value
	return t
}

// Format format as []byte by default
func (t TransactionExtraData) Format() []byte {
	bs, e := json.Marshal(t)
	if e != nil {
		return []byte("{}")
	}

	return bs
}

// Transaction append only ledger entry
type Transaction struct {
	ID      uint64            `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"-"`
	TraceID string            `sql:"size:36;unique_index:idx_transactions_trace" json:"id"`
	UserID  string            `sql:"size:36;index:idx_transactions_user" json:"user_id"`
	Type    TransactionType   `sql:"size:24;index:idx_transactions_type" json:"type"`
	Symbol  string            `sql:"size:32" json:"symbol"`
	Network string            `sql:"size:32" json:"network"`
	Amount  decimal.Decimal   `sql:"type:decimal(40,18)" json:"amount"`
	Gross   decimal.Decimal   `sql:"type:decimal(40,18)" json:"gross"`
	Net     decimal.Decimal   `sql:"type:decimal(40,18)" json:"net"`
	Fee     decimal.Decimal   `sql:"type:decimal(40,18)" json:"fee"`
	Status  TransactionStatus `sql:"size:16;index:idx_transactions_status" json:"status"`
	// globally unique when present
	ChainTxID *string        `sql:"size:128;unique_index:idx_transactions_chain_tx" json:"tx_id,omitempty"`
	LoanID    string         `sql:"size:36;index:idx_transactions_loan" json:"loan_id,omitempty"`
	Address   string         `sql:"size:128" json:"address,omitempty"`
	Data      types.JSONText `sql:"type:TEXT" json:"data,omitempty"`
	CreatedAt time.Time      `sql:"default:CURRENT_TIMESTAMP;index:idx_transactions_created_at" json:"created_at"`
	UpdatedAt time.Time      `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// SetChainTxID set the idempotency anchor, empty clears it
func (t *Transaction) SetChainTxID(txID string) {
	if txID == "" {
		t.ChainTxID = nil
		return
	}

	t.ChainTxID = &txID
}

// GetChainTxID chain tx id or empty
func (t *Transaction) GetChainTxID() string {
	if t.ChainTxID == nil {
		return ""
	}

	return *t.ChainTxID
}

// SetExtraData set extra data
func (t *Transaction) SetExtraData(extra TransactionExtraData) {
	data := []byte("{}")
	if extra != nil {
		data = extra.Format()
	}

	t.Data = data
}

// ExtraData decode extra data
func (t *Transaction) ExtraData() TransactionExtraData {
	extra := NewTransactionExtra()
	if len(t.Data) > 0 {
		_ = json.Unmarshal(t.Data, &extra)
	}

	return extra
}

// TransactionStore transaction store interface
type TransactionStore interface {
	// Create insert the transaction, ErrDuplicateTransaction when the trace id
	// or the chain tx id already exists
	Create(ctx context.Context, transaction *Transaction) error
	// FindByTraceID returns an empty transaction (ID == 0) when not found
	FindByTraceID(ctx context.Context, traceID string) (*Transaction, error)
	// FindByChainTxID returns an empty transaction (ID == 0) when not found
	FindByChainTxID(ctx context.Context, txID string) (*Transaction, error)
	// UpdateStatus from => to, false when the transaction is no longer in from
	UpdateStatus(ctx context.Context, transaction *Transaction, from, to TransactionStatus) (bool, error)
	ListByLoan(ctx context.Context, loanID string) ([]*Transaction, error)
	// ListPending pending transactions of the type with ID > from
	ListPending(ctx context.Context, typ TransactionType, from uint64, limit int) ([]*Transaction, error)
}
