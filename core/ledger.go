package core

import "context"

// Stores stores bound to one unit of work
type Stores struct {
	Assets       AssetStore
	Balances     BalanceStore
	Loans        LoanStore
	Quotes       QuoteStore
	Transactions TransactionStore
	Wallets      WalletStore
}

// Ledger runs multi-entity mutations atomically
type Ledger interface {
	// Stores stores outside of a unit of work
	Stores() Stores
	// WithinTx all writes made through s commit together or not at all
	WithinTx(ctx context.Context, fn func(s Stores) error) error
}
