package ledger

import (
	"context"

	"lending/core"
	"lending/store/asset"
	"lending/store/balance"
	"lending/store/loan"
	"lending/store/quote"
	"lending/store/transaction"
	"lending/store/wallet"

	"github.com/fox-one/pkg/store/db"
)

type ledger struct {
	db     *db.DB
	stores core.Stores
}

// New ledger backed by the sql database, WithinTx binds every store to
// one database transaction
func New(db *db.DB) core.Ledger {
	return &ledger{
		db:     db,
		stores: bind(db),
	}
}

func bind(db *db.DB) core.Stores {
	return core.Stores{
		Assets:       asset.New(db),
		Balances:     balance.New(db),
		Loans:        loan.New(db),
		Quotes:       quote.New(db),
		Transactions: transaction.New(db),
		Wallets:      wallet.New(db),
	}
}

func (l *ledger) Stores() core.Stores {
	return l.stores
}

func (l *ledger) WithinTx(ctx context.Context, fn func(s core.Stores) error) error {
	return l.db.Tx(func(tx *db.DB) error {
		return fn(bind(tx))
	})
}
