// Package memory in-process ledger used by the simulated environment and tests.
// WithinTx holds the ledger lock for the whole unit of work and restores a
// snapshot when the callback fails.
package memory

import (
	"context"
	"sync"

	"lending/core"
	"lending/pkg/clock"
)

type state struct {
	seq          uint64
	assets       map[uint64]core.Asset
	balances     map[string]core.Balance
	loans        map[uint64]core.Loan
	quotes       map[uint64]core.Quote
	transactions map[uint64]core.Transaction
	wallets      map[uint64]core.Wallet
	users        map[string]core.User
}

func newState() *state {
	return &state{
		assets:       map[uint64]core.Asset{},
		balances:     map[string]core.Balance{},
		loans:        map[uint64]core.Loan{},
		quotes:       map[uint64]core.Quote{},
		transactions: map[uint64]core.Transaction{},
		wallets:      map[uint64]core.Wallet{},
		users:        map[string]core.User{},
	}
}

func (st *state) clone() *state {
	c := &state{
		seq:          st.seq,
		assets:       make(map[uint64]core.Asset, len(st.assets)),
		balances:     make(map[string]core.Balance, len(st.balances)),
		loans:        make(map[uint64]core.Loan, len(st.loans)),
		quotes:       make(map[uint64]core.Quote, len(st.quotes)),
		transactions: make(map[uint64]core.Transaction, len(st.transactions)),
		wallets:      make(map[uint64]core.Wallet, len(st.wallets)),
		users:        make(map[string]core.User, len(st.users)),
	}

	for k, v := range st.assets {
		c.assets[k] = v
	}
	for k, v := range st.balances {
		c.balances[k] = v
	}
	for k, v := range st.loans {
		c.loans[k] = v
	}
	for k, v := range st.quotes {
		c.quotes[k] = v
	}
	for k, v := range st.transactions {
		c.transactions[k] = v
	}
	for k, v := range st.wallets {
		c.wallets[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}

	return c
}

func (st *state) nextID() uint64 {
	st.seq++
	return st.seq
}

// DB shared in-memory database
type DB struct {
	mu    sync.Mutex
	st    *state
	clock clock.Clock
}

// New new in-memory database
func New(c clock.Clock) *DB {
	if c == nil {
		c = clock.System()
	}

	return &DB{
		st:    newState(),
		clock: c,
	}
}

// handle is embedded by every store, inTx stores run under the lock held by
// WithinTx
type handle struct {
	db   *DB
	inTx bool
}

func (h handle) lock() func() {
	if h.inTx {
		return func() {}
	}

	h.db.mu.Lock()
	return h.db.mu.Unlock
}

func (h handle) state() *state {
	return h.db.st
}

type ledger struct {
	db *DB
}

// Ledger in-memory unit of work
func Ledger(db *DB) core.Ledger {
	return &ledger{db: db}
}

func (db *DB) stores(inTx bool) core.Stores {
	h := handle{db: db, inTx: inTx}
	return core.Stores{
		Assets:       &assetStore{h},
		Balances:     &balanceStore{h},
		Loans:        &loanStore{h},
		Quotes:       &quoteStore{h},
		Transactions: &transactionStore{h},
		Wallets:      &walletStore{h},
	}
}

func (l *ledger) Stores() core.Stores {
	return l.db.stores(false)
}

func (l *ledger) WithinTx(ctx context.Context, fn func(s core.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.db.mu.Lock()
	defer l.db.mu.Unlock()

	snapshot := l.db.st.clone()
	if err := fn(l.db.stores(true)); err != nil {
		l.db.st = snapshot
		return err
	}

	return nil
}

// Assets asset store outside any unit of work
func (db *DB) Assets() core.AssetStore { return &assetStore{handle{db: db}} }

// Balances balance store outside any unit of work
func (db *DB) Balances() core.BalanceStore { return &balanceStore{handle{db: db}} }

// Loans loan store outside any unit of work
func (db *DB) Loans() core.LoanStore { return &loanStore{handle{db: db}} }

// Quotes quote store outside any unit of work
func (db *DB) Quotes() core.QuoteStore { return &quoteStore{handle{db: db}} }

// Transactions transaction store outside any unit of work
func (db *DB) Transactions() core.TransactionStore { return &transactionStore{handle{db: db}} }

// Wallets wallet store outside any unit of work
func (db *DB) Wallets() core.WalletStore { return &walletStore{handle{db: db}} }

// Users user store
func (db *DB) Users() core.UserStore { return &userStore{handle{db: db}} }
