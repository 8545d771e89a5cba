package memory

import (
	"context"
	"errors"
	"sort"

	"lending/core"
)

var errWalletAttached = errors.New("wallet already attached to a loan")

type walletStore struct {
	handle
}

func (s *walletStore) Create(ctx context.Context, wallet *core.Wallet) error {
	defer s.lock()()
	st := s.state()

	for _, w := range st.wallets {
		if w.Network == wallet.Network && w.Address == wallet.Address {
			return errors.New("wallet address already exists")
		}
	}

	now := s.db.clock.Now()
	wallet.ID = int64(st.nextID())
	wallet.CreatedAt, wallet.UpdatedAt = now, now
	st.wallets[uint64(wallet.ID)] = *wallet
	return nil
}

func (s *walletStore) FindByAddress(ctx context.Context, network, address string) (*core.Wallet, error) {
	defer s.lock()()

	for _, w := range s.state().wallets {
		if w.Network == network && w.Address == address {
			w := w
			return &w, nil
		}
	}

	return &core.Wallet{}, nil
}

func (s *walletStore) ListByUser(ctx context.Context, userID string) ([]*core.Wallet, error) {
	defer s.lock()()

	var wallets []*core.Wallet
	for _, w := range s.state().wallets {
		if w.UserID == userID {
			w := w
			wallets = append(wallets, &w)
		}
	}

	sort.Slice(wallets, func(i, j int) bool { return wallets[i].ID < wallets[j].ID })
	return wallets, nil
}

func (s *walletStore) AttachLoan(ctx context.Context, wallet *core.Wallet, loanID string) error {
	defer s.lock()()
	st := s.state()

	w, ok := st.wallets[uint64(wallet.ID)]
	if !ok || w.LoanID != "" {
		return errWalletAttached
	}

	w.LoanID = loanID
	w.UpdatedAt = s.db.clock.Now()
	st.wallets[uint64(w.ID)] = w
	wallet.LoanID = loanID
	return nil
}
