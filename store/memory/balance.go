package memory

import (
	"context"
	"sort"

	"lending/core"

	"github.com/shopspring/decimal"
)

type balanceStore struct {
	handle
}

func balanceKey(userID, symbol string) string {
	return userID + ":" + symbol
}

func (s *balanceStore) Find(ctx context.Context, userID, symbol string) (*core.Balance, error) {
	defer s.lock()()

	if b, ok := s.state().balances[balanceKey(userID, symbol)]; ok {
		return &b, nil
	}

	return &core.Balance{
		UserID:    userID,
		Symbol:    symbol,
		Available: decimal.Zero,
		Locked:    decimal.Zero,
	}, nil
}

func (s *balanceStore) ListByUser(ctx context.Context, userID string) ([]*core.Balance, error) {
	defer s.lock()()

	var balances []*core.Balance
	for _, b := range s.state().balances {
		if b.UserID == userID {
			b := b
			balances = append(balances, &b)
		}
	}

	sort.Slice(balances, func(i, j int) bool { return balances[i].Symbol < balances[j].Symbol })
	return balances, nil
}

func (s *balanceStore) Credit(ctx context.Context, userID, symbol string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	defer s.lock()()
	st := s.state()
	now := s.db.clock.Now()

	key := balanceKey(userID, symbol)
	b, ok := st.balances[key]
	if !ok {
		b = core.Balance{
			ID:        st.nextID(),
			UserID:    userID,
			Symbol:    symbol,
			Available: decimal.Zero,
			Locked:    decimal.Zero,
			CreatedAt: now,
		}
	}

	b.Available = b.Available.Add(amount)
	b.Version++
	b.UpdatedAt = now
	st.balances[key] = b
	return nil
}

func (s *balanceStore) Debit(ctx context.Context, userID, symbol string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	defer s.lock()()
	st := s.state()

	key := balanceKey(userID, symbol)
	b := st.balances[key]
	if b.Available.LessThan(amount) {
		return core.NewDeficitError(core.ErrInsufficientBalance, amount, b.Available)
	}

	b.Available = b.Available.Sub(amount)
	b.Version++
	b.UpdatedAt = s.db.clock.Now()
	st.balances[key] = b
	return nil
}
