package memory

import (
	"context"
	"sort"

	"lending/core"
)

type transactionStore struct {
	handle
}

func (s *transactionStore) Create(ctx context.Context, transaction *core.Transaction) error {
	defer s.lock()()
	st := s.state()

	chainTxID := transaction.GetChainTxID()
	for _, t := range st.transactions {
		if t.TraceID == transaction.TraceID {
			return core.ErrDuplicateTransaction
		}

		if chainTxID != "" && t.GetChainTxID() == chainTxID {
			return core.ErrDuplicateTransaction
		}
	}

	now := s.db.clock.Now()
	transaction.ID = st.nextID()
	transaction.CreatedAt, transaction.UpdatedAt = now, now
	st.transactions[transaction.ID] = *transaction
	return nil
}

func (s *transactionStore) find(match func(t *core.Transaction) bool) *core.Transaction {
	defer s.lock()()

	for _, t := range s.state().transactions {
		t := t
		if match(&t) {
			return &t
		}
	}

	return &core.Transaction{}
}

func (s *transactionStore) FindByTraceID(ctx context.Context, traceID string) (*core.Transaction, error) {
	return s.find(func(t *core.Transaction) bool { return t.TraceID == traceID }), nil
}

func (s *transactionStore) FindByChainTxID(ctx context.Context, txID string) (*core.Transaction, error) {
	return s.find(func(t *core.Transaction) bool {
		return txID != "" && t.GetChainTxID() == txID
	}), nil
}

func (s *transactionStore) UpdateStatus(ctx context.Context, transaction *core.Transaction, from, to core.TransactionStatus) (bool, error) {
	defer s.lock()()
	st := s.state()

	var (
		current core.Transaction
		found   bool
	)
	for _, t := range st.transactions {
		if t.TraceID == transaction.TraceID {
			current, found = t, true
			break
		}
	}

	if !found || current.Status != from {
		return false, nil
	}

	if chainTxID := transaction.GetChainTxID(); chainTxID != "" {
		for _, t := range st.transactions {
			if t.ID != current.ID && t.GetChainTxID() == chainTxID {
				return false, core.ErrDuplicateTransaction
			}
		}

		current.SetChainTxID(chainTxID)
	}

	if len(transaction.Data) > 0 {
		current.Data = transaction.Data
	}

	current.Status = to
	current.UpdatedAt = s.db.clock.Now()
	st.transactions[current.ID] = current
	transaction.Status = to
	return true, nil
}

func (s *transactionStore) list(match func(t *core.Transaction) bool, limit int) []*core.Transaction {
	defer s.lock()()

	var transactions []*core.Transaction
	for _, t := range s.state().transactions {
		t := t
		if match(&t) {
			transactions = append(transactions, &t)
		}
	}

	sort.Slice(transactions, func(i, j int) bool { return transactions[i].ID < transactions[j].ID })
	if limit > 0 && len(transactions) > limit {
		transactions = transactions[:limit]
	}

	return transactions
}

func (s *transactionStore) ListByLoan(ctx context.Context, loanID string) ([]*core.Transaction, error) {
	return s.list(func(t *core.Transaction) bool { return t.LoanID == loanID }, 0), nil
}

func (s *transactionStore) ListPending(ctx context.Context, typ core.TransactionType, from uint64, limit int) ([]*core.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	return s.list(func(t *core.Transaction) bool {
		return t.Type == typ && t.Status == core.TransactionStatusPending && t.ID > from
	}, limit), nil
}
