package memory

import (
	"context"
	"sort"
	"time"

	"lending/core"

	"github.com/shopspring/decimal"
)

type loanStore struct {
	handle
}

func (s *loanStore) Create(ctx context.Context, loan *core.Loan) error {
	defer s.lock()()
	st := s.state()

	for _, l := range st.loans {
		if l.TraceID == loan.TraceID || l.QuoteID == loan.QuoteID {
			return core.ErrQuoteUsed
		}
	}

	now := s.db.clock.Now()
	loan.ID = st.nextID()
	loan.CreatedAt, loan.UpdatedAt = now, now
	st.loans[loan.ID] = *loan
	return nil
}

func (s *loanStore) find(match func(l *core.Loan) bool) *core.Loan {
	defer s.lock()()
	for _, l := range s.state().loans {
		l := l
		if match(&l) {
			return &l
		}
	}

	return &core.Loan{}
}

func (s *loanStore) Find(ctx context.Context, traceID string) (*core.Loan, error) {
	return s.find(func(l *core.Loan) bool { return l.TraceID == traceID }), nil
}

func (s *loanStore) FindByQuote(ctx context.Context, quoteID string) (*core.Loan, error) {
	return s.find(func(l *core.Loan) bool { return l.QuoteID == quoteID }), nil
}

func (s *loanStore) list(match func(l *core.Loan) bool, desc bool, limit int) []*core.Loan {
	defer s.lock()()

	var loans []*core.Loan
	for _, l := range s.state().loans {
		l := l
		if match(&l) {
			loans = append(loans, &l)
		}
	}

	sort.Slice(loans, func(i, j int) bool {
		if desc {
			return loans[i].ID > loans[j].ID
		}
		return loans[i].ID < loans[j].ID
	})

	if limit > 0 && len(loans) > limit {
		loans = loans[:limit]
	}

	return loans
}

func (s *loanStore) ListByUser(ctx context.Context, userID string, limit int) ([]*core.Loan, error) {
	if limit <= 0 {
		limit = 100
	}

	return s.list(func(l *core.Loan) bool { return l.UserID == userID }, true, limit), nil
}

func (s *loanStore) ListByStatus(ctx context.Context, status core.LoanStatus, from uint64, limit int) ([]*core.Loan, error) {
	if limit <= 0 {
		limit = 500
	}

	return s.list(func(l *core.Loan) bool {
		return l.Status == status && l.ID > from
	}, false, limit), nil
}

func (s *loanStore) ListInterestDue(ctx context.Context, t time.Time, from uint64, limit int) ([]*core.Loan, error) {
	if limit <= 0 {
		limit = 500
	}

	return s.list(func(l *core.Loan) bool {
		return l.Status == core.LoanStatusActive &&
			l.NextInterestAt != nil &&
			!l.NextInterestAt.After(t) &&
			l.ID > from
	}, false, limit), nil
}

func (s *loanStore) ListUnreleased(ctx context.Context, from uint64, limit int) ([]*core.Loan, error) {
	if limit <= 0 {
		limit = 500
	}

	return s.list(func(l *core.Loan) bool {
		return releasable(l) && l.CollateralReceived.IsPositive() && l.ID > from
	}, false, limit), nil
}

// update applies fn when cond holds on the stored loan, bumps the version
func (s *loanStore) update(loan *core.Loan, cond func(l *core.Loan) bool, fn func(l *core.Loan)) (bool, error) {
	defer s.lock()()
	st := s.state()

	l, ok := st.loans[loan.ID]
	if !ok || !cond(&l) {
		return false, nil
	}

	fn(&l)
	l.Version++
	l.UpdatedAt = s.db.clock.Now()
	st.loans[l.ID] = l
	return true, nil
}

func (s *loanStore) AddCollateral(ctx context.Context, loan *core.Loan, amount decimal.Decimal) (bool, error) {
	return s.update(loan, func(l *core.Loan) bool {
		return l.AcceptsCollateral()
	}, func(l *core.Loan) {
		l.CollateralReceived = l.CollateralReceived.Add(amount)
	})
}

func (s *loanStore) Activate(ctx context.Context, loan *core.Loan, at, nextInterestAt time.Time) (bool, error) {
	return s.update(loan, func(l *core.Loan) bool {
		return l.Status == core.LoanStatusPendingCollateral && l.CollateralSufficient()
	}, func(l *core.Loan) {
		l.Status = core.LoanStatusActive
		l.DisbursedAt = &at
		l.NextInterestAt = &nextInterestAt
		l.ExpiresAt = nil
	})
}

func (s *loanStore) Cancel(ctx context.Context, loan *core.Loan, at time.Time) (bool, error) {
	return s.update(loan, func(l *core.Loan) bool {
		return l.Status == core.LoanStatusPendingCollateral
	}, func(l *core.Loan) {
		l.Status = core.LoanStatusCancelled
		l.CancelledAt = &at
	})
}

func (s *loanStore) CancelExpired(ctx context.Context, now time.Time) (int64, error) {
	defer s.lock()()
	st := s.state()

	var n int64
	for id, l := range st.loans {
		if l.Status != core.LoanStatusPendingCollateral || l.ExpiresAt == nil || l.ExpiresAt.After(now) {
			continue
		}

		at := now
		l.Status = core.LoanStatusCancelled
		l.CancelledAt = &at
		l.Version++
		l.UpdatedAt = s.db.clock.Now()
		st.loans[id] = l
		n++
	}

	return n, nil
}

func (s *loanStore) Liquidate(ctx context.Context, loan *core.Loan, at time.Time) (bool, error) {
	return s.update(loan, func(l *core.Loan) bool {
		return l.Status == core.LoanStatusActive
	}, func(l *core.Loan) {
		l.Status = core.LoanStatusLiquidated
		l.LiquidatedAt = &at
	})
}

func (s *loanStore) Accrue(ctx context.Context, loan *core.Loan, interest decimal.Decimal, next time.Time) (bool, error) {
	return s.update(loan, func(l *core.Loan) bool {
		return l.Status == core.LoanStatusActive &&
			l.Principal.Equal(loan.Principal) &&
			sameTime(l.NextInterestAt, loan.NextInterestAt)
	}, func(l *core.Loan) {
		l.Principal = l.Principal.Add(interest)
		l.NextInterestAt = &next
	})
}

func (s *loanStore) Repay(ctx context.Context, loan *core.Loan, amount decimal.Decimal) (bool, error) {
	return s.update(loan, func(l *core.Loan) bool {
		return l.Status == core.LoanStatusActive && l.Principal.GreaterThanOrEqual(amount)
	}, func(l *core.Loan) {
		l.Principal = l.Principal.Sub(amount)
	})
}

func (s *loanStore) MarkRepaid(ctx context.Context, loan *core.Loan, at time.Time) (bool, error) {
	return s.update(loan, func(l *core.Loan) bool {
		return l.Status == core.LoanStatusActive && !l.Principal.IsPositive()
	}, func(l *core.Loan) {
		l.Status = core.LoanStatusRepaid
		l.RepaidAt = &at
	})
}

func (s *loanStore) MarkCollateralReleased(ctx context.Context, loan *core.Loan, at time.Time) (bool, error) {
	return s.update(loan, releasable, func(l *core.Loan) {
		l.CollateralReleasedAt = &at
	})
}

func releasable(l *core.Loan) bool {
	return (l.Status == core.LoanStatusCancelled || l.Status == core.LoanStatusRepaid) && l.CollateralReleasedAt == nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Equal(*b)
}
