package memory

import (
	"context"
	"sort"
	"time"

	"lending/core"
)

type quoteStore struct {
	handle
}

func (s *quoteStore) Create(ctx context.Context, quote *core.Quote) error {
	defer s.lock()()
	st := s.state()

	now := s.db.clock.Now()
	quote.ID = st.nextID()
	quote.CreatedAt, quote.UpdatedAt = now, now
	st.quotes[quote.ID] = *quote
	return nil
}

func (s *quoteStore) Find(ctx context.Context, traceID string) (*core.Quote, error) {
	defer s.lock()()

	for _, q := range s.state().quotes {
		if q.TraceID == traceID {
			q := q
			return &q, nil
		}
	}

	return &core.Quote{}, nil
}

func (s *quoteStore) ListByUser(ctx context.Context, userID string, limit int) ([]*core.Quote, error) {
	defer s.lock()()

	var quotes []*core.Quote
	for _, q := range s.state().quotes {
		if q.UserID == userID {
			q := q
			quotes = append(quotes, &q)
		}
	}

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].ID > quotes[j].ID })
	if limit <= 0 {
		limit = 100
	}
	if len(quotes) > limit {
		quotes = quotes[:limit]
	}

	return quotes, nil
}

func (s *quoteStore) UpdateStatus(ctx context.Context, quote *core.Quote, from, to core.QuoteStatus) (bool, error) {
	defer s.lock()()
	st := s.state()

	q, ok := st.quotes[quote.ID]
	if !ok || q.Status != from {
		return false, nil
	}

	q.Status = to
	q.Version++
	q.UpdatedAt = s.db.clock.Now()
	st.quotes[q.ID] = q
	quote.Status = to
	return true, nil
}

func (s *quoteStore) ExpireBefore(ctx context.Context, t time.Time) (int64, error) {
	defer s.lock()()
	st := s.state()

	var n int64
	for id, q := range st.quotes {
		if q.Status != core.QuoteStatusActive || q.CreatedAt.After(t) {
			continue
		}

		q.Status = core.QuoteStatusExpired
		q.Version++
		st.quotes[id] = q
		n++
	}

	return n, nil
}
