package clock

import (
	"sync"
	"time"
)

// Clock time source
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// System wall clock in UTC
func System() Clock {
	return systemClock{}
}

// Mock settable clock
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMock new mock clock at t
func NewMock(t time.Time) *Mock {
	return &Mock{now: t}
}

// Now current mock time
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set set the mock time
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Add advance the mock time
func (m *Mock) Add(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// AddMonth same day of the next calendar month, clamped to the last day of
// shorter months
func AddMonth(t time.Time) time.Time {
	return AddMonths(t, 1)
}

// AddMonths same day n calendar months later, clamped to the last day of
// shorter months
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}

	return first.AddDate(0, 0, d-1)
}

// NextMonthly first monthly anniversary of anchor strictly after t. Dates are
// always derived from the anchor so clamped months do not drift
func NextMonthly(anchor, t time.Time) time.Time {
	n := (t.Year()-anchor.Year())*12 + int(t.Month()) - int(anchor.Month())
	if n < 1 {
		n = 1
	}

	next := AddMonths(anchor, n)
	for !next.After(t) {
		n++
		next = AddMonths(anchor, n)
	}

	return next
}
