package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddMonth(t *testing.T) {
	cases := []struct {
		from, want time.Time
	}{
		{time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), time.Date(2024, 2, 15, 8, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, AddMonth(c.from), c.from.String())
	}
}

func TestNextMonthly(t *testing.T) {
	anchor := time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)

	due := anchor
	var got []time.Time
	for i := 0; i < 4; i++ {
		due = NextMonthly(anchor, due)
		got = append(got, due)
	}

	assert.Equal(t, []time.Time{
		time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 31, 10, 0, 0, 0, time.UTC),
	}, got)

	// chaining the clamped date would have drifted to the 29th
	assert.Equal(t, time.Date(2024, 3, 29, 10, 0, 0, 0, time.UTC), AddMonth(AddMonth(anchor)))

	// a late due date still lands on the next anniversary
	assert.Equal(t, time.Date(2024, 7, 31, 10, 0, 0, 0, time.UTC), NextMonthly(anchor, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMock(start)
	assert.Equal(t, start, m.Now())
	assert.Equal(t, start.Add(time.Hour), m.Add(time.Hour))
}
