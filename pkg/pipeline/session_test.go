package pipeline

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestSessions_OverwriteNotMerge(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	s := NewSessions(clock)

	s.SetLegend("a", []string{"Rok", "Miesiąc"})
	s.SetEntries("a", []string{"x.csv", "y.csv"})
	clock.Advance(time.Minute)
	s.SetLegend("a", []string{"Stan"})

	got := s.Get("a")
	assert.Equal(t, []string{"Stan"}, got.Legend)
	assert.Equal(t, []string{"x.csv", "y.csv"}, got.Entries)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 1, 0, 0, time.UTC), got.UpdatedAt)
}

func TestSessions_IsolatedAndCopied(t *testing.T) {
	s := NewSessions(nil)
	s.SetLegend("", []string{"Rok"})

	assert.Equal(t, []string{"Rok"}, s.Get(DefaultSession).Legend)
	assert.Empty(t, s.Get("b").Legend)

	got := s.Get("")
	got.Legend[0] = "changed"
	assert.Equal(t, "Rok", s.Get("").Legend[0])

	s.Delete("")
	assert.Empty(t, s.Get("").Legend)
}
