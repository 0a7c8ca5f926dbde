package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSide(t *testing.T) {
	cases := []struct {
		raw  string
		want Side
		ok   bool
	}{
		{"buy", SideBuy, true},
		{"Buy Up", SideBuy, true},
		{"long", SideBuy, true},
		{" sell ", SideSell, true},
		{"buy fall", SideSell, true},
		{"short", SideSell, true},
		{"hold", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParseSide(c.raw)
		assert.Equal(t, c.ok, ok, c.raw)
		assert.Equal(t, c.want, got, c.raw)
	}
}

func TestParseOutcome(t *testing.T) {
	o, ok := ParseOutcome("LOSE")
	assert.True(t, ok)
	assert.Equal(t, TradeOutcomeLoss, o)

	_, ok = ParseOutcome("draw")
	assert.False(t, ok)
}
