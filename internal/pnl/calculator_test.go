package pnl

import (
	"testing"

	"lv-tradesettle/internal/apperr"
	"lv-tradesettle/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateScenarios(t *testing.T) {
	tests := []struct {
		name   string
		in     Input
		pnl    string
		pct    string
		margin string
	}{
		{
			name:   "long in profit",
			in:     Input{EntryPrice: d("100"), ExitPrice: d("110"), PositionSize: d("2"), Leverage: 5, Side: types.SideBuy},
			pnl:    "100",
			pct:    "250",
			margin: "40",
		},
		{
			name:   "short in profit",
			in:     Input{EntryPrice: d("100"), ExitPrice: d("90"), PositionSize: d("1"), Leverage: 10, Side: types.SideSell},
			pnl:    "100",
			pct:    "1000",
			margin: "10",
		},
		{
			name:   "long in loss",
			in:     Input{EntryPrice: d("200"), ExitPrice: d("190"), PositionSize: d("0.5"), Leverage: 2, Side: types.SideBuy},
			pnl:    "-10",
			pct:    "-20",
			margin: "50",
		},
		{
			name:   "flat close",
			in:     Input{EntryPrice: d("42000.5"), ExitPrice: d("42000.5"), PositionSize: d("0.01"), Leverage: 20, Side: types.SideSell},
			pnl:    "0",
			pct:    "0",
			margin: "21.00025",
		},
		{
			name:   "leverage clamped to one",
			in:     Input{EntryPrice: d("10"), ExitPrice: d("12"), PositionSize: d("3"), Leverage: 0, Side: types.SideBuy},
			pnl:    "6",
			pct:    "20",
			margin: "30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Calculate(tt.in)
			require.NoError(t, err)
			assert.True(t, res.PnL.Equal(d(tt.pnl)), "pnl %s", res.PnL)
			assert.True(t, res.PnLPercentage.Equal(d(tt.pct)), "pct %s", res.PnLPercentage)
			assert.True(t, res.Margin.Equal(d(tt.margin)), "margin %s", res.Margin)
		})
	}
}

func TestCalculateRejectsInvalidInput(t *testing.T) {
	valid := Input{EntryPrice: d("100"), ExitPrice: d("110"), PositionSize: d("1"), Leverage: 1, Side: types.SideBuy}

	cases := map[string]func(in *Input){
		"zero entry":     func(in *Input) { in.EntryPrice = decimal.Zero },
		"negative entry": func(in *Input) { in.EntryPrice = d("-1") },
		"zero exit":      func(in *Input) { in.ExitPrice = decimal.Zero },
		"zero size":      func(in *Input) { in.PositionSize = decimal.Zero },
		"negative size":  func(in *Input) { in.PositionSize = d("-2") },
		"unknown side":   func(in *Input) { in.Side = types.Side("sideways") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := Calculate(in)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	in := Input{EntryPrice: d("3.14159"), ExitPrice: d("2.71828"), PositionSize: d("7.5"), Leverage: 3, Side: types.SideSell}
	first, err := Calculate(in)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := Calculate(in)
		require.NoError(t, err)
		assert.True(t, first.PnL.Equal(again.PnL))
		assert.True(t, first.PnLPercentage.Equal(again.PnLPercentage))
	}
}

func TestCalculateSign(t *testing.T) {
	entry := d("100")
	for _, exit := range []string{"50", "99.99", "100", "100.01", "250"} {
		for _, lev := range []int{1, 3, 100} {
			x := d(exit)
			long, err := Calculate(Input{EntryPrice: entry, ExitPrice: x, PositionSize: d("1.5"), Leverage: lev, Side: types.SideBuy})
			require.NoError(t, err)
			short, err := Calculate(Input{EntryPrice: entry, ExitPrice: x, PositionSize: d("1.5"), Leverage: lev, Side: types.SideSell})
			require.NoError(t, err)

			assert.Equal(t, x.GreaterThan(entry), long.PnL.IsPositive(), "long exit=%s lev=%d", exit, lev)
			assert.Equal(t, x.LessThan(entry), short.PnL.IsPositive(), "short exit=%s lev=%d", exit, lev)
			assert.True(t, long.PnL.Neg().Equal(short.PnL))
		}
	}
}
