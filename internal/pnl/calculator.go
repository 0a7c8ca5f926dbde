// Package pnl computes profit and loss for a leveraged position. It does no
// I/O and holds no state.
package pnl

import (
	"lv-tradesettle/internal/apperr"
	"lv-tradesettle/internal/types"

	"github.com/shopspring/decimal"
)

// percentPrecision is the number of decimal places kept when dividing by margin.
const percentPrecision = 8

var hundred = decimal.NewFromInt(100)

type Input struct {
	EntryPrice   decimal.Decimal
	ExitPrice    decimal.Decimal
	PositionSize decimal.Decimal
	Leverage     int
	Side         types.Side
}

type Result struct {
	PnL           decimal.Decimal
	PnLPercentage decimal.Decimal
	Margin        decimal.Decimal
}

// Calculate returns the signed P&L in quote currency and the return on margin
// in percent. Leverage below 1 is treated as 1.
//
//	buy:  (exit - entry) * size * leverage
//	sell: (entry - exit) * size * leverage
//	margin = entry * size / leverage
func Calculate(in Input) (Result, error) {
	if !in.EntryPrice.IsPositive() {
		return Result{}, apperr.New(apperr.KindInvalidInput, "entry price must be positive")
	}
	if !in.ExitPrice.IsPositive() {
		return Result{}, apperr.New(apperr.KindInvalidInput, "exit price must be positive")
	}
	if !in.PositionSize.IsPositive() {
		return Result{}, apperr.New(apperr.KindInvalidInput, "position size must be positive")
	}
	leverage := decimal.NewFromInt(int64(ClampLeverage(in.Leverage)))

	var move decimal.Decimal
	switch in.Side {
	case types.SideBuy:
		move = in.ExitPrice.Sub(in.EntryPrice)
	case types.SideSell:
		move = in.EntryPrice.Sub(in.ExitPrice)
	default:
		return Result{}, apperr.New(apperr.KindInvalidInput, "unknown trade side "+string(in.Side))
	}

	pnl := move.Mul(in.PositionSize).Mul(leverage)
	margin := in.EntryPrice.Mul(in.PositionSize).DivRound(leverage, percentPrecision)
	pct := pnl.Mul(hundred).Mul(leverage).DivRound(in.EntryPrice.Mul(in.PositionSize), percentPrecision)
	return Result{PnL: pnl, PnLPercentage: pct, Margin: margin}, nil
}

func ClampLeverage(leverage int) int {
	if leverage < 1 {
		return 1
	}
	return leverage
}
