package model

import (
	"time"

	"lv-tradesettle/internal/types"

	"github.com/shopspring/decimal"
)

type Trade struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	Pair            string              `json:"pair"`
	Side            types.Side          `json:"side"`
	Amount          decimal.Decimal     `json:"amount"`
	Leverage        int                 `json:"leverage"`
	DurationSeconds *int32              `json:"duration_seconds,omitempty"`
	EntryPrice      decimal.Decimal     `json:"entry_price"`
	ExitPrice       *decimal.Decimal    `json:"exit_price"`
	PnL             *decimal.Decimal    `json:"pnl"`
	PnLPercentage   *decimal.Decimal    `json:"pnl_percentage"`
	Status          types.TradeStatus   `json:"status"`
	Outcome         *types.TradeOutcome `json:"outcome"`
	StopLoss        *decimal.Decimal    `json:"stop_loss"`
	TakeProfit      *decimal.Decimal    `json:"take_profit"`
	TrailingStop    *decimal.Decimal    `json:"trailing_stop"`
	ClosedAt        *time.Time          `json:"closed_at"`
	CreatedAt       time.Time           `json:"created_at"`
}

// IsOpen reports whether the trade can still be closed or have its risk
// parameters changed.
func (t Trade) IsOpen() bool {
	return t.Status == types.TradeStatusOpen
}

type Balance struct {
	UserID    string          `json:"user_id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type FundTransaction struct {
	ID          string                  `json:"id"`
	UserID      string                  `json:"user_id"`
	Type        types.TransactionType   `json:"type"`
	Amount      decimal.Decimal         `json:"amount"`
	Currency    string                  `json:"currency"`
	Description string                  `json:"description"`
	Status      types.TransactionStatus `json:"status"`
	TradeID     *string                 `json:"trade_id"`
	Sequence    int64                   `json:"sequence"`
	Hash        string                  `json:"hash"`
	CreatedAt   time.Time               `json:"created_at"`
}
