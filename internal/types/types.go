package types

import "strings"

type Side string

type TradeStatus string

type TradeOutcome string

type TransactionType string

type TransactionStatus string

type PriceSource string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

const (
	TradeOutcomeWin  TradeOutcome = "win"
	TradeOutcomeLoss TradeOutcome = "loss"
)

const (
	TransactionTypeProfit TransactionType = "profit"
	TransactionTypeLoss   TransactionType = "loss"
)

const (
	TransactionStatusCompleted TransactionStatus = "completed"
)

const (
	PriceSourceManual   PriceSource = "manual"
	PriceSourceMarket   PriceSource = "market"
	PriceSourceFallback PriceSource = "fallback"
)

// ParseSide accepts the canonical sides plus the directional labels the
// trading UI writes ("buy up" / "buy fall", long / short).
func ParseSide(raw string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "long", "buy up", "buy_up", "up":
		return SideBuy, true
	case "sell", "short", "buy fall", "buy_fall", "fall", "down":
		return SideSell, true
	default:
		return "", false
	}
}

func ParseOutcome(raw string) (TradeOutcome, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "win":
		return TradeOutcomeWin, true
	case "loss", "lose":
		return TradeOutcomeLoss, true
	default:
		return "", false
	}
}
