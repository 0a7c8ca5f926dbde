package settlement

import (
	"context"
	"strings"
	"time"

	"lv-tradesettle/internal/apperr"
	"lv-tradesettle/internal/events"
	"lv-tradesettle/internal/model"
	"lv-tradesettle/internal/pnl"
	"lv-tradesettle/internal/pricefeed"
	"lv-tradesettle/internal/trades"
	"lv-tradesettle/internal/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type TradeRepository interface {
	GetOpenTrade(ctx context.Context, tradeID, userID string) (model.Trade, error)
	GetTrade(ctx context.Context, tradeID, userID string) (model.Trade, error)
	CloseTrade(ctx context.Context, tradeID, userID string, f trades.CloseFields) (model.Trade, error)
}

type BalanceLedger interface {
	ApplyPnL(ctx context.Context, userID, currency string, pnl decimal.Decimal, tradeID string) (decimal.Decimal, error)
}

var _ TradeRepository = (*trades.Store)(nil)

type Service struct {
	trades       TradeRepository
	prices       pricefeed.Source
	ledger       BalanceLedger
	events       events.Publisher
	logger       *zap.Logger
	defaultQuote string
	now          func() time.Time
}

func NewService(tradeRepo TradeRepository, prices pricefeed.Source, ledger BalanceLedger, pub events.Publisher, logger *zap.Logger, defaultQuote string) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if defaultQuote == "" {
		defaultQuote = "USDT"
	}
	return &Service{
		trades:       tradeRepo,
		prices:       prices,
		ledger:       ledger,
		events:       pub,
		logger:       logger,
		defaultQuote: strings.ToUpper(defaultQuote),
		now:          time.Now,
	}
}

type CloseRequest struct {
	TradeID string
	UserID  string
	// ExitPrice is set for manual and admin closes; nil means use the market.
	ExitPrice *decimal.Decimal
}

type CloseResult struct {
	Trade         model.Trade       `json:"trade"`
	PnL           decimal.Decimal   `json:"pnl"`
	PnLPercentage decimal.Decimal   `json:"pnlPercentage"`
	ExitPrice     decimal.Decimal   `json:"exitPrice"`
	PriceSource   types.PriceSource `json:"priceSource"`
	Settled       bool              `json:"settled"`
	Balance       *decimal.Decimal  `json:"balance,omitempty"`
}

// Close runs the settlement sequence for one trade: load, price, compute,
// close, settle. Once the trade row is closed nothing after it can fail the
// call; a settlement error is logged for reconciliation and reported through
// CloseResult.Settled.
func (s *Service) Close(ctx context.Context, req CloseRequest) (CloseResult, error) {
	if req.UserID == "" {
		return CloseResult{}, apperr.ErrUnauthorized
	}
	log := s.logger.With(zap.String("trade_id", req.TradeID), zap.String("user_id", req.UserID))

	trade, err := s.trades.GetOpenTrade(ctx, req.TradeID, req.UserID)
	if err != nil {
		// The owner of a trade that is already closed gets a conflict; to
		// everyone else it stays not found.
		if apperr.KindOf(err) == apperr.KindNotFound {
			if t, lookupErr := s.trades.GetTrade(ctx, req.TradeID, req.UserID); lookupErr == nil && !t.IsOpen() {
				return CloseResult{}, apperr.New(apperr.KindConflict, "trade already closed")
			}
		}
		return CloseResult{}, err
	}

	exitPrice, source, err := s.resolveExitPrice(ctx, trade, req.ExitPrice, log)
	if err != nil {
		return CloseResult{}, err
	}

	res, err := pnl.Calculate(pnl.Input{
		EntryPrice:   trade.EntryPrice,
		ExitPrice:    exitPrice,
		PositionSize: trade.Amount,
		Leverage:     trade.Leverage,
		Side:         trade.Side,
	})
	if err != nil {
		log.Error("Stored trade terms failed pnl validation", zap.Error(err),
			zap.String("entry_price", trade.EntryPrice.String()), zap.String("amount", trade.Amount.String()),
			zap.String("side", string(trade.Side)))
		return CloseResult{}, err
	}

	closed, err := s.trades.CloseTrade(ctx, trade.ID, req.UserID, trades.CloseFields{
		ExitPrice:     exitPrice,
		PnL:           res.PnL,
		PnLPercentage: res.PnLPercentage,
		ClosedAt:      s.now().UTC(),
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			log.Info("Close lost the race to another request")
		}
		return CloseResult{}, err
	}

	out := CloseResult{
		Trade:         closed,
		PnL:           res.PnL,
		PnLPercentage: res.PnLPercentage,
		ExitPrice:     exitPrice,
		PriceSource:   source,
	}
	s.events.Publish(events.Event{Type: events.TypeTradeClosed, UserID: req.UserID, Data: out})

	// The trade is closed; settlement must not be cut short by the client
	// going away.
	settleCtx := context.WithoutCancel(ctx)
	currency := QuoteCurrency(trade.Pair, s.defaultQuote)
	balance, err := s.ledger.ApplyPnL(settleCtx, req.UserID, currency, res.PnL, trade.ID)
	if err != nil {
		log.Error("Settlement failed after trade close, needs reconciliation",
			zap.String("event", "settlement_failed"),
			zap.Error(apperr.Wrap(apperr.KindSettlementFailure, err, "apply pnl")),
			zap.String("currency", currency), zap.String("pnl", res.PnL.String()))
		return out, nil
	}
	out.Settled = true
	out.Balance = &balance
	s.events.Publish(events.Event{Type: events.TypeBalanceUpdated, UserID: req.UserID, Data: map[string]any{
		"currency": currency,
		"balance":  balance,
		"delta":    res.PnL,
		"trade_id": trade.ID,
	}})

	log.Info("Trade closed",
		zap.String("exit_price", exitPrice.String()),
		zap.String("pnl", res.PnL.String()),
		zap.String("price_source", string(source)))
	return out, nil
}

func (s *Service) resolveExitPrice(ctx context.Context, trade model.Trade, manual *decimal.Decimal, log *zap.Logger) (decimal.Decimal, types.PriceSource, error) {
	if manual != nil {
		if !manual.IsPositive() {
			return decimal.Zero, "", apperr.New(apperr.KindBadRequest, "exitPrice must be positive")
		}
		return *manual, types.PriceSourceManual, nil
	}
	price, err := s.prices.GetCurrentPrice(ctx, trade.Pair)
	if err != nil {
		// Closing at entry keeps the close available while the feed is
		// down; the zero-pnl result is flagged for reconciliation.
		log.Warn("Price lookup failed, closing at entry price",
			zap.String("event", "price_fallback"),
			zap.String("pair", trade.Pair),
			zap.String("entry_price", trade.EntryPrice.String()),
			zap.Bool("reconcile", true),
			zap.Error(err))
		return trade.EntryPrice, types.PriceSourceFallback, nil
	}
	return price, types.PriceSourceMarket, nil
}

var knownQuotes = []string{"USDT", "USDC", "BUSD", "FDUSD", "USD", "EUR", "BTC", "ETH"}

// QuoteCurrency extracts the quote asset of a pair: "BTC/USDT", "BTC-USDT",
// "btc_usdt" and "BTCUSDT" all give USDT. Unrecognised pairs fall back to def.
func QuoteCurrency(pair, def string) string {
	p := strings.ToUpper(strings.TrimSpace(pair))
	if i := strings.LastIndexAny(p, "/-_"); i >= 0 && i < len(p)-1 {
		return p[i+1:]
	}
	for _, q := range knownQuotes {
		if len(p) > len(q) && strings.HasSuffix(p, q) {
			return q
		}
	}
	return strings.ToUpper(def)
}
