package trades

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lv-tradesettle/internal/apperr"
	"lv-tradesettle/internal/db"
	"lv-tradesettle/internal/model"
	"lv-tradesettle/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const tradeColumns = `id, user_id, pair, side, amount, leverage, duration_seconds, entry_price,
	exit_price, pnl, pnl_percentage, status, outcome, stop_loss, take_profit, trailing_stop,
	closed_at, created_at`

const maxListLimit = 200

var (
	errTradeNotFound = apperr.New(apperr.KindNotFound, "trade not found")
	errAlreadyClosed = apperr.New(apperr.KindConflict, "trade already closed")
)

// CloseFields are written together, once, when a trade moves to closed.
type CloseFields struct {
	ExitPrice     decimal.Decimal
	PnL           decimal.Decimal
	PnLPercentage decimal.Decimal
	ClosedAt      time.Time
}

type RiskParams struct {
	StopLoss     *decimal.Decimal
	TakeProfit   *decimal.Decimal
	TrailingStop *decimal.Decimal
}

type Store struct {
	pool db.Pool
}

func NewStore(pool db.Pool) *Store {
	return &Store{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (model.Trade, error) {
	var t model.Trade
	var side, status string
	var outcome *string
	err := row.Scan(&t.ID, &t.UserID, &t.Pair, &side, &t.Amount, &t.Leverage, &t.DurationSeconds, &t.EntryPrice,
		&t.ExitPrice, &t.PnL, &t.PnLPercentage, &status, &outcome, &t.StopLoss, &t.TakeProfit, &t.TrailingStop,
		&t.ClosedAt, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	parsed, ok := types.ParseSide(side)
	if !ok {
		return t, fmt.Errorf("trade %s: unknown side %q", t.ID, side)
	}
	t.Side = parsed
	t.Status = types.TradeStatus(status)
	if outcome != nil {
		o := types.TradeOutcome(*outcome)
		t.Outcome = &o
	}
	return t, nil
}

// validID keeps malformed ids away from the uuid column; they are reported
// exactly like a trade that does not exist.
func validID(tradeID string) bool {
	_, err := uuid.Parse(tradeID)
	return err == nil
}

// GetOpenTrade returns the trade only when it belongs to userID and is open.
// Every other case is the same not-found error.
func (s *Store) GetOpenTrade(ctx context.Context, tradeID, userID string) (model.Trade, error) {
	if !validID(tradeID) || userID == "" {
		return model.Trade{}, errTradeNotFound
	}
	t, err := scanTrade(s.pool.QueryRow(ctx,
		"select "+tradeColumns+" from trades where id = $1 and user_id = $2 and status = $3",
		tradeID, userID, string(types.TradeStatusOpen)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Trade{}, errTradeNotFound
		}
		return model.Trade{}, fmt.Errorf("load open trade: %w", err)
	}
	return t, nil
}

// CloseTrade is a single status-guarded update. Of two concurrent closers
// exactly one sees the row; the other gets a conflict.
func (s *Store) CloseTrade(ctx context.Context, tradeID, userID string, f CloseFields) (model.Trade, error) {
	if !validID(tradeID) {
		return model.Trade{}, errTradeNotFound
	}
	t, err := scanTrade(s.pool.QueryRow(ctx, `
		update trades
		set status = $3, exit_price = $4, pnl = $5, pnl_percentage = $6, closed_at = $7
		where id = $1 and user_id = $2 and status = $8
		returning `+tradeColumns,
		tradeID, userID, string(types.TradeStatusClosed), f.ExitPrice, f.PnL, f.PnLPercentage, f.ClosedAt.UTC(),
		string(types.TradeStatusOpen)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Trade{}, errAlreadyClosed
		}
		return model.Trade{}, fmt.Errorf("close trade: %w", err)
	}
	return t, nil
}

func (s *Store) GetTrade(ctx context.Context, tradeID, userID string) (model.Trade, error) {
	if !validID(tradeID) || userID == "" {
		return model.Trade{}, errTradeNotFound
	}
	t, err := scanTrade(s.pool.QueryRow(ctx,
		"select "+tradeColumns+" from trades where id = $1 and user_id = $2", tradeID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Trade{}, errTradeNotFound
		}
		return model.Trade{}, fmt.Errorf("load trade: %w", err)
	}
	return t, nil
}

// GetTradeByID ignores ownership. Admin routes only.
func (s *Store) GetTradeByID(ctx context.Context, tradeID string) (model.Trade, error) {
	if !validID(tradeID) {
		return model.Trade{}, errTradeNotFound
	}
	t, err := scanTrade(s.pool.QueryRow(ctx, "select "+tradeColumns+" from trades where id = $1", tradeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Trade{}, errTradeNotFound
		}
		return model.Trade{}, fmt.Errorf("load trade: %w", err)
	}
	return t, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string, status types.TradeStatus, limit int) ([]model.Trade, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	var rows pgx.Rows
	var err error
	if status == "" {
		rows, err = s.pool.Query(ctx,
			"select "+tradeColumns+" from trades where user_id = $1 order by created_at desc limit $2", userID, limit)
	} else {
		rows, err = s.pool.Query(ctx,
			"select "+tradeColumns+" from trades where user_id = $1 and status = $2 order by created_at desc limit $3",
			userID, string(status), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()
	out := make([]model.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateRiskParams replaces stop-loss, take-profit and trailing-stop on an
// open trade. A nil field clears the stored value.
func (s *Store) UpdateRiskParams(ctx context.Context, tradeID, userID string, p RiskParams) (model.Trade, error) {
	if !validID(tradeID) || userID == "" {
		return model.Trade{}, errTradeNotFound
	}
	t, err := scanTrade(s.pool.QueryRow(ctx, `
		update trades
		set stop_loss = $3, take_profit = $4, trailing_stop = $5
		where id = $1 and user_id = $2 and status = $6
		returning `+tradeColumns,
		tradeID, userID, p.StopLoss, p.TakeProfit, p.TrailingStop, string(types.TradeStatusOpen)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Trade{}, errTradeNotFound
		}
		return model.Trade{}, fmt.Errorf("update risk params: %w", err)
	}
	return t, nil
}

// SetOutcome records an admin's win/loss ruling. It is independent of the
// computed pnl and never touches the close fields.
func (s *Store) SetOutcome(ctx context.Context, tradeID string, outcome types.TradeOutcome) (model.Trade, error) {
	if !validID(tradeID) {
		return model.Trade{}, errTradeNotFound
	}
	t, err := scanTrade(s.pool.QueryRow(ctx,
		"update trades set outcome = $2 where id = $1 returning "+tradeColumns, tradeID, string(outcome)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Trade{}, errTradeNotFound
		}
		return model.Trade{}, fmt.Errorf("set outcome: %w", err)
	}
	return t, nil
}
