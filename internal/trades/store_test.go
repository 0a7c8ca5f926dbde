package trades

import (
	"context"
	"errors"
	"testing"
	"time"

	"lv-tradesettle/internal/apperr"
	"lv-tradesettle/internal/types"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tradeID = "6f1c2b1e-8a43-4f0e-9d53-2f4f6c0f8a11"
	ownerID = "user-1"
)

var tradeColumnNames = []string{
	"id", "user_id", "pair", "side", "amount", "leverage", "duration_seconds", "entry_price",
	"exit_price", "pnl", "pnl_percentage", "status", "outcome", "stop_loss", "take_profit", "trailing_stop",
	"closed_at", "created_at",
}

type decimalArg struct{ want decimal.Decimal }

func (a decimalArg) Match(v any) bool {
	d, ok := v.(decimal.Decimal)
	return ok && d.Equal(a.want)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func openRow(createdAt time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(tradeColumnNames).AddRow(
		tradeID, ownerID, "BTC/USDT", "buy", dec("2"), 5, nil, dec("100"),
		nil, nil, nil, "open", nil, nil, nil, nil,
		nil, createdAt,
	)
}

func rowWithSide(side string, createdAt time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(tradeColumnNames).AddRow(
		tradeID, ownerID, "BTC/USDT", side, dec("2"), 5, nil, dec("100"),
		nil, nil, nil, "open", nil, nil, nil, nil,
		nil, createdAt,
	)
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func TestGetOpenTrade(t *testing.T) {
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("from trades where id").
			WithArgs(tradeID, ownerID, "open").
			WillReturnRows(openRow(createdAt))

		tr, err := store.GetOpenTrade(context.Background(), tradeID, ownerID)
		require.NoError(t, err)
		assert.Equal(t, tradeID, tr.ID)
		assert.Equal(t, types.SideBuy, tr.Side)
		assert.Equal(t, 5, tr.Leverage)
		assert.True(t, tr.EntryPrice.Equal(dec("100")))
		assert.Nil(t, tr.ExitPrice)
		assert.Nil(t, tr.Outcome)
		assert.True(t, tr.IsOpen())
		assert.Equal(t, createdAt, tr.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotOpenOrNotOwned", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("from trades where id").
			WithArgs(tradeID, "someone-else", "open").
			WillReturnRows(pgxmock.NewRows(tradeColumnNames))

		_, err := store.GetOpenTrade(context.Background(), tradeID, "someone-else")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MalformedIDSkipsQuery", func(t *testing.T) {
		store, mock := newMockStore(t)

		_, err := store.GetOpenTrade(context.Background(), "not-a-uuid", ownerID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("from trades where id").
			WithArgs(tradeID, ownerID, "open").
			WillReturnError(errors.New("connection reset"))

		_, err := store.GetOpenTrade(context.Background(), tradeID, ownerID)
		require.Error(t, err)
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})

	t.Run("DirectionalSideLabels", func(t *testing.T) {
		for label, want := range map[string]types.Side{
			"buy up":   types.SideBuy,
			"long":     types.SideBuy,
			"buy fall": types.SideSell,
			"SHORT":    types.SideSell,
		} {
			store, mock := newMockStore(t)
			mock.ExpectQuery("from trades where id").
				WithArgs(tradeID, ownerID, "open").
				WillReturnRows(rowWithSide(label, createdAt))

			tr, err := store.GetOpenTrade(context.Background(), tradeID, ownerID)
			require.NoError(t, err, label)
			assert.Equal(t, want, tr.Side, label)
			assert.NoError(t, mock.ExpectationsWereMet())
		}
	})

	t.Run("UnknownSide", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("from trades where id").
			WithArgs(tradeID, ownerID, "open").
			WillReturnRows(rowWithSide("sideways", createdAt))

		_, err := store.GetOpenTrade(context.Background(), tradeID, ownerID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sideways")
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})
}

func TestCloseTrade(t *testing.T) {
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	closedAt := time.Date(2026, 1, 2, 4, 0, 0, 0, time.UTC)
	fields := CloseFields{ExitPrice: dec("110"), PnL: dec("100"), PnLPercentage: dec("250"), ClosedAt: closedAt}

	t.Run("Closes", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("update trades").
			WithArgs(tradeID, ownerID, "closed", decimalArg{dec("110")}, decimalArg{dec("100")}, decimalArg{dec("250")}, closedAt, "open").
			WillReturnRows(pgxmock.NewRows(tradeColumnNames).AddRow(
				tradeID, ownerID, "BTC/USDT", "buy", dec("2"), 5, nil, dec("100"),
				decPtr("110"), decPtr("100"), decPtr("250"), "closed", nil, nil, nil, nil,
				&closedAt, createdAt,
			))

		tr, err := store.CloseTrade(context.Background(), tradeID, ownerID, fields)
		require.NoError(t, err)
		assert.Equal(t, types.TradeStatusClosed, tr.Status)
		require.NotNil(t, tr.ExitPrice)
		assert.True(t, tr.ExitPrice.Equal(dec("110")))
		require.NotNil(t, tr.ClosedAt)
		assert.Equal(t, closedAt, *tr.ClosedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyClosed", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("update trades").
			WithArgs(tradeID, ownerID, "closed", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "open").
			WillReturnRows(pgxmock.NewRows(tradeColumnNames))

		_, err := store.CloseTrade(context.Background(), tradeID, ownerID, fields)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSetOutcome(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("update trades set outcome").
		WithArgs(tradeID, "win").
		WillReturnRows(pgxmock.NewRows(tradeColumnNames).AddRow(
			tradeID, ownerID, "BTC/USDT", "buy", dec("2"), 5, nil, dec("100"),
			nil, nil, nil, "open", "win", nil, nil, nil,
			nil, time.Now().UTC(),
		))

	tr, err := store.SetOutcome(context.Background(), tradeID, types.TradeOutcomeWin)
	require.NoError(t, err)
	require.NotNil(t, tr.Outcome)
	assert.Equal(t, types.TradeOutcomeWin, *tr.Outcome)
	assert.Equal(t, types.TradeStatusOpen, tr.Status, "outcome ruling does not close the trade")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser(t *testing.T) {
	store, mock := newMockStore(t)
	createdAt := time.Now().UTC()
	mock.ExpectQuery("from trades where user_id").
		WithArgs(ownerID, "open", maxListLimit).
		WillReturnRows(openRow(createdAt))

	out, err := store.ListByUser(context.Background(), ownerID, types.TradeStatusOpen, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, tradeID, out[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRiskParamsOnClosedTrade(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("set stop_loss").
		WithArgs(tradeID, ownerID, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "open").
		WillReturnRows(pgxmock.NewRows(tradeColumnNames))

	_, err := store.UpdateRiskParams(context.Background(), tradeID, ownerID, RiskParams{StopLoss: decPtr("95")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
