package trades

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerList(t *testing.T) {
	store, mock := newMockStore(t)
	h := NewHandler(store)
	mock.ExpectQuery("from trades where user_id").
		WithArgs(ownerID, 20).
		WillReturnRows(openRow(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/v1/trades?limit=20", nil), ownerID)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"`+tradeID+`"`)
	assert.Contains(t, rec.Body.String(), `"entry_price":100`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerListRejectsBadQuery(t *testing.T) {
	store, mock := newMockStore(t)
	h := NewHandler(store)

	for _, target := range []string{"/v1/trades?status=pending", "/v1/trades?limit=abc", "/v1/trades?limit=-1"} {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, target, nil), ownerID)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	h := NewHandler(store)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/v1/trades/abc", nil), ownerID, "abc")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerUpdateRisk(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		store, mock := newMockStore(t)
		h := NewHandler(store)
		mock.ExpectQuery("set stop_loss").
			WithArgs(tradeID, ownerID, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "open").
			WillReturnRows(openRow(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"stopLoss": 95, "takeProfit": "120.5"}`))
		h.UpdateRisk(rec, req, ownerID, tradeID)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NonPositive", func(t *testing.T) {
		store, mock := newMockStore(t)
		h := NewHandler(store)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"trailingStop": 0}`))
		h.UpdateRisk(rec, req, ownerID, tradeID)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "trailingStop must be positive")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
