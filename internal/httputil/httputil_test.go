package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lv-tradesettle/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorUsesKindStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperr.New(apperr.KindConflict, "trade already closed"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.OK)
	assert.Equal(t, "trade already closed", env.Message)
	assert.Equal(t, "conflict", env.Code)
}

func TestWriteErrorHidesUnclassified(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("dial tcp 10.0.0.1:5432: refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestWriteOK(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteOK(rec, http.StatusOK, map[string]string{"id": "t-1"})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true,"data":{"id":"t-1"}}`, rec.Body.String())
}

func TestWriteOKRendersDecimalsAsNumbers(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteOK(rec, http.StatusOK, map[string]decimal.Decimal{
		"pnl":       decimal.RequireFromString("-20.5"),
		"exitPrice": decimal.RequireFromString("110"),
	})
	assert.JSONEq(t, `{"ok":true,"data":{"pnl":-20.5,"exitPrice":110}}`, rec.Body.String())

	var back struct {
		Data struct {
			PnL decimal.Decimal `json:"pnl"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &back))
	assert.True(t, back.Data.PnL.Equal(decimal.RequireFromString("-20.5")))
}

func TestReadJSON(t *testing.T) {
	type body struct {
		ExitPrice *float64 `json:"exitPrice"`
	}

	t.Run("EmptyBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var b body
		require.NoError(t, ReadJSON(req, &b))
		assert.Nil(t, b.ExitPrice)
	})

	t.Run("Valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"exitPrice": 110.5}`))
		var b body
		require.NoError(t, ReadJSON(req, &b))
		require.NotNil(t, b.ExitPrice)
		assert.Equal(t, 110.5, *b.ExitPrice)
	})

	t.Run("UnknownField", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"exit": 1}`))
		var b body
		err := ReadJSON(req, &b)
		assert.ErrorIs(t, err, apperr.ErrBadRequest)
	})
}
