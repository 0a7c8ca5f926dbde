package trades

import (
	"net/http"
	"strconv"
	"strings"

	"lv-tradesettle/internal/apperr"
	"lv-tradesettle/internal/httputil"
	"lv-tradesettle/internal/types"

	"github.com/shopspring/decimal"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	status := types.TradeStatus(strings.ToLower(strings.TrimSpace(q.Get("status"))))
	if status != "" && status != types.TradeStatusOpen && status != types.TradeStatusClosed {
		httputil.WriteError(w, apperr.New(apperr.KindBadRequest, "status must be open or closed"))
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, apperr.New(apperr.KindBadRequest, "invalid limit"))
			return
		}
		limit = n
	}
	items, err := h.store.ListByUser(r.Context(), userID, status, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteOK(w, http.StatusOK, items)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, userID, tradeID string) {
	t, err := h.store.GetTrade(r.Context(), tradeID, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteOK(w, http.StatusOK, t)
}

type riskRequest struct {
	StopLoss     *decimal.Decimal `json:"stopLoss"`
	TakeProfit   *decimal.Decimal `json:"takeProfit"`
	TrailingStop *decimal.Decimal `json:"trailingStop"`
}

func (h *Handler) UpdateRisk(w http.ResponseWriter, r *http.Request, userID, tradeID string) {
	var req riskRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	for name, v := range map[string]*decimal.Decimal{
		"stopLoss":     req.StopLoss,
		"takeProfit":   req.TakeProfit,
		"trailingStop": req.TrailingStop,
	} {
		if v != nil && !v.IsPositive() {
			httputil.WriteError(w, apperr.New(apperr.KindBadRequest, name+" must be positive"))
			return
		}
	}
	t, err := h.store.UpdateRiskParams(r.Context(), tradeID, userID, RiskParams{
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		TrailingStop: req.TrailingStop,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteOK(w, http.StatusOK, t)
}
