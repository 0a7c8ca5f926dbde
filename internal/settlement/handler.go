package settlement

import (
	"net/http"

	"lv-tradesettle/internal/httputil"

	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type closeTradeRequest struct {
	ExitPrice *decimal.Decimal `json:"exitPrice"`
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request, userID, tradeID string) {
	var req closeTradeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.svc.Close(r.Context(), CloseRequest{
		TradeID:   tradeID,
		UserID:    userID,
		ExitPrice: req.ExitPrice,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteOK(w, http.StatusOK, res)
}
