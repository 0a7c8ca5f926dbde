package ledger

import (
	"net/http"
	"strconv"

	"lv-tradesettle/internal/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Balances(w http.ResponseWriter, r *http.Request, userID string) {
	balances, err := h.svc.Balances(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteOK(w, http.StatusOK, balances)
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request, userID string) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.svc.Transactions(r.Context(), userID, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteOK(w, http.StatusOK, items)
}

func (h *Handler) VerifyChain(w http.ResponseWriter, r *http.Request, userID string) {
	ok, badSeq, err := h.svc.VerifyChain(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := map[string]any{"user_id": userID, "intact": ok}
	if !ok {
		resp["first_bad_sequence"] = badSeq
	}
	httputil.WriteOK(w, http.StatusOK, resp)
}
