package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"lv-tradesettle/internal/apperr"
	"lv-tradesettle/internal/events"
	"lv-tradesettle/internal/httputil"
	"lv-tradesettle/internal/model"
	"lv-tradesettle/internal/settlement"
	"lv-tradesettle/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (User, error)
}

type TradeStore interface {
	GetTradeByID(ctx context.Context, tradeID string) (model.Trade, error)
	SetOutcome(ctx context.Context, tradeID string, outcome types.TradeOutcome) (model.Trade, error)
}

type Closer interface {
	Close(ctx context.Context, req settlement.CloseRequest) (settlement.CloseResult, error)
}

type ChainVerifier interface {
	VerifyChain(ctx context.Context, userID string) (bool, int64, error)
}

type Deps struct {
	Users  Authenticator
	Tokens *TokenIssuer
	Trades TradeStore
	Closer Closer
	Ledger ChainVerifier
	Events events.Publisher
	Logger *zap.Logger
}

// Handler serves the admin panel: login, forced closes, win/loss overrides
// and ledger audits.
type Handler struct {
	users  Authenticator
	tokens *TokenIssuer
	trades TradeStore
	closer Closer
	ledger ChainVerifier
	events events.Publisher
	logger *zap.Logger
}

func NewHandler(d Deps) *Handler {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	return &Handler{
		users:  d.Users,
		tokens: d.Tokens,
		trades: d.Trades,
		closer: d.Closer,
		ledger: d.Ledger,
		events: d.Events,
		logger: d.Logger,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	u, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			h.logger.Warn("Admin login rejected", zap.String("username", strings.TrimSpace(req.Username)))
		}
		httputil.WriteError(w, err)
		return
	}
	token, exp, err := h.tokens.Issue(u)
	if err != nil {
		httputil.WriteError(w, apperr.Wrap(apperr.KindInternal, err, "token generation failed"))
		return
	}
	httputil.WriteOK(w, http.StatusOK, map[string]any{
		"token":      token,
		"username":   u.Username,
		"role":       u.Role,
		"expires_at": exp.Format(time.RFC3339),
	})
}

type closeRequest struct {
	ExitPrice *decimal.Decimal `json:"exitPrice"`
}

// CloseTrade force-closes any user's open trade at an operator-supplied
// price. The price is mandatory: admin closes never consult the feed.
func (h *Handler) CloseTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := chi.URLParam(r, "id")
	var req closeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.ExitPrice == nil {
		httputil.WriteError(w, apperr.New(apperr.KindBadRequest, "exitPrice is required"))
		return
	}
	trade, err := h.trades.GetTradeByID(r.Context(), tradeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.closer.Close(r.Context(), settlement.CloseRequest{
		TradeID:   trade.ID,
		UserID:    trade.UserID,
		ExitPrice: req.ExitPrice,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.Info("Admin closed trade",
		zap.String("admin", Username(r)),
		zap.String("trade_id", trade.ID),
		zap.String("user_id", trade.UserID),
		zap.String("exit_price", req.ExitPrice.String()))
	httputil.WriteOK(w, http.StatusOK, res)
}

func (h *Handler) SetOutcome(w http.ResponseWriter, r *http.Request) {
	tradeID := chi.URLParam(r, "id")
	var req struct {
		Outcome string `json:"outcome"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	outcome, ok := types.ParseOutcome(req.Outcome)
	if !ok {
		httputil.WriteError(w, apperr.New(apperr.KindBadRequest, "outcome must be win or loss"))
		return
	}
	trade, err := h.trades.SetOutcome(r.Context(), tradeID, outcome)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.events.Publish(events.Event{Type: events.TypeTradeOutcome, UserID: trade.UserID, Data: trade})
	h.logger.Info("Admin set trade outcome",
		zap.String("admin", Username(r)),
		zap.String("trade_id", trade.ID),
		zap.String("outcome", string(outcome)))
	httputil.WriteOK(w, http.StatusOK, trade)
}

func (h *Handler) VerifyLedger(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		httputil.WriteError(w, apperr.New(apperr.KindBadRequest, "user id required"))
		return
	}
	intact, badSeq, err := h.ledger.VerifyChain(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := map[string]any{"user_id": userID, "intact": intact}
	if !intact {
		resp["first_bad_sequence"] = badSeq
		h.logger.Error("Ledger hash chain broken",
			zap.String("user_id", userID), zap.Int64("sequence", badSeq), zap.String("admin", Username(r)))
	}
	httputil.WriteOK(w, http.StatusOK, resp)
}
