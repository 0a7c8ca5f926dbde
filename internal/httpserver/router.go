package httpserver

import (
	"net/http"

	"lv-tradesettle/internal/admin"
	"lv-tradesettle/internal/apperr"
	"lv-tradesettle/internal/health"
	"lv-tradesettle/internal/httputil"
	"lv-tradesettle/internal/ledger"
	"lv-tradesettle/internal/settlement"
	"lv-tradesettle/internal/trades"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterDeps struct {
	HealthHandler     *health.Handler
	TradesHandler     *trades.Handler
	SettlementHandler *settlement.Handler
	LedgerHandler     *ledger.Handler
	AdminHandler      *admin.Handler
	AdminTokens       *admin.TokenIssuer
	Auth              TokenParser
	WSHandler         http.Handler
	RateLimiter       *RateLimiter
	Logger            *zap.Logger
	CORSOrigin        string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(d.Logger))
	r.Use(cors(d.CORSOrigin))
	r.Use(SecurityHeaders)
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, apperr.New(apperr.KindNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.Envelope{OK: false, Message: "method not allowed", Code: "method_not_allowed"})
	})

	r.Get("/health", d.HealthHandler.Ready)
	r.Get("/health/live", d.HealthHandler.Live)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/ws", d.WSHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.Auth))
			r.Get("/trades", withUser(d.TradesHandler.List))
			r.Get("/trades/{id}", withUserAndID(d.TradesHandler.Get))
			r.Post("/trades/{id}/close", withUserAndID(d.SettlementHandler.Close))
			r.Put("/trades/{id}/risk", withUserAndID(d.TradesHandler.UpdateRisk))
			r.Get("/balances", withUser(d.LedgerHandler.Balances))
			r.Get("/transactions", withUser(d.LedgerHandler.Transactions))
			r.Get("/transactions/verify", withUser(d.LedgerHandler.VerifyChain))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", d.AdminHandler.Login)
			r.Group(func(r chi.Router) {
				r.Use(admin.AdminAuthMiddleware(d.AdminTokens))
				r.With(admin.RequireRight(admin.RightTrades)).Post("/trades/{id}/close", d.AdminHandler.CloseTrade)
				r.With(admin.RequireRight(admin.RightTrades)).Post("/trades/{id}/outcome", d.AdminHandler.SetOutcome)
				r.With(admin.RequireRight(admin.RightLedger)).Get("/users/{userID}/ledger/verify", d.AdminHandler.VerifyLedger)
			})
		})
	})
	return r
}

func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqOrigin := r.Header.Get("Origin")
			if reqOrigin != "" && allowOrigin(r, origin) {
				w.Header().Set("Access-Control-Allow-Origin", reqOrigin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
