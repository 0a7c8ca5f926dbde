package health

import (
	"context"
	"net/http"
	"time"

	"lv-tradesettle/internal/httputil"

	"go.uber.org/zap"
)

const dbTimeout = time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db        Pinger
	startedAt time.Time
	logger    *zap.Logger
	now       func() time.Time
}

func NewHandler(db Pinger, startedAt time.Time, logger *zap.Logger) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{db: db, startedAt: start, logger: logger, now: time.Now}
}

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UptimeSec int64  `json:"uptime_sec"`
}

type dbStatus struct {
	Reachable bool  `json:"reachable"`
	PingMs    int64 `json:"ping_ms"`
}

type readyResponse struct {
	liveResponse
	Database dbStatus `json:"database"`
}

func (h *Handler) live() liveResponse {
	now := h.now().UTC()
	uptime := now.Sub(h.startedAt)
	if uptime < 0 {
		uptime = 0
	}
	return liveResponse{Status: "ok", Timestamp: now.Format(time.RFC3339), UptimeSec: int64(uptime.Seconds())}
}

// Live does not touch the database.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	httputil.WriteOK(w, http.StatusOK, h.live())
}

// Ready answers 503 while the database is unreachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{liveResponse: h.live()}
	status := http.StatusOK

	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	err := h.db.Ping(ctx)
	cancel()
	resp.Database.PingMs = time.Since(start).Milliseconds()
	if err != nil {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	} else {
		resp.Database.Reachable = true
	}
	httputil.WriteJSON(w, status, httputil.Envelope{OK: err == nil, Data: resp})
}
