package pricefeed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lv-tradesettle/internal/apperr"
	"lv-tradesettle/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultTimeout = 3 * time.Second

// Source is anything that can quote the latest traded price of a pair.
type Source interface {
	GetCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error)
}

// Client queries the price-lookup service. It makes exactly one attempt per
// call; callers decide what to do when the upstream is unavailable.
type Client struct {
	client  *resty.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

var _ Source = (*Client)(nil)

func NewClient(cfg config.PriceFeed, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
		logger:  logger,
	}
}

// priceResponse accepts both a bare {"price": ...} body and the
// {"ok": true, "data": {"price": ...}} envelope.
type priceResponse struct {
	Price decimal.NullDecimal `json:"price"`
	Data  *struct {
		Price decimal.NullDecimal `json:"price"`
	} `json:"data"`
}

func (r priceResponse) price() (decimal.Decimal, bool) {
	if r.Price.Valid {
		return r.Price.Decimal, true
	}
	if r.Data != nil && r.Data.Price.Valid {
		return r.Data.Price.Decimal, true
	}
	return decimal.Zero, false
}

func (c *Client) GetCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	if pair == "" {
		return decimal.Zero, apperr.New(apperr.KindBadRequest, "pair is required")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, apperr.Wrap(apperr.KindUpstreamUnavailable, err, "price lookup rate limited")
	}

	var body priceResponse
	c.logger.Debug("Fetching price", zap.String("pair", pair))
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("pair", pair).
		SetResult(&body).
		Get("/trading/price/{pair}")
	if err != nil {
		return decimal.Zero, apperr.Wrap(apperr.KindUpstreamUnavailable, err, "price lookup failed")
	}
	if resp.IsError() {
		return decimal.Zero, apperr.Wrap(apperr.KindUpstreamUnavailable,
			fmt.Errorf("status %d: %s", resp.StatusCode(), truncate(resp.String(), 200)), "price lookup failed")
	}
	price, ok := body.price()
	if !ok || !price.IsPositive() {
		return decimal.Zero, apperr.New(apperr.KindUpstreamUnavailable, "price lookup returned no usable price for "+pair)
	}
	return price, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
