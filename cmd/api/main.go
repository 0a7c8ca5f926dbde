package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lv-tradesettle/internal/admin"
	"lv-tradesettle/internal/auth"
	"lv-tradesettle/internal/config"
	"lv-tradesettle/internal/db"
	"lv-tradesettle/internal/events"
	"lv-tradesettle/internal/health"
	"lv-tradesettle/internal/httpserver"
	"lv-tradesettle/internal/ledger"
	"lv-tradesettle/internal/logger"
	"lv-tradesettle/internal/pricefeed"
	"lv-tradesettle/internal/settlement"
	"lv-tradesettle/internal/trades"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	startedAt := time.Now()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolCfg := db.DefaultPoolConfig()
	poolCfg.MaxConns = cfg.DB.MaxConns
	poolCfg.MinConns = cfg.DB.MinConns
	pool, err := db.NewPool(ctx, cfg.DB.DSN, poolCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if cfg.DB.Migrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		log.Info("Schema migrated")
	}

	bus := events.NewBus()
	authSvc := auth.NewService(cfg.JWT.Issuer, []byte(cfg.JWT.Secret), cfg.JWT.TTL)
	tradeStore := trades.NewStore(pool)
	ledgerSvc := ledger.NewService(pool)
	prices := pricefeed.NewClient(cfg.PriceFeed, log.Named("pricefeed"))
	settleSvc := settlement.NewService(tradeStore, prices, ledgerSvc, bus, log.Named("settlement"), cfg.Settlement.DefaultQuote)
	adminTokens := admin.NewTokenIssuer(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		HealthHandler:     health.NewHandler(pool, startedAt, log.Named("health")),
		TradesHandler:     trades.NewHandler(tradeStore),
		SettlementHandler: settlement.NewHandler(settleSvc),
		LedgerHandler:     ledger.NewHandler(ledgerSvc),
		AdminHandler: admin.NewHandler(admin.Deps{
			Users:  admin.NewUserStore(pool),
			Tokens: adminTokens,
			Trades: tradeStore,
			Closer: settleSvc,
			Ledger: ledgerSvc,
			Events: bus,
			Logger: log.Named("admin"),
		}),
		AdminTokens: adminTokens,
		Auth:        authSvc,
		WSHandler:   httpserver.NewWSHandler(bus, authSvc, cfg.WS.Origin, log.Named("ws")),
		RateLimiter: httpserver.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst),
		Logger:      log.Named("http"),
		CORSOrigin:  cfg.WS.Origin,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
