package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fjod/go_pos/internal/cache"
	"github.com/fjod/go_pos/internal/client"
	"github.com/fjod/go_pos/internal/config"
	"github.com/fjod/go_pos/internal/logger"
	"github.com/fjod/go_pos/internal/metrics"
	"github.com/fjod/go_pos/internal/service"
	"github.com/fjod/go_pos/internal/terminal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg := config.LoadTerminal()

	// stdout belongs to the TUI.
	zl, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer zl.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	tm := metrics.NewTerminalMetrics(reg)
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Error("metrics server error", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	backend := client.NewClient(client.Config{
		BaseURL:     cfg.BackendURL,
		Timeout:     cfg.BackendTimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	})

	var productCache cache.ProductCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			zl.Warn("redis unavailable, lookups go to the backend", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		pingCancel()
		productCache = cache.NewRedisCache(rdb, cfg.ProductCacheTTL)
	}

	resolver := service.NewProductResolver(backend, productCache, tm, zl.Named("resolver"))
	submitter := service.NewPurchaseSubmitter(backend, service.SubmitterConfig{
		Context:      cfg.Context,
		SendQuantity: cfg.SendLineQuantity,
	}, tm, zl.Named("submitter"))

	session := terminal.NewSession(resolver, submitter,
		terminal.WithLogger(zl.Named("session")),
		terminal.WithCartObserver(func(lines int) { tm.CartLines.Set(float64(lines)) }),
	)

	zl.Info("POS terminal starting",
		zap.String("backend_url", cfg.BackendURL),
		zap.String("store_cd", cfg.Context.StoreCode),
		zap.String("pos_no", cfg.Context.PosNo))

	if _, err := tea.NewProgram(terminal.NewModel(ctx, session), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	zl.Info("POS terminal exited")
	return nil
}
