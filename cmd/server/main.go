package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/allattain/opsdash/internal/attribution"
	"github.com/allattain/opsdash/internal/config"
	"github.com/allattain/opsdash/internal/feed"
	"github.com/allattain/opsdash/internal/httpx"
	"github.com/allattain/opsdash/internal/ingest"
	"github.com/allattain/opsdash/internal/rollup"
	"github.com/allattain/opsdash/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	cl := feed.NewHTTPClient(cfg.HTTPTimeout)
	cache := feed.NewCache(cfg.RedisAddr, cfg.CacheTTL, logger)
	loader := feed.NewLoader(cl, cfg, cache, logger)
	st := store.NewSnapshotStore()
	pipe := ingest.NewPipeline(loader, st, cfg, logger)
	eng := rollup.NewEngine(attribution.NewModel(cfg.Campaigns.Settings))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := pipe.Refresh(ctx); err != nil {
		logger.Warn("initial refresh failed, serving empty dataset", slog.String("err", err.Error()))
	}
	go pipe.Run(ctx, cfg.CacheTTL)

	r := httpx.NewRouter(logger, pipe, st, eng)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server", slog.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
