package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Vantage-Labs/vantage/core/pkg/config"
	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
	"github.com/Vantage-Labs/vantage/core/pkg/observability"
)

// Pipeline cadence. Corroboration re-examines provisional links far
// more often than new tier-A evidence lands; the index recomputes a few
// times a day and upserts the same daily row.
const (
	corroborateEvery = 15 * time.Minute
	indexEvery       = 6 * time.Hour
)

func runServer() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(ctx, observabilityConfig(cfg))
	if err != nil {
		slog.Error("observability init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	subs, err := initSubsystems(ctx, cfg)
	if err != nil {
		slog.Error("pipeline init failed", "error", err)
		os.Exit(1)
	}
	defer subs.Close()

	slog.Info("pipeline running",
		"corroborate_every", corroborateEvery, "index_every", indexEvery)

	corroborateTick := time.NewTicker(corroborateEvery)
	defer corroborateTick.Stop()
	indexTick := time.NewTicker(indexEvery)
	defer indexTick.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("pipeline stopping")
			return
		case <-corroborateTick.C:
			opCtx, finish := obs.TrackOperation(ctx, "corroborate")
			res, err := subs.promoter.RunPass(opCtx)
			finish(err)
			if err != nil {
				slog.Error("corroboration pass failed", "error", err)
				continue
			}
			if len(res.StillProvisional) > 0 {
				slog.Warn("links awaiting manual escalation",
					"count", len(res.StillProvisional))
			}
		case <-indexTick.C:
			opCtx, finish := obs.TrackOperation(ctx, "index")
			_, err := subs.aggregator.ComputeIndex(opCtx, time.Now().UTC(), defaultWeights())
			finish(err)
			if err != nil {
				slog.Error("index computation failed", "error", err)
			}
		}
	}
}

func defaultWeights() contracts.WeightConfig {
	return contracts.WeightConfig{Version: "default"}
}

func observabilityConfig(cfg *config.Config) *observability.Config {
	oc := observability.DefaultConfig()
	if endpoint := os.Getenv("OTLP_ENDPOINT"); endpoint != "" {
		oc.OTLPEndpoint = endpoint
	} else {
		oc.Enabled = false
	}
	oc.Insecure = os.Getenv("OTLP_INSECURE") == "true"
	return oc
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
