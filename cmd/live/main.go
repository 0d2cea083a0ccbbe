package main

import (
	"context"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/henryp-7/hft-bot/internal/config"
	"github.com/henryp-7/hft-bot/internal/engine"
	"github.com/henryp-7/hft-bot/internal/feed"
	"github.com/henryp-7/hft-bot/internal/metrics"
	"github.com/henryp-7/hft-bot/internal/portfolio"
	"github.com/henryp-7/hft-bot/internal/risk"
	"github.com/henryp-7/hft-bot/internal/storage"
	"github.com/henryp-7/hft-bot/internal/strategy"
	"github.com/henryp-7/hft-bot/internal/util"
	"github.com/henryp-7/hft-bot/internal/venue"
)

func main() {
	_ = godotenv.Load()

	cfgPath := "internal/config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot := util.NewLogger("info", "")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel, cfg.App.Env)

	exec, err := venue.NewBinanceExec(
		os.Getenv("BINANCE_API_KEY"),
		os.Getenv("BINANCE_API_SECRET"),
		venue.WithBaseURL(cfg.Venue.BaseURL),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("venue credentials")
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source, err := buildLiveSource(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build tick source")
	}

	pf := portfolio.New(cfg.Paper.QuoteCcy, cfg.Paper.InitialCash)
	limits := risk.Limits{
		MaxNotionalPerSymbol: cfg.Risk.MaxNotionalPerSymbol,
		MaxTotalNotional:     cfg.Risk.MaxTotalNotional,
	}
	strat := strategy.Build(cfg.Strategy.Mode, liveStrategyParams(cfg))

	opts := []engine.Option{engine.WithVenue(exec)}
	if cfg.Storage.Root != "" {
		store, err := storage.NewCSVStore(cfg.Storage.Root)
		if err != nil {
			log.Fatal().Err(err).Msg("open csv store")
		}
		opts = append(opts, engine.WithSink(store))
	}

	eng := engine.New(source, strat, pf, limits, 0, log, opts...)
	log.Warn().Str("strategy", strat.Name()).Msg("live trading started (real funds)")
	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("engine stopped")
	}
	log.Info().Msg("shutting down")
}

func buildLiveSource(cfg *config.Config, log zerolog.Logger) (feed.Source, error) {
	var opts []feed.LiveOption
	if cfg.Feed.StreamURL != "" {
		opts = append(opts, feed.WithStreamURL(cfg.Feed.StreamURL))
	}
	if b := cfg.Feed.Backoff; b.BaseMs > 0 {
		backoff := &feed.Backoff{
			Base:       time.Duration(b.BaseMs) * time.Millisecond,
			Multiplier: b.Multiplier,
			Max:        time.Duration(b.MaxMs) * time.Millisecond,
		}
		if backoff.Multiplier <= 1 {
			backoff.Multiplier = 2
		}
		if backoff.Max <= 0 {
			backoff.Max = 30 * time.Second
		}
		opts = append(opts, feed.WithBackoff(backoff))
	}
	return feed.NewLive(cfg.Feed.Symbols, log, opts...)
}

func liveStrategyParams(cfg *config.Config) strategy.Params {
	p := cfg.Strategy.Params
	targetFrac := p.TargetGrossFrac
	if targetFrac <= 0 {
		targetFrac = 0.5
	}
	targetGross := cfg.Risk.MaxTotalNotional
	if cfg.Paper.InitialCash < targetGross {
		targetGross = cfg.Paper.InitialCash
	}
	return strategy.Params{
		Symbols:             cfg.Feed.Symbols,
		TargetGrossNotional: targetGross * targetFrac,
		OBIThreshold:        p.OBIThreshold,
		MomLookback:         p.MomLookback,
		MomThreshold:        p.MomThreshold,
		TradeFrac:           p.TradeFrac,
		CooldownSec:         p.CooldownSec,
		MaxPosMult:          p.MaxPosMult,
		MinTradeNotional:    p.MinTradeNotional,
		RebalanceDriftFrac:  p.RebalanceDriftFrac,
	}
}
