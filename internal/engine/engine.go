// Package engine wires the tick source, strategy, risk gate, and
// execution path into one consumer loop.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/henryp-7/hft-bot/internal/execution"
	"github.com/henryp-7/hft-bot/internal/feed"
	"github.com/henryp-7/hft-bot/internal/market"
	"github.com/henryp-7/hft-bot/internal/metrics"
	"github.com/henryp-7/hft-bot/internal/paper"
	"github.com/henryp-7/hft-bot/internal/portfolio"
	"github.com/henryp-7/hft-bot/internal/risk"
	"github.com/henryp-7/hft-bot/internal/storage"
	"github.com/henryp-7/hft-bot/internal/strategy"
)

// OrderPlacer is the live venue contract: submit one order, get back a
// fill or an error. Errors must not stop the engine loop.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order execution.OrderRequest) (*execution.Fill, error)
}

// Engine processes one tick at a time: persist, strategize, gate, execute,
// settle. Exactly one of sim/venue is set.
type Engine struct {
	source   feed.Source
	strat    strategy.Strategy
	limits   risk.Limits
	pf       *portfolio.Portfolio
	sim      *paper.Simulator
	venue    OrderPlacer
	sink     storage.Sink
	recorder paper.FillRecorder
	fills    *paper.Ledger
	log      zerolog.Logger

	initialEquity float64
	reportEvery   time.Duration
	lastReport    time.Time
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithSink attaches an append-only tick/fill sink.
func WithSink(sink storage.Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithFillRecorder attaches an additional fill recorder (e.g. JSONL).
func WithFillRecorder(rec paper.FillRecorder) Option {
	return func(e *Engine) { e.recorder = rec }
}

// WithVenue switches the engine to live order placement.
func WithVenue(placer OrderPlacer) Option {
	return func(e *Engine) {
		e.venue = placer
		e.sim = nil
	}
}

// WithReportInterval overrides the periodic performance report cadence.
func WithReportInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.reportEvery = d
		}
	}
}

// New builds a paper-mode engine by default; WithVenue switches it live.
func New(source feed.Source, strat strategy.Strategy, pf *portfolio.Portfolio, limits risk.Limits, slippageBps float64, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		source:        source,
		strat:         strat,
		limits:        limits,
		pf:            pf,
		sim:           paper.NewSimulator(pf, slippageBps),
		fills:         paper.NewLedger(),
		log:           log,
		initialEquity: pf.Cash(),
		reportEvery:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run drives the loop until the context is canceled or a non-looping
// replay runs out of ticks.
func (e *Engine) Run(ctx context.Context) error {
	ticks := make(chan market.Tick, 1024)
	errc := make(chan error, 1)
	go func() {
		errc <- e.source.Run(ctx, ticks)
		close(ticks)
	}()

	defer e.reportPerformance(true, true)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tick, ok := <-ticks:
			if !ok {
				err := <-errc
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			}
			e.handleTick(ctx, tick)
		}
	}
}

func (e *Engine) handleTick(ctx context.Context, tick market.Tick) {
	if e.sink != nil {
		if err := e.sink.AppendTick(tick); err != nil {
			e.log.Warn().Err(err).Msg("tick sink append failed")
		}
	}

	snapshot := e.pf.Snapshot()
	for _, order := range e.strat.GenerateOrders(tick, snapshot) {
		if order.ClientID == "" {
			order.ClientID = uuid.NewString()[:16]
		}
		metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()

		latest := e.source.Book().Snapshot()
		ok, reason := risk.Check(order, e.pf, latest, e.limits)
		if !ok {
			metrics.RiskRejectsTotal.WithLabelValues(order.Symbol, string(reason)).Inc()
			e.log.Info().
				Str("sym", order.Symbol).
				Str("side", string(order.Side)).
				Float64("qty", order.Qty).
				Str("reason", string(reason)).
				Msg("risk rejected order")
			continue
		}

		if e.venue != nil {
			e.placeLive(ctx, order, latest)
			continue
		}

		if fill := e.sim.Execute(order, e.source.Book()); fill != nil {
			e.settle(*fill, latest, "paper fill")
		}
	}

	e.reportPerformance(false, false)
}

func (e *Engine) placeLive(ctx context.Context, order execution.OrderRequest, latest map[string]market.Tick) {
	fill, err := e.venue.PlaceOrder(ctx, order)
	if err != nil {
		e.log.Error().Err(err).
			Str("sym", order.Symbol).
			Str("side", string(order.Side)).
			Msg("live order error")
		return
	}
	if fill == nil {
		return
	}
	e.pf.OnFill(*fill)
	e.settle(*fill, latest, "live fill")
}

// settle records a fill everywhere it needs to go. The ledger was already
// mutated by the executor; sink failures here are logged and dropped.
func (e *Engine) settle(fill execution.Fill, latest map[string]market.Tick, what string) {
	metrics.FillsTotal.WithLabelValues(fill.Symbol, string(fill.Side)).Inc()
	e.fills.Record(fill)
	if e.recorder != nil {
		e.recorder.Record(fill)
	}
	if e.sink != nil {
		if err := e.sink.AppendFill(fill); err != nil {
			e.log.Warn().Err(err).Msg("fill sink append failed")
		}
	}

	e.log.Info().
		Str("sym", fill.Symbol).
		Str("side", string(fill.Side)).
		Float64("qty", fill.Qty).
		Float64("px", fill.Price).
		Float64("notional", fill.Notional()).
		Float64("equity", e.pf.MarkToMarket(latest)).
		Msg(what)
	e.reportPerformance(true, false)
}

// Fills exposes the in-memory fill history (inspection, tests).
func (e *Engine) Fills() *paper.Ledger { return e.fills }

func (e *Engine) reportPerformance(force, final bool) {
	now := time.Now()
	if !force && now.Sub(e.lastReport) < e.reportEvery {
		return
	}
	equity := e.pf.MarkToMarket(e.source.Book().Snapshot())
	msg := "portfolio performance"
	if final {
		msg = "final portfolio performance"
	}
	e.log.Info().
		Str("quote", e.pf.QuoteCcy()).
		Float64("initial_equity", e.initialEquity).
		Float64("equity", equity).
		Float64("pnl", equity-e.initialEquity).
		Int("fills", e.fills.Len()).
		Float64("traded_notional", e.fills.GrossNotional()).
		Msg(msg)
	e.lastReport = now
}
