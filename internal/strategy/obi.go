package strategy

import (
	"math"
	"strings"
	"sync"

	"github.com/henryp-7/hft-bot/internal/execution"
	"github.com/henryp-7/hft-bot/internal/market"
	"github.com/henryp-7/hft-bot/internal/portfolio"
)

// OBIMomentum trades top-of-book size imbalance confirmed by short-horizon
// mid-price momentum. A per-symbol cooldown and a position-notional cap
// keep it from spamming orders or pyramiding past its budget.
type OBIMomentum struct {
	symbols          []string
	targetGross      float64
	obiThreshold     float64
	momLookback      int
	momThreshold     float64
	tradeFrac        float64
	cooldownMs       int64
	maxPosMult       float64
	minTradeNotional float64

	mu           sync.Mutex
	lastActionMs map[string]int64
	midHist      map[string][]float64
}

// NewOBIMomentum builds the strategy, defaulting unset knobs.
func NewOBIMomentum(params Params) *OBIMomentum {
	s := &OBIMomentum{
		symbols:          lowerAll(params.Symbols),
		targetGross:      params.TargetGrossNotional,
		obiThreshold:     params.OBIThreshold,
		momLookback:      params.MomLookback,
		momThreshold:     params.MomThreshold,
		tradeFrac:        params.TradeFrac,
		cooldownMs:       int64(params.CooldownSec * 1000),
		maxPosMult:       params.MaxPosMult,
		minTradeNotional: params.MinTradeNotional,
		lastActionMs:     make(map[string]int64),
		midHist:          make(map[string][]float64),
	}
	if s.obiThreshold <= 0 {
		s.obiThreshold = 0.55
	}
	if s.momLookback <= 0 {
		s.momLookback = 15
	}
	if s.momThreshold <= 0 {
		s.momThreshold = 0.0005
	}
	if s.tradeFrac <= 0 {
		s.tradeFrac = 0.20
	}
	if s.cooldownMs <= 0 {
		s.cooldownMs = 1000
	}
	if s.maxPosMult <= 0 {
		s.maxPosMult = 1.50
	}
	if s.minTradeNotional <= 0 {
		s.minTradeNotional = 5.0
	}
	return s
}

// Name returns the identifier for the strategy implementation.
func (s *OBIMomentum) Name() string { return "OBIMomentum" }

// GenerateOrders emits at most one market order when imbalance and
// momentum agree and both clear their thresholds.
func (s *OBIMomentum) GenerateOrders(tick market.Tick, pf portfolio.Snapshot) []execution.OrderRequest {
	if tick.Symbol == "" || tick.Mid() <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mid := tick.Mid()
	hist := append(s.midHist[tick.Symbol], mid)
	if len(hist) > s.momLookback {
		hist = hist[len(hist)-s.momLookback:]
	}
	s.midHist[tick.Symbol] = hist

	mom := s.momentum(hist, mid)
	obi := tick.OBI()

	// Cooldown is keyed off tick time so replay pacing behaves the same
	// as live trading.
	if tick.TsMs-s.lastActionMs[tick.Symbol] < s.cooldownMs {
		return nil
	}

	longSig := obi >= s.obiThreshold && mom >= s.momThreshold
	shortSig := obi <= -s.obiThreshold && mom <= -s.momThreshold
	if !longSig && !shortSig {
		return nil
	}

	n := len(s.symbols)
	if n < 1 {
		n = 1
	}
	perSymbolBudget := s.targetGross / float64(n)
	tradeNotional := math.Max(s.minTradeNotional, perSymbolBudget*s.tradeFrac)

	side := execution.Buy
	if shortSig {
		side = execution.Sell
	}
	rawQty := tradeNotional / math.Max(mid, 1e-12)
	signed := rawQty
	if side == execution.Sell {
		signed = -rawQty
	}
	qty := s.capQtyByPosition(tick.Symbol, signed, mid, pf, perSymbolBudget)
	// The cap can invert the trade when the position already exceeds its
	// budget; never trade against the signal.
	if side == execution.Buy && qty <= 0 {
		return nil
	}
	if side == execution.Sell && qty >= 0 {
		return nil
	}
	if math.Abs(qty)*mid < s.minTradeNotional {
		return nil
	}

	s.lastActionMs[tick.Symbol] = tick.TsMs
	return []execution.OrderRequest{{
		Symbol: tick.Symbol,
		Side:   side,
		Type:   execution.Market,
		Qty:    math.Abs(qty),
	}}
}

func (s *OBIMomentum) momentum(hist []float64, mid float64) float64 {
	if len(hist) < s.momLookback {
		return 0
	}
	old := hist[0]
	if old <= 0 {
		return 0
	}
	return (mid - old) / old
}

// capQtyByPosition scales qty down so the post-trade position notional
// stays within maxPosMult times the per-symbol budget.
func (s *OBIMomentum) capQtyByPosition(symbol string, qty, mid float64, pf portfolio.Snapshot, budget float64) float64 {
	currNotional := pf.Positions[symbol].Qty * mid
	maxAbs := s.maxPosMult * budget
	desired := currNotional + qty*mid
	if math.Abs(desired) <= maxAbs {
		return qty
	}
	sign := 1.0
	if desired < 0 {
		sign = -1.0
	}
	allowedDelta := maxAbs*sign - currNotional
	return allowedDelta / mid
}

func lowerAll(symbols []string) []string {
	out := make([]string, len(symbols))
	for i, sym := range symbols {
		out[i] = strings.ToLower(strings.TrimSpace(sym))
	}
	return out
}
