package paper

import (
	"sync"

	"github.com/henryp-7/hft-bot/internal/execution"
)

// Ledger stores fills in memory along with a running gross traded
// notional, for inspection and the engine's performance report.
type Ledger struct {
	mu    sync.Mutex
	fills []execution.Fill
	gross float64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends a fill and accrues its notional.
func (l *Ledger) Record(fill execution.Fill) {
	l.mu.Lock()
	l.fills = append(l.fills, fill)
	l.gross += fill.Notional()
	l.mu.Unlock()
}

// Snapshot returns a copy of the recorded fills.
func (l *Ledger) Snapshot() []execution.Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]execution.Fill, len(l.fills))
	copy(out, l.fills)
	return out
}

// Len reports how many fills have been recorded.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fills)
}

// GrossNotional reports the total absolute notional traded so far.
func (l *Ledger) GrossNotional() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gross
}

// Reset clears all stored fills and the notional tally.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.fills = l.fills[:0]
	l.gross = 0
	l.mu.Unlock()
}
