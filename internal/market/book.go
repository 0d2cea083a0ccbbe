package market

import "sync"

// Book holds the latest tick per symbol. The feed is the only writer; the
// risk gate and strategies read concurrently, so access is guarded by an
// RWMutex rather than relying on callers to serialize.
type Book struct {
	mu     sync.RWMutex
	latest map[string]Tick
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{latest: make(map[string]Tick)}
}

// Update replaces the stored tick for the tick's symbol.
func (b *Book) Update(tick Tick) {
	b.mu.Lock()
	b.latest[tick.Symbol] = tick
	b.mu.Unlock()
}

// Get returns the latest tick for symbol, if one has been seen.
func (b *Book) Get(symbol string) (Tick, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tick, ok := b.latest[symbol]
	return tick, ok
}

// Snapshot returns a copy of the latest ticks keyed by symbol.
func (b *Book) Snapshot() map[string]Tick {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]Tick, len(b.latest))
	for sym, tick := range b.latest {
		out[sym] = tick
	}
	return out
}

// Len reports how many symbols have a stored tick.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.latest)
}
