// Package feed hosts tick sources: a reconnecting live websocket stream
// and a historical multi-file replay merge. Both push time-ordered ticks
// to a channel and maintain a latest-tick book.
package feed

import (
	"context"

	"github.com/henryp-7/hft-bot/internal/market"
)

// Source is a pluggable market data stream implementation.
type Source interface {
	// Run pushes ticks onto out until the context is canceled. Live
	// sources never return on transient failures; replay sources return
	// nil once every symbol is exhausted (unless looping forever).
	Run(ctx context.Context, out chan<- market.Tick) error
	// Book exposes the latest tick per symbol, written only by the source.
	Book() *market.Book
}

func emit(ctx context.Context, out chan<- market.Tick, book *market.Book, tick market.Tick) error {
	book.Update(tick)
	select {
	case out <- tick:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
