package market

import (
	"sync"
	"testing"
)

func TestTickMidAndOBI(t *testing.T) {
	tick := Tick{Symbol: "btcusdt", Bid: 100, Ask: 102, BidQty: 3, AskQty: 1}
	if tick.Mid() != 101 {
		t.Fatalf("expected mid 101, got %.4f", tick.Mid())
	}
	if tick.OBI() != 0.5 {
		t.Fatalf("expected OBI 0.5, got %.4f", tick.OBI())
	}

	empty := Tick{Symbol: "btcusdt", Bid: 100, Ask: 102}
	if empty.OBI() != 0 {
		t.Fatalf("expected OBI 0 for empty book sizes, got %.4f", empty.OBI())
	}
}

func TestBookUpdateGet(t *testing.T) {
	book := NewBook()
	if _, ok := book.Get("btcusdt"); ok {
		t.Fatalf("expected empty book")
	}

	book.Update(Tick{Symbol: "btcusdt", Bid: 100, Ask: 101, TsMs: 1})
	book.Update(Tick{Symbol: "btcusdt", Bid: 102, Ask: 103, TsMs: 2})

	tick, ok := book.Get("btcusdt")
	if !ok || tick.TsMs != 2 {
		t.Fatalf("expected latest tick, got %+v ok=%v", tick, ok)
	}
	if book.Len() != 1 {
		t.Fatalf("expected 1 symbol, got %d", book.Len())
	}
}

func TestBookSnapshotIsACopy(t *testing.T) {
	book := NewBook()
	book.Update(Tick{Symbol: "btcusdt", Bid: 100, Ask: 101, TsMs: 1})

	snap := book.Snapshot()
	snap["btcusdt"] = Tick{Symbol: "btcusdt", Bid: 0, Ask: 0}
	if tick, _ := book.Get("btcusdt"); tick.Bid != 100 {
		t.Fatalf("snapshot mutation leaked into book")
	}
}

func TestBookConcurrentReadersSingleWriter(t *testing.T) {
	book := NewBook()
	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(0); i < 1000; i++ {
			book.Update(Tick{Symbol: "btcusdt", Bid: float64(i), Ask: float64(i) + 1, TsMs: i})
		}
		close(done)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if tick, ok := book.Get("btcusdt"); ok && tick.Ask != tick.Bid+1 {
					t.Errorf("torn read: %+v", tick)
					return
				}
			}
		}()
	}
	wg.Wait()
}
