package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/henryp-7/hft-bot/internal/market"
)

func wsServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Hold the connection open so the client decides when to leave.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

const validFrame = `{"stream":"btcusdt@bookTicker","data":{"s":"BTCUSDT","b":"100.5","B":"2","a":"101.5","A":"3","E":1700000000000}}`

func TestLiveEmitsTicks(t *testing.T) {
	server := wsServer(t, []string{validFrame})
	defer server.Close()

	live, err := NewLive([]string{"BTCUSDT"}, zerolog.Nop(), WithStreamURL(wsURL(server)))
	if err != nil {
		t.Fatalf("NewLive error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := make(chan market.Tick, 1)
	go func() { _ = live.Run(ctx, ticks) }()

	select {
	case tick := <-ticks:
		if tick.Symbol != "btcusdt" {
			t.Fatalf("unexpected symbol %s", tick.Symbol)
		}
		if tick.Bid != 100.5 || tick.Ask != 101.5 || tick.BidQty != 2 || tick.AskQty != 3 {
			t.Fatalf("unexpected tick %+v", tick)
		}
		if tick.TsMs != 1700000000000 {
			t.Fatalf("unexpected ts %d", tick.TsMs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
	}

	latest, ok := live.Book().Get("btcusdt")
	if !ok || latest.Bid != 100.5 {
		t.Fatalf("expected book updated, got %+v ok=%v", latest, ok)
	}
}

func TestLiveSkipsMalformedMessages(t *testing.T) {
	server := wsServer(t, []string{
		"not json",
		`{"stream":"btcusdt@bookTicker","data":{"s":"BTCUSDT","b":"oops","a":"101"}}`,
		validFrame,
	})
	defer server.Close()

	live, err := NewLive([]string{"btcusdt"}, zerolog.Nop(), WithStreamURL(wsURL(server)))
	if err != nil {
		t.Fatalf("NewLive error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := make(chan market.Tick, 4)
	go func() { _ = live.Run(ctx, ticks) }()

	select {
	case tick := <-ticks:
		if tick.Bid != 100.5 {
			t.Fatalf("expected only the valid frame to survive, got %+v", tick)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
	}
}

func TestLiveReconnectsAfterDisconnect(t *testing.T) {
	upgrader := websocket.Upgrader{}
	connects := make(chan struct{}, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connects <- struct{}{}
		conn.WriteMessage(websocket.TextMessage, []byte(validFrame))
		conn.Close() // force the client to reconnect
	}))
	defer server.Close()

	backoff := &Backoff{Base: 10 * time.Millisecond, Multiplier: 2, Max: 50 * time.Millisecond}
	live, err := NewLive([]string{"btcusdt"}, zerolog.Nop(), WithStreamURL(wsURL(server)), WithBackoff(backoff))
	if err != nil {
		t.Fatalf("NewLive error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := make(chan market.Tick, 16)
	go func() { _ = live.Run(ctx, ticks) }()

	for i := 0; i < 2; i++ {
		select {
		case <-connects:
		case <-time.After(3 * time.Second):
			t.Fatalf("expected reconnect %d", i+1)
		}
	}
}

func TestLiveCancellationStopsRun(t *testing.T) {
	server := wsServer(t, nil)
	defer server.Close()

	live, err := NewLive([]string{"btcusdt"}, zerolog.Nop(), WithStreamURL(wsURL(server)))
	if err != nil {
		t.Fatalf("NewLive error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- live.Run(ctx, make(chan market.Tick)) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("live feed did not stop after cancel")
	}
}

func TestLiveRequiresSymbols(t *testing.T) {
	if _, err := NewLive(nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for empty symbol list")
	}
}

func TestLiveStreamURL(t *testing.T) {
	live, err := NewLive([]string{"BTCUSDT", "ethusdt"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLive error: %v", err)
	}
	want := defaultStreamURL + "?streams=btcusdt@bookTicker/ethusdt@bookTicker"
	if got := live.streamURL(); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
