package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/henryp-7/hft-bot/internal/market"
	"github.com/henryp-7/hft-bot/internal/metrics"
)

// LiveOption configures Live construction parameters.
type LiveOption func(*Live)

// WithBackoff overrides the default reconnect schedule.
func WithBackoff(b *Backoff) LiveOption {
	return func(l *Live) {
		if b != nil {
			l.backoff = b
		}
	}
}

// WithStreamURL overrides the websocket endpoint (tests, testnet).
func WithStreamURL(url string) LiveOption {
	return func(l *Live) {
		if url != "" {
			l.baseURL = url
		}
	}
}

// Live streams real-time bookTicker data over a persistent websocket,
// reconnecting forever on any failure.
type Live struct {
	symbols []string
	baseURL string
	backoff *Backoff
	log     zerolog.Logger
	book    *market.Book
}

const defaultStreamURL = "wss://stream.binance.com:9443/stream"

// NewLive constructs a live source for the given symbols.
func NewLive(symbols []string, log zerolog.Logger, opts ...LiveOption) (*Live, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("live feed requires at least one symbol")
	}
	lower := make([]string, len(symbols))
	for i, sym := range symbols {
		lower[i] = strings.ToLower(strings.TrimSpace(sym))
	}
	l := &Live{
		symbols: lower,
		baseURL: defaultStreamURL,
		backoff: DefaultBackoff(),
		log:     log,
		book:    market.NewBook(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Book exposes the latest tick per symbol.
func (l *Live) Book() *market.Book { return l.book }

func (l *Live) streamURL() string {
	streams := make([]string, len(l.symbols))
	for i, sym := range l.symbols {
		streams[i] = sym + "@bookTicker"
	}
	return fmt.Sprintf("%s?streams=%s", l.baseURL, strings.Join(streams, "/"))
}

// Run consumes the combined stream until ctx is canceled. Every failure
// short of cancellation is retried with exponential backoff.
func (l *Live) Run(ctx context.Context, out chan<- market.Tick) error {
	url := l.streamURL()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := l.consume(ctx, url, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.FeedReconnects.Inc()
		wait := l.backoff.Next()
		l.log.Warn().Err(err).Dur("backoff", wait).Msg("feed disconnected, retrying")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Live) consume(ctx context.Context, url string, out chan<- market.Tick) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	l.log.Info().Strs("symbols", l.symbols).Msg("connected market data feed")
	l.backoff.Reset()

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	// Tear the connection down as soon as the consumer cancels so the
	// blocking read below unwinds instead of waiting out its deadline.
	go func() {
		<-pingCtx.Done()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		tick, ok := l.parseMessage(message)
		if !ok {
			continue
		}
		metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()
		if err := emit(ctx, out, l.book, tick); err != nil {
			return err
		}
	}
}

type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type bookTickerEvent struct {
	Symbol    string `json:"s"`
	BidPrice  string `json:"b"`
	BidQty    string `json:"B"`
	AskPrice  string `json:"a"`
	AskQty    string `json:"A"`
	EventTime int64  `json:"E"`
	TradeTime int64  `json:"T"`
}

func (l *Live) parseMessage(message []byte) (market.Tick, bool) {
	var env streamEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		l.log.Warn().Err(err).Msg("failed to decode feed message")
		return market.Tick{}, false
	}
	payload := env.Data
	if len(payload) == 0 {
		// Single-stream endpoints deliver the event without an envelope.
		payload = message
	}

	var ev bookTickerEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		l.log.Warn().Err(err).Msg("failed to decode book ticker event")
		return market.Tick{}, false
	}
	if ev.Symbol == "" {
		return market.Tick{}, false
	}

	bid, err1 := strconv.ParseFloat(ev.BidPrice, 64)
	ask, err2 := strconv.ParseFloat(ev.AskPrice, 64)
	if err1 != nil || err2 != nil {
		l.log.Warn().Str("symbol", ev.Symbol).Msg("invalid price in book ticker event")
		return market.Tick{}, false
	}
	bidQty, _ := strconv.ParseFloat(ev.BidQty, 64)
	askQty, _ := strconv.ParseFloat(ev.AskQty, 64)

	ts := ev.EventTime
	if ts == 0 {
		ts = ev.TradeTime
	}
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	return market.Tick{
		Symbol: strings.ToLower(ev.Symbol),
		Bid:    bid,
		Ask:    ask,
		BidQty: bidQty,
		AskQty: askQty,
		TsMs:   ts,
	}, true
}
