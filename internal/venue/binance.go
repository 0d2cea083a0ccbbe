// Package venue places real orders on an exchange over signed REST.
package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/henryp-7/hft-bot/internal/execution"
)

const defaultBaseURL = "https://api.binance.com"

// BinanceExec is a very small subset of the Binance Spot REST API: just
// enough to place MARKET and LIMIT orders with an HMAC-SHA256 signed
// query string.
type BinanceExec struct {
	apiKey    string
	apiSecret []byte
	base      string
	http      *http.Client
}

// Option configures BinanceExec construction.
type Option func(*BinanceExec)

// WithBaseURL points the client at a different endpoint (testnet, tests).
func WithBaseURL(base string) Option {
	return func(b *BinanceExec) {
		if base != "" {
			b.base = strings.TrimSuffix(base, "/")
		}
	}
}

// NewBinanceExec validates credentials and returns a client. Missing keys
// are a configuration error: live trading cannot start without them.
func NewBinanceExec(apiKey, apiSecret string, opts ...Option) (*BinanceExec, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("live trading requires venue API key and secret")
	}
	b := &BinanceExec{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		base:      defaultBaseURL,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *BinanceExec) sign(qs string) string {
	mac := hmac.New(sha256.New, b.apiSecret)
	mac.Write([]byte(qs))
	return hex.EncodeToString(mac.Sum(nil))
}

type orderResponse struct {
	OrderID          int64  `json:"orderId"`
	ExecutedQty      string `json:"executedQty"`
	CummulativeQuote string `json:"cummulativeQuoteQty"`
}

// PlaceOrder submits the order and maps the venue response to a fill.
// Market-order prices are recovered from the executed quote quantity when
// the venue reports one; otherwise the order's own price is used.
func (b *BinanceExec) PlaceOrder(ctx context.Context, order execution.OrderRequest) (*execution.Fill, error) {
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(order.Symbol))
	params.Set("side", string(order.Side))
	params.Set("type", string(order.Type))
	params.Set("quantity", strconv.FormatFloat(abs(order.Qty), 'f', 10, 64))
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	if order.ClientID != "" {
		params.Set("newClientOrderId", order.ClientID)
	}
	if order.Type == execution.Limit {
		params.Set("price", strconv.FormatFloat(order.Price, 'f', 8, 64))
		params.Set("timeInForce", "GTC")
	}

	qs := params.Encode()
	endpoint := fmt.Sprintf("%s/api/v3/order?%s&signature=%s", b.base, qs, b.sign(qs))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", b.apiKey)

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, fmt.Errorf("venue order error: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode venue response: %w", err)
	}

	px := order.Price
	if order.Type == execution.Market {
		cqq, err1 := strconv.ParseFloat(data.CummulativeQuote, 64)
		qty, err2 := strconv.ParseFloat(data.ExecutedQty, 64)
		if err1 == nil && err2 == nil && qty > 0 {
			px = cqq / qty
		}
	}

	qty := abs(order.Qty)
	if order.Side == execution.Sell {
		qty = -qty
	}
	return &execution.Fill{
		Symbol:   order.Symbol,
		Side:     order.Side,
		Qty:      qty,
		Price:    px,
		TsMs:     time.Now().UnixMilli(),
		ClientID: order.ClientID,
		OrderID:  strconv.FormatInt(data.OrderID, 10),
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
