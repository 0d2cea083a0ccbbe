// Package execution defines order lifecycle payloads shared by the paper
// simulator and live venue connectors.
package execution

// Side enumerates order directions.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "BUY"
	// Sell indicates a short order.
	Sell Side = "SELL"
)

// OrderType enumerates supported order types.
type OrderType string

const (
	// Market orders fill against the current top of book.
	Market OrderType = "MARKET"
	// Limit orders fill only when their price crosses the spread.
	Limit OrderType = "LIMIT"
)

// OrderRequest represents a placement request produced by a strategy.
type OrderRequest struct {
	Symbol   string
	Side     Side
	Type     OrderType
	Qty      float64 // base asset quantity, always positive
	Price    float64 // required for LIMIT, ignored for MARKET
	ClientID string
}

// Fill records an executed order. Qty is signed: positive for buys,
// negative for sells. Fills are the only mutator of portfolio state.
type Fill struct {
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Qty      float64 `json:"qty"`
	Price    float64 `json:"price"`
	TsMs     int64   `json:"ts_ms"`
	ClientID string  `json:"client_id,omitempty"`
	OrderID  string  `json:"order_id,omitempty"`
}

// Notional returns the absolute trade value in quote currency.
func (f Fill) Notional() float64 {
	qty := f.Qty
	if qty < 0 {
		qty = -qty
	}
	return qty * f.Price
}
