// Package market standardizes payloads shared between data ingestion and strategy layers.
package market

// Tick is a top-of-book snapshot for one symbol at one instant.
type Tick struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	BidQty float64 `json:"bid_qty"`
	AskQty float64 `json:"ask_qty"`
	TsMs   int64   `json:"ts_ms"`
}

// Mid returns the midpoint between best bid and best ask.
func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2.0
}

// OBI returns the top-of-book order imbalance in [-1, 1].
func (t Tick) OBI() float64 {
	denom := t.BidQty + t.AskQty
	if denom <= 0 {
		return 0
	}
	return (t.BidQty - t.AskQty) / denom
}
