package feed

import (
	"strconv"
	"strings"
	"time"

	"github.com/henryp-7/hft-bot/internal/market"
)

// Historical vendors disagree on column names, so each field is resolved
// against a prioritized list of recognized synonyms.
var (
	bidSynonyms    = []string{"bestbidprice", "bidprice", "bid", "best_bid_price", "bestbid", "b"}
	askSynonyms    = []string{"bestaskprice", "askprice", "ask", "best_ask_price", "bestask", "a"}
	bidQtySynonyms = []string{"bestbidqty", "bidqty", "bid_qty", "bid_quantity", "best_bid_qty", "bqty", "b_volume"}
	askQtySynonyms = []string{"bestaskqty", "askqty", "ask_qty", "ask_quantity", "best_ask_qty", "aqty", "a_volume"}
	tsSynonyms     = []string{"eventtime", "event_time", "timestamp", "ts_ms", "ts", "transacttime", "transact_time", "closetime", "close_time", "time"}
)

// rowParser resolves header columns once per file and converts records
// into ticks. Records missing a price or timestamp are dropped.
type rowParser struct {
	bid, ask, bidQty, askQty, ts, symbol int
}

func newRowParser(header []string) rowParser {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	find := func(synonyms []string) int {
		for _, name := range synonyms {
			if i, ok := index[name]; ok {
				return i
			}
		}
		return -1
	}
	p := rowParser{
		bid:    find(bidSynonyms),
		ask:    find(askSynonyms),
		bidQty: find(bidQtySynonyms),
		askQty: find(askQtySynonyms),
		ts:     find(tsSynonyms),
		symbol: -1,
	}
	if i, ok := index["symbol"]; ok {
		p.symbol = i
	}
	return p
}

func (p rowParser) parse(record []string, defaultSymbol string) (market.Tick, bool) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	bid, err1 := strconv.ParseFloat(field(p.bid), 64)
	ask, err2 := strconv.ParseFloat(field(p.ask), 64)
	bidQty, err3 := strconv.ParseFloat(field(p.bidQty), 64)
	askQty, err4 := strconv.ParseFloat(field(p.askQty), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return market.Tick{}, false
	}
	ts, ok := coerceTimestamp(field(p.ts))
	if !ok {
		return market.Tick{}, false
	}

	symbol := strings.ToLower(field(p.symbol))
	if symbol == "" {
		symbol = defaultSymbol
	}
	return market.Tick{
		Symbol: symbol,
		Bid:    bid,
		Ask:    ask,
		BidQty: bidQty,
		AskQty: askQty,
		TsMs:   ts,
	}, true
}

var textTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// coerceTimestamp normalizes epoch seconds, epoch milliseconds, and
// ISO-8601 strings to epoch milliseconds. Numeric values of 1e12 or more
// are treated as already-milliseconds; smaller values as seconds.
func coerceTimestamp(value string) (int64, bool) {
	text := strings.TrimSpace(value)
	if text == "" {
		return 0, false
	}

	if numeric, err := strconv.ParseFloat(text, 64); err == nil {
		if numeric != numeric { // NaN
			return 0, false
		}
		if numeric >= 1e12 {
			return int64(numeric), true
		}
		return int64(numeric * 1000), true
	}

	for _, layout := range textTimeLayouts {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}
