// Package storage persists ticks and fills as append-only CSV rows.
// Writes are fire-and-forget: a failed append never rolls back in-memory
// state, it is simply reported to the caller to log.
package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/henryp-7/hft-bot/internal/execution"
	"github.com/henryp-7/hft-bot/internal/market"
)

// Sink is the append-only persistence contract consumed by the engine.
type Sink interface {
	AppendTick(tick market.Tick) error
	AppendFill(fill execution.Fill) error
}

// CSVStore writes one tick file per symbol plus a shared fills file,
// creating each file with a header row on first use.
type CSVStore struct {
	mu        sync.Mutex
	root      string
	tickFiles map[string]struct{}
	fillsInit bool
}

// NewCSVStore ensures the root directory exists.
func NewCSVStore(root string) (*CSVStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &CSVStore{root: root, tickFiles: make(map[string]struct{})}, nil
}

// AppendTick writes one tick row to the symbol's file.
func (s *CSVStore) AppendTick(tick market.Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.root, "ticks_"+tick.Symbol+".csv")
	if _, ok := s.tickFiles[tick.Symbol]; !ok {
		if err := ensureHeader(path, []string{"ts_ms", "symbol", "bid", "ask", "bid_qty", "ask_qty"}); err != nil {
			return err
		}
		s.tickFiles[tick.Symbol] = struct{}{}
	}
	return appendRow(path, []string{
		strconv.FormatInt(tick.TsMs, 10),
		tick.Symbol,
		formatFloat(tick.Bid),
		formatFloat(tick.Ask),
		formatFloat(tick.BidQty),
		formatFloat(tick.AskQty),
	})
}

// AppendFill writes one fill row to the shared fills file.
func (s *CSVStore) AppendFill(fill execution.Fill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.root, "fills.csv")
	if !s.fillsInit {
		if err := ensureHeader(path, []string{"ts_ms", "symbol", "side", "qty", "price", "client_id", "order_id"}); err != nil {
			return err
		}
		s.fillsInit = true
	}
	return appendRow(path, []string{
		strconv.FormatInt(fill.TsMs, 10),
		fill.Symbol,
		string(fill.Side),
		formatFloat(fill.Qty),
		formatFloat(fill.Price),
		fill.ClientID,
		fill.OrderID,
	})
}

func ensureHeader(path string, header []string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()
	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func appendRow(path string, row []string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	w := csv.NewWriter(file)
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
