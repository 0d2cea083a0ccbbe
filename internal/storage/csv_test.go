package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/henryp-7/hft-bot/internal/execution"
	"github.com/henryp-7/hft-bot/internal/market"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestAppendTickWritesHeaderOnce(t *testing.T) {
	root := t.TempDir()
	store, err := NewCSVStore(root)
	if err != nil {
		t.Fatalf("NewCSVStore: %v", err)
	}

	ticks := []market.Tick{
		{Symbol: "btcusdt", Bid: 100, Ask: 100.5, BidQty: 2, AskQty: 3, TsMs: 1700000000000},
		{Symbol: "btcusdt", Bid: 100.1, Ask: 100.6, BidQty: 1, AskQty: 4, TsMs: 1700000000100},
	}
	for _, tick := range ticks {
		if err := store.AppendTick(tick); err != nil {
			t.Fatalf("AppendTick: %v", err)
		}
	}

	rows := readCSV(t, filepath.Join(root, "ticks_btcusdt.csv"))
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "ts_ms" || rows[0][1] != "symbol" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "1700000000000" || rows[1][2] != "100" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
}

func TestAppendTickSplitsFilesPerSymbol(t *testing.T) {
	root := t.TempDir()
	store, err := NewCSVStore(root)
	if err != nil {
		t.Fatalf("NewCSVStore: %v", err)
	}

	if err := store.AppendTick(market.Tick{Symbol: "btcusdt", Bid: 100, Ask: 101, TsMs: 1}); err != nil {
		t.Fatalf("AppendTick: %v", err)
	}
	if err := store.AppendTick(market.Tick{Symbol: "ethusdt", Bid: 50, Ask: 51, TsMs: 2}); err != nil {
		t.Fatalf("AppendTick: %v", err)
	}

	for _, name := range []string{"ticks_btcusdt.csv", "ticks_ethusdt.csv"} {
		rows := readCSV(t, filepath.Join(root, name))
		if len(rows) != 2 {
			t.Fatalf("%s: expected header plus 1 row, got %d", name, len(rows))
		}
	}
}

func TestAppendFill(t *testing.T) {
	root := t.TempDir()
	store, err := NewCSVStore(root)
	if err != nil {
		t.Fatalf("NewCSVStore: %v", err)
	}

	fill := execution.Fill{
		Symbol:   "btcusdt",
		Side:     execution.Sell,
		Qty:      -0.25,
		Price:    100.5,
		TsMs:     1700000000000,
		ClientID: "abc123",
		OrderID:  "42",
	}
	if err := store.AppendFill(fill); err != nil {
		t.Fatalf("AppendFill: %v", err)
	}

	rows := readCSV(t, filepath.Join(root, "fills.csv"))
	if len(rows) != 2 {
		t.Fatalf("expected header plus 1 row, got %d", len(rows))
	}
	row := rows[1]
	if row[1] != "btcusdt" || row[2] != string(execution.Sell) {
		t.Fatalf("unexpected fill row %v", row)
	}
	if row[3] != "-0.25" || row[4] != "100.5" {
		t.Fatalf("unexpected qty/price %v", row)
	}
	if row[5] != "abc123" || row[6] != "42" {
		t.Fatalf("unexpected ids %v", row)
	}
}

func TestAppendSurvivesExistingFiles(t *testing.T) {
	root := t.TempDir()

	first, err := NewCSVStore(root)
	if err != nil {
		t.Fatalf("NewCSVStore: %v", err)
	}
	if err := first.AppendTick(market.Tick{Symbol: "btcusdt", Bid: 100, Ask: 101, TsMs: 1}); err != nil {
		t.Fatalf("AppendTick: %v", err)
	}

	// A fresh store over the same root appends without rewriting the header.
	second, err := NewCSVStore(root)
	if err != nil {
		t.Fatalf("NewCSVStore: %v", err)
	}
	if err := second.AppendTick(market.Tick{Symbol: "btcusdt", Bid: 102, Ask: 103, TsMs: 2}); err != nil {
		t.Fatalf("AppendTick: %v", err)
	}

	rows := readCSV(t, filepath.Join(root, "ticks_btcusdt.csv"))
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
}
