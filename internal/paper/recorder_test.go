package paper

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"

	"github.com/henryp-7/hft-bot/internal/execution"
)

func TestJSONLRecorder(t *testing.T) {
	tmp := t.TempDir()
	path := tmp + "/fills.jsonl"

	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	fill := execution.Fill{Symbol: "btcusdt", Side: execution.Buy, Qty: 1, Price: 1000, TsMs: 7}
	recorder.Record(fill)
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatalf("expected one line in recorder output")
	}
	var decoded execution.Fill
	if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if decoded.Symbol != fill.Symbol || decoded.Side != fill.Side || decoded.TsMs != fill.TsMs {
		t.Fatalf("unexpected decoded fill")
	}
}

func TestJSONLRecorderClosedIsInert(t *testing.T) {
	recorder, err := NewJSONLRecorder(t.TempDir() + "/fills.jsonl")
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Records after close are dropped and a second close is a no-op.
	recorder.Record(execution.Fill{Symbol: "btcusdt", Qty: 1})
	if err := recorder.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
}
