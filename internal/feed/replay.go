package feed

import (
	"archive/zip"
	"container/heap"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/henryp-7/hft-bot/internal/market"
	"github.com/henryp-7/hft-bot/internal/metrics"
)

// ReplayConfig controls historical playback.
type ReplayConfig struct {
	Symbols     []string
	SearchRoots []string // directories scanned for matching files
	Dataset     string   // filename tag, e.g. "bookticker"
	Speedup     float64  // 0 disables pacing, otherwise wall-time divisor
	LoopForever bool     // restart exhausted symbols from their first file
}

// Replay merges per-symbol historical files into one globally
// non-decreasing-timestamp tick stream.
type Replay struct {
	cfg   ReplayConfig
	files map[string][]string
	log   zerolog.Logger
	book  *market.Book
}

// NewReplay resolves historical files for every symbol. A symbol with no
// matching files is a configuration error, reported before any playback
// starts.
func NewReplay(cfg ReplayConfig, log zerolog.Logger) (*Replay, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("replay feed requires at least one symbol")
	}
	if len(cfg.SearchRoots) == 0 {
		cfg.SearchRoots = []string{"./data/historical"}
	}
	if cfg.Dataset == "" {
		cfg.Dataset = "bookticker"
	}

	r := &Replay{
		cfg:   cfg,
		files: make(map[string][]string),
		log:   log,
		book:  market.NewBook(),
	}
	for _, sym := range cfg.Symbols {
		sym = strings.ToLower(strings.TrimSpace(sym))
		files := r.collectFiles(sym)
		if len(files) == 0 {
			return nil, fmt.Errorf(
				"no %s files found for symbol %q under %s (supports .csv and .zip)",
				cfg.Dataset, sym, strings.Join(cfg.SearchRoots, ", "))
		}
		r.files[sym] = files
	}
	return r, nil
}

// Book exposes the latest tick per symbol.
func (r *Replay) Book() *market.Book { return r.book }

func (r *Replay) collectFiles(symbol string) []string {
	var files []string
	dataset := strings.ToLower(r.cfg.Dataset)
	for _, root := range r.cfg.SearchRoots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			name := strings.ToLower(d.Name())
			if !strings.Contains(name, symbol) || !strings.Contains(name, dataset) {
				return nil
			}
			if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".zip") {
				return nil
			}
			files = append(files, path)
			return nil
		})
	}
	sort.Strings(files)
	return files
}

// mergeEntry is one heap slot: the head tick of a symbol's cursor.
type mergeEntry struct {
	tick   market.Tick
	symbol string
	cursor *symbolCursor
}

// tickHeap orders entries by (timestamp, symbol) for deterministic
// tie-breaks.
type tickHeap []*mergeEntry

func (h tickHeap) Len() int { return len(h) }
func (h tickHeap) Less(i, j int) bool {
	if h[i].tick.TsMs != h[j].tick.TsMs {
		return h[i].tick.TsMs < h[j].tick.TsMs
	}
	return h[i].symbol < h[j].symbol
}
func (h tickHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *tickHeap) Push(x any)   { *h = append(*h, x.(*mergeEntry)) }
func (h *tickHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}

// Run replays the merged stream. With Speedup > 0 the relative inter-tick
// timing is preserved, scaled by the factor; otherwise ticks are emitted
// as fast as the consumer drains them.
func (r *Replay) Run(ctx context.Context, out chan<- market.Tick) error {
	h := &tickHeap{}
	var cursors []*symbolCursor

	for sym, files := range r.files {
		cursor := newSymbolCursor(sym, files, r.log)
		cursors = append(cursors, cursor)
		if tick, ok := cursor.next(); ok {
			*h = append(*h, &mergeEntry{tick: tick, symbol: sym, cursor: cursor})
		} else {
			r.log.Warn().Str("symbol", sym).Msg("no tick data produced for symbol")
		}
	}
	defer func() {
		for _, cursor := range cursors {
			cursor.close()
		}
	}()

	if h.Len() == 0 {
		return fmt.Errorf("replay could not initialise any symbols: no ticks available")
	}
	heap.Init(h)
	lastTs := (*h)[0].tick.TsMs

	for h.Len() > 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		entry := heap.Pop(h).(*mergeEntry)
		tick := entry.tick

		if r.cfg.Speedup > 0 {
			if delay := tick.TsMs - lastTs; delay > 0 {
				wait := time.Duration(float64(delay)/r.cfg.Speedup) * time.Millisecond
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		lastTs = tick.TsMs

		metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()
		if err := emit(ctx, out, r.book, tick); err != nil {
			return err
		}

		next, ok := entry.cursor.next()
		if !ok && r.cfg.LoopForever {
			entry.cursor.reset()
			next, ok = entry.cursor.next()
		}
		if ok {
			entry.tick = next
			heap.Push(h, entry)
		}
	}
	return nil
}

// symbolCursor lazily iterates one symbol's files row by row, descending
// into zip archives and skipping rows that fail to parse.
type symbolCursor struct {
	symbol string
	files  []string
	log    zerolog.Logger

	fileIdx int
	zr      *zip.ReadCloser
	entries []*zip.File
	entry   int
	rc      io.ReadCloser
	fh      *os.File
	reader  *csv.Reader
	parser  rowParser
}

func newSymbolCursor(symbol string, files []string, log zerolog.Logger) *symbolCursor {
	return &symbolCursor{symbol: symbol, files: files, log: log}
}

func (c *symbolCursor) next() (market.Tick, bool) {
	for {
		if c.reader == nil {
			if !c.advance() {
				return market.Tick{}, false
			}
			continue
		}
		record, err := c.reader.Read()
		if err != nil {
			if err != io.EOF {
				c.log.Warn().Err(err).Str("symbol", c.symbol).Msg("csv read error, skipping rest of file")
			}
			c.closeCurrent()
			continue
		}
		if tick, ok := c.parser.parse(record, c.symbol); ok {
			return tick, true
		}
	}
}

// advance opens the next csv stream: either the next entry of the current
// zip, or the next file in the list.
func (c *symbolCursor) advance() bool {
	if c.zr != nil && c.entry < len(c.entries) {
		file := c.entries[c.entry]
		c.entry++
		rc, err := file.Open()
		if err != nil {
			c.log.Warn().Err(err).Str("archive", file.Name).Msg("failed to open zip entry")
			return c.advance()
		}
		c.rc = rc
		return c.startCSV(rc)
	}
	if c.zr != nil {
		c.zr.Close()
		c.zr = nil
		c.entries = nil
	}

	if c.fileIdx >= len(c.files) {
		return false
	}
	path := c.files[c.fileIdx]
	c.fileIdx++

	if strings.HasSuffix(strings.ToLower(path), ".zip") {
		zr, err := zip.OpenReader(path)
		if err != nil {
			c.log.Warn().Err(err).Str("path", path).Msg("failed to open archive")
			return c.advance()
		}
		c.zr = zr
		c.entries = c.entries[:0]
		for _, f := range zr.File {
			if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
				c.entries = append(c.entries, f)
			}
		}
		sort.Slice(c.entries, func(i, j int) bool { return c.entries[i].Name < c.entries[j].Name })
		c.entry = 0
		return c.advance()
	}

	fh, err := os.Open(path)
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("failed to open file")
		return c.advance()
	}
	c.fh = fh
	return c.startCSV(fh)
}

func (c *symbolCursor) startCSV(r io.Reader) bool {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", c.symbol).Msg("missing csv header")
		c.closeCurrent()
		return c.advance()
	}
	c.reader = reader
	c.parser = newRowParser(header)
	return true
}

func (c *symbolCursor) closeCurrent() {
	c.reader = nil
	if c.rc != nil {
		c.rc.Close()
		c.rc = nil
	}
	if c.fh != nil {
		c.fh.Close()
		c.fh = nil
	}
}

func (c *symbolCursor) close() {
	c.closeCurrent()
	if c.zr != nil {
		c.zr.Close()
		c.zr = nil
	}
}

func (c *symbolCursor) reset() {
	c.close()
	c.entries = nil
	c.entry = 0
	c.fileIdx = 0
}
