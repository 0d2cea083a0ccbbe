// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Feed selects and tunes the tick source.
type Feed struct {
	Mode      string   `yaml:"mode"` // "live" or "replay"
	Symbols   []string `yaml:"symbols"`
	StreamURL string   `yaml:"stream_url"`
	Backoff   Backoff  `yaml:"backoff"`
	Replay    Replay   `yaml:"replay"`
}

// Backoff exposes the live reconnect schedule as configuration.
type Backoff struct {
	BaseMs     int     `yaml:"base_ms"`
	Multiplier float64 `yaml:"multiplier"`
	MaxMs      int     `yaml:"max_ms"`
}

// Replay configures historical playback.
type Replay struct {
	SearchRoots []string `yaml:"search_roots"`
	Dataset     string   `yaml:"dataset"`
	Speedup     float64  `yaml:"speedup"`
	LoopForever bool     `yaml:"loop_forever"`
}

// Risk encodes the pre-trade notional caps.
type Risk struct {
	MaxNotionalPerSymbol float64 `yaml:"max_notional_per_symbol"`
	MaxTotalNotional     float64 `yaml:"max_total_notional"`
}

// Paper captures paper-trading settings.
type Paper struct {
	InitialCash float64 `yaml:"initial_cash"`
	QuoteCcy    string  `yaml:"quote_ccy"`
	SlippageBps float64 `yaml:"slippage_bps"`
	FillsPath   string  `yaml:"fills_path"`
}

// StrategyParams groups tunable knobs for a strategy implementation.
type StrategyParams struct {
	TargetGrossFrac    float64 `yaml:"target_gross_frac"`
	OBIThreshold       float64 `yaml:"obi_threshold"`
	MomLookback        int     `yaml:"mom_lookback"`
	MomThreshold       float64 `yaml:"mom_threshold"`
	TradeFrac          float64 `yaml:"trade_frac"`
	CooldownSec        float64 `yaml:"cooldown_sec"`
	MaxPosMult         float64 `yaml:"max_pos_mult"`
	MinTradeNotional   float64 `yaml:"min_trade_notional"`
	RebalanceDriftFrac float64 `yaml:"rebalance_drift_frac"`
}

// Strategy specifies which strategy is active along with the parameter bundle.
type Strategy struct {
	Mode   string         `yaml:"mode"`
	Params StrategyParams `yaml:"params"`
}

// Storage points the CSV sink at a directory.
type Storage struct {
	Root string `yaml:"root"`
}

// Venue configures the live order endpoint; credentials come from the
// environment, never from the YAML file.
type Venue struct {
	BaseURL string `yaml:"base_url"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Feed     Feed     `yaml:"feed"`
	Risk     Risk     `yaml:"risk"`
	Paper    Paper    `yaml:"paper"`
	Strategy Strategy `yaml:"strategy"`
	Storage  Storage  `yaml:"storage"`
	Venue    Venue    `yaml:"venue"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
