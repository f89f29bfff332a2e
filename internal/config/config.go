// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Trading fixes the symbol, sizing, and loop cadence for the process.
type Trading struct {
	Symbol         string  `yaml:"symbol"`
	Volume         float64 `yaml:"volume"`
	WindowSize     int     `yaml:"window_size"`
	BatchSize      int     `yaml:"batch_size"`
	LookbackSecs   int     `yaml:"lookback_secs"`
	IntervalSecs   int     `yaml:"interval_secs"`
	Iterations     int     `yaml:"iterations"`
	SlopeThreshold float64 `yaml:"slope_threshold"`
}

// Stop selects the stop-sizing policy and its parameters.
type Stop struct {
	Policy         string  `yaml:"policy"`
	Multiplier     float64 `yaml:"multiplier"`
	VarianceFloor  float64 `yaml:"variance_floor"`
	MinStopDefault float64 `yaml:"min_stop_default"`
}

// Broker describes the venue connection and its reliability envelope.
type Broker struct {
	Provider          string  `yaml:"provider"`
	GatewayURL        string  `yaml:"gateway_url"`
	StreamURL         string  `yaml:"stream_url"`
	TimeoutMs         int     `yaml:"timeout_ms"`
	RateLimit         float64 `yaml:"rate_limit"`
	MaxRetries        int     `yaml:"max_retries"`
	BreakAfter        int     `yaml:"break_after"`
	CooldownSecs      int     `yaml:"cooldown_secs"`
	DefaultStopsLevel int     `yaml:"default_stops_level"`
	DefaultPoint      float64 `yaml:"default_point"`
}

// Logs locates the append-only CSV outputs.
type Logs struct {
	TickPath     string `yaml:"tick_path"`
	DecisionPath string `yaml:"decision_path"`
	OrderPath    string `yaml:"order_path"`
}

// Risk encodes guard-rails applied before submission.
type Risk struct {
	MaxVolumePerOrder float64 `yaml:"max_volume_per_order"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App     `yaml:"app"`
	Trading Trading `yaml:"trading"`
	Stop    Stop    `yaml:"stop"`
	Broker  Broker  `yaml:"broker"`
	Logs    Logs    `yaml:"logs"`
	Risk    Risk    `yaml:"risk"`
}

// Load reads a YAML file from disk and hydrates a Config struct with
// defaults filled in for optional leaves.
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
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.App.MetricsAddr == "" {
		c.App.MetricsAddr = ":9101"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Trading.Volume == 0 {
		c.Trading.Volume = 0.01
	}
	if c.Trading.WindowSize == 0 {
		c.Trading.WindowSize = 30
	}
	if c.Trading.BatchSize == 0 {
		c.Trading.BatchSize = 200
	}
	if c.Trading.LookbackSecs == 0 {
		c.Trading.LookbackSecs = 120
	}
	if c.Trading.IntervalSecs == 0 {
		c.Trading.IntervalSecs = 30
	}
	if c.Trading.Iterations == 0 {
		c.Trading.Iterations = 100
	}
	if c.Trading.SlopeThreshold == 0 {
		c.Trading.SlopeThreshold = 0.0001
	}
	if c.Stop.Policy == "" {
		c.Stop.Policy = "stdev_multiple"
	}
	if c.Stop.Multiplier == 0 {
		c.Stop.Multiplier = 2.0
	}
	if c.Stop.VarianceFloor == 0 {
		c.Stop.VarianceFloor = 30.0
	}
	if c.Stop.MinStopDefault == 0 {
		c.Stop.MinStopDefault = 0.0005
	}
	if c.Broker.Provider == "" {
		c.Broker.Provider = "stub"
	}
	if c.Broker.TimeoutMs == 0 {
		c.Broker.TimeoutMs = 5000
	}
	if c.Broker.RateLimit == 0 {
		c.Broker.RateLimit = 10
	}
	if c.Broker.BreakAfter == 0 {
		c.Broker.BreakAfter = 3
	}
	if c.Broker.CooldownSecs == 0 {
		c.Broker.CooldownSecs = 60
	}
	if c.Logs.TickPath == "" {
		c.Logs.TickPath = "raw_tick_data.csv"
	}
	if c.Logs.DecisionPath == "" {
		c.Logs.DecisionPath = "tick_data.csv"
	}
	if c.Logs.OrderPath == "" {
		c.Logs.OrderPath = "order_data.csv"
	}
}

// Validate rejects configurations the loop cannot run with.
func (c *Config) Validate() error {
	if c.Trading.Symbol == "" {
		return fmt.Errorf("config: trading.symbol is required")
	}
	if c.Trading.WindowSize < 2 {
		return fmt.Errorf("config: trading.window_size must be at least 2")
	}
	if c.Trading.Volume <= 0 {
		return fmt.Errorf("config: trading.volume must be positive")
	}
	if c.Trading.IntervalSecs <= 0 {
		return fmt.Errorf("config: trading.interval_secs must be positive")
	}
	if c.Trading.Iterations <= 0 {
		return fmt.Errorf("config: trading.iterations must be positive")
	}
	if c.Trading.SlopeThreshold <= 0 {
		return fmt.Errorf("config: trading.slope_threshold must be positive")
	}
	switch c.Stop.Policy {
	case "stdev_multiple", "variance_floor", "raw_variance":
	default:
		return fmt.Errorf("config: unknown stop.policy %q", c.Stop.Policy)
	}
	if c.Broker.Provider == "gateway" && c.Broker.GatewayURL == "" {
		return fmt.Errorf("config: broker.gateway_url is required for the gateway provider")
	}
	return nil
}
