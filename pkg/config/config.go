package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Market is one tradeable instrument in the configured universe.
type Market struct {
	Symbol     string  `yaml:"symbol" validate:"required"`
	PointValue float64 `yaml:"point_value" default:"1" validate:"gt=0"`
	Group      string  `yaml:"group"` // correlation group, optional
}

// Engine carries the decision-engine parameters. Defaults follow the
// published rule set; every value is overridable per deployment.
type Engine struct {
	RiskPercent          float64 `yaml:"risk_percent" default:"0.005" validate:"gt=0,lte=0.1"`
	StopMultiplier       float64 `yaml:"stop_multiplier" default:"2.0" validate:"gt=0"`
	PyramidIntervalN     float64 `yaml:"pyramid_interval_n" default:"0.5" validate:"gt=0"`
	MaxUnitsPerMarket    int     `yaml:"max_units_per_market" default:"4" validate:"gte=1"`
	MaxUnitsPerGroup     int     `yaml:"max_units_per_group" default:"6" validate:"gte=1"`
	LimitMode            string  `yaml:"limit_mode" default:"UNIT_COUNT" validate:"oneof=UNIT_COUNT RISK_CAP"`
	MaxUnitsTotal        int     `yaml:"max_units_total" default:"12" validate:"gte=1"`
	MaxTotalRiskPct      float64 `yaml:"max_total_risk_pct" default:"0.20" validate:"gt=0,lte=1"`
	DrawdownThresholdPct float64 `yaml:"drawdown_threshold_pct" default:"0.10" validate:"gt=0,lt=1"`
	DrawdownReductionPct float64 `yaml:"drawdown_reduction_pct" default:"0.20" validate:"gt=0,lt=1"`
	DrawdownFloorPct     float64 `yaml:"drawdown_floor_pct" default:"0" validate:"gte=0,lt=1"`
	VolatilityPeriod     int     `yaml:"volatility_period" default:"20" validate:"gte=2"`
	LoserToleranceN      float64 `yaml:"loser_tolerance_n" default:"0.5" validate:"gte=0"`

	MonitorInterval time.Duration `yaml:"monitor_interval" default:"60s"`
	ScanTime        string        `yaml:"scan_time" default:"21:30"` // UTC HH:MM, after the daily close
	EntryOnClose    bool          `yaml:"entry_on_close" default:"true"`
}

// Config is the full engine configuration.
type Config struct {
	Environment string `yaml:"environment" default:"development"`

	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`

	Engine  Engine   `yaml:"engine"`
	Markets []Market `yaml:"markets" validate:"min=1,dive"`

	Audit struct {
		Backend string `yaml:"backend" default:"clickhouse" validate:"oneof=clickhouse kafka log"`
	} `yaml:"audit"`

	Kafka struct {
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"turtle.audit"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"turtle"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`

	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" default:"0"`
	} `yaml:"redis"`

	Feed struct {
		URL            string        `yaml:"url"`
		RESTURL        string        `yaml:"rest_url"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		WarmupDays     int           `yaml:"warmup_days" default:"56" validate:"gte=0"`
		MaxTicksPerSec int           `yaml:"max_ticks_per_sec" default:"20" validate:"gte=0"`
	} `yaml:"feed"`

	Execution struct {
		Mode        string  `yaml:"mode" default:"paper" validate:"oneof=paper"`
		SlippageBps float64 `yaml:"slippage_bps" default:"0" validate:"gte=0"`
	} `yaml:"execution"`
}

// Load reads, defaults, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides secrets and endpoints
// with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	return c, nil
}

// Validate checks field constraints and cross-field consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if _, err := parseScanTime(c.Engine.ScanTime); err != nil {
		return err
	}
	if c.Engine.DrawdownFloorPct > 0 && c.Engine.DrawdownFloorPct > 1-c.Engine.DrawdownReductionPct {
		// A floor above the reduced multiplier would never engage; treat it
		// as a configuration mistake.
		return fmt.Errorf("drawdown_floor_pct %.2f exceeds reduced multiplier %.2f",
			c.Engine.DrawdownFloorPct, 1-c.Engine.DrawdownReductionPct)
	}

	seen := make(map[string]bool, len(c.Markets))
	for _, m := range c.Markets {
		if seen[m.Symbol] {
			return fmt.Errorf("duplicate market %q", m.Symbol)
		}
		seen[m.Symbol] = true
	}

	switch c.Audit.Backend {
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("audit backend kafka requires kafka.brokers")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("audit backend clickhouse requires clickhouse.host")
		}
	}
	return nil
}

// ScanClock returns the configured daily scan time as hour and minute (UTC).
func (c *Config) ScanClock() (hour, minute int) {
	hour, minute, _ = splitScanTime(c.Engine.ScanTime)
	return hour, minute
}

func parseScanTime(s string) (time.Time, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("scan_time %q: want HH:MM, %w", s, err)
	}
	return t, nil
}

func splitScanTime(s string) (int, int, error) {
	t, err := parseScanTime(s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
