package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimal = `
environment: test
audit:
  backend: log
markets:
  - symbol: GC
    point_value: 100
    group: metals
  - symbol: CL
    point_value: 1000
`

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Engine.RiskPercent != 0.005 {
		t.Fatalf("risk_percent = %v, want 0.005", c.Engine.RiskPercent)
	}
	if c.Engine.MaxUnitsPerMarket != 4 || c.Engine.MaxUnitsPerGroup != 6 || c.Engine.MaxUnitsTotal != 12 {
		t.Fatalf("unit caps = %d/%d/%d, want 4/6/12",
			c.Engine.MaxUnitsPerMarket, c.Engine.MaxUnitsPerGroup, c.Engine.MaxUnitsTotal)
	}
	if c.Engine.LimitMode != "UNIT_COUNT" {
		t.Fatalf("limit_mode = %q, want UNIT_COUNT", c.Engine.LimitMode)
	}
	if c.Engine.MonitorInterval != 60*time.Second {
		t.Fatalf("monitor_interval = %v, want 60s", c.Engine.MonitorInterval)
	}
	h, m := c.ScanClock()
	if h != 21 || m != 30 {
		t.Fatalf("scan clock = %02d:%02d, want 21:30", h, m)
	}
}

func TestLoadRejectsEmptyUniverse(t *testing.T) {
	if _, err := Load(writeConfig(t, "environment: test\naudit:\n  backend: log\n")); err == nil {
		t.Fatal("expected validation error for empty markets")
	}
}

func TestLoadRejectsDuplicateMarket(t *testing.T) {
	body := minimal + "  - symbol: GC\n    point_value: 100\n"
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected duplicate market error")
	}
}

func TestLoadRejectsBadScanTime(t *testing.T) {
	body := minimal + "engine:\n  scan_time: \"25:99\"\n"
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected scan_time error")
	}
}

func TestLoadRejectsBadLimitMode(t *testing.T) {
	body := minimal + "engine:\n  limit_mode: BOTH\n"
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected limit_mode error")
	}
}

func TestKafkaBackendNeedsBrokers(t *testing.T) {
	body := `
environment: test
audit:
  backend: kafka
markets:
  - symbol: GC
    point_value: 100
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected broker requirement error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	c, err := LoadWithEnv(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Redis.Addr != "redis.internal:6379" {
		t.Fatalf("redis addr = %q", c.Redis.Addr)
	}
}
