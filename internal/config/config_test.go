package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(envDatabaseDSN, "")
	t.Setenv(envRedisAddr, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.GetDriver(); got != "sqlite" {
		t.Fatalf("driver = %q, want sqlite", got)
	}
	if got := cfg.GetDSN(); got != "data.db" {
		t.Fatalf("dsn = %q, want data.db", got)
	}
	if got := cfg.GetAtmosphericPressure(); got != 1.01325 {
		t.Fatalf("P_ATM = %v", got)
	}
	if got := cfg.GetCompressibilityFactor(); got != 0.0002 {
		t.Fatalf("CPF = %v", got)
	}
	if got := cfg.GetTaxRate(); got != 0.11 {
		t.Fatalf("tax = %v", got)
	}
	if got := cfg.GetDueDays(); got != 7 {
		t.Fatalf("due days = %d", got)
	}
	if got := cfg.GetDayNames()["Friday"]; got != "Jumat" {
		t.Fatalf("Friday = %q", got)
	}
	if got := cfg.GetTrackerCacheTTL(); got != 10*time.Minute {
		t.Fatalf("ttl = %v", got)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
database:
  driver: postgres
  dsn: postgres://file
billing:
  tax_rate: 0.12
  day_names:
    Monday: Lundi
    Someday: ignored
tracker_cache_ttl: 30s
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(envDatabaseDSN, "postgres://env")
	t.Setenv(envRedisAddr, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GetDriver() != "postgres" {
		t.Fatalf("driver = %q", cfg.GetDriver())
	}
	if cfg.GetDSN() != "postgres://env" {
		t.Fatalf("dsn = %q, want env override", cfg.GetDSN())
	}
	if cfg.GetTaxRate() != 0.12 {
		t.Fatalf("tax = %v", cfg.GetTaxRate())
	}
	names := cfg.GetDayNames()
	if names["Monday"] != "Lundi" || names["Tuesday"] != "Selasa" {
		t.Fatalf("day names = %v", names)
	}
	if _, ok := names["Someday"]; ok {
		t.Fatalf("unknown weekday leaked into table")
	}
	if cfg.GetTrackerCacheTTL() != 30*time.Second {
		t.Fatalf("ttl = %v", cfg.GetTrackerCacheTTL())
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(envDatabaseDSN, "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{Server: ServerConfig{Addr: ":9999"}}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.GetListenAddr() != ":9999" {
		t.Fatalf("addr = %q", got.GetListenAddr())
	}
}
