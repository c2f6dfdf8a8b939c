package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.yml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Clock.FrequencyMHz != 100 {
		t.Fatalf("default clock = %v MHz, want 100", cfg.Clock.FrequencyMHz)
	}
	if cfg.Analysis.WindowSeconds != 60 || cfg.Analysis.AnomalyZScore != 3.0 {
		t.Fatalf("unexpected analysis defaults: %+v", cfg.Analysis)
	}
	if cfg.Clock.FrequencyHz() != 100_000_000 {
		t.Fatalf("FrequencyHz = %v, want 1e8", cfg.Clock.FrequencyHz())
	}
	if cfg.Clock.PeriodNs() != 10 {
		t.Fatalf("PeriodNs = %v, want 10", cfg.Clock.PeriodNs())
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
version: 1
clock:
  frequency_mhz: 200
analysis:
  window_seconds: 30
  anomaly_zscore: 2.5
udp:
  enabled: true
  addr: "127.0.0.1:7000"
  format: v1.2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Clock.FrequencyMHz != 200 {
		t.Fatalf("clock = %v, want 200", cfg.Clock.FrequencyMHz)
	}
	if cfg.Analysis.WindowSeconds != 30 || cfg.Analysis.AnomalyZScore != 2.5 {
		t.Fatalf("analysis not overridden: %+v", cfg.Analysis)
	}
	// fields absent from the file keep defaults
	if cfg.Analysis.BucketSeconds != 1 {
		t.Fatalf("bucket_seconds = %v, want default 1", cfg.Analysis.BucketSeconds)
	}
	if cfg.UDP.Addr != "127.0.0.1:7000" || cfg.UDP.Format != "v1.2" {
		t.Fatalf("udp section wrong: %+v", cfg.UDP)
	}
}

func TestEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_WS_URL", "ws://dashboard:8081/ingest")
	path := writeConfig(t, `
websocket:
  enabled: true
  url: ${TEST_WS_URL}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Websocket.URL != "ws://dashboard:8081/ingest" {
		t.Fatalf("url = %q, env var not substituted", cfg.Websocket.URL)
	}
}

func TestUnsetEnvVarLeftAsWritten(t *testing.T) {
	raw := substituteEnvVars([]byte("url: ${DEFINITELY_NOT_SET_12345}"))
	if string(raw) != "url: ${DEFINITELY_NOT_SET_12345}" {
		t.Fatalf("unset var rewritten: %q", raw)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	path := writeConfig(t, `
clock:
  frequency_mhz: -5
`)
	if _, err := Load(path); err == nil {
		t.Fatal("negative clock frequency accepted")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SENTINEL_UDP_ADDR", "0.0.0.0:7777")
	t.Setenv("SENTINEL_WS_URL", "ws://other:9000/ingest")
	path := writeConfig(t, `
udp:
  enabled: true
  addr: "0.0.0.0:9999"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UDP.Addr != "0.0.0.0:7777" {
		t.Fatalf("udp addr = %q, env override not applied", cfg.UDP.Addr)
	}
	if !cfg.Websocket.Enabled || cfg.Websocket.URL != "ws://other:9000/ingest" {
		t.Fatalf("ws override not applied: %+v", cfg.Websocket)
	}
}

func TestMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("missing explicit config path accepted")
	}
}
