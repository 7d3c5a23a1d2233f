package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaultsWhenDefaultFileMissing(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("got %+v, want defaults", cfg)
	}
	if cfg.BusyTimeout() != 5*time.Second {
		t.Fatalf("busy timeout %v", cfg.BusyTimeout())
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	path := writeConfig(t, "dbPath: /tmp/from-file.db\nlogLevel: debug\nbusyTimeoutMs: 250\n")
	t.Setenv("LIBRARY_DB_PATH", "/tmp/from-env.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/from-env.db" {
		t.Fatalf("env should win, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != "debug" || cfg.BusyTimeoutMs != 250 {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.LogFormat != "text" {
		t.Fatalf("unset field should keep default, got %q", cfg.LogFormat)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"format":  "logFormat: xml\n",
		"level":   "logLevel: loud\n",
		"timeout": "busyTimeoutMs: -1\n",
		"yaml":    "dbPath: [unterminated\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadRejectsEmptyDBPathFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LIBRARY_DB_PATH", " ")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected dbPath validation error")
	}
}

func TestLoadRejectsBadEnvNumber(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LIBRARY_BUSY_TIMEOUT_MS", "soon")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected parse error")
	}
}
