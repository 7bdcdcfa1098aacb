package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "log_level: debug\nlanguage: de-DE\nserver_address: 0.0.0.0:9000\nresources: /opt/blam\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := loadConfigFile(path)
	if cfg.LogLevel != "debug" || cfg.Language != "de-DE" {
		t.Errorf("got %+v", cfg)
	}
	if cfg.ServerAddress != "0.0.0.0:9000" || cfg.Resources != "/opt/blam" {
		t.Errorf("got %+v", cfg)
	}

	if got := loadConfigFile(filepath.Join(dir, "missing.yaml")); got != (Config{}) {
		t.Errorf("missing file: got %+v", got)
	}

	if err := os.WriteFile(path, []byte("log_level: [\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := loadConfigFile(path); got != (Config{}) {
		t.Errorf("invalid yaml: got %+v", got)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want int32
		err  bool
	}{
		{"42", 42, false},
		{"0x2A", 42, false},
		{"0xFFFFFFFF", -1, false},
		{"globals", 0, true},
	}
	for _, tt := range tests {
		got, err := parseID(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("parseID(%q) = %d, %v", tt.in, got, err)
		}
	}
}
