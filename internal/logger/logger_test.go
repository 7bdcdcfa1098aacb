package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	log.Debug("hidden")
	log.Info("opened", "build", "11855.07.08.20.2317.halo3_ship")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at info level: %s", out)
	}
	if !strings.Contains(out, `"build":"11855.07.08.20.2317.halo3_ship"`) {
		t.Errorf("missing attribute: %s", out)
	}
}

func TestPretty(t *testing.T) {
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelDebug).With("cache", "guardian.map").WithGroup("tag")
	log.Debug("read metadata", "class", "scnr", "path", "levels\\multi\\guardian")

	out := buf.String()
	for _, want := range []string{"read metadata", "cache=guardian.map", "tag.class=scnr", "tag.path=levels\\multi\\guardian"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}

func TestDiscard(t *testing.T) {
	Discard().With("k", "v").Error("dropped")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"WARNING", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q): err %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q): got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSetup(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Setup(&buf, "xml", "info"); err == nil {
		t.Error("expected error for unknown format")
	}
	log, err := Setup(&buf, FormatText, "warn")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	log.Info("quiet")
	log.Warn("loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), JSON(&buf, slog.LevelInfo))
	FromContext(ctx).Info("from context")
	if !strings.Contains(buf.String(), "from context") {
		t.Errorf("context logger not used: %s", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext returned nil without a stored logger")
	}
}
