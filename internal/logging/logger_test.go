package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	lvl := new(slog.LevelVar)
	lvl.Set(level)
	return slog.New(newConsoleHandler(buf, lvl, false)), buf
}

func TestConsoleHandlerFormatsLine(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)
	logger = NewComponentLogger(logger, "dispatcher")

	logger.Info("converted file",
		String(FieldSourcePath, "/watch/x.csv"),
		Int("rows", 3),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO dispatcher: converted file") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "source=/watch/x.csv") {
		t.Fatalf("missing source attr: %q", line)
	}
	if !strings.Contains(line, "rows=3") {
		t.Fatalf("missing rows attr: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)

	logger.Warn("parse failed", String("detail", "bad header row"))

	if !strings.Contains(buf.String(), `detail="bad header row"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelWarn)

	logger.Info("should not appear")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("info line leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("ignored", Error(nil))
}
