package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"", LevelInfo},
		{"INFO", LevelInfo},
		{" warning ", LevelWarn},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestStdLogger_FiltersBelowMinimum(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "ring", LevelWarn)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("collision at %x", 42)
	l.Errorf("boom")

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[ring] WARN collision at 2a") {
		t.Errorf("missing warn line in %q", out)
	}
	if !strings.Contains(out, "[ring] ERROR boom") {
		t.Errorf("missing error line in %q", out)
	}

	buf.Reset()
	l.SetLevel(LevelDebug)
	l.Debugf("now visible")
	if !strings.Contains(buf.String(), "DEBUG now visible") {
		t.Errorf("expected debug after SetLevel, got %q", buf.String())
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Debugf("x")
	l.Infof("x")
	l.Warnf("x")
	l.Errorf("x")
}
