package config

import "testing"

func TestNewDefaultConfig(t *testing.T) {
	c := NewDefaultConfig()
	if c.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, c.LogLevel)
	}
	if c.MaxClockSkewMillis != DefaultMaxClockSkewMillis {
		t.Fatalf("expected default skew %d, got %d", DefaultMaxClockSkewMillis, c.MaxClockSkewMillis)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.LogLevel != DefaultLogLevel {
		t.Fatalf("expected defaults when no config file present, got %q", c.LogLevel)
	}
}

func TestLogLevelParsing(t *testing.T) {
	cases := map[string]string{
		"debug": "debug",
		"info":  "info",
		"bogus": "debug",
	}
	for in, want := range cases {
		got := LogLevel(in).String()
		if got != want {
			t.Fatalf("LogLevel(%q) = %q, want %q", in, got, want)
		}
	}
}
