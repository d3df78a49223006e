package env

import "testing"

func TestGetPrefersBareKey(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("TABLESIDE_LOG_FORMAT", "json")
	if got := Get("LOG_FORMAT", "x"); got != "console" {
		t.Fatalf("expected bare key value, got %q", got)
	}
}

func TestGetFallsBackToPrefixedKey(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("TABLESIDE_LOG_FORMAT", "console")
	if got := Get("LOG_FORMAT", "json"); got != "console" {
		t.Fatalf("expected prefixed value, got %q", got)
	}
}

func TestGetFallback(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("TABLESIDE_LOG_FORMAT", "")
	if got := Get("LOG_FORMAT", "json"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
