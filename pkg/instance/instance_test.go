package instance

import "testing"

func TestIDPrefersExplicitValue(t *testing.T) {
	t.Setenv("HOSTNAME", "pod-7")
	t.Setenv("DYNO", "")
	t.Setenv(EnvInstanceID, "")
	if got := ID(); got != "pod-7" {
		t.Fatalf("expected hostname fallback, got %q", got)
	}

	t.Setenv(EnvInstanceID, "api-1")
	if got := ID(); got != "api-1" {
		t.Fatalf("expected explicit id, got %q", got)
	}
}

func TestIDFallback(t *testing.T) {
	t.Setenv(EnvInstanceID, "")
	t.Setenv("DYNO", "")
	t.Setenv("HOSTNAME", "")
	if got := ID(); got != "local" {
		t.Fatalf("expected local, got %q", got)
	}
}
