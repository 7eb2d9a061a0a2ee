package pigoface

import "testing"

func TestNormalizeQuality(t *testing.T) {
	t.Parallel()

	if got := normalizeQuality(10); got != 0.5 {
		t.Fatalf("normalizeQuality(10) = %v", got)
	}
	if got := normalizeQuality(100); got != 1.0 {
		t.Fatalf("scores above the ceiling must clamp: %v", got)
	}
}

func TestNew_MissingCascade(t *testing.T) {
	t.Parallel()

	if _, err := New("/nonexistent/cascade.bin"); err == nil {
		t.Fatal("expected error for missing cascade file")
	}
}
