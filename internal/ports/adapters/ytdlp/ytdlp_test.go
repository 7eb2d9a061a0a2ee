package ytdlp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestVideoID(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ": "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/abcdefghijk":  "abcdefghijk",
		"https://www.youtube.com/embed/abcdefghijk":   "abcdefghijk",
	}
	for url, want := range tests {
		if got := VideoID(url); got != want {
			t.Fatalf("VideoID(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestVideoID_FallsBackToHash(t *testing.T) {
	t.Parallel()

	a := VideoID("https://example.com/video.mp4")
	b := VideoID("https://example.com/video.mp4")
	c := VideoID("https://example.com/other.mp4")
	if a != b {
		t.Fatalf("hash id not stable: %q vs %q", a, b)
	}
	if a == c {
		t.Fatalf("distinct urls must not collide: %q", a)
	}
	if len(a) != 12 {
		t.Fatalf("unexpected id length %d", len(a))
	}
}

func TestFindDownloaded_SkipsSidecars(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Sidecars sort before the finished video; only the container counts.
	for _, name := range []string{"abc.mp4.part", "abc.mp4.16k.wav", "abc.webm"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := findDownloaded(dir, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "abc.webm" {
		t.Fatalf("findDownloaded picked %q, want abc.webm", got)
	}
}

func TestFindDownloaded_NoVideoIsAnError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "abc.mp4.part"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := findDownloaded(dir, "abc"); err == nil {
		t.Fatal("expected error when only sidecars exist")
	}
}
