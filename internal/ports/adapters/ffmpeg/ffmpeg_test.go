package ffmpeg

import (
	"strings"
	"testing"
	"time"

	"github.com/supoclip/supoclip/internal/domain/encoding"
	"github.com/supoclip/supoclip/internal/types"
)

func TestRenderFilter(t *testing.T) {
	t.Parallel()

	crop := types.CropRegion{X: 656, Y: 0, Width: 606, Height: 1080}

	if got := renderFilter(crop, ""); got != "crop=606:1080:656:0" {
		t.Fatalf("unexpected filter without captions: %s", got)
	}

	got := renderFilter(crop, "/runs/captions/clip_1.ass")
	if got != "crop=606:1080:656:0,subtitles=/runs/captions/clip_1.ass" {
		t.Fatalf("unexpected filter with captions: %s", got)
	}
}

func TestEscapeFilterPath(t *testing.T) {
	t.Parallel()

	if got := escapeFilterPath("/tmp/out/a.ass"); got != "/tmp/out/a.ass" {
		t.Fatalf("plain path changed: %s", got)
	}
	if got := escapeFilterPath(`C:\a.ass`); got != `C\:\\a.ass` {
		t.Fatalf("windows path not escaped: %s", got)
	}
}

func TestProfileArgs(t *testing.T) {
	t.Parallel()

	high, err := encoding.ByName("high")
	if err != nil {
		t.Fatal(err)
	}
	args := strings.Join(profileArgs(high), " ")
	for _, want := range []string{"-crf 20", "-maxrate 8M", "-b:a 256k", "-profile:v main", "-pix_fmt yuv420p"} {
		if !strings.Contains(args, want) {
			t.Fatalf("high profile args missing %q: %s", want, args)
		}
	}

	medium, err := encoding.ByName("medium")
	if err != nil {
		t.Fatal(err)
	}
	args = strings.Join(profileArgs(medium), " ")
	for _, want := range []string{"-crf 23", "-maxrate 4M", "-b:a 192k"} {
		if !strings.Contains(args, want) {
			t.Fatalf("medium profile args missing %q: %s", want, args)
		}
	}

	// Zero value falls back to the default profile instead of emitting
	// empty codec args.
	args = strings.Join(profileArgs(encoding.Profile{}), " ")
	if !strings.Contains(args, "-crf 20") {
		t.Fatalf("zero profile should default: %s", args)
	}
}

func TestTransitionFilter(t *testing.T) {
	t.Parallel()

	f := transitionFilter(15.0, 1.5, 500*time.Millisecond, 606, 1080)
	for _, want := range []string{
		"fade=t=out:st=14.500:d=0.500",
		"trim=duration=1.500",
		"scale=606:1080",
		"fade=t=in:st=0:d=0.500",
		"concat=n=3:v=1:a=1",
	} {
		if !strings.Contains(f, want) {
			t.Fatalf("transition filter missing %q:\n%s", want, f)
		}
	}

	// Clips shorter than the fade start fading at zero, not negative.
	f = transitionFilter(0.3, 1.0, 500*time.Millisecond, 606, 1080)
	if !strings.Contains(f, "fade=t=out:st=0.000") {
		t.Fatalf("expected clamped fade start:\n%s", f)
	}
}

func TestFmtSeconds(t *testing.T) {
	t.Parallel()

	if got := fmtSeconds(1500 * time.Millisecond); got != "1.500" {
		t.Fatalf("fmtSeconds = %s", got)
	}
	if got := fmtSecondsF(12.3456); got != "12.346" {
		t.Fatalf("fmtSecondsF = %s", got)
	}
}
