package captions

import (
	"strings"
	"testing"
	"time"

	"github.com/supoclip/supoclip/internal/types"
)

func words(ms ...[2]int) []types.WordTiming {
	out := make([]types.WordTiming, len(ms))
	for i, m := range ms {
		out[i] = types.WordTiming{
			Text:       "w" + string(rune('a'+i)),
			StartMS:    m[0],
			EndMS:      m[1],
			Confidence: 1,
		}
	}
	return out
}

func TestBuild_EmptyWordsYieldsEmpty(t *testing.T) {
	t.Parallel()

	if got := Build(nil, types.TimeWindow{Start: 0, End: 10}, DefaultPolicy()); got != nil {
		t.Fatalf("expected nil spans, got %v", got)
	}
	if got := Build([]types.WordTiming{}, types.TimeWindow{Start: 0, End: 10}, DefaultPolicy()); got != nil {
		t.Fatalf("expected nil spans, got %v", got)
	}
}

func TestBuild_GroupsThreeWordsPerCaption(t *testing.T) {
	t.Parallel()

	w := words(
		[2]int{5000, 5400}, [2]int{5400, 5900}, [2]int{6000, 6500},
		[2]int{6600, 7100}, [2]int{7200, 7700},
	)
	spans := Build(w, types.TimeWindow{Start: 5, End: 20}, DefaultPolicy())
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Text != "wa wb wc" {
		t.Fatalf("unexpected first span text %q", spans[0].Text)
	}
	if spans[0].Start != 0 || spans[0].End != 1500*time.Millisecond {
		t.Fatalf("unexpected first span timing %s-%s", spans[0].Start, spans[0].End)
	}
	if spans[1].Text != "wd we" {
		t.Fatalf("unexpected trailing span text %q", spans[1].Text)
	}
}

func TestBuild_RebasesAndClampsToWindow(t *testing.T) {
	t.Parallel()

	// First word starts before the window, last ends past it.
	w := words([2]int{4500, 5500}, [2]int{5600, 6000}, [2]int{9500, 10400})
	spans := Build(w, types.TimeWindow{Start: 5, End: 10}, DefaultPolicy())
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Start != 0 {
		t.Fatalf("expected clamped start 0, got %s", spans[0].Start)
	}
	if spans[0].End != 5*time.Second {
		t.Fatalf("expected clamped end 5s, got %s", spans[0].End)
	}
}

func TestBuild_DropsOutOfWindowWords(t *testing.T) {
	t.Parallel()

	w := words([2]int{0, 900}, [2]int{20000, 21000})
	spans := Build(w, types.TimeWindow{Start: 5, End: 10}, DefaultPolicy())
	if len(spans) != 0 {
		t.Fatalf("expected no spans for non-overlapping words, got %d", len(spans))
	}
}

func TestBuild_DiscardsSubMinimumSpans(t *testing.T) {
	t.Parallel()

	// A 50ms flash of noise.
	w := words([2]int{5000, 5050})
	spans := Build(w, types.TimeWindow{Start: 5, End: 10}, DefaultPolicy())
	if len(spans) != 0 {
		t.Fatalf("expected sub-minimum span discarded, got %d", len(spans))
	}
}

func TestBuild_PolicyWordCount(t *testing.T) {
	t.Parallel()

	w := words([2]int{0, 400}, [2]int{500, 900}, [2]int{1000, 1400}, [2]int{1500, 1900})
	pol := DefaultPolicy()
	pol.WordsPerCaption = 2
	spans := Build(w, types.TimeWindow{Start: 0, End: 10}, pol)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans with 2-word policy, got %d", len(spans))
	}
}

func TestPlace_LowerThird(t *testing.T) {
	t.Parallel()

	crop := types.CropRegion{X: 0, Y: 0, Width: 606, Height: 1080}
	p := Place(crop, DefaultPolicy())
	if p.FontSize != 42 {
		t.Fatalf("expected font 42 for width 606, got %d", p.FontSize)
	}
	if p.PosX != 303 {
		t.Fatalf("expected horizontal center 303, got %d", p.PosX)
	}
	want := int(0.75*1080) - 42/2
	if p.PosY != want {
		t.Fatalf("expected PosY %d, got %d", want, p.PosY)
	}
	if p.PosY >= crop.Height {
		t.Fatalf("caption placed off-frame: %d", p.PosY)
	}
}

func TestRenderASS(t *testing.T) {
	t.Parallel()

	crop := types.CropRegion{Width: 606, Height: 1080}
	spans := []Span{
		{Text: "hello there world", Start: 0, End: 1200 * time.Millisecond},
		{Text: "with {braces}", Start: 2 * time.Second, End: 3 * time.Second},
	}
	ass := RenderASS(spans, crop, DefaultPolicy())

	if !strings.Contains(ass, "PlayResX: 606") || !strings.Contains(ass, "PlayResY: 1080") {
		t.Fatalf("play resolution missing:\n%s", ass)
	}
	if strings.Count(ass, "Dialogue:") != 2 {
		t.Fatalf("expected 2 dialogue events:\n%s", ass)
	}
	if !strings.Contains(ass, "Dialogue: 0,0:00:00.00,0:00:01.20,Caption") {
		t.Fatalf("unexpected event timing:\n%s", ass)
	}
	if !strings.Contains(ass, "{\\pos(303,") {
		t.Fatalf("expected positioned captions:\n%s", ass)
	}
	if strings.Contains(ass, "{braces}") {
		t.Fatalf("braces must be sanitized:\n%s", ass)
	}
}

func TestAssTime_Format(t *testing.T) {
	t.Parallel()

	if got := assTime(61*time.Second + 234*time.Millisecond); got != "0:01:01.23" {
		t.Fatalf("unexpected assTime: %s", got)
	}
	if got := assTime(-time.Second); got != "0:00:00.00" {
		t.Fatalf("negative times clamp to zero, got %s", got)
	}
}
