// Package captions groups word-level transcription timing into short
// on-screen caption spans for one clip and computes their placement
// inside the crop region.
package captions

import (
	"strings"
	"time"

	"github.com/supoclip/supoclip/internal/types"
)

// Policy tunes caption batching. Fixed-size word groups are deliberate:
// short, readable flashes of text beat sentence-aware grouping for
// vertical short-form layouts. Natural-break segmentation can be swapped
// in here without touching call sites.
type Policy struct {
	WordsPerCaption int
	MinSpan         time.Duration
	// FontScale is the caption font size as a share of output width.
	FontScale float64
}

func DefaultPolicy() Policy {
	return Policy{
		WordsPerCaption: 3,
		MinSpan:         100 * time.Millisecond,
		FontScale:       0.07,
	}
}

func (p Policy) normalized() Policy {
	if p.WordsPerCaption <= 0 {
		p.WordsPerCaption = 3
	}
	if p.MinSpan <= 0 {
		p.MinSpan = 100 * time.Millisecond
	}
	if p.FontScale <= 0 {
		p.FontScale = 0.07
	}
	return p
}

// Span is one caption: a few words and their timing relative to the
// clip's own start, not the source video.
type Span struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Build filters words to those overlapping the clip window, re-bases their
// timing to clip-local offsets, and batches them into spans. Empty word
// data yields an empty result, never an error: the renderer then proceeds
// without captions.
func Build(words []types.WordTiming, window types.TimeWindow, pol Policy) []Span {
	pol = pol.normalized()

	dur := time.Duration(window.Duration() * float64(time.Second))
	if dur <= 0 {
		return nil
	}

	local := collectWords(words, window, dur)
	if len(local) == 0 {
		return nil
	}

	var out []Span
	for i := 0; i < len(local); i += pol.WordsPerCaption {
		j := i + pol.WordsPerCaption
		if j > len(local) {
			j = len(local)
		}
		batch := local[i:j]
		span := Span{
			Text:  joinWords(batch),
			Start: batch[0].start,
			End:   batch[len(batch)-1].end,
		}
		if span.End-span.Start < pol.MinSpan {
			continue
		}
		out = append(out, span)
	}
	return out
}

type localWord struct {
	start time.Duration
	end   time.Duration
	text  string
}

func collectWords(words []types.WordTiming, window types.TimeWindow, dur time.Duration) []localWord {
	base := time.Duration(window.Start * float64(time.Second))
	var out []localWord
	for _, w := range words {
		ws := time.Duration(w.StartMS) * time.Millisecond
		we := time.Duration(w.EndMS) * time.Millisecond
		winEnd := base + dur
		if ws >= winEnd || we <= base {
			continue
		}
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		ls := clampDur(ws-base, 0, dur)
		le := clampDur(we-base, 0, dur)
		out = append(out, localWord{start: ls, end: le, text: text})
	}
	return out
}

func joinWords(batch []localWord) string {
	parts := make([]string, len(batch))
	for i, w := range batch {
		parts[i] = w.text
	}
	return strings.Join(parts, " ")
}

// Placement positions a caption inside the crop: fixed font scaled to
// output width, anchored at 75% of frame height minus half the rendered
// text height (lower-third, not bottom-edge), horizontally centered.
type Placement struct {
	FontSize int
	PosX     int
	PosY     int
}

func Place(crop types.CropRegion, pol Policy) Placement {
	pol = pol.normalized()
	font := int(float64(crop.Width) * pol.FontScale)
	if font < 12 {
		font = 12
	}
	return Placement{
		FontSize: font,
		PosX:     crop.Width / 2,
		PosY:     int(0.75*float64(crop.Height)) - font/2,
	}
}

func clampDur(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
