package llmselect

import (
	"strings"
	"testing"

	"github.com/supoclip/supoclip/internal/types"
)

func TestTranscriptLines(t *testing.T) {
	t.Parallel()

	words := []types.WordTiming{
		{Text: "hello", StartMS: 5000, EndMS: 5400},
		{Text: "world", StartMS: 5500, EndMS: 5900},
		// 3s silence gap forces a new line.
		{Text: "next", StartMS: 9000, EndMS: 9300},
		{Text: "thought", StartMS: 9400, EndMS: 9900},
	}
	got := TranscriptLines(words)
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), got)
	}
	if lines[0] != "[00:05 - 00:05] hello world" {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if lines[1] != "[00:09 - 00:09] next thought" {
		t.Fatalf("unexpected second line %q", lines[1])
	}
}

func TestTranscriptLines_BreaksOnWordBudget(t *testing.T) {
	t.Parallel()

	var words []types.WordTiming
	for i := 0; i < 30; i++ {
		words = append(words, types.WordTiming{
			Text:    "w",
			StartMS: i * 500,
			EndMS:   i*500 + 400,
		})
	}
	got := TranscriptLines(words)
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines of up to %d words, got %d", wordsPerLine, len(lines))
	}
}

func TestValidateSegments(t *testing.T) {
	t.Parallel()

	segs := []types.Segment{
		{StartTime: "00:05", EndTime: "00:20", Text: "a solid complete thought", RelevanceScore: 0.8},
		{StartTime: "02:25", EndTime: "02:25", Text: "identical timestamps get dropped", RelevanceScore: 0.99},
		{StartTime: "01:00", EndTime: "01:02", Text: "too short to keep around", RelevanceScore: 0.9},
		{StartTime: "bogus", EndTime: "00:30", Text: "malformed start timestamp here", RelevanceScore: 0.9},
		{StartTime: "03:00", EndTime: "03:30", Text: "ok", RelevanceScore: 0.9},
		{StartTime: "00:40", EndTime: "00:55", Text: "another good one right here", RelevanceScore: 0.95},
	}
	got := ValidateSegments(segs, 10, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 valid segments, got %d: %+v", len(got), got)
	}
	// Timeline order, not relevance order.
	if got[0].StartTime != "00:05" || got[1].StartTime != "00:40" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestValidateSegments_CapsByRelevance(t *testing.T) {
	t.Parallel()

	segs := []types.Segment{
		{StartTime: "00:00", EndTime: "00:15", Text: "first candidate segment text", RelevanceScore: 0.5},
		{StartTime: "01:00", EndTime: "01:15", Text: "second candidate segment text", RelevanceScore: 0.9},
		{StartTime: "02:00", EndTime: "02:15", Text: "third candidate segment text", RelevanceScore: 0.7},
	}
	got := ValidateSegments(segs, 2, nil)
	if len(got) != 2 {
		t.Fatalf("expected cap at 2, got %d", len(got))
	}
	// The 0.5 segment loses; survivors are back in timeline order.
	if got[0].StartTime != "01:00" || got[1].StartTime != "02:00" {
		t.Fatalf("unexpected survivors: %+v", got)
	}
}

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	in := "```json\n{\"segments\": []}\n```"
	got, err := extractJSONObject(in)
	if err != nil {
		t.Fatal(err)
	}
	if got != `{"segments": []}` {
		t.Fatalf("unexpected extraction %q", got)
	}

	if _, err := extractJSONObject("no braces here"); err == nil {
		t.Fatalf("expected error for missing object")
	}
}

func TestShouldFallbackJSONMode(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"response_format not supported": true,
		"invalid json_schema":           true,
		"unsupported schema type":       true,
		"rate limit exceeded":           false,
		"context deadline exceeded":     false,
	}
	for msg, want := range tests {
		if got := shouldFallbackJSONMode(errStr(msg)); got != want {
			t.Fatalf("shouldFallbackJSONMode(%q) = %v, want %v", msg, got, want)
		}
	}
}

type errStr string

func (e errStr) Error() string { return string(e) }
