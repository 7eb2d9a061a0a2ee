// Package llmselect asks a chat model to pick the most engaging
// time-ranged segments from the transcript. The model sees a
// subtitle-style rendering with MM:SS ranges and must answer in the same
// format; everything it returns is re-validated before use, since models
// routinely emit identical or out-of-order timestamps.
package llmselect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/supoclip/supoclip/internal/domain/timecode"
	"github.com/supoclip/supoclip/internal/types"
)

const (
	defaultModel   = "gpt-4.1-mini"
	requestTimeout = 90 * time.Second

	// Transcript lines break on word count or on a silence gap.
	wordsPerLine = 12
	lineGap      = 1500 * time.Millisecond

	minSegmentSeconds = 5.0
	minSegmentWords   = 3
)

const systemPrompt = `You are an expert at analyzing video transcripts to find the most engaging segments for short-form content creation.

Selection criteria: strong hooks, valuable or surprising content, emotional moments, complete self-contained thoughts.

Timestamp requirements:
- Use EXACT timestamps as they appear in the transcript, in MM:SS format.
- start_time MUST be strictly less than end_time, at least 10 seconds apart.
- Segments should be 10-45 seconds long, on natural content boundaries.

Return 3-7 segments. Quality over quantity.`

type Adapter struct {
	client openai.Client
	model  string
	logf   func(format string, args ...any)
}

func New(apiKey, baseURL, model string, logf func(string, ...any)) *Adapter {
	if model == "" {
		model = defaultModel
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	return &Adapter{client: openai.NewClient(clientOpts...), model: model, logf: logf}
}

func (a *Adapter) Select(ctx context.Context, words []types.WordTiming, maxClips int) ([]types.Segment, error) {
	if maxClips <= 0 || len(words) == 0 {
		return nil, nil
	}

	transcript := TranscriptLines(words)
	userPrompt := "Analyze this video transcript and identify the most engaging segments for standalone social clips.\n\nTranscript:\n" + transcript

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       a.model,
		Temperature: openai.Float(0.3),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "segment_selection",
					Strict: openai.Bool(true),
					Schema: segmentSchema(),
				},
			},
		},
	}

	resp, err := a.client.Chat.Completions.New(reqCtx, params)
	if err != nil && shouldFallbackJSONMode(err) {
		// Some gateways reject json_schema; json_object plus strict
		// validation below covers them.
		a.logf("segment selection: json_schema unsupported, retrying with json_object")
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
		resp, err = a.client.Chat.Completions.New(reqCtx, params)
	}
	if err != nil {
		return nil, fmt.Errorf("segment selection request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("segment selection: empty response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	clean, err := extractJSONObject(content)
	if err != nil {
		return nil, fmt.Errorf("segment selection: %w", err)
	}

	var out struct {
		Segments []types.Segment `json:"segments"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("segment selection: parse response: %w", err)
	}

	valid := ValidateSegments(out.Segments, maxClips, a.logf)
	if len(valid) == 0 {
		return nil, errors.New("segment selection: no valid segments returned")
	}
	return valid, nil
}

// TranscriptLines renders word timings as subtitle-style lines the model
// can quote timestamps from: "[MM:SS - MM:SS] text".
func TranscriptLines(words []types.WordTiming) string {
	var b strings.Builder
	var line []string
	var lineStart, lineEnd int

	flush := func() {
		if len(line) == 0 {
			return
		}
		fmt.Fprintf(&b, "[%s - %s] %s\n",
			timecode.Format(float64(lineStart)/1000),
			timecode.Format(float64(lineEnd)/1000),
			strings.Join(line, " "))
		line = line[:0]
	}

	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		gap := time.Duration(w.StartMS-lineEnd) * time.Millisecond
		if len(line) >= wordsPerLine || (len(line) > 0 && gap > lineGap) {
			flush()
		}
		if len(line) == 0 {
			lineStart = w.StartMS
		}
		line = append(line, text)
		lineEnd = w.EndMS
	}
	flush()
	return b.String()
}

// ValidateSegments drops segments with malformed, identical, or
// too-close timestamps and near-empty text, keeps the maxClips most
// relevant, and returns them in timeline order.
func ValidateSegments(segs []types.Segment, maxClips int, logf func(string, ...any)) []types.Segment {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	valid := make([]types.Segment, 0, len(segs))
	for _, s := range segs {
		start, errS := timecode.Parse(s.StartTime)
		end, errE := timecode.Parse(s.EndTime)
		if errS != nil || errE != nil {
			logf("segment selection: dropping segment with malformed timestamps %q-%q", s.StartTime, s.EndTime)
			continue
		}
		if end-start < minSegmentSeconds {
			logf("segment selection: dropping segment %s-%s, duration %.1fs below minimum", s.StartTime, s.EndTime, end-start)
			continue
		}
		if len(strings.Fields(s.Text)) < minSegmentWords {
			logf("segment selection: dropping segment %s-%s with insufficient text", s.StartTime, s.EndTime)
			continue
		}
		valid = append(valid, s)
	}

	sort.SliceStable(valid, func(i, j int) bool { return valid[i].RelevanceScore > valid[j].RelevanceScore })
	if len(valid) > maxClips {
		valid = valid[:maxClips]
	}
	// Render order follows the source timeline, not relevance.
	sort.SliceStable(valid, func(i, j int) bool {
		si, _ := timecode.Parse(valid[i].StartTime)
		sj, _ := timecode.Parse(valid[j].StartTime)
		return si < sj
	})
	return valid
}

func segmentSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"segments": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"start_time":      map[string]any{"type": "string"},
						"end_time":        map[string]any{"type": "string"},
						"text":            map[string]any{"type": "string"},
						"relevance_score": map[string]any{"type": "number"},
						"reasoning":       map[string]any{"type": "string"},
					},
					"required":             []string{"start_time", "end_time", "text", "relevance_score", "reasoning"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"segments"},
		"additionalProperties": false,
	}
}

func shouldFallbackJSONMode(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "json_schema") ||
		strings.Contains(msg, "response_format") ||
		(strings.Contains(msg, "unsupported") && strings.Contains(msg, "schema"))
}

func extractJSONObject(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object in model output")
	}
	return s[start : end+1], nil
}
