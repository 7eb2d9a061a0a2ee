// Package whisperapi transcribes a source's audio through the hosted
// whisper API, returning word-level timings. Results are cached upstream
// by the transcript store, so this runs once per source video.
package whisperapi

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"github.com/supoclip/supoclip/internal/types"
)

type Adapter struct {
	client openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Adapter {
	if model == "" {
		model = "whisper-1"
	}
	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	return &Adapter{client: openai.NewClient(clientOpts...), model: model}
}

// Transcribe sends the audio file and extracts word timings from the
// verbose response. Words come back ordered by start time; the API is
// trusted for monotonicity but sorted anyway since downstream batching
// assumes it.
func (a *Adapter) Transcribe(ctx context.Context, mediaPath string) ([]types.WordTiming, error) {
	f, err := os.Open(mediaPath)
	if err != nil {
		return nil, fmt.Errorf("open audio %s: %w", mediaPath, err)
	}
	defer f.Close()

	resp, err := a.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           f,
		Model:          openai.AudioModel(a.model),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"word"},
	})
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}

	words := parseWords(resp.RawJSON())
	sort.SliceStable(words, func(i, j int) bool { return words[i].StartMS < words[j].StartMS })
	return words, nil
}

// parseWords pulls the word array out of the raw verbose JSON. The typed
// response omits fields some gateways add, so the raw body is the source
// of truth here.
func parseWords(raw string) []types.WordTiming {
	var out []types.WordTiming
	gjson.Get(raw, "words").ForEach(func(_, w gjson.Result) bool {
		text := strings.TrimSpace(w.Get("word").String())
		if text == "" {
			return true
		}
		conf := w.Get("probability").Float()
		if conf == 0 {
			conf = 1
		}
		out = append(out, types.WordTiming{
			Text:       text,
			StartMS:    int(w.Get("start").Float() * 1000),
			EndMS:      int(w.Get("end").Float() * 1000),
			Confidence: conf,
		})
		return true
	})
	return out
}
