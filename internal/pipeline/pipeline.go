// Package pipeline wires adapters into the composition usecase and owns
// the run lifecycle: source resolution, transcription caching, segment
// selection, output layout, and the final manifest.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/supoclip/supoclip/internal/domain/captions"
	"github.com/supoclip/supoclip/internal/domain/encoding"
	"github.com/supoclip/supoclip/internal/ports"
	"github.com/supoclip/supoclip/internal/ports/adapters/ffmpeg"
	"github.com/supoclip/supoclip/internal/ports/adapters/llmselect"
	"github.com/supoclip/supoclip/internal/ports/adapters/onnxface"
	"github.com/supoclip/supoclip/internal/ports/adapters/pigoface"
	"github.com/supoclip/supoclip/internal/ports/adapters/whisperapi"
	"github.com/supoclip/supoclip/internal/ports/adapters/ytdlp"
	"github.com/supoclip/supoclip/internal/transcript"
	"github.com/supoclip/supoclip/internal/types"
	"github.com/supoclip/supoclip/internal/usecase"
)

type Config struct {
	// Source is a local file path or an http(s) URL to download.
	Source string
	OutDir string

	MaxClips     int
	ProfileName  string
	TargetRatio  float64
	CaptionWords int

	// TransitionsDir holds the mp4 transition assets; empty disables the
	// transition stage.
	TransitionsDir string

	// SegmentsFile bypasses LLM selection with a pre-made segment list.
	SegmentsFile string

	// CacheDir is the base directory for local artifacts (downloads,
	// audio, transcripts). If empty, defaults to ".cache".
	CacheDir string

	FFmpegPath  string
	FFprobePath string
	YtDlpPath   string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	LLMModel      string
	WhisperModel  string

	// Face detection is optional: missing model files degrade to center
	// crops, never to a failed run.
	FaceModelPath   string
	OnnxLibPath     string
	FaceCascadePath string

	Logf func(format string, args ...any)
}

func (c Config) Validate() error {
	if c.Source == "" {
		return errors.New("source is empty")
	}
	if !isURL(c.Source) {
		if _, err := os.Stat(c.Source); err != nil {
			return fmt.Errorf("stat source: %w", err)
		}
	}
	if c.MaxClips <= 0 {
		return fmt.Errorf("clips must be > 0")
	}
	if _, err := encoding.ByName(c.ProfileName); err != nil {
		return err
	}
	if c.SegmentsFile == "" && c.OpenAIAPIKey == "" {
		return errors.New("either an OpenAI API key or a segments file is required")
	}
	return nil
}

func Run(ctx context.Context, cfg Config) error {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	prof, err := encoding.ByName(cfg.ProfileName)
	if err != nil {
		return err
	}

	// adapters
	video := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	detectors, closeDetectors := buildDetectors(cfg, logf)
	defer closeDetectors()

	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	cacheDir := filepath.Join(baseCache, "runs", hash(cfg.Source))
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}
	logf("cache: %s", cacheDir)

	sourcePath, sourceTitle, err := resolveSource(ctx, cfg, cacheDir, logf)
	if err != nil {
		return err
	}

	var asr ports.Transcriber
	if cfg.OpenAIAPIKey != "" {
		asr = whisperapi.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.WhisperModel)
	}
	words := transcribe(ctx, video, asr, sourcePath, cacheDir, filepath.Join(baseCache, "transcripts"), logf)

	segments, err := selectSegments(ctx, cfg, words, logf)
	if err != nil {
		return err
	}
	logf("selected %d segments", len(segments))

	pool, err := transitionPool(cfg.TransitionsDir)
	if err != nil {
		return err
	}
	if len(pool) > 0 {
		logf("transition pool: %d assets", len(pool))
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOutDir := buildRunOutDir(outDir, sourcePath, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return err
	}
	logf("output run dir: %s", runOutDir)

	policy := captions.DefaultPolicy()
	if cfg.CaptionWords > 0 {
		policy.WordsPerCaption = cfg.CaptionWords
	}

	uc := usecase.New(usecase.Deps{Video: video, Detectors: detectors, Logf: logf})
	res, err := uc.Run(ctx, usecase.Input{
		SourcePath:     sourcePath,
		Segments:       segments,
		Words:          words,
		TransitionPool: pool,
		OutDir:         runOutDir,
		Profile:        prof,
		TargetRatio:    cfg.TargetRatio,
		CaptionPolicy:  policy,
	})
	if err != nil {
		return err
	}

	manifest := types.Manifest{
		Source:      cfg.Source,
		SourceTitle: sourceTitle,
		RunID:       uuid.NewString(),
		Requested:   res.Requested,
		Rendered:    res.Rendered,
		Clips:       res.Records,
	}
	b, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return err
	}
	logf("manifest written (%d/%d clips): %s", res.Rendered, res.Requested, manifestPath)
	return nil
}

// resolveSource downloads URL sources into the cache dir; local paths pass
// through untouched.
func resolveSource(ctx context.Context, cfg Config, cacheDir string, logf func(string, ...any)) (string, string, error) {
	if !isURL(cfg.Source) {
		return cfg.Source, "", nil
	}
	logf("downloading %s", cfg.Source)
	dl := ytdlp.New(cfg.YtDlpPath, logf)
	path, title, err := dl.Fetch(ctx, cfg.Source, cacheDir)
	if err != nil {
		return "", "", err
	}
	logf("downloaded to %s (%s)", path, title)
	return path, title, nil
}

// transcribe fills the word-timing store for the source. Failure is
// non-fatal: clips render without captions and, absent a segments file,
// selection will fail later with a clearer error.
func transcribe(ctx context.Context, video ports.VideoTool, asr ports.Transcriber, sourcePath, cacheDir, storeDir string, logf func(string, ...any)) []types.WordTiming {
	if asr == nil {
		return nil
	}
	store := transcript.NewStore(storeDir)
	words, err := store.GetOrFill(ctx, transcript.Key(sourcePath), func(ctx context.Context) ([]types.WordTiming, error) {
		// Scratch audio lives in the run cache; the source directory may be
		// read-only and must never collect sidecar files.
		wav := filepath.Join(cacheDir, "audio.16k.wav")
		if err := video.ExtractAudioMono16k(ctx, sourcePath, wav); err != nil {
			return nil, err
		}
		defer os.Remove(wav)
		return asr.Transcribe(ctx, wav)
	})
	if err != nil {
		logf("transcription failed, continuing without captions: %v", err)
		return nil
	}
	logf("transcript: %d words", len(words))
	return words
}

func selectSegments(ctx context.Context, cfg Config, words []types.WordTiming, logf func(string, ...any)) ([]types.Segment, error) {
	if cfg.SegmentsFile != "" {
		b, err := os.ReadFile(cfg.SegmentsFile)
		if err != nil {
			return nil, fmt.Errorf("read segments file: %w", err)
		}
		var segments []types.Segment
		if err := json.Unmarshal(b, &segments); err != nil {
			return nil, fmt.Errorf("parse segments file: %w", err)
		}
		return segments, nil
	}
	if len(words) == 0 {
		return nil, errors.New("no transcript available for segment selection; provide a segments file")
	}
	sel := llmselect.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.LLMModel, logf)
	return sel.Select(ctx, words, cfg.MaxClips)
}

// buildDetectors assembles the detector cascade in trust order: the neural
// model first, the classical cascade as fallback. Either may be absent.
func buildDetectors(cfg Config, logf func(string, ...any)) ([]ports.FaceDetector, func()) {
	var out []ports.FaceDetector
	cleanup := func() {}
	if cfg.FaceModelPath != "" {
		det, err := onnxface.New(cfg.FaceModelPath, cfg.OnnxLibPath)
		if err != nil {
			logf("onnx face detector unavailable: %v", err)
		} else {
			out = append(out, det)
			cleanup = func() { _ = det.Close() }
		}
	}
	if cfg.FaceCascadePath != "" {
		det, err := pigoface.New(cfg.FaceCascadePath)
		if err != nil {
			logf("cascade face detector unavailable: %v", err)
		} else {
			out = append(out, det)
		}
	}
	if len(out) == 0 {
		logf("no face detectors configured, crops will center")
	}
	return out, cleanup
}

func transitionPool(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.mp4"))
	if err != nil {
		return nil, fmt.Errorf("scan transitions dir: %w", err)
	}
	return matches, nil
}

func buildRunOutDir(outRoot, source string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	name = normalizePathSegment(name)
	if name == "" {
		name = "source"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", source, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.FaceDetector = (*onnxface.Adapter)(nil)
var _ ports.FaceDetector = (*pigoface.Adapter)(nil)
var _ ports.Transcriber = (*whisperapi.Adapter)(nil)
var _ ports.SegmentSelector = (*llmselect.Adapter)(nil)
var _ ports.Downloader = (*ytdlp.Adapter)(nil)
