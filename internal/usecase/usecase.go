// Package usecase drives one composition run: for each selected segment it
// estimates a crop, builds captions, and renders a clip, then bridges the
// survivors with transitions. Segment failures are tolerated; only an
// unreadable source aborts the run.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/supoclip/supoclip/internal/assemble"
	"github.com/supoclip/supoclip/internal/domain/captions"
	"github.com/supoclip/supoclip/internal/domain/cropping"
	"github.com/supoclip/supoclip/internal/domain/encoding"
	"github.com/supoclip/supoclip/internal/domain/timecode"
	"github.com/supoclip/supoclip/internal/ports"
	"github.com/supoclip/supoclip/internal/types"
)

// ErrSourceUnreadable is the only fatal per-run condition: nothing can be
// rendered if the source cannot be probed.
var ErrSourceUnreadable = errors.New("source video unreadable")

type Deps struct {
	Video     ports.VideoTool
	Detectors []ports.FaceDetector
	Logf      func(format string, args ...any)
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	SourcePath string
	Segments   []types.Segment
	// Words may be empty; clips then render without captions.
	Words []types.WordTiming
	// TransitionPool may be empty; clips then stay standalone.
	TransitionPool []string

	OutDir        string
	Profile       encoding.Profile
	TargetRatio   float64
	CaptionPolicy captions.Policy
}

type Result struct {
	Records   []types.ClipRecord
	Requested int
	Rendered  int
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	logf := u.d.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	info, err := u.d.Video.Probe(ctx, in.SourcePath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrSourceUnreadable, in.SourcePath, err)
	}

	clipsDir := filepath.Join(in.OutDir, "clips")
	captionsDir := filepath.Join(in.OutDir, "captions")
	for _, dir := range []string{clipsDir, captionsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, err
		}
	}

	estimator := cropping.Estimator{
		Frames:    frameSource{video: u.d.Video, path: in.SourcePath},
		Detectors: u.d.Detectors,
		Logf:      logf,
	}

	var records []types.ClipRecord
	for i, seg := range in.Segments {
		if ctx.Err() != nil {
			logf("run canceled after %d/%d segments", i, len(in.Segments))
			break
		}
		window, ok := segmentWindow(seg, info.Duration, logf)
		if !ok {
			continue
		}

		order := len(records) + 1
		crop := estimator.Estimate(ctx, window, info.Width, info.Height, in.TargetRatio)

		assPath := ""
		if spans := captions.Build(in.Words, window, in.CaptionPolicy); len(spans) > 0 {
			assPath = filepath.Join(captionsDir, fmt.Sprintf("clip_%d.ass", order))
			ass := captions.RenderASS(spans, crop, in.CaptionPolicy)
			if err := os.WriteFile(assPath, []byte(ass), 0o644); err != nil {
				logf("segment %d: caption write failed, rendering without captions: %v", i+1, err)
				assPath = ""
			}
		}

		filename := clipFilename(order, window)
		clipPath := filepath.Join(clipsDir, filename)
		if err := u.d.Video.RenderClip(ctx, in.SourcePath, window, crop, assPath, in.Profile, clipPath); err != nil {
			logf("segment %d: render failed, skipping: %v", i+1, err)
			_ = os.Remove(clipPath)
			continue
		}

		records = append(records, types.ClipRecord{
			Order:          order,
			Filename:       filename,
			Path:           clipPath,
			StartTime:      timecode.Format(window.Start),
			EndTime:        timecode.Format(window.End),
			Duration:       window.Duration(),
			Text:           seg.Text,
			RelevanceScore: seg.RelevanceScore,
			Reasoning:      seg.Reasoning,
		})
	}

	width, height := cropping.TargetDims(info.Width, info.Height, in.TargetRatio)
	records = assemble.Assembler{Video: u.d.Video, Logf: logf}.Join(
		ctx, records, in.TransitionPool, clipsDir, width, height, in.Profile,
	)

	return Result{
		Records:   records,
		Requested: len(in.Segments),
		Rendered:  len(records),
	}, nil
}

// segmentWindow parses and clamps one segment's timestamps. Malformed or
// empty spans are reported and dropped; the run continues.
func segmentWindow(seg types.Segment, sourceDur float64, logf func(string, ...any)) (types.TimeWindow, bool) {
	start, errS := timecode.Parse(seg.StartTime)
	end, errE := timecode.Parse(seg.EndTime)
	if errS != nil || errE != nil {
		logf("segment [%s - %s]: malformed timestamp, skipping", seg.StartTime, seg.EndTime)
		return types.TimeWindow{}, false
	}
	window := types.TimeWindow{Start: start, End: end}.Clamp(sourceDur)
	if window.Duration() <= 0 {
		logf("segment [%s - %s]: empty after clamping to %.1fs source, skipping", seg.StartTime, seg.EndTime, sourceDur)
		return types.TimeWindow{}, false
	}
	return window, true
}

// clipFilename embeds the clip's window in the name, with the colons
// stripped so the name stays filesystem-safe everywhere.
func clipFilename(order int, window types.TimeWindow) string {
	start := strings.ReplaceAll(timecode.Format(window.Start), ":", "")
	end := strings.ReplaceAll(timecode.Format(window.End), ":", "")
	return fmt.Sprintf("clip_%d_%s-%s.mp4", order, start, end)
}

// frameSource narrows the video tool to the single-frame capability the
// crop estimator needs.
type frameSource struct {
	video ports.VideoTool
	path  string
}

func (f frameSource) FrameAt(ctx context.Context, at time.Duration) (image.Image, error) {
	return f.video.FrameAt(ctx, f.path, at)
}
