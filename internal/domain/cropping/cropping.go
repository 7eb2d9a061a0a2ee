// Package cropping derives a stable crop rectangle for a clip window by
// sampling frames, running a cascade of face detectors over them, and
// aggregating the surviving detections. Estimation never fails: with no
// usable face data it degrades to a geometric center crop.
package cropping

import (
	"context"
	"image"
	"math"
	"sort"
	"time"

	"github.com/supoclip/supoclip/internal/ports"
	"github.com/supoclip/supoclip/internal/types"
)

const (
	// Detections outside this share of frame area are spurious.
	minAreaShare = 0.005
	maxAreaShare = 0.30

	// Observations farther than this many standard deviations from the
	// median are dropped, given enough observations to be statistical.
	outlierSigma      = 2.0
	minObsForOutliers = 3

	// Vertical bias toward the top of frame for headroom framing.
	headroomBias = 0.10

	maxSampleInterval = 0.5
)

// Observation is one accepted detection at one sampled frame. Ephemeral:
// it only exists while estimating a single segment's crop.
type Observation struct {
	CenterX    int
	CenterY    int
	Area       int
	Confidence float64
}

// FrameSource yields a decoded frame at an absolute source offset.
type FrameSource interface {
	FrameAt(ctx context.Context, at time.Duration) (image.Image, error)
}

type Estimator struct {
	Frames    FrameSource
	Detectors []ports.FaceDetector
	Logf      func(format string, args ...any)
}

// Estimate returns a crop region of targetRatio (width:height) for the
// given window, fully inside the frameW x frameH frame, with even x, y,
// width and height. It always returns a valid region.
func (e Estimator) Estimate(ctx context.Context, window types.TimeWindow, frameW, frameH int, targetRatio float64) types.CropRegion {
	logf := e.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	w, h := TargetDims(frameW, frameH, targetRatio)
	obs := e.observe(ctx, window, frameW, frameH)

	if len(obs) >= minObsForOutliers {
		if kept := FilterOutliers(obs); len(kept) > 0 {
			obs = kept
		}
	}
	if len(obs) == 0 {
		logf("crop: no usable face observations, falling back to center crop")
		return CenterCrop(frameW, frameH, targetRatio)
	}

	cx, cy := weightedCenter(obs)
	cy -= headroomBias * float64(h)

	x := clampInt(int(cx)-w/2, 0, frameW-w)
	y := clampInt(int(cy)-h/2, 0, frameH-h)
	return types.CropRegion{X: evenDown(x), Y: evenDown(y), Width: w, Height: h}
}

// observe samples frames across the window and collects detections that
// pass the area gate. Per-frame detector errors skip that sample; a frame
// where the first detector finds nothing falls through to the next one.
func (e Estimator) observe(ctx context.Context, window types.TimeWindow, frameW, frameH int) []Observation {
	logf := e.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	frameArea := frameW * frameH
	if frameArea <= 0 || e.Frames == nil || len(e.Detectors) == 0 {
		return nil
	}

	var obs []Observation
	for _, at := range SampleTimes(window) {
		if ctx.Err() != nil {
			break
		}
		frame, err := e.Frames.FrameAt(ctx, at)
		if err != nil {
			logf("crop: frame sample at %.2fs failed: %v", at.Seconds(), err)
			continue
		}
		dets := e.detect(frame, logf)
		for _, d := range dets {
			area := d.W * d.H
			share := float64(area) / float64(frameArea)
			if share < minAreaShare || share > maxAreaShare {
				continue
			}
			conf := d.Confidence
			if conf <= 0 {
				conf = confidenceFromSize(share)
			}
			obs = append(obs, Observation{
				CenterX:    d.X + d.W/2,
				CenterY:    d.Y + d.H/2,
				Area:       area,
				Confidence: conf,
			})
		}
	}
	return obs
}

func (e Estimator) detect(frame image.Image, logf func(string, ...any)) []ports.Detection {
	for _, det := range e.Detectors {
		dets, err := det.Detect(frame)
		if err != nil {
			logf("crop: detector %s failed: %v", det.Name(), err)
			continue
		}
		if len(dets) > 0 {
			return dets
		}
	}
	return nil
}

// TargetDims computes the maximal width x height of ratio (w:h) that fits
// inside the frame, both rounded down to even.
func TargetDims(frameW, frameH int, ratio float64) (int, int) {
	if ratio <= 0 {
		ratio = 9.0 / 16.0
	}
	current := float64(frameW) / float64(frameH)
	var w, h int
	if current > ratio {
		h = frameH
		w = int(float64(frameH) * ratio)
	} else {
		w = frameW
		h = int(float64(frameW) / ratio)
	}
	return evenDown(w), evenDown(h)
}

// SampleTimes spreads samples across the window at interval
// min(0.5s, duration/10) and always includes the midpoint.
func SampleTimes(window types.TimeWindow) []time.Duration {
	dur := window.Duration()
	if dur <= 0 {
		return nil
	}
	interval := math.Min(maxSampleInterval, dur/10)
	mid := window.Start + dur/2

	var secs []float64
	for t := window.Start; t < window.End; t += interval {
		secs = append(secs, t)
	}
	secs = append(secs, mid)
	sort.Float64s(secs)

	out := make([]time.Duration, 0, len(secs))
	var last time.Duration = -1
	for _, s := range secs {
		d := time.Duration(s * float64(time.Second))
		if d == last {
			continue
		}
		out = append(out, d)
		last = d
	}
	return out
}

// FilterOutliers drops observations farther than outlierSigma standard
// deviations from the median on either axis. If that would remove
// everything, the unfiltered set is returned.
func FilterOutliers(obs []Observation) []Observation {
	if len(obs) < minObsForOutliers {
		return obs
	}
	medX := median(obs, func(o Observation) float64 { return float64(o.CenterX) })
	medY := median(obs, func(o Observation) float64 { return float64(o.CenterY) })
	stdX := stddev(obs, func(o Observation) float64 { return float64(o.CenterX) })
	stdY := stddev(obs, func(o Observation) float64 { return float64(o.CenterY) })

	kept := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if stdX > 0 && math.Abs(float64(o.CenterX)-medX) > outlierSigma*stdX {
			continue
		}
		if stdY > 0 && math.Abs(float64(o.CenterY)-medY) > outlierSigma*stdY {
			continue
		}
		kept = append(kept, o)
	}
	if len(kept) == 0 {
		return obs
	}
	return kept
}

// CenterCrop is the no-face fallback: the target rectangle centered in the
// frame.
func CenterCrop(frameW, frameH int, ratio float64) types.CropRegion {
	w, h := TargetDims(frameW, frameH, ratio)
	x := clampInt((frameW-w)/2, 0, frameW-w)
	y := clampInt((frameH-h)/2, 0, frameH-h)
	return types.CropRegion{X: evenDown(x), Y: evenDown(y), Width: w, Height: h}
}

func weightedCenter(obs []Observation) (float64, float64) {
	var sumW, sumX, sumY float64
	for _, o := range obs {
		w := o.Confidence * float64(o.Area)
		if w <= 0 {
			continue
		}
		sumW += w
		sumX += w * float64(o.CenterX)
		sumY += w * float64(o.CenterY)
	}
	if sumW == 0 {
		// Degenerate weights: plain average.
		for _, o := range obs {
			sumX += float64(o.CenterX)
			sumY += float64(o.CenterY)
		}
		n := float64(len(obs))
		return sumX / n, sumY / n
	}
	return sumX / sumW, sumY / sumW
}

// confidenceFromSize estimates a confidence for detectors without a native
// score: larger faces relative to the frame are more likely real.
func confidenceFromSize(areaShare float64) float64 {
	c := areaShare * 10
	if c < 0.1 {
		c = 0.1
	}
	if c > 0.9 {
		c = 0.9
	}
	return c
}

func median(obs []Observation, f func(Observation) float64) float64 {
	vals := make([]float64, len(obs))
	for i, o := range obs {
		vals[i] = f(o)
	}
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}

func stddev(obs []Observation, f func(Observation) float64) float64 {
	var mean float64
	for _, o := range obs {
		mean += f(o)
	}
	mean /= float64(len(obs))
	var ss float64
	for _, o := range obs {
		d := f(o) - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(obs)))
}

func evenDown(v int) int {
	if v < 0 {
		return 0
	}
	return v &^ 1
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
