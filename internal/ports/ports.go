package ports

import (
	"context"
	"image"
	"time"

	"github.com/supoclip/supoclip/internal/domain/encoding"
	"github.com/supoclip/supoclip/internal/types"
)

// MediaInfo is what Probe reports about a source file.
type MediaInfo struct {
	Duration float64
	Width    int
	Height   int
}

type VideoTool interface {
	Probe(ctx context.Context, path string) (MediaInfo, error)
	FrameAt(ctx context.Context, path string, at time.Duration) (image.Image, error)
	ExtractAudioMono16k(ctx context.Context, in, outWav string) error
	RenderClip(
		ctx context.Context,
		in string,
		window types.TimeWindow,
		crop types.CropRegion,
		burnASS string,
		prof encoding.Profile,
		out string,
	) error
	// JoinWithTransition writes [prev faded out, asset trimmed to assetMax,
	// next faded in] concatenated into out, with the asset scaled to
	// width x height.
	JoinWithTransition(
		ctx context.Context,
		prev, asset, next, out string,
		fade, assetMax time.Duration,
		width, height int,
		prof encoding.Profile,
	) error
}

// Detection is one face candidate in frame pixel coordinates. Confidence
// may be zero when the detector has no native score; callers derive one
// from the relative box size.
type Detection struct {
	X, Y, W, H int
	Confidence float64
}

// FaceDetector is the polymorphic detector capability. The crop estimator
// tries an ordered list of implementations until one yields results.
type FaceDetector interface {
	Name() string
	Detect(img image.Image) ([]Detection, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) ([]types.WordTiming, error)
}

type SegmentSelector interface {
	Select(ctx context.Context, words []types.WordTiming, maxClips int) ([]types.Segment, error)
}

type Downloader interface {
	Fetch(ctx context.Context, url, destDir string) (path, title string, err error)
}
