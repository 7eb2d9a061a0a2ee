package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/supoclip/supoclip/internal/domain/encoding"
	"github.com/supoclip/supoclip/internal/ports"
	"github.com/supoclip/supoclip/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

type probeResult struct {
	Format  formatInfo   `json:"format"`
	Streams []streamInfo `json:"streams"`
}

type formatInfo struct {
	Duration string `json:"duration"`
}

type streamInfo struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Probe reads duration and video dimensions. An unreadable source is the
// one globally fatal condition in the pipeline, so errors here carry the
// ffprobe output.
func (a *Adapter) Probe(ctx context.Context, path string) (ports.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return ports.MediaInfo{}, fmt.Errorf("ffprobe %s: %w\n%s", path, err, truncate(string(b), 400))
	}
	var res probeResult
	if err := json.Unmarshal(b, &res); err != nil {
		return ports.MediaInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	info := ports.MediaInfo{}
	info.Duration, err = strconv.ParseFloat(strings.TrimSpace(res.Format.Duration), 64)
	if err != nil {
		return ports.MediaInfo{}, fmt.Errorf("parse duration %q: %w", res.Format.Duration, err)
	}
	for _, s := range res.Streams {
		if s.CodecType == "video" {
			info.Width = s.Width
			info.Height = s.Height
			break
		}
	}
	if info.Width <= 0 || info.Height <= 0 {
		return ports.MediaInfo{}, fmt.Errorf("no video stream in %s", path)
	}
	return info, nil
}

// FrameAt decodes the single frame at the given offset. The frame arrives
// as one JPEG on stdout; nothing touches disk.
func (a *Adapter) FrameAt(ctx context.Context, path string, at time.Duration) (image.Image, error) {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-ss", fmtSeconds(at),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame at %s: %w\n%s", at, err, truncate(errb.String(), 400))
	}
	img, err := jpeg.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("decode frame at %s: %w", at, err)
	}
	return img, nil
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, in, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, truncate(string(b), 400))
	}
	return nil
}

// RenderClip cuts the window out of the source, applies the crop, burns
// the optional ASS overlay, and encodes with the given profile. A failed
// run removes its partial output so nothing half-written gets recorded.
func (a *Adapter) RenderClip(
	ctx context.Context,
	in string,
	window types.TimeWindow,
	crop types.CropRegion,
	burnASS string,
	prof encoding.Profile,
	out string,
) error {
	args := []string{
		"-y",
		"-ss", fmtSecondsF(window.Start),
		"-to", fmtSecondsF(window.End),
		"-i", in,
		"-vf", renderFilter(crop, burnASS),
	}
	args = append(args, profileArgs(prof)...)
	args = append(args, out)

	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(out)
		return fmt.Errorf("ffmpeg render clip: %w\n%s", err, truncate(string(b), 400))
	}
	return nil
}

// JoinWithTransition concatenates [prev faded out, asset, next faded in]
// into a single re-encoded file. The asset is trimmed to assetMax, scaled
// to the clip dimensions, and given silent audio so mute transition assets
// concat cleanly.
func (a *Adapter) JoinWithTransition(
	ctx context.Context,
	prev, asset, next, out string,
	fade, assetMax time.Duration,
	width, height int,
	prof encoding.Profile,
) error {
	prevInfo, err := a.Probe(ctx, prev)
	if err != nil {
		return fmt.Errorf("probe prev clip: %w", err)
	}
	assetInfo, err := a.Probe(ctx, asset)
	if err != nil {
		return fmt.Errorf("probe transition asset: %w", err)
	}
	trim := math.Min(assetInfo.Duration, assetMax.Seconds())
	if trim <= 0 {
		return fmt.Errorf("transition asset %s has no duration", asset)
	}

	filter := transitionFilter(prevInfo.Duration, trim, fade, width, height)
	args := []string{
		"-y",
		"-i", prev,
		"-i", asset,
		"-i", next,
		"-f", "lavfi", "-t", fmtSecondsF(trim), "-i", "anullsrc=r=48000:cl=stereo",
		"-filter_complex", filter,
		"-map", "[v]", "-map", "[a]",
	}
	args = append(args, profileArgs(prof)...)
	args = append(args, out)

	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(out)
		return fmt.Errorf("ffmpeg join transition: %w\n%s", err, truncate(string(b), 400))
	}
	return nil
}

func renderFilter(crop types.CropRegion, burnASS string) string {
	vf := fmt.Sprintf("crop=%d:%d:%d:%d", crop.Width, crop.Height, crop.X, crop.Y)
	if burnASS != "" {
		vf += ",subtitles=" + escapeFilterPath(burnASS)
	}
	return vf
}

// transitionFilter builds the filtergraph: fade-out on the tail of the
// previous clip, the trimmed and rescaled asset with silent audio, fade-in
// on the head of the next clip, concatenated.
func transitionFilter(prevDur, trim float64, fade time.Duration, width, height int) string {
	fadeSec := fade.Seconds()
	fadeStart := prevDur - fadeSec
	if fadeStart < 0 {
		fadeStart = 0
	}
	return fmt.Sprintf(
		"[0:v]fade=t=out:st=%.3f:d=%.3f,format=yuv420p[v0];"+
			"[0:a]afade=t=out:st=%.3f:d=%.3f[a0];"+
			"[1:v]trim=duration=%.3f,setpts=PTS-STARTPTS,scale=%d:%d,setsar=1,fps=30,format=yuv420p[v1];"+
			"[2:v]fade=t=in:st=0:d=%.3f,format=yuv420p[v2];"+
			"[2:a]afade=t=in:st=0:d=%.3f[a2];"+
			"[v0][a0][v1][3:a][v2][a2]concat=n=3:v=1:a=1[v][a]",
		fadeStart, fadeSec,
		fadeStart, fadeSec,
		trim, width, height,
		fadeSec,
		fadeSec,
	)
}

func profileArgs(prof encoding.Profile) []string {
	if prof.Name == "" {
		prof = encoding.Default()
	}
	return []string{
		"-c:v", "libx264",
		"-preset", prof.Preset,
		"-profile:v", prof.H264Profile,
		"-pix_fmt", prof.PixelFormat,
		"-crf", strconv.Itoa(prof.CRF),
		"-maxrate", prof.VideoBitrate,
		"-bufsize", prof.VideoBitrate,
		"-c:a", "aac",
		"-b:a", prof.AudioBitrate,
		"-movflags", "+faststart",
	}
}

func fmtSeconds(d time.Duration) string {
	return fmtSecondsF(float64(d) / float64(time.Second))
}

func fmtSecondsF(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
