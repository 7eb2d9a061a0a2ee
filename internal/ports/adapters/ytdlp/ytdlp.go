// Package ytdlp fetches remote source videos through the yt-dlp binary.
// Downloads are the flakiest external call in the pipeline, so the adapter
// retries with doubling backoff before giving up.
package ytdlp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	maxAttempts    = 3
	initialBackoff = 2 * time.Second

	// 720p is plenty for a vertical crop target and keeps downloads fast.
	formatSelector = "best[height<=720]"
)

var youtubeIDPattern = regexp.MustCompile(`(?:youtube\.com/(?:.*v=|v/|embed/|shorts/)|youtu\.be/)([A-Za-z0-9_-]{11})`)

// Container extensions yt-dlp produces for the chosen format. The
// recovery glob must not pick up partial downloads or scratch files
// sitting next to the video.
var videoExts = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".mov":  true,
	".m4v":  true,
	".avi":  true,
	".flv":  true,
}

type Adapter struct {
	bin  string
	logf func(format string, args ...any)
}

func New(bin string, logf func(string, ...any)) *Adapter {
	if bin == "" {
		bin = "yt-dlp"
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Adapter{bin: bin, logf: logf}
}

// VideoID extracts a stable identifier from the URL: the YouTube video id
// when recognizable, otherwise a hash of the URL itself.
func VideoID(url string) string {
	if m := youtubeIDPattern.FindStringSubmatch(url); len(m) == 2 {
		return m[1]
	}
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:12]
}

// Fetch downloads the video into destDir and returns its local path and
// title. Each attempt covers both metadata and download; backoff doubles
// between attempts.
func (a *Adapter) Fetch(ctx context.Context, url, destDir string) (string, string, error) {
	id := VideoID(url)

	var lastErr error
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			a.logf("download attempt %d/%d for %s after %s", attempt, maxAttempts, url, backoff)
			select {
			case <-ctx.Done():
				return "", "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		title, err := a.title(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		path, err := a.download(ctx, url, destDir, id)
		if err != nil {
			lastErr = err
			continue
		}
		return path, title, nil
	}
	return "", "", fmt.Errorf("download %s after %d attempts: %w", url, maxAttempts, lastErr)
}

func (a *Adapter) title(ctx context.Context, url string) (string, error) {
	cmd := exec.CommandContext(ctx, a.bin,
		"-J",
		"--no-warnings",
		"--skip-download",
		url,
	)
	b, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("yt-dlp metadata: %w", err)
	}
	return gjson.GetBytes(b, "title").String(), nil
}

func (a *Adapter) download(ctx context.Context, url, destDir, id string) (string, error) {
	outTemplate := filepath.Join(destDir, id+".%(ext)s")
	cmd := exec.CommandContext(ctx, a.bin,
		"-f", formatSelector,
		"-o", outTemplate,
		"--quiet",
		"--no-warnings",
		url,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("yt-dlp download: %w\n%s", err, string(b))
	}

	return findDownloaded(destDir, id)
}

// findDownloaded locates the finished video for id, skipping sidecars
// like .part files that share the id prefix.
func findDownloaded(destDir, id string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(destDir, id+".*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		if videoExts[strings.ToLower(filepath.Ext(m))] {
			return m, nil
		}
	}
	return "", fmt.Errorf("no downloaded video for id %s in %s", id, destDir)
}
