// Package encoding defines the named encode profiles clips are written
// with. A Profile is an immutable value selected by key and passed
// explicitly; there is no ambient encoder state.
package encoding

import "fmt"

type Profile struct {
	Name         string
	VideoBitrate string
	AudioBitrate string
	CRF          int
	PixelFormat  string
	H264Profile  string
	Preset       string
}

var profiles = map[string]Profile{
	"high": {
		Name:         "high",
		VideoBitrate: "8M",
		AudioBitrate: "256k",
		CRF:          20,
		PixelFormat:  "yuv420p",
		H264Profile:  "main",
		Preset:       "veryfast",
	},
	"medium": {
		Name:         "medium",
		VideoBitrate: "4M",
		AudioBitrate: "192k",
		CRF:          23,
		PixelFormat:  "yuv420p",
		H264Profile:  "main",
		Preset:       "veryfast",
	},
}

// ByName returns the profile for key, or an error listing valid keys.
func ByName(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown encode profile %q (valid: high, medium)", name)
	}
	return p, nil
}

func Default() Profile { return profiles["high"] }
