// Package timecode converts between human-readable timestamps and seconds.
// Upstream segment sources emit MM:SS strings and occasionally malform
// them; parsing is tolerant and never aborts a pipeline run.
package timecode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed marks input that could not be parsed. Callers receive 0
// alongside it and must validate the derived duration separately: 0 looks
// like a valid offset.
var ErrMalformed = errors.New("malformed timestamp")

// Parse accepts "MM:SS", "HH:MM:SS", or a bare decimal number of seconds
// and returns the absolute offset in seconds. Malformed input yields
// (0, ErrMalformed-wrapped error).
func Parse(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrMalformed)
	}

	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		sec, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || sec < 0 {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		return sec, nil
	case 2:
		m, errM := strconv.Atoi(parts[0])
		sec, errS := strconv.ParseFloat(parts[1], 64)
		if errM != nil || errS != nil || m < 0 || sec < 0 || sec >= 60 {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		return float64(m)*60 + sec, nil
	case 3:
		h, errH := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		sec, errS := strconv.ParseFloat(parts[2], 64)
		if errH != nil || errM != nil || errS != nil ||
			h < 0 || m < 0 || m >= 60 || sec < 0 || sec >= 60 {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		return float64(h)*3600 + float64(m)*60 + sec, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
}

// Format renders seconds in the canonical "MM:SS" form, switching to
// "HH:MM:SS" at one hour. Fractional seconds are truncated; negative
// inputs clamp to zero.
func Format(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
