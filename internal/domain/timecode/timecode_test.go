package timecode

import (
	"errors"
	"testing"
)

func TestParse_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"00:05", 5, false},
		{"02:25", 145, false},
		{"61:00", 3660, false},
		{"01:02:03", 3723, false},
		{"90", 90, false},
		{"12.5", 12.5, false},
		{" 00:30 ", 30, false},
		{"", 0, true},
		{"abc", 0, true},
		{"1:2:3:4", 0, true},
		{"00:xx", 0, true},
		{"-5", 0, true},
		{"00:75", 0, true},
		{"01:-2", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q): expected error", tt.in)
				}
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("Parse(%q): error is not ErrMalformed: %v", tt.in, err)
				}
				if got != 0 {
					t.Fatalf("Parse(%q): malformed input must return 0, got %v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := map[float64]string{
		0:      "00:00",
		5:      "00:05",
		145:    "02:25",
		3599:   "59:59",
		3600:   "01:00:00",
		3723:   "01:02:03",
		-3:     "00:00",
		59.999: "00:59",
	}
	for in, want := range tests {
		if got := Format(in); got != want {
			t.Fatalf("Format(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestParse_RoundTripsCanonicalForm(t *testing.T) {
	t.Parallel()

	for sec := 0; sec < 2*3600; sec += 7 {
		s := Format(float64(sec))
		got, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(Format(%d)) = Parse(%q): %v", sec, s, err)
		}
		if got != float64(sec) {
			t.Fatalf("round trip %d -> %q -> %v", sec, s, got)
		}
	}
}
