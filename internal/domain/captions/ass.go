package captions

import (
	"fmt"
	"strings"
	"time"

	"github.com/supoclip/supoclip/internal/types"
)

// RenderASS writes the spans as a burn-ready ASS document sized to the
// crop region, one Dialogue event per span at the computed placement.
func RenderASS(spans []Span, crop types.CropRegion, pol Policy) string {
	place := Place(crop, pol)

	var b strings.Builder
	b.WriteString(assHeader(crop, place))
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, s := range spans {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(s.Start))
		b.WriteString(",")
		b.WriteString(assTime(s.End))
		b.WriteString(",Caption,,0,0,0,,")
		fmt.Fprintf(&b, "{\\pos(%d,%d)}", place.PosX, place.PosY)
		b.WriteString(sanitizeASS(s.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func assHeader(crop types.CropRegion, place Placement) string {
	return fmt.Sprintf(strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Caption, Inter, %d, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,3,1,5, 20,20,0,1
`), crop.Width, crop.Height, place.FontSize)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
