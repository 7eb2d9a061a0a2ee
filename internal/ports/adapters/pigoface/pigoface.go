// Package pigoface wraps the pigo Viola-Jones style cascade as the
// classical fallback detector. Pure Go, no runtime dependency, so it is
// always available even when the ONNX runtime is not.
package pigoface

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/supoclip/supoclip/internal/ports"
)

const (
	minFaceSize    = 50
	shiftFactor    = 0.1
	scaleFactor    = 1.1
	clusterIoU     = 0.2
	minQuality     = 5.0
	qualityCeiling = 20.0
)

type Adapter struct {
	classifier *pigo.Pigo
}

func New(cascadePath string) (*Adapter, error) {
	b, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("read cascade %s: %w", cascadePath, err)
	}
	classifier, err := pigo.NewPigo().Unpack(b)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}
	return &Adapter{classifier: classifier}, nil
}

func (a *Adapter) Name() string { return "cascade" }

func (a *Adapter) Detect(img image.Image) ([]ports.Detection, error) {
	src := pigo.ImgToNRGBA(img)
	pixels := pigo.RgbToGrayscale(src)
	bounds := src.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()
	if rows == 0 || cols == 0 {
		return nil, nil
	}
	maxSize := rows
	if cols < rows {
		maxSize = cols
	}

	params := pigo.CascadeParams{
		MinSize:     minFaceSize,
		MaxSize:     maxSize,
		ShiftFactor: shiftFactor,
		ScaleFactor: scaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := a.classifier.RunCascade(params, 0.0)
	dets = a.classifier.ClusterDetections(dets, clusterIoU)

	var out []ports.Detection
	for _, d := range dets {
		if float64(d.Q) < minQuality {
			continue
		}
		half := d.Scale / 2
		out = append(out, ports.Detection{
			X:          d.Col - half,
			Y:          d.Row - half,
			W:          d.Scale,
			H:          d.Scale,
			Confidence: normalizeQuality(float64(d.Q)),
		})
	}
	return out, nil
}

// normalizeQuality maps pigo's open-ended quality score into (0, 1].
func normalizeQuality(q float64) float64 {
	if q > qualityCeiling {
		q = qualityCeiling
	}
	return q / qualityCeiling
}
