// Package onnxface runs an UltraFace-class ONNX face detection model
// through ONNX Runtime. It is the first, most accurate entry of the
// detector cascade; construction fails cleanly when the runtime or model
// is unavailable so callers can fall through to the classical detector.
package onnxface

import (
	"fmt"
	"image"
	"math"
	"sort"

	ort "github.com/yalue/onnxruntime_go"
	xdraw "golang.org/x/image/draw"

	"github.com/supoclip/supoclip/internal/ports"
)

const (
	inputWidth  = 320
	inputHeight = 240

	scoreThreshold = 0.7
	nmsIoU         = 0.3
)

type Adapter struct {
	session *ort.DynamicAdvancedSession
}

// New initializes the ONNX environment and loads the model. libPath points
// at the onnxruntime shared library; empty means the platform default.
func New(modelPath, libPath string) (*Adapter, error) {
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnx runtime: %w", err)
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("set graph optimization: %w", err)
	}
	if err := opts.SetIntraOpNumThreads(0); err != nil {
		return nil, fmt.Errorf("set thread count: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input"},
		[]string{"scores", "boxes"},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return &Adapter{session: session}, nil
}

func (a *Adapter) Name() string { return "onnx" }

func (a *Adapter) Close() error {
	if a.session != nil {
		return a.session.Destroy()
	}
	return nil
}

// Detect scales the frame to the model's input resolution, runs inference,
// and maps the surviving boxes back to frame pixel coordinates.
func (a *Adapter) Detect(img image.Image) ([]ports.Detection, error) {
	input, err := ort.NewTensor(ort.NewShape(1, 3, inputHeight, inputWidth), preprocess(img))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil, nil}
	if err := a.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("run face model: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	scoresT, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected scores tensor type")
	}
	boxesT, ok := outputs[1].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected boxes tensor type")
	}

	bounds := img.Bounds()
	cands := decode(scoresT.GetData(), boxesT.GetData(), bounds.Dx(), bounds.Dy())
	return nonMaxSuppress(cands, nmsIoU), nil
}

// preprocess converts the frame to the model's normalized CHW layout:
// bilinear resize to 320x240, then (v - 127) / 128 per channel.
func preprocess(img image.Image) []float32 {
	scaled := image.NewRGBA(image.Rect(0, 0, inputWidth, inputHeight))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	data := make([]float32, 3*inputHeight*inputWidth)
	plane := inputHeight * inputWidth
	for y := 0; y < inputHeight; y++ {
		for x := 0; x < inputWidth; x++ {
			i := scaled.PixOffset(x, y)
			idx := y*inputWidth + x
			data[idx] = (float32(scaled.Pix[i]) - 127) / 128
			data[plane+idx] = (float32(scaled.Pix[i+1]) - 127) / 128
			data[2*plane+idx] = (float32(scaled.Pix[i+2]) - 127) / 128
		}
	}
	return data
}

// decode pairs each anchor's face score with its normalized box and keeps
// those above threshold, scaled to frame coordinates.
func decode(scores, boxes []float32, frameW, frameH int) []ports.Detection {
	n := len(scores) / 2
	if len(boxes)/4 < n {
		n = len(boxes) / 4
	}
	var out []ports.Detection
	for i := 0; i < n; i++ {
		conf := scores[i*2+1]
		if conf < scoreThreshold {
			continue
		}
		x1 := float64(boxes[i*4]) * float64(frameW)
		y1 := float64(boxes[i*4+1]) * float64(frameH)
		x2 := float64(boxes[i*4+2]) * float64(frameW)
		y2 := float64(boxes[i*4+3]) * float64(frameH)
		w := x2 - x1
		h := y2 - y1
		if w <= 0 || h <= 0 {
			continue
		}
		out = append(out, ports.Detection{
			X:          int(math.Max(0, x1)),
			Y:          int(math.Max(0, y1)),
			W:          int(w),
			H:          int(h),
			Confidence: float64(conf),
		})
	}
	return out
}

func nonMaxSuppress(dets []ports.Detection, iouMax float64) []ports.Detection {
	sort.Slice(dets, func(i, j int) bool { return dets[i].Confidence > dets[j].Confidence })
	var kept []ports.Detection
	for _, d := range dets {
		overlaps := false
		for _, k := range kept {
			if iou(d, k) > iouMax {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, d)
		}
	}
	return kept
}

func iou(a, b ports.Detection) float64 {
	x1 := math.Max(float64(a.X), float64(b.X))
	y1 := math.Max(float64(a.Y), float64(b.Y))
	x2 := math.Min(float64(a.X+a.W), float64(b.X+b.W))
	y2 := math.Min(float64(a.Y+a.H), float64(b.Y+b.H))
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	inter := (x2 - x1) * (y2 - y1)
	union := float64(a.W*a.H) + float64(b.W*b.H) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
