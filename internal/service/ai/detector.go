package ai

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/Mikhail1201/FAYES/internal/config"
	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/Mikhail1201/FAYES/internal/service/scanner"
	"gocv.io/x/gocv"
)

// NMSThreshold is the IoU above which overlapping boxes of any class are merged.
const NMSThreshold = 0.45

// DetectorService runs a YOLO ONNX export through the OpenCV DNN module.
type DetectorService struct {
	mu        sync.Mutex
	net       gocv.Net
	labels    []string
	inputSize int
	logger    *logger.Logger
}

// NewDetectorService loads the model and its class names.
func NewDetectorService(cfg *config.Config, logger *logger.Logger) (*DetectorService, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", cfg.ModelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	logger.Info("Detection network initialized: %s (%d classes)", cfg.ModelPath, len(labels))
	return &DetectorService{
		net:       net,
		labels:    labels,
		inputSize: cfg.ModelInputSize,
		logger:    logger,
	}, nil
}

// Detect implements scanner.Detector.
func (s *DetectorService) Detect(img scanner.Image, threshold float64) ([]dto.DetectionResult, error) {
	frame, err := asImage(img)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blob := gocv.BlobFromImage(frame.Mat, 1.0/255.0, image.Pt(s.inputSize, s.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	// output is [1, 4+classes, candidates]; each candidate is cx, cy, w, h, then class scores
	dims := output.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected model output shape %v", dims)
	}
	attrs, candidates := dims[1], dims[2]

	reshaped := output.Reshape(1, attrs)
	defer reshaped.Close()
	rows := gocv.NewMat()
	defer rows.Close()
	if err := gocv.Transpose(reshaped, &rows); err != nil {
		return nil, fmt.Errorf("failed to transpose model output: %v", err)
	}

	xScale := float32(frame.Mat.Cols()) / float32(s.inputSize)
	yScale := float32(frame.Mat.Rows()) / float32(s.inputSize)

	var boxes []image.Rectangle
	var scores []float32
	var classes []int

	for i := 0; i < candidates; i++ {
		classScores := rows.Region(image.Rect(4, i, attrs, i+1))
		_, maxScore, _, maxLoc := gocv.MinMaxLoc(classScores)
		classScores.Close()

		if float64(maxScore) < threshold {
			continue
		}

		cx := rows.GetFloatAt(i, 0) * xScale
		cy := rows.GetFloatAt(i, 1) * yScale
		w := rows.GetFloatAt(i, 2) * xScale
		h := rows.GetFloatAt(i, 3) * yScale

		left := int(cx - w/2)
		top := int(cy - h/2)
		boxes = append(boxes, image.Rect(left, top, left+int(w), top+int(h)))
		scores = append(scores, maxScore)
		classes = append(classes, maxLoc.X)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, float32(threshold), NMSThreshold)

	results := make([]dto.DetectionResult, 0, len(keep))
	for _, idx := range keep {
		box := boxes[idx]
		results = append(results, dto.DetectionResult{
			Label:      classLabel(s.labels, classes[idx]),
			Confidence: float64(scores[idx]),
			ClassID:    classes[idx],
			X:          box.Min.X,
			Y:          box.Min.Y,
			Width:      box.Dx(),
			Height:     box.Dy(),
		})
	}
	return results, nil
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}
