package ai

import (
	"fmt"
	"image"
	"image/color"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/service/scanner"
	"gocv.io/x/gocv"
)

var boxColor = color.RGBA{R: 0, G: 200, B: 0, A: 0}

// Annotate draws detections on a copy of the frame and returns it as JPEG.
func Annotate(img *Image, detections []dto.DetectionResult) ([]byte, error) {
	if len(detections) == 0 {
		return img.Data, nil
	}

	mat := img.Mat.Clone()
	defer mat.Close()

	for _, detection := range detections {
		rect := image.Rect(detection.X, detection.Y, detection.X+detection.Width, detection.Y+detection.Height)
		if err := gocv.Rectangle(&mat, rect, boxColor, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %v", err)
		}

		label := fmt.Sprintf("%s (%.2f)", detection.Label, detection.Confidence)
		pt := image.Pt(detection.X, detection.Y-5)
		if err := gocv.PutText(&mat, label, pt, gocv.FontHersheySimplex, 0.5, boxColor, 1); err != nil {
			return nil, fmt.Errorf("failed to draw text: %v", err)
		}
	}

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// EncodeOutcome returns the frame of a cycle as JPEG, boxed around its detection if any.
func EncodeOutcome(img scanner.Image, outcome dto.Outcome) ([]byte, error) {
	frame, err := asImage(img)
	if err != nil {
		return nil, err
	}
	if outcome.Detection == nil {
		return frame.Data, nil
	}
	return Annotate(frame, []dto.DetectionResult{*outcome.Detection})
}
