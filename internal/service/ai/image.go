package ai

import (
	"errors"
	"fmt"

	"github.com/Mikhail1201/FAYES/internal/service/scanner"
	"gocv.io/x/gocv"
)

// ErrNotAnImage is returned when a detector is handed an image it did not decode.
var ErrNotAnImage = errors.New("ai: image was not decoded by this package")

// Image is a decoded frame together with the JPEG bytes it came from.
type Image struct {
	Data []byte
	Mat  gocv.Mat
}

// Close releases the native matrix.
func (i *Image) Close() error {
	return i.Mat.Close()
}

// Decoder decodes JPEG frames into BGR matrices.
type Decoder struct{}

// Decode implements scanner.Decoder.
func (Decoder) Decode(data []byte) (scanner.Image, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("decoded image is empty")
	}
	return &Image{Data: data, Mat: mat}, nil
}

func asImage(img scanner.Image) (*Image, error) {
	i, ok := img.(*Image)
	if !ok {
		return nil, ErrNotAnImage
	}
	return i, nil
}
