package ai

import (
	"github.com/Mikhail1201/FAYES/internal/service/scanner"
	"gocv.io/x/gocv"
)

const (
	keyEscape = 27
	keyQuit   = 'q'
)

// Window shows every decoded frame in a desktop window. Pressing q or ESC stops the run.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a window titled title.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

// Show implements scanner.Display.
func (w *Window) Show(img scanner.Image) bool {
	frame, err := asImage(img)
	if err != nil {
		return false
	}
	w.window.IMShow(frame.Mat)

	key := w.window.WaitKey(1)
	return key == keyQuit || key == keyEscape
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}
