package opencv

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/saturnino-fabrica-de-software/chamada/internal/overlay"
	"github.com/saturnino-fabrica-de-software/chamada/internal/video"
)

// Window shows annotated frames. Pressing q stops the run.
type Window struct {
	w *gocv.Window
}

var _ video.Display = (*Window)(nil)

func NewWindow(title string) *Window {
	return &Window{w: gocv.NewWindow(title)}
}

func (w *Window) Show(frame image.Image, faces []video.Face, p video.Progress) (bool, error) {
	mat, err := gocv.ImageToMatRGB(overlay.Render(frame, faces, p))
	if err != nil {
		return false, err
	}
	defer func() {
		_ = mat.Close()
	}()

	w.w.IMShow(mat)
	key := w.w.WaitKey(1)
	return key == 'q' || key == 'Q', nil
}

func (w *Window) Close() error {
	return w.w.Close()
}
