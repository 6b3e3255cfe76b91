// Package opencv provides webcam and video file sources and a preview
// window on top of gocv.
package opencv

import (
	"errors"
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"

	"github.com/saturnino-fabrica-de-software/chamada/internal/capture"
	"github.com/saturnino-fabrica-de-software/chamada/internal/video"
)

var errNotOpened = errors.New("capture device did not open")

// Opener implements capture.Opener.
type Opener struct{}

var _ capture.Opener = Opener{}

func (Opener) OpenCamera(device int) (video.Source, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, err
	}
	return newSource(vc, fmt.Sprintf("camera:%d", device), true)
}

func (Opener) OpenFile(path string) (video.Source, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, err
	}
	return newSource(vc, path, false)
}

// Source reads frames from a gocv.VideoCapture.
type Source struct {
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	name   string
	live   bool
	fps    float64
	frames int
	read   int
}

func newSource(vc *gocv.VideoCapture, name string, live bool) (*Source, error) {
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, errNotOpened
	}

	s := &Source{
		vc:   vc,
		mat:  gocv.NewMat(),
		name: name,
		live: live,
		fps:  vc.Get(gocv.VideoCaptureFPS),
	}
	if !live {
		s.frames = int(vc.Get(gocv.VideoCaptureFrameCount))
	}
	if s.fps < 0 {
		s.fps = 0
	}
	if s.frames < 0 {
		s.frames = 0
	}
	return s, nil
}

// ReadFrame returns io.EOF once a file has no more frames. A camera that
// stops delivering, or a file that fails before its reported frame count,
// yields an error instead.
func (s *Source) ReadFrame() (image.Image, error) {
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		if !s.live && (s.frames == 0 || s.read >= s.frames) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame %d from %s", s.read+1, s.name)
	}
	s.read++

	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame %d: %w", s.read, err)
	}
	return img, nil
}

func (s *Source) FPS() float64 { return s.fps }

func (s *Source) FrameCount() int { return s.frames }

func (s *Source) Name() string { return s.name }

func (s *Source) Close() error {
	matErr := s.mat.Close()
	return errors.Join(s.vc.Close(), matErr)
}
