package video

import (
	"image"
	"io"
)

// Source yields frames in order. ReadFrame returns io.EOF when the stream
// is exhausted. FPS and FrameCount return 0 when the source cannot tell.
type Source interface {
	ReadFrame() (image.Image, error)
	FPS() float64
	FrameCount() int
	Name() string
	Close() error
}

// StillSource is a single photo seen as a one-frame stream.
type StillSource struct {
	name string
	img  image.Image
	done bool
}

func NewStillSource(name string, img image.Image) *StillSource {
	return &StillSource{name: name, img: img}
}

func (s *StillSource) ReadFrame() (image.Image, error) {
	if s.done || s.img == nil {
		return nil, io.EOF
	}
	s.done = true
	return s.img, nil
}

func (s *StillSource) FPS() float64 { return 0 }

func (s *StillSource) FrameCount() int { return 1 }

func (s *StillSource) Name() string { return s.name }

func (s *StillSource) Close() error {
	s.img = nil
	return nil
}
