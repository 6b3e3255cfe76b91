// Package overlay draws recognition results and run statistics on frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/saturnino-fabrica-de-software/chamada/internal/video"
)

var (
	ColorUnknown = color.RGBA{R: 255, A: 255}
	ColorMarked  = color.RGBA{R: 255, G: 255, A: 255}
	ColorNew     = color.RGBA{G: 255, A: 255}

	colorText     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorLabel    = color.RGBA{A: 255}
	colorPanel    = color.RGBA{A: 255}
	colorBarTrack = color.RGBA{R: 50, G: 50, B: 50, A: 255}
)

const (
	lineWidth   = 2
	labelHeight = 18
	lineHeight  = 20
	barWidth    = 400
	barHeight   = 20
	margin      = 10
)

var face = basicfont.Face7x13

// StateColor returns the box colour of a face state.
func StateColor(s video.FaceState) color.RGBA {
	switch s {
	case video.FaceMarked:
		return ColorMarked
	case video.FaceNew:
		return ColorNew
	default:
		return ColorUnknown
	}
}

// Label returns the text drawn above a face box.
func Label(f video.Face) string {
	if f.State == video.FaceMarked {
		return f.Name + " (marked)"
	}
	return f.Name
}

// StatsLines returns the statistics block for p.
func StatsLines(p video.Progress) []string {
	var lines []string
	if p.HasPercent {
		lines = append(lines, fmt.Sprintf("Progress: %.1f%%", p.Percent))
	}
	lines = append(lines, fmt.Sprintf("Marked Today: %d", p.MarkedToday))
	if p.TotalFrames > 0 {
		lines = append(lines, fmt.Sprintf("Frame: %d/%d", p.Frame, p.TotalFrames))
	} else {
		lines = append(lines, fmt.Sprintf("Frame: %d", p.Frame))
	}
	if len(p.NewlyMarked) > 0 {
		lines = append(lines, "New: "+strings.Join(p.NewlyMarked, ", "))
	}
	return lines
}

// Render returns an RGBA copy of frame with faces, stats and the progress
// bar drawn on it. frame itself is not modified.
func Render(frame image.Image, faces []video.Face, p video.Progress) *image.RGBA {
	b := frame.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), frame, b.Min, draw.Src)

	for _, f := range faces {
		DrawFace(dst, f)
	}
	DrawStats(dst, StatsLines(p))
	if p.HasPercent {
		DrawProgressBar(dst, p.Percent)
	}
	return dst
}

// DrawFace outlines the face box and writes its label on a filled strip
// just above it.
func DrawFace(dst draw.Image, f video.Face) {
	c := StateColor(f.State)
	r := f.Box.Rect().Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	outline(dst, r, c)

	label := Label(f)
	w := font.MeasureString(face, label).Ceil() + 4
	top := r.Min.Y - labelHeight
	if top < dst.Bounds().Min.Y {
		top = r.Min.Y
	}
	strip := image.Rect(r.Min.X, top, r.Min.X+w, top+labelHeight)
	fill(dst, strip, c)
	text(dst, label, r.Min.X+2, top+labelHeight-5, colorLabel)
}

// DrawStats writes lines in the top-left corner over a dark panel.
func DrawStats(dst draw.Image, lines []string) {
	for i, line := range lines {
		y := margin + i*lineHeight
		w := font.MeasureString(face, line).Ceil()
		fill(dst, image.Rect(margin, y, margin+w+10, y+lineHeight-2), colorPanel)
		text(dst, line, margin+5, y+lineHeight-6, colorText)
	}
}

// DrawProgressBar draws a bar in the top-right corner filled to percent.
func DrawProgressBar(dst draw.Image, percent float64) {
	b := dst.Bounds()
	width := barWidth
	if width > b.Dx()-2*margin {
		width = b.Dx() - 2*margin
	}
	if width <= 0 {
		return
	}
	x := b.Max.X - width - margin
	y := b.Min.Y + margin

	fill(dst, image.Rect(x, y, x+width, y+barHeight), colorBarTrack)

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	fill(dst, image.Rect(x, y, x+filled, y+barHeight), ColorNew)

	label := fmt.Sprintf("%.1f%%", percent)
	lw := font.MeasureString(face, label).Ceil()
	text(dst, label, x+(width-lw)/2, y+barHeight-5, colorText)
}

func fill(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

func outline(dst draw.Image, r image.Rectangle, c color.Color) {
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+lineWidth), c)
	fill(dst, image.Rect(r.Min.X, r.Max.Y-lineWidth, r.Max.X, r.Max.Y), c)
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+lineWidth, r.Max.Y), c)
	fill(dst, image.Rect(r.Max.X-lineWidth, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func text(dst draw.Image, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
