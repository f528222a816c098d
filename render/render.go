// Package render paints a project, as seen through a session camera, into an
// RGBA bitmap.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/stagecraft/gesture"
	"github.com/milk9111/stagecraft/project"
	"github.com/milk9111/stagecraft/selection"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	backdropColor  = color.RGBA{R: 0x11, G: 0x11, B: 0x1b, A: 0xff}
	gridColor      = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x18}
	borderColor    = color.RGBA{R: 0x89, G: 0xb4, B: 0xfa, A: 0xff}
	selectionColor = color.RGBA{R: 0xf9, G: 0xe2, B: 0xaf, A: 0xff}
	hoverColor     = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x60}
	labelColor     = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xe0}
)

// minGridPixels hides grid lines closer together than this on screen.
const minGridPixels = 6

// Renderer draws frames. The zero value draws without text labels.
type Renderer struct {
	face font.Face
}

// New builds a renderer with the Go regular font for labels.
func New() (*Renderer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: parse font: %w", err)
	}
	return &Renderer{face: truetype.NewFace(f, &truetype.Options{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	})}, nil
}

// Draw repaints dst entirely from p and the session's camera, selection and
// hover state.
func (r *Renderer) Draw(dst *image.RGBA, p project.Project, s *gesture.Session) {
	dc := gg.NewContextForRGBA(dst)
	if r.face != nil {
		dc.SetFontFace(r.face)
	}
	dc.SetColor(backdropColor)
	dc.Clear()

	zoom := s.Camera.Zoom
	if zoom == 0 {
		zoom = 1
	}

	vis := visibleWorld(dc.Width(), dc.Height(), s)
	margin := 8 / zoom
	stage := cp.BB{L: 0, B: 0, R: p.Width, T: p.Height}

	dc.Push()
	dc.Translate(s.Origin.X+s.Camera.X, s.Origin.Y+s.Camera.Y)
	dc.Scale(zoom, zoom)

	if onStage, ok := clip(stage, grow(vis, margin)); ok {
		dc.SetColor(colorOr(p.Background, color.RGBA{R: 0x1e, G: 0x1e, B: 0x2e, A: 0xff}))
		drawRect(dc, onStage)
		dc.Fill()

		if lines := gridLines(p, vis, zoom); len(lines) > 0 {
			dc.SetColor(gridColor)
			dc.SetLineWidth(1 / zoom)
			for _, l := range lines {
				dc.DrawLine(l[0], l[1], l[2], l[3])
			}
			dc.Stroke()
		}

		dc.SetColor(borderColor)
		dc.SetLineWidth(2 / zoom)
		drawRect(dc, onStage)
		dc.Stroke()
	}

	for _, e := range p.Entities {
		if !paintBounds(e).Intersects(vis) {
			continue
		}
		r.drawEntity(dc, p, e, zoom)
	}

	if e, ok := s.Selected(p); ok {
		pad := 3 / zoom
		if bb, ok := clip(grow(selection.Bounds(e), pad), grow(vis, margin)); ok {
			dc.SetColor(selectionColor)
			dc.SetLineWidth(2 / zoom)
			dc.SetDash(6/zoom, 4/zoom)
			drawRect(dc, bb)
			dc.Stroke()
			dc.SetDash()
		}
	}
	dc.Pop()

	if s.HoverOK {
		r.drawHover(dc, s)
	}
}

// visibleWorld is the world rectangle covered by a w×h bitmap.
func visibleWorld(w, h int, s *gesture.Session) cp.BB {
	a := s.ScreenToWorld(cp.Vector{})
	b := s.ScreenToWorld(cp.Vector{X: float64(w), Y: float64(h)})
	return cp.BB{L: min(a.X, b.X), B: min(a.Y, b.Y), R: max(a.X, b.X), T: max(a.Y, b.Y)}
}

func clip(a, b cp.BB) (cp.BB, bool) {
	out := cp.BB{L: max(a.L, b.L), B: max(a.B, b.B), R: min(a.R, b.R), T: min(a.T, b.T)}
	return out, out.L <= out.R && out.B <= out.T
}

func grow(bb cp.BB, by float64) cp.BB {
	return cp.BB{L: bb.L - by, B: bb.B - by, R: bb.R + by, T: bb.T + by}
}

func drawRect(dc *gg.Context, bb cp.BB) {
	dc.DrawRectangle(bb.L, bb.B, bb.R-bb.L, bb.T-bb.B)
}

// paintBounds covers the entity at any rotation.
func paintBounds(e project.Entity) cp.BB {
	w, h := e.ScaledSize()
	return cp.NewBBForCircle(cp.Vector{X: e.X, Y: e.Y}, math.Hypot(w, h)/2)
}

// gridLines returns the interior grid segments inside vis, each as
// x1, y1, x2, y2. Nothing is returned when lines would be closer than
// minGridPixels on screen.
func gridLines(p project.Project, vis cp.BB, zoom float64) [][4]float64 {
	step := p.SnapSize
	if step <= 0 || step*zoom < minGridPixels {
		return nil
	}
	span, ok := clip(cp.BB{L: 0, B: 0, R: p.Width, T: p.Height}, vis)
	if !ok {
		return nil
	}
	var lines [][4]float64
	for x := max(step, math.Ceil(span.L/step)*step); x <= span.R && x < p.Width; x += step {
		lines = append(lines, [4]float64{x, span.B, x, span.T})
	}
	for y := max(step, math.Ceil(span.B/step)*step); y <= span.T && y < p.Height; y += step {
		lines = append(lines, [4]float64{span.L, y, span.R, y})
	}
	return lines
}

func (r *Renderer) drawEntity(dc *gg.Context, p project.Project, e project.Entity, zoom float64) {
	fill := DefaultEntityColor
	label := e.Name
	if pf, ok := p.Prefab(e.PrefabID); ok {
		fill = colorOr(pf.Color, DefaultEntityColor)
		if label == "" {
			label = pf.Name
		}
	}
	w, h := e.ScaledSize()

	dc.Push()
	dc.Translate(e.X, e.Y)
	dc.Rotate(gg.Radians(e.Rotation))
	dc.DrawRectangle(-w/2, -h/2, w, h)
	dc.SetColor(fill)
	dc.FillPreserve()
	dc.SetColor(darken(fill, 0.6))
	dc.SetLineWidth(1.5 / zoom)
	dc.Stroke()
	if r.face != nil && label != "" && w*zoom >= 24 && h*zoom >= 14 {
		dc.Scale(1/zoom, 1/zoom)
		dc.SetColor(labelColor)
		dc.DrawStringAnchored(label, 0, 0, 0.5, 0.35)
	}
	dc.Pop()
}

func (r *Renderer) drawHover(dc *gg.Context, s *gesture.Session) {
	at := s.WorldToScreen(s.Hover)
	width := float64(dc.Width())
	height := float64(dc.Height())
	dc.SetColor(hoverColor)
	dc.SetLineWidth(1)
	dc.DrawLine(s.Origin.X, at.Y, width, at.Y)
	dc.DrawLine(at.X, s.Origin.Y, at.X, height)
	dc.Stroke()
	if r.face != nil {
		dc.DrawString(fmt.Sprintf("%.0f, %.0f", s.Hover.X, s.Hover.Y), at.X+6, at.Y-6)
	}
}

// Frame allocates a w×h bitmap and draws into it.
func (r *Renderer) Frame(w, h int, p project.Project, s *gesture.Session) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	r.Draw(dst, p, s)
	return dst
}

// Overview draws the whole stage fitted into a maxSide×maxSide box with a
// small margin, without selection or hover.
func (r *Renderer) Overview(p project.Project, maxSide int) *image.RGBA {
	const margin = 16
	zoom := 1.0
	if p.Width > 0 && p.Height > 0 {
		zoom = float64(maxSide-2*margin) / max(p.Width, p.Height)
	}
	if zoom <= 0 {
		zoom = 1
	}
	s := gesture.NewSession()
	s.Camera.Zoom = zoom
	s.Origin = cp.Vector{X: margin, Y: margin}
	w := int(p.Width*zoom) + 2*margin
	h := int(p.Height*zoom) + 2*margin
	return r.Frame(w, h, p, s)
}

// WritePNG encodes the stage overview as PNG.
func (r *Renderer) WritePNG(w io.Writer, p project.Project, maxSide int) error {
	img := r.Overview(p, maxSide)
	if err := gg.NewContextForRGBA(img).EncodePNG(w); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}
