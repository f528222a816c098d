package render

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/stagecraft/gesture"
	"github.com/milk9111/stagecraft/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = color.RGBA{R: 0xff, A: 0xff}
	green = color.RGBA{G: 0xff, A: 0xff}
	blue  = color.RGBA{B: 0xff, A: 0xff}
)

func testProject() project.Project {
	p := project.NewProject("R", 256, 256, []project.Prefab{
		{ID: "g", Name: "Green", Color: "#00ff00", DefaultWidth: 20, DefaultHeight: 20},
		{ID: "b", Name: "Blue", Color: "blue", DefaultWidth: 20, DefaultHeight: 20},
	})
	p.Width, p.Height = 100, 100
	p.Background = "#ff0000"
	p.SnapSize = 0
	return p
}

func ent(id, prefab string, x, y, w, h float64) project.Entity {
	return project.Entity{ID: id, PrefabID: prefab, X: x, Y: y, Scale: 1, Width: w, Height: h}
}

func TestStageAndBackdrop(t *testing.T) {
	r := &Renderer{}
	img := r.Frame(200, 200, testProject(), gesture.NewSession())

	assert.Equal(t, red, img.RGBAAt(50, 50))
	assert.Equal(t, backdropColor, img.RGBAAt(150, 150))
	assert.Equal(t, backdropColor, img.RGBAAt(50, 150))
}

func TestEntitiesPaintInOrder(t *testing.T) {
	p := testProject()
	p.Entities = []project.Entity{
		ent("a", "g", 50, 50, 20, 20),
		ent("b", "b", 60, 50, 20, 20),
		ent("c", "ghost", 20, 20, 10, 10),
	}
	img := (&Renderer{}).Frame(200, 200, p, gesture.NewSession())

	assert.Equal(t, green, img.RGBAAt(44, 50))
	assert.Equal(t, blue, img.RGBAAt(56, 50), "later entities paint on top")
	assert.Equal(t, DefaultEntityColor, img.RGBAAt(20, 20), "missing prefab falls back")
	assert.Equal(t, red, img.RGBAAt(90, 90))
}

func TestCameraTransform(t *testing.T) {
	p := testProject()
	p.Entities = []project.Entity{ent("a", "g", 50, 50, 20, 20)}

	s := gesture.NewSession()
	s.Camera.X = 100
	img := (&Renderer{}).Frame(300, 300, p, s)
	assert.Equal(t, backdropColor, img.RGBAAt(50, 50))
	assert.Equal(t, green, img.RGBAAt(150, 50))

	s = gesture.NewSession()
	s.Camera.Zoom = 2
	s.Origin = cp.Vector{X: 40, Y: 0}
	img = (&Renderer{}).Frame(300, 300, p, s)
	at := s.WorldToScreen(cp.Vector{X: 50, Y: 50})
	assert.Equal(t, green, img.RGBAAt(int(at.X), int(at.Y)))
	assert.Equal(t, red, img.RGBAAt(40+180, 180))
	assert.Equal(t, backdropColor, img.RGBAAt(20, 20))
}

func TestRotationAffectsPaint(t *testing.T) {
	p := testProject()
	e := ent("a", "g", 50, 50, 80, 10)
	e.Rotation = 90
	p.Entities = []project.Entity{e}

	img := (&Renderer{}).Frame(200, 200, p, gesture.NewSession())
	assert.Equal(t, green, img.RGBAAt(50, 25))
	assert.Equal(t, red, img.RGBAAt(80, 50))
}

func TestSelectionOfDeletedEntityDrawsNothing(t *testing.T) {
	p := testProject()
	s := gesture.NewSession()
	plain := (&Renderer{}).Frame(120, 120, p, s)

	s.Selection.Select("gone")
	selected := (&Renderer{}).Frame(120, 120, p, s)
	assert.Equal(t, plain.Pix, selected.Pix)
}

func TestLabelsAndHover(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	p := testProject()
	p.Entities = []project.Entity{ent("a", "g", 50, 50, 60, 30)}
	s := gesture.NewSession()
	s.Selection.Select("a")
	s.Hover = cp.Vector{X: 10, Y: 80}
	s.HoverOK = true

	img := r.Frame(200, 200, p, s)
	assert.NotEqual(t, red, img.RGBAAt(150, 80), "hover line crosses the backdrop")
	assert.NotEqual(t, backdropColor, img.RGBAAt(150, 80))
}

func TestOverviewAndPNG(t *testing.T) {
	r := &Renderer{}
	p := testProject()
	p.Width, p.Height = 1000, 500

	img := r.Overview(p, 532)
	assert.Equal(t, 532, img.Bounds().Dx())
	assert.Equal(t, 282, img.Bounds().Dy())

	var buf bytes.Buffer
	require.NoError(t, r.WritePNG(&buf, p, 532))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestGridLinesStayInsideView(t *testing.T) {
	p := testProject()
	p.Width, p.Height = 10000, 6000
	p.SnapSize = 2

	s := gesture.NewSession()
	s.Camera.Zoom = 3.5
	s.Camera.X, s.Camera.Y = -17500, -10500
	vis := visibleWorld(1280, 800, s)

	lines := gridLines(p, vis, s.Camera.Zoom)
	require.NotEmpty(t, lines)
	assert.LessOrEqual(t, len(lines), 1280/7+800/7+4, "work follows the window, not the stage")
	for _, l := range lines {
		assert.GreaterOrEqual(t, min(l[0], l[2]), vis.L)
		assert.LessOrEqual(t, max(l[0], l[2]), vis.R)
		assert.GreaterOrEqual(t, min(l[1], l[3]), vis.B)
		assert.LessOrEqual(t, max(l[1], l[3]), vis.T)
		if l[0] == l[2] {
			assert.Zero(t, math.Mod(l[0], 2))
		}
	}

	s.Camera.Zoom = 1
	assert.Empty(t, gridLines(p, vis, 1), "lines closer than minGridPixels are hidden")

	s.Camera.X = 50000
	assert.Empty(t, gridLines(p, visibleWorld(1280, 800, s), 3.5), "stage out of view")
}

func TestGridLinesCoverSmallStage(t *testing.T) {
	p := testProject()
	p.SnapSize = 32
	lines := gridLines(p, visibleWorld(200, 200, gesture.NewSession()), 1)
	assert.Equal(t, [][4]float64{
		{32, 0, 32, 100}, {64, 0, 64, 100}, {96, 0, 96, 100},
		{0, 32, 100, 32}, {0, 64, 100, 64}, {0, 96, 100, 96},
	}, lines)
}

func TestLargeStageFrameIsBounded(t *testing.T) {
	p := testProject()
	p.Width, p.Height = 200000, 6000
	p.SnapSize = 2
	for i := 0; i < 2000; i++ {
		p.Entities = append(p.Entities, ent(fmt.Sprintf("e%d", i), "g", float64(i*100), 3040, 20, 20))
	}

	s := gesture.NewSession()
	s.Camera.Zoom = 3.5
	s.Camera.X, s.Camera.Y = -10500, -10500
	s.Selection.Select("e1999")

	start := time.Now()
	img := (&Renderer{}).Frame(320, 200, p, s)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, red, img.RGBAAt(1, 1), "stage fill covers the view")
	at := s.WorldToScreen(cp.Vector{X: 3000, Y: 3040})
	assert.Equal(t, green, img.RGBAAt(int(at.X), int(at.Y)))
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.RGBA
		ok   bool
	}{
		{"#ff0000", red, true},
		{"#0F0", green, true},
		{"#0000ff80", color.RGBA{B: 0xff, A: 0x80}, true},
		{"Blue", blue, true},
		{" #ff0000 ", red, true},
		{"#12", color.RGBA{}, false},
		{"#zzzzzz", color.RGBA{}, false},
		{"not-a-color", color.RGBA{}, false},
		{"", color.RGBA{}, false},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, ok := ParseColor(c.in)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.want, got)
		})
	}
}
