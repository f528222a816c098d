package gesture

import (
	"log"
	"sort"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/stagecraft/geom"
	"github.com/milk9111/stagecraft/project"
	"github.com/milk9111/stagecraft/selection"
)

type State int

const (
	StateIdle State = iota
	StateDragging
	StatePinching
)

func (s State) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	case StatePinching:
		return "pinching"
	default:
		return "idle"
	}
}

// PointerID identifies an input source: the mouse, or one touch.
type PointerID int

type Button int

const (
	ButtonPrimary Button = iota
	// ButtonAuxiliary is the middle or right mouse button.
	ButtonAuxiliary
)

// Controller is the pointer gesture state machine. It is not safe for
// concurrent use; the editor drives it from its update loop.
type Controller struct {
	session *Session
	store   *project.Store
	drag    *DragCell
	logger  *log.Logger

	state    State
	pointers map[PointerID]cp.Vector

	pinching  bool
	pinchDist float64
	pinchZoom float64
	pinchMid  cp.Vector
}

type Option func(*Controller)

// WithDragCell shares an existing drag cell with the controller.
func WithDragCell(cell *DragCell) Option {
	return func(c *Controller) { c.drag = cell }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func NewController(session *Session, store *project.Store, opts ...Option) *Controller {
	c := &Controller{
		session:  session,
		store:    store,
		logger:   log.Default(),
		pointers: make(map[PointerID]cp.Vector),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.drag == nil {
		c.drag = &DragCell{}
	}
	return c
}

func (c *Controller) State() State { return c.state }

func (c *Controller) DragMode() DragMode { return c.drag.Load() }

// DragCell returns the cell the controller publishes its drag mode to.
func (c *Controller) DragCell() *DragCell { return c.drag }

// Pointers returns the number of active pointers.
func (c *Controller) Pointers() int { return len(c.pointers) }

func (c *Controller) setDrag(m DragMode) {
	c.drag.Store(m)
	if m == DragNone {
		c.state = StateIdle
	} else {
		c.state = StateDragging
	}
}

func (c *Controller) hover(p cp.Vector) cp.Vector {
	w := c.session.ScreenToWorld(p)
	c.session.Hover = w
	c.session.HoverOK = true
	return w
}

// pair returns the two lowest pointer ids' positions so a pinch is stable
// when more than two pointers are down.
func (c *Controller) pair() (cp.Vector, cp.Vector) {
	ids := make([]int, 0, len(c.pointers))
	for id := range c.pointers {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	return c.pointers[PointerID(ids[0])], c.pointers[PointerID(ids[1])]
}

func (c *Controller) beginPinch() {
	a, b := c.pair()
	c.pinching = true
	c.pinchDist = a.Distance(b)
	c.pinchZoom = c.session.Camera.Zoom
	c.pinchMid = geom.Midpoint(a, b)
	c.drag.Store(DragNone)
	c.state = StatePinching
}

// PointerDown starts a gesture.
func (c *Controller) PointerDown(id PointerID, p cp.Vector, b Button) {
	c.pointers[id] = p
	if len(c.pointers) >= 2 {
		c.beginPinch()
		return
	}

	world := c.hover(p)
	s := c.session
	if s.Tool == ToolPan || b == ButtonAuxiliary {
		c.setDrag(DragPan)
		return
	}

	cur := c.store.Project()
	if s.Tool == ToolSelect {
		if e, ok := selection.HitTest(cur.Entities, world); ok {
			s.Selection.Select(e.ID)
			c.setDrag(DragMoveEntity)
			return
		}
	}
	if s.Tool == ToolPlace && s.PrefabID != "" {
		e, err := c.store.PlaceEntity(s.PrefabID, world.X, world.Y, s.Placement)
		if err == nil {
			s.Selection.Select(e.ID)
			c.setDrag(DragPlace)
			return
		}
		c.logger.Printf("gesture: place %s: %v", s.PrefabID, err)
	}
	if e, ok := selection.HitTest(cur.Entities, world); ok {
		s.Selection.Select(e.ID)
		c.setDrag(DragMoveEntity)
		return
	}
	if s.Tool == ToolSelect {
		s.Selection.Clear()
	}
	c.setDrag(DragNone)
}

// PointerMove updates the pointer position and advances the active gesture.
func (c *Controller) PointerMove(id PointerID, p cp.Vector) {
	prev, tracked := c.pointers[id]
	if tracked {
		c.pointers[id] = p
	}
	c.hover(p)

	if len(c.pointers) >= 2 {
		if !c.pinching {
			c.beginPinch()
		}
		a, b := c.pair()
		cam := c.session.Camera
		if c.pinchDist > 0 {
			cam = cam.WithZoom(c.pinchZoom * a.Distance(b) / c.pinchDist)
		}
		mid := geom.Midpoint(a, b)
		cam = cam.Pan(mid.Sub(c.pinchMid))
		c.pinchMid = mid
		c.session.Camera = cam
		return
	}
	if !tracked {
		return
	}

	delta := p.Sub(prev)
	switch c.drag.Load() {
	case DragPan:
		c.session.Camera = c.session.Camera.Pan(delta)
	case DragMoveEntity:
		eid := c.session.Selection.ID()
		if eid == "" || (delta.X == 0 && delta.Y == 0) {
			return
		}
		z := c.session.Camera.Zoom
		if z == 0 {
			z = 1
		}
		if err := c.store.MoveEntity(eid, delta.X/z, delta.Y/z); err != nil {
			c.logger.Printf("gesture: move %s: %v", eid, err)
			c.setDrag(DragNone)
		}
	}
}

// PointerUp ends the gesture for a pointer.
func (c *Controller) PointerUp(id PointerID) {
	delete(c.pointers, id)
	if len(c.pointers) < 2 {
		c.pinching = false
		c.pinchDist = 0
	}
	c.setDrag(DragNone)
}

// PointerCancel behaves like PointerUp.
func (c *Controller) PointerCancel(id PointerID) { c.PointerUp(id) }

// PointerLeave hides the hover crosshair.
func (c *Controller) PointerLeave() { c.session.HoverOK = false }

// Wheel zooms by one WheelStep per event. A positive delta (scrolling down)
// zooms out. Pan is unchanged.
func (c *Controller) Wheel(delta float64) {
	if delta == 0 {
		return
	}
	step := geom.WheelStep
	if delta > 0 {
		step = -step
	}
	cam := c.session.Camera
	c.session.Camera = cam.WithZoom(cam.Zoom + step)
}
