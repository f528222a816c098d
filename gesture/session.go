// Package gesture turns raw pointer and wheel input into camera changes and
// project edits.
package gesture

import (
	"sync/atomic"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/stagecraft/geom"
	"github.com/milk9111/stagecraft/project"
	"github.com/milk9111/stagecraft/selection"
)

type Tool int

const (
	ToolPlace Tool = iota
	ToolSelect
	ToolPan
)

func (t Tool) String() string {
	switch t {
	case ToolPlace:
		return "Place"
	case ToolSelect:
		return "Select"
	case ToolPan:
		return "Pan"
	default:
		return "Unknown"
	}
}

// DragMode is the kind of drag in progress. DragNone means no drag.
type DragMode int32

const (
	DragNone DragMode = iota
	DragPan
	DragMoveEntity
	DragPlace
)

func (m DragMode) String() string {
	switch m {
	case DragPan:
		return "pan"
	case DragMoveEntity:
		return "moveEntity"
	case DragPlace:
		return "place"
	default:
		return "none"
	}
}

// DragCell publishes the current drag mode. It is read by the sync client when
// a relay message arrives, so it always reflects the live gesture.
type DragCell struct {
	v atomic.Int32
}

func (c *DragCell) Load() DragMode { return DragMode(c.v.Load()) }

func (c *DragCell) Store(m DragMode) { c.v.Store(int32(m)) }

// MovingEntity reports whether an entity is being dragged right now.
func (c *DragCell) MovingEntity() bool { return c.Load() == DragMoveEntity }

// Session is the local, unshared UI state of one editor window.
type Session struct {
	Camera geom.Camera
	// Origin is the screen position of the canvas' top-left corner.
	Origin    cp.Vector
	Tool      Tool
	Selection selection.Selection
	Hover     cp.Vector
	HoverOK   bool
	Placement project.PlacementSettings
	// PrefabID is the prefab the place tool instances.
	PrefabID string
}

func NewSession() *Session {
	return &Session{
		Camera:    geom.NewCamera(),
		Tool:      ToolSelect,
		Placement: project.DefaultPlacement(),
	}
}

// ScreenToWorld maps a screen point through the session camera.
func (s *Session) ScreenToWorld(p cp.Vector) cp.Vector {
	return geom.ScreenToWorld(p, s.Origin, s.Camera)
}

// WorldToScreen maps a world point through the session camera.
func (s *Session) WorldToScreen(p cp.Vector) cp.Vector {
	return geom.WorldToScreen(p, s.Origin, s.Camera)
}

// Selected resolves the selection against p.
func (s *Session) Selected(p project.Project) (project.Entity, bool) {
	return s.Selection.Resolve(p)
}
