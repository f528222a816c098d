// Package selection finds entities under a world point and tracks the single
// selected entity.
package selection

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/stagecraft/project"
)

// Bounds returns the entity's axis-aligned box. Rotation is ignored.
func Bounds(e project.Entity) cp.BB {
	w, h := e.ScaledSize()
	return cp.NewBBForExtents(cp.Vector{X: e.X, Y: e.Y}, w/2, h/2)
}

// HitTest returns the topmost entity whose box contains p. Entities later in
// the slice are painted above earlier ones and win.
func HitTest(entities []project.Entity, p cp.Vector) (project.Entity, bool) {
	for i := len(entities) - 1; i >= 0; i-- {
		if Bounds(entities[i]).ContainsVect(p) {
			return entities[i], true
		}
	}
	return project.Entity{}, false
}

// Selection is an optional entity id.
type Selection struct {
	id string
}

func (s *Selection) Select(id string) { s.id = id }

func (s *Selection) Clear() { s.id = "" }

// ID returns the raw selected id, which may no longer exist in the project.
func (s *Selection) ID() string { return s.id }

// Resolve returns the selected entity. An id that is no longer in the project
// counts as nothing selected.
func (s *Selection) Resolve(p project.Project) (project.Entity, bool) {
	if s.id == "" {
		return project.Entity{}, false
	}
	e, _, ok := p.Entity(s.id)
	return e, ok
}
