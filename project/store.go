package project

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/milk9111/stagecraft/common"
)

const (
	MinStageWidth  = 256
	MaxStageWidth  = 10000
	MinStageHeight = 256
	MaxStageHeight = 6000

	DefaultBackground = "#1e1e2e"
	DefaultSnapSize   = 32
)

var (
	ErrEntityNotFound  = errors.New("project: entity not found")
	ErrPrefabNotFound  = errors.New("project: prefab not found")
	ErrDuplicatePrefab = errors.New("project: duplicate prefab id")
)

// Origin tells subscribers where a change came from.
type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
)

func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}

// Change is delivered to subscribers after every replacement of the document.
type Change struct {
	Project Project
	Origin  Origin
}

// Store owns the current Project. Every local mutation builds a new value
// stamped with the current time and the local actor; the previous value is
// never modified, so snapshots handed out by Project stay valid.
type Store struct {
	mu      sync.RWMutex
	current Project
	actor   string
	now     func() time.Time
	newID   func(prefix string) string

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

type StoreOption func(*Store)

// WithClock overrides the stamp clock.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDs overrides entity/prefab id generation.
func WithIDs(fn func(prefix string) string) StoreOption {
	return func(s *Store) { s.newID = fn }
}

// NewID returns a session-unique id such as "ent_5f0c...".
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// NewStore creates a store for the given local actor. The initial project is
// normalized, not re-stamped.
func NewStore(actor string, initial Project, opts ...StoreOption) *Store {
	s := &Store{
		actor: actor,
		now:   time.Now,
		newID: NewID,
		subs:  make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current = s.Normalize(initial)
	return s
}

// Actor returns the local actor id used for stamps.
func (s *Store) Actor() string { return s.actor }

// Project returns the current snapshot. Callers must treat its slices as
// read-only.
func (s *Store) Project() Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn for every future change and returns a function that
// removes it.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) stamp(p Project) Project {
	p.LastUpdatedAt = s.now().UnixMilli()
	p.LastUpdatedBy = s.actor
	return p
}

// Normalize fills in a missing stamp with the local clock and actor while
// keeping any stamp the document already carries.
func (s *Store) Normalize(p Project) Project {
	p = p.Clone()
	if p.LastUpdatedAt == 0 {
		p.LastUpdatedAt = s.now().UnixMilli()
	}
	if p.LastUpdatedBy == "" {
		p.LastUpdatedBy = s.actor
	}
	return p
}

func (s *Store) commit(p Project, origin Origin) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()

	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()

	change := Change{Project: p, Origin: origin}
	for _, fn := range fns {
		fn(change)
	}
}

// update clones the current project, applies fn, stamps and commits. When fn
// fails nothing changes.
func (s *Store) update(fn func(p *Project) error) error {
	next := s.Project().Clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.commit(s.stamp(next), OriginLocal)
	return nil
}

// Replace installs p as a locally authored document (new project or load from
// local storage). It is always re-stamped.
func (s *Store) Replace(p Project) {
	s.commit(s.stamp(p.Clone()), OriginLocal)
}

// Import decodes a document and installs it, keeping the stamp it carries.
// A malformed document leaves the current project untouched.
func (s *Store) Import(data []byte) error {
	p, err := Decode(data)
	if err != nil {
		return err
	}
	s.commit(s.Normalize(p), OriginLocal)
	return nil
}

// Export encodes the current project as a document.
func (s *Store) Export() ([]byte, error) {
	return Encode(s.Project())
}

// ApplyRemote installs a snapshot received from a peer verbatim.
func (s *Store) ApplyRemote(p Project) {
	s.commit(p.Clone(), OriginRemote)
}

// NewProject builds a fresh document. Stage dimensions are clamped to the
// supported range rather than rejected.
func NewProject(name string, width, height float64, catalog []Prefab) Project {
	if strings.TrimSpace(name) == "" {
		name = "Untitled"
	}
	return Project{
		Name:       name,
		Width:      common.Clamp(width, MinStageWidth, MaxStageWidth),
		Height:     common.Clamp(height, MinStageHeight, MaxStageHeight),
		Background: DefaultBackground,
		SnapSize:   DefaultSnapSize,
		Prefabs:    append([]Prefab{}, catalog...),
		Entities:   []Entity{},
	}
}

// Reset replaces the document with a new empty project.
func (s *Store) Reset(name string, width, height float64, catalog []Prefab) {
	s.Replace(NewProject(name, width, height, catalog))
}

func (s *Store) Rename(name string) {
	_ = s.update(func(p *Project) error {
		p.Name = name
		return nil
	})
}

// ResizeStage sets the stage bounds, clamped like NewProject.
func (s *Store) ResizeStage(width, height float64) {
	_ = s.update(func(p *Project) error {
		p.Width = common.Clamp(width, MinStageWidth, MaxStageWidth)
		p.Height = common.Clamp(height, MinStageHeight, MaxStageHeight)
		return nil
	})
}

func (s *Store) SetBackground(color string) {
	_ = s.update(func(p *Project) error {
		p.Background = color
		return nil
	})
}

// SetSnapSize sets the grid spacing; zero or negative disables snapping.
func (s *Store) SetSnapSize(size float64) {
	if size < 0 {
		size = 0
	}
	_ = s.update(func(p *Project) error {
		p.SnapSize = size
		return nil
	})
}

// AddPrefab appends a catalog entry. An empty id is generated.
func (s *Store) AddPrefab(pf Prefab) (Prefab, error) {
	if pf.ID == "" {
		pf.ID = s.newID("prefab")
	}
	err := s.update(func(p *Project) error {
		if _, ok := p.Prefab(pf.ID); ok {
			return fmt.Errorf("%w: %s", ErrDuplicatePrefab, pf.ID)
		}
		p.Prefabs = append(p.Prefabs, pf)
		return nil
	})
	return pf, err
}

// AddEntity appends e on top of the paint order. An empty id is generated.
func (s *Store) AddEntity(e Entity) Entity {
	if e.ID == "" {
		e.ID = s.newID("ent")
	}
	_ = s.update(func(p *Project) error {
		p.Entities = append(p.Entities, e)
		return nil
	})
	return e
}

// PlaceEntity instances a prefab at a world point using the placement
// settings and appends it.
func (s *Store) PlaceEntity(prefabID string, x, y float64, settings PlacementSettings) (Entity, error) {
	cur := s.Project()
	pf, ok := cur.Prefab(prefabID)
	if !ok {
		return Entity{}, fmt.Errorf("%w: %s", ErrPrefabNotFound, prefabID)
	}
	e := Spawn(s.newID("ent"), pf, x, y, settings, cur.SnapSize)
	return s.AddEntity(e), nil
}

// MoveEntity translates an entity by a world-space delta.
func (s *Store) MoveEntity(id string, dx, dy float64) error {
	return s.UpdateEntity(id, func(e *Entity) {
		e.X += dx
		e.Y += dy
	})
}

// UpdateEntity applies a property edit. The entity id cannot be changed.
func (s *Store) UpdateEntity(id string, fn func(e *Entity)) error {
	return s.update(func(p *Project) error {
		_, idx, ok := p.Entity(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
		}
		e := p.Entities[idx]
		fn(&e)
		e.ID = id
		p.Entities[idx] = e
		return nil
	})
}

func (s *Store) DeleteEntity(id string) error {
	return s.update(func(p *Project) error {
		_, idx, ok := p.Entity(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
		}
		p.Entities = append(p.Entities[:idx], p.Entities[idx+1:]...)
		return nil
	})
}

// DuplicateEntity copies an entity under a new id, offset by (dx, dy), on top
// of the paint order.
func (s *Store) DuplicateEntity(id string, dx, dy float64) (Entity, error) {
	e, _, ok := s.Project().Entity(id)
	if !ok {
		return Entity{}, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	e.ID = ""
	e.X += dx
	e.Y += dy
	return s.AddEntity(e), nil
}

// RaiseEntity moves an entity one step towards the top of the paint order.
func (s *Store) RaiseEntity(id string) error {
	return s.reorder(id, 1)
}

// LowerEntity moves an entity one step towards the bottom of the paint order.
func (s *Store) LowerEntity(id string) error {
	return s.reorder(id, -1)
}

func (s *Store) reorder(id string, step int) error {
	return s.update(func(p *Project) error {
		_, idx, ok := p.Entity(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
		}
		to := common.ClampInt(idx+step, 0, len(p.Entities)-1)
		p.Entities[idx], p.Entities[to] = p.Entities[to], p.Entities[idx]
		return nil
	})
}

// ClearEntities removes every entity and keeps the catalog.
func (s *Store) ClearEntities() {
	_ = s.update(func(p *Project) error {
		p.Entities = []Entity{}
		return nil
	})
}
