// Package workbench ties the editing pieces together for one editor window:
// project store, gesture session, relay client, blob store and placement
// scripts. It has no UI dependency; cmd/editor drives it from ebiten.
package workbench

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/milk9111/stagecraft/collab"
	"github.com/milk9111/stagecraft/config"
	"github.com/milk9111/stagecraft/gesture"
	"github.com/milk9111/stagecraft/prefabs"
	"github.com/milk9111/stagecraft/project"
	"github.com/milk9111/stagecraft/script"
	"github.com/milk9111/stagecraft/storage"
)

// PasteOffset is how far a pasted entity lands from its source.
const PasteOffset = 16

// ProjectKey is the blob store key a project is saved under.
func ProjectKey(name string) string {
	return "project:" + strings.TrimSpace(name)
}

type Workbench struct {
	Store      *project.Store
	Session    *gesture.Session
	Controller *gesture.Controller
	Client     *collab.Client

	blobs     storage.Store
	runner    *script.Runner
	logger    *log.Logger
	exportDir string
	status    string
	reported  error

	autosave time.Duration
	dirty    bool
	lastSave time.Time

	ping     time.Duration
	lastPing time.Time
	clock    func() time.Time
}

type Option func(*Workbench)

func WithLogger(l *log.Logger) Option {
	return func(w *Workbench) { w.logger = l }
}

// New builds a workbench for cfg around initial. dialer is used for the
// relay connection, which is not opened here.
func New(cfg config.Editor, initial project.Project, blobs storage.Store, dialer collab.Dialer, opts ...Option) *Workbench {
	w := &Workbench{
		blobs:     blobs,
		logger:    log.Default(),
		exportDir: cfg.ExportDir,
		autosave:  cfg.Autosave,
		ping:      cfg.Ping,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.Store = project.NewStore(cfg.Actor, initial)
	w.Session = gesture.NewSession()
	w.Session.Placement = cfg.Placement
	w.Controller = gesture.NewController(w.Session, w.Store, gesture.WithLogger(w.logger))
	w.Client = collab.NewClient(w.Store, dialer, cfg.RelayURL, cfg.SessionID,
		collab.WithDragGuard(w.Controller.DragCell()),
		collab.WithLogger(w.logger))
	w.Store.Subscribe(func(project.Change) { w.dirty = true })
	w.runner = script.New(w.Store, script.WithLogger(w.logger), script.WithPlacement(func() project.PlacementSettings { return w.Session.Placement }))
	return w
}

// Status is the last message shown to the user.
func (w *Workbench) Status() string { return w.status }

func (w *Workbench) setStatus(format string, args ...any) {
	w.status = fmt.Sprintf(format, args...)
	w.logger.Printf("editor: %s", w.status)
}

// Tick applies pending relay traffic and keeps an idle connection alive
// with a ping every configured interval. Call once per frame.
func (w *Workbench) Tick() {
	w.Client.Pump()
	if err := w.Client.LastError(); err != nil && err != w.reported {
		w.reported = err
		w.setStatus("offline: %v", err)
	}
	if w.ping <= 0 || w.Client.Status() != collab.StatusConnected {
		return
	}
	if now := w.clock(); now.Sub(w.lastPing) >= w.ping {
		w.lastPing = now
		if err := w.Client.Ping(); err != nil {
			w.logger.Printf("workbench: ping: %v", err)
		}
	}
}

// Resync asks the relay for the session's stored project, which replaces
// the local one when it arrives.
func (w *Workbench) Resync() error {
	if err := w.Client.RequestSnapshot(); err != nil {
		w.setStatus("resync failed: %v", err)
		return err
	}
	w.setStatus("requested snapshot of session %s", w.Client.SessionID())
	return nil
}

func (w *Workbench) Close() {
	w.Client.Close()
}

func (w *Workbench) SetTool(t gesture.Tool) {
	w.Session.Tool = t
}

// SelectPrefab arms the place tool with a prefab.
func (w *Workbench) SelectPrefab(id string) {
	w.Session.PrefabID = id
	w.Session.Tool = gesture.ToolPlace
}

func (w *Workbench) ToggleSnap() bool {
	w.Session.Placement.SnapEnabled = !w.Session.Placement.SnapEnabled
	if w.Session.Placement.SnapEnabled {
		w.setStatus("snap on")
	} else {
		w.setStatus("snap off")
	}
	return w.Session.Placement.SnapEnabled
}

// DeleteSelection removes the selected entity, if any.
func (w *Workbench) DeleteSelection() error {
	id := w.Session.Selection.ID()
	if id == "" {
		return nil
	}
	w.Session.Selection.Clear()
	if err := w.Store.DeleteEntity(id); err != nil && !errors.Is(err, project.ErrEntityNotFound) {
		return err
	}
	return nil
}

func (w *Workbench) Save(ctx context.Context) error {
	data, err := w.Store.Export()
	if err != nil {
		return err
	}
	key := ProjectKey(w.Store.Project().Name)
	if err := w.blobs.Save(ctx, key, data); err != nil {
		return fmt.Errorf("workbench: save: %w", err)
	}
	w.dirty = false
	w.setStatus("saved %s", key)
	return nil
}

// AutosaveDue reports whether Autosave would save at now.
func (w *Workbench) AutosaveDue(now time.Time) bool {
	return w.autosave > 0 && w.dirty && now.Sub(w.lastSave) >= w.autosave
}

// Autosave saves when the project changed and the autosave interval has
// passed since the last autosave. A zero interval disables it.
func (w *Workbench) Autosave(ctx context.Context, now time.Time) (bool, error) {
	if !w.AutosaveDue(now) {
		return false, nil
	}
	w.lastSave = now
	if err := w.Save(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Load replaces the project with the one saved under name.
func (w *Workbench) Load(ctx context.Context, name string) error {
	data, err := w.blobs.Load(ctx, ProjectKey(name))
	if err != nil {
		return fmt.Errorf("workbench: load %s: %w", name, err)
	}
	p, err := project.Decode(data)
	if err != nil {
		return err
	}
	w.Session.Selection.Clear()
	w.Store.Replace(p)
	w.setStatus("loaded %s", name)
	return nil
}

// Export writes the project as JSON into the export directory and returns
// the file path.
func (w *Workbench) Export() (string, error) {
	data, err := w.Store.Export()
	if err != nil {
		return "", err
	}
	path, err := project.WriteFile(w.exportDir, data, project.SuggestedFileName(w.Store.Project()))
	if err != nil {
		return "", err
	}
	w.setStatus("exported %s", path)
	return path, nil
}

// Import installs a JSON document from disk. On failure the project is left
// as it was.
func (w *Workbench) Import(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("workbench: import: %w", err)
	}
	if err := w.Store.Import(data); err != nil {
		w.setStatus("import failed: %v", err)
		return err
	}
	w.Session.Selection.Clear()
	w.setStatus("imported %s", filepath.Base(path))
	return nil
}

// NewProject starts an empty stage with the prefab catalog. The current
// prefabs are kept when the catalog cannot be read.
func (w *Workbench) NewProject(name string, width, height float64) {
	catalog, err := prefabs.LoadCatalog()
	if err != nil {
		w.logger.Printf("editor: catalog: %v", err)
		catalog = w.Store.Project().Prefabs
	}
	w.Session.Selection.Clear()
	w.Store.Reset(name, width, height, catalog)
	w.setStatus("new project %q", w.Store.Project().Name)
}

// Copy returns the selected entity as JSON.
func (w *Workbench) Copy() ([]byte, bool) {
	e, ok := w.Session.Selected(w.Store.Project())
	if !ok {
		return nil, false
	}
	data, err := json.Marshal(e)
	if err != nil {
		w.logger.Printf("editor: copy: %v", err)
		return nil, false
	}
	return data, true
}

// Paste adds a copy of a copied entity next to it and selects it. An entity
// that is no longer in the project is re-created from the clipboard data.
func (w *Workbench) Paste(data []byte) (project.Entity, error) {
	var src project.Entity
	if err := json.Unmarshal(data, &src); err != nil {
		return project.Entity{}, fmt.Errorf("workbench: paste: %w", err)
	}
	if src.PrefabID == "" {
		return project.Entity{}, errors.New("workbench: paste: not an entity")
	}
	var (
		e   project.Entity
		err error
	)
	if _, _, ok := w.Store.Project().Entity(src.ID); ok {
		e, err = w.Store.DuplicateEntity(src.ID, PasteOffset, PasteOffset)
		if err != nil {
			return project.Entity{}, err
		}
	} else {
		src.ID = ""
		src.X += PasteOffset
		src.Y += PasteOffset
		e = w.Store.AddEntity(src)
	}
	w.Session.Selection.Select(e.ID)
	return e, nil
}

// ApplyChange handles a settled catalog edit. Prefabs the project does not
// have yet are appended; existing prefabs are never replaced or removed.
// Script edits only update the status line.
func (w *Workbench) ApplyChange(c prefabs.Change) error {
	name := filepath.Base(c.Path)
	switch {
	case c.Kind == prefabs.ScriptChanged && c.Removed:
		w.setStatus("script %s removed", name)
		return nil
	case c.Kind == prefabs.ScriptChanged:
		w.setStatus("script %s changed", name)
		return nil
	case c.Removed:
		w.setStatus("prefab file %s removed", name)
		return nil
	}
	spec, err := prefabs.LoadPrefabSpec(name)
	if err != nil {
		return err
	}
	if _, ok := w.Store.Project().Prefab(spec.ID); ok {
		return nil
	}
	if _, err := w.Store.AddPrefab(spec.Prefab()); err != nil {
		return err
	}
	w.setStatus("prefab %s added", spec.ID)
	return nil
}

// RunScript runs a placement script by file name or bundled name.
func (w *Workbench) RunScript(ctx context.Context, name string, params map[string]string) (script.Result, error) {
	res, err := w.runner.RunFile(ctx, name, params)
	if err != nil {
		w.setStatus("script failed: %v", err)
		return res, err
	}
	w.setStatus("%s: placed %d, moved %d, removed %d", filepath.Base(name), res.Placed, res.Moved, res.Removed)
	return res, nil
}

// ToggleConnection connects to the relay when offline and disconnects
// otherwise.
func (w *Workbench) ToggleConnection(ctx context.Context) error {
	if w.Client.Status() != collab.StatusDisconnected {
		w.Client.Disconnect()
		w.setStatus("offline")
		return nil
	}
	if err := w.Client.Connect(ctx); err != nil {
		w.setStatus("connect failed: %v", err)
		return err
	}
	w.lastPing = w.clock()
	w.setStatus("online in session %s", w.Client.SessionID())
	return nil
}
