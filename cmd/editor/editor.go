package main

import (
	"context"
	"fmt"
	"image"
	"log"
	"strings"
	"time"

	"github.com/ebitenui/ebitenui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/stagecraft/collab"
	"github.com/milk9111/stagecraft/gesture"
	"github.com/milk9111/stagecraft/prefabs"
	"github.com/milk9111/stagecraft/project"
	"github.com/milk9111/stagecraft/render"
	"github.com/milk9111/stagecraft/workbench"
)

// Editor is the ebiten game hosting one workbench.
type Editor struct {
	wb       *workbench.Workbench
	renderer *render.Renderer
	ui       *ebitenui.UI
	toolbar  *ToolBar
	palette  *Palette
	prompt   *Prompt
	watcher  *prefabs.CatalogWatcher
	clip     Clipboard

	width, height int
	frame         *image.RGBA
	canvas        *ebiten.Image

	pointers pointerState
}

func NewEditor(wb *workbench.Workbench, watcher *prefabs.CatalogWatcher, clip Clipboard) (*Editor, error) {
	r, err := render.New()
	if err != nil {
		return nil, err
	}
	e := &Editor{
		wb:       wb,
		renderer: r,
		prompt:   NewPrompt(),
		watcher:  watcher,
		clip:     clip,
	}
	wb.Session.Origin = cp.Vector{X: 0, Y: ToolbarHeight}

	e.ui, e.toolbar, e.palette, err = BuildEditorUI(
		wb.Store.Project().Prefabs,
		wb.Session.Tool,
		wb.SetTool,
		func(pf project.Prefab) { wb.SelectPrefab(pf.ID); e.toolbar.SetTool(gesture.ToolPlace) },
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Editor) Update() error {
	e.wb.Tick()
	e.drainWatcher()
	e.autosave()
	e.palette.SetPrefabs(e.wb.Store.Project().Prefabs)

	if e.prompt.Update() {
		return nil
	}
	e.ui.Update()
	e.handleHotkeys()
	e.handlePointers()
	return nil
}

func (e *Editor) drainWatcher() {
	if e.watcher == nil {
		return
	}
	for {
		select {
		case c, ok := <-e.watcher.Changes:
			if !ok {
				e.watcher = nil
				return
			}
			if err := e.wb.ApplyChange(c); err != nil {
				log.Printf("editor: reload %s %s: %v", c.Kind, c.Path, err)
			}
		case err, ok := <-e.watcher.Errors:
			if ok {
				log.Printf("editor: watcher: %v", err)
			}
		default:
			return
		}
	}
}

func (e *Editor) Draw(screen *ebiten.Image) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	if e.frame == nil || e.frame.Bounds().Dx() != w || e.frame.Bounds().Dy() != h {
		e.frame = image.NewRGBA(image.Rect(0, 0, w, h))
		if e.canvas != nil {
			e.canvas.Deallocate()
		}
		e.canvas = ebiten.NewImage(w, h)
	}
	e.renderer.Draw(e.frame, e.wb.Store.Project(), e.wb.Session)
	e.canvas.WritePixels(e.frame.Pix)
	screen.DrawImage(e.canvas, nil)

	e.ui.Draw(screen)
	ebitenutil.DebugPrintAt(screen, e.statusLine(), 8, h-20)
	e.prompt.Draw(screen)
}

func (e *Editor) statusLine() string {
	s := e.wb.Session
	p := e.wb.Store.Project()
	snap := "off"
	if s.Placement.SnapEnabled {
		snap = fmt.Sprintf("%g", p.SnapSize)
	}
	relay := e.wb.Client.Status().String()
	if e.wb.Client.Status() == collab.StatusConnected {
		relay = fmt.Sprintf("%s %s [%s]", relay, e.wb.Client.SessionID(), strings.Join(e.wb.Client.Participants(), ", "))
	}
	parts := []string{
		p.Name,
		fmt.Sprintf("%s tool", s.Tool),
		fmt.Sprintf("zoom %.0f%%", s.Camera.Zoom*100),
		"snap " + snap,
		fmt.Sprintf("%d entities", len(p.Entities)),
		relay,
	}
	if msg := e.wb.Status(); msg != "" {
		parts = append(parts, msg)
	}
	return strings.Join(parts, " | ")
}

func (e *Editor) Layout(outsideWidth, outsideHeight int) (int, int) {
	e.width, e.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

func (e *Editor) Close() {
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			log.Printf("editor: close watcher: %v", err)
		}
	}
	e.wb.Close()
}

func (e *Editor) autosave() {
	now := time.Now()
	if !e.wb.AutosaveDue(now) {
		return
	}
	ctx, cancel := timeoutCtx()
	defer cancel()
	if _, err := e.wb.Autosave(ctx, now); err != nil {
		log.Printf("editor: autosave: %v", err)
	}
}

func timeoutCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
