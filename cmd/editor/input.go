package main

import (
	"log"
	"strconv"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/stagecraft/gesture"
)

const (
	mousePointer gesture.PointerID = 0
	// touch ids are offset so they never collide with the mouse.
	touchPointerBase = 1000
)

type pointerState struct {
	mouseDown   bool
	mouseInside bool
	last        cp.Vector
	touches     []ebiten.TouchID
}

func (e *Editor) overUI(x, y int) bool {
	return y < ToolbarHeight || x >= e.width-PaletteWidth
}

func (e *Editor) handlePointers() {
	ctrl := e.wb.Controller
	ps := &e.pointers

	mx, my := ebiten.CursorPosition()
	pos := cp.Vector{X: float64(mx), Y: float64(my)}
	inside := mx >= 0 && my >= 0 && mx < e.width && my < e.height && !e.overUI(mx, my)

	if !ps.mouseDown {
		for _, b := range []ebiten.MouseButton{ebiten.MouseButtonLeft, ebiten.MouseButtonMiddle, ebiten.MouseButtonRight} {
			if inside && inpututil.IsMouseButtonJustPressed(b) {
				button := gesture.ButtonPrimary
				if b != ebiten.MouseButtonLeft {
					button = gesture.ButtonAuxiliary
				}
				ctrl.PointerDown(mousePointer, pos, button)
				ps.mouseDown = true
				break
			}
		}
	} else if !anyMouseButtonPressed() {
		ctrl.PointerUp(mousePointer)
		ps.mouseDown = false
	}

	if pos != ps.last && (inside || ps.mouseDown) {
		ctrl.PointerMove(mousePointer, pos)
	}
	if !inside && ps.mouseInside && !ps.mouseDown {
		ctrl.PointerLeave()
	}
	ps.mouseInside = inside
	ps.last = pos

	if inside {
		if _, wy := ebiten.Wheel(); wy != 0 {
			// ebiten reports scrolling up as positive; the controller zooms out on positive.
			ctrl.Wheel(-wy)
		}
	}

	ps.touches = inpututil.AppendJustPressedTouchIDs(ps.touches[:0])
	for _, id := range ps.touches {
		x, y := ebiten.TouchPosition(id)
		if e.overUI(x, y) {
			continue
		}
		ctrl.PointerDown(touchPointerBase+gesture.PointerID(id), cp.Vector{X: float64(x), Y: float64(y)}, gesture.ButtonPrimary)
	}
	ps.touches = ebiten.AppendTouchIDs(ps.touches[:0])
	for _, id := range ps.touches {
		x, y := ebiten.TouchPosition(id)
		ctrl.PointerMove(touchPointerBase+gesture.PointerID(id), cp.Vector{X: float64(x), Y: float64(y)})
	}
	ps.touches = inpututil.AppendJustReleasedTouchIDs(ps.touches[:0])
	for _, id := range ps.touches {
		ctrl.PointerUp(touchPointerBase + gesture.PointerID(id))
	}
}

func anyMouseButtonPressed() bool {
	return ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) ||
		ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle) ||
		ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
}

func ctrlPressed() bool {
	return ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)
}

func (e *Editor) setTool(t gesture.Tool) {
	e.wb.SetTool(t)
	e.toolbar.SetTool(t)
}

func (e *Editor) handleHotkeys() {
	wb := e.wb
	if ctrlPressed() {
		switch {
		case inpututil.IsKeyJustPressed(ebiten.KeyS):
			ctx, cancel := timeoutCtx()
			defer cancel()
			if err := wb.Save(ctx); err != nil {
				log.Printf("editor: %v", err)
			}
		case inpututil.IsKeyJustPressed(ebiten.KeyE):
			if _, err := wb.Export(); err != nil {
				log.Printf("editor: export: %v", err)
			}
		case inpututil.IsKeyJustPressed(ebiten.KeyO):
			e.promptImport()
		case inpututil.IsKeyJustPressed(ebiten.KeyN):
			e.promptNewProject()
		case inpututil.IsKeyJustPressed(ebiten.KeyC):
			if data, ok := wb.Copy(); ok {
				e.clip.WriteText(data)
			}
		case inpututil.IsKeyJustPressed(ebiten.KeyV):
			if data := e.clip.ReadText(); len(data) > 0 {
				if _, err := wb.Paste(data); err != nil {
					log.Printf("editor: %v", err)
				}
			}
		case inpututil.IsKeyJustPressed(ebiten.KeyL):
			ctx, cancel := timeoutCtx()
			defer cancel()
			if err := wb.ToggleConnection(ctx); err != nil {
				log.Printf("editor: %v", err)
			}
		case inpututil.IsKeyJustPressed(ebiten.KeyR):
			e.promptScript()
		}
		return
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyDigit1):
		e.setTool(gesture.ToolPlace)
	case inpututil.IsKeyJustPressed(ebiten.KeyDigit2):
		e.setTool(gesture.ToolSelect)
	case inpututil.IsKeyJustPressed(ebiten.KeyDigit3):
		e.setTool(gesture.ToolPan)
	case inpututil.IsKeyJustPressed(ebiten.KeyG):
		wb.ToggleSnap()
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		if err := wb.Resync(); err != nil {
			log.Printf("editor: %v", err)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyDelete), inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		if err := wb.DeleteSelection(); err != nil {
			log.Printf("editor: delete: %v", err)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyPageUp):
		if id := wb.Session.Selection.ID(); id != "" {
			_ = wb.Store.RaiseEntity(id)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyPageDown):
		if id := wb.Session.Selection.ID(); id != "" {
			_ = wb.Store.LowerEntity(id)
		}
	}
}

func (e *Editor) promptImport() {
	importPath := func(path string) {
		if err := e.wb.Import(strings.TrimSpace(path)); err != nil {
			log.Printf("editor: %v", err)
		}
	}
	if path, err := openImportDialog(); err == nil {
		if path != "" {
			importPath(path)
		}
		return
	}
	e.prompt.Open("Import JSON file:", "", importPath)
}

func (e *Editor) promptNewProject() {
	e.prompt.Open("New project name:", "Untitled", func(name string) {
		e.prompt.Open("Stage size (WxH):", "1600x900", func(size string) {
			w, h, ok := parseSize(size)
			if !ok {
				log.Printf("editor: bad stage size %q", size)
				return
			}
			e.wb.NewProject(name, w, h)
		})
	})
}

// promptScript asks for "script.tengo key=value ...".
func (e *Editor) promptScript() {
	e.prompt.Open("Run script:", "row.tengo count=8", func(line string) {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return
		}
		params := map[string]string{}
		for _, f := range fields[1:] {
			if k, v, ok := strings.Cut(f, "="); ok {
				params[k] = v
			}
		}
		ctx, cancel := timeoutCtx()
		defer cancel()
		if _, err := e.wb.RunScript(ctx, fields[0], params); err != nil {
			log.Printf("editor: %v", err)
		}
	})
}

func parseSize(s string) (float64, float64, bool) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, false
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(ws), 64)
	if err != nil {
		return 0, 0, false
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(hs), 64)
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}
