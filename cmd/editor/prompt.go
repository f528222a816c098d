package main

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Prompt is a one-line modal text input. Enter submits, Escape cancels.
type Prompt struct {
	open    bool
	label   string
	input   []rune
	onEnter func(string)
	chars   []rune
}

func NewPrompt() *Prompt { return &Prompt{} }

func (p *Prompt) IsOpen() bool { return p.open }

// Open shows the prompt. onEnter may open another prompt to chain questions.
func (p *Prompt) Open(label, initial string, onEnter func(string)) {
	p.label = label
	p.input = []rune(initial)
	p.onEnter = onEnter
	p.open = true
}

func (p *Prompt) Close() {
	p.open = false
	p.label = ""
	p.input = nil
	p.onEnter = nil
}

// Update consumes keyboard input while open and reports whether it did.
func (p *Prompt) Update() bool {
	if !p.open {
		return false
	}
	p.chars = ebiten.AppendInputChars(p.chars[:0])
	for _, r := range p.chars {
		if r == '\n' || r == '\r' {
			continue
		}
		p.input = append(p.input, r)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) && len(p.input) > 0 {
		p.input = p.input[:len(p.input)-1]
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter) {
		cur := string(p.input)
		onEnter := p.onEnter
		p.Close()
		if onEnter != nil {
			onEnter(cur)
		}
		return true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		p.Close()
	}
	return true
}

func (p *Prompt) Draw(screen *ebiten.Image) {
	if !p.open {
		return
	}
	sw := screen.Bounds().Dx()
	sh := screen.Bounds().Dy()
	vector.DrawFilledRect(screen, 0, float32(sh/2-24), float32(sw), 48, color.RGBA{A: 0xc0}, false)
	label := p.label
	if label == "" {
		label = "Input:"
	}
	ebitenutil.DebugPrintAt(screen, label+" "+string(p.input)+"_", 16, sh/2-8)
}
