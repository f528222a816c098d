package main

import (
	"bytes"
	"fmt"

	"github.com/ebitenui/ebitenui"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/milk9111/stagecraft/gesture"
	"github.com/milk9111/stagecraft/project"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	ToolbarHeight = 44
	PaletteWidth  = 180
)

func BuildEditorUI(
	catalog []project.Prefab,
	initialTool gesture.Tool,
	onToolSelected func(tool gesture.Tool),
	onPrefabSelected func(prefab project.Prefab),
) (*ebitenui.UI, *ToolBar, *Palette, error) {
	ui := &ebitenui.UI{}

	s, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("editor: load font: %w", err)
	}

	var fontFace text.Face = &text.GoTextFace{Source: s, Size: 14}
	ui.PrimaryTheme = newEditorTheme(&fontFace)

	toolbarContainer, toolBar := buildToolBar(ui.PrimaryTheme, &fontFace, onToolSelected, initialTool)
	palette := buildPalette(&fontFace, catalog, onPrefabSelected)

	root := widget.NewContainer(widget.ContainerOpts.Layout(widget.NewAnchorLayout()))
	palette.Container.GetWidget().LayoutData = widget.AnchorLayoutData{
		HorizontalPosition: widget.AnchorLayoutPositionEnd,
		VerticalPosition:   widget.AnchorLayoutPositionStart,
		StretchVertical:    true,
	}
	toolbarContainer.GetWidget().LayoutData = widget.AnchorLayoutData{
		HorizontalPosition: widget.AnchorLayoutPositionStart,
		VerticalPosition:   widget.AnchorLayoutPositionStart,
		StretchHorizontal:  true,
	}
	root.AddChild(palette.Container)
	root.AddChild(toolbarContainer)

	ui.Container = root
	return ui, toolBar, palette, nil
}
