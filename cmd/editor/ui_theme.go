package main

import (
	"image/color"

	"github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// chromeColors are the editor chrome shades, darkest first. The canvas
// colors live in the render package.
type chromeColors struct {
	panel    color.RGBA
	toolbar  color.RGBA
	control  color.RGBA
	hover    color.RGBA
	active   color.RGBA
	selected color.RGBA
	dimmed   color.Gray
}

var chrome = chromeColors{
	panel:    color.RGBA{0x18, 0x18, 0x25, 0xf0},
	toolbar:  color.RGBA{0x31, 0x32, 0x44, 0xff},
	control:  color.RGBA{0x45, 0x47, 0x5a, 0xff},
	hover:    color.RGBA{0x58, 0x5b, 0x70, 0xff},
	active:   color.RGBA{0x89, 0xb4, 0xfa, 0xff},
	selected: color.RGBA{0xf9, 0xe2, 0xaf, 0xff},
	dimmed:   color.Gray{Y: 128},
}

var (
	panelColor  = chrome.panel
	toolbarTint = chrome.toolbar
	labelColor  = &widget.LabelColor{Idle: color.White, Disabled: chrome.dimmed}
)

func solidNineSlice(c color.Color) *image.NineSlice {
	return image.NewNineSliceColor(c)
}

// newEditorTheme covers the widgets the toolbar and prefab palette use.
func newEditorTheme(face *text.Face) *widget.Theme {
	return &widget.Theme{
		ListTheme:   paletteListParams(face),
		PanelTheme:  &widget.PanelParams{BackgroundImage: solidNineSlice(chrome.panel)},
		ButtonTheme: toolButtonParams(face),
	}
}

// Selected entries use the canvas selection highlight.
func paletteListParams(face *text.Face) *widget.ListParams {
	return &widget.ListParams{
		EntryFace: face,
		EntryColor: &widget.ListEntryColor{
			Unselected:          color.White,
			Selected:            chrome.selected,
			DisabledUnselected:  chrome.dimmed,
			DisabledSelected:    chrome.dimmed,
			SelectingBackground: chrome.control,
			SelectedBackground:  chrome.hover,
		},
		ScrollContainerImage: &widget.ScrollContainerImage{
			Idle: solidNineSlice(chrome.panel),
			Mask: solidNineSlice(chrome.panel),
		},
	}
}

func toolButtonParams(face *text.Face) *widget.ButtonParams {
	return &widget.ButtonParams{
		Image: &widget.ButtonImage{
			Idle:    solidNineSlice(chrome.control),
			Hover:   solidNineSlice(chrome.hover),
			Pressed: solidNineSlice(chrome.active),
		},
		TextFace:  face,
		TextColor: &widget.ButtonTextColor{Idle: color.White},
	}
}
