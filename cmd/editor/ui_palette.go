package main

import (
	"strings"

	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/milk9111/stagecraft/project"
)

// Palette lists the project's prefabs; picking one arms the place tool.
type Palette struct {
	Container *widget.Container
	list      *widget.List
	signature string
}

func prefabLabel(pf project.Prefab) string {
	name := pf.Name
	if name == "" {
		name = pf.ID
	}
	return name
}

func buildPalette(fontFace *text.Face, catalog []project.Prefab, onPrefabSelected func(prefab project.Prefab)) *Palette {
	panel := widget.NewContainer(
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(PaletteWidth, 200),
		),
		widget.ContainerOpts.BackgroundImage(solidNineSlice(panelColor)),
		widget.ContainerOpts.Layout(
			widget.NewRowLayout(
				widget.RowLayoutOpts.Direction(widget.DirectionVertical),
				widget.RowLayoutOpts.Spacing(8),
				widget.RowLayoutOpts.Padding(&widget.Insets{Top: ToolbarHeight + 8, Left: 8, Right: 8, Bottom: 8}),
			),
		),
	)
	panel.AddChild(widget.NewLabel(
		widget.LabelOpts.Text("Prefabs", fontFace, labelColor),
	))

	list := widget.NewList(
		widget.ListOpts.EntryLabelFunc(func(e any) string {
			if pf, ok := e.(project.Prefab); ok {
				return prefabLabel(pf)
			}
			return ""
		}),
		widget.ListOpts.EntrySelectedHandler(func(args *widget.ListEntrySelectedEventArgs) {
			if onPrefabSelected == nil {
				return
			}
			if pf, ok := args.Entry.(project.Prefab); ok {
				onPrefabSelected(pf)
			}
		}),
	)
	list.GetWidget().MinHeight = 320
	list.GetWidget().MinWidth = PaletteWidth - 16
	panel.AddChild(list)

	p := &Palette{Container: panel, list: list}
	p.SetPrefabs(catalog)
	return p
}

// SetPrefabs refreshes the list when the catalog changed.
func (p *Palette) SetPrefabs(catalog []project.Prefab) {
	ids := make([]string, 0, len(catalog))
	for _, pf := range catalog {
		ids = append(ids, pf.ID+"="+prefabLabel(pf))
	}
	sig := strings.Join(ids, ",")
	if sig == p.signature {
		return
	}
	p.signature = sig

	entries := make([]any, 0, len(catalog))
	for _, pf := range catalog {
		entries = append(entries, pf)
	}
	p.list.SetEntries(entries)
}
