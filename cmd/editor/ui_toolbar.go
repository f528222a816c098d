package main

import (
	"fmt"
	"image/color"

	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/milk9111/stagecraft/gesture"
)

var tools = []gesture.Tool{gesture.ToolPlace, gesture.ToolSelect, gesture.ToolPan}

// ToolBar contains the radio-group state for the tool buttons.
type ToolBar struct {
	group   *widget.RadioGroup
	buttons []*widget.Button
	// suppress is set while the group is changed from code.
	suppress bool
}

func (tb *ToolBar) SetTool(t gesture.Tool) {
	if tb == nil || tb.group == nil {
		return
	}
	for i, tool := range tools {
		if tool == t && i < len(tb.buttons) {
			tb.suppress = true
			tb.group.SetActive(tb.buttons[i])
			tb.suppress = false
			return
		}
	}
}

func buildToolBar(theme *widget.Theme, fontFace *text.Face, onToolSelected func(tool gesture.Tool), initialTool gesture.Tool) (*widget.Container, *ToolBar) {
	buttonTextColor := &widget.ButtonTextColor{
		Idle:     color.White,
		Hover:    color.White,
		Pressed:  color.Black,
		Disabled: color.Gray{Y: 128},
	}

	toolbar := widget.NewContainer(
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(0, ToolbarHeight),
		),
		widget.ContainerOpts.Layout(
			widget.NewRowLayout(
				widget.RowLayoutOpts.Direction(widget.DirectionHorizontal),
				widget.RowLayoutOpts.Spacing(8),
				widget.RowLayoutOpts.Padding(&widget.Insets{Top: 4, Bottom: 4, Left: 8, Right: 8}),
			),
		),
		widget.ContainerOpts.BackgroundImage(solidNineSlice(toolbarTint)),
	)

	tb := &ToolBar{}
	for i, tool := range tools {
		btn := widget.NewButton(
			widget.ButtonOpts.Image(theme.ButtonTheme.Image),
			widget.ButtonOpts.Text(fmt.Sprintf("%d %s", i+1, tool), fontFace, buttonTextColor),
			widget.ButtonOpts.ToggleMode(),
			widget.ButtonOpts.WidgetOpts(
				widget.WidgetOpts.MinSize(88, ToolbarHeight-8),
			),
		)
		tb.buttons = append(tb.buttons, btn)
		toolbar.AddChild(btn)
	}

	elements := make([]widget.RadioGroupElement, 0, len(tb.buttons))
	for _, b := range tb.buttons {
		elements = append(elements, b)
	}

	tb.group = widget.NewRadioGroup(
		widget.RadioGroupOpts.Elements(elements...),
		widget.RadioGroupOpts.ChangedHandler(func(args *widget.RadioGroupChangedEventArgs) {
			if onToolSelected == nil || tb.suppress {
				return
			}
			for idx, b := range tb.buttons {
				if args.Active == b {
					onToolSelected(tools[idx])
					return
				}
			}
		}),
	)

	tb.SetTool(initialTool)
	return toolbar, tb
}
