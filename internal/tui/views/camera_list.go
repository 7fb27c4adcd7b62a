package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/matheus3301/peerchat/internal/media"
	"github.com/matheus3301/peerchat/internal/tui/ui"
)

// CameraList is the camera picker.
type CameraList struct {
	*tview.List
	theme    *ui.Theme
	devices  []media.DeviceInfo
	onSelect func(deviceID string)
}

// NewCameraList creates an empty camera picker.
func NewCameraList(theme *ui.Theme) *CameraList {
	l := tview.NewList().
		ShowSecondaryText(true).
		SetHighlightFullLine(true)
	l.SetBorder(true)
	l.SetBorderColor(theme.BorderColor)
	l.SetBackgroundColor(theme.BgColor)
	l.SetMainTextColor(theme.FgColor)
	l.SetSecondaryTextColor(theme.DimColor)
	l.SetSelectedTextColor(theme.TableCursorFg)
	l.SetSelectedBackgroundColor(theme.TableCursorBg)
	l.SetTitle(" Cameras ")
	l.SetTitleColor(theme.TitleColor)

	cl := &CameraList{List: l, theme: theme}
	l.SetSelectedFunc(func(i int, _, _ string, _ rune) {
		if i >= 0 && i < len(cl.devices) && cl.onSelect != nil {
			cl.onSelect(cl.devices[i].ID)
		}
	})
	return cl
}

// Name implements ui.Component.
func (cl *CameraList) Name() string { return "Cameras" }

// Hints implements ui.Component.
func (cl *CameraList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Use"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnSelect sets the callback run with the chosen device id.
func (cl *CameraList) SetOnSelect(fn func(deviceID string)) {
	cl.onSelect = fn
}

// Update lists devices, marking the selected one.
func (cl *CameraList) Update(devices []media.DeviceInfo, selected string) {
	cl.devices = devices
	cl.Clear()
	current := 0
	for i, d := range devices {
		mark := "  "
		if d.ID == selected {
			mark = "* "
			current = i
		}
		label := d.Label
		if label == "" {
			label = d.ID
		}
		var shortcut rune
		if i < 9 {
			shortcut = rune('1' + i)
		}
		cl.AddItem(mark+tview.Escape(label), fmt.Sprintf("  %s", tview.Escape(d.ID)), shortcut, nil)
	}
	if len(devices) == 0 {
		cl.AddItem("no cameras configured", "  configure media.cameras in config.toml", 0, nil)
		return
	}
	cl.SetCurrentItem(current)
}
