// Package desktop shows the printer selection in a Fyne window.
package desktop

import (
	"context"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"spp-print/internal/plugin"
	"spp-print/internal/printer"
)

// View opens a window listing the paired devices. Clicking a row picks it.
type View struct {
	app fyne.App

	mu     sync.Mutex
	window fyne.Window
	status *widget.Label
}

var _ plugin.SelectionView = (*View)(nil)

func New(a fyne.App) *View {
	return &View{app: a}
}

func (v *View) Show(ctx context.Context, devices []printer.PairedDevice, onPick func(printer.PairedDevice)) error {
	w := v.app.NewWindow("Select printer")
	w.Resize(fyne.NewSize(360, 420))

	status := widget.NewLabel("")
	status.Wrapping = fyne.TextWrapWord

	var body fyne.CanvasObject
	if len(devices) == 0 {
		body = container.NewCenter(widget.NewLabel(plugin.MsgNoDevices))
	} else {
		list := widget.NewList(
			func() int {
				return len(devices)
			},
			func() fyne.CanvasObject {
				return container.NewVBox(
					widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
					widget.NewLabel(""),
				)
			},
			func(id widget.ListItemID, o fyne.CanvasObject) {
				d := devices[id]
				rows := o.(*fyne.Container).Objects
				rows[0].(*widget.Label).SetText(displayName(d))
				rows[1].(*widget.Label).SetText(d.Address)
			},
		)
		list.OnSelected = func(id widget.ListItemID) {
			list.Unselect(id)
			onPick(devices[id])
		}
		body = list
	}

	cancel := widget.NewButton("Cancel", func() {
		w.Close()
	})

	w.SetContent(container.NewBorder(
		nil,
		container.NewVBox(status, cancel),
		nil, nil,
		body,
	))

	done := make(chan struct{})
	var once sync.Once
	w.SetOnClosed(func() {
		once.Do(func() { close(done) })

		v.mu.Lock()
		if v.window == w {
			v.window, v.status = nil, nil
		}
		v.mu.Unlock()
	})

	v.mu.Lock()
	v.window, v.status = w, status
	v.mu.Unlock()

	w.Show()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		w.Close()
		return ctx.Err()
	}
}

// Close closes the selection window if it is open.
func (v *View) Close() {
	v.mu.Lock()
	w := v.window
	v.mu.Unlock()

	if w != nil {
		w.Close()
	}
}

// Notify sends a desktop notification and mirrors it in the window's status
// line while the window is open.
func (v *View) Notify(message string) {
	v.mu.Lock()
	status := v.status
	v.mu.Unlock()

	if status != nil {
		status.SetText(message)
	}

	v.app.SendNotification(fyne.NewNotification(plugin.Name, message))
}

func displayName(d printer.PairedDevice) string {
	if d.Name == "" {
		return "(unnamed)"
	}

	return d.Name
}
