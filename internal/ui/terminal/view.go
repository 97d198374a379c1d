// Package terminal shows the printer selection in the terminal.
package terminal

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/darkhz/tview"
	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"spp-print/internal/plugin"
	"spp-print/internal/printer"
)

// View is a full-screen device list. Enter picks the highlighted device,
// Escape or q leaves without picking.
type View struct {
	out    io.Writer
	screen tcell.Screen // nil uses the terminal

	mu      sync.Mutex
	app     *tview.Application
	status  *tview.TextView
	last    string
	running bool
}

var _ plugin.SelectionView = (*View)(nil)

// New returns a view that prints notifications to stderr while the list is
// not on screen.
func New() *View {
	return &View{out: os.Stderr}
}

func (v *View) Show(ctx context.Context, devices []printer.PairedDevice, onPick func(printer.PairedDevice)) error {
	app := tview.NewApplication()

	table := v.table(devices)
	table.SetSelectedFunc(func(row, _ int) {
		cell := table.GetCell(row, 0)
		if cell == nil {
			return
		}

		device, ok := cell.GetReference().(printer.PairedDevice)
		if !ok {
			return
		}

		onPick(device)
	})
	table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == 'q' {
			v.Close()
			return nil
		}

		return event
	})

	status := tview.NewTextView()
	status.SetDynamicColors(true)
	status.SetText("[::d]Enter: select  Esc: cancel")

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(table, 0, 1, true).
		AddItem(status, 1, 0, false)

	if err := ctx.Err(); err != nil {
		return err
	}

	if v.screen != nil {
		app.SetScreen(v.screen)
	}

	v.mu.Lock()
	v.app, v.status, v.running, v.last = app, status, true, ""
	v.mu.Unlock()

	// Stop only works once Run has set up the screen, so ctx is watched from
	// the first draw on.
	done := make(chan struct{})
	defer close(done)
	var watch sync.Once
	app.SetAfterDrawFunc(func(tcell.Screen) {
		watch.Do(func() {
			go func() {
				select {
				case <-ctx.Done():
					app.Stop()
				case <-done:
				}
			}()
		})
	})

	err := app.SetRoot(layout, true).EnableMouse(true).Run()

	v.mu.Lock()
	v.running = false
	last := v.last
	v.mu.Unlock()

	if last != "" {
		v.print(last)
	}
	if err != nil {
		return err
	}

	return ctx.Err()
}

func (v *View) table(devices []printer.PairedDevice) *tview.Table {
	table := tview.NewTable()
	table.SetBorder(true)
	table.SetTitle(" Select printer ")
	table.SetSelectorWrap(true)
	table.SetSelectable(true, false)

	if len(devices) == 0 {
		table.SetCell(0, 0, tview.NewTableCell(plugin.MsgNoDevices).
			SetSelectable(false).
			SetAlign(tview.AlignCenter).
			SetExpansion(1),
		)

		return table
	}

	nameWidth := 0
	for _, d := range devices {
		nameWidth = max(nameWidth, runewidth.StringWidth(displayName(d)))
	}

	for row, d := range devices {
		table.SetCell(row, 0, tview.NewTableCell(runewidth.FillRight(displayName(d), nameWidth)).
			SetReference(d).
			SetAlign(tview.AlignLeft).
			SetTextColor(tcell.ColorDefault),
		)
		table.SetCell(row, 1, tview.NewTableCell(d.Address).
			SetExpansion(1).
			SetAlign(tview.AlignRight).
			SetTextColor(tcell.ColorGray),
		)
	}

	return table
}

// Close stops the list if it is on screen.
func (v *View) Close() {
	v.mu.Lock()
	app, running := v.app, v.running
	v.mu.Unlock()

	if running {
		app.Stop()
	}
}

// Notify shows message in the status line, or prints it when the list is not
// on screen. The last message shown on screen is printed again once the list
// closes. It is called from inside the event loop too, so it never waits on
// the loop; the next draw picks the text up.
func (v *View) Notify(message string) {
	v.mu.Lock()
	status, running := v.status, v.running
	if running {
		v.last = message
	}
	v.mu.Unlock()

	if !running {
		v.print(message)
		return
	}

	status.SetText(tview.Escape(message))
}

func displayName(d printer.PairedDevice) string {
	if d.Name == "" {
		return "(unnamed)"
	}

	return d.Name
}

func (v *View) print(message string) {
	color.New(color.FgYellow, color.Bold).Fprintln(v.out, message)
}
