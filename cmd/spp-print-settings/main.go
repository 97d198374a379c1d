package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/knadh/koanf/v2"
	"github.com/sirupsen/logrus"

	"spp-print/internal/config"
	"spp-print/internal/imaging"
	"spp-print/internal/job"
	"spp-print/internal/platform"
	"spp-print/internal/plugin"
	"spp-print/internal/printer"
	"spp-print/internal/settings"
	"spp-print/internal/tspl"
	"spp-print/internal/ui/desktop"
)

const (
	AppVersion = "1.0.0"
	AppName    = "SPP Print"
)

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	log     *logrus.Logger
	values  config.Values

	adapter  *platform.Adapter
	registry *printer.Registry
	plugin   *plugin.Plugin

	ctx    context.Context
	cancel context.CancelFunc

	// Encoder for the current format settings, swapped as the user edits them.
	mu      sync.Mutex
	encoder *job.Encoder

	// Widgets that need updating
	statusLabel  *widget.Label
	printerLabel *widget.Label
	printBtn     *widget.Button
	selectBtn    *widget.Button
	textEntry    *widget.Entry
	previewImg   *canvas.Image
}

func main() {
	log := logrus.New()

	cfg := config.NewConfig()
	if err := cfg.Load(koanf.New("."), os.Getenv("SPP_PRINT_CONFIG_DIR"), nil); err != nil {
		log.WithError(err).Fatal("loading configuration failed")
	}
	if err := cfg.ValidateValues(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetLevel(cfg.Values.Level())

	a := app.NewWithID("org.spp-print.settings")
	w := a.NewWindow(fmt.Sprintf("%s v%s", AppName, AppVersion))
	w.Resize(fyne.NewSize(650, 450))

	sppApp := &App{
		fyneApp: a,
		window:  w,
		log:     log,
		values:  cfg.Values,
	}
	if err := sppApp.setup(); err != nil {
		log.WithError(err).Fatal("starting printer support failed")
	}

	w.SetMainMenu(sppApp.buildMenu())
	w.SetContent(sppApp.buildUI())
	w.SetOnClosed(func() {
		sppApp.cleanup()
	})
	w.ShowAndRun()
}

func (a *App) setup() error {
	enc, err := job.New(a.values.JobOptions())
	if err != nil {
		return err
	}
	a.encoder = enc

	store, err := settings.NewFileStore(a.values.SettingsDir, settings.PrinterNamespace)
	if err != nil {
		return err
	}

	a.adapter, err = platform.New(a.values.PlatformOptions(), a.log)
	if err != nil {
		return err
	}

	a.registry = printer.NewRegistry(a.adapter, store)
	transport := printer.NewTransport(a.registry, a.adapter,
		printer.WithLogger(a.log),
		printer.WithEncoder(printer.EncoderFunc(a.encode)),
	)
	a.plugin = plugin.New(a.registry, transport, a.adapter, desktop.New(a.fyneApp), a.log)
	a.ctx, a.cancel = context.WithCancel(context.Background())

	return nil
}

func (a *App) encode(text string) ([]byte, error) {
	a.mu.Lock()
	enc := a.encoder
	a.mu.Unlock()

	return enc.Encode(text)
}

// updateEncoder rebuilds the encoder after a format setting changed.
func (a *App) updateEncoder() {
	enc, err := job.New(a.values.JobOptions())
	if err != nil {
		a.statusLabel.SetText(err.Error())
		return
	}

	a.mu.Lock()
	a.encoder = enc
	a.mu.Unlock()

	a.updatePreview()
}

func (a *App) buildMenu() *fyne.MainMenu {
	// Help menu with About
	aboutItem := fyne.NewMenuItem("About", func() {
		a.showAboutDialog()
	})

	helpMenu := fyne.NewMenu("Help", aboutItem)

	return fyne.NewMainMenu(helpMenu)
}

func (a *App) showAboutDialog() {
	content := container.NewVBox(
		widget.NewLabelWithStyle(AppName, fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		widget.NewLabel(fmt.Sprintf("Version %s", AppVersion)),
		widget.NewSeparator(),
		widget.NewLabel("Choose a paired Bluetooth printer and send text to it."),
		widget.NewLabel(""),
		widget.NewLabel("Serial Port Profile UUID:"),
		widget.NewLabel(printer.SPPServiceUUID.String()),
		widget.NewLabel(""),
		widget.NewLabel("Built with Fyne and Go"),
	)

	dialog.ShowCustom("About", "Close", content, a.window)
}

func (a *App) cleanup() {
	a.cancel()

	if err := a.adapter.Close(); err != nil {
		a.log.WithError(err).Debug("closing the platform adapter failed")
	}
}

func (a *App) buildUI() fyne.CanvasObject {
	// Status bar
	a.statusLabel = widget.NewLabel("Checking Bluetooth...")

	// === PRINTER SECTION ===
	a.printerLabel = widget.NewLabel("No printer selected")
	a.selectBtn = widget.NewButton("Select...", func() {
		a.selectPrinter()
	})

	printerRow := container.NewBorder(nil, nil, nil, a.selectBtn, a.printerLabel)

	// Refresh status on startup
	go a.refreshStatus()

	// === TEXT ===
	a.textEntry = widget.NewMultiLineEntry()
	a.textEntry.SetPlaceHolder("Enter text to print...")
	a.textEntry.SetMinRowsVisible(4)
	a.textEntry.OnChanged = func(string) {
		a.updatePreview()
	}

	// Preview
	a.previewImg = canvas.NewImageFromImage(nil)
	a.previewImg.SetMinSize(fyne.NewSize(200, 150))
	a.previewImg.FillMode = canvas.ImageFillContain

	// === FORMAT SECTION ===
	formatSelect := widget.NewSelect([]string{job.FormatText, job.FormatTSPL}, func(s string) {
		a.values.Format = s
		a.updateEncoder()
	})
	formatSelect.SetSelected(a.values.Format)

	sizeSelect := widget.NewSelect(tspl.SizeNames(), func(s string) {
		a.values.LabelSize = s
		a.updateEncoder()
	})
	if size, ok := tspl.LookupSize(a.values.LabelSize); ok {
		sizeSelect.SetSelected(size.Name)
	}

	densitySlider := widget.NewSlider(0, 15)
	densitySlider.Value = float64(a.values.Density)
	densitySlider.OnChanged = func(f float64) {
		a.values.Density = int(f)
		a.updateEncoder()
	}

	fontSizeSlider := widget.NewSlider(4, 72)
	fontSizeSlider.Value = a.values.FontSize
	fontSizeSlider.OnChanged = func(f float64) {
		a.values.FontSize = f
		a.updateEncoder()
	}

	// Print button
	a.printBtn = widget.NewButton("Print", func() {
		a.print()
	})
	a.printBtn.Importance = widget.HighImportance

	// Left panel - Printer and Settings
	leftPanel := container.NewVBox(
		widget.NewLabel("Bluetooth Printer:"),
		printerRow,
		widget.NewSeparator(),
		widget.NewLabel("Format"),
		formatSelect,
		widget.NewLabel("Label Size"),
		sizeSelect,
		widget.NewLabel("Density"),
		densitySlider,
		widget.NewLabel("Font Size"),
		fontSizeSlider,
		widget.NewSeparator(),
		a.printBtn,
	)

	// Right panel
	rightPanel := container.NewBorder(
		a.textEntry,
		nil, nil, nil,
		container.NewCenter(a.previewImg),
	)

	content := container.NewHSplit(leftPanel, rightPanel)
	content.SetOffset(0.38)

	return container.NewBorder(
		nil,
		container.NewHBox(a.statusLabel),
		nil, nil,
		content,
	)
}

func (a *App) refreshStatus() {
	st, err := a.plugin.Status(a.ctx)
	if err != nil {
		a.statusLabel.SetText(fmt.Sprintf("Status check failed: %v", err))
		return
	}

	if st.Saved {
		a.printerLabel.SetText(st.Printer)
	} else {
		a.printerLabel.SetText("No printer selected")
	}

	switch {
	case !st.Supported:
		a.statusLabel.SetText(plugin.MsgUnsupported)
		a.selectBtn.Disable()
	case !st.Permission:
		a.statusLabel.SetText(plugin.MsgPermissionRequired)
	case !st.Enabled:
		a.statusLabel.SetText(plugin.MsgRadioDisabled)
	default:
		a.statusLabel.SetText("Ready")
	}
}

func (a *App) selectPrinter() {
	a.selectBtn.Disable()

	go func() {
		defer a.selectBtn.Enable()

		err := a.plugin.OpenDeviceSelectionUI(a.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.statusLabel.SetText(fmt.Sprintf("Selection failed: %v", err))
			return
		}

		a.refreshStatus()
	}()
}

func (a *App) updatePreview() {
	text := a.textEntry.Text
	size, ok := tspl.LookupSize(a.values.LabelSize)
	if text == "" || a.values.Format != job.FormatTSPL || !ok {
		a.previewImg.Image = nil
		a.previewImg.Refresh()
		return
	}

	img, err := imaging.RenderText(text, size.PixelW, size.PixelH, imaging.TextOptions{
		FontSize:      a.values.FontSize,
		WordBreakOnly: a.values.Columns == 0,
	})
	if err != nil {
		return
	}

	// Show what the head will burn, not the antialiased render.
	bitmap := imaging.Pack(img, size.PixelW, size.PixelH, imaging.DefaultThreshold, false)
	a.previewImg.Image = imaging.Unpack(bitmap, size.PixelW, size.PixelH)
	a.previewImg.Refresh()
}

func (a *App) print() {
	text := a.textEntry.Text
	if text == "" {
		dialog.ShowError(fmt.Errorf("nothing to print"), a.window)
		return
	}

	a.statusLabel.SetText("Printing...")
	a.printBtn.Disable()

	go func() {
		err := a.plugin.Print(a.ctx, text)

		if err != nil {
			a.statusLabel.SetText(fmt.Sprintf("Print error: %v", err))
			dialog.ShowError(err, a.window)
		} else {
			a.statusLabel.SetText("Sent data to printer")
		}
		a.printBtn.Enable()
	}()
}
