// Package plugin is the surface a host application calls: it opens the
// printer selection view and prints text to the saved printer.
package plugin

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"spp-print/internal/printer"
)

// Name is the name hosts register the plugin under.
const Name = "Printer"

// Messages shown to the user through SelectionView.Notify.
const (
	MsgUnsupported        = "Bluetooth not supported on this device"
	MsgPermissionRequired = "Bluetooth permission is required"
	MsgRadioDisabled      = "Bluetooth is turned off"
	MsgNoDevices          = "No paired devices found."
	MsgSavedPrinter       = "Saved printer: "
	MsgSaveFailed         = "Could not save printer"
)

// SelectionView shows paired devices and reports which one the user picked.
type SelectionView interface {
	// Show displays devices and calls onPick for each choice the user makes.
	// It blocks until the view is closed or ctx is done.
	Show(ctx context.Context, devices []printer.PairedDevice, onPick func(printer.PairedDevice)) error
	// Close dismisses the view and makes Show return.
	Close()
	// Notify shows a short message to the user.
	Notify(message string)
}

// Plugin ties the registry, the transport and a selection view together.
type Plugin struct {
	registry  *printer.Registry
	transport *printer.Transport
	source    printer.DeviceSource
	view      SelectionView
	log       logrus.FieldLogger

	// Only one print may use the printer at a time.
	sem *semaphore.Weighted
}

// New returns a plugin. view may be nil for hosts that never show the
// selection UI.
func New(registry *printer.Registry, transport *printer.Transport, source printer.DeviceSource, view SelectionView, log logrus.FieldLogger) *Plugin {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Plugin{
		registry:  registry,
		transport: transport,
		source:    source,
		view:      view,
		log:       log,
		sem:       semaphore.NewWeighted(1),
	}
}

// OpenDeviceSelectionUI lists the paired devices, asking for the connect
// permission or for the radio to be turned on when needed, and shows them.
// Picking a device saves it as the printer and closes the view.
func (p *Plugin) OpenDeviceSelectionUI(ctx context.Context) error {
	if p.view == nil {
		return errors.New("no selection view configured")
	}

	if !p.source.Supported() {
		p.view.Notify(MsgUnsupported)
		return printer.ErrUnsupported
	}

	devices, err := p.pairedDevices(ctx)
	if err != nil {
		return err
	}

	return p.view.Show(ctx, devices, p.pick)
}

// OpenBluetoothSettings is the name older hosts call OpenDeviceSelectionUI by.
func (p *Plugin) OpenBluetoothSettings(ctx context.Context) error {
	return p.OpenDeviceSelectionUI(ctx)
}

// pairedDevices lists devices. A missing permission or a disabled radio is
// requested once each, and the listing is retried only when the platform
// reports the request granted.
func (p *Plugin) pairedDevices(ctx context.Context) ([]printer.PairedDevice, error) {
	var askedPermission, askedEnable bool

	for {
		devices, err := p.registry.ListPairedDevices()

		switch {
		case err == nil:
			return devices, nil

		case errors.Is(err, printer.ErrUnsupported):
			p.view.Notify(MsgUnsupported)
			return nil, err

		case errors.Is(err, printer.ErrPermissionDenied) && !askedPermission:
			askedPermission = true

			granted, rerr := p.source.RequestConnectPermission(ctx)
			if rerr != nil {
				return nil, rerr
			}
			if !granted {
				p.view.Notify(MsgPermissionRequired)
				return nil, err
			}

		case errors.Is(err, printer.ErrRadioDisabled) && !askedEnable:
			askedEnable = true

			enabled, rerr := p.source.RequestEnable(ctx)
			if rerr != nil {
				return nil, rerr
			}
			if !enabled {
				p.view.Notify(MsgRadioDisabled)
				return nil, err
			}

		default:
			p.log.WithError(err).Warn("listing paired devices failed")
			return nil, err
		}
	}
}

func (p *Plugin) pick(device printer.PairedDevice) {
	if err := p.registry.SavePrinter(device.Address); err != nil {
		p.log.WithField("address", device.Address).WithError(err).Error("saving printer failed")
		p.view.Notify(MsgSaveFailed)
		return
	}

	name := device.Name
	if name == "" {
		name = device.Address
	}

	p.log.WithField("address", device.Address).Info("printer saved")
	p.view.Notify(MsgSavedPrinter + name)
	p.view.Close()
}

// Print sends text to the saved printer. Calls are serialised; a call that
// is still waiting when ctx ends returns ctx.Err().
func (p *Plugin) Print(ctx context.Context, text string) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	log := p.log.WithField("bytes", len(text))

	if err := p.transport.Print(text); err != nil {
		var perr *printer.PrintError
		if errors.As(err, &perr) && perr.Address != "" {
			log = log.WithField("address", perr.Address)
		}
		log.WithError(err).Error("print failed")

		return err
	}

	log.Info("sent data to printer")

	return nil
}

// Status is a snapshot of what the host can currently do.
type Status struct {
	Supported  bool
	Enabled    bool
	Permission bool
	Printer    string
	Saved      bool
}

// Status probes the platform and the settings store concurrently. Nothing is
// probed once ctx is done.
func (p *Plugin) Status(ctx context.Context) (Status, error) {
	var st Status

	if err := ctx.Err(); err != nil {
		return st, err
	}

	st.Supported = p.source.Supported()
	if !st.Supported {
		return st, nil
	}

	var g errgroup.Group

	g.Go(func() error {
		enabled, err := p.source.IsEnabled()
		st.Enabled = enabled
		return err
	})

	g.Go(func() error {
		st.Permission = p.source.HasConnectPermission()
		return nil
	})

	g.Go(func() error {
		address, ok, err := p.registry.GetPrinter()
		st.Printer, st.Saved = address, ok
		return err
	})

	err := g.Wait()

	return st, err
}
