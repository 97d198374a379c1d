//go:build !linux && !windows

package platform

import (
	"context"

	"github.com/sirupsen/logrus"

	"spp-print/internal/printer"
)

// DefaultTransport is used when the configured transport is "auto".
const DefaultTransport = TransportBLE

// unsupportedSource is used where no classic Bluetooth stack is wired. It
// cannot list devices, but it does not block printing to an address saved by
// hand through another transport.
type unsupportedSource struct{}

func newSource(Options, logrus.FieldLogger) printer.DeviceSource {
	return unsupportedSource{}
}

func (unsupportedSource) Supported() bool { return false }

func (unsupportedSource) BondedDevices() ([]printer.PairedDevice, error) {
	return nil, printer.ErrUnsupported
}

func (unsupportedSource) IsEnabled() (bool, error) { return false, nil }

func (unsupportedSource) RequestEnable(context.Context) (bool, error) { return false, nil }

func (unsupportedSource) HasConnectPermission() bool { return true }

func (unsupportedSource) RequestConnectPermission(context.Context) (bool, error) { return true, nil }
