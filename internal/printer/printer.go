// Package printer implements the device registry and the print transport for
// Bluetooth serial (SPP) printers: paired devices are enumerated from the
// platform, one of them is persisted as the active printer, and print calls
// open a short-lived channel to it, write the payload and close it again.
package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// SPPServiceUUID identifies the Serial Port Profile service on the printer.
var SPPServiceUUID = uuid.MustParse("00001101-0000-1000-8000-00805F9B34FB")

// Trailer is written after every payload so the printer feeds past the tear bar.
var Trailer = []byte{0x0A, 0x0A}

// Errors reported by the registry and the transport.
var (
	ErrUnsupported         = errors.New("bluetooth not supported on this device")
	ErrPermissionDenied    = errors.New("bluetooth connect permission not granted")
	ErrRadioDisabled       = errors.New("bluetooth radio is disabled")
	ErrNoPrinterConfigured = errors.New("no printer address saved")
	ErrConnectFailed       = errors.New("failed to connect to printer")
	ErrWriteFailed         = errors.New("failed to write to printer")
	ErrCloseFailed         = errors.New("failed to close printer connection")
)

// PairedDevice is a device the host has bonded with.
type PairedDevice struct {
	Name    string
	Address string // colon-separated MAC on Linux, COM port on Windows
}

// String returns the device the way selection lists show it.
func (d PairedDevice) String() string {
	if d.Name == "" {
		return d.Address
	}
	return d.Name + "\n" + d.Address
}

// PrinterSelection is the persisted active printer.
type PrinterSelection struct {
	Address string
}

// PrintJob is the text handed to a single print call.
type PrintJob struct {
	Text string
}

// DeviceSource is the platform's view of the local Bluetooth stack.
type DeviceSource interface {
	// Supported reports whether the host has any Bluetooth capability at all.
	Supported() bool
	// BondedDevices returns the currently paired devices in platform order.
	BondedDevices() ([]PairedDevice, error)
	// IsEnabled reports whether the radio is powered.
	IsEnabled() (bool, error)
	// RequestEnable asks the platform to power the radio and blocks until it
	// reports the outcome or ctx is done.
	RequestEnable(ctx context.Context) (bool, error)
	// HasConnectPermission reports whether this process may open channels.
	HasConnectPermission() bool
	// RequestConnectPermission asks for the connect permission and blocks
	// until the platform answers or ctx is done.
	RequestConnectPermission(ctx context.Context) (bool, error)
}

// Channel is an open duplex byte stream to a device.
type Channel interface {
	io.WriteCloser
	Flush() error
}

// ChannelOpener opens channels to remote devices.
type ChannelOpener interface {
	// OpenChannel connects to the service on the device at address. It blocks
	// for as long as the platform's connect timeout allows.
	OpenChannel(address string, service uuid.UUID) (Channel, error)
}

// Adapter is the capability surface both the registry and the transport use.
type Adapter interface {
	DeviceSource
	ChannelOpener
}

// PrintError is the typed failure of a print or enumeration call.
type PrintError struct {
	Kind    error  // one of the Err* sentinels
	Address string // printer address, if one was resolved
	Err     error  // underlying cause, may be nil
}

func (e *PrintError) Error() string {
	var sb strings.Builder

	sb.WriteString(e.Kind.Error())
	if e.Address != "" {
		fmt.Fprintf(&sb, " (%s)", e.Address)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *PrintError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, address string, err error) *PrintError {
	return &PrintError{Kind: kind, Address: address, Err: err}
}
