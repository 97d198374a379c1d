// Package platform provides the host implementations of printer.Adapter:
// where paired devices come from, how the radio and connect permission are
// queried, and how a byte channel to the printer is opened.
package platform

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"spp-print/internal/printer"
)

// Transport names accepted by Options.Transport.
const (
	TransportAuto   = "auto"
	TransportSocket = "socket"
	TransportTTY    = "tty"
	TransportSerial = "serial"
	TransportBLE    = "ble"
)

// Transports lists every transport name, in help-text order.
var Transports = []string{TransportAuto, TransportSocket, TransportTTY, TransportSerial, TransportBLE}

var (
	ErrTransportUnavailable = errors.New("transport is not available on this platform")
	ErrUnknownTransport     = errors.New("unknown transport")
	ErrInvalidAddress       = errors.New("invalid printer address")
)

// Options selects and tunes the platform implementation.
type Options struct {
	Adapter           string // adapter name (hci0) or address; empty picks the first
	Transport         string
	Channel           int // RFCOMM channel for the socket and tty transports
	SerialPort        string
	BaudRate          int
	BLEService        string
	BLECharacteristic string
	BLEChunkSize      int
	EnableTimeout     time.Duration
	ConnectTimeout    time.Duration // 0 leaves connecting to the platform's own timeout
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Transport:         TransportAuto,
		Channel:           1,
		BaudRate:          115200,
		BLEService:        DefaultBLEService,
		BLECharacteristic: DefaultBLECharacteristic,
		BLEChunkSize:      20,
		EnableTimeout:     10 * time.Second,
	}
}

// Adapter joins a device source and a channel opener into a printer.Adapter.
type Adapter struct {
	printer.DeviceSource
	printer.ChannelOpener

	closers []io.Closer
}

var _ printer.Adapter = (*Adapter)(nil)

// Close releases the platform sessions held by the adapter.
func (a *Adapter) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// New builds the adapter for the running platform.
func New(opts Options, log logrus.FieldLogger) (*Adapter, error) {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	source := newSource(opts, log)

	opener, err := NewOpener(opts, log)
	if err != nil {
		return nil, err
	}

	a := &Adapter{DeviceSource: source, ChannelOpener: opener}
	for _, v := range []any{source, opener} {
		if c, ok := v.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
	}

	return a, nil
}

// NewOpener returns the channel opener for opts.Transport.
func NewOpener(opts Options, log logrus.FieldLogger) (printer.ChannelOpener, error) {
	transport := strings.ToLower(strings.TrimSpace(opts.Transport))
	if transport == "" || transport == TransportAuto {
		transport = DefaultTransport
	}

	switch transport {
	case TransportSocket:
		return newSocketOpener(opts, log)

	case TransportTTY:
		return newTTYOpener(opts, log)

	case TransportSerial:
		return NewSerialOpener(opts, log), nil

	case TransportBLE:
		return NewBLEOpener(opts, log)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, opts.Transport)
}
