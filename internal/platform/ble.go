package platform

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"spp-print/internal/printer"
)

// Service and characteristic most BLE thermal printers expose for raw data.
const (
	DefaultBLEService        = "000018f0-0000-1000-8000-00805f9b34fb"
	DefaultBLECharacteristic = "00002af1-0000-1000-8000-00805f9b34fb"
)

// BLEOpener writes to a GATT characteristic instead of an SPP stream, for
// printers that only speak Bluetooth Low Energy.
type BLEOpener struct {
	adapter *bluetooth.Adapter
	dial    func(bluetooth.Address, bluetooth.ConnectionParams) (bluetooth.Device, error)
	hangup  func(bluetooth.Device) error
	service bluetooth.UUID
	char    bluetooth.UUID
	chunk   int
	timeout time.Duration
	log     logrus.FieldLogger

	enableOnce sync.Once
	enableErr  error
}

// NewBLEOpener parses the configured UUIDs. The host adapter is enabled on
// the first OpenChannel.
func NewBLEOpener(opts Options, log logrus.FieldLogger) (*BLEOpener, error) {
	service, err := bluetooth.ParseUUID(opts.BLEService)
	if err != nil {
		return nil, fmt.Errorf("ble: parse service UUID: %w", err)
	}

	char, err := bluetooth.ParseUUID(opts.BLECharacteristic)
	if err != nil {
		return nil, fmt.Errorf("ble: parse characteristic UUID: %w", err)
	}

	chunk := opts.BLEChunkSize
	if chunk <= 0 {
		chunk = 20
	}

	return &BLEOpener{
		adapter: bluetooth.DefaultAdapter,
		dial:    bluetooth.DefaultAdapter.Connect,
		hangup:  disconnect,
		service: service,
		char:    char,
		chunk:   chunk,
		timeout: opts.ConnectTimeout,
		log:     log,
	}, nil
}

func (o *BLEOpener) OpenChannel(address string, _ uuid.UUID) (printer.Channel, error) {
	o.enableOnce.Do(func() {
		o.enableErr = o.adapter.Enable()
	})
	if o.enableErr != nil {
		return nil, fmt.Errorf("ble: enable adapter: %w", o.enableErr)
	}

	addr, err := bleAddress(address)
	if err != nil {
		return nil, err
	}

	device, err := o.connect(addr, address)
	if err != nil {
		return nil, err
	}

	svcs, err := device.DiscoverServices([]bluetooth.UUID{o.service})
	if err != nil || len(svcs) == 0 {
		o.hangup(device)
		return nil, fmt.Errorf("ble: service %s not found: %v", o.service.String(), err)
	}

	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{o.char})
	if err != nil || len(chars) == 0 {
		o.hangup(device)
		return nil, fmt.Errorf("ble: characteristic %s not found: %v", o.char.String(), err)
	}

	o.log.WithField("address", address).Debug("ble characteristic ready")

	return &bleChannel{
		char:       &chars[0],
		chunk:      o.chunk,
		disconnect: func() error { return o.hangup(device) },
	}, nil
}

func disconnect(device bluetooth.Device) error {
	return device.Disconnect()
}

// connect dials addr. With a timeout set, a dial that finishes after the
// timeout is disconnected as soon as it returns.
func (o *BLEOpener) connect(addr bluetooth.Address, address string) (bluetooth.Device, error) {
	type result struct {
		device bluetooth.Device
		err    error
	}

	ch := make(chan result, 1)
	go func() {
		device, err := o.dial(addr, bluetooth.ConnectionParams{})
		ch <- result{device, err}
	}()

	var timeout <-chan time.Time
	if o.timeout > 0 {
		timer := time.NewTimer(o.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return bluetooth.Device{}, fmt.Errorf("ble: connect to %s: %w", address, r.err)
		}
		return r.device, nil

	case <-timeout:
		go func() {
			if r := <-ch; r.err == nil {
				if err := o.hangup(r.device); err != nil {
					o.log.WithField("address", address).WithError(err).Warn("ble: disconnecting late connection failed")
				}
			}
		}()
		return bluetooth.Device{}, fmt.Errorf("ble: connect to %s: timed out after %s", address, o.timeout)
	}
}

type gattWriter interface {
	WriteWithoutResponse(p []byte) (int, error)
}

// bleChannel splits writes into chunks that fit one ATT packet.
type bleChannel struct {
	char       gattWriter
	chunk      int
	disconnect func() error
}

func (c *bleChannel) Write(p []byte) (int, error) {
	var written int

	for len(p) > 0 {
		n := min(c.chunk, len(p))
		if _, err := c.char.WriteWithoutResponse(p[:n]); err != nil {
			return written, err
		}

		written += n
		p = p[n:]
	}

	return written, nil
}

func (c *bleChannel) Flush() error {
	return nil
}

func (c *bleChannel) Close() error {
	return c.disconnect()
}
