//go:build linux

package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bluetuith-org/bluetooth-classic/api/bluetooth"
	scfg "github.com/bluetuith-org/bluetooth-classic/api/config"
	"github.com/bluetuith-org/bluetooth-classic/session"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"spp-print/internal/printer"
)

// DefaultTransport is used when the configured transport is "auto".
const DefaultTransport = TransportSocket

var errNoAdapter = errors.New("no bluetooth adapter found")

// bluezSource reads adapters and bonded devices from BlueZ over D-Bus.
// The session is started on first use and kept until Close.
type bluezSource struct {
	opts Options
	log  logrus.FieldLogger

	mu      sync.Mutex
	session bluetooth.Session
	adapter bluetooth.AdapterData
}

func newSource(opts Options, log logrus.FieldLogger) printer.DeviceSource {
	return &bluezSource{opts: opts, log: log}
}

func (b *bluezSource) start() (bluetooth.Session, bluetooth.AdapterData, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session != nil {
		return b.session, b.adapter, nil
	}

	s := session.NewSession()
	if _, _, err := s.Start(nil, scfg.New()); err != nil {
		return nil, bluetooth.AdapterData{}, fmt.Errorf("bluez session: %w", err)
	}

	adapters, err := s.Adapters()
	if err != nil {
		s.Stop()
		return nil, bluetooth.AdapterData{}, fmt.Errorf("bluez adapters: %w", err)
	}

	adapter, ok := pickAdapter(adapters, b.opts.Adapter)
	if !ok {
		s.Stop()
		return nil, bluetooth.AdapterData{}, errNoAdapter
	}

	b.log.WithField("adapter", adapter.UniqueName).Debug("bluez session started")
	b.session, b.adapter = s, adapter

	return s, adapter, nil
}

func pickAdapter(adapters []bluetooth.AdapterData, want string) (bluetooth.AdapterData, bool) {
	if len(adapters) == 0 {
		return bluetooth.AdapterData{}, false
	}
	if want == "" {
		return adapters[0], true
	}

	for _, a := range adapters {
		if a.UniqueName == want || strings.EqualFold(a.Address.String(), want) {
			return a, true
		}
	}

	return bluetooth.AdapterData{}, false
}

func (b *bluezSource) Supported() bool {
	if _, _, err := b.start(); err != nil {
		b.log.WithError(err).Debug("bluetooth unavailable")
		return false
	}

	return true
}

func (b *bluezSource) BondedDevices() ([]printer.PairedDevice, error) {
	s, adapter, err := b.start()
	if err != nil {
		return nil, err
	}

	devices, err := s.Adapter(adapter.Address).Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices on %s: %w", adapter.UniqueName, err)
	}

	paired := make([]printer.PairedDevice, 0, len(devices))
	for _, d := range devices {
		if !d.Paired && !d.Bonded {
			continue
		}

		name := d.Name
		if name == "" {
			name = d.Alias
		}
		paired = append(paired, printer.PairedDevice{Name: name, Address: d.Address.String()})
	}

	return paired, nil
}

func (b *bluezSource) IsEnabled() (bool, error) {
	s, adapter, err := b.start()
	if err != nil {
		return false, err
	}

	props, err := s.Adapter(adapter.Address).Properties()
	if err != nil {
		return false, fmt.Errorf("adapter properties: %w", err)
	}

	return props.Powered, nil
}

// RequestEnable powers the adapter on and waits for BlueZ to report the new
// powered state through an adapter event.
func (b *bluezSource) RequestEnable(ctx context.Context) (bool, error) {
	s, adapter, err := b.start()
	if err != nil {
		return false, err
	}

	sub, active := bluetooth.AdapterEvents().Subscribe()
	if active {
		defer sub.Unsubscribe()
	}

	if err := s.Adapter(adapter.Address).SetPoweredState(true); err != nil {
		return false, fmt.Errorf("power on %s: %w", adapter.UniqueName, err)
	}
	if !active {
		return b.IsEnabled()
	}

	if b.opts.EnableTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.EnableTimeout)
		defer cancel()
	}

	// The property may have flipped before the subscription saw it.
	if on, err := b.IsEnabled(); err == nil && on {
		return true, nil
	}

	return waitPowered(ctx, sub.UpdatedEvents, adapter.Address, b.IsEnabled)
}

// waitPowered blocks until events reports addr powered on. A closed events
// channel falls back to recheck; an expired deadline reports false without
// an error.
func waitPowered(ctx context.Context, events <-chan bluetooth.AdapterEventData, addr bluetooth.MacAddress, recheck func() (bool, error)) (bool, error) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return recheck()
			}
			if ev.Address != addr {
				continue
			}
			if ev.Powered {
				return true, nil
			}

		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return false, nil
			}
			return false, ctx.Err()
		}
	}
}

// HasConnectPermission probes whether this process may create RFCOMM sockets.
func (b *bluezSource) HasConnectPermission() bool {
	return probeSocketPermission()
}

// RequestConnectPermission cannot prompt on Linux; the grant comes from group
// membership or capabilities, so it only re-checks.
func (b *bluezSource) RequestConnectPermission(context.Context) (bool, error) {
	granted := probeSocketPermission()
	if !granted {
		b.log.Warn("bluetooth sockets are not permitted, check the bluetooth group or CAP_NET_RAW")
	}

	return granted, nil
}

func (b *bluezSource) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}

	err := b.session.Stop()
	b.session = nil

	return err
}

func probeSocketPermission() bool {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return !errors.Is(err, unix.EACCES) && !errors.Is(err, unix.EPERM)
	}
	unix.Close(fd)

	return true
}
