package plugin

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"spp-print/internal/printer"
)

type fakeChannel struct {
	written bytes.Buffer
	closes  int
}

func (c *fakeChannel) Write(p []byte) (int, error) { return c.written.Write(p) }
func (c *fakeChannel) Flush() error                { return nil }
func (c *fakeChannel) Close() error                { c.closes++; return nil }

type fakeAdapter struct {
	mu sync.Mutex

	unsupported bool
	denied      bool
	disabled    bool
	devices     []printer.PairedDevice

	grant      bool
	enable     bool
	requestErr error

	permissionRequests int
	enableRequests     int
	listCalls          int

	channel    *fakeChannel
	connectErr error
	inFlight   int
	maxFlight  int
	hold       chan struct{}
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{channel: &fakeChannel{}}
}

func (a *fakeAdapter) Supported() bool { return !a.unsupported }

func (a *fakeAdapter) BondedDevices() ([]printer.PairedDevice, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listCalls++
	return a.devices, nil
}

func (a *fakeAdapter) IsEnabled() (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.disabled, nil
}

func (a *fakeAdapter) RequestEnable(context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enableRequests++
	if a.requestErr != nil {
		return false, a.requestErr
	}
	if a.enable {
		a.disabled = false
	}
	return a.enable, nil
}

func (a *fakeAdapter) HasConnectPermission() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.denied
}

func (a *fakeAdapter) RequestConnectPermission(context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.permissionRequests++
	if a.requestErr != nil {
		return false, a.requestErr
	}
	if a.grant {
		a.denied = false
	}
	return a.grant, nil
}

func (a *fakeAdapter) OpenChannel(string, uuid.UUID) (printer.Channel, error) {
	a.mu.Lock()
	if a.connectErr != nil {
		a.mu.Unlock()
		return nil, a.connectErr
	}
	a.inFlight++
	a.maxFlight = max(a.maxFlight, a.inFlight)
	hold := a.hold
	a.mu.Unlock()

	if hold != nil {
		<-hold
	}

	a.mu.Lock()
	a.inFlight--
	a.mu.Unlock()

	return a.channel, nil
}

// fakeView records what the plugin shows and picks devices on demand.
type fakeView struct {
	shown    [][]printer.PairedDevice
	messages []string
	closes   int
	pick     int // index to pick when shown, -1 for none
}

func newFakeView() *fakeView {
	return &fakeView{pick: -1}
}

func (v *fakeView) Show(_ context.Context, devices []printer.PairedDevice, onPick func(printer.PairedDevice)) error {
	v.shown = append(v.shown, devices)
	if v.pick >= 0 && v.pick < len(devices) {
		onPick(devices[v.pick])
	}
	return nil
}

func (v *fakeView) Close()            { v.closes++ }
func (v *fakeView) Notify(msg string) { v.messages = append(v.messages, msg) }

type failingStore struct{}

var errReadOnly = errors.New("read-only file system")

func (failingStore) String(string) (string, bool, error) { return "", false, nil }
func (failingStore) SetString(string, string) error     { return errReadOnly }
