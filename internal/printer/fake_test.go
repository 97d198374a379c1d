package printer

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/uuid"
)

// fakeChannel records what the transport does with a channel.
type fakeChannel struct {
	mu       sync.Mutex
	written  bytes.Buffer
	writes   int
	flushes  int
	closes   int
	writeErr error
	flushErr error
	closeErr error
}

func (c *fakeChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return c.written.Write(p)
}

func (c *fakeChannel) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushes++
	return c.flushErr
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return c.closeErr
}

// fakeAdapter is a scriptable Adapter.
type fakeAdapter struct {
	mu sync.Mutex

	unsupported bool
	denied      bool
	disabled    bool
	devices     []PairedDevice
	listErr     error

	grantOnRequest  bool
	enableOnRequest bool

	channel    *fakeChannel
	connectErr error

	connects        []string
	services        []uuid.UUID
	listCalls       int
	permissionCalls int
	enableCalls     int
}

var _ Adapter = (*fakeAdapter)(nil)

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{channel: &fakeChannel{}}
}

func (a *fakeAdapter) Supported() bool {
	return !a.unsupported
}

func (a *fakeAdapter) BondedDevices() ([]PairedDevice, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listCalls++
	return a.devices, a.listErr
}

func (a *fakeAdapter) IsEnabled() (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.disabled, nil
}

func (a *fakeAdapter) RequestEnable(context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enableCalls++
	if a.enableOnRequest {
		a.disabled = false
	}
	return a.enableOnRequest, nil
}

func (a *fakeAdapter) HasConnectPermission() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.denied
}

func (a *fakeAdapter) RequestConnectPermission(context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.permissionCalls++
	if a.grantOnRequest {
		a.denied = false
	}
	return a.grantOnRequest, nil
}

func (a *fakeAdapter) OpenChannel(address string, service uuid.UUID) (Channel, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connects = append(a.connects, address)
	a.services = append(a.services, service)
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	return a.channel, nil
}
