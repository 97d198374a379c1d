package plugin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spp-print/internal/printer"
	"spp-print/internal/settings"
)

const testAddress = "AA:BB:CC:DD:EE:FF"

type harness struct {
	adapter *fakeAdapter
	view    *fakeView
	store   settings.Store
	plugin  *Plugin
}

func newHarness(t *testing.T, store settings.Store) *harness {
	t.Helper()

	if store == nil {
		store = settings.NewMemoryStore()
	}
	adapter := newFakeAdapter()
	adapter.devices = []printer.PairedDevice{
		{Name: "PT-210", Address: testAddress},
		{Name: "", Address: "11:22:33:44:55:66"},
	}
	view := newFakeView()
	reg := printer.NewRegistry(adapter, store)
	tr := printer.NewTransport(reg, adapter)

	return &harness{
		adapter: adapter,
		view:    view,
		store:   store,
		plugin:  New(reg, tr, adapter, view, nil),
	}
}

func TestSelectionSavesPick(t *testing.T) {
	h := newHarness(t, nil)
	h.view.pick = 0

	require.NoError(t, h.plugin.OpenDeviceSelectionUI(context.Background()))

	require.Len(t, h.view.shown, 1)
	assert.Len(t, h.view.shown[0], 2)
	assert.Equal(t, []string{"Saved printer: PT-210"}, h.view.messages)
	assert.Equal(t, 1, h.view.closes)

	address, ok, err := h.store.String(settings.PrinterAddressKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testAddress, address)
}

func TestSelectionUnnamedDeviceUsesAddress(t *testing.T) {
	h := newHarness(t, nil)
	h.view.pick = 1

	require.NoError(t, h.plugin.OpenBluetoothSettings(context.Background()))

	assert.Equal(t, []string{"Saved printer: 11:22:33:44:55:66"}, h.view.messages)
}

func TestSelectionWithoutPickSavesNothing(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.plugin.OpenDeviceSelectionUI(context.Background()))

	_, ok, err := h.store.String(settings.PrinterAddressKey)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, h.view.closes)
}

func TestSelectionUnsupported(t *testing.T) {
	h := newHarness(t, nil)
	h.adapter.unsupported = true

	err := h.plugin.OpenDeviceSelectionUI(context.Background())

	assert.ErrorIs(t, err, printer.ErrUnsupported)
	assert.Equal(t, []string{MsgUnsupported}, h.view.messages)
	assert.Empty(t, h.view.shown)
	assert.Zero(t, h.adapter.listCalls)
}

func TestSelectionPermissionGranted(t *testing.T) {
	h := newHarness(t, nil)
	h.adapter.denied = true
	h.adapter.grant = true

	require.NoError(t, h.plugin.OpenDeviceSelectionUI(context.Background()))

	assert.Equal(t, 1, h.adapter.permissionRequests)
	assert.Equal(t, 1, h.adapter.listCalls, "listing resumes once after the grant")
	require.Len(t, h.view.shown, 1)
}

func TestSelectionPermissionRefused(t *testing.T) {
	h := newHarness(t, nil)
	h.adapter.denied = true

	err := h.plugin.OpenDeviceSelectionUI(context.Background())

	assert.ErrorIs(t, err, printer.ErrPermissionDenied)
	assert.Equal(t, 1, h.adapter.permissionRequests)
	assert.Equal(t, []string{MsgPermissionRequired}, h.view.messages)
	assert.Empty(t, h.view.shown)
	assert.Zero(t, h.adapter.listCalls)
}

func TestSelectionRadioEnabled(t *testing.T) {
	h := newHarness(t, nil)
	h.adapter.disabled = true
	h.adapter.enable = true

	require.NoError(t, h.plugin.OpenDeviceSelectionUI(context.Background()))

	assert.Equal(t, 1, h.adapter.enableRequests)
	require.Len(t, h.view.shown, 1)
}

func TestSelectionRadioStaysOff(t *testing.T) {
	h := newHarness(t, nil)
	h.adapter.disabled = true

	err := h.plugin.OpenDeviceSelectionUI(context.Background())

	assert.ErrorIs(t, err, printer.ErrRadioDisabled)
	assert.Equal(t, 1, h.adapter.enableRequests)
	assert.Equal(t, []string{MsgRadioDisabled}, h.view.messages)
	assert.Empty(t, h.view.shown)
}

func TestSelectionPermissionThenRadio(t *testing.T) {
	h := newHarness(t, nil)
	h.adapter.denied = true
	h.adapter.disabled = true
	h.adapter.grant = true
	h.adapter.enable = true

	require.NoError(t, h.plugin.OpenDeviceSelectionUI(context.Background()))

	assert.Equal(t, 1, h.adapter.permissionRequests)
	assert.Equal(t, 1, h.adapter.enableRequests)
	assert.Equal(t, 1, h.adapter.listCalls)
}

func TestSelectionRequestError(t *testing.T) {
	h := newHarness(t, nil)
	h.adapter.denied = true
	h.adapter.requestErr = context.Canceled

	err := h.plugin.OpenDeviceSelectionUI(context.Background())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.view.shown)
}

func TestSelectionEmptyList(t *testing.T) {
	h := newHarness(t, nil)
	h.adapter.devices = nil

	require.NoError(t, h.plugin.OpenDeviceSelectionUI(context.Background()))

	require.Len(t, h.view.shown, 1)
	assert.Empty(t, h.view.shown[0])
}

func TestSelectionSaveFailureKeepsViewOpen(t *testing.T) {
	h := newHarness(t, failingStore{})
	h.view.pick = 0

	require.NoError(t, h.plugin.OpenDeviceSelectionUI(context.Background()))

	assert.Equal(t, []string{MsgSaveFailed}, h.view.messages)
	assert.Zero(t, h.view.closes)
}

func TestSelectionWithoutView(t *testing.T) {
	h := newHarness(t, nil)
	p := New(h.plugin.registry, h.plugin.transport, h.adapter, nil, nil)

	assert.Error(t, p.OpenDeviceSelectionUI(context.Background()))
}

func TestPrint(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.store.SetString(settings.PrinterAddressKey, testAddress))

	require.NoError(t, h.plugin.Print(context.Background(), "Hello"))

	assert.Equal(t, "Hello\n\n", h.adapter.channel.written.String())
}

func TestPrintReturnsTypedError(t *testing.T) {
	h := newHarness(t, nil)

	err := h.plugin.Print(context.Background(), "Hello")

	assert.ErrorIs(t, err, printer.ErrNoPrinterConfigured)

	require.NoError(t, h.store.SetString(settings.PrinterAddressKey, testAddress))
	h.adapter.connectErr = errors.New("host is down")

	err = h.plugin.Print(context.Background(), "Hello")
	assert.ErrorIs(t, err, printer.ErrConnectFailed)
}

func TestPrintSerialised(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.store.SetString(settings.PrinterAddressKey, testAddress))
	h.adapter.hold = make(chan struct{})

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.plugin.Print(context.Background(), "x"))
		}()
	}

	for range 3 {
		h.adapter.hold <- struct{}{}
	}
	wg.Wait()

	assert.Equal(t, 1, h.adapter.maxFlight)
	assert.Equal(t, 3, h.adapter.channel.closes)
}

func TestPrintWaitHonoursContext(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.plugin.sem.Acquire(context.Background(), 1))
	defer h.plugin.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, h.plugin.Print(ctx, "x"), context.DeadlineExceeded)
}

func TestStatus(t *testing.T) {
	h := newHarness(t, nil)
	h.adapter.disabled = true
	require.NoError(t, h.store.SetString(settings.PrinterAddressKey, testAddress))

	st, err := h.plugin.Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Status{
		Supported:  true,
		Enabled:    false,
		Permission: true,
		Printer:    testAddress,
		Saved:      true,
	}, st)
}

func TestStatusUnsupported(t *testing.T) {
	h := newHarness(t, nil)
	h.adapter.unsupported = true

	st, err := h.plugin.Status(context.Background())

	require.NoError(t, err)
	assert.False(t, st.Supported)
}

func TestStatusCancelled(t *testing.T) {
	h := newHarness(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st, err := h.plugin.Status(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Status{}, st)
}
