package printer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spp-print/internal/settings"
)

type failingStore struct {
	err error
}

func (s failingStore) String(string) (string, bool, error) { return "", false, s.err }
func (s failingStore) SetString(string, string) error     { return s.err }

func TestListPairedDevices(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.devices = []PairedDevice{
		{Name: "PT-210", Address: "AA:BB:CC:DD:EE:FF"},
		{Name: "Headset", Address: "11:22:33:44:55:66"},
	}
	reg := NewRegistry(adapter, settings.NewMemoryStore())

	devices, err := reg.ListPairedDevices()

	require.NoError(t, err)
	assert.ElementsMatch(t, adapter.devices, devices)
}

func TestListPairedDevicesShortCircuits(t *testing.T) {
	for _, tc := range []struct {
		name  string
		setup func(a *fakeAdapter)
		want  error
	}{
		{"unsupported", func(a *fakeAdapter) { a.unsupported = true }, ErrUnsupported},
		{"permission", func(a *fakeAdapter) { a.denied = true }, ErrPermissionDenied},
		{"radio", func(a *fakeAdapter) { a.disabled = true }, ErrRadioDisabled},
	} {
		t.Run(tc.name, func(t *testing.T) {
			adapter := newFakeAdapter()
			adapter.devices = []PairedDevice{{Name: "PT-210", Address: testAddress}}
			tc.setup(adapter)
			reg := NewRegistry(adapter, settings.NewMemoryStore())

			devices, err := reg.ListPairedDevices()

			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, devices)
			assert.Zero(t, adapter.listCalls, "enumeration must not be attempted")
		})
	}
}

func TestListPairedDevicesError(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.listErr = errors.New("dbus: timeout")
	reg := NewRegistry(adapter, settings.NewMemoryStore())

	_, err := reg.ListPairedDevices()
	assert.ErrorIs(t, err, adapter.listErr)
}

func TestSaveGetRoundTrip(t *testing.T) {
	reg := NewRegistry(newFakeAdapter(), settings.NewMemoryStore())

	_, ok, err := reg.GetPrinter()
	require.NoError(t, err)
	assert.False(t, ok)

	for _, address := range []string{"AA:BB:CC:DD:EE:FF", "aa:bb:cc:dd:ee:ff", "COM7"} {
		require.NoError(t, reg.SavePrinter(address))
		got, ok, err := reg.GetPrinter()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, address, got)
	}

	sel, ok, err := reg.Selection()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, PrinterSelection{Address: "COM7"}, sel)
}

func TestSavePrinterIdempotent(t *testing.T) {
	reg := NewRegistry(newFakeAdapter(), settings.NewMemoryStore())

	require.NoError(t, reg.SavePrinter(testAddress))
	require.NoError(t, reg.SavePrinter(testAddress))

	got, _, err := reg.GetPrinter()
	require.NoError(t, err)
	assert.Equal(t, testAddress, got)
}

func TestRegistryStoreErrors(t *testing.T) {
	cause := errors.New("read-only file system")
	reg := NewRegistry(newFakeAdapter(), failingStore{err: cause})

	assert.ErrorIs(t, reg.SavePrinter(testAddress), cause)

	_, _, err := reg.GetPrinter()
	assert.ErrorIs(t, err, cause)
}

func TestPrintStoreErrorIsNoPrinterConfigured(t *testing.T) {
	cause := errors.New("permission denied")
	adapter := newFakeAdapter()
	tr := NewTransport(NewRegistry(adapter, failingStore{err: cause}), adapter)

	err := tr.Print("Hello")

	assert.ErrorIs(t, err, ErrNoPrinterConfigured)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, adapter.connects)
}

func TestPairedDeviceString(t *testing.T) {
	assert.Equal(t, "PT-210\nAA:BB:CC:DD:EE:FF", PairedDevice{Name: "PT-210", Address: testAddress}.String())
	assert.Equal(t, testAddress, PairedDevice{Address: testAddress}.String())
}
