package printer

import (
	"fmt"

	"spp-print/internal/settings"
)

// Registry enumerates paired devices and remembers which one is the printer.
type Registry struct {
	source DeviceSource
	store  settings.Store
}

// NewRegistry returns a registry over source, persisting the selection in store.
func NewRegistry(source DeviceSource, store settings.Store) *Registry {
	return &Registry{source: source, store: store}
}

// ListPairedDevices returns the bonded devices. When the host lacks Bluetooth,
// the connect permission or a powered radio it returns no devices and
// ErrUnsupported, ErrPermissionDenied or ErrRadioDisabled respectively,
// without enumerating.
func (r *Registry) ListPairedDevices() ([]PairedDevice, error) {
	if !r.source.Supported() {
		return nil, ErrUnsupported
	}
	if !r.source.HasConnectPermission() {
		return nil, ErrPermissionDenied
	}

	enabled, err := r.source.IsEnabled()
	if err != nil {
		return nil, fmt.Errorf("reading radio state: %w", err)
	}
	if !enabled {
		return nil, ErrRadioDisabled
	}

	devices, err := r.source.BondedDevices()
	if err != nil {
		return nil, fmt.Errorf("listing paired devices: %w", err)
	}

	return devices, nil
}

// SavePrinter overwrites the saved printer address.
func (r *Registry) SavePrinter(address string) error {
	if err := r.store.SetString(settings.PrinterAddressKey, address); err != nil {
		return fmt.Errorf("saving printer address: %w", err)
	}
	return nil
}

// GetPrinter returns the saved printer address, if any.
func (r *Registry) GetPrinter() (string, bool, error) {
	address, ok, err := r.store.String(settings.PrinterAddressKey)
	if err != nil {
		return "", false, fmt.Errorf("reading printer address: %w", err)
	}
	if !ok || address == "" {
		return "", false, nil
	}
	return address, true, nil
}

// Selection returns the saved printer as a PrinterSelection.
func (r *Registry) Selection() (PrinterSelection, bool, error) {
	address, ok, err := r.GetPrinter()
	if err != nil || !ok {
		return PrinterSelection{}, ok, err
	}
	return PrinterSelection{Address: address}, true, nil
}
