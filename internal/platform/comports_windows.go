//go:build windows

package platform

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows/registry"

	"spp-print/internal/printer"
)

// DefaultTransport is used when the configured transport is "auto". Windows
// binds paired SPP devices to COM ports by itself.
const DefaultTransport = TransportSerial

const serialCommKey = `HARDWARE\DEVICEMAP\SERIALCOMM`

// comPortSource lists the COM ports Windows created for paired SPP devices.
// The COM port name doubles as the printer address.
type comPortSource struct {
	log logrus.FieldLogger
}

func newSource(_ Options, log logrus.FieldLogger) printer.DeviceSource {
	return &comPortSource{log: log}
}

func (s *comPortSource) Supported() bool {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, serialCommKey, registry.READ)
	if err != nil {
		s.log.WithError(err).Debug("serial port registry unavailable")
		return false
	}
	key.Close()

	return true
}

// BondedDevices returns the Bluetooth COM ports, or every COM port when none
// is recognisably Bluetooth.
func (s *comPortSource) BondedDevices() ([]printer.PairedDevice, error) {
	ports, err := readSerialComm()
	if err != nil {
		return nil, err
	}

	var bt, all []printer.PairedDevice
	for name, port := range ports {
		dev := printer.PairedDevice{Name: name, Address: port}
		all = append(all, dev)

		lower := strings.ToLower(name)
		if strings.Contains(lower, "bth") || strings.Contains(lower, "bluetooth") {
			bt = append(bt, dev)
		}
	}

	devices := bt
	if len(devices) == 0 {
		devices = all
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Address < devices[j].Address
	})

	return devices, nil
}

// IsEnabled reports true; COM port enumeration does not depend on the radio.
func (s *comPortSource) IsEnabled() (bool, error) {
	return true, nil
}

func (s *comPortSource) RequestEnable(context.Context) (bool, error) {
	return true, nil
}

// HasConnectPermission reports true; COM ports need no elevation.
func (s *comPortSource) HasConnectPermission() bool {
	return true
}

func (s *comPortSource) RequestConnectPermission(context.Context) (bool, error) {
	return true, nil
}

func readSerialComm() (map[string]string, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, serialCommKey, registry.READ)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	names, err := key.ReadValueNames(-1)
	if err != nil {
		return nil, err
	}

	ports := make(map[string]string, len(names))
	for _, name := range names {
		if val, _, err := key.GetStringValue(name); err == nil {
			ports[name] = val
		}
	}

	return ports, nil
}
