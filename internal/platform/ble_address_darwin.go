//go:build darwin

package platform

import (
	"fmt"

	"tinygo.org/x/bluetooth"
)

// bleAddress parses a CoreBluetooth peripheral identifier; macOS does not
// expose device MAC addresses.
func bleAddress(address string) (bluetooth.Address, error) {
	id, err := bluetooth.ParseUUID(address)
	if err != nil {
		return bluetooth.Address{}, fmt.Errorf("%w %q: %w", ErrInvalidAddress, address, err)
	}

	var addr bluetooth.Address
	addr.Set(id.String())

	return addr, nil
}
