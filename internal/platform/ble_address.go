//go:build !darwin

package platform

import (
	"fmt"

	"tinygo.org/x/bluetooth"
)

func bleAddress(address string) (bluetooth.Address, error) {
	mac, err := bluetooth.ParseMAC(address)
	if err != nil {
		return bluetooth.Address{}, fmt.Errorf("%w %q: %w", ErrInvalidAddress, address, err)
	}

	return bluetooth.Address{
		MACAddress: bluetooth.MACAddress{
			MAC: mac,
		},
	}, nil
}
