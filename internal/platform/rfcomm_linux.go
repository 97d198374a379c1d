//go:build linux

package platform

import (
	"fmt"
	"os"

	"github.com/bluetuith-org/bluetooth-classic/api/bluetooth"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"spp-print/internal/printer"
)

// socketOpener connects an RFCOMM stream socket straight to the printer.
type socketOpener struct {
	channel int
	timeout unix.Timeval
	log     logrus.FieldLogger
}

func newSocketOpener(opts Options, log logrus.FieldLogger) (printer.ChannelOpener, error) {
	if opts.Channel < 1 || opts.Channel > 30 {
		return nil, fmt.Errorf("rfcomm channel %d out of range 1-30", opts.Channel)
	}

	return &socketOpener{
		channel: opts.Channel,
		timeout: unix.NsecToTimeval(opts.ConnectTimeout.Nanoseconds()),
		log:     log,
	}, nil
}

// OpenChannel dials the configured channel. The service UUID is not resolved
// through SDP; SPP printers listen on a fixed channel.
func (o *socketOpener) OpenChannel(address string, service uuid.UUID) (printer.Channel, error) {
	// bluetooth-classic stores addresses least significant octet first, the
	// same order the kernel expects in bdaddr_t.
	mac, err := parseMAC(address)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, fmt.Errorf("rfcomm socket: %w", err)
	}

	if o.timeout.Sec > 0 || o.timeout.Usec > 0 {
		// SO_SNDTIMEO also bounds connect(2).
		if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &o.timeout); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("rfcomm socket timeout: %w", err)
		}
	}

	sa := &unix.SockaddrRFCOMM{Addr: [6]uint8(mac), Channel: uint8(o.channel)}
	if err := unix.Connect(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("rfcomm connect %s channel %d: %w", address, o.channel, err)
	}

	o.log.WithField("address", address).WithField("channel", o.channel).
		WithField("service", service.String()).Debug("rfcomm socket connected")

	return &socketChannel{File: os.NewFile(uintptr(fd), "rfcomm:"+address)}, nil
}

// socketChannel writes straight to the socket, so there is nothing to flush.
type socketChannel struct {
	*os.File
}

func (c *socketChannel) Flush() error {
	return nil
}

func parseMAC(address string) (bluetooth.MacAddress, error) {
	if len(address) != bluetooth.MaxAddressStringLength {
		return bluetooth.MacAddress{}, fmt.Errorf("%w %q", ErrInvalidAddress, address)
	}

	mac, err := bluetooth.ParseMAC(address)
	if err != nil {
		return bluetooth.MacAddress{}, fmt.Errorf("%w %q: %w", ErrInvalidAddress, address, err)
	}

	return mac, nil
}
