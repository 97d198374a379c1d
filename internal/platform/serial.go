package platform

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"spp-print/internal/printer"
)

// SerialOpener opens a serial port that the OS already bound to the printer:
// a Windows Bluetooth COM port, or an rfcomm tty bound outside this program.
type SerialOpener struct {
	port     string
	baudRate int
	log      logrus.FieldLogger
}

// NewSerialOpener returns an opener for opts.SerialPort. When no port is
// configured the printer address itself is used as the port name.
func NewSerialOpener(opts Options, log logrus.FieldLogger) *SerialOpener {
	return &SerialOpener{port: opts.SerialPort, baudRate: opts.BaudRate, log: log}
}

func (o *SerialOpener) OpenChannel(address string, _ uuid.UUID) (printer.Channel, error) {
	name := o.port
	if name == "" {
		name = address
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty port name", ErrInvalidAddress)
	}

	path := PortPath(name)
	port, err := serial.Open(path, serialMode(o.baudRate))
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", path, err)
	}
	port.SetReadTimeout(3 * time.Second)

	o.log.WithField("address", address).WithField("port", path).Debug("serial port opened")

	return &serialChannel{Port: port}, nil
}

// Ports lists the serial ports the OS currently exposes.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// PortPath returns the name to open for a COM port. Ports above COM9 need
// the \\.\ device namespace prefix.
func PortPath(name string) string {
	upper := strings.ToUpper(name)
	if strings.HasPrefix(upper, "COM") && len(name) > 4 {
		return `\\.\` + name
	}

	return name
}

func serialMode(baudRate int) *serial.Mode {
	if baudRate <= 0 {
		baudRate = 115200
	}

	return &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

type serialChannel struct {
	serial.Port
}

func (c *serialChannel) Flush() error {
	return c.Port.Drain()
}
