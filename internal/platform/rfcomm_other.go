//go:build !linux

package platform

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"spp-print/internal/printer"
)

func newSocketOpener(Options, logrus.FieldLogger) (printer.ChannelOpener, error) {
	return nil, fmt.Errorf("%w: %s", ErrTransportUnavailable, TransportSocket)
}

func newTTYOpener(Options, logrus.FieldLogger) (printer.ChannelOpener, error) {
	return nil, fmt.Errorf("%w: %s", ErrTransportUnavailable, TransportTTY)
}
