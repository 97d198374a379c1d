package platform

import (
	"bytes"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/bluetooth"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(new(bytes.Buffer))
	return l
}

func TestPortPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"COM3", "COM3"},
		{"COM9", "COM9"},
		{"COM12", `\\.\COM12`},
		{"com15", `\\.\com15`},
		{"/dev/rfcomm0", "/dev/rfcomm0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, PortPath(tt.in))
		})
	}
}

func TestNewOpenerUnknownTransport(t *testing.T) {
	opts := DefaultOptions()
	opts.Transport = "carrier-pigeon"

	_, err := NewOpener(opts, testLogger())
	assert.ErrorIs(t, err, ErrUnknownTransport)
}

func TestNewOpenerSerial(t *testing.T) {
	opts := DefaultOptions()
	opts.Transport = " Serial "

	opener, err := NewOpener(opts, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &SerialOpener{}, opener)
}

func TestNewOpenerBadBLEUUID(t *testing.T) {
	opts := DefaultOptions()
	opts.Transport = TransportBLE
	opts.BLECharacteristic = "not-a-uuid"

	_, err := NewOpener(opts, testLogger())
	assert.Error(t, err)
}

func TestSerialOpenerNeedsPort(t *testing.T) {
	opener := NewSerialOpener(Options{}, testLogger())

	_, err := opener.OpenChannel("", [16]byte{})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

type recordingWriter struct {
	chunks [][]byte
	failAt int
}

func (w *recordingWriter) WriteWithoutResponse(p []byte) (int, error) {
	if w.failAt > 0 && len(w.chunks)+1 == w.failAt {
		return 0, errors.New("att: not connected")
	}
	w.chunks = append(w.chunks, append([]byte(nil), p...))
	return len(p), nil
}

func TestBLEChannelChunks(t *testing.T) {
	w := &recordingWriter{}
	ch := &bleChannel{char: w, chunk: 4, disconnect: func() error { return nil }}

	n, err := ch.Write([]byte("Hello\n\n"))

	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, [][]byte{[]byte("Hell"), []byte("o\n\n")}, w.chunks)
	assert.NoError(t, ch.Flush())
}

func TestBLEChannelPartialWrite(t *testing.T) {
	w := &recordingWriter{failAt: 2}
	ch := &bleChannel{char: w, chunk: 2, disconnect: func() error { return nil }}

	n, err := ch.Write([]byte("abcdef"))

	assert.Error(t, err)
	assert.Equal(t, 2, n)
}

func TestBLEChannelClose(t *testing.T) {
	var calls int
	ch := &bleChannel{char: &recordingWriter{}, chunk: 20, disconnect: func() error {
		calls++
		return nil
	}}

	require.NoError(t, ch.Close())
	assert.Equal(t, 1, calls)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestAdapterCloseJoinsErrors(t *testing.T) {
	first := errors.New("session stop")
	a := &Adapter{closers: []io.Closer{
		closerFunc(func() error { return first }),
		closerFunc(func() error { return nil }),
	}}

	assert.ErrorIs(t, a.Close(), first)
	assert.NoError(t, (&Adapter{}).Close())
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, TransportAuto, opts.Transport)
	assert.Equal(t, 1, opts.Channel)
	assert.Equal(t, 115200, opts.BaudRate)
	assert.Equal(t, 20, opts.BLEChunkSize)
	assert.Zero(t, opts.ConnectTimeout)
}

func TestBLEConnectTimeoutDisconnectsLateDevice(t *testing.T) {
	release := make(chan struct{})
	var hangups atomic.Int32

	o := &BLEOpener{
		dial: func(bluetooth.Address, bluetooth.ConnectionParams) (bluetooth.Device, error) {
			<-release
			return bluetooth.Device{}, nil
		},
		hangup: func(bluetooth.Device) error {
			hangups.Add(1)
			return nil
		},
		timeout: 10 * time.Millisecond,
		log:     testLogger(),
	}

	_, err := o.connect(bluetooth.Address{}, "AA:BB:CC:DD:EE:FF")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Zero(t, hangups.Load())

	close(release)
	assert.Eventually(t, func() bool {
		return hangups.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBLEConnectWithoutTimeout(t *testing.T) {
	var hangups atomic.Int32

	o := &BLEOpener{
		dial: func(bluetooth.Address, bluetooth.ConnectionParams) (bluetooth.Device, error) {
			time.Sleep(20 * time.Millisecond)
			return bluetooth.Device{}, nil
		},
		hangup: func(bluetooth.Device) error {
			hangups.Add(1)
			return nil
		},
		log: testLogger(),
	}

	_, err := o.connect(bluetooth.Address{}, "AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	assert.Zero(t, hangups.Load())
}

func TestBLEConnectFailure(t *testing.T) {
	o := &BLEOpener{
		dial: func(bluetooth.Address, bluetooth.ConnectionParams) (bluetooth.Device, error) {
			return bluetooth.Device{}, errors.New("le-connection-abort-by-local")
		},
		hangup:  func(bluetooth.Device) error { return nil },
		timeout: time.Second,
		log:     testLogger(),
	}

	_, err := o.connect(bluetooth.Address{}, "AA:BB:CC:DD:EE:FF")
	assert.ErrorContains(t, err, "le-connection-abort-by-local")
}
