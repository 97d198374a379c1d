package printer

import (
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Encoder turns the caller's text into the bytes sent before the trailer.
type Encoder interface {
	Encode(text string) ([]byte, error)
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(text string) ([]byte, error)

func (f EncoderFunc) Encode(text string) ([]byte, error) {
	return f(text)
}

// RawEncoder sends the text's bytes unchanged.
var RawEncoder = EncoderFunc(func(text string) ([]byte, error) {
	return []byte(text), nil
})

// Transport prints to the saved printer. Every call opens its own channel and
// closes it before returning; concurrent calls are not serialised here.
type Transport struct {
	registry *Registry
	adapter  Adapter
	service  uuid.UUID
	encoder  Encoder
	log      logrus.FieldLogger
	onState  func(State)
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger used for close failures and state tracing.
func WithLogger(log logrus.FieldLogger) Option {
	return func(t *Transport) {
		t.log = log
	}
}

// WithEncoder replaces RawEncoder.
func WithEncoder(enc Encoder) Option {
	return func(t *Transport) {
		t.encoder = enc
	}
}

// WithService overrides the service UUID passed to the channel opener.
func WithService(service uuid.UUID) Option {
	return func(t *Transport) {
		t.service = service
	}
}

// WithStateHook registers fn to observe every state a print call enters.
func WithStateHook(fn func(State)) Option {
	return func(t *Transport) {
		t.onState = fn
	}
}

// NewTransport returns a transport that resolves the printer through registry
// and connects through adapter.
func NewTransport(registry *Registry, adapter Adapter, opts ...Option) *Transport {
	t := &Transport{
		registry: registry,
		adapter:  adapter,
		service:  SPPServiceUUID,
		encoder:  RawEncoder,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		t.log = l
	}

	return t
}

// Print sends payload followed by Trailer to the saved printer. The returned
// error is a *PrintError whose Kind is ErrNoPrinterConfigured,
// ErrPermissionDenied, ErrConnectFailed or ErrWriteFailed. Nothing is retried.
func (t *Transport) Print(payload string) error {
	var (
		ch      *closeOnce
		address string
	)

	t.enter(StateIdle)
	defer func() {
		t.enter(StateClosing)
		if ch != nil {
			t.release(ch, address)
		}
		t.enter(StateDone)
	}()

	t.enter(StateResolvingSelection)
	sel, ok, err := t.registry.Selection()
	if err != nil {
		return newError(ErrNoPrinterConfigured, "", err)
	}
	if !ok {
		return newError(ErrNoPrinterConfigured, "", nil)
	}
	address = sel.Address

	t.enter(StateCheckingPermission)
	if !t.adapter.HasConnectPermission() {
		return newError(ErrPermissionDenied, address, nil)
	}

	t.enter(StateConnecting)
	opened, err := t.adapter.OpenChannel(address, t.service)
	if opened != nil {
		ch = guard(opened)
	}
	if err != nil {
		return newError(ErrConnectFailed, address, err)
	}
	if ch == nil {
		return newError(ErrConnectFailed, address, nil)
	}

	t.enter(StateWriting)
	data, err := t.encoder.Encode(payload)
	if err != nil {
		return newError(ErrWriteFailed, address, err)
	}

	frame := make([]byte, 0, len(data)+len(Trailer))
	frame = append(frame, data...)
	frame = append(frame, Trailer...)

	if _, err := ch.Write(frame); err != nil {
		return newError(ErrWriteFailed, address, err)
	}
	if err := ch.Flush(); err != nil {
		return newError(ErrWriteFailed, address, err)
	}

	t.log.WithField("address", address).WithField("bytes", len(frame)).Debug("sent data to printer")
	return nil
}

// release closes ch. A close failure is only logged so it never replaces the
// outcome of the call.
func (t *Transport) release(ch *closeOnce, address string) {
	if err := ch.Close(); err != nil {
		t.log.WithField("address", address).
			WithError(newError(ErrCloseFailed, address, err)).
			Warn("error closing printer connection")
	}
}

func (t *Transport) enter(s State) {
	t.log.WithField("state", s.String()).Trace("print state")
	if t.onState != nil {
		t.onState(s)
	}
}
