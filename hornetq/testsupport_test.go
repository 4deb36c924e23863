package hornetq

import (
	"encoding/binary"
	"sync"
	"testing"
)

// fakeTransport records traffic and answers requests through a pluggable
// handler. The version field is the protocol version "its server" negotiated,
// so tests can detect a transport paired with the wrong version.
type fakeTransport struct {
	lock     sync.Mutex
	version  byte
	oneways  []*Envelope
	requests []*Envelope
	handler  func(request *Envelope) *Envelope
	sendErr  error
	closed   bool
}

func newFakeTransport(version byte) *fakeTransport {
	return &fakeTransport{
		version: version,
		handler: func(request *Envelope) *Envelope {
			return NewResultEnvelope(request.Version(), nil)
		},
	}
}

func (transport *fakeTransport) setHandler(handler func(request *Envelope) *Envelope) {
	transport.lock.Lock()
	transport.handler = handler
	transport.lock.Unlock()
}

func (transport *fakeTransport) SendOneway(envelope *Envelope) error {
	transport.lock.Lock()
	defer transport.lock.Unlock()
	if transport.closed {
		return NewError(ConnectionError, "fake transport closed")
	}
	if transport.sendErr != nil {
		return transport.sendErr
	}
	transport.oneways = append(transport.oneways, envelope)
	return nil
}

func (transport *fakeTransport) SendRequest(envelope *Envelope) (*Envelope, error) {
	transport.lock.Lock()
	if transport.closed {
		transport.lock.Unlock()
		return nil, NewError(ConnectionError, "fake transport closed")
	}
	if transport.sendErr != nil {
		err := transport.sendErr
		transport.lock.Unlock()
		return nil, err
	}
	transport.requests = append(transport.requests, envelope)
	handler := transport.handler
	transport.lock.Unlock()

	return handler(envelope), nil
}

func (transport *fakeTransport) Close() error {
	transport.lock.Lock()
	transport.closed = true
	transport.lock.Unlock()
	return nil
}

func (transport *fakeTransport) onewayCount() int {
	transport.lock.Lock()
	defer transport.lock.Unlock()
	return len(transport.oneways)
}

func (transport *fakeTransport) requestCount() int {
	transport.lock.Lock()
	defer transport.lock.Unlock()
	return len(transport.requests)
}

func encodeObjectID(id int64) []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, uint64(id))
	return raw
}

// newTestDelegate builds an attached delegate over the given transport with
// its own pipeline and endpoint reference.
func newTestDelegate(t *testing.T, transport Transport, version byte, oneway ...string) (*DelegateSupport, *DispatchPipeline, *endpointRef) {
	t.Helper()

	delegate := NewDelegate("test.delegate", 42, oneway...)
	ref := newEndpointRef(FailoverBlock, NewEndpointState(transport, version))
	delegate.bindEndpoint(ref)

	pipeline := NewDispatchPipeline()
	if err := delegate.Attach(pipeline); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	return delegate, pipeline, ref
}

// newTestSession builds a connected session over a scripted connector.
func newTestSession(t *testing.T, config Config, connector Connector) *Session {
	t.Helper()

	session, err := NewSession(config, connector)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if err := session.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	return session
}
