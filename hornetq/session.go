package hornetq

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"
)

// sessionTargetID is the well-known server-side identifier for the session
// object itself; resource creation and failover recovery requests target it.
const sessionTargetID = int64(0)

type registration struct {
	delegate *DelegateSupport
	pipeline *DispatchPipeline
}

// Session owns the shared EndpointState for one client-side connection and
// the handles created under it. It is the failover coordinator: on a
// transport disconnect it re-establishes a connection through its server
// chooser and reconnect strategy, re-points every registered handle with
// SynchronizeWith, and installs the replacement endpoint atomically.
type Session struct {
	lock      sync.Mutex
	config    Config
	connector Connector
	chooser   ServerChooser
	strategy  ReconnectDelayStrategy

	endpoint  *endpointRef
	delegates []*registration

	sessionPipeline *DispatchPipeline
	sessionDelegate *DelegateSupport

	connected bool
	closed    bool
	failing   atomic.Bool
}

// NewSession builds a session from the given configuration and connector.
// Connect must be called before any resource is created.
func NewSession(config Config, connector Connector) (*Session, error) {
	if connector == nil {
		return nil, NewError(IllegalStateError, "nil connector")
	}

	chooser := NewRoundRobinChooser(config.Endpoints...)

	session := &Session{
		config:    config,
		connector: connector,
		chooser:   chooser,
		strategy:  config.reconnectStrategy(),
		endpoint:  newEndpointRef(config.FailoverPolicy, nil),
	}

	session.sessionDelegate = NewDelegate("session", sessionTargetID)
	session.sessionDelegate.bindEndpoint(session.endpoint)
	session.sessionPipeline = NewDispatchPipeline()
	if err := session.sessionDelegate.Attach(session.sessionPipeline); err != nil {
		return nil, err
	}
	session.register(session.sessionDelegate, session.sessionPipeline)

	return session, nil
}

// SetServerChooser replaces the endpoint selection policy. Must be called
// before Connect.
func (session *Session) SetServerChooser(chooser ServerChooser) *Session {
	if chooser == nil {
		return session
	}
	session.lock.Lock()
	session.chooser = chooser
	session.lock.Unlock()
	return session
}

// SetReconnectDelayStrategy replaces the delay policy used between failover
// attempts.
func (session *Session) SetReconnectDelayStrategy(strategy ReconnectDelayStrategy) *Session {
	if strategy == nil {
		return session
	}
	session.lock.Lock()
	session.strategy = strategy
	session.lock.Unlock()
	return session
}

// Pipeline returns the session's own dispatch pipeline, so the host can
// append interceptors ahead of the remote dispatch step.
func (session *Session) Pipeline() *DispatchPipeline { return session.sessionPipeline }

// EndpointState returns the currently installed endpoint state, or nil while
// disconnected.
func (session *Session) EndpointState() *EndpointState { return session.endpoint.snapshot() }

// Connect establishes the initial transport and installs the session's
// endpoint state.
func (session *Session) Connect() error {
	session.lock.Lock()
	if session.closed {
		session.lock.Unlock()
		return NewError(ObjectClosedError, "session is closed")
	}
	if session.connected {
		session.lock.Unlock()
		return NewError(IllegalStateError, "session already connected")
	}
	chooser := session.chooser
	connector := session.connector
	session.lock.Unlock()

	uri := chooser.CurrentURI()
	if uri == "" {
		return NewError(ConnectionError, "server chooser does not contain any URIs")
	}

	transport, version, err := connector(uri)
	if err != nil {
		chooser.ReportFailure(err)
		return err
	}

	session.adoptTransport(transport)
	session.endpoint.install(NewEndpointState(transport, version))
	chooser.ReportSuccess()

	session.lock.Lock()
	session.connected = true
	session.lock.Unlock()

	log := Logger()
	log.Debug().Str("uri", uri).Uint8("version", version).Msg("session connected")
	return nil
}

// adoptTransport wires the transport's disconnect notification into the
// session's failover entry point, when the transport supports it.
func (session *Session) adoptTransport(transport Transport) {
	type disconnectNotifier interface {
		SetDisconnectHandler(handler DisconnectHandler)
	}
	if notifier, ok := transport.(disconnectNotifier); ok {
		notifier.SetDisconnectHandler(session.NotifyDisconnect)
	}
}

func (session *Session) register(delegate *DelegateSupport, pipeline *DispatchPipeline) {
	session.lock.Lock()
	session.delegates = append(session.delegates, &registration{delegate: delegate, pipeline: pipeline})
	session.lock.Unlock()
}

func (session *Session) unregister(delegate *DelegateSupport) {
	session.lock.Lock()
	filtered := session.delegates[:0]
	for _, reg := range session.delegates {
		if reg.delegate != delegate {
			filtered = append(filtered, reg)
		}
	}
	session.delegates = filtered
	session.lock.Unlock()
}

// CreateProducer asks the server to create a producer for the address and
// wraps the returned identifier in an attached, registered handle.
func (session *Session) CreateProducer(address string) (*ClientProducer, error) {
	if address == "" {
		return nil, NewError(AddressNotFoundError, "an address must be specified")
	}
	session.lock.Lock()
	if session.closed {
		session.lock.Unlock()
		return nil, NewError(ObjectClosedError, "session is closed")
	}
	session.lock.Unlock()

	result, err := session.sessionPipeline.Call("createProducer", []byte(address))
	if err != nil {
		return nil, err
	}
	id, err := decodeObjectID(result)
	if err != nil {
		return nil, err
	}

	delegate := NewDelegate("producer."+address, id, "changeRate")
	delegate.bindEndpoint(session.endpoint)
	pipeline := NewDispatchPipeline()
	if err := delegate.Attach(pipeline); err != nil {
		return nil, err
	}
	session.register(delegate, pipeline)

	return &ClientProducer{session: session, delegate: delegate, pipeline: pipeline, address: address}, nil
}

// NotifyDisconnect is the transport's disconnect callback. It starts failover
// in the background; callers blocked in invocations wait or fail per the
// session's FailoverPolicy.
func (session *Session) NotifyDisconnect(err error) {
	session.lock.Lock()
	closed := session.closed
	session.lock.Unlock()
	if closed {
		return
	}

	log := Logger()
	log.Warn().Err(err).Msg("transport disconnected; starting failover")
	go func() {
		_ = session.Failover()
	}()
}

// Failover re-establishes a connection and re-points every live handle.
// It returns once a replacement endpoint is installed or the session gives
// up, in which case every pending and future invocation fails.
func (session *Session) Failover() error {
	if !session.failing.CompareAndSwap(false, true) {
		return nil
	}
	defer session.failing.Store(false)

	session.endpoint.beginFailover()

	attempts := 0
	var lastErr error
	for {
		session.lock.Lock()
		closed := session.closed
		chooser := session.chooser
		strategy := session.strategy
		connector := session.connector
		maxAttempts := session.config.MaxRetries
		session.lock.Unlock()

		if closed {
			err := NewError(ObjectClosedError, "session closed during failover")
			session.endpoint.fail(err)
			return err
		}
		if maxAttempts > 0 && attempts >= maxAttempts {
			err := NewError(DisconnectedError, "failover attempts exhausted")
			if lastErr != nil {
				err = lastErr
			}
			session.endpoint.fail(err)
			return err
		}

		uri := chooser.CurrentURI()
		if uri == "" {
			err := NewError(ConnectionError, "server chooser does not contain any URIs")
			session.endpoint.fail(err)
			return err
		}

		if attempts > 0 {
			wait, delayErr := strategy.GetConnectWaitDuration(uri)
			if delayErr == nil && wait > 0 {
				time.Sleep(wait)
			}
		}
		attempts++

		transport, version, err := connector(uri)
		if err != nil {
			lastErr = err
			chooser.ReportFailure(err)
			continue
		}

		if err := session.repointDelegates(transport, version); err != nil {
			_ = transport.Close()
			lastErr = err
			chooser.ReportFailure(err)
			continue
		}

		session.adoptTransport(transport)
		session.endpoint.install(NewEndpointState(transport, version))
		chooser.ReportSuccess()
		strategy.Reset()

		log := Logger()
		log.Info().Str("uri", uri).Uint8("version", version).Int("attempts", attempts).
			Msg("failover complete")
		return nil
	}
}

// repointDelegates asks the new server to recreate each live resource and
// synchronizes the existing handles with the identifiers it assigns. The new
// endpoint is not visible to invocations until every handle is re-pointed.
func (session *Session) repointDelegates(transport Transport, version byte) error {
	session.lock.Lock()
	registrations := append([]*registration(nil), session.delegates...)
	session.lock.Unlock()

	for _, reg := range registrations {
		if reg.delegate.IsClosed() {
			continue
		}

		envelope := newRequestEnvelope(version, sessionTargetID, "recreateObject",
			[][]byte{[]byte(reg.delegate.Name())})
		response, err := transport.SendRequest(envelope)
		if err != nil {
			return err
		}
		payload := response.Response()
		if payload == nil {
			return NewError(ProtocolError, "recreate response has no payload")
		}
		if payload.Failed() {
			return serverCodeToError(payload.ErrorCode, payload.Reason)
		}
		newID, err := decodeObjectID(payload.Result)
		if err != nil {
			return err
		}

		replacement := NewDelegate(reg.delegate.Name(), newID)
		if err := reg.delegate.SynchronizeWith(replacement); err != nil {
			return err
		}
	}

	return nil
}

// Close tears the session down: every handle is marked closed, the transport
// is released, and later operations fail with ObjectClosedError.
func (session *Session) Close() error {
	session.lock.Lock()
	if session.closed {
		session.lock.Unlock()
		return nil
	}
	session.closed = true
	session.connected = false
	registrations := append([]*registration(nil), session.delegates...)
	session.delegates = nil
	session.lock.Unlock()

	for _, reg := range registrations {
		reg.delegate.markClosed()
	}

	state := session.endpoint.snapshot()
	session.endpoint.fail(NewError(ObjectClosedError, "session is closed"))
	if state != nil {
		return state.Transport().Close()
	}
	return nil
}

func decodeObjectID(result []byte) (int64, error) {
	if len(result) != 8 {
		return 0, NewError(ProtocolError, "object identifier payload must be 8 bytes")
	}
	return int64(binary.BigEndian.Uint64(result)), nil
}
