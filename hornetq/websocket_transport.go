package hornetq

import (
	"bytes"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport speaks the envelope codec over binary websocket frames.
// Each frame is an 8-byte correlation identifier followed by the encoded
// envelope; correlation zero marks one-way traffic and unsolicited server
// pushes.
type WebSocketTransport struct {
	conn *websocket.Conn

	writeLock sync.Mutex

	pendingLock sync.Mutex
	pending     map[uint64]chan *Envelope

	handlerLock sync.Mutex
	disconnect  DisconnectHandler
	pushHandler func(*Envelope)

	nextCorrelation atomic.Uint64
	requestTimeout  time.Duration
	closed          atomic.Bool
	done            chan struct{}

	serverRelease VersionInfo
}

// DialWebSocket connects to a ws:// or wss:// URI, negotiates the protocol
// version, and returns the transport with the version to use on it.
func DialWebSocket(uri string, requestTimeout time.Duration) (*WebSocketTransport, byte, error) {
	conn, _, err := websocket.DefaultDialer.Dial(uri, nil)
	if err != nil {
		return nil, 0, NewError(ConnectionError, err)
	}

	transport := &WebSocketTransport{
		conn:           conn,
		pending:        make(map[uint64]chan *Envelope),
		requestTimeout: requestTimeout,
		done:           make(chan struct{}),
	}
	go transport.readLoop()

	version, err := transport.negotiate()
	if err != nil {
		_ = transport.Close()
		return nil, 0, err
	}

	return transport, version, nil
}

// WebSocketConnector adapts DialWebSocket to the Connector contract.
func WebSocketConnector(requestTimeout time.Duration) Connector {
	return func(uri string) (Transport, byte, error) {
		transport, version, err := DialWebSocket(uri, requestTimeout)
		if err != nil {
			return nil, 0, err
		}
		return transport, version, nil
	}
}

// negotiate exchanges protocol versions with the server. The response carries
// the server's highest protocol version followed by its release string; the
// connection uses the older of the two sides.
func (transport *WebSocketTransport) negotiate() (byte, error) {
	request := newRequestEnvelope(CurrentProtocolVersion, sessionTargetID, "negotiateVersion",
		[][]byte{{CurrentProtocolVersion}})
	response, err := transport.SendRequest(request)
	if err != nil {
		return 0, err
	}
	payload := response.Response()
	if payload == nil || payload.Failed() || len(payload.Result) < 1 {
		return 0, NewError(ProtocolError, "malformed version negotiation response")
	}

	version := NegotiateVersion(CurrentProtocolVersion, payload.Result[0])
	if !SupportedVersion(version) {
		return 0, NewError(UnsupportedVersionError, "no protocol version in common with the server")
	}
	transport.serverRelease = ParseVersionInfo(string(payload.Result[1:]))

	log := Logger()
	log.Debug().Str("server_release", transport.serverRelease.String()).
		Uint8("version", version).Msg("negotiated protocol version")
	return version, nil
}

// ServerRelease returns the release the server reported during negotiation.
func (transport *WebSocketTransport) ServerRelease() VersionInfo {
	return transport.serverRelease
}

// SetDisconnectHandler installs the callback invoked when the connection
// breaks. A nil handler disables notification.
func (transport *WebSocketTransport) SetDisconnectHandler(handler DisconnectHandler) {
	transport.handlerLock.Lock()
	transport.disconnect = handler
	transport.handlerLock.Unlock()
}

// SetPushHandler installs the callback for unsolicited server envelopes
// (correlation zero), such as delivered messages.
func (transport *WebSocketTransport) SetPushHandler(handler func(*Envelope)) {
	transport.handlerLock.Lock()
	transport.pushHandler = handler
	transport.handlerLock.Unlock()
}

func (transport *WebSocketTransport) writeFrame(correlation uint64, envelope *Envelope) error {
	buffer := bytes.NewBuffer(nil)
	var scratch [8]byte
	binary.BigEndian.PutUint64(scratch[:], correlation)
	buffer.Write(scratch[:])
	if err := envelope.encode(buffer); err != nil {
		return err
	}

	transport.writeLock.Lock()
	defer transport.writeLock.Unlock()
	if transport.closed.Load() {
		return NewError(DisconnectedError, "transport is closed")
	}
	if err := transport.conn.WriteMessage(websocket.BinaryMessage, buffer.Bytes()); err != nil {
		return NewError(ConnectionError, err)
	}
	return nil
}

// SendOneway writes the envelope and returns without waiting for anything
// from the server.
func (transport *WebSocketTransport) SendOneway(envelope *Envelope) error {
	return transport.writeFrame(0, envelope)
}

// SendRequest writes the envelope and blocks until the correlated response
// arrives, the request times out, or the connection fails.
func (transport *WebSocketTransport) SendRequest(envelope *Envelope) (*Envelope, error) {
	correlation := transport.nextCorrelation.Add(1)
	arrival := make(chan *Envelope, 1)

	transport.pendingLock.Lock()
	transport.pending[correlation] = arrival
	transport.pendingLock.Unlock()

	if err := transport.writeFrame(correlation, envelope); err != nil {
		transport.pendingLock.Lock()
		delete(transport.pending, correlation)
		transport.pendingLock.Unlock()
		return nil, err
	}

	timeout := transport.requestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case response := <-arrival:
		return response, nil
	case <-transport.done:
		return nil, NewError(ConnectionError, "connection lost while waiting for response")
	case <-timer.C:
		transport.pendingLock.Lock()
		delete(transport.pending, correlation)
		transport.pendingLock.Unlock()
		return nil, NewError(TimedOutError, "no response within "+timeout.String())
	}
}

func (transport *WebSocketTransport) readLoop() {
	for {
		_, frame, err := transport.conn.ReadMessage()
		if err != nil {
			transport.shutdown(NewError(ConnectionError, err))
			return
		}
		if len(frame) < 8 {
			log := Logger()
			log.Warn().Int("length", len(frame)).Msg("dropping short websocket frame")
			continue
		}

		correlation := binary.BigEndian.Uint64(frame[:8])
		envelope, err := DecodeEnvelope(frame[8:])
		if err != nil {
			log := Logger()
			log.Warn().Err(err).Msg("dropping undecodable envelope")
			continue
		}

		if correlation == 0 {
			transport.handlerLock.Lock()
			push := transport.pushHandler
			transport.handlerLock.Unlock()
			if push != nil {
				push(envelope)
			}
			continue
		}

		transport.pendingLock.Lock()
		arrival := transport.pending[correlation]
		delete(transport.pending, correlation)
		transport.pendingLock.Unlock()
		if arrival != nil {
			arrival <- envelope
		}
	}
}

func (transport *WebSocketTransport) shutdown(cause error) {
	if !transport.closed.CompareAndSwap(false, true) {
		return
	}
	close(transport.done)
	_ = transport.conn.Close()

	if cause != nil {
		transport.handlerLock.Lock()
		disconnect := transport.disconnect
		transport.handlerLock.Unlock()
		if disconnect != nil {
			disconnect(cause)
		}
	}
}

// Close shuts the connection down without reporting a disconnect.
func (transport *WebSocketTransport) Close() error {
	transport.shutdown(nil)
	return nil
}
