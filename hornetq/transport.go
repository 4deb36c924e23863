package hornetq

// Transport performs the actual network send and receive for one connection.
// Implementations own framing, request correlation, and the round-trip
// timeout; the dispatch layer never retries on their behalf.
type Transport interface {
	// SendOneway writes the envelope and returns as soon as the transport
	// accepts it. No response is ever expected.
	SendOneway(envelope *Envelope) error

	// SendRequest writes the envelope and blocks until the matching response
	// arrives, the transport times out, or the connection fails.
	SendRequest(envelope *Envelope) (*Envelope, error)

	Close() error
}

// DisconnectHandler is called by a transport when its connection breaks.
type DisconnectHandler func(err error)

// Connector establishes a transport to the given URI and negotiates the
// protocol version to use on it.
type Connector func(uri string) (Transport, byte, error)
