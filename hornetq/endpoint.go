package hornetq

import (
	"sync"
	"sync/atomic"
)

// FailoverPolicy controls what an in-progress invocation does while the
// session is between endpoints.
type FailoverPolicy int

const (
	// FailoverBlock makes invocations wait until a replacement endpoint is
	// installed.
	FailoverBlock FailoverPolicy = iota

	// FailoverFail makes invocations fail immediately with a retryable error.
	FailoverFail
)

// EndpointState is the per-connection state every handle on a session shares:
// the active transport and the protocol version negotiated for it. Instances
// are immutable; failover installs a whole replacement rather than mutating
// fields, so an invocation can never observe a transport paired with the
// wrong version.
type EndpointState struct {
	transport Transport
	version   byte
}

// NewEndpointState binds a transport to its negotiated protocol version.
func NewEndpointState(transport Transport, version byte) *EndpointState {
	return &EndpointState{transport: transport, version: version}
}

// Transport returns the active transport.
func (state *EndpointState) Transport() Transport { return state.transport }

// Version returns the protocol version negotiated for the transport.
func (state *EndpointState) Version() byte { return state.version }

// endpointRef is the single shared reference through which every handle on a
// session reaches the current EndpointState. The state pointer is swapped
// atomically; the mutex only guards the Stable/Failing-over transition and
// the gate channel invocations wait on under FailoverBlock.
type endpointRef struct {
	policy FailoverPolicy
	state  atomic.Pointer[EndpointState]

	lock    sync.Mutex
	failing bool
	broken  error
	gate    chan struct{}
}

func newEndpointRef(policy FailoverPolicy, state *EndpointState) *endpointRef {
	ref := &endpointRef{policy: policy}
	if state != nil {
		ref.state.Store(state)
	} else {
		ref.failing = true
		ref.gate = make(chan struct{})
	}
	return ref
}

// current returns the EndpointState an invocation should use, honoring the
// failover policy while the session is between endpoints.
func (ref *endpointRef) current() (*EndpointState, error) {
	for {
		ref.lock.Lock()
		if ref.broken != nil {
			broken := ref.broken
			ref.lock.Unlock()
			return nil, broken
		}
		if !ref.failing {
			state := ref.state.Load()
			ref.lock.Unlock()
			if state == nil {
				return nil, NewError(IllegalStateError, "endpoint state not installed")
			}
			return state, nil
		}
		if ref.policy == FailoverFail {
			ref.lock.Unlock()
			return nil, NewError(RetryOperationError, "failover in progress")
		}
		gate := ref.gate
		ref.lock.Unlock()

		<-gate
	}
}

// beginFailover moves the reference into the Failing-over state. Idempotent.
func (ref *endpointRef) beginFailover() {
	ref.lock.Lock()
	if !ref.failing {
		ref.failing = true
		ref.gate = make(chan struct{})
	}
	ref.lock.Unlock()
}

// install atomically replaces the EndpointState and returns to Stable,
// releasing every invocation blocked on the gate.
func (ref *endpointRef) install(state *EndpointState) {
	ref.lock.Lock()
	ref.state.Store(state)
	if ref.failing {
		ref.failing = false
		close(ref.gate)
		ref.gate = nil
	}
	ref.lock.Unlock()
}

// fail marks the reference permanently broken. Blocked invocations wake up
// and every later invocation reports the given error.
func (ref *endpointRef) fail(err error) {
	if err == nil {
		err = NewError(DisconnectedError, "endpoint abandoned")
	}
	ref.lock.Lock()
	ref.broken = err
	if ref.failing && ref.gate != nil {
		close(ref.gate)
		ref.gate = nil
	}
	ref.lock.Unlock()
}

// snapshot returns the installed state without waiting, for accessors that
// must not block during failover.
func (ref *endpointRef) snapshot() *EndpointState {
	return ref.state.Load()
}
