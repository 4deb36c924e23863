package hornetq

import (
	"math"
	"sync/atomic"
)

// invalidDelegateID marks a handle that has not been assigned a server-side
// identifier yet.
const invalidDelegateID = int64(math.MinInt64)

// DelegateSupport is the base for every client-side handle to a
// server-resident resource. It carries the server-side object identifier,
// a direct reference to the session's shared endpoint state (a field rather
// than a metadata map lookup: Invoke is the hot path), and the data-driven
// set of method names dispatched one-way.
//
// Handles are created from resource-creation responses and must be attached
// to their local dispatch pipeline before the first invocation. During
// failover the session re-points the handle with SynchronizeWith; callers
// holding the handle keep using it unchanged.
type DelegateSupport struct {
	name     string
	id       atomic.Int64
	endpoint *endpointRef
	oneway   map[string]bool
	attached atomic.Bool
	closed   atomic.Bool
}

// NewDelegate creates a handle for the server-side object with the given
// identifier. onewayMethods lists the method names dispatched fire-and-forget;
// every other method is request/response.
func NewDelegate(name string, id int64, onewayMethods ...string) *DelegateSupport {
	delegate := &DelegateSupport{
		name:   name,
		oneway: make(map[string]bool, len(onewayMethods)),
	}
	delegate.id.Store(id)
	for _, method := range onewayMethods {
		delegate.oneway[method] = true
	}
	return delegate
}

// Name returns the handle's name, used to identify it in pipelines and logs.
func (delegate *DelegateSupport) Name() string { return delegate.name }

// ID returns the server-side object identifier invocations are routed to.
func (delegate *DelegateSupport) ID() int64 { return delegate.id.Load() }

// IsClosed reports whether the underlying resource is known to be closed.
func (delegate *DelegateSupport) IsClosed() bool { return delegate.closed.Load() }

// IsOneway reports how the given method name is classified.
func (delegate *DelegateSupport) IsOneway(method string) bool { return delegate.oneway[method] }

// State returns the endpoint state currently installed for the handle's
// session, or nil before the handle is bound.
func (delegate *DelegateSupport) State() *EndpointState {
	if delegate.endpoint == nil {
		return nil
	}
	return delegate.endpoint.snapshot()
}

// bindEndpoint gives the handle its session's shared endpoint reference.
// Called once when the handle is registered, before Attach.
func (delegate *DelegateSupport) bindEndpoint(endpoint *endpointRef) {
	delegate.endpoint = endpoint
}

// Attach registers the handle as the terminal step of its local dispatch
// pipeline. It must be called exactly once after the handle arrives on the
// client and before the first invocation.
func (delegate *DelegateSupport) Attach(pipeline *DispatchPipeline) error {
	if pipeline == nil {
		return NewError(IllegalStateError, "nil dispatch pipeline")
	}
	if delegate.endpoint == nil {
		return NewError(IllegalStateError, "delegate "+delegate.name+" has no endpoint state")
	}
	if !delegate.attached.CompareAndSwap(false, true) {
		return NewError(IllegalStateError, "delegate "+delegate.name+" already attached")
	}
	if err := pipeline.setTerminal(delegate.name, delegate.dispatch); err != nil {
		delegate.attached.Store(false)
		return err
	}
	return nil
}

func (delegate *DelegateSupport) dispatch(invocation *Invocation) ([]byte, error) {
	return delegate.Invoke(invocation.Method, invocation.Arguments...)
}

// Invoke sends a method call to the server-side object the handle represents.
// Methods in the one-way set are written and forgotten; everything else
// blocks for the server's response and returns its result, or the
// server-reported error when the remote side raised one.
func (delegate *DelegateSupport) Invoke(method string, arguments ...[]byte) ([]byte, error) {
	if delegate.closed.Load() {
		return nil, NewError(ObjectClosedError, delegate.name+" is closed")
	}
	if !delegate.attached.Load() {
		return nil, NewError(IllegalStateError, "invoke on "+delegate.name+" before attach")
	}

	// One snapshot per call: an invocation started before a failover swap
	// completes against the transport and version it started with.
	state, err := delegate.endpoint.current()
	if err != nil {
		return nil, err
	}

	id := delegate.id.Load()
	envelope := newRequestEnvelope(state.Version(), id, method, arguments)

	log := Logger()
	if delegate.oneway[method] {
		log.Trace().Str("delegate", delegate.name).Int64("id", id).
			Str("method", method).Msg("invoking one-way on server")
		return nil, state.Transport().SendOneway(envelope)
	}

	log.Trace().Str("delegate", delegate.name).Int64("id", id).
		Str("method", method).Msg("invoking on server")

	response, err := state.Transport().SendRequest(envelope)
	if err != nil {
		return nil, err
	}

	return delegate.unwrap(response)
}

func (delegate *DelegateSupport) unwrap(envelope *Envelope) ([]byte, error) {
	if envelope == nil || envelope.Response() == nil {
		return nil, NewError(ProtocolError, "response envelope has no payload")
	}

	payload := envelope.Response()
	if payload.Failed() {
		err := serverCodeToError(payload.ErrorCode, payload.Reason)
		if ErrorCode(err) == ObjectClosedError {
			// The server says the resource is gone; remember it so later
			// invocations fail locally without a round trip.
			delegate.closed.Store(true)
		}
		return nil, err
	}

	return payload.Result, nil
}

// SynchronizeWith re-points the handle at the replacement object created on
// the new server during failover. Only the identifier moves; every other
// attribute, including the handle's identity to its callers, is untouched.
// Idempotent for a given source.
func (delegate *DelegateSupport) SynchronizeWith(newDelegate *DelegateSupport) error {
	if newDelegate == nil {
		return NewError(IllegalStateError, "nil source delegate")
	}
	newID := newDelegate.ID()
	if newID == invalidDelegateID {
		return NewError(IllegalStateError, "source delegate "+newDelegate.name+" is uninitialized")
	}

	log := Logger()
	log.Debug().Str("delegate", delegate.name).
		Int64("old_id", delegate.id.Load()).Int64("new_id", newID).
		Msg("synchronizing delegate with failover target")

	delegate.id.Store(newID)
	return nil
}

// markClosed records client-side that the resource is closed. Every later
// invocation fails locally with ObjectClosedError.
func (delegate *DelegateSupport) markClosed() {
	delegate.closed.Store(true)
}
