// Package hornetq provides the client-side delegate dispatch layer for a
// HornetQ-style messaging broker.
//
// Every higher-level client object (connection, session, producer, consumer)
// is a handle to a server-resident resource. A handle is represented by a
// DelegateSupport value that turns local method calls into remote invocations:
// each call is wrapped in an Envelope tagged with the negotiated protocol
// version and the server-side object identifier, classified as one-way or
// request/response, and handed to the active Transport.
//
// The primary lifecycle is:
//   - construct a Session from a Config and a Connector
//   - Connect to establish the shared EndpointState
//   - create producer handles and send through their dispatch pipelines
//   - Close the session when finished
//
// Handles are safe for concurrent use. Request/response invocations block the
// calling goroutine for the network round trip; one-way invocations return as
// soon as the transport accepts the frame. During failover the session swaps
// the shared EndpointState atomically and re-points every registered handle
// with SynchronizeWith, so callers holding a handle never see it break.
//
// Errors are reported as typed errors created with NewError; the originating
// code is recoverable with ErrorCode even after wrapping.
package hornetq
