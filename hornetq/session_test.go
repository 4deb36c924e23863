package hornetq

import (
	"sync"
	"testing"
	"time"
)

// brokerHandler answers the session-level protocol a fake broker speaks:
// createProducer and recreateObject return scripted identifiers, everything
// else succeeds empty.
func brokerHandler(transport *fakeTransport, nextID *int64, lock *sync.Mutex) {
	transport.setHandler(func(request *Envelope) *Envelope {
		switch request.Request().Method {
		case "createProducer", "recreateObject":
			lock.Lock()
			id := *nextID
			*nextID++
			lock.Unlock()
			return NewResultEnvelope(request.Version(), encodeObjectID(id))
		default:
			return NewResultEnvelope(request.Version(), nil)
		}
	})
}

func TestSessionConnectAndCreateProducer(t *testing.T) {
	transport := newFakeTransport(ProtocolV2)
	var lock sync.Mutex
	nextID := int64(100)
	brokerHandler(transport, &nextID, &lock)

	config := DefaultConfig()
	config.Endpoints = []string{"ws://broker-one:5445"}
	session := newTestSession(t, config, func(uri string) (Transport, byte, error) {
		return transport, ProtocolV2, nil
	})
	defer func() {
		if err := session.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}()

	if state := session.EndpointState(); state == nil || state.Version() != ProtocolV2 {
		t.Fatalf("unexpected endpoint state: %+v", state)
	}

	producer, err := session.CreateProducer("jms.queue.orders")
	if err != nil {
		t.Fatalf("CreateProducer failed: %v", err)
	}
	if producer.ID() != 100 {
		t.Fatalf("expected server-assigned id 100, got %d", producer.ID())
	}
	if producer.Address() != "jms.queue.orders" {
		t.Fatalf("unexpected address %q", producer.Address())
	}

	if err := producer.Send(&Message{Address: "jms.queue.orders", Body: []byte("hi")}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
}

func TestFailoverRepointsEveryHandle(t *testing.T) {
	var lock sync.Mutex

	oldTransport := newFakeTransport(ProtocolV2)
	oldNextID := int64(10)
	brokerHandler(oldTransport, &oldNextID, &lock)

	newTransport := newFakeTransport(ProtocolV1)
	newNextID := int64(500)
	brokerHandler(newTransport, &newNextID, &lock)

	transports := []*fakeTransport{oldTransport, newTransport}
	versions := []byte{ProtocolV2, ProtocolV1}
	dials := 0

	config := DefaultConfig()
	config.Endpoints = []string{"ws://broker-one:5445", "ws://broker-two:5445"}
	config.RetryDelay = time.Millisecond

	session := newTestSession(t, config, func(uri string) (Transport, byte, error) {
		transport := transports[dials%2]
		version := versions[dials%2]
		dials++
		return transport, version, nil
	})
	defer func() { _ = session.Close() }()

	producer, err := session.CreateProducer("jms.queue.orders")
	if err != nil {
		t.Fatalf("CreateProducer failed: %v", err)
	}
	oldID := producer.ID()

	if err := session.Failover(); err != nil {
		t.Fatalf("failover failed: %v", err)
	}

	if producer.ID() == oldID {
		t.Fatal("producer id not re-pointed by failover")
	}
	if producer.ID() < 500 {
		t.Fatalf("producer id %d not assigned by the new server", producer.ID())
	}
	state := session.EndpointState()
	if state == nil || state.Transport() != Transport(newTransport) || state.Version() != ProtocolV1 {
		t.Fatalf("endpoint state not swapped to the new server")
	}

	// The handle keeps working against the new endpoint.
	if err := producer.Send(&Message{Address: "jms.queue.orders", Body: []byte("post-failover")}); err != nil {
		t.Fatalf("send after failover failed: %v", err)
	}
	if newTransport.requestCount() == 0 {
		t.Fatal("post-failover send did not use the new transport")
	}
}

func TestFailoverSkipsClosedHandles(t *testing.T) {
	var lock sync.Mutex

	oldTransport := newFakeTransport(ProtocolV2)
	oldNextID := int64(10)
	brokerHandler(oldTransport, &oldNextID, &lock)

	newTransport := newFakeTransport(ProtocolV2)
	var recreated []string
	newTransport.setHandler(func(request *Envelope) *Envelope {
		if request.Request().Method == "recreateObject" {
			lock.Lock()
			recreated = append(recreated, string(request.Request().Arguments[0]))
			lock.Unlock()
		}
		return NewResultEnvelope(request.Version(), encodeObjectID(900))
	})

	dials := 0
	config := DefaultConfig()
	config.Endpoints = []string{"ws://broker:5445"}
	config.RetryDelay = time.Millisecond

	session := newTestSession(t, config, func(uri string) (Transport, byte, error) {
		dials++
		if dials == 1 {
			return oldTransport, ProtocolV2, nil
		}
		return newTransport, ProtocolV2, nil
	})
	defer func() { _ = session.Close() }()

	producer, err := session.CreateProducer("jms.queue.orders")
	if err != nil {
		t.Fatalf("CreateProducer failed: %v", err)
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if err := session.Failover(); err != nil {
		t.Fatalf("failover failed: %v", err)
	}

	lock.Lock()
	defer lock.Unlock()
	for _, name := range recreated {
		if name == "producer.jms.queue.orders" {
			t.Fatal("failover recreated a closed producer")
		}
	}
}

func TestFailoverGivesUpAfterMaxRetries(t *testing.T) {
	transport := newFakeTransport(ProtocolV2)
	dials := 0

	config := DefaultConfig()
	config.Endpoints = []string{"ws://broker:5445"}
	config.RetryDelay = time.Millisecond
	config.MaxRetries = 3

	session := newTestSession(t, config, func(uri string) (Transport, byte, error) {
		dials++
		if dials == 1 {
			return transport, ProtocolV2, nil
		}
		return nil, 0, NewError(ConnectionError, "broker unreachable")
	})
	defer func() { _ = session.Close() }()

	err := session.Failover()
	if err == nil {
		t.Fatal("expected failover to give up")
	}
	if dials != 4 {
		t.Fatalf("expected 3 failover dials, saw %d total", dials)
	}

	// The session delegate is permanently broken now.
	if _, err := session.Pipeline().Call("createProducer", []byte("x")); err == nil {
		t.Fatal("expected invocations to fail after abandoned failover")
	}
}

func TestSessionCloseMakesHandlesUnusable(t *testing.T) {
	transport := newFakeTransport(ProtocolV2)
	var lock sync.Mutex
	nextID := int64(1)
	brokerHandler(transport, &nextID, &lock)

	config := DefaultConfig()
	config.Endpoints = []string{"ws://broker:5445"}
	session := newTestSession(t, config, func(uri string) (Transport, byte, error) {
		return transport, ProtocolV2, nil
	})

	producer, err := session.CreateProducer("jms.queue.orders")
	if err != nil {
		t.Fatalf("CreateProducer failed: %v", err)
	}

	if err := session.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if !producer.IsClosed() {
		t.Fatal("producer not closed by session teardown")
	}
	if err := producer.Send(&Message{Body: []byte("late")}); ErrorCode(err) != ObjectClosedError {
		t.Fatalf("expected ObjectClosedError after teardown, got %v", err)
	}
	if _, err := session.CreateProducer("jms.queue.other"); ErrorCode(err) != ObjectClosedError {
		t.Fatalf("expected ObjectClosedError from closed session, got %v", err)
	}
}
