package hornetq

import (
	"sync"
	"time"
)

// MessageListener receives messages delivered to a consumer handle.
type MessageListener interface {
	OnMessage(message *Message)
}

// MessageListenerFunc adapts a function to MessageListener.
type MessageListenerFunc func(message *Message)

// OnMessage calls the adapted function.
func (f MessageListenerFunc) OnMessage(message *Message) { f(message) }

// AwaitingListener stores the most recent message and lets a caller block
// until one arrives.
type AwaitingListener struct {
	lock    sync.Mutex
	name    string
	message *Message
	arrived chan struct{}
}

// NewAwaitingListener returns a named listener with no message yet.
func NewAwaitingListener(name string) *AwaitingListener {
	return &AwaitingListener{name: name, arrived: make(chan struct{})}
}

// Name returns the listener's name.
func (listener *AwaitingListener) Name() string { return listener.name }

// OnMessage records the message and releases waiters.
func (listener *AwaitingListener) OnMessage(message *Message) {
	listener.lock.Lock()
	first := listener.message == nil
	listener.message = message
	if first {
		close(listener.arrived)
	}
	listener.lock.Unlock()
}

// Message returns the most recently received message, or nil.
func (listener *AwaitingListener) Message() *Message {
	listener.lock.Lock()
	defer listener.lock.Unlock()
	return listener.message
}

// WaitForMessage blocks until a message has been received or the timeout
// elapses, and returns the message or nil.
func (listener *AwaitingListener) WaitForMessage(timeout time.Duration) *Message {
	listener.lock.Lock()
	if listener.message != nil {
		message := listener.message
		listener.lock.Unlock()
		return message
	}
	arrived := listener.arrived
	listener.lock.Unlock()

	select {
	case <-arrived:
	case <-time.After(timeout):
	}

	return listener.Message()
}
