package hornetq

import (
	"bytes"
	"encoding/binary"
)

// Message is the unit a producer sends and a consumer listener receives.
type Message struct {
	Address string
	Durable bool
	Body    []byte
}

// Encode serializes the message into an invocation argument.
func (message *Message) Encode() ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	if err := writeString(buffer, message.Address); err != nil {
		return nil, err
	}
	if message.Durable {
		buffer.WriteByte(1)
	} else {
		buffer.WriteByte(0)
	}
	writeBytes(buffer, message.Body)
	return buffer.Bytes(), nil
}

// DecodeMessage parses a message encoded with Encode.
func DecodeMessage(data []byte) (*Message, error) {
	reader := &frameReader{data: data}
	address, err := reader.string()
	if err != nil {
		return nil, err
	}
	durable, err := reader.take(1)
	if err != nil {
		return nil, err
	}
	body, err := reader.bytes()
	if err != nil {
		return nil, err
	}
	return &Message{Address: address, Durable: durable[0] == 1, Body: body}, nil
}

// ClientProducer is a handle to a server-side producer. Sends are
// request/response; rate control is one-way.
type ClientProducer struct {
	session  *Session
	delegate *DelegateSupport
	pipeline *DispatchPipeline
	address  string
}

// Address returns the address the producer was created for.
func (producer *ClientProducer) Address() string { return producer.address }

// ID returns the server-side identifier of the producer object.
func (producer *ClientProducer) ID() int64 { return producer.delegate.ID() }

// IsClosed reports whether the producer has been closed.
func (producer *ClientProducer) IsClosed() bool { return producer.delegate.IsClosed() }

// Pipeline returns the producer's dispatch pipeline, so the host can append
// interceptors ahead of the remote dispatch step.
func (producer *ClientProducer) Pipeline() *DispatchPipeline { return producer.pipeline }

// Send delivers a message through the producer and waits for the server to
// accept it. Fails with ObjectClosedError once the producer is closed.
func (producer *ClientProducer) Send(message *Message) error {
	if message == nil {
		return NewError(IllegalStateError, "nil message")
	}
	data, err := message.Encode()
	if err != nil {
		return err
	}
	_, err = producer.pipeline.Call("send", data)
	return err
}

// ChangeRate notifies the server of a new producer rate. Classified one-way:
// the call returns as soon as the transport accepts the frame.
func (producer *ClientProducer) ChangeRate(rate int32) error {
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], uint32(rate))
	_, err := producer.pipeline.Call("changeRate", raw[:])
	return err
}

// Close releases the server-side producer. The handle is unusable afterwards;
// further sends fail with ObjectClosedError. Closing twice is a no-op.
func (producer *ClientProducer) Close() error {
	if producer.delegate.IsClosed() {
		return nil
	}

	_, err := producer.pipeline.Call("close")
	producer.delegate.markClosed()
	producer.session.unregister(producer.delegate)

	if err != nil && ErrorCode(err) != ObjectClosedError {
		return err
	}
	return nil
}
