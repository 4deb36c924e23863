package hornetq

import (
	"bytes"
	"encoding/binary"
	"strconv"
)

const (
	envelopeRequest = iota
	envelopeResult
	envelopeError
)

// RequestPayload describes an outbound invocation: the server-side object it
// targets, the method to run, and the already-serialized arguments.
type RequestPayload struct {
	TargetID  int64
	Method    string
	Arguments [][]byte
}

// ResponsePayload describes an inbound server response: a result value, or an
// error descriptor when the server side raised.
type ResponsePayload struct {
	Result    []byte
	ErrorCode int32
	Reason    string
	failed    bool
}

// Failed reports whether the response carries a server-side error.
func (payload *ResponsePayload) Failed() bool { return payload.failed }

// Envelope is the wire-level unit: a protocol version tag plus either a
// request or a response payload. The version is fixed at construction.
type Envelope struct {
	version  byte
	kind     byte
	request  *RequestPayload
	response *ResponsePayload
}

// Version returns the protocol version the envelope was built with.
func (envelope *Envelope) Version() byte { return envelope.version }

// Request returns the outbound payload, or nil for a response envelope.
func (envelope *Envelope) Request() *RequestPayload { return envelope.request }

// Response returns the inbound payload, or nil for a request envelope.
func (envelope *Envelope) Response() *ResponsePayload { return envelope.response }

func newRequestEnvelope(version byte, targetID int64, method string, arguments [][]byte) *Envelope {
	return &Envelope{
		version: version,
		kind:    envelopeRequest,
		request: &RequestPayload{TargetID: targetID, Method: method, Arguments: arguments},
	}
}

// NewResultEnvelope builds a successful response envelope. Used by server
// fakes and transport implementations when completing a request.
func NewResultEnvelope(version byte, result []byte) *Envelope {
	return &Envelope{
		version:  version,
		kind:     envelopeResult,
		response: &ResponsePayload{Result: result},
	}
}

// NewErrorEnvelope builds a response envelope carrying a server-side error
// descriptor.
func NewErrorEnvelope(version byte, code int32, reason string) *Envelope {
	return &Envelope{
		version:  version,
		kind:     envelopeError,
		response: &ResponsePayload{ErrorCode: code, Reason: reason, failed: true},
	}
}

func (envelope *Envelope) encode(buffer *bytes.Buffer) error {
	buffer.WriteByte(envelope.version)
	buffer.WriteByte(envelope.kind)

	switch envelope.kind {
	case envelopeRequest:
		request := envelope.request
		writeInt64(buffer, request.TargetID)
		if err := writeString(buffer, request.Method); err != nil {
			return err
		}
		if len(request.Arguments) > 0xFFFF {
			return NewError(ProtocolError, "too many invocation arguments")
		}
		writeUint16(buffer, uint16(len(request.Arguments)))
		for _, argument := range request.Arguments {
			writeBytes(buffer, argument)
		}

	case envelopeResult:
		writeBytes(buffer, envelope.response.Result)

	case envelopeError:
		writeInt32(buffer, envelope.response.ErrorCode)
		if err := writeString(buffer, envelope.response.Reason); err != nil {
			return err
		}

	default:
		return NewError(ProtocolError, "unknown envelope kind")
	}

	return nil
}

// Encode serializes the envelope into a frame suitable for a transport.
func (envelope *Envelope) Encode() ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	if err := envelope.encode(buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// DecodeEnvelope parses a frame back into an envelope. The version tag is the
// first field extracted; a frame tagged with an unsupported version is
// rejected before any of the remaining bytes are interpreted.
func DecodeEnvelope(frame []byte) (*Envelope, error) {
	if len(frame) < 2 {
		return nil, NewError(ProtocolError, "truncated envelope frame")
	}

	version := frame[0]
	if !SupportedVersion(version) {
		return nil, NewError(UnsupportedVersionError, "protocol version "+strconv.Itoa(int(version)))
	}

	kind := frame[1]
	reader := &frameReader{data: frame[2:]}

	envelope := &Envelope{version: version, kind: kind}

	switch kind {
	case envelopeRequest:
		targetID, err := reader.int64()
		if err != nil {
			return nil, err
		}
		method, err := reader.string()
		if err != nil {
			return nil, err
		}
		count, err := reader.uint16()
		if err != nil {
			return nil, err
		}
		arguments := make([][]byte, 0, count)
		for index := 0; index < int(count); index++ {
			argument, err := reader.bytes()
			if err != nil {
				return nil, err
			}
			arguments = append(arguments, argument)
		}
		envelope.request = &RequestPayload{TargetID: targetID, Method: method, Arguments: arguments}

	case envelopeResult:
		result, err := reader.bytes()
		if err != nil {
			return nil, err
		}
		envelope.response = &ResponsePayload{Result: result}

	case envelopeError:
		code, err := reader.int32()
		if err != nil {
			return nil, err
		}
		reason, err := reader.string()
		if err != nil {
			return nil, err
		}
		envelope.response = &ResponsePayload{ErrorCode: code, Reason: reason, failed: true}

	default:
		return nil, NewError(ProtocolError, "unknown envelope kind")
	}

	return envelope, nil
}

func writeUint16(buffer *bytes.Buffer, value uint16) {
	var scratch [2]byte
	binary.BigEndian.PutUint16(scratch[:], value)
	buffer.Write(scratch[:])
}

func writeInt32(buffer *bytes.Buffer, value int32) {
	var scratch [4]byte
	binary.BigEndian.PutUint32(scratch[:], uint32(value))
	buffer.Write(scratch[:])
}

func writeInt64(buffer *bytes.Buffer, value int64) {
	var scratch [8]byte
	binary.BigEndian.PutUint64(scratch[:], uint64(value))
	buffer.Write(scratch[:])
}

func writeString(buffer *bytes.Buffer, value string) error {
	if len(value) > 0xFFFF {
		return NewError(ProtocolError, "string field too long")
	}
	writeUint16(buffer, uint16(len(value)))
	buffer.WriteString(value)
	return nil
}

func writeBytes(buffer *bytes.Buffer, value []byte) {
	var scratch [4]byte
	binary.BigEndian.PutUint32(scratch[:], uint32(len(value)))
	buffer.Write(scratch[:])
	buffer.Write(value)
}

type frameReader struct {
	data []byte
}

func (reader *frameReader) take(count int) ([]byte, error) {
	if len(reader.data) < count {
		return nil, NewError(ProtocolError, "truncated envelope frame")
	}
	taken := reader.data[:count]
	reader.data = reader.data[count:]
	return taken, nil
}

func (reader *frameReader) uint16() (uint16, error) {
	raw, err := reader.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(raw), nil
}

func (reader *frameReader) int32() (int32, error) {
	raw, err := reader.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(raw)), nil
}

func (reader *frameReader) int64() (int64, error) {
	raw, err := reader.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(raw)), nil
}

func (reader *frameReader) string() (string, error) {
	length, err := reader.uint16()
	if err != nil {
		return "", err
	}
	raw, err := reader.take(int(length))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (reader *frameReader) bytes() ([]byte, error) {
	raw, err := reader.take(4)
	if err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint32(raw))
	taken, err := reader.take(length)
	if err != nil {
		return nil, err
	}
	value := make([]byte, length)
	copy(value, taken)
	return value, nil
}
