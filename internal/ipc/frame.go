package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// requestType is the first byte of every frame on the wire.
type requestType byte

const (
	reqGet    requestType = 0x00
	reqPut    requestType = 0x01
	reqRemove requestType = 0x02
	reqStop   requestType = 0x03
)

const (
	statusOK   byte = 0x00
	statusNoop byte = 0x01
	statusErr  byte = 0x02
)

const (
	protocolVersion     byte = 0x01
	capGetPutRemoveStop byte = 0x00
)

// putFlagOverwrite is the only PUT flag bit with meaning; all others
// are reserved and must be ignored rather than rejected, so the
// front-end can set forward-compatible flags.
const putFlagOverwrite byte = 0x01

// maxErrMsgLen bounds an ERR frame's diagnostic message; longer
// messages are truncated rather than rejected.
const maxErrMsgLen = 255

// errShortRead is an internal sentinel meaning "not enough bytes yet";
// it is never returned to a caller outside this package and never
// logged — a short read is a normal, expected condition, not an error.
var errShortRead = errors.New("short read")

// ErrUnknownRequestType is returned by parseRequest when the leading
// byte of a frame doesn't name GET, PUT, REMOVE, or STOP. It is a
// fatal framing error: the caller must log it and shut down.
var ErrUnknownRequestType = errors.New("unknown request type")

// request is one fully-parsed frame.
type request struct {
	Kind  requestType
	Key   []byte // raw key bytes, not yet hex-encoded
	Flags byte   // PUT only
	Value []byte // PUT only
}

// parseRequest tries to consume exactly one complete frame from the
// front of buf. It returns (nil, 0, errShortRead) when buf holds an
// incomplete frame — the caller must wait for more bytes without
// discarding anything already buffered. It returns a non-nil, non-
// sentinel error only for an unrecognized request_type, which is
// unrecoverable.
func parseRequest(buf []byte) (*request, int, error) {
	if len(buf) < 1 {
		return nil, 0, errShortRead
	}

	kind := requestType(buf[0])
	if kind == reqStop {
		return &request{Kind: reqStop}, 1, nil
	}
	if kind != reqGet && kind != reqPut && kind != reqRemove {
		return nil, 0, fmt.Errorf("%w: 0x%02x", ErrUnknownRequestType, buf[0])
	}

	if len(buf) < 2 {
		return nil, 0, errShortRead
	}
	keyLen := int(buf[1])
	afterKey := 2 + keyLen
	if len(buf) < afterKey {
		return nil, 0, errShortRead
	}
	key := append([]byte(nil), buf[2:afterKey]...)

	switch kind {
	case reqGet, reqRemove:
		return &request{Kind: kind, Key: key}, afterKey, nil

	default: // reqPut
		if len(buf) < afterKey+1 {
			return nil, 0, errShortRead
		}
		flags := buf[afterKey]
		afterFlags := afterKey + 1
		if len(buf) < afterFlags+8 {
			return nil, 0, errShortRead
		}
		// value_len is expressly host byte order: this is a local-only
		// protocol choice, reproduced verbatim rather than "fixed" to
		// network byte order.
		valueLen := binary.NativeEndian.Uint64(buf[afterFlags : afterFlags+8])
		afterLen := afterFlags + 8

		if valueLen > maxRequestValueLen {
			// Reject absurd declared sizes rather than attempting an
			// allocation/slice that can't be satisfied; treat as a
			// short read forever rather than crash on int overflow.
			return nil, 0, errShortRead
		}
		total := afterLen + int(valueLen)
		if len(buf) < total {
			return nil, 0, errShortRead
		}
		value := append([]byte(nil), buf[afterLen:total]...)
		return &request{Kind: kind, Key: key, Flags: flags, Value: value}, total, nil
	}
}

// maxRequestValueLen bounds a single PUT payload so a corrupt or
// adversarial value_len can't be used to force an out-of-range slice
// length; the local protocol has no authentication, but it still
// shouldn't be able to crash the daemon with a single bad frame.
const maxRequestValueLen = 1 << 34 // 16 GiB

func encodeGreeting() []byte {
	return []byte{protocolVersion, 1, capGetPutRemoveStop}
}

func encodeOK() [][]byte {
	return [][]byte{{statusOK}}
}

func encodeNoop() [][]byte {
	return [][]byte{{statusNoop}}
}

func encodeErr(msg string) [][]byte {
	if len(msg) > maxErrMsgLen {
		msg = msg[:maxErrMsgLen]
	}
	frame := make([]byte, 0, 2+len(msg))
	frame = append(frame, statusErr, byte(len(msg)))
	frame = append(frame, msg...)
	return [][]byte{frame}
}

func encodeGetOK(data []byte) [][]byte {
	header := make([]byte, 9)
	header[0] = statusOK
	binary.NativeEndian.PutUint64(header[1:], uint64(len(data)))
	return [][]byte{header, data}
}
