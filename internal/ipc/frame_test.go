package ipc

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putFrame(key []byte, flags byte, value []byte) []byte {
	buf := make([]byte, 0, 2+len(key)+1+8+len(value))
	buf = append(buf, byte(reqPut), byte(len(key)))
	buf = append(buf, key...)
	buf = append(buf, flags)
	lenBuf := make([]byte, 8)
	binary.NativeEndian.PutUint64(lenBuf, uint64(len(value)))
	buf = append(buf, lenBuf...)
	buf = append(buf, value...)
	return buf
}

func TestParseRequestEmptyBufferIsShortRead(t *testing.T) {
	_, _, err := parseRequest(nil)
	assert.ErrorIs(t, err, errShortRead)
}

func TestParseRequestStop(t *testing.T) {
	req, n, err := parseRequest([]byte{byte(reqStop), 0xff, 0xff})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, reqStop, req.Kind)
}

func TestParseRequestUnknownTypeIsFatal(t *testing.T) {
	_, _, err := parseRequest([]byte{0x7f})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownRequestType))
}

func TestParseRequestGetComplete(t *testing.T) {
	buf := []byte{byte(reqGet), 2, 0xab, 0xcd, 0x99}
	req, n, err := parseRequest(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, reqGet, req.Kind)
	assert.Equal(t, []byte{0xab, 0xcd}, req.Key)
}

func TestParseRequestGetPartialKeyIsShortRead(t *testing.T) {
	buf := []byte{byte(reqGet), 4, 0xab, 0xcd}
	_, _, err := parseRequest(buf)
	assert.ErrorIs(t, err, errShortRead)
}

func TestParseRequestRemoveComplete(t *testing.T) {
	buf := []byte{byte(reqRemove), 1, 0x01}
	req, n, err := parseRequest(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, reqRemove, req.Kind)
}

func TestParseRequestPutByteByByte(t *testing.T) {
	full := putFrame([]byte{0x01, 0x02}, putFlagOverwrite, []byte("value"))

	for i := 0; i < len(full)-1; i++ {
		_, _, err := parseRequest(full[:i])
		assert.ErrorIsf(t, err, errShortRead, "prefix length %d should be a short read", i)
	}

	req, n, err := parseRequest(full)
	require.NoError(t, err)
	assert.Equal(t, len(full), n)
	assert.Equal(t, reqPut, req.Kind)
	assert.Equal(t, []byte{0x01, 0x02}, req.Key)
	assert.Equal(t, putFlagOverwrite, req.Flags)
	assert.Equal(t, []byte("value"), req.Value)
}

func TestParseRequestPutTrailingBytesNotConsumed(t *testing.T) {
	full := putFrame([]byte{0xaa}, 0, []byte("x"))
	trailer := []byte{byte(reqStop)}

	req, n, err := parseRequest(append(full, trailer...))
	require.NoError(t, err)
	assert.Equal(t, len(full), n)
	assert.Equal(t, []byte("x"), req.Value)
}

func TestParseRequestPutHugeValueLenIsShortReadNotPanic(t *testing.T) {
	buf := []byte{byte(reqPut), 1, 0x00, 0x00}
	lenBuf := make([]byte, 8)
	binary.NativeEndian.PutUint64(lenBuf, ^uint64(0))
	buf = append(buf, lenBuf...)

	assert.NotPanics(t, func() {
		_, _, err := parseRequest(buf)
		assert.ErrorIs(t, err, errShortRead)
	})
}

func TestEncodeGreeting(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x01, 0x00}, encodeGreeting())
}

func TestEncodeGetOK(t *testing.T) {
	chunks := encodeGetOK([]byte("hi"))
	require.Len(t, chunks, 2)
	assert.Equal(t, byte(statusOK), chunks[0][0])
	assert.Equal(t, uint64(2), binary.NativeEndian.Uint64(chunks[0][1:]))
	assert.Equal(t, []byte("hi"), chunks[1])
}

func TestEncodeErrTruncates(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	chunks := encodeErr(string(long))
	require.Len(t, chunks, 1)
	assert.Equal(t, byte(statusErr), chunks[0][0])
	assert.Equal(t, byte(maxErrMsgLen), chunks[0][1])
	assert.Len(t, chunks[0], 2+maxErrMsgLen)
}
