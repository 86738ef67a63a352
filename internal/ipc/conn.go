package ipc

import (
	"encoding/hex"
	"errors"
	"io"
	"net"

	"github.com/ccache/crsh/internal/store"
)

// slotQueueDepth bounds how many responses a connection may have
// in flight (reserved but not yet filled) at once. A real ccache
// front-end issues requests one at a time per connection; this is
// generous headroom rather than a tuned limit. Reserving a slot past
// this depth simply blocks the reader goroutine, which is a
// reasonable form of back-pressure.
const slotQueueDepth = 256

// conn owns one accepted local connection. Its reader goroutine parses
// frames and dispatches operations; each dispatched operation reserves
// an ordered "slot" before it starts, and a single writer goroutine
// drains slots strictly in reservation order. This guarantees
// responses are written in request order on the wire even though the
// HTTP operations backing them can complete in any order.
type conn struct {
	nc     net.Conn
	server *Server
	slots  chan chan [][]byte
}

func newConn(nc net.Conn, s *Server) *conn {
	return &conn{nc: nc, server: s, slots: make(chan chan [][]byte, slotQueueDepth)}
}

// reserveSlot claims the next position in the write order. It may
// block if slotQueueDepth outstanding responses are already reserved.
func (c *conn) reserveSlot() chan [][]byte {
	slot := make(chan [][]byte, 1)
	c.slots <- slot
	return slot
}

// fillSlot completes a previously reserved slot with the chunks to
// write for it. Called from whichever goroutine finishes the
// corresponding operation — the greeting, a STOP ack, or an HTTP
// Operation Engine callback.
func fillSlot(slot chan [][]byte, chunks [][]byte) {
	slot <- chunks
}

// writeLoop drains slots in order and writes their chunks to the
// connection. It exits once c.slots is closed and fully drained, or
// on the first write error, which it logs before closing c.nc so the
// reader goroutine's next Read fails and the connection winds down;
// slots reserved after that point are never drained. A slot that never gets
// filled (its operation's goroutine is still running after shutdown
// initiated a close elsewhere) simply blocks writeLoop on that one
// slot; closing c.nc from elsewhere unblocks nothing here, but that is
// fine; the filler still eventually sends into the size-1 slot
// channel, and the abandoned, unread value is dropped with the conn.
func (c *conn) writeLoop() {
	for slot := range c.slots {
		chunks := <-slot
		for _, chunk := range chunks {
			if len(chunk) == 0 {
				continue
			}
			if _, err := c.nc.Write(chunk); err != nil {
				c.server.log.Warn("connection write error, closing connection", "error", err)
				_ = c.nc.Close()
				return
			}
		}
	}
}

// serve runs the full lifecycle of one connection: send the greeting,
// read and dispatch frames until EOF, STOP, or a fatal framing error,
// then drain the write queue before closing. It never returns until
// every response it queued has been written (or the connection died
// trying).
func (c *conn) serve() {
	defer c.server.untrackConn(c)

	writerDone := make(chan struct{})
	go func() {
		c.writeLoop()
		close(writerDone)
	}()

	greeting := c.reserveSlot()
	fillSlot(greeting, [][]byte{encodeGreeting()})

	c.readLoop()

	close(c.slots)
	<-writerDone
	_ = c.nc.Close()
}

func (c *conn) readLoop() {
	s := c.server
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 32*1024)

	for {
		n, err := c.nc.Read(chunk)
		if n > 0 {
			s.idleTimer.Reset()
			buf = append(buf, chunk[:n]...)

			for {
				req, consumed, perr := parseRequest(buf)
				if errors.Is(perr, errShortRead) {
					break
				}
				if perr != nil {
					s.log.Error("unrecoverable framing error, shutting down", "error", perr)
					s.beginShutdown()
					return
				}
				buf = buf[consumed:]
				s.idleTimer.Reset()

				if stop := c.dispatch(req); stop {
					return
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug("connection read error", "error", err)
			}
			return
		}
	}
}

// dispatch handles one parsed request. It returns true when the
// connection's read loop must stop (STOP received).
func (c *conn) dispatch(req *request) bool {
	s := c.server

	switch req.Kind {
	case reqStop:
		slot := c.reserveSlot()
		fillSlot(slot, encodeOK())
		s.log.Info("STOP received, shutting down")
		s.beginShutdown()
		return true

	case reqGet:
		hexKey := hex.EncodeToString(req.Key)
		slot := c.reserveSlot()
		s.storeClient.Get(s.opCtx, hexKey, func(r store.Result) {
			fillSlot(slot, encodeResult(r, true))
		})

	case reqRemove:
		hexKey := hex.EncodeToString(req.Key)
		slot := c.reserveSlot()
		s.storeClient.Remove(s.opCtx, hexKey, func(r store.Result) {
			fillSlot(slot, encodeResult(r, false))
		})

	case reqPut:
		hexKey := hex.EncodeToString(req.Key)
		overwrite := req.Flags&putFlagOverwrite != 0
		slot := c.reserveSlot()
		s.storeClient.Put(s.opCtx, hexKey, req.Value, overwrite, func(r store.Result) {
			fillSlot(slot, encodeResult(r, false))
		})
	}
	return false
}

// encodeResult turns an HTTP Operation Engine Result into the wire
// chunks for its response frame. withBody is true only for GET, whose
// OK response carries the value alongside the status.
func encodeResult(r store.Result, withBody bool) [][]byte {
	switch r.Status {
	case store.OK:
		if withBody {
			return encodeGetOK(r.Data)
		}
		return encodeOK()
	case store.NOOP:
		return encodeNoop()
	default:
		msg := ""
		if r.Err != nil {
			msg = r.Err.Error()
		}
		return encodeErr(msg)
	}
}
