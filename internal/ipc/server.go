// Package ipc implements the Local Framed Protocol Server: it accepts
// connections on the configured IPC endpoint, speaks the binary
// framed request/response protocol over each one, and turns parsed
// requests into calls against the HTTP Operation Engine.
package ipc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ccache/crsh/internal/config"
	"github.com/ccache/crsh/internal/idle"
	"github.com/ccache/crsh/internal/store"
)

// Server binds the configured endpoint and serves connections until a
// STOP frame, an idle timeout, a fatal framing error, or its context
// is canceled.
type Server struct {
	cfg         *config.Config
	log         *slog.Logger
	storeClient *store.Client

	listener  net.Listener
	idleTimer *idle.Timer

	opCtx    context.Context
	opCancel context.CancelFunc

	shutdownOnce sync.Once
	shutdownDone chan struct{}

	connsMu sync.Mutex
	conns   map[*conn]struct{}
	wg      sync.WaitGroup
}

// New builds a Server. The store Client is already configured by the
// caller; New creates the idle Timer from cfg.IdleTimeoutSeconds and
// wires both to the listener it will create in ListenAndServe.
func New(cfg *config.Config, log *slog.Logger, storeClient *store.Client) *Server {
	opCtx, opCancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:          cfg,
		log:          log,
		storeClient:  storeClient,
		opCtx:        opCtx,
		opCancel:     opCancel,
		shutdownDone: make(chan struct{}),
		conns:        make(map[*conn]struct{}),
	}
	s.idleTimer = idle.New(secondsToDuration(cfg.IdleTimeoutSeconds), s.onIdleExpired)
	return s
}

// ListenAndServe binds the endpoint and serves connections until
// ctx is canceled or the server shuts itself down (STOP, idle
// timeout, or a fatal framing error). It returns the bind error when
// the endpoint cannot be bound, and nil after any shutdown, however it
// was triggered.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := bindListener(s.cfg.IPCEndpoint)
	if err != nil {
		return err
	}
	s.listener = listener
	s.log.Info("listening", "endpoint", s.cfg.IPCEndpoint)

	s.idleTimer.Reset()

	go func() {
		<-ctx.Done()
		s.beginShutdown()
	}()

	s.acceptLoop()
	s.wg.Wait()
	<-s.shutdownDone
	return nil
}

func (s *Server) acceptLoop() {
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept error", "error", err)
			continue
		}

		s.idleTimer.Reset()
		c := newConn(nc, s)
		s.trackConn(c)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c.serve()
		}()
	}
}

func (s *Server) trackConn(c *conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[c] = struct{}{}
}

func (s *Server) untrackConn(c *conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, c)
}

func (s *Server) onIdleExpired() {
	s.log.Info("idle timeout reached, shutting down")
	s.beginShutdown()
}

// beginShutdown is idempotent and safe to call from any goroutine: a
// STOP frame on one connection, an idle timeout, a fatal framing
// error on another connection, or the process signal handler can all
// race to call it. Only the first call does anything.
func (s *Server) beginShutdown() {
	s.shutdownOnce.Do(func() {
		s.idleTimer.Stop()
		removeEndpoint(s.cfg.IPCEndpoint)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.opCancel()

		// Unblock every connection's reader goroutine by expiring its
		// read deadline, rather than closing the socket outright: a
		// connection may still have responses queued (or in-flight
		// HTTP callbacks about to fill a slot) that its writer goroutine
		// needs to finish flushing. Each conn.serve closes its own
		// socket once its writer has drained, so cancellation here
		// only needs to stop the read side.
		s.connsMu.Lock()
		for c := range s.conns {
			_ = c.nc.SetReadDeadline(time.Now())
		}
		s.connsMu.Unlock()

		close(s.shutdownDone)
	})
}

// Shutdown triggers the same graceful shutdown path as a STOP frame,
// an idle timeout, or canceling the context passed to ListenAndServe
// (which is how main reacts to SIGINT/SIGTERM).
func (s *Server) Shutdown() {
	s.beginShutdown()
}
