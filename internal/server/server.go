// Package server implements the connection server (spec.md C4): a TCP
// accept loop over the framed request/response protocol, with an explicit
// Stopped/Starting/Running/Draining lifecycle (spec.md §4.4), adapted from
// the daemon's net.Listen accept loop (daemon.go's Run/handleConn).
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/scenebridge/blenderforge/internal/dispatch"
	"github.com/scenebridge/blenderforge/internal/wire"
)

// State is one of the four lifecycle states spec.md §3.1 defines.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	default:
		return "Unknown"
	}
}

// listenBacklog is the small constant backlog spec.md §4.4 calls for.
// Go's net package does not expose SYSCALL-level backlog tuning portably;
// this constant documents the intent even though it isn't threaded through
// to net.Listen (which always uses the OS default backlog).
const listenBacklog = 5

// DefaultShutdownGrace is how long Stop waits for in-flight workers before
// force-closing their connections (spec.md §4.4).
const DefaultShutdownGrace = 5 * time.Second

// DefaultRequestTimeout is applied to a request when it omits
// timeout_seconds (spec.md §9 Design Notes).
const DefaultRequestTimeout = 30 * time.Second

// DefaultMaxConns softly caps concurrent connection workers; beyond it, new
// accepts are briefly deferred rather than rejected (spec.md §4.4).
const DefaultMaxConns = 32

// Server binds a loopback TCP listener and feeds each connection's request
// to a dispatch.Dispatcher, one request-reply per connection (spec.md §4.4:
// "Workers do not persist state across requests; each connection handles
// one request-reply").
type Server struct {
	Dispatcher      *dispatch.Dispatcher
	ShutdownGrace   time.Duration
	RequestTimeout  time.Duration
	MaxConns        int

	mu       sync.Mutex
	state    State
	host     string
	port     uint16
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	sem      chan struct{}
}

// New returns a Stopped Server bound to host:port once started.
func New(d *dispatch.Dispatcher, host string, port uint16) *Server {
	return &Server{
		Dispatcher:     d,
		ShutdownGrace:  DefaultShutdownGrace,
		RequestTimeout: DefaultRequestTimeout,
		MaxConns:       DefaultMaxConns,
		host:           host,
		port:           port,
		conns:          make(map[net.Conn]struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr returns the host:port the server is configured for, or, once bound,
// the listener's actual local address (useful when port 0 requests an
// ephemeral port, e.g. in tests).
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// SetAddr reconfigures the bind address. It is only valid while Stopped
// (spec.md §3.1: "Mutable only while Stopped; attempting to set while
// Running fails with BusyState").
func (s *Server) SetAddr(host string, port uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStopped {
		return wire.NewError(wire.KindBusyState, "cannot change address while server is %s", s.state)
	}
	s.host, s.port = host, port
	return nil
}

// Start binds the listener and begins accepting connections (spec.md
// §4.4). It returns AlreadyRunning if the server is not Stopped.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.state != StateStopped {
		state := s.state
		s.mu.Unlock()
		return wire.NewError(wire.KindAlreadyRunning, "server is %s, not Stopped", state)
	}
	s.state = StateStarting
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.mu.Unlock()

	// Deliberately no SO_REUSEADDR: a colliding instance must see
	// AddressInUse immediately rather than silently succeed (spec.md §4.4).
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		if strings.Contains(err.Error(), "address already in use") {
			return wire.Wrap(wire.KindAddressInUse, err, "address %s already in use", addr)
		}
		return wire.Wrap(wire.KindBindFailed, err, "failed to bind %s", addr)
	}

	s.mu.Lock()
	s.listener = ln
	s.state = StateRunning
	s.sem = make(chan struct{}, s.maxConnsOrDefault())
	s.mu.Unlock()

	go s.acceptLoop(ln)
	return nil
}

func (s *Server) maxConnsOrDefault() int {
	if s.MaxConns > 0 {
		return s.MaxConns
	}
	return DefaultMaxConns
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Listener was closed by Stop(); this is the normal exit path.
			return
		}

		// Soft cap: block here rather than hard-rejecting when MaxConns
		// workers are already in flight (spec.md §4.4 "briefly deferred,
		// not hard-rejected"). A closed listener unblocks Accept above
		// before this would ever wedge Stop().
		s.sem <- struct{}{}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		<-s.sem
		s.wg.Done()
	}()

	data, err := wire.ReadMessage(conn, wire.DefaultIOTimeout)
	if err != nil {
		s.writeErrorBestEffort(conn, "", err)
		return
	}

	req, err := wire.DecodeRequest(data)
	if err != nil {
		s.writeErrorBestEffort(conn, "", err)
		return
	}

	timeout := s.RequestTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds * float64(time.Second))
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := s.Dispatcher.Submit(ctx, req)
	if err != nil {
		s.writeErrorBestEffort(conn, req.Type, err)
		return
	}

	payload, err := wire.EncodeResponse(resp)
	if err != nil {
		log.Printf("server: failed to encode response for %s: %v", req.Type, err)
		return
	}
	if err := wire.WriteMessage(conn, payload, wire.DefaultIOTimeout); err != nil {
		log.Printf("server: failed to write response for %s: %v", req.Type, err)
	}
}

func (s *Server) writeErrorBestEffort(conn net.Conn, source string, err error) {
	resp := wire.Failure(source, err.Error())
	payload, encErr := wire.EncodeResponse(resp)
	if encErr != nil {
		return
	}
	_ = wire.WriteMessage(conn, payload, wire.DefaultIOTimeout)
}

// Stop transitions Running→Draining→Stopped: it stops accepting new
// connections immediately, waits up to ShutdownGrace for in-flight workers
// to finish, then force-closes any stragglers. Stop is idempotent
// (spec.md §4.4).
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	s.state = StateDraining
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	grace := s.ShutdownGrace
	if grace <= 0 {
		grace = DefaultShutdownGrace
	}

	select {
	case <-done:
	case <-time.After(grace):
		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
		<-done
	}

	s.mu.Lock()
	s.listener = nil
	s.state = StateStopped
	s.mu.Unlock()
	return nil
}

// Restart stops and starts the server; the address may be changed in
// between via SetAddr (spec.md §4.4).
func (s *Server) Restart() error {
	if err := s.Stop(); err != nil {
		return err
	}
	return s.Start()
}
