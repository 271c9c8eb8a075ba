// ABOUTME: Accept loop and per-connection request handling for the tool protocol.
// ABOUTME: Each connection is sequential (Idle <-> Processing) and has its own session id.
package protocol

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/harperreed/ultratrainer/internal/tools"
)

// State is a connection's position in its request cycle.
type State int32

const (
	StateIdle State = iota
	StateProcessing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	default:
		return "closed"
	}
}

// Conn is one client connection.
type Conn struct {
	id        string
	rwc       io.ReadWriteCloser
	reader    *bufio.Reader
	state     atomic.Int32
	closeOnce sync.Once
}

func newConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{
		id:     tools.NewSessionID(),
		rwc:    rwc,
		reader: bufio.NewReader(rwc),
	}
}

// ID returns the connection's session id.
func (c *Conn) ID() string { return c.id }

// State returns the current state.
func (c *Conn) State() State { return State(c.state.Load()) }

func (c *Conn) setState(s State) { c.state.Store(int32(s)) }

// Close closes the underlying stream. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		err = c.rwc.Close()
	})
	return err
}

func (c *Conn) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	data = append(data, '\n')
	if _, err := c.rwc.Write(data); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// Server serves the tool registry over newline-delimited JSON.
type Server struct {
	registry *tools.Registry
	logger   zerolog.Logger
	maxLine  int

	mu    sync.Mutex
	conns map[*Conn]struct{}
	wg    sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMaxLineBytes overrides DefaultMaxLineBytes.
func WithMaxLineBytes(n int) Option {
	return func(s *Server) { s.maxLine = n }
}

// NewServer creates a server for registry.
func NewServer(registry *tools.Registry, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		logger:   zerolog.Nop(),
		maxLine:  DefaultMaxLineBytes,
		conns:    make(map[*Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve accepts connections on ln until ctx is canceled, then closes every
// open connection and waits for their goroutines. It returns nil on cancellation.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("tool protocol listening")

	for {
		nc, err := ln.Accept()
		if err != nil {
			s.closeAll()
			s.wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		c := newConn(nc)
		s.track(c)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(c)
			s.logger.Debug().Str("session", c.id).Str("remote", nc.RemoteAddr().String()).Msg("connection opened")
			if err := s.serve(ctx, c); err != nil {
				s.logger.Warn().Err(err).Str("session", c.id).Msg("connection ended")
				return
			}
			s.logger.Debug().Str("session", c.id).Msg("connection closed")
		}()
	}
}

// ServeConn serves a single stream, such as stdin/stdout, until it ends.
func (s *Server) ServeConn(ctx context.Context, rwc io.ReadWriteCloser) error {
	return s.serve(ctx, newConn(rwc))
}

func (s *Server) track(c *Conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

// serve reads requests until EOF or a write failure. Requests on one
// connection are handled strictly in order.
func (s *Server) serve(ctx context.Context, c *Conn) error {
	defer c.Close()
	ctx = tools.WithSessionID(ctx, c.id)

	for {
		line, err := readLine(c.reader, s.maxLine)
		if errors.Is(err, errLineTooLong) {
			if err := c.write(malformed(nil, fmt.Sprintf("request line exceeds %d bytes", s.maxLine))); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || c.State() == StateClosed {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		c.setState(StateProcessing)
		resp := s.handle(ctx, line)
		err = c.write(resp)
		if c.State() != StateClosed {
			c.setState(StateIdle)
		}
		if err != nil {
			return err
		}
	}
}

func (s *Server) handle(ctx context.Context, line []byte) any {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return malformed(nil, "request is not a valid JSON object")
	}

	switch req.Type {
	case TypeDiscover:
		catalog, err := s.registry.CatalogJSON()
		if err != nil {
			s.logger.Error().Err(err).Msg("render tool catalog")
			return Response{ID: req.ID, Envelope: tools.Failure(err)}
		}
		return DiscoveryResponse{ID: req.ID, Tools: catalog}

	case TypeInvoke:
		if req.Name == "" {
			return malformed(req.ID, "invoke request needs a tool name")
		}
		return Response{ID: req.ID, Envelope: s.registry.Invoke(ctx, req.Name, req.Arguments)}

	case "":
		return malformed(req.ID, "request type is required")
	default:
		return malformed(req.ID, fmt.Sprintf("unknown request type %q", req.Type))
	}
}
