// ABOUTME: MCP server exposing the coaching tool registry.
// ABOUTME: Serves over stdio or streamable HTTP behind a chi router.
package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/harperreed/ultratrainer/internal/tools"
)

// Server wraps the MCP server with the tool registry.
type Server struct {
	mcpServer *mcp.Server
	registry  *tools.Registry
	logger    zerolog.Logger
	version   string
	health    func(context.Context) error

	// sessions maps *mcp.ServerSession (or nil for direct calls) to *session.
	sessions sync.Map
}

// session serializes calls from one MCP client and names it for the store.
type session struct {
	mu sync.Mutex
	id string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithVersion sets the implementation version reported to clients.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithHealthCheck sets the probe behind /healthz.
func WithHealthCheck(fn func(context.Context) error) Option {
	return func(s *Server) { s.health = fn }
}

// NewServer creates an MCP server exposing every tool in registry.
func NewServer(registry *tools.Registry, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		logger:   zerolog.Nop(),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = mcp.NewServer(
		&mcp.Implementation{
			Name:    "ultratrainer",
			Version: s.version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()

	return s
}

// Serve runs the MCP server on stdin/stdout until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns an HTTP handler serving streamable MCP at /mcp and a
// liveness probe at /healthz.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.accessLog)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
	r.Handle("/mcp", streamable)
	r.Handle("/mcp/*", streamable)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("health check failed")
			status["status"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// session returns the state for ss, creating it on first use. Entries are
// dropped when the MCP session ends.
func (s *Server) session(ss *mcp.ServerSession) *session {
	if v, ok := s.sessions.Load(ss); ok {
		return v.(*session)
	}
	v, loaded := s.sessions.LoadOrStore(ss, &session{id: tools.NewSessionID()})
	if !loaded && ss != nil {
		go func() {
			_ = ss.Wait()
			s.sessions.Delete(ss)
		}()
	}
	return v.(*session)
}
