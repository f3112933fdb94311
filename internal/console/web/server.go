package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/termrepl/internal/console"
	"github.com/dshills/termrepl/internal/logging"
)

//go:embed static
var staticFiles embed.FS

// SessionFunc runs one interactive session on c until it ends. id
// identifies the session in logs.
type SessionFunc func(ctx context.Context, id string, c console.Console) error

// BuildInfo is served at /buildinfo.
type BuildInfo struct {
	Version  string `json:"version"`
	BuildID  string `json:"build_id"`
	Sessions int64  `json:"sessions"`
}

// Server serves the terminal page and one session per socket connection.
type Server struct {
	run     SessionFunc
	logger  *logging.Logger
	version string
	buildID string
	origins map[string]bool

	mux      *http.ServeMux
	active   atomic.Int64
	sessions sync.WaitGroup

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *logging.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithBuildInfo sets the version and build identifier reported at
// /buildinfo.
func WithBuildInfo(version, buildID string) ServerOption {
	return func(s *Server) {
		s.version, s.buildID = version, buildID
	}
}

// WithAllowedOrigins accepts socket connections from the given origins in
// addition to same-host pages. A "*" entry accepts any origin.
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(s *Server) {
		for _, o := range origins {
			s.origins[o] = true
		}
	}
}

// NewServer creates a server running run for each connection.
func NewServer(run SessionFunc, opts ...ServerOption) *Server {
	s := &Server{
		run:     run,
		logger:  logging.Nop(),
		version: "dev",
		buildID: "unknown",
		origins: make(map[string]bool),
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.baseCtx, s.baseCancel = context.WithCancel(context.Background())

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.mux.Handle("GET /", http.FileServerFS(static))
	s.mux.HandleFunc("GET /buildinfo", s.handleBuildInfo)
	s.mux.Handle("GET /ws", websocket.Server{
		Handshake: s.checkOrigin,
		Handler:   s.handleSocket,
	})
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Sessions returns the number of running sessions.
func (s *Server) Sessions() int64 {
	return s.active.Load()
}

func (s *Server) handleBuildInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	info := BuildInfo{Version: s.version, BuildID: s.buildID, Sessions: s.active.Load()}
	if err := json.NewEncoder(w).Encode(info); err != nil {
		s.logger.Warn("write buildinfo: %v", err)
	}
}

// checkOrigin accepts clients without an Origin header, pages served by
// this host and explicitly allowed origins.
func (s *Server) checkOrigin(cfg *websocket.Config, r *http.Request) error {
	origin := r.Header.Get("Origin")
	if origin == "" || s.origins["*"] || s.origins[origin] {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return err
	}
	if u.Host != r.Host {
		return errors.New("cross-origin socket rejected")
	}
	cfg.Origin = u
	return nil
}

func (s *Server) handleSocket(conn *websocket.Conn) {
	id := uuid.NewString()
	log := s.logger.WithField("session", id)

	s.sessions.Add(1)
	defer s.sessions.Done()
	s.active.Add(1)
	defer s.active.Add(-1)

	widget := NewSocketWidget(conn)
	defer widget.Close()
	adapter := NewAdapter(widget)

	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()

	log.Info("session started from %s", conn.Request().RemoteAddr)
	err := s.run(ctx, id, adapter)
	switch {
	case err == nil, errors.Is(err, console.ErrDisconnected):
		log.Info("session ended")
	default:
		log.Warn("session ended: %v", err)
	}

	if err := adapter.Flush(); err != nil && !errors.Is(err, console.ErrDisconnected) {
		log.Debug("final flush: %v", err)
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down,
// disconnecting running sessions.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Shutdown disconnects every running session and waits for them to end.
func (s *Server) Shutdown() {
	s.baseCancel()
	s.sessions.Wait()
}
