package devserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/metrics"
	"github.com/zishang520/socket.io/v2/socket"
)

// Event names pushed to browsers.
const (
	EventReloadFull  = "reload-full"
	EventReloadStyle = "reload-style-only"
	EventBuildError  = "build-error"
)

const (
	HealthPath  = "/__assetgrid/health"
	MetricsPath = "/__assetgrid/metrics"

	shutdownTimeout = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	// Root is the directory served.
	Root string
	Host string
	// Port 0 picks a free port.
	Port int
	// ClientURL is the socket.io browser client loaded by injected pages.
	ClientURL string
}

// Server is the live-reload development server. The zero value is not
// usable; create one with New.
type Server struct {
	opts    Options
	snippet []byte

	mu      sync.Mutex
	running bool
	httpSrv *http.Server
	io      *socket.Server
	addr    string
	logger  *slog.Logger

	sessions atomic.Int64
}

// New creates a stopped server.
func New(opts Options) *Server {
	return &Server{
		opts:    opts,
		snippet: Snippet(opts.ClientURL),
		logger:  slog.Default(),
	}
}

// Start binds the listener and starts serving in the background. Calling
// Start on a running server is a no-op.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.logger = ctxlog.FromContext(ctx)

	ln, err := net.Listen("tcp", net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port)))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	opts := socket.DefaultServerOptions()
	opts.SetServeClient(false)
	io := socket.NewServer(nil, opts)
	io.On("connection", s.onConnection)

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", io.ServeHandler(nil))
	mux.HandleFunc(HealthPath, s.healthHandler)
	mux.Handle(MetricsPath, promhttp.Handler())
	mux.HandleFunc(ClientPath, s.clientHandler)
	mux.Handle("/", s.staticHandler())

	s.io = io
	s.httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	s.addr = ln.Addr().String()
	s.running = true

	srv, logger := s.httpSrv, s.logger
	go func() {
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Dev server failed unexpectedly", "error", err)
		}
	}()
	logger.Info("🌐 Dev server started.", "url", s.url(), "root", s.opts.Root)
	return nil
}

// Stop closes every live-reload session and shuts the HTTP server down
// gracefully. Calling Stop on a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	s.logger.Info("🌐 Shutting down dev server...")
	s.io.Close(nil)

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("Dev server shutdown failed", "error", err)
		return err
	}
	s.logger.Debug("Dev server shut down gracefully.")
	return nil
}

// Addr returns the bound address, or "" when the server is not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ""
	}
	return s.addr
}

// URL returns the base URL of the running server.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url()
}

func (s *Server) url() string {
	return "http://" + s.addr
}

// Sessions returns the number of connected live-reload clients.
func (s *Server) Sessions() int {
	return int(s.sessions.Load())
}

// Reload asks every connected browser to reload. ReloadStyle swaps
// stylesheets in place; anything else reloads the page.
func (s *Server) Reload(kind config.ReloadKind, paths []string) {
	event := EventReloadFull
	switch kind {
	case config.ReloadNone:
		return
	case config.ReloadStyle:
		event = EventReloadStyle
	}
	s.emit(event, map[string]any{"paths": paths})
}

// BuildError pushes a failed task run to the browser console.
func (s *Server) BuildError(task string, err error) {
	s.emit(EventBuildError, map[string]any{"task": task, "message": err.Error()})
}

func (s *Server) emit(event string, payload map[string]any) {
	s.mu.Lock()
	io, running, logger := s.io, s.running, s.logger
	s.mu.Unlock()
	if !running {
		return
	}
	logger.Debug("Pushing notification.", "event", event, "sessions", s.Sessions())
	io.Emit(event, payload)
}

func (s *Server) onConnection(clients ...any) {
	client, ok := clients[0].(*socket.Socket)
	if !ok {
		return
	}
	s.sessions.Add(1)
	metrics.Sessions.Inc()
	s.logger.Debug("Live-reload client connected.", "sid", client.Id())
	client.On("disconnect", func(...any) {
		s.sessions.Add(-1)
		metrics.Sessions.Dec()
		s.logger.Debug("Live-reload client disconnected.", "sid", client.Id())
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) clientHandler(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, static, "client.js")
}

// staticHandler serves files from the root directory. HTML pages get the
// live-reload snippet; everything else is served as is.
func (s *Server) staticHandler() http.Handler {
	files := http.FileServer(http.Dir(s.opts.Root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/") {
			name = path.Join(name, "index.html")
		}
		if !strings.EqualFold(path.Ext(name), ".html") {
			files.ServeHTTP(w, r)
			return
		}

		full := filepath.Join(s.opts.Root, filepath.FromSlash(name))
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		page, err := os.ReadFile(full)
		if err != nil {
			s.logger.Warn("Failed to read page.", "path", name, "error", err)
			http.Error(w, "failed to read page", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(Inject(page, s.snippet)))
	})
}
