// Package server implements the local bundle server that backs the
// local-server target. It serves one platform's bundle directory over
// plain HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/warpbundle/pkg/logger"
)

// Server serves bundle files from a directory of an afero filesystem.
// Directory listings are not exposed.
type Server struct {
	log      logger.Logger
	fs       afero.Fs
	addr     string
	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a Server serving root on fs at addr. A nil fs serves
// from the operating system.
func NewServer(l logger.Logger, fs afero.Fs, root, addr string) *Server {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Server{
		log:  l,
		fs:   afero.NewBasePathFs(fs, root),
		addr: addr,
	}
}

// Handler returns the HTTP handler serving bundles. Only GET and HEAD
// are allowed.
func (s *Server) Handler() http.Handler {
	files := http.FileServer(afero.NewHttpFs(s.fs).Dir("/"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := path.Clean("/" + r.URL.Path)
		fi, err := s.fs.Stat(name)
		if err != nil || fi.IsDir() {
			s.log.Debug("server: %s %s: not found", r.Method, name)
			http.NotFound(w, r)
			return
		}
		s.log.Debug("server: %s %s (%d bytes)", r.Method, name, fi.Size())
		files.ServeHTTP(w, r)
	})
}

// Listen binds the server address. It is called by Start when the
// server is not listening yet.
func (s *Server) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, err
	}
	s.listener = l
	return l.Addr(), nil
}

// Start serves bundles until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr, err := s.Listen()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv, l := s.server, s.listener
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(shutdownCtx)
	}()

	s.log.Info("serving bundles on http://%s/", addr)
	err = srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		if s.listener != nil {
			err := s.listener.Close()
			s.listener = nil
			return err
		}
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.server = nil
	s.listener = nil
	return err
}
