// Package plot serves drawings over HTTP: a JSON API over the persistence
// backend, PNG snapshots rendered headless and a websocket feed of changes.
package plot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/StudioSol/set"
	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/logger"
	"github.com/raykavin/chartdraw/pkg/viewport"
)

const shutdownTimeout = 5 * time.Second

// Storage is the persistence backend served by the API
type Storage interface {
	core.DrawingStorage
	Sources(ctx context.Context) ([]string, error)
}

// BarProvider supplies the bars drawn under snapshots
type BarProvider interface {
	Bars(pair, timeframe string) ([]core.Bar, error)
}

// Server exposes drawings of every source over HTTP and websocket
type Server struct {
	sync.Mutex
	port        int
	storage     Storage
	bars        BarProvider
	sources     *set.LinkedHashSetString
	hub         *Hub
	viewOptions []viewport.Option
	log         logger.Logger
}

// Option configures a Server
type Option func(*Server)

// WithPort sets the HTTP listen port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithBars sets the bar provider used by snapshots
func WithBars(provider BarProvider) Option {
	return func(s *Server) {
		s.bars = provider
	}
}

// WithViewport sets the viewport options used by snapshots
func WithViewport(opts ...viewport.Option) Option {
	return func(s *Server) {
		s.viewOptions = opts
	}
}

// NewServer creates a server over storage
func NewServer(storage Storage, log logger.Logger, opts ...Option) *Server {
	s := &Server{
		port:    8080,
		storage: storage,
		sources: set.NewLinkedHashSetString(),
		log:     log,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.hub = NewHub(s.storage, log)
	return s
}

// Hub returns the websocket broadcaster
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /sources", s.handleSources)
	mux.HandleFunc("GET /drawings", s.handleListDrawings)
	mux.HandleFunc("PUT /drawings", s.handleSaveDrawing)
	mux.HandleFunc("DELETE /drawings/{id}", s.handleDeleteDrawing)
	mux.HandleFunc("DELETE /drawings", s.handleClearSource)
	mux.HandleFunc("GET /snapshot.png", s.handleSnapshot)
	mux.HandleFunc("GET /ws", s.hub.HandleWebSocket)
	return mux
}

// Start listens on the configured port until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("chart server listening on http://localhost:%d", s.port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.hub.Close()
	if err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// trackSource remembers a source seen through the API
func (s *Server) trackSource(sourceID string) {
	s.Lock()
	defer s.Unlock()
	if !s.sources.InArray(sourceID) {
		s.sources.Add(sourceID)
	}
}

// knownSources merges the stored sources with those seen since start
func (s *Server) knownSources(ctx context.Context) ([]string, error) {
	stored, err := s.storage.Sources(ctx)
	if err != nil {
		return nil, err
	}

	s.Lock()
	defer s.Unlock()
	for _, id := range stored {
		if !s.sources.InArray(id) {
			s.sources.Add(id)
		}
	}

	sources := make([]string, 0, s.sources.Length())
	for id := range s.sources.Iter() {
		sources = append(sources, id)
	}
	return sources, nil
}
